package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/stats"
)

const preloadTimeout = time.Minute

func newArticlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Maintain the article cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show cached articles",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(ctx context.Context, cmd *cobra.Command, admin articleAdmin) error {
			status, err := admin.ArticleStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to load article status: %w", err)
			}
			return renderArticleStatus(cmd, status)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired articles",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(ctx context.Context, cmd *cobra.Command, admin articleAdmin) error {
			n, err := admin.CleanupArticles(ctx)
			if err != nil {
				return fmt.Errorf("failed to clean up articles: %w", err)
			}
			return printf(cmd, "Deleted %d expired articles.\n", n)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete every cached article",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(ctx context.Context, cmd *cobra.Command, admin articleAdmin) error {
			n, err := admin.ResetArticles(ctx)
			if err != nil {
				return fmt.Errorf("failed to reset articles: %w", err)
			}
			return printf(cmd, "Deleted %d articles.\n", n)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "preload",
		Short: "Fetch a fresh batch of articles",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(ctx context.Context, cmd *cobra.Command, admin articleAdmin) error {
			if err := admin.PreloadArticles(ctx); err != nil {
				return fmt.Errorf("failed to preload articles: %w", err)
			}
			return printf(cmd, "Articles preloaded.\n")
		}),
	})
	return cmd
}

func withAdmin(run func(ctx context.Context, cmd *cobra.Command, admin articleAdmin) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, closeLog, err := openLogFile()
		if err != nil {
			return err
		}
		defer closeLog()
		be, err := openBackend(cmd, cfg, logger)
		if err != nil {
			return err
		}
		defer be.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), preloadTimeout)
		defer cancel()
		return run(ctx, cmd, be.admin)
	}
}

func renderArticleStatus(cmd *cobra.Command, status model.ArticleStatus) error {
	if err := printf(cmd, "Articles: %d (%d expired)\n", status.Total, status.Expired); err != nil {
		return err
	}
	if len(status.Items) == 0 {
		return nil
	}
	for _, item := range status.Items {
		line := fmt.Sprintf("%s  %-40s  %3d words  expires %s",
			item.CreatedAt.Local().Format("2006-01-02 15:04"),
			stats.Truncate(item.Title, 40),
			item.WordCount,
			item.ExpiresAt.Local().Format("2006-01-02 15:04"),
		)
		if err := printf(cmd, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func printf(cmd *cobra.Command, format string, args ...any) error {
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
