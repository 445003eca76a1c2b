package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/stats"
	"github.com/verte-zerg/newstype/internal/statsui"
)

const queryTimeout = 15 * time.Second

var (
	historyLimit int
	statsLimit   int
	statsWindow  int
	statsPlain   bool
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent results",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryN, "number of results (0 = all)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsLimit, "last", 0, "limit to last N results (0 = all)")
	cmd.Flags().IntVar(&statsWindow, "window", defaultWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print plain text instead of the interactive view")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	be, id, closeFn, err := openSignedIn(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
	defer cancel()
	records, err := be.results.ListResults(ctx, id.UserID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	return stats.RenderHistory(cmd.OutOrStdout(), records)
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsLimit < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	be, id, closeFn, err := openSignedIn(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	if !statsPlain && isTerminal(out) {
		m := statsui.NewModel(be.results, statsui.Options{
			UserID:      id.UserID,
			DisplayName: id.DisplayName,
			Limit:       statsLimit,
			Window:      statsWindow,
		})
		program := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
	defer cancel()
	summary, err := be.results.GetStats(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	records, err := be.results.ListResults(ctx, id.UserID, statsLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if err := stats.RenderSummary(out, summary, records); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderTrend(out, records, statsWindow, 0); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// openSignedIn opens the backend and requires a signed-in identity.
func openSignedIn(cmd *cobra.Command) (*backend, model.Identity, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, model.Identity{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, closeLog, err := openLogFile()
	if err != nil {
		return nil, model.Identity{}, nil, err
	}
	be, err := openBackend(cmd, cfg, logger)
	if err != nil {
		closeLog()
		return nil, model.Identity{}, nil, err
	}
	closeFn := func() {
		be.Close()
		closeLog()
	}
	id, ok := be.session.Current()
	if !ok {
		closeFn()
		return nil, model.Identity{}, nil, fmt.Errorf("%s", notSignedInHint)
	}
	return be, id, closeFn, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
