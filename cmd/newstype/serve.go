package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/newstype/internal/config"
	"github.com/verte-zerg/newstype/internal/server"
	"github.com/verte-zerg/newstype/internal/store"
)

var (
	serveAddr      string
	serveRateLimit int
	serveRateBurst int
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().IntVar(&serveRateLimit, "rate-limit", server.DefaultRateLimit, "result saves per minute per user")
	cmd.Flags().IntVar(&serveRateBurst, "rate-burst", 0, "burst size for result saves (default: rate-limit)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, cfg.Server.Addr)
	applyIntConfig(cmd, "rate-limit", &serveRateLimit, cfg.Server.RateLimit)
	applyIntConfig(cmd, "rate-burst", &serveRateBurst, cfg.Server.RateBurst)
	if serveAddr == "" {
		return fmt.Errorf("--addr must not be empty")
	}
	if serveRateLimit <= 0 {
		return fmt.Errorf("--rate-limit must be > 0")
	}
	if serveRateBurst < 0 {
		return fmt.Errorf("--rate-burst must be >= 0")
	}

	logger := newLogger(os.Stderr)
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close db", "error", cerr)
		}
	}()

	accounts, err := newAccountService(cfg, st)
	if err != nil {
		return err
	}
	cached, err := newCachedProvider(cfg, st, logger)
	if err != nil {
		return err
	}
	if cfg.Articles.GuardianKey == nil || *cfg.Articles.GuardianKey == "" {
		logger.Warn("no Guardian API key configured; /api/news serves cached articles only", "env", config.EnvGuardianKey)
	}

	srv := server.New(server.Deps{
		Results:  st,
		Articles: cached,
		Cache:    st,
		Refiller: cached,
		Accounts: accounts,
	}, server.Options{
		Addr:      serveAddr,
		RateLimit: serveRateLimit,
		RateBurst: serveRateBurst,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
