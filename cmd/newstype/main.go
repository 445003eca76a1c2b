// Package main provides the CLI entrypoint for newstype.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/config"
	"github.com/verte-zerg/newstype/internal/generator"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/scorer"
	"github.com/verte-zerg/newstype/internal/wordlist"
)

const (
	defaultMode     = string(model.ModeMatch)
	defaultCaps     = 0.0
	defaultPunct    = 0.0
	defaultPunctSet = ".,!?;:"
	defaultHistoryN = 20
	defaultWindow   = 5
	notSignedInHint = "Not signed in. Run: newstype signin"
)

var (
	serverURL string
	debugLog  bool

	practiceMode     string
	practiceDuration int
	practiceOffline  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "newstype",
		Short:         "Typing practice on today's news",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "newstype server to use instead of the local database")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "write debug logs")

	rootCmd.Flags().StringVar(&practiceMode, "mode", defaultMode, `completion mode: "match" or "countdown"`)
	rootCmd.Flags().IntVar(&practiceDuration, "duration", scorer.DefaultDurationSeconds, "countdown length in seconds")
	rootCmd.Flags().BoolVar(&practiceOffline, "offline", false, "practise with built-in words only")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSignUpCmd())
	rootCmd.AddCommand(newSignInCmd())
	rootCmd.AddCommand(newSignOutCmd())
	rootCmd.AddCommand(newWhoAmICmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newArticlesCmd())

	return rootCmd
}

// loadConfig reads the config file and applies .env and environment
// overrides. Flags are applied by each command.
func loadConfig() (config.FileConfig, error) {
	if err := config.LoadEnv(".env", config.DefaultEnvPath()); err != nil {
		return config.FileConfig{}, err
	}
	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, err
	}
	config.ApplyEnv(&cfg)
	return cfg, nil
}

func resolveServerURL(cmd *cobra.Command, cfg config.FileConfig) string {
	url := serverURL
	applyStringConfig(cmd, "server-url", &url, cfg.Account.ServerURL)
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

// openLogFile sends logs to the data directory so they never reach an
// alt-screen terminal.
func openLogFile() (*slog.Logger, func(), error) {
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	closeFn := func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close of the log file.
			_ = cerr
		}
	}
	return newLogger(file), closeFn, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if debugLog {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func validatePractice(mode string, duration int) error {
	if !model.Mode(mode).Valid() {
		return fmt.Errorf(`--mode must be "match" or "countdown"`)
	}
	if duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	return nil
}

func offlineProvider(cfg config.FileConfig, logger *slog.Logger) *article.Offline {
	caps, punct, punctSet := defaultCaps, defaultPunct, defaultPunctSet
	count, seed := article.DefaultFallbackWords, int64(0)
	p := cfg.Practice
	if p.CapsPct != nil {
		caps = *p.CapsPct
	}
	if p.PunctPct != nil {
		punct = *p.PunctPct
	}
	if p.PunctSet != nil {
		punctSet = *p.PunctSet
	}
	if p.FallbackWords != nil {
		count = *p.FallbackWords
	}
	if p.Seed != nil {
		seed = *p.Seed
	}
	var words []string
	if path := cfg.Articles.OfflineWordlist; path != nil && *path != "" {
		loaded, err := wordlist.LoadWords(*path)
		if err != nil {
			logger.Warn("failed to load offline word list, using built-in words", "path", *path, "error", err)
		} else {
			words = loaded
		}
	}
	opts := generator.Options{CapsPct: caps, PunctPct: punct, PunctSet: []rune(punctSet)}
	return article.NewOffline(words, count, opts).WithSeed(seed)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
