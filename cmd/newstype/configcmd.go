package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/config"
	"github.com/verte-zerg/newstype/internal/scorer"
	"github.com/verte-zerg/newstype/internal/server"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeConfigTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeConfigTemplate creates the config file unless it already exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# newstype configuration
# Uncomment a value to enable it. CLI flags override config values,
# environment variables (%s, %s, %s) override the file.

[practice]
# mode = %q          # "match" or "countdown"
# duration = %d             # Countdown length in seconds
# fallback-words = %d       # Words in the offline prompt
# caps = %.1f               # Capitalisation probability for offline words (0-1)
# punct = %.1f              # Punctuation probability for offline words (0-1)
# punct-set = %q
# seed = 1                  # Seed for the offline prompt

[articles]
# guardian-key = ""
# endpoint = %q
# page-size = %d
# max-words = %d
# min-chars = %d
# ttl = %q
# offline-wordlist = ""     # One word per line

[account]
# server-url = ""           # Use a newstype server instead of the local database

[server]
# addr = %q
# jwt-secret = ""           # Generated on first use when empty
# token-ttl = "24h"
# rate-limit = %d            # Result saves per minute per user
# rate-burst = %d
`,
		config.EnvGuardianKey,
		config.EnvServerURL,
		config.EnvJWTSecret,
		defaultMode,
		scorer.DefaultDurationSeconds,
		article.DefaultFallbackWords,
		defaultCaps,
		defaultPunct,
		defaultPunctSet,
		article.DefaultGuardianEndpoint,
		article.DefaultPageSize,
		article.DefaultMaxWords,
		article.DefaultMinChars,
		article.DefaultTTL.String(),
		server.DefaultAddr,
		server.DefaultRateLimit,
		server.DefaultRateLimit,
	)
}
