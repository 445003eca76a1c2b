package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/submit"
	"github.com/verte-zerg/newstype/internal/tui"
)

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "mode", &practiceMode, cfg.Practice.Mode)
	applyIntConfig(cmd, "duration", &practiceDuration, cfg.Practice.Duration)
	if err := validatePractice(practiceMode, practiceDuration); err != nil {
		return err
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

	offline := offlineProvider(cfg, logger)
	var provider article.Provider = offline
	if !practiceOffline {
		provider = article.WithFallback(be.articles, offline, logger)
	}

	submitter := &submit.Submitter{
		Store:    be.results,
		Identity: be.session,
		Logger:   logger,
	}
	m := tui.NewModel(tui.Options{
		Provider:        provider,
		Submitter:       submitter,
		Identity:        be.session,
		Account:         be.session,
		Stats:           be.results,
		Mode:            model.Mode(practiceMode),
		DurationSeconds: practiceDuration,
		Logger:          logger,
	})
	defer m.Close()
	logger.Info("practice started", "mode", practiceMode, "remote", be.remote, "offline", practiceOffline)
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := program.Run()
	// Let the last save finish before the database closes.
	submitter.Wait()
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}
