// Package submit persists completed practice results in the background.
package submit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/scorer"
)

// DefaultTimeout bounds one background save.
const DefaultTimeout = 10 * time.Second

// ResultStore persists test records for a user.
type ResultStore interface {
	SaveResult(ctx context.Context, userID string, rec model.TestRecord) (model.TestRecord, error)
}

// IdentitySource reports the signed-in identity.
type IdentitySource interface {
	Current() (model.Identity, bool)
}

// Outcome describes a finished background save.
type Outcome struct {
	Record model.TestRecord
	Err    error
}

// Submitter hands completed sessions to a ResultStore without blocking the
// caller. Each session is submitted at most once and failures are never
// retried.
type Submitter struct {
	Store    ResultStore
	Identity IdentitySource
	Timeout  time.Duration
	Observer func(Outcome)
	Logger   *slog.Logger

	wg sync.WaitGroup
}

// Submit claims the result of a completed session and saves it in the
// background. It reports whether a save was started.
func (s *Submitter) Submit(session *scorer.Session) bool {
	if session == nil || s.Store == nil {
		return false
	}
	result, ok := session.ClaimResult()
	if !ok {
		return false
	}
	if s.Identity == nil {
		return false
	}
	identity, ok := s.Identity.Current()
	if !ok {
		return false
	}

	rec := Record(session, result)
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		saved, err := s.Store.SaveResult(ctx, identity.UserID, rec)
		if err != nil {
			logger.Error("failed to save result", "user", identity.UserID, "title", rec.ArticleTitle, "error", err)
			saved = rec
		} else {
			logger.Info("result saved", "id", saved.ID, "wpm", saved.WPM, "accuracy", saved.Accuracy)
		}
		if s.Observer != nil {
			s.Observer(Outcome{Record: saved, Err: err})
		}
	}()
	return true
}

// Wait blocks until every started save has finished.
func (s *Submitter) Wait() {
	s.wg.Wait()
}

// Record builds the persisted summary of a completed session.
func Record(session *scorer.Session, result model.Result) model.TestRecord {
	prompt := session.Prompt()
	completedAt, ok := session.CompletedAt()
	if !ok {
		completedAt = time.Now()
	}
	return model.TestRecord{
		Topic:            prompt.Source,
		ArticleTitle:     prompt.Title,
		WPM:              result.WPM,
		Accuracy:         result.Accuracy,
		TimeSpentSeconds: result.TimeSpentSeconds,
		Mode:             session.Mode(),
		CompletedAt:      completedAt,
	}
}
