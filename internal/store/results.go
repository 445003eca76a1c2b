package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/verte-zerg/newstype/internal/model"
)

// SaveResult stores a completed test for userID and returns the stored record.
func (s *Store) SaveResult(ctx context.Context, userID string, rec model.TestRecord) (model.TestRecord, error) {
	if userID == "" {
		return model.TestRecord{}, &StoreError{Op: "save result", Err: errors.New("user id is required")}
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	if rec.Mode == "" {
		rec.Mode = model.ModeMatch
	}
	rec.UserID = userID
	rec.ID = s.newID(rec.CompletedAt)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO typing_tests (id, user_id, topic, article_title, wpm, accuracy, time_seconds, mode, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.Topic,
		rec.ArticleTitle,
		rec.WPM,
		rec.Accuracy,
		rec.TimeSpentSeconds,
		string(rec.Mode),
		formatTime(rec.CompletedAt),
	)
	if err != nil {
		return model.TestRecord{}, wrap("save result", err)
	}
	return rec, nil
}

// ListResults returns the newest results of userID first. limit <= 0 returns all.
func (s *Store) ListResults(ctx context.Context, userID string, limit int) ([]model.TestRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, topic, article_title, wpm, accuracy, time_seconds, mode, completed_at
		 FROM typing_tests
		 WHERE user_id = ?
		 ORDER BY completed_at DESC, id DESC
		 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, wrap("list results", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.TestRecord
	for rows.Next() {
		var rec model.TestRecord
		var mode, completedAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Topic, &rec.ArticleTitle, &rec.WPM, &rec.Accuracy, &rec.TimeSpentSeconds, &mode, &completedAt); err != nil {
			return nil, wrap("list results", err)
		}
		parsed, err := parseTime(completedAt)
		if err != nil {
			return nil, wrap("list results", err)
		}
		rec.Mode = model.Mode(mode)
		rec.CompletedAt = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list results", err)
	}
	return records, nil
}

// GetStats aggregates every result of userID.
func (s *Store) GetStats(ctx context.Context, userID string) (model.Stats, error) {
	var count int
	var sumWPM, sumAcc, sumTime int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(wpm), 0), COALESCE(SUM(accuracy), 0), COALESCE(SUM(time_seconds), 0)
		 FROM typing_tests WHERE user_id = ?`, userID).Scan(&count, &sumWPM, &sumAcc, &sumTime)
	if err != nil {
		return model.Stats{}, wrap("get stats", err)
	}
	if count == 0 {
		return model.Stats{}, nil
	}
	return model.Stats{
		Count:        count,
		MeanWPM:      int(math.Round(float64(sumWPM) / float64(count))),
		MeanAccuracy: int(math.Round(float64(sumAcc) / float64(count))),
		TotalTime:    int(sumTime),
	}, nil
}
