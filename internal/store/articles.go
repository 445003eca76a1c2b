package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/newstype/internal/model"
)

// UpsertArticle caches an article. An empty id is replaced by a fresh one.
func (s *Store) UpsertArticle(ctx context.Context, a model.Article) (model.Article, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	words, err := json.Marshal(a.Words)
	if err != nil {
		return model.Article{}, wrap("upsert article", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, source, url, words, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			url = excluded.url,
			words = excluded.words,
			expires_at = excluded.expires_at`,
		a.ID, a.Title, a.Source, a.URL, string(words), formatTime(a.CreatedAt), formatTime(a.ExpiresAt))
	if err != nil {
		return model.Article{}, wrap("upsert article", err)
	}
	return a, nil
}

// ListFreshArticles returns unexpired articles newest first, skipping exclude.
func (s *Store) ListFreshArticles(ctx context.Context, now time.Time, exclude []string) ([]model.Article, error) {
	clauses := []string{"expires_at >= ?"}
	args := []any{formatTime(now)}
	if len(exclude) > 0 {
		placeholders := make([]string, len(exclude))
		for i, id := range exclude {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("id NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	query := fmt.Sprintf(`SELECT id, title, source, url, words, created_at, expires_at
		FROM articles
		WHERE %s
		ORDER BY created_at DESC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list articles", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var words, createdAt, expiresAt string
		if err := rows.Scan(&a.ID, &a.Title, &a.Source, &a.URL, &words, &createdAt, &expiresAt); err != nil {
			return nil, wrap("list articles", err)
		}
		if err := json.Unmarshal([]byte(words), &a.Words); err != nil {
			return nil, wrap("list articles", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, wrap("list articles", err)
		}
		if a.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, wrap("list articles", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list articles", err)
	}
	return articles, nil
}

// ArticleStatus summarizes every cached article, newest first.
func (s *Store) ArticleStatus(ctx context.Context, now time.Time) (model.ArticleStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, words, created_at, expires_at FROM articles ORDER BY created_at DESC`)
	if err != nil {
		return model.ArticleStatus{}, wrap("article status", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	status := model.ArticleStatus{Items: []model.ArticleDigest{}}
	for rows.Next() {
		var d model.ArticleDigest
		var words, createdAt, expiresAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &words, &createdAt, &expiresAt); err != nil {
			return model.ArticleStatus{}, wrap("article status", err)
		}
		var list []string
		if err := json.Unmarshal([]byte(words), &list); err != nil {
			return model.ArticleStatus{}, wrap("article status", err)
		}
		d.WordCount = len(list)
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return model.ArticleStatus{}, wrap("article status", err)
		}
		if d.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return model.ArticleStatus{}, wrap("article status", err)
		}
		if d.ExpiresAt.Before(now) {
			status.Expired++
		}
		status.Items = append(status.Items, d)
	}
	if err := rows.Err(); err != nil {
		return model.ArticleStatus{}, wrap("article status", err)
	}
	status.Total = len(status.Items)
	return status, nil
}

// DeleteExpiredArticles removes articles that expired before now.
func (s *Store) DeleteExpiredArticles(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, wrap("delete expired articles", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("delete expired articles", err)
	}
	return n, nil
}

// DeleteAllArticles empties the article cache.
func (s *Store) DeleteAllArticles(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles`)
	if err != nil {
		return 0, wrap("delete articles", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("delete articles", err)
	}
	return n, nil
}
