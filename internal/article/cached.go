package article

import (
	"context"
	"log/slog"
	"time"

	"github.com/verte-zerg/newstype/internal/model"
)

// DefaultTTL is how long fetched articles stay in the cache.
const DefaultTTL = 6 * time.Hour

type articleStore interface {
	UpsertArticle(ctx context.Context, a model.Article) (model.Article, error)
	ListFreshArticles(ctx context.Context, now time.Time, exclude []string) ([]model.Article, error)
}

// Fetcher returns a batch of upstream articles.
type Fetcher interface {
	FetchArticles(ctx context.Context) ([]model.Article, error)
}

// Cached serves articles from the store and refills it from upstream once
// every fresh article has been excluded.
type Cached struct {
	store    articleStore
	upstream Fetcher
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	pick     func(int) int
}

// NewCached wraps upstream with a store-backed cache.
func NewCached(store articleStore, upstream Fetcher, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		store:    store,
		upstream: upstream,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// GetPrompt returns a cached article not in exclude, fetching a fresh batch
// when the cache has none left.
func (c *Cached) GetPrompt(ctx context.Context, exclude []string) (model.Prompt, error) {
	now := c.now()
	fresh, err := c.store.ListFreshArticles(ctx, now, exclude)
	if err != nil {
		c.logger.Warn("article cache read failed", "error", err)
	}
	if a, ok := pickArticle(fresh, nil, c.pick); ok {
		return a.Prompt(), nil
	}

	if err := c.Refill(ctx); err != nil {
		return model.Prompt{}, err
	}
	fresh, err = c.store.ListFreshArticles(ctx, now, nil)
	if err != nil {
		return model.Prompt{}, err
	}
	a, ok := pickArticle(fresh, exclude, c.pick)
	if !ok {
		return model.Prompt{}, ErrNotFound
	}
	return a.Prompt(), nil
}

// Refill fetches a batch from upstream and caches every article with the
// configured ttl.
func (c *Cached) Refill(ctx context.Context) error {
	articles, err := c.upstream.FetchArticles(ctx)
	if err != nil {
		return err
	}
	now := c.now()
	stored := 0
	for _, a := range articles {
		a.CreatedAt = now
		a.ExpiresAt = now.Add(c.ttl)
		if _, err := c.store.UpsertArticle(ctx, a); err != nil {
			c.logger.Warn("article cache write failed", "id", a.ID, "error", err)
			continue
		}
		stored++
	}
	c.logger.Info("article cache refilled", "fetched", len(articles), "stored", stored)
	return nil
}
