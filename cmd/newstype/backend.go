package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/auth"
	"github.com/verte-zerg/newstype/internal/config"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/remote"
	"github.com/verte-zerg/newstype/internal/store"
)

type accounts interface {
	SignUp(ctx context.Context, email, password, displayName string) (model.Identity, string, error)
	SignIn(ctx context.Context, email, password string) (model.Identity, string, error)
}

type resultStore interface {
	SaveResult(ctx context.Context, userID string, rec model.TestRecord) (model.TestRecord, error)
	ListResults(ctx context.Context, userID string, limit int) ([]model.TestRecord, error)
	GetStats(ctx context.Context, userID string) (model.Stats, error)
}

type articleAdmin interface {
	ArticleStatus(ctx context.Context) (model.ArticleStatus, error)
	CleanupArticles(ctx context.Context) (int64, error)
	ResetArticles(ctx context.Context) (int64, error)
	PreloadArticles(ctx context.Context) error
}

// backend is either the local SQLite database or a newstype server.
type backend struct {
	session  *auth.Context
	results  resultStore
	accounts accounts
	articles article.Provider
	admin    articleAdmin
	remote   bool
	closeFn  func()
}

func (b *backend) Close() {
	if b.closeFn != nil {
		b.closeFn()
	}
}

func openBackend(cmd *cobra.Command, cfg config.FileConfig, logger *slog.Logger) (*backend, error) {
	session, err := auth.LoadContext(config.DefaultSessionPath())
	if err != nil {
		return nil, err
	}
	if url := resolveServerURL(cmd, cfg); url != "" {
		client := remote.New(url, session)
		logger.Debug("using remote backend", "url", url)
		return &backend{
			session:  session,
			results:  client,
			accounts: client,
			articles: client,
			admin:    client,
			remote:   true,
		}, nil
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	closeFn := func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	svc, err := newAccountService(cfg, st)
	if err != nil {
		closeFn()
		return nil, err
	}
	dropStaleSession(session, svc, logger)
	cached, err := newCachedProvider(cfg, st, logger)
	if err != nil {
		closeFn()
		return nil, err
	}
	return &backend{
		session:  session,
		results:  st,
		accounts: svc,
		articles: cached,
		admin:    &localArticles{store: st, refiller: cached, now: time.Now},
		closeFn:  closeFn,
	}, nil
}

func newAccountService(cfg config.FileConfig, st *store.Store) (*auth.Service, error) {
	var secret []byte
	if s := cfg.Server.JWTSecret; s != nil && *s != "" {
		secret = []byte(*s)
	} else {
		generated, err := auth.LoadOrCreateSecret(config.DefaultSecretPath())
		if err != nil {
			return nil, err
		}
		secret = generated
	}
	ttl, err := config.Duration(cfg.Server.TokenTTL, auth.DefaultTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid [server] token-ttl: %w", err)
	}
	return auth.NewService(st, auth.Options{Secret: secret, TTL: ttl})
}

// dropStaleSession signs out a local session whose credential no longer
// verifies, e.g. after it expired or the secret changed.
func dropStaleSession(session *auth.Context, svc *auth.Service, logger *slog.Logger) {
	token, err := session.IssueCredential()
	if err != nil {
		return
	}
	if _, err := svc.Verify(token); err == nil {
		return
	}
	logger.Info("stored credential expired, signing out")
	if err := session.Clear(); err != nil {
		logger.Warn("failed to clear session", "error", err)
	}
}

func newCachedProvider(cfg config.FileConfig, st *store.Store, logger *slog.Logger) (*article.Cached, error) {
	a := cfg.Articles
	opts := article.GuardianOptions{}
	if a.GuardianKey != nil {
		opts.APIKey = *a.GuardianKey
	}
	if a.Endpoint != nil {
		opts.Endpoint = *a.Endpoint
	}
	if a.PageSize != nil {
		opts.PageSize = *a.PageSize
	}
	if a.MaxWords != nil {
		opts.MaxWords = *a.MaxWords
	}
	if a.MinChars != nil {
		opts.MinChars = *a.MinChars
	}
	ttl, err := config.Duration(a.TTL, article.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid [articles] ttl: %w", err)
	}
	return article.NewCached(st, article.NewGuardian(opts), ttl, logger), nil
}

type articleCache interface {
	ArticleStatus(ctx context.Context, now time.Time) (model.ArticleStatus, error)
	DeleteExpiredArticles(ctx context.Context, now time.Time) (int64, error)
	DeleteAllArticles(ctx context.Context) (int64, error)
}

// localArticles maintains the article cache in the local database.
type localArticles struct {
	store    articleCache
	refiller interface{ Refill(ctx context.Context) error }
	now      func() time.Time
}

func (l *localArticles) ArticleStatus(ctx context.Context) (model.ArticleStatus, error) {
	return l.store.ArticleStatus(ctx, l.now())
}

func (l *localArticles) CleanupArticles(ctx context.Context) (int64, error) {
	return l.store.DeleteExpiredArticles(ctx, l.now())
}

func (l *localArticles) ResetArticles(ctx context.Context) (int64, error) {
	return l.store.DeleteAllArticles(ctx)
}

func (l *localArticles) PreloadArticles(ctx context.Context) error {
	return l.refiller.Refill(ctx)
}
