// Package server exposes the newstype HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/model"
)

// Server defaults.
const (
	DefaultAddr      = ":8080"
	DefaultRateLimit = 10

	shutdownTimeout = 10 * time.Second
)

// ResultStore persists and aggregates test results.
type ResultStore interface {
	SaveResult(ctx context.Context, userID string, rec model.TestRecord) (model.TestRecord, error)
	ListResults(ctx context.Context, userID string, limit int) ([]model.TestRecord, error)
	GetStats(ctx context.Context, userID string) (model.Stats, error)
}

// ArticleCache maintains cached articles.
type ArticleCache interface {
	ArticleStatus(ctx context.Context, now time.Time) (model.ArticleStatus, error)
	DeleteExpiredArticles(ctx context.Context, now time.Time) (int64, error)
	DeleteAllArticles(ctx context.Context) (int64, error)
}

// Refiller loads a fresh batch of upstream articles into the cache.
type Refiller interface {
	Refill(ctx context.Context) error
}

// Accounts signs users up and in and verifies bearer credentials.
type Accounts interface {
	SignUp(ctx context.Context, email, password, displayName string) (model.Identity, string, error)
	SignIn(ctx context.Context, email, password string) (model.Identity, string, error)
	Verify(token string) (model.Identity, error)
}

// Deps are the collaborators behind the API.
type Deps struct {
	Results  ResultStore
	Articles article.Provider
	Cache    ArticleCache
	Refiller Refiller
	Accounts Accounts
}

// Options tunes the server.
type Options struct {
	Addr      string
	RateLimit int
	RateBurst int
	Logger    *slog.Logger
}

// Server is the newstype API.
type Server struct {
	results  ResultStore
	articles article.Provider
	cache    ArticleCache
	refiller Refiller
	accounts Accounts

	addr     string
	logger   *slog.Logger
	limiters *limiters
	engine   *gin.Engine
	now      func() time.Time
}

// New builds the API and mounts every route.
func New(deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		results:  deps.Results,
		articles: deps.Articles,
		cache:    deps.Cache,
		refiller: deps.Refiller,
		accounts: deps.Accounts,
		addr:     addr,
		logger:   logger,
		limiters: newLimiters(opts.RateLimit, opts.RateBurst),
		now:      time.Now,
	}
	s.mount()
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) mount() {
	r := gin.New()
	r.Use(recoverPanics(s.logger), logRequests(s.logger))
	r.Use(ginGzip.Gzip(ginGzip.DefaultCompression))
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		s.logger.Warn("failed to set trusted proxies", "error", err)
	}

	r.GET("/health", s.handleHealth)

	api := r.Group("/api", noStore())
	api.GET("/news", s.handleNews)
	api.POST("/auth/signup", s.handleSignUp)
	api.POST("/auth/signin", s.handleSignIn)

	authed := api.Group("", s.requireAuth())
	authed.POST("/tests", s.rateLimit(), s.handleSaveTest)
	authed.GET("/tests/history", s.handleHistory)
	authed.GET("/tests/stats", s.handleStats)
	authed.GET("/articles/status", s.handleArticleStatus)
	authed.POST("/articles/cleanup", s.handleArticleCleanup)
	authed.POST("/articles/reset", s.handleArticleReset)
	authed.POST("/articles/preload", s.handleArticlePreload)

	s.engine = r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received, shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}
