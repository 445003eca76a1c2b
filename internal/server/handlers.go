package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/auth"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/store"
)

const maxHistoryLimit = 500

var errBadRequest = errors.New("bad request")

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func (e *badRequestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

func identityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}

// writeError maps domain errors to HTTP responses. Internal details only
// reach the log.
func (s *Server) writeError(c *gin.Context, err error) {
	var bad *badRequestError
	var unavailable *article.ProviderUnavailableError
	switch {
	case errors.As(err, &bad):
		c.JSON(http.StatusBadRequest, gin.H{"error": bad.msg})
	case errors.Is(err, article.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, auth.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": authMessage(err)})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.As(err, &unavailable):
		s.logger.Warn("article provider unavailable", "path", c.Request.URL.Path, "provider", unavailable.Provider, "error", unavailable.Err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news unavailable"})
	default:
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func authMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), auth.ErrAuth.Error()+": ")
	if msg == "" {
		return auth.ErrAuth.Error()
	}
	return msg
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": s.now().UTC()})
}

func (s *Server) handleNews(c *gin.Context) {
	viewed := lo.Compact(lo.Map(strings.Split(c.Query("viewed"), ","), func(id string, _ int) string {
		return strings.TrimSpace(id)
	}))
	p, err := s.articles.GetPrompt(c.Request.Context(), viewed)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body"))
		return
	}
	id, token, err := s.accounts.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token, User: id})
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body"))
		return
	}
	id, token, err := s.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: id})
}

type saveTestRequest struct {
	Topic            string     `json:"topic"`
	ArticleTitle     string     `json:"article_title"`
	WPM              int        `json:"wpm"`
	Accuracy         int        `json:"accuracy"`
	TimeSpentSeconds int        `json:"time"`
	Mode             model.Mode `json:"mode"`
	CompletedAt      time.Time  `json:"completed_at"`
}

func (r saveTestRequest) validate() error {
	switch {
	case r.WPM < 0:
		return badRequest("wpm must be >= 0")
	case r.Accuracy < 0 || r.Accuracy > 100:
		return badRequest("accuracy must be between 0 and 100")
	case r.TimeSpentSeconds < 0:
		return badRequest("time must be >= 0")
	case r.Mode != "" && !r.Mode.Valid():
		return badRequest("mode must be match or countdown")
	}
	return nil
}

func (s *Server) handleSaveTest(c *gin.Context) {
	id, _ := identityFrom(c)
	var req saveTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(c, err)
		return
	}
	completedAt := req.CompletedAt
	if completedAt.IsZero() || completedAt.After(s.now()) {
		completedAt = s.now()
	}
	saved, err := s.results.SaveResult(c.Request.Context(), id.UserID, model.TestRecord{
		Topic:            req.Topic,
		ArticleTitle:     req.ArticleTitle,
		WPM:              req.WPM,
		Accuracy:         req.Accuracy,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Mode:             req.Mode,
		CompletedAt:      completedAt,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "test": saved})
}

func (s *Server) handleHistory(c *gin.Context) {
	id, _ := identityFrom(c)
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			s.writeError(c, badRequest("limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	tests, err := s.results.ListResults(c.Request.Context(), id.UserID, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if tests == nil {
		tests = []model.TestRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests})
}

func (s *Server) handleStats(c *gin.Context) {
	id, _ := identityFrom(c)
	stats, err := s.results.GetStats(c.Request.Context(), id.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleArticleStatus(c *gin.Context) {
	status, err := s.cache.ArticleStatus(c.Request.Context(), s.now())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleArticleCleanup(c *gin.Context) {
	n, err := s.cache.DeleteExpiredArticles(c.Request.Context(), s.now())
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("expired articles removed", "count", n)
	c.JSON(http.StatusOK, gin.H{"message": "cleanup completed", "deleted_count": n})
}

func (s *Server) handleArticleReset(c *gin.Context) {
	n, err := s.cache.DeleteAllArticles(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("article cache reset", "count", n)
	c.JSON(http.StatusOK, gin.H{"message": "reset completed", "deleted_count": n})
}

func (s *Server) handleArticlePreload(c *gin.Context) {
	if s.refiller == nil {
		s.writeError(c, badRequest("article preloading is not configured"))
		return
	}
	if err := s.refiller.Refill(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	status, err := s.cache.ArticleStatus(c.Request.Context(), s.now())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preload completed", "total_articles": status.Total})
}
