package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"
)

const identityKey = "identity"

func logRequests(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		c.Next()
		l.Info("request received",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(t),
			"ip", c.ClientIP(),
			"agent", c.Request.UserAgent())
	}
}

func recoverPanics(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				l.Error("internal server error",
					"error", err,
					"method", c.Request.Method,
					"url", c.Request.URL.String(),
					"remote_addr", c.ClientIP(),
					"stack_trace", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

func noStore() gin.HandlerFunc {
	return cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := s.accounts.Verify(c.GetHeader("Authorization"))
		if err != nil {
			s.logger.Warn("rejected credential", "path", c.Request.URL.Path, "ip", c.ClientIP(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// limiters hands out one token bucket per key.
type limiters struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func newLimiters(perMinute, burst int) *limiters {
	if perMinute <= 0 {
		perMinute = DefaultRateLimit
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &limiters{
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.buckets[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.every, l.burst)
	l.buckets[key] = lim
	return lim
}

// rateLimit keys on the signed-in user, falling back to the client ip.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id, ok := identityFrom(c); ok {
			key = id.UserID
		}
		if !s.limiters.get(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
