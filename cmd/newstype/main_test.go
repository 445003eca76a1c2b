package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/auth"
	"github.com/verte-zerg/newstype/internal/config"
	"github.com/verte-zerg/newstype/internal/generator"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/server"
	"github.com/verte-zerg/newstype/internal/store"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(config.EnvServerURL, "")
	t.Setenv(config.EnvJWTSecret, "test_secret")
	t.Setenv(config.EnvGuardianKey, "")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestValidatePractice(t *testing.T) {
	tests := []struct {
		mode     string
		duration int
		ok       bool
	}{
		{"match", 30, true},
		{"countdown", 1, true},
		{"sprint", 30, false},
		{"countdown", 0, false},
	}
	for _, tt := range tests {
		err := validatePractice(tt.mode, tt.duration)
		if (err == nil) != tt.ok {
			t.Fatalf("validatePractice(%q, %d) = %v", tt.mode, tt.duration, err)
		}
	}
}

func TestConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := writeConfigTemplate(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("commented template must decode: %v", err)
	}
	if cfg.Practice.Mode != nil {
		t.Fatalf("expected commented values to stay unset")
	}

	uncomment := regexp.MustCompile(`(?m)^# ([a-z-]+ = )`)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(path, uncomment.ReplaceAll(data, []byte("$1")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = config.LoadConfig(path)
	if err != nil {
		t.Fatalf("uncommented template must decode: %v", err)
	}
	if cfg.Practice.Mode == nil || *cfg.Practice.Mode != "match" {
		t.Fatalf("unexpected mode: %v", cfg.Practice.Mode)
	}
	if cfg.Practice.Duration == nil || *cfg.Practice.Duration != 30 {
		t.Fatalf("unexpected duration: %v", cfg.Practice.Duration)
	}
	ttl, err := config.Duration(cfg.Articles.TTL, 0)
	if err != nil || ttl != article.DefaultTTL {
		t.Fatalf("unexpected ttl: %v %v", ttl, err)
	}
	if cfg.Server.RateLimit == nil || *cfg.Server.RateLimit != server.DefaultRateLimit {
		t.Fatalf("unexpected rate limit: %v", cfg.Server.RateLimit)
	}
}

func TestWriteConfigTemplateKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("[practice]\nmode = \"countdown\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writeConfigTemplate(path); err != nil {
		t.Fatalf("template: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `mode = "countdown"`) {
		t.Fatalf("existing config overwritten: %s", data)
	}
}

func TestLocalAccountFlow(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "whoami")
	if err != nil || !strings.Contains(out, "Not signed in") {
		t.Fatalf("whoami before signup: %q %v", out, err)
	}

	out, err = run(t, "hunter22\n", "signup", "--email", "ada@example.com", "--name", "Ada")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if !strings.Contains(out, "Signed in as Ada <ada@example.com>") || !strings.Contains(out, "this computer") {
		t.Fatalf("unexpected signup output: %q", out)
	}

	out, err = run(t, "", "whoami")
	if err != nil || !strings.Contains(out, "Ada <ada@example.com>") {
		t.Fatalf("whoami after signup: %q %v", out, err)
	}

	out, err = run(t, "", "history")
	if err != nil || !strings.Contains(out, "No tests found.") {
		t.Fatalf("history: %q %v", out, err)
	}
	out, err = run(t, "", "stats", "--plain")
	if err != nil || !strings.Contains(out, "No tests found.") {
		t.Fatalf("stats: %q %v", out, err)
	}

	if _, err := run(t, "", "signout"); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, err := run(t, "", "history"); err == nil {
		t.Fatalf("expected history to require sign-in")
	}

	_, err = run(t, "ada@example.com\nwrong-password\n", "signin")
	if err == nil || err.Error() != "invalid email or password" {
		t.Fatalf("expected credential error, got %v", err)
	}
	out, err = run(t, "ada@example.com\nhunter22\n", "signin")
	if err != nil || !strings.Contains(out, "Signed in as Ada") {
		t.Fatalf("signin: %q %v", out, err)
	}
}

func TestStaleLocalSessionIsCleared(t *testing.T) {
	isolate(t)
	session := auth.NewContext(config.DefaultSessionPath())
	if err := session.Set(model.Identity{UserID: "u", DisplayName: "Ghost"}, "forged"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := run(t, "", "history"); err == nil {
		t.Fatalf("expected forged session to be dropped")
	}
	out, _ := run(t, "", "whoami")
	if !strings.Contains(out, "Not signed in") {
		t.Fatalf("expected signed out, got %q", out)
	}
}

func TestArticlesCommandsLocal(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "articles", "status")
	if err != nil || !strings.Contains(out, "Articles: 0 (0 expired)") {
		t.Fatalf("status: %q %v", out, err)
	}
	out, err = run(t, "", "articles", "cleanup")
	if err != nil || !strings.Contains(out, "Deleted 0 expired articles.") {
		t.Fatalf("cleanup: %q %v", out, err)
	}
	_, err = run(t, "", "articles", "preload")
	var unavailable *article.ProviderUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected missing key to be reported, got %v", err)
	}
}

type fakeRefiller struct{ calls int }

func (f *fakeRefiller) Refill(context.Context) error {
	f.calls++
	return nil
}

func TestLocalArticles(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "articles.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = st.Close() }()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := t.Context()
	for _, a := range []model.Article{
		{ID: "old", Title: "Old", Words: []string{"a"}, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "new", Title: "New", Words: []string{"b"}, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if _, err := st.UpsertArticle(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	refiller := &fakeRefiller{}
	admin := &localArticles{store: st, refiller: refiller, now: func() time.Time { return now }}

	status, err := admin.ArticleStatus(ctx)
	if err != nil || status.Total != 2 || status.Expired != 1 {
		t.Fatalf("status: %+v %v", status, err)
	}
	if n, err := admin.CleanupArticles(ctx); err != nil || n != 1 {
		t.Fatalf("cleanup: %d %v", n, err)
	}
	if n, err := admin.ResetArticles(ctx); err != nil || n != 1 {
		t.Fatalf("reset: %d %v", n, err)
	}
	if err := admin.PreloadArticles(ctx); err != nil || refiller.calls != 1 {
		t.Fatalf("preload: %d %v", refiller.calls, err)
	}
}

func TestRemoteAccountFlow(t *testing.T) {
	isolate(t)
	gin.SetMode(gin.TestMode)
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	accounts, err := auth.NewService(st, auth.Options{Secret: []byte("server_secret")})
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	offline := article.NewOffline(nil, 0, generator.Options{})
	srv := server.New(server.Deps{Results: st, Articles: offline, Cache: st, Accounts: accounts},
		server.Options{Logger: slog.New(slog.DiscardHandler)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	out, err := run(t, "hunter22\n", "--server-url", ts.URL+"/", "signup", "--email", "bo@example.com")
	if err != nil {
		t.Fatalf("remote signup: %v", err)
	}
	if !strings.Contains(out, "Signed in as bo <bo@example.com>") || !strings.Contains(out, "the server") {
		t.Fatalf("unexpected output: %q", out)
	}

	id, ok := mustSession(t).Current()
	if !ok {
		t.Fatalf("expected stored identity")
	}
	if _, err := st.SaveResult(t.Context(), id.UserID, model.TestRecord{
		ArticleTitle: "Remote headline", WPM: 51, Accuracy: 97, TimeSpentSeconds: 20,
		Mode: model.ModeMatch, CompletedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err = run(t, "", "--server-url", ts.URL, "history")
	if err != nil || !strings.Contains(out, "Remote headline") {
		t.Fatalf("remote history: %q %v", out, err)
	}
	out, err = run(t, "", "--server-url", ts.URL, "stats", "--plain")
	if err != nil || !strings.Contains(out, "Avg WPM: 51") {
		t.Fatalf("remote stats: %q %v", out, err)
	}
}

func mustSession(t *testing.T) *auth.Context {
	t.Helper()
	session, err := auth.LoadContext(config.DefaultSessionPath())
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return session
}
