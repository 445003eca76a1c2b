package article

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/newstype/internal/generator"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/store"
	"github.com/verte-zerg/newstype/internal/wordlist"
)

var longBody = "<p>" + strings.Repeat("Markets rallied &amp; investors cheered the news. ", 5) + "</p>"

func guardianServer(t *testing.T, results []map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api-key"))
		assert.Equal(t, "body,headline,trailText", r.URL.Query().Get("show-fields"))
		assert.Equal(t, "newest", r.URL.Query().Get("order-by"))
		assert.Equal(t, "newstype/1.0", r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"status": "ok", "results": results},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGuardianFetchArticles(t *testing.T) {
	srv := guardianServer(t, []map[string]any{
		{"id": "business/1", "webTitle": "Web title", "webUrl": "https://example.com/1", "fields": map[string]any{"body": longBody, "headline": "Markets rally"}},
		{"id": "business/2", "webTitle": "Too short", "fields": map[string]any{"trailText": "short"}},
		{"id": "business/3", "webTitle": "Trail only", "webUrl": "https://example.com/3", "fields": map[string]any{"trailText": longBody}},
	})

	g := NewGuardian(GuardianOptions{Endpoint: srv.URL, APIKey: "secret", MaxWords: 10})
	articles, err := g.FetchArticles(t.Context())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "business/1", articles[0].ID)
	assert.Equal(t, "Markets rally", articles[0].Title)
	assert.Equal(t, "The Guardian", articles[0].Source)
	assert.Len(t, articles[0].Words, 10)
	assert.Equal(t, []string{"Markets", "rallied", "investors"}, articles[0].Words[:3])

	assert.Equal(t, "Trail only", articles[1].Title)
}

func TestGuardianGetPromptSkipsExcluded(t *testing.T) {
	srv := guardianServer(t, []map[string]any{
		{"id": "a", "fields": map[string]any{"body": longBody}},
		{"id": "b", "fields": map[string]any{"body": longBody}},
	})
	g := NewGuardian(GuardianOptions{Endpoint: srv.URL, APIKey: "secret"})
	g.pick = func(int) int { return 0 }

	p, err := g.GetPrompt(t.Context(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "b", p.ID)
	assert.Equal(t, "Untitled", p.Title)
}

func TestGuardianErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewGuardian(GuardianOptions{}).FetchArticles(t.Context())
		var unavailable *ProviderUnavailableError
		require.ErrorAs(t, err, &unavailable)
	})

	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		_, err := NewGuardian(GuardianOptions{Endpoint: srv.URL, APIKey: "k"}).FetchArticles(t.Context())
		var unavailable *ProviderUnavailableError
		require.ErrorAs(t, err, &unavailable)
	})

	t.Run("no usable results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":{"status":"ok","results":[{"id":"x","fields":{"headline":"tiny"}}]}}`))
		}))
		defer srv.Close()
		_, err := NewGuardian(GuardianOptions{Endpoint: srv.URL, APIKey: "k"}).FetchArticles(t.Context())
		require.ErrorIs(t, err, ErrNotFound)
	})
}

type fakeFetcher struct {
	articles []model.Article
	err      error
	calls    int
}

func (f *fakeFetcher) FetchArticles(context.Context) ([]model.Article, error) {
	f.calls++
	return f.articles, f.err
}

func newCached(t *testing.T, upstream Fetcher) *Cached {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	c := NewCached(st, upstream, time.Hour, nil)
	c.pick = func(int) int { return 0 }
	return c
}

func TestCachedRefillsOnlyWhenExhausted(t *testing.T) {
	upstream := &fakeFetcher{articles: []model.Article{
		{ID: "a", Title: "A", Words: []string{"alpha"}},
		{ID: "b", Title: "B", Words: []string{"beta"}},
	}}
	c := newCached(t, upstream)

	first, err := c.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)

	second, err := c.GetPrompt(t.Context(), []string{first.ID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, upstream.calls)

	third, err := c.GetPrompt(t.Context(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
	assert.Contains(t, []string{"a", "b"}, third.ID)
}

func TestCachedExpiresArticles(t *testing.T) {
	upstream := &fakeFetcher{articles: []model.Article{{ID: "a", Words: []string{"alpha"}}}}
	c := newCached(t, upstream)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, err = c.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedPropagatesUpstreamFailure(t *testing.T) {
	cause := &ProviderUnavailableError{Provider: "guardian", Err: errors.New("down")}
	c := newCached(t, &fakeFetcher{err: cause})
	_, err := c.GetPrompt(t.Context(), nil)
	require.ErrorIs(t, err, cause)
}

type failingProvider struct{ err error }

func (f failingProvider) GetPrompt(context.Context, []string) (model.Prompt, error) {
	return model.Prompt{}, f.err
}

func TestFallbackServesDeterministicOfflinePrompt(t *testing.T) {
	offline := NewOffline(nil, 0, generator.Options{})
	p := WithFallback(failingProvider{err: &ProviderUnavailableError{Provider: "test", Err: errors.New("boom")}}, offline, nil)

	first, err := p.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	second, err := p.GetPrompt(t.Context(), []string{"x"})
	require.NoError(t, err)

	assert.True(t, first.Offline)
	assert.Equal(t, "Offline practice", first.Title)
	assert.Equal(t, "offline", first.Source)
	assert.Len(t, first.Content, DefaultFallbackWords)
	assert.Equal(t, first, second)
	for _, w := range first.Content {
		assert.Contains(t, wordlist.Fallback, w)
	}
}

func TestFallbackPassesThroughPrimary(t *testing.T) {
	primary := NewOffline([]string{"news"}, 3, generator.Options{})
	p := WithFallback(primaryOnly{primary}, NewOffline(nil, 0, generator.Options{}), nil)
	got, err := p.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	assert.False(t, got.Offline)
	assert.Equal(t, []string{"news", "news", "news"}, got.Content)
}

func TestFallbackKeepsCancellation(t *testing.T) {
	p := WithFallback(failingProvider{err: context.Canceled}, NewOffline(nil, 0, generator.Options{}), nil)
	_, err := p.GetPrompt(t.Context(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

// primaryOnly clears the offline flag so the wrapper sees a regular prompt.
type primaryOnly struct{ p Provider }

func (o primaryOnly) GetPrompt(ctx context.Context, exclude []string) (model.Prompt, error) {
	p, err := o.p.GetPrompt(ctx, exclude)
	p.Offline = false
	return p, err
}

func TestOfflineSeedChangesPrompt(t *testing.T) {
	base, err := NewOffline(nil, 0, generator.Options{}).GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	same, err := NewOffline(nil, 0, generator.Options{}).WithSeed(0).GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, base.Content, same.Content)

	seeded := NewOffline(nil, 0, generator.Options{}).WithSeed(42)
	first, err := seeded.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	second, err := seeded.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
}
