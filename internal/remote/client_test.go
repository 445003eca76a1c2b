package remote

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/auth"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/server"
	"github.com/verte-zerg/newstype/internal/store"
)

type fixedProvider struct{}

func (fixedProvider) GetPrompt(_ context.Context, exclude []string) (model.Prompt, error) {
	if len(exclude) > 0 {
		return model.Prompt{}, article.ErrNotFound
	}
	return model.Prompt{ID: "a1", Title: "Headline", Source: "The Guardian", Content: []string{"hello", "world"}}, nil
}

func newAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	accounts, err := auth.NewService(st, auth.Options{Secret: []byte("test_secret")})
	require.NoError(t, err)
	srv := server.New(server.Deps{Results: st, Articles: fixedProvider{}, Cache: st, Accounts: accounts}, server.Options{Logger: slog.New(slog.DiscardHandler)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestRoundTripAgainstServer(t *testing.T) {
	url := newAPI(t)
	session := auth.NewContext("")
	c := New(url, session)

	id, token, err := c.SignUp(t.Context(), "reader@example.com", "hunter22", "Reader")
	require.NoError(t, err)
	require.NoError(t, session.Set(id, token))

	_, _, err = c.SignUp(t.Context(), "reader@example.com", "hunter22", "Reader")
	require.ErrorIs(t, err, auth.ErrAuth)
	_, _, err = c.SignIn(t.Context(), "reader@example.com", "wrong-one")
	require.ErrorIs(t, err, auth.ErrAuth)

	saved, err := c.SaveResult(t.Context(), id.UserID, model.TestRecord{
		Topic: "The Guardian", ArticleTitle: "Headline", WPM: 30, Accuracy: 100, TimeSpentSeconds: 6,
		Mode: model.ModeMatch, CompletedAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, id.UserID, saved.UserID)

	records, err := c.ListResults(t.Context(), id.UserID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 30, records[0].WPM)

	stats, err := c.GetStats(t.Context(), id.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Count: 1, MeanWPM: 30, MeanAccuracy: 100, TotalTime: 6}, stats)

	status, err := c.ArticleStatus(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, status.Total)
	n, err := c.CleanupArticles(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveResultWithoutCredential(t *testing.T) {
	c := New(newAPI(t), auth.NewContext(""))
	_, err := c.SaveResult(t.Context(), "u", model.TestRecord{WPM: 1})
	var se *store.StoreError
	require.ErrorAs(t, err, &se)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestSaveResultRejectedCredential(t *testing.T) {
	session := auth.NewContext("")
	require.NoError(t, session.Set(model.Identity{UserID: "u"}, "forged"))
	c := New(newAPI(t), session)
	_, err := c.SaveResult(t.Context(), "u", model.TestRecord{WPM: 1})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestGetPrompt(t *testing.T) {
	c := New(newAPI(t), nil)
	p, err := c.GetPrompt(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, "a1", p.ID)
	assert.Equal(t, []string{"hello", "world"}, p.Content)

	_, err = c.GetPrompt(t.Context(), []string{"a1"})
	require.ErrorIs(t, err, article.ErrNotFound)
}

func TestGetPromptNormalizesSummary(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a,b", r.URL.Query().Get("viewed"))
		_, _ = w.Write([]byte(`{"id":"s1","title":"Summary","source":"Wire","summary":"<p>Rates&nbsp;held   steady</p>"}`))
	}))
	defer ts.Close()

	p, err := New(ts.URL, nil).GetPrompt(t.Context(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rates", "held", "steady"}, p.Content)
}

func TestGetPromptUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := New(ts.URL, nil).GetPrompt(t.Context(), nil)
	var unavailable *article.ProviderUnavailableError
	require.ErrorAs(t, err, &unavailable)
}
