// Package remote talks to a newstype API server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/auth"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/store"
	"github.com/verte-zerg/newstype/internal/wordlist"
)

// Credentials supplies the bearer credential for authorized calls.
type Credentials interface {
	IssueCredential() (string, error)
}

// Client is an HTTP client for the newstype API. It serves as both a
// result store and an article provider.
type Client struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, authorized bool, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		if c.creds == nil {
			return auth.ErrUnauthenticated
		}
		token, err := c.creds.IssueCredential()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort close for response body.
			_ = cerr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		se := &statusError{Code: resp.StatusCode, Message: e.Error}
		if resp.StatusCode == http.StatusUnauthorized && authorized {
			return fmt.Errorf("%w: %v", auth.ErrUnauthenticated, se)
		}
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type authRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

// SignUp creates an account on the server.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (model.Identity, string, error) {
	return c.authenticate(ctx, "/api/auth/signup", authRequest{Email: email, Password: password, DisplayName: displayName})
}

// SignIn exchanges credentials for a bearer token.
func (c *Client) SignIn(ctx context.Context, email, password string) (model.Identity, string, error) {
	return c.authenticate(ctx, "/api/auth/signin", authRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body authRequest) (model.Identity, string, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, path, false, body, &resp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusBadRequest || se.Code == http.StatusConflict) {
			return model.Identity{}, "", fmt.Errorf("%w: %s", auth.ErrAuth, se.Message)
		}
		return model.Identity{}, "", err
	}
	return resp.User, resp.Token, nil
}

type saveRequest struct {
	Topic            string     `json:"topic"`
	ArticleTitle     string     `json:"article_title"`
	WPM              int        `json:"wpm"`
	Accuracy         int        `json:"accuracy"`
	TimeSpentSeconds int        `json:"time"`
	Mode             model.Mode `json:"mode"`
	CompletedAt      time.Time  `json:"completed_at"`
}

type saveResponse struct {
	Success bool             `json:"success"`
	Test    model.TestRecord `json:"test"`
}

// SaveResult posts a result. The server takes the user from the credential.
func (c *Client) SaveResult(ctx context.Context, _ string, rec model.TestRecord) (model.TestRecord, error) {
	var saved saveResponse
	err := c.do(ctx, http.MethodPost, "/api/tests", true, saveRequest{
		Topic:            rec.Topic,
		ArticleTitle:     rec.ArticleTitle,
		WPM:              rec.WPM,
		Accuracy:         rec.Accuracy,
		TimeSpentSeconds: rec.TimeSpentSeconds,
		Mode:             rec.Mode,
		CompletedAt:      rec.CompletedAt,
	}, &saved)
	if err != nil {
		return model.TestRecord{}, &store.StoreError{Op: "save result", Err: err}
	}
	return saved.Test, nil
}

type historyResponse struct {
	Tests []model.TestRecord `json:"tests"`
}

// ListResults returns the caller's newest results first.
func (c *Client) ListResults(ctx context.Context, _ string, limit int) ([]model.TestRecord, error) {
	path := "/api/tests/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, path, true, nil, &resp); err != nil {
		return nil, &store.StoreError{Op: "list results", Err: err}
	}
	return resp.Tests, nil
}

// GetStats returns the caller's aggregate statistics.
func (c *Client) GetStats(ctx context.Context, _ string) (model.Stats, error) {
	var stats model.Stats
	if err := c.do(ctx, http.MethodGet, "/api/tests/stats", true, nil, &stats); err != nil {
		return model.Stats{}, &store.StoreError{Op: "get stats", Err: err}
	}
	return stats, nil
}

// newsResponse accepts both the word array and the summary text shape.
type newsResponse struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Source  string   `json:"source"`
	Words   []string `json:"words"`
	Summary string   `json:"summary"`
	URL     string   `json:"url"`
}

// GetPrompt fetches an article the caller has not seen yet.
func (c *Client) GetPrompt(ctx context.Context, exclude []string) (model.Prompt, error) {
	path := "/api/news"
	if len(exclude) > 0 {
		path += "?viewed=" + url.QueryEscape(strings.Join(exclude, ","))
	}
	var resp newsResponse
	if err := c.do(ctx, http.MethodGet, path, false, nil, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return model.Prompt{}, article.ErrNotFound
		}
		return model.Prompt{}, &article.ProviderUnavailableError{Provider: "newstype server", Err: err}
	}
	return model.Prompt{
		ID:      resp.ID,
		Title:   resp.Title,
		Source:  resp.Source,
		Content: wordlist.Normalize(resp.Words, resp.Summary, 0),
		URL:     resp.URL,
	}, nil
}

type deletedResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted_count"`
}

// ArticleStatus reports the server's article cache.
func (c *Client) ArticleStatus(ctx context.Context) (model.ArticleStatus, error) {
	var status model.ArticleStatus
	if err := c.do(ctx, http.MethodGet, "/api/articles/status", true, nil, &status); err != nil {
		return model.ArticleStatus{}, err
	}
	return status, nil
}

// CleanupArticles removes expired articles on the server.
func (c *Client) CleanupArticles(ctx context.Context) (int64, error) {
	var resp deletedResponse
	if err := c.do(ctx, http.MethodPost, "/api/articles/cleanup", true, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// ResetArticles empties the server's article cache.
func (c *Client) ResetArticles(ctx context.Context) (int64, error) {
	var resp deletedResponse
	if err := c.do(ctx, http.MethodPost, "/api/articles/reset", true, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// PreloadArticles asks the server to refill its article cache.
func (c *Client) PreloadArticles(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/articles/preload", true, nil, nil)
}
