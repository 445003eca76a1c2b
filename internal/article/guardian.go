package article

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/wordlist"
)

// Guardian defaults.
const (
	DefaultGuardianEndpoint = "https://content.guardianapis.com"
	DefaultPageSize         = 20
	DefaultMaxWords         = 80
	DefaultMinChars         = 100

	guardianSource = "The Guardian"
	maxChars       = 1000
	userAgent      = "newstype/1.0"
)

// GuardianOptions configures the Guardian content API adapter.
type GuardianOptions struct {
	Endpoint string
	APIKey   string
	PageSize int
	MaxWords int
	MinChars int
	Client   *http.Client
}

// Guardian fetches recent articles from the Guardian content API.
type Guardian struct {
	endpoint string
	apiKey   string
	pageSize int
	maxWords int
	minChars int
	client   *http.Client
	pick     func(int) int
}

// NewGuardian builds a Guardian adapter, filling unset options with defaults.
func NewGuardian(opts GuardianOptions) *Guardian {
	g := &Guardian{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		apiKey:   opts.APIKey,
		pageSize: opts.PageSize,
		maxWords: opts.MaxWords,
		minChars: opts.MinChars,
		client:   opts.Client,
	}
	if g.endpoint == "" {
		g.endpoint = DefaultGuardianEndpoint
	}
	if g.pageSize <= 0 {
		g.pageSize = DefaultPageSize
	}
	if g.maxWords <= 0 {
		g.maxWords = DefaultMaxWords
	}
	if g.minChars <= 0 {
		g.minChars = DefaultMinChars
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 15 * time.Second}
	}
	return g
}

type guardianResponse struct {
	Response struct {
		Status  string           `json:"status"`
		Results []guardianResult `json:"results"`
	} `json:"response"`
}

type guardianResult struct {
	ID       string `json:"id"`
	WebTitle string `json:"webTitle"`
	WebURL   string `json:"webUrl"`
	Fields   struct {
		Body      string `json:"body"`
		Headline  string `json:"headline"`
		TrailText string `json:"trailText"`
	} `json:"fields"`
}

// GetPrompt returns a random recent article not listed in exclude.
func (g *Guardian) GetPrompt(ctx context.Context, exclude []string) (model.Prompt, error) {
	articles, err := g.FetchArticles(ctx)
	if err != nil {
		return model.Prompt{}, err
	}
	a, ok := pickArticle(articles, exclude, g.pick)
	if !ok {
		return model.Prompt{}, ErrNotFound
	}
	return a.Prompt(), nil
}

// FetchArticles returns every usable article of the newest result page.
func (g *Guardian) FetchArticles(ctx context.Context) ([]model.Article, error) {
	if g.apiKey == "" {
		return nil, &ProviderUnavailableError{Provider: "guardian", Err: errors.New("api key is not configured")}
	}

	resp, err := g.request(ctx)
	if err != nil {
		return nil, &ProviderUnavailableError{Provider: "guardian", Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort close for response body.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderUnavailableError{Provider: "guardian", Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	var payload guardianResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderUnavailableError{Provider: "guardian", Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Response.Status != "ok" {
		return nil, &ProviderUnavailableError{Provider: "guardian", Err: fmt.Errorf("response status %q", payload.Response.Status)}
	}

	var articles []model.Article
	for _, r := range payload.Response.Results {
		a, ok := g.convert(r)
		if ok {
			articles = append(articles, a)
		}
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}
	return articles, nil
}

func (g *Guardian) request(ctx context.Context) (*http.Response, error) {
	query := url.Values{}
	query.Set("api-key", g.apiKey)
	query.Set("show-fields", "body,headline,trailText")
	query.Set("page-size", strconv.Itoa(g.pageSize))
	query.Set("order-by", "newest")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/search?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (g *Guardian) convert(r guardianResult) (model.Article, bool) {
	raw := r.Fields.Body
	if raw == "" {
		raw = r.Fields.TrailText
	}
	if raw == "" {
		raw = r.Fields.Headline
	}
	text := wordlist.CleanText(raw)
	if len([]rune(text)) < g.minChars {
		return model.Article{}, false
	}
	if runes := []rune(text); len(runes) > maxChars {
		text = string(runes[:maxChars])
	}
	words := wordlist.Words(text, g.maxWords)
	if len(words) == 0 {
		return model.Article{}, false
	}

	title := r.Fields.Headline
	if title == "" {
		title = r.WebTitle
	}
	if title == "" {
		title = "Untitled"
	}
	return model.Article{
		ID:     r.ID,
		Title:  title,
		Source: guardianSource,
		URL:    r.WebURL,
		Words:  words,
	}, true
}
