// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Mode selects how a practice session completes.
type Mode string

const (
	// ModeMatch completes once the full prompt has been typed exactly.
	ModeMatch Mode = "match"
	// ModeCountdown completes when a fixed time budget runs out.
	ModeCountdown Mode = "countdown"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeMatch || m == ModeCountdown
}

// Config defines practice settings.
type Config struct {
	Mode            Mode
	DurationSeconds int
	FallbackWords   int
	CapsPct         float64
	PunctPct        float64
	PunctSet        string
	Seed            int64
}

// Prompt is the text offered for one practice attempt.
type Prompt struct {
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title"`
	Source  string   `json:"source"`
	Content []string `json:"words"`
	URL     string   `json:"url"`
	Offline bool     `json:"-"`
}

// Target returns the canonical match target: the words joined by single
// spaces followed by one trailing space.
func (p Prompt) Target() string {
	if len(p.Content) == 0 {
		return ""
	}
	return strings.Join(p.Content, " ") + " "
}

// Result holds the final metrics of a completed session.
type Result struct {
	WPM              int `json:"wpm"`
	Accuracy         int `json:"accuracy"`
	TimeSpentSeconds int `json:"time"`
}

// TestRecord is a persisted summary of one completed session.
type TestRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Topic            string    `json:"topic"`
	ArticleTitle     string    `json:"article_title"`
	WPM              int       `json:"wpm"`
	Accuracy         int       `json:"accuracy"`
	TimeSpentSeconds int       `json:"time"`
	Mode             Mode      `json:"mode"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Stats aggregates a user's test records.
type Stats struct {
	Count        int `json:"total_tests"`
	MeanWPM      int `json:"average_wpm"`
	MeanAccuracy int `json:"average_accuracy"`
	TotalTime    int `json:"total_time"`
}

// Identity identifies an authenticated user.
type Identity struct {
	UserID      string `json:"id" toml:"user-id"`
	DisplayName string `json:"display_name" toml:"display-name"`
	Email       string `json:"email" toml:"email"`
}

// Article is a cached upstream article.
type Article struct {
	ID        string
	Title     string
	Source    string
	URL       string
	Words     []string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Prompt converts a cached article into a practice prompt.
func (a Article) Prompt() Prompt {
	return Prompt{
		ID:      a.ID,
		Title:   a.Title,
		Source:  a.Source,
		Content: append([]string(nil), a.Words...),
		URL:     a.URL,
	}
}

// ArticleStatus summarizes the article cache.
type ArticleStatus struct {
	Total   int             `json:"total_articles"`
	Expired int             `json:"expired_articles"`
	Items   []ArticleDigest `json:"articles"`
}

// ArticleDigest is a one-line view of a cached article.
type ArticleDigest struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	WordCount int       `json:"word_count"`
}
