// Package article supplies practice prompts from news sources.
package article

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/verte-zerg/newstype/internal/model"
)

// ErrNotFound is returned when a provider has no usable article.
var ErrNotFound = errors.New("no article found")

// ProviderUnavailableError reports that an article source could not be reached.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// Provider returns a prompt whose id is not in exclude whenever an
// alternative exists.
type Provider interface {
	GetPrompt(ctx context.Context, exclude []string) (model.Prompt, error)
}

// pickArticle chooses a random article, preferring ones not in exclude.
func pickArticle(articles []model.Article, exclude []string, pick func(int) int) (model.Article, bool) {
	if len(articles) == 0 {
		return model.Article{}, false
	}
	if pick == nil {
		pick = rand.IntN
	}
	candidates := lo.Filter(articles, func(a model.Article, _ int) bool {
		return !lo.Contains(exclude, a.ID)
	})
	if len(candidates) == 0 {
		candidates = articles
	}
	return candidates[pick(len(candidates))], true
}
