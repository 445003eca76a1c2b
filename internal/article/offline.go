package article

import (
	"context"
	"errors"
	"log/slog"

	"github.com/verte-zerg/newstype/internal/generator"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/wordlist"
)

// Offline prompt defaults.
const (
	DefaultFallbackWords = 30
	OfflineSeed          = 1

	offlineTitle  = "Offline practice"
	offlineSource = "offline"
)

// Offline builds the same prompt on every call from a local word list.
type Offline struct {
	words []string
	count int
	opts  generator.Options
	seed  int64
}

// NewOffline returns an offline provider. An empty word list uses the
// built-in fallback list.
func NewOffline(words []string, count int, opts generator.Options) *Offline {
	if len(words) == 0 {
		words = wordlist.Fallback
	}
	if count <= 0 {
		count = DefaultFallbackWords
	}
	return &Offline{words: words, count: count, opts: opts, seed: OfflineSeed}
}

// WithSeed replaces the fixed seed. Zero keeps the default.
func (o *Offline) WithSeed(seed int64) *Offline {
	if seed != 0 {
		o.seed = seed
	}
	return o
}

// GetPrompt ignores exclude; the offline prompt has no id.
func (o *Offline) GetPrompt(_ context.Context, _ []string) (model.Prompt, error) {
	content := generator.New(o.seed).Generate(o.words, o.count, o.opts)
	return model.Prompt{
		Title:   offlineTitle,
		Source:  offlineSource,
		Content: content,
		Offline: true,
	}, nil
}

// Fallback serves prompts from a primary provider and switches to an
// offline provider whenever the primary fails.
type Fallback struct {
	primary Provider
	offline Provider
	logger  *slog.Logger
}

// WithFallback wraps primary so that failures produce the offline prompt.
func WithFallback(primary, offline Provider, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, offline: offline, logger: logger}
}

func (f *Fallback) GetPrompt(ctx context.Context, exclude []string) (model.Prompt, error) {
	if f.primary != nil {
		p, err := f.primary.GetPrompt(ctx, exclude)
		switch {
		case err == nil && len(p.Content) > 0:
			return p, nil
		case errors.Is(err, context.Canceled):
			return model.Prompt{}, err
		case err == nil:
			f.logger.Warn("article provider returned empty prompt, using offline words", "id", p.ID)
		default:
			f.logger.Warn("article provider failed, using offline words", "error", err)
		}
	}
	p, err := f.offline.GetPrompt(ctx, exclude)
	if err != nil {
		return model.Prompt{}, err
	}
	p.Offline = true
	return p, nil
}
