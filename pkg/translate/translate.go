// Package translate builds the domain.Translator used by the relay from
// backend settings, and provides decorators shared by every backend.
package translate

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate/anthropic"
	"github.com/fpt/polyglot/pkg/translate/gemini"
	"github.com/fpt/polyglot/pkg/translate/ollama"
	"github.com/fpt/polyglot/pkg/translate/openai"
)

// DefaultTimeout bounds a single translator call.
const DefaultTimeout = 20 * time.Second

// Backends lists the accepted backend names.
var Backends = []string{"anthropic", "openai", "gemini", "ollama"}

// Settings selects and tunes a backend.
type Settings struct {
	Backend   string
	Model     string
	MaxTokens int
	BaseURL   string
	Timeout   time.Duration
}

// New creates the translator for settings, wrapped with the per-call timeout.
func New(ctx context.Context, s Settings) (domain.Translator, error) {
	var (
		tr  domain.Translator
		err error
	)
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case "", "anthropic", "claude":
		tr, err = anthropic.New(anthropic.Config{Model: s.Model, MaxTokens: s.MaxTokens, BaseURL: s.BaseURL})
	case "openai":
		tr, err = openai.New(openai.Config{Model: s.Model, MaxTokens: s.MaxTokens, BaseURL: s.BaseURL})
	case "gemini":
		tr, err = gemini.New(ctx, gemini.Config{Model: s.Model, MaxTokens: s.MaxTokens, BaseURL: s.BaseURL})
	case "ollama":
		tr, err = ollama.New(ollama.Config{Model: s.Model, MaxTokens: s.MaxTokens, BaseURL: s.BaseURL})
	default:
		return nil, errors.Errorf("unknown translator backend %q (want one of %s)", s.Backend, strings.Join(Backends, ", "))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "create %s translator", s.Backend)
	}
	return WithTimeout(tr, s.Timeout), nil
}

// WithTimeout bounds every call to tr by d. A non-positive d uses DefaultTimeout.
func WithTimeout(tr domain.Translator, d time.Duration) domain.Translator {
	if d <= 0 {
		d = DefaultTimeout
	}
	return domain.TranslatorFunc(func(ctx context.Context, text string, source, target domain.Tag) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		out, err := tr.Translate(ctx, text, source, target)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.Wrapf(context.DeadlineExceeded, "translation to %s timed out after %s", target, d)
		}
		return out, err
	})
}
