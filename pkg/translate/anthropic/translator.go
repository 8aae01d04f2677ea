package anthropic

import (
	"context"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate/prompt"
)

const (
	DefaultModel     = "claude-haiku-4-5"
	defaultMaxTokens = 1024
)

// Config selects the model and endpoint. APIKey falls back to ANTHROPIC_API_KEY.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Translator translates through the Messages API with a plain-text prompt.
type Translator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

func New(cfg Config) (*Translator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Translator{client: &client, model: cfg.Model, maxTokens: cfg.MaxTokens}, nil
}

func (t *Translator) Model() string { return t.model }

func (t *Translator) Translate(ctx context.Context, text string, source, target domain.Tag) (string, error) {
	resp, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: int64(t.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: prompt.System(source, target)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.Wrap(text))),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "anthropic messages call failed")
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(tb.Text)
		}
	}
	return prompt.ParsePlain(out.String())
}

var _ domain.Translator = (*Translator)(nil)
