package openai

import (
	"context"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate/prompt"
)

const (
	DefaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1024
)

// Config selects the model and endpoint. APIKey falls back to OPENAI_API_KEY
// and BaseURL to OPENAI_BASE_URL.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Translator translates through the Responses API.
type Translator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func New(cfg Config) (*Translator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	// Custom base URL for Azure OpenAI and compatible gateways.
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

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
	resp, err := t.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           shared.ChatModel(t.model),
		Instructions:    openai.String(prompt.System(source, target)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt.Wrap(text))},
		MaxOutputTokens: openai.Int(int64(t.maxTokens)),
	})
	if err != nil {
		return "", errors.Wrap(err, "Responses API call failed")
	}
	return prompt.ParsePlain(resp.OutputText())
}

var _ domain.Translator = (*Translator)(nil)
