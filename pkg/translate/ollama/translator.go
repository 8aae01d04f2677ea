package ollama

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate/prompt"
)

const (
	DefaultModel     = "gpt-oss:latest"
	defaultMaxTokens = 1024
)

// Config selects the model and server. An empty BaseURL uses OLLAMA_HOST.
type Config struct {
	BaseURL   string
	Model     string
	MaxTokens int
}

// Translator asks a local model for a JSON object constrained by a schema.
type Translator struct {
	client    *api.Client
	model     string
	maxTokens int
}

func New(cfg Config) (*Translator, error) {
	var (
		client *api.Client
		err    error
	)
	if cfg.BaseURL != "" {
		var base *url.URL
		base, err = url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid ollama base url")
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, errors.Wrap(err, "failed to create ollama client")
		}
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Translator{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens}, nil
}

func (t *Translator) Model() string { return t.model }

func (t *Translator) Translate(ctx context.Context, text string, source, target domain.Tag) (string, error) {
	schema, err := prompt.SchemaJSON(target)
	if err != nil {
		return "", err
	}

	req := &api.ChatRequest{
		Model: t.model,
		Messages: []api.Message{
			{Role: "system", Content: prompt.StructuredSystem(source, target)},
			{Role: "user", Content: prompt.Wrap(text)},
		},
		Format: schema,
		Options: map[string]any{
			"num_predict": t.maxTokens,
		},
		Stream: &[]bool{false}[0],
	}

	var resp api.ChatResponse
	err = t.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "ollama chat failed")
	}
	return prompt.ParseStructured(resp.Message.Content, target)
}

var _ domain.Translator = (*Translator)(nil)
