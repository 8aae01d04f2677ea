package gemini

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate/prompt"
)

const (
	DefaultModel     = "gemini-2.5-flash-lite"
	defaultMaxTokens = 1024
)

// Config selects the model and endpoint. APIKey falls back to GEMINI_API_KEY.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Translator uses Gemini's native structured output: the reply is a JSON
// object keyed by the target language's descriptive key.
type Translator struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func New(ctx context.Context, cfg Config) (*Translator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
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
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.StructuredSystem(source, target), genai.RoleUser),
		MaxOutputTokens:   int32(t.maxTokens),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(target),
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt.Wrap(text), genai.RoleUser)}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, config)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content failed")
	}
	return prompt.ParseStructured(resp.Text(), target)
}

// responseSchema mirrors prompt.Schema in Gemini's own schema type.
func responseSchema(target domain.Tag) *genai.Schema {
	lang := domain.MustLanguage(target)
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			lang.JSONKey: {
				Type:        genai.TypeString,
				Description: "The text translated to " + lang.Label + ", or " + prompt.SkipSentinel,
			},
		},
		Required: []string{lang.JSONKey},
	}
}

var _ domain.Translator = (*Translator)(nil)
