package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/relay/domain"
)

func TestSystemMentionsLanguagesAndSentinel(t *testing.T) {
	got := System(domain.TagEnglish, domain.TagSpanish)
	for _, want := range []string{"from English to Spanish", "Mexican Spanish", SkipSentinel, "<translate>"} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q: %s", want, got)
		}
	}

	structured := StructuredSystem(domain.TagSpanish, domain.TagPortuguese)
	if !strings.Contains(structured, domain.MustLanguage(domain.TagPortuguese).JSONKey) {
		t.Errorf("structured prompt should name the JSON key: %s", structured)
	}
}

func TestParsePlain(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{name: "text", reply: "  hola amigos \n", want: "hola amigos"},
		{name: "echoed tags", reply: "<translate>hola</translate>", want: "hola"},
		{name: "sentinel", reply: " [SKIP] ", wantErr: domain.ErrUntranslatable},
		{name: "empty", reply: "", wantErr: domain.ErrUntranslatable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlain(tt.reply)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseStructured(t *testing.T) {
	key := domain.MustLanguage(domain.TagPortuguese).JSONKey
	tests := []struct {
		name      string
		reply     string
		want      string
		wantErr   bool
		wantSkips bool
	}{
		{name: "object", reply: `{"` + key + `": "olá galera"}`, want: "olá galera"},
		{name: "fenced", reply: "```json\n{\"" + key + "\": \"valeu\"}\n```", want: "valeu"},
		{name: "sentinel", reply: `{"` + key + `": "[SKIP]"}`, wantSkips: true},
		{name: "wrong key", reply: `{"translation": "oi"}`, wantErr: true},
		{name: "not json", reply: "oi", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStructured(tt.reply, domain.TagPortuguese)
			switch {
			case tt.wantSkips:
				if !errors.Is(err, domain.ErrUntranslatable) {
					t.Errorf("err = %v, want untranslatable", err)
				}
			case tt.wantErr:
				if err == nil || errors.Is(err, domain.ErrUntranslatable) {
					t.Errorf("err = %v, want parse error", err)
				}
			default:
				if err != nil || got != tt.want {
					t.Errorf("got %q, %v; want %q", got, err, tt.want)
				}
			}
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	raw, err := SchemaJSON(domain.TagEnglish)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Type                 string                     `json:"type"`
		Required             []string                   `json:"required"`
		Properties           map[string]json.RawMessage `json:"properties"`
		AdditionalProperties bool                       `json:"additionalProperties"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	key := domain.MustLanguage(domain.TagEnglish).JSONKey
	if decoded.Type != "object" || len(decoded.Required) != 1 || decoded.Required[0] != key {
		t.Errorf("unexpected schema: %s", raw)
	}
	if _, ok := decoded.Properties[key]; !ok || decoded.AdditionalProperties {
		t.Errorf("unexpected schema properties: %s", raw)
	}
}
