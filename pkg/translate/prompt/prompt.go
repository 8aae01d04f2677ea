// Package prompt builds translation prompts and interprets model replies.
// Plain-text backends use the [SKIP] sentinel; structured backends answer a
// JSON object keyed by the target language's descriptive key.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/fpt/polyglot/pkg/relay/domain"
)

// SkipSentinel is what a model answers when it cannot translate the text.
const SkipSentinel = "[SKIP]"

const (
	openTag  = "<translate>"
	closeTag = "</translate>"
)

// System returns the system prompt for a plain-text translation.
func System(source, target domain.Tag) string {
	src, dst := domain.MustLanguage(source), domain.MustLanguage(target)
	return fmt.Sprintf(
		"Translate the text inside %s tags from %s to %s. %s "+
			"Output ONLY the translated text. No explanations, no commentary, no questions. "+
			"Keep every placeholder of the form [[T0]], [[T1]] exactly as written. "+
			"If you cannot translate it, output exactly: %s",
		openTag, src.Label, dst.Label, dst.RegionalNote, SkipSentinel)
}

// StructuredSystem returns the system prompt for backends that answer JSON.
func StructuredSystem(source, target domain.Tag) string {
	src, dst := domain.MustLanguage(source), domain.MustLanguage(target)
	return fmt.Sprintf(
		"Translate the text inside %s tags from %s to %s. %s "+
			"Keep every placeholder of the form [[T0]], [[T1]] exactly as written. "+
			"Respond with a JSON object whose only field is %q holding the translation. "+
			"If you cannot translate it, set the field to exactly: %s",
		openTag, src.Label, dst.Label, dst.RegionalNote, dst.JSONKey, SkipSentinel)
}

// Wrap encloses text in the tags the system prompt refers to.
func Wrap(text string) string {
	return openTag + text + closeTag
}

// ParsePlain turns a plain-text reply into a translation. The sentinel and an
// empty reply both yield domain.ErrUntranslatable.
func ParsePlain(reply string) (string, error) {
	out := strings.TrimSpace(reply)
	// Some models echo the wrapper back.
	out = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(out, openTag), closeTag))
	if out == "" || out == SkipSentinel {
		return "", domain.ErrUntranslatable
	}
	return out, nil
}

// ParseStructured extracts the target's field from a JSON reply.
func ParseStructured(reply string, target domain.Tag) (string, error) {
	key := domain.MustLanguage(target).JSONKey
	body := stripCodeFence(reply)
	if !gjson.Valid(body) {
		return "", errors.Errorf("reply is not valid JSON: %.80q", reply)
	}
	v := gjson.Get(body, key)
	if !v.Exists() {
		return "", errors.Errorf("reply has no %q field", key)
	}
	return ParsePlain(v.String())
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// Schema describes the single-field object a structured backend must return.
func Schema(target domain.Tag) *jsonschema.Schema {
	lang := domain.MustLanguage(target)
	props := jsonschema.NewProperties()
	props.Set(lang.JSONKey, &jsonschema.Schema{
		Type:        "string",
		Description: fmt.Sprintf("The text translated to %s, or %s", lang.Label, SkipSentinel),
	})
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{lang.JSONKey},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// SchemaJSON is Schema marshalled for APIs that take raw JSON.
func SchemaJSON(target domain.Tag) (json.RawMessage, error) {
	b, err := json.Marshal(Schema(target))
	if err != nil {
		return nil, errors.Wrap(err, "marshal translation schema")
	}
	return b, nil
}
