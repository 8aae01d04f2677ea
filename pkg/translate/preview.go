package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/fpt/polyglot/pkg/relay"
	"github.com/fpt/polyglot/pkg/relay/domain"
)

// PreviewLine is one language of a dry-run translation.
type PreviewLine struct {
	Tag    domain.Tag `json:"language"`
	Label  string     `json:"label"`
	Flag   string     `json:"flag"`
	Status string     `json:"status"`
	Text   string     `json:"text"`
	Error  string     `json:"error,omitempty"`
}

// Preview translates text from source into every other supported language
// without touching any channel. The first line is the original.
func Preview(ctx context.Context, tr domain.Translator, text string, source domain.Tag) []PreviewLine {
	src := domain.MustLanguage(source)
	lines := []PreviewLine{{
		Tag:    source,
		Label:  src.Label,
		Flag:   src.Flag,
		Status: "original",
		Text:   text,
	}}

	for _, t := range relay.TranslateAll(ctx, tr, text, source, domain.OtherTags(source)) {
		lang := domain.MustLanguage(t.Target)
		line := PreviewLine{
			Tag:    t.Target,
			Label:  lang.Label,
			Flag:   lang.Flag,
			Status: string(t.Status),
			Text:   t.Text,
		}
		if t.Err != nil {
			line.Error = t.Err.Error()
		}
		lines = append(lines, line)
	}
	return lines
}

// FormatPreview renders lines one per language. Targets without a translation
// show a dash.
func FormatPreview(lines []PreviewLine) string {
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		text := l.Text
		if l.Status != "original" && l.Status != string(relay.TranslationOK) {
			text = "—"
		}
		fmt.Fprintf(&sb, "%s %s: %s", l.Flag, l.Label, text)
	}
	return sb.String()
}
