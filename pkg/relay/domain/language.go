package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Tag identifies one supported language variant.
type Tag string

const (
	TagEnglish    Tag = "en"
	TagSpanish    Tag = "es"
	TagPortuguese Tag = "pt"
)

// Language describes how a tag is presented to users and to the translator.
type Language struct {
	Tag   Tag
	Label string
	Flag  string
	// RegionalNote tells the translator which regional variety and register to use.
	RegionalNote string
	// JSONKey is a descriptive output key that gives structured-output models
	// context about the expected translation.
	JSONKey string
}

var catalog = map[Tag]Language{
	TagEnglish: {
		Tag:          TagEnglish,
		Label:        "English",
		Flag:         "🇺🇸",
		RegionalNote: "Use clear, natural English. Match the tone and register of the original message (casual, formal, slang, etc.).",
		JSONKey:      "natural_english_translation_preserving_tone_slang_and_profanity",
	},
	TagSpanish: {
		Tag:   TagSpanish,
		Label: "Spanish",
		Flag:  "🇲🇽",
		RegionalNote: "Use Mexican Spanish specifically. Use vocabulary, slang, and expressions native to Mexico, including Mexican street slang and colloquialisms. " +
			"Avoid Castilian/Spain Spanish and avoid generic Latin American terms when a more specific Mexican word exists. Use \"ustedes\" not \"vosotros\". " +
			"Match the tone and register of the original message (casual, formal, slang, etc.).",
		JSONKey: "mexican_spanish_translation_with_local_slang_colloquialisms_and_profanity",
	},
	TagPortuguese: {
		Tag:   TagPortuguese,
		Label: "Portuguese",
		Flag:  "🇧🇷",
		RegionalNote: "Use Brazilian Portuguese from Rio de Janeiro specifically. Use carioca vocabulary, slang, and expressions, including Rio street slang and colloquialisms. " +
			"Use \"você\" as the default second person. Prefer the informal, warm speech style typical of Rio de Janeiro. " +
			"Match the tone and register of the original message (casual, formal, slang, etc.).",
		JSONKey: "carioca_rio_brazilian_portuguese_translation_with_rio_slang_informal_tone_and_profanity",
	},
}

// AllTags lists every supported tag in canonical order.
var AllTags = []Tag{TagEnglish, TagSpanish, TagPortuguese}

// LookupLanguage returns the catalog entry for a tag.
func LookupLanguage(tag Tag) (Language, bool) {
	lang, ok := catalog[tag]
	return lang, ok
}

// MustLanguage is LookupLanguage for tags that were already validated.
func MustLanguage(tag Tag) Language {
	lang, ok := catalog[tag]
	if !ok {
		panic(fmt.Sprintf("unknown language tag %q", tag))
	}
	return lang
}

// ParseTag normalizes user input ("EN", " pt ") into a known tag.
func ParseTag(s string) (Tag, error) {
	tag := Tag(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[tag]; !ok {
		return "", errors.Errorf("unknown language %q (supported: %s)", s, strings.Join(tagStrings(AllTags), ", "))
	}
	return tag, nil
}

// OtherTags returns every catalog tag except source, in canonical order.
func OtherTags(source Tag) []Tag {
	out := make([]Tag, 0, len(AllTags))
	for _, t := range AllTags {
		if t != source {
			out = append(out, t)
		}
	}
	return out
}

// String implements fmt.Stringer.
func (t Tag) String() string { return string(t) }

func tagStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
