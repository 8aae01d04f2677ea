package relay

import (
	"fmt"
	"regexp"
	"strings"
)

// platformTokenRe matches tokens a translator must not touch: user, role and
// channel mentions, custom emoji, timestamps and @everyone/@here.
var platformTokenRe = regexp.MustCompile(`<(?:@[!&]?\d+|#\d+|a?:[A-Za-z0-9_~]+:\d+|t:\d+(?::[tTdDfFR])?)>|@everyone|@here`)

// placeholderRe finds restored-or-not placeholders, tolerating spaces a model
// may insert inside the brackets.
var placeholderRe = regexp.MustCompile(`\[\[\s*T(\d+)\s*\]\]`)

// maskRe also captures placeholder-shaped text the user typed, so a literal
// "[[T0]]" is carried through as a token instead of being read back as one.
var maskRe = regexp.MustCompile(platformTokenRe.String() + `|` + placeholderRe.String())

// maskedText is text with platform tokens swapped for numbered placeholders.
type maskedText struct {
	Text   string
	tokens []string
}

// maskTokens replaces every platform token, and any literal placeholder text,
// with [[T<n>]].
func maskTokens(text string) maskedText {
	var tokens []string
	masked := maskRe.ReplaceAllStringFunc(text, func(tok string) string {
		tokens = append(tokens, tok)
		return fmt.Sprintf("[[T%d]]", len(tokens)-1)
	})
	return maskedText{Text: masked, tokens: tokens}
}

// Restore puts the original tokens back into translated text. Tokens the
// translator dropped are appended so mentions are never lost.
func (m maskedText) Restore(translated string) string {
	if len(m.tokens) == 0 {
		return translated
	}
	used := make([]bool, len(m.tokens))
	out := placeholderRe.ReplaceAllStringFunc(translated, func(ph string) string {
		var n int
		if _, err := fmt.Sscanf(placeholderRe.FindStringSubmatch(ph)[1], "%d", &n); err != nil || n >= len(m.tokens) {
			return ph
		}
		used[n] = true
		return m.tokens[n]
	})

	var missing []string
	for i, ok := range used {
		if !ok {
			missing = append(missing, m.tokens[i])
		}
	}
	if len(missing) > 0 {
		out = strings.TrimRight(out, " ") + " " + strings.Join(missing, " ")
	}
	return out
}
