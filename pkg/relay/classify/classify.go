// Package classify decides whether inbound content needs translation.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the classification result.
type Kind int

const (
	// Empty means there is nothing to relay.
	Empty Kind = iota
	// EmojiOrStickerOnly content is relayed verbatim without translation.
	EmojiOrStickerOnly
	// Translatable content goes through the translator.
	Translatable
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case EmojiOrStickerOnly:
		return "emoji_or_sticker"
	case Translatable:
		return "translatable"
	default:
		return "unknown"
	}
}

// customEmojiRe matches platform custom emoji tokens such as <:pepe:123> or <a:dance:456>.
var customEmojiRe = regexp.MustCompile(`<a?:[A-Za-z0-9_~]{2,32}:\d{1,20}>`)

// Classify inspects trimmed text plus the attachment flag.
func Classify(text string, hasAttachment bool) Kind {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		if hasAttachment {
			return EmojiOrStickerOnly
		}
		return Empty
	}
	if IsEmojiOnly(trimmed) {
		return EmojiOrStickerOnly
	}
	return Translatable
}

// IsEmojiOnly reports whether text is made of emoji clusters, custom emoji
// tokens and whitespace only. The grammar is conservative: anything it does
// not recognize makes the text translatable.
func IsEmojiOnly(text string) bool {
	rest := customEmojiRe.ReplaceAllString(text, " ")
	sawEmoji := rest != text

	runes := []rune(rest)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			continue
		case isKeycapBase(r):
			// Digits, '#' and '*' count only as part of a keycap sequence.
			j := i + 1
			if j < len(runes) && runes[j] == variationSelector16 {
				j++
			}
			if j >= len(runes) || runes[j] != combiningKeycap {
				return false
			}
			i = j
			sawEmoji = true
		case isPictographic(r) || isRegionalIndicator(r):
			sawEmoji = true
		case isEmojiComponent(r):
			// Modifiers, joiners and selectors must follow an emoji.
			if !sawEmoji {
				return false
			}
		default:
			return false
		}
	}
	return sawEmoji
}

const (
	zeroWidthJoiner     = '\u200d'
	variationSelector15 = '\ufe0e'
	variationSelector16 = '\ufe0f'
	combiningKeycap     = '\u20e3'
)

func isKeycapBase(r rune) bool {
	return r == '#' || r == '*' || (r >= '0' && r <= '9')
}

func isRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

func isEmojiComponent(r rune) bool {
	switch {
	case r == zeroWidthJoiner, r == variationSelector15, r == variationSelector16, r == combiningKeycap:
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r >= 0xE0020 && r <= 0xE007F: // tag sequences (subdivision flags)
		return true
	}
	return false
}

// pictographicRanges approximates Extended_Pictographic plus the BMP symbols
// that have emoji presentation.
var pictographicRanges = [][2]rune{
	{0x00A9, 0x00A9}, {0x00AE, 0x00AE},
	{0x203C, 0x203C}, {0x2049, 0x2049},
	{0x2122, 0x2122}, {0x2139, 0x2139},
	{0x2194, 0x2199}, {0x21A9, 0x21AA},
	{0x231A, 0x231B}, {0x2328, 0x2328}, {0x23CF, 0x23CF}, {0x23E9, 0x23F3}, {0x23F8, 0x23FA},
	{0x24C2, 0x24C2},
	{0x25AA, 0x25AB}, {0x25B6, 0x25B6}, {0x25C0, 0x25C0}, {0x25FB, 0x25FE},
	{0x2600, 0x27BF},
	{0x2934, 0x2935},
	{0x2B05, 0x2B07}, {0x2B1B, 0x2B1C}, {0x2B50, 0x2B50}, {0x2B55, 0x2B55},
	{0x3030, 0x3030}, {0x303D, 0x303D}, {0x3297, 0x3297}, {0x3299, 0x3299},
	{0x1F000, 0x1F0FF},
	{0x1F10D, 0x1F10F}, {0x1F12F, 0x1F12F}, {0x1F16C, 0x1F171}, {0x1F17E, 0x1F17F}, {0x1F18E, 0x1F18E}, {0x1F191, 0x1F19A},
	{0x1F1AD, 0x1F1E5},
	{0x1F201, 0x1F20F}, {0x1F21A, 0x1F21A}, {0x1F22F, 0x1F22F}, {0x1F232, 0x1F23A}, {0x1F23C, 0x1F23F}, {0x1F249, 0x1F3FA},
	{0x1F400, 0x1F53D}, {0x1F546, 0x1F64F},
	{0x1F680, 0x1F6FF},
	{0x1F774, 0x1F77F}, {0x1F7D5, 0x1F7FF},
	{0x1F80C, 0x1F80F}, {0x1F848, 0x1F84F}, {0x1F85A, 0x1F85F}, {0x1F888, 0x1F88F}, {0x1F8AE, 0x1F8FF},
	{0x1F90C, 0x1F93A}, {0x1F93C, 0x1F945}, {0x1F947, 0x1FAFF},
	{0x1FC00, 0x1FFFD},
}

func isPictographic(r rune) bool {
	if r < 0x00A9 || r == utf8.RuneError {
		return false
	}
	for _, rg := range pictographicRanges {
		if r < rg[0] {
			return false
		}
		if r <= rg[1] {
			return true
		}
	}
	return false
}
