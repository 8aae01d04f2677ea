package relay

import (
	"strings"
)

// DefaultQuoteMaxRunes bounds the quoted line of a reply target.
const DefaultQuoteMaxRunes = 80

const ellipsis = "…"

// FormatQuote renders the first non-empty line of a replied-to message as a
// block quote attributed to its author, truncated to maxRunes.
func FormatQuote(author, content string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultQuoteMaxRunes
	}

	line := firstLine(content)
	if r := []rune(line); len(r) > maxRunes {
		line = strings.TrimRight(string(r[:maxRunes]), " ") + ellipsis
	} else if hasMoreLines(content) {
		line += " " + ellipsis
	}

	author = strings.TrimSpace(author)
	if author == "" {
		return "> " + line
	}
	return "> **" + author + "**: " + line
}

// firstLine skips quote lines so a reply to a relayed reply quotes the reply
// itself rather than the message it was quoting.
func firstLine(content string) string {
	lines := bodyLines(content)
	if len(lines) > 0 {
		return lines[0]
	}
	for _, l := range strings.Split(content, "\n") {
		if l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), ">")); l != "" {
			return l
		}
	}
	return ""
}

func hasMoreLines(content string) bool {
	return len(bodyLines(content)) > 1
}

func bodyLines(content string) []string {
	var out []string
	for _, l := range strings.Split(content, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, ">") {
			continue
		}
		out = append(out, l)
	}
	return out
}
