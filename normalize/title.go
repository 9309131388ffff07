package normalize

import "strings"

const maxTitleLen = 72
const truncateAt = 69

// deriveTitle implements §4.4's title rule: take the first line, collapse
// runs of whitespace to single spaces, trim; if the result exceeds 72
// characters, truncate at 69 and append "...". Lengths are counted in
// runes, not bytes, so a multibyte title isn't split mid-rune.
func deriveTitle(source string) string {
	firstLine := source
	if idx := strings.IndexAny(source, "\r\n"); idx >= 0 {
		firstLine = source[:idx]
	}

	collapsed := strings.Join(strings.Fields(firstLine), " ")

	runes := []rune(collapsed)
	if len(runes) <= maxTitleLen {
		return collapsed
	}
	return string(runes[:truncateAt]) + "..."
}
