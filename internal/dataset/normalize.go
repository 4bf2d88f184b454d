package dataset

import (
	"regexp"
	"strings"
)

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// NormalizeColumn converts a raw header into its canonical form: every rune
// that is not a letter, digit, underscore or whitespace is removed, the
// result is trimmed, and internal whitespace runs become a single "_".
// Case is preserved. NormalizeColumn(NormalizeColumn(s)) == NormalizeColumn(s).
func NormalizeColumn(name string) string {
	name = punctuation.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	return whitespace.ReplaceAllString(name, "_")
}

// NormalizeColumns applies NormalizeColumn to every header.
func NormalizeColumns(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeColumn(n)
	}
	return out
}
