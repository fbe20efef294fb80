package checkpoint

import (
	"strings"
	"unicode"
)

const slugMaxLen = 120

// Slug lowercases value and replaces everything outside [a-z0-9._-] with
// dashes, collapsing runs. Empty input becomes "unknown" so slugs are
// always usable in tags and source ids.
func Slug(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	collapsed := strings.Join(parts, "-")
	if len(collapsed) > slugMaxLen {
		collapsed = collapsed[:slugMaxLen]
	}
	if collapsed == "" {
		return "unknown"
	}
	return collapsed
}
