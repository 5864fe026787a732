// ABOUTME: Derives stable external tool names from declared operation names.
// ABOUTME: GetTime becomes get_time; runs of capitals are never split from each other.

package tools

import (
	"strings"
	"unicode"
)

// Normalize maps a declared operation name to its external tool name.
// Every uppercase rune is lowercased and preceded by '_' unless it is the
// first rune or the previous rune was also uppercase. Empty input is
// returned unchanged.
func Normalize(method string) string {
	if method == "" {
		return method
	}

	var b strings.Builder
	b.Grow(len(method) + 4)

	prevUpper := false
	for i, r := range method {
		if unicode.IsUpper(r) {
			if i > 0 && !prevUpper {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUpper = true
			continue
		}
		b.WriteRune(r)
		prevUpper = false
	}
	return b.String()
}
