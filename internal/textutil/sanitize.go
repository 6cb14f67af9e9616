package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes an episode or run identifier safe to embed in a
// file name. Colons, which separate id fields, and whitespace become
// underscores; path separators become dashes; shell-hostile and control
// characters are dropped. Leading dots are trimmed so the result is never
// hidden or a relative path component.
func SanitizeFileName(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte('_')
			space = false
		}
		switch {
		case r == ':':
			b.WriteByte('_')
		case r == '/', r == '\\', r == '*':
			b.WriteByte('-')
		case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), ".")
}
