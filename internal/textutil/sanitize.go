package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes name safe to use as the last segment of a storage
// key. Path separators, colons, and asterisks become dashes; quoting and
// redirection characters and control runes are dropped; runs of whitespace
// collapse to one space.
func SanitizeFileName(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			b.WriteByte('-')
		case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		default:
			b.WriteRune(r)
		}
		space = false
	}
	return strings.TrimSpace(b.String())
}

// SanitizeToken lowercases value and keeps ASCII letters, digits, dashes,
// and underscores, mapping everything else to an underscore. Leading and
// trailing separators are trimmed; an empty result becomes "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}
