// Package keys normalizes substitution keys and element identifiers so that
// lookups ignore case and surrounding whitespace.
package keys

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Separator replaces each space inside a sanitized key.
const Separator = "_"

// Sanitize trims surrounding whitespace, lowercases, and replaces internal
// spaces with Separator. The empty string sanitizes to itself.
func Sanitize(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	// A Caser holds state, so each call gets its own.
	return strings.ReplaceAll(cases.Lower(language.Und).String(key), " ", Separator)
}

// Equal reports whether two identifiers match once sanitized.
func Equal(a, b string) bool {
	return Sanitize(a) == Sanitize(b)
}
