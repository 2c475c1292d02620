// CLAUDE:SUMMARY Case and accent folding used for fuzzy form-title search.
package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips accents (e.g. "Übung Größe" -> "ubung große").
func Fold(s string) string {
	result, _, _ := transform.String(stripAccents, strings.ToLower(strings.TrimSpace(s)))
	return result
}
