package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var searchNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeSearchTerm lowercases a search term and strips diacritics so that
// "Limón" and "limon" produce the same pattern. Columns compared against the
// result must be wrapped with SearchColumn so both sides are normalised.
func NormalizeSearchTerm(term string) string {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return ""
	}
	normalized, _, err := transform.String(searchNormalizer, term)
	if err != nil {
		return term
	}
	return normalized
}

// SearchColumn wraps a column expression so LIKE comparisons ignore case and
// accents, matching what NormalizeSearchTerm does to the bound pattern.
// Requires the unaccent extension.
func SearchColumn(col string) string {
	return "unaccent(lower(" + col + "))"
}
