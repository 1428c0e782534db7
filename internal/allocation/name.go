package allocation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ingredient names are the only join key between the catalog, the recipe
// ledger and an editing session; every comparison in this package goes
// through Normalize so the components cannot drift apart.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize reduces an ingredient name to its canonical identity:
// trimmed, diacritic-folded and lowercased.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	folded, _, err := transform.String(foldDiacritics, trimmed)
	if err != nil {
		folded = trimmed
	}
	return strings.ToLower(folded)
}

// SameName reports whether two spellings identify the same ingredient.
func SameName(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
