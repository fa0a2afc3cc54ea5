// Package translit folds item names to ASCII on a best-effort basis.
// Market item class names must survive round trips through tooling that
// only understands ASCII, so any non-ASCII name in a document is a defect
// the checker offers to repair with the folded form.
package translit

import (
	"unicode"

	anyascii "github.com/anyascii/go"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes and removes combining marks, a fallback for code
// points the transliteration table maps to themselves.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns s transliterated to ASCII. Input that is already ASCII is
// returned unchanged. Characters with no sensible ASCII mapping are kept,
// so the result is best-effort rather than guaranteed ASCII.
func Fold(s string) string {
	if IsASCII(s) {
		return s
	}

	folded := anyascii.Transliterate(s)
	if IsASCII(folded) {
		return folded
	}

	if stripped, _, err := transform.String(stripMarks, folded); err == nil {
		return stripped
	}
	return folded
}

// IsASCII reports whether s contains only ASCII bytes.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
