// Package answer canonicalizes submitted and reference answers and decides
// whether a submission matches the expected answer for a puzzle kind.
package answer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"escaperoom/internal/models"
)

// stripMarks decomposes characters and removes combining marks, turning
// "césar" into "cesar".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases, strips diacritical marks and trims surrounding
// whitespace. It is total: any input (including the empty string) yields a
// usable result, and transform failures fall back to the un-stripped text.
func Normalize(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	stripped, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return lowered
	}
	return stripped
}

// KeywordSeparator splits a riddle's reference answer into its accepted
// keywords.
const KeywordSeparator = "|"

// Matches reports whether a submitted answer is accepted for the given puzzle
// kind. Cipher and logic puzzles require exact equality after normalization.
// Riddles are free-text: the reference is a set of keywords separated by
// KeywordSeparator and the submission matches when it contains any of them.
func Matches(kind, submitted, reference string) bool {
	got := Normalize(submitted)

	if kind == models.PuzzleKindRiddle {
		if got == "" {
			return false
		}
		for _, keyword := range strings.Split(reference, KeywordSeparator) {
			want := Normalize(keyword)
			if want != "" && strings.Contains(got, want) {
				return true
			}
		}
		return false
	}

	want := Normalize(reference)
	return want != "" && got == want
}
