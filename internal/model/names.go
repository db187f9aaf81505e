package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// FoldName returns the case-folded, whitespace-normalized form of a company or
// person name. Two names refer to the same entity when their folded forms match.
func FoldName(name string) string {
	// Casers carry state; build one per call so FoldName is goroutine-safe.
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// SameName reports whether a and b are equal ignoring case and spacing.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}

// Slug converts a name into a lowercase identifier of letters, digits and underscores.
func Slug(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range FoldName(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
