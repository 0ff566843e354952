package cell

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the matching form of s: NFC normalised, then Unicode case
// folded. Two strings that differ only in case fold to the same string.
//
// A new Caser is built per call because cases.Caser is stateful and must
// not be shared between goroutines.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Contains reports whether needle is a case-insensitive substring of the
// display text of v. An empty needle matches every value, including Empty.
func Contains(v Value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(String(v)), Fold(needle))
}
