// Package similarity scores how alike two transcript phrases are.
//
// Two modes are provided:
//
//   - WordOverlap: bag-of-words membership, tolerant of reordering and of
//     filler words the recogniser inserts between restatements.
//   - Character: normalized Levenshtein distance over Unicode code points,
//     strict and suited to short, immediately sequential phrases.
//
// Levenshtein delegates to matchr, which indexes by rune (so multi-byte
// Bengali characters are never split) and keeps the full (m+1)x(n+1)
// distance matrix: O(m*n) time and O(m*n) space.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/cases"
)

// WordOverlap returns the fraction of whitespace tokens of a that also
// appear anywhere in b, divided by the longer token count. Tokens are
// compared case-folded. Identical inputs score 1; an empty input against a
// non-empty one scores 0.
func WordOverlap(a, b string) float64 {
	if a == b {
		return 1
	}
	ta, tb := Tokens(a), Tokens(b)
	switch {
	case len(ta) == 0 && len(tb) == 0:
		return 1
	case len(ta) == 0 || len(tb) == 0:
		return 0
	}

	inB := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		inB[t] = struct{}{}
	}
	shared := 0
	for _, t := range ta {
		if _, ok := inB[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(ta), len(tb)))
}

// Character returns 1 - Levenshtein(a, b) / max(len(a), len(b)) with
// lengths counted in code points.
func Character(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(a, b))/float64(max(la, lb))
}

// Levenshtein is the code-point edit distance between a and b with unit
// cost for insertion, deletion and substitution.
func Levenshtein(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Tokens splits s on whitespace and case-folds every token.
func Tokens(s string) []string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = Fold(f)
	}
	return fields
}

// Fold returns the Unicode case-folded form of s. A fresh Caser is used per
// call because cases.Caser is stateful and must not be shared.
func Fold(s string) string {
	return cases.Fold().String(s)
}
