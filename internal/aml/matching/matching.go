// Package matching scores the similarity of personal and entity names.
//
// All functions are pure and safe for concurrent use.
package matching

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// prefixScale is the Winkler boost per shared leading character.
	prefixScale = 0.1
	// maxPrefix caps the number of leading characters that earn a boost.
	maxPrefix = 4
	// maxTokenDistance is the edit distance under which two name tokens count
	// as the same word in TokenOverlap.
	maxTokenDistance = 2
)

const (
	AlgorithmJaroWinkler  = "JaroWinkler"
	AlgorithmExactMatch   = "ExactMatch"
	AlgorithmTokenOverlap = "TokenOverlap"
)

var nameReplacer = strings.NewReplacer(
	"-", " ",
	"'", "",
	"’", "",
	".", "",
)

// Normalize lower-cases a name, folds diacritics, turns hyphens into spaces,
// strips apostrophes and periods, and collapses whitespace.
func Normalize(name string) string {
	folded, _, err := transform.String(foldDiacritics(), name)
	if err != nil {
		folded = name
	}
	folded = nameReplacer.Replace(strings.ToLower(folded))
	return strings.Join(strings.Fields(folded), " ")
}

// foldDiacritics returns a fresh transformer per call; transform.Chain is not
// safe for concurrent use.
func foldDiacritics() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Similarity returns the Jaro-Winkler score of the normalized names.
func Similarity(a, b string) float64 {
	return JaroWinkler(Normalize(a), Normalize(b))
}

// JaroWinkler computes the Jaro-Winkler similarity of two strings in [0, 1].
// Empty input scores 0; identical input scores 1.
func JaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	s1, s2 := []rune(a), []rune(b)
	jaro := jaroRunes(s1, s2)
	if jaro == 0 {
		return 0
	}

	prefix := 0
	for i := 0; i < min(len(s1), len(s2), maxPrefix); i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}
	return jaro + float64(prefix)*prefixScale*(1-jaro)
}

func jaroRunes(s1, s2 []rune) float64 {
	window := max(len(s1), len(s2))/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len(s1))
	matched2 := make([]bool, len(s2))
	matches := 0
	for i := range s1 {
		lo := max(0, i-window)
		hi := min(i+window+1, len(s2))
		for j := lo; j < hi; j++ {
			if matched2[j] || s1[i] != s2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range s1 {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(s1)) + m/float64(len(s2)) + (m-t)/m) / 3
}

// TokenOverlap returns the fraction of a's tokens that have a counterpart in
// b within a small edit distance. It is asymmetric: TokenOverlap("john smith",
// "john") is 0.5 while TokenOverlap("john", "john smith") is 1.
func TokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(Normalize(a))
	tokensB := strings.Fields(Normalize(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	hits := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if levenshtein.ComputeDistance(ta, tb) <= maxTokenDistance {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(tokensA))
}

// IsMultiToken reports whether the normalized name has more than one word.
func IsMultiToken(name string) bool {
	return len(strings.Fields(Normalize(name))) > 1
}
