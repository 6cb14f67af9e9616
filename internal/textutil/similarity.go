package textutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Scorer computes a symmetric similarity in [0,1] between two strings.
type Scorer interface {
	Score(a, b string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a, b string) float64

// Score implements Scorer.
func (f ScorerFunc) Score(a, b string) float64 { return f(a, b) }

const (
	// BackendLevenshtein scores by normalized edit distance.
	BackendLevenshtein = "levenshtein"
	// BackendJaccard scores by word-token Jaccard overlap.
	BackendJaccard = "jaccard"
)

// NewScorer returns the scorer for a configured backend name. An empty name
// selects the Levenshtein ratio.
func NewScorer(backend string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendLevenshtein:
		return ScorerFunc(LevenshteinRatio), nil
	case BackendJaccard:
		return ScorerFunc(TokenJaccard), nil
	default:
		return nil, fmt.Errorf("unknown similarity backend %q", backend)
	}
}

// Similarity scores a and b with the default scorer.
func Similarity(a, b string) float64 {
	return LevenshteinRatio(a, b)
}

// LevenshteinRatio returns 1 - distance/maxLen over runes. Two empty strings
// score 1; an empty string against a non-empty one scores 0.
func LevenshteinRatio(a, b string) float64 {
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	if a == b {
		return 1
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	dist := edlib.LevenshteinDistance(a, b)
	score := 1 - float64(dist)/float64(longest)
	return clamp01(score)
}

// TokenJaccard returns |A∩B| / |A∪B| over lowercase word tokens.
func TokenJaccard(a, b string) float64 {
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// Tokenize splits text into lowercase tokens made of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HasWordContent reports whether text contains at least one letter or digit.
func HasWordContent(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

func emptyScore(a, b string) (float64, bool) {
	switch {
	case a == "" && b == "":
		return 1, true
	case a == "" || b == "":
		return 0, true
	}
	return 0, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
