package helpers

import (
	"errors"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// Tokenize splits a string into lower-cased whitespace tokens.
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// JaccardSimilarity computes intersection/union over the word sets of two
// strings. Returns 0 when either side has no tokens.
func JaccardSimilarity(a, b string) float64 {
	tokensA := Tokenize(a)
	tokensB := Tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}

	union := make(map[string]struct{}, len(tokensA)+len(tokensB))
	for t := range setA {
		union[t] = struct{}{}
	}

	intersection := 0
	seen := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		union[t] = struct{}{}
		if _, ok := setA[t]; ok {
			intersection++
		}
	}

	return float64(intersection) / float64(len(union))
}
