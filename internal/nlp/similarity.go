// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nlp

import (
	"regexp"
	"strings"
)

// SameEntityThreshold is the default token-overlap similarity at which two
// entity names count as the same entity.
const SameEntityThreshold = 0.85

var specialChars = regexp.MustCompile(`[^\w\s-]`)
var multiSpace = regexp.MustCompile(`\s+`)

// Normalize lowercases a name, collapses whitespace, and strips special
// characters, producing the canonical comparison form.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = specialChars.ReplaceAllString(n, "")
	return multiSpace.ReplaceAllString(n, " ")
}

// Similarity is token-overlap (Jaccard) similarity between two strings in
// [0, 1]. Equal strings score 1; disjoint token sets score 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	setA := tokenSet(a)
	setB := tokenSet(b)

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// SameEntity reports whether two entity names refer to the same entity:
// exact normalized match, substring containment, or token-overlap
// similarity at or above threshold.
func SameEntity(a, b string, threshold float64) bool {
	normA := Normalize(a)
	normB := Normalize(b)
	if normA == "" || normB == "" {
		return false
	}
	if normA == normB {
		return true
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return true
	}
	return Similarity(normA, normB) >= threshold
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}
