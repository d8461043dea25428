// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nlp

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// topKeywords is the number of ranked keywords Extract returns.
const topKeywords = 20

// minKeywordLen drops tokens too short to be meaningful search terms.
const minKeywordLen = 3

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Keywords tokenizes text and returns the top max terms ranked by
// tf-idf against the single document: term frequency damped by how many
// sentence-level segments the term appears in, so a word used everywhere
// ranks below one concentrated in a few passages.
func Keywords(text string, max int) []string {
	segments := splitSegments(text)
	if len(segments) == 0 {
		return nil
	}

	termFreq := make(map[string]int)
	segFreq := make(map[string]int)
	for _, seg := range segments {
		seen := make(map[string]bool)
		for _, tok := range tokenize(seg) {
			termFreq[tok]++
			if !seen[tok] {
				seen[tok] = true
				segFreq[tok]++
			}
		}
	}

	type scored struct {
		term  string
		score float64
		order int
	}
	order := 0
	firstSeen := make(map[string]int)
	for _, seg := range segments {
		for _, tok := range tokenize(seg) {
			if _, ok := firstSeen[tok]; !ok {
				firstSeen[tok] = order
				order++
			}
		}
	}

	ranked := make([]scored, 0, len(termFreq))
	n := float64(len(segments))
	for term, tf := range termFreq {
		idf := math.Log(1 + n/float64(segFreq[term]))
		ranked = append(ranked, scored{term: term, score: float64(tf) * idf, order: firstSeen[term]})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.term
	}
	return out
}

// tokenize lowercases, strips punctuation, and drops stopwords and tokens
// under minKeywordLen characters.
func tokenize(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	var toks []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) < minKeywordLen || stopwords[w] {
			continue
		}
		toks = append(toks, w)
	}
	return toks
}

func splitSegments(text string) []string {
	var segs []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		if strings.TrimSpace(s) != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "were": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "does": true,
	"did": true, "will": true, "would": true, "should": true, "could": true,
	"may": true, "might": true, "must": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "you": true, "she": true,
	"they": true, "him": true, "her": true, "his": true, "hers": true,
	"its": true, "our": true, "their": true, "who": true, "what": true,
	"where": true, "when": true, "why": true, "how": true, "which": true,
	"whom": true, "whose": true, "there": true, "then": true, "than": true,
	"more": true, "most": true, "other": true, "some": true, "many": true,
	"much": true, "into": true, "over": true, "also": true, "about": true,
	"after": true, "before": true, "between": true, "not": true, "all": true,
}
