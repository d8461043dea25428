// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nlp extracts people, places, organizations, dates, emails, URLs,
// and ranked keywords from page text, and provides the fuzzy entity
// comparison the cross-referencing and review stages rely on.
package nlp

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// Extraction holds everything pulled from one document. All lists are
// case-insensitively deduplicated in first-seen order.
type Extraction struct {
	People        []string
	Places        []string
	Organizations []string
	Dates         []string
	Emails        []string
	URLs          []string
	Keywords      []string
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s"'<>)]+`)

	// Corporate suffixes: Acme Corp, Widgets Inc., Example LLC. The prefix
	// is a run of capitalized words so each name matches on its own instead
	// of swallowing the sentence leading up to the suffix.
	companyPattern = regexp.MustCompile(`\b((?:[A-Z][A-Za-z&\-]*\.? )+(?:Inc\.|Corp\.|Ltd\.|Co\.|(?:Inc|Corp|LLC|Ltd|Co|Company|Corporation)\b))`)

	// Agencies and institutions: Environmental Protection Agency, Springfield University.
	agencyPattern = regexp.MustCompile(`\b((?:[A-Z][A-Za-z&\-]*\.? )+(?:Agency|Department|Bureau|Administration|Office|Foundation|Institute|University|College)\b)`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2},? \d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	}
)

// Extractor runs entity extraction over scraped text.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor returns an Extractor logging through log.
func NewExtractor(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// Extract pulls all entity classes from text. Extraction never fails:
// malformed input yields empty lists. sourceURL is used only for logging.
func (e *Extractor) Extract(text, sourceURL string) Extraction {
	if strings.TrimSpace(text) == "" {
		return Extraction{}
	}

	var people, places []string
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		e.log.Warn("NER failed, continuing with pattern extraction",
			zap.String("source_url", sourceURL), zap.Error(err))
	} else {
		for _, ent := range doc.Entities() {
			name := strings.TrimSpace(ent.Text)
			if len(name) < 2 {
				continue
			}
			switch ent.Label {
			case "PERSON":
				people = append(people, name)
			case "GPE":
				places = append(places, name)
			}
		}
	}

	out := Extraction{
		People:        dedupe(people),
		Places:        dedupe(places),
		Organizations: e.organizations(text),
		Dates:         dedupe(matchAll(datePatterns, text)),
		Emails:        dedupe(emailPattern.FindAllString(text, -1)),
		URLs:          dedupe(urlPattern.FindAllString(text, -1)),
		Keywords:      Keywords(text, topKeywords),
	}

	e.log.Info("entity extraction completed",
		zap.String("source_url", sourceURL),
		zap.Int("people", len(out.People)),
		zap.Int("places", len(out.Places)),
		zap.Int("organizations", len(out.Organizations)),
		zap.Int("keywords", len(out.Keywords)))

	return out
}

// organizations applies the suffix regexes plus Title-Case phrase
// detection, filtered against the false-positive stoplist.
func (e *Extractor) organizations(text string) []string {
	var orgs []string

	for _, m := range companyPattern.FindAllString(text, -1) {
		orgs = append(orgs, trimDeterminer(m))
	}
	for _, m := range agencyPattern.FindAllString(text, -1) {
		orgs = append(orgs, trimDeterminer(m))
	}
	orgs = append(orgs, titleCasePhrases(text)...)

	return dedupe(orgs)
}

// trimDeterminer drops a leading article so "The Acme Corp" and "Acme Corp"
// collapse to one name.
func trimDeterminer(s string) string {
	s = strings.TrimSpace(s)
	for _, article := range []string{"The ", "A ", "An "} {
		if rest := strings.TrimPrefix(s, article); rest != s && strings.Contains(rest, " ") {
			return rest
		}
	}
	return s
}

// titleCasePhrases finds 2-5 word runs of capitalized words that are not
// known geographic false positives.
func titleCasePhrases(text string) []string {
	var phrases []string
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		words := strings.Fields(sentence)
		for i := 0; i <= len(words)-2; i++ {
			for j := 2; j <= 5 && i+j <= len(words); j++ {
				phrase := strings.Join(words[i:i+j], " ")
				if !titleCaseRun.MatchString(phrase) {
					continue
				}
				if orgStoplist[phrase] {
					continue
				}
				phrases = append(phrases, phrase)
			}
		}
	}
	return phrases
}

var titleCaseRun = regexp.MustCompile(`^[A-Z][a-z]*(?: [A-Z][a-z]*)+$`)

// orgStoplist names Title-Case phrases that are places, not organizations.
var orgStoplist = map[string]bool{
	"United States":  true,
	"New York":       true,
	"Los Angeles":    true,
	"San Francisco":  true,
	"Washington DC":  true,
	"New Jersey":     true,
	"New Mexico":     true,
	"New Hampshire":  true,
	"United Kingdom": true,
	"Great Britain":  true,
	"European Union": true,
	"Asia Pacific":   true,
	"Middle East":    true,
	"North America":  true,
	"South America":  true,
	"Latin America":  true,
}

func matchAll(patterns []*regexp.Regexp, text string) []string {
	var out []string
	for _, p := range patterns {
		out = append(out, p.FindAllString(text, -1)...)
	}
	return out
}

// dedupe removes case-insensitive duplicates, keeping first-seen order and
// original casing.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
