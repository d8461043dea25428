// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package location pulls address-like substrings and place names from
// text and resolves them to coordinates.
package location

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/geocode"
	"github.com/meshintel/opera/internal/nlp"
	"github.com/meshintel/opera/pkg/types"
)

// Confidence levels for extracted candidates. High means geocoding
// succeeded; low candidates are kept for display but never auto-promoted.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// Candidate is one extracted location, geocoded when possible.
type Candidate struct {
	Name       string
	Address    string
	Coords     *types.LatLng
	City       string
	State      string
	Country    string
	Confidence string
}

var (
	// Street addresses: 123 Main St, New York.
	streetPattern = regexp.MustCompile(`(?i)\b\d+\s+[\w\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Circle|Cir|Court|Ct)[,\s]+[\w\s]+`)

	// Postal addresses: P.O. Box 123, Springfield.
	poBoxPattern = regexp.MustCompile(`(?i)P\.?O\.?\s+Box\s+\d+[,\s]+[\w\s]+`)

	// City, ST pairs: Portland, OR.
	cityStatePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,\s+[A-Z]{2}\b`)
)

// abbreviations maps common short forms to the place name they stand for.
var abbreviations = map[string]string{
	"ny":  "new york",
	"nyc": "new york city",
	"la":  "los angeles",
	"sf":  "san francisco",
	"dc":  "washington dc",
	"uk":  "united kingdom",
	"us":  "united states",
	"usa": "united states",
}

// Extractor finds location candidates in text and geocodes them.
type Extractor struct {
	entities *nlp.Extractor
	geo      geocode.Geocoder
	log      *zap.Logger
}

// NewExtractor returns an Extractor using geo to resolve candidates.
func NewExtractor(entities *nlp.Extractor, geo geocode.Geocoder, log *zap.Logger) *Extractor {
	if entities == nil {
		entities = nlp.NewExtractor(log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{entities: entities, geo: geo, log: log}
}

// ExtractAndGeocode pulls place names and address-like strings from text
// and geocodes each unique candidate. Successfully geocoded candidates are
// tagged high confidence; the rest are returned with low confidence and no
// coordinates. The geocoder paces its own calls.
func (e *Extractor) ExtractAndGeocode(ctx context.Context, text, sourceURL string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	extraction := e.entities.Extract(text, sourceURL)
	candidates := append([]string{}, extraction.Places...)
	candidates = append(candidates, ExtractAddresses(text)...)
	candidates = dedupeCaseInsensitive(candidates)

	e.log.Info("extracted location candidates",
		zap.String("source_url", sourceURL),
		zap.Int("count", len(candidates)))

	var out []Candidate
	geocoded := 0
	for _, name := range candidates {
		if ctx.Err() != nil {
			break
		}

		var results []geocode.Result
		if e.geo != nil {
			var err error
			results, err = e.geo.Geocode(ctx, name)
			if err != nil {
				e.log.Warn("geocoding error", zap.String("location", name), zap.Error(err))
			}
		}

		if len(results) > 0 {
			best := results[0]
			coords := best.Coords
			address := best.Address
			if address == "" {
				address = name
			}
			out = append(out, Candidate{
				Name:       strings.ToLower(name),
				Address:    address,
				Coords:     &coords,
				City:       best.City,
				State:      best.State,
				Country:    best.Country,
				Confidence: ConfidenceHigh,
			})
			geocoded++
			continue
		}

		out = append(out, Candidate{
			Name:       strings.ToLower(name),
			Address:    name,
			Confidence: ConfidenceLow,
		})
	}

	e.log.Info("location extraction complete",
		zap.String("source_url", sourceURL),
		zap.Int("extractedCount", len(out)),
		zap.Int("geocodedCount", geocoded))
	return out
}

// ExtractAddresses returns address-like substrings found by the street,
// PO box, and City/ST patterns.
func ExtractAddresses(text string) []string {
	var addresses []string
	for _, pattern := range []*regexp.Regexp{streetPattern, poBoxPattern, cityStatePattern} {
		for _, m := range pattern.FindAllString(text, -1) {
			addresses = append(addresses, strings.TrimSpace(m))
		}
	}
	return addresses
}

// NormalizeName canonicalizes a location name for comparison: lowercase,
// collapsed whitespace, leading article and trailing comma stripped.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Join(strings.Fields(n), " ")
	n = strings.TrimPrefix(n, "the ")
	return strings.TrimSuffix(n, ",")
}

// Same reports whether two location names refer to the same place: exact
// normalized match, substring containment, or a known abbreviation pair.
func Same(a, b string) bool {
	normA := NormalizeName(a)
	normB := NormalizeName(b)
	if normA == "" || normB == "" {
		return false
	}
	if normA == normB {
		return true
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return true
	}
	return isAbbreviationOf(normA, normB) || isAbbreviationOf(normB, normA)
}

func isAbbreviationOf(short, long string) bool {
	if len(short) >= len(long) {
		return false
	}
	return abbreviations[short] == long
}

func dedupeCaseInsensitive(items []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(item))
	}
	return out
}
