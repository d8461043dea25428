// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xref matches newly extracted findings against a project's
// existing items and scores how much to trust each finding.
package xref

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/location"
	"github.com/meshintel/opera/internal/nlp"
	"github.com/meshintel/opera/pkg/types"
)

// MatchThreshold is the minimum score for a finding to count as a
// duplicate of an existing item.
const MatchThreshold = 0.70

// earthRadiusMeters for the Haversine distance.
const earthRadiusMeters = 6371000

// Match is the cross-reference verdict for one finding.
type Match struct {
	Finding     types.Finding
	MatchedItem *types.ProjectItem
	Confidence  float64
	IsNew       bool
}

// Referencer cross-references findings against project items.
type Referencer struct {
	log *zap.Logger
}

// NewReferencer returns a Referencer logging through log.
func NewReferencer(log *zap.Logger) *Referencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Referencer{log: log}
}

// CrossReference scores every finding against every existing item. A
// finding whose best accepted score is at or above MatchThreshold is a
// duplicate of that item; otherwise it is new with confidence 1.0,
// pending independent confidence scoring.
func (r *Referencer) CrossReference(findings []types.Finding, items []types.ProjectItem) []Match {
	matches := make([]Match, 0, len(findings))
	dupes := 0
	for _, f := range findings {
		item, score := bestMatch(f, items)
		if item != nil {
			matches = append(matches, Match{Finding: f, MatchedItem: item, Confidence: score})
			dupes++
			continue
		}
		matches = append(matches, Match{Finding: f, Confidence: 1.0, IsNew: true})
	}

	r.log.Info("cross-reference complete",
		zap.Int("findingCount", len(findings)),
		zap.Int("duplicateCount", dupes))
	return matches
}

func bestMatch(f types.Finding, items []types.ProjectItem) (*types.ProjectItem, float64) {
	var best *types.ProjectItem
	bestScore := 0.0
	for i := range items {
		score := MatchScore(f, items[i])
		if score > bestScore && score >= MatchThreshold {
			best = &items[i]
			bestScore = score
		}
	}
	return best, bestScore
}

// MatchScore computes the similarity between a finding and one item,
// using the matching strategy for the item's type.
func MatchScore(f types.Finding, item types.ProjectItem) float64 {
	if f.Name == "" && f.Address == "" {
		return 0
	}

	switch item.Type {
	case types.ItemLocation:
		return locationMatchScore(f, item)
	case types.ItemEntity, types.ItemOrganization:
		return entityMatchScore(f, item)
	default:
		return nameSimilarity(findingName(f), item.Name)
	}
}

func locationMatchScore(f types.Finding, item types.ProjectItem) float64 {
	score := 0.0
	if location.Same(findingName(f), item.Name) {
		score = 0.95
	} else {
		score = nameSimilarity(findingName(f), item.Name)
	}

	if f.Address != "" && item.Data != nil {
		if addr := item.Data["address"]; addr != "" &&
			strings.EqualFold(f.Address, addr) {
			score = math.Max(score, 0.9)
		}
	}

	if f.Coords != nil && item.Coords != nil {
		distance := Haversine(f.Coords.Latitude, f.Coords.Longitude,
			item.Coords.Latitude, item.Coords.Longitude)
		switch {
		case distance < 100:
			score = math.Max(score, 0.95)
		case distance < 1000:
			score = math.Max(score, 0.85)
		}
	}
	return score
}

func entityMatchScore(f types.Finding, item types.ProjectItem) float64 {
	if nlp.SameEntity(f.Name, item.Name, nlp.SameEntityThreshold) {
		return 0.95
	}
	return nameSimilarity(f.Name, item.Name)
}

func nameSimilarity(a, b string) float64 {
	return nlp.Similarity(strings.ToLower(a), strings.ToLower(b))
}

func findingName(f types.Finding) string {
	if f.Name != "" {
		return f.Name
	}
	return f.Address
}

// Haversine returns the great-circle distance between two coordinates in
// meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// ConfidenceScore blends source credibility (up to 30%), a repeat-mention
// boost (up to 20%), and a source-type boost. The result is on the 0-1
// scale, capped at 1.0.
func ConfidenceScore(source *types.SourceRecord, mentionCount int) float64 {
	score := 0.0

	if source != nil && source.CredibilityScore > 0 {
		score += source.CredibilityScore / 10 * 0.3
	} else {
		score += 0.15
	}

	if mentionCount > 1 {
		score += math.Min(float64(mentionCount)*0.05, 0.2)
	}

	if source != nil {
		switch source.SourceType {
		case "news":
			score += 0.1
		case "public_record":
			score += 0.15
		case "web":
			score += 0.05
		}
	}

	return math.Min(score, 1.0)
}

// FilterByConfidence drops findings below min.
func FilterByConfidence(findings []types.Finding, min float64) []types.Finding {
	var kept []types.Finding
	for _, f := range findings {
		if f.Confidence >= min {
			kept = append(kept, f)
		}
	}
	return kept
}

// DeduplicateFindings collapses findings with the same normalized name or
// address, keeping the higher-confidence one in first-seen position.
func DeduplicateFindings(findings []types.Finding) []types.Finding {
	index := make(map[string]int)
	var deduped []types.Finding
	for _, f := range findings {
		key := f.Key()
		if i, ok := index[key]; ok {
			if f.Confidence > deduped[i].Confidence {
				deduped[i] = f
			}
			continue
		}
		index[key] = len(deduped)
		deduped = append(deduped, f)
	}
	return deduped
}
