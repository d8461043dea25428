// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/opera/pkg/types"
)

func TestHaversine(t *testing.T) {
	// Same point.
	assert.Zero(t, Haversine(40.7128, -74.0060, 40.7128, -74.0060))

	// Roughly 111 km per degree of latitude.
	d := Haversine(40.0, -74.0, 41.0, -74.0)
	assert.InDelta(t, 111195, d, 200)

	// About 50 meters.
	d = Haversine(40.7128, -74.0060, 40.71325, -74.0060)
	assert.InDelta(t, 50, d, 2)
}

func TestMatchScore_LocationCoordinateBoosts(t *testing.T) {
	item := types.ProjectItem{
		Name:   "city hall",
		Type:   types.ItemLocation,
		Coords: &types.LatLng{Latitude: 40.7128, Longitude: -74.0060},
	}

	near := types.Finding{
		Kind:   types.FindingLocation,
		Name:   "municipal building",
		Coords: &types.LatLng{Latitude: 40.71325, Longitude: -74.0060}, // ~50 m
	}
	assert.GreaterOrEqual(t, MatchScore(near, item), 0.95)

	within1km := types.Finding{
		Kind:   types.FindingLocation,
		Name:   "municipal building",
		Coords: &types.LatLng{Latitude: 40.7178, Longitude: -74.0060}, // ~550 m
	}
	score := MatchScore(within1km, item)
	assert.GreaterOrEqual(t, score, 0.85)
	assert.Less(t, score, 0.95)

	far := types.Finding{
		Kind:   types.FindingLocation,
		Name:   "completely different place",
		Coords: &types.LatLng{Latitude: 41.0, Longitude: -75.0},
	}
	assert.Less(t, MatchScore(far, item), MatchThreshold)
}

func TestMatchScore_LocationEquivalence(t *testing.T) {
	item := types.ProjectItem{Name: "new york", Type: types.ItemLocation}
	f := types.Finding{Kind: types.FindingLocation, Name: "NY"}
	assert.InDelta(t, 0.95, MatchScore(f, item), 0.001)
}

func TestMatchScore_AddressMatch(t *testing.T) {
	item := types.ProjectItem{
		Name: "warehouse",
		Type: types.ItemLocation,
		Data: map[string]string{"address": "123 Main Street, Springfield"},
	}
	f := types.Finding{
		Kind:    types.FindingLocation,
		Name:    "storage facility",
		Address: "123 MAIN STREET, SPRINGFIELD",
	}
	assert.GreaterOrEqual(t, MatchScore(f, item), 0.9)
}

func TestMatchScore_EntityFuzzyMatch(t *testing.T) {
	item := types.ProjectItem{Name: "alice smith", Type: types.ItemEntity}

	exact := types.Finding{Kind: types.FindingEntity, Name: "Alice Smith"}
	assert.InDelta(t, 0.95, MatchScore(exact, item), 0.001)

	contained := types.Finding{Kind: types.FindingEntity, Name: "Dr. Alice Smith"}
	assert.GreaterOrEqual(t, MatchScore(contained, item), 0.95)

	different := types.Finding{Kind: types.FindingEntity, Name: "Bob Jones"}
	assert.Less(t, MatchScore(different, item), MatchThreshold)
}

func TestCrossReference(t *testing.T) {
	r := NewReferencer(nil)
	items := []types.ProjectItem{
		{ID: "1", Name: "alice smith", Type: types.ItemEntity},
		{ID: "2", Name: "berlin", Type: types.ItemLocation},
	}
	findings := []types.Finding{
		{Kind: types.FindingEntity, Name: "Alice Smith"},
		{Kind: types.FindingEntity, Name: "Charlie Brown"},
	}

	matches := r.CrossReference(findings, items)
	require.Len(t, matches, 2)

	assert.False(t, matches[0].IsNew)
	require.NotNil(t, matches[0].MatchedItem)
	assert.Equal(t, "1", matches[0].MatchedItem.ID)
	assert.GreaterOrEqual(t, matches[0].Confidence, MatchThreshold)

	assert.True(t, matches[1].IsNew)
	assert.Nil(t, matches[1].MatchedItem)
	assert.Equal(t, 1.0, matches[1].Confidence)
}

func TestConfidenceScore(t *testing.T) {
	// No source: default credibility slice only.
	assert.InDelta(t, 0.15, ConfidenceScore(nil, 0), 0.001)

	// Credible news source with repeat mentions.
	news := &types.SourceRecord{CredibilityScore: 8, SourceType: "news"}
	got := ConfidenceScore(news, 3)
	// 8/10*0.3 + 3*0.05 + 0.1
	assert.InDelta(t, 0.49, got, 0.001)

	// Mention boost caps at 0.2.
	got = ConfidenceScore(news, 10)
	assert.InDelta(t, 0.24+0.2+0.1, got, 0.001)

	// Score caps at 1.0.
	top := &types.SourceRecord{CredibilityScore: 10, SourceType: "public_record"}
	assert.LessOrEqual(t, ConfidenceScore(top, 100), 1.0)
}

func TestFilterByConfidence(t *testing.T) {
	findings := []types.Finding{
		{Name: "keep", Confidence: 0.6},
		{Name: "drop", Confidence: 0.4},
		{Name: "edge", Confidence: 0.5},
	}
	kept := FilterByConfidence(findings, 0.5)
	require.Len(t, kept, 2)
	assert.Equal(t, "keep", kept[0].Name)
	assert.Equal(t, "edge", kept[1].Name)
}

func TestDeduplicateFindings(t *testing.T) {
	findings := []types.Finding{
		{Name: "Acme Corp", Confidence: 0.5},
		{Name: "acme corp", Confidence: 0.8}, // same key, higher confidence
		{Name: "Other Org", Confidence: 0.6},
	}
	deduped := DeduplicateFindings(findings)
	require.Len(t, deduped, 2)
	assert.InDelta(t, 0.8, deduped[0].Confidence, 0.001)
	assert.Equal(t, "Other Org", deduped[1].Name)
}
