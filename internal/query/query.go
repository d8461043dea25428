// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns a project's items into a bounded, prioritized list
// of search queries.
package query

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/nlp"
	"github.com/meshintel/opera/pkg/types"
)

const (
	// DefaultMaxQueries bounds the pairwise strategy.
	DefaultMaxQueries = 20

	// DefaultMaxSmartQueries bounds the type-aware strategy.
	DefaultMaxSmartQueries = 50

	// dedupeThreshold is the token-overlap similarity above which two
	// query strings count as the same query.
	dedupeThreshold = 0.9
)

// Options controls query generation.
type Options struct {
	// MaxQueries caps the returned slice. Zero means the strategy default.
	MaxQueries int

	// MaxCombinations is the largest number of items joined into one
	// query. Triples are only generated when it is at least 3. Zero
	// means 3.
	MaxCombinations int
}

// Generator builds search queries from project items.
type Generator struct {
	log *zap.Logger
}

// NewGenerator returns a Generator logging through log. A nil logger
// discards output.
func NewGenerator(log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{log: log}
}

// Generate produces one query per unordered pair of items, joined with
// the AND operator so both terms must co-occur in results. Item types are
// ignored. Fewer than two items yields an empty slice.
func (g *Generator) Generate(items []types.ProjectItem, opts Options) []types.SearchQuery {
	maxQueries := opts.MaxQueries
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}

	if len(items) < 2 {
		return nil
	}

	var queries []types.SearchQuery
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			queries = append(queries, types.SearchQuery{
				Query:    cleanTerm(items[i].Name) + " AND " + cleanTerm(items[j].Name),
				Items:    []types.ProjectItem{items[i], items[j]},
				Priority: 1,
			})
		}
	}

	queries = Deduplicate(queries, dedupeThreshold)
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	g.log.Info("generated search queries",
		zap.Int("itemCount", len(items)),
		zap.Int("queryCount", len(queries)))
	return queries
}

// GenerateSmart produces type-aware query combinations: single-item
// queries, entity+keyword, entity+location, organization+location,
// entity+organization, and entity+keyword+location triples. Queries are
// sorted by priority (lower first, stable) and capped.
func (g *Generator) GenerateSmart(items []types.ProjectItem, opts Options) []types.SearchQuery {
	maxQueries := opts.MaxQueries
	if maxQueries <= 0 {
		maxQueries = DefaultMaxSmartQueries
	}
	maxCombinations := opts.MaxCombinations
	if maxCombinations <= 0 {
		maxCombinations = 3
	}

	if len(items) < 2 {
		return nil
	}

	var entities, organizations, keywords, locations []types.ProjectItem
	for _, item := range items {
		switch item.Type {
		case types.ItemEntity:
			entities = append(entities, item)
		case types.ItemOrganization:
			organizations = append(organizations, item)
		case types.ItemKeyword:
			keywords = append(keywords, item)
		case types.ItemLocation:
			locations = append(locations, item)
		}
	}

	var queries []types.SearchQuery

	// Single-item queries for everything searchable on its own.
	for _, item := range concat(entities, organizations, keywords) {
		queries = append(queries, types.SearchQuery{
			Query:    cleanTerm(item.Name),
			Items:    []types.ProjectItem{item},
			Priority: 1,
		})
	}

	// Entity + keyword. Slices are capped to keep the combination count
	// from exploding on large projects.
	for _, entity := range head(entities, 10) {
		for _, keyword := range head(keywords, 10) {
			queries = append(queries, types.SearchQuery{
				Query:    quote(entity.Name) + " " + cleanTerm(keyword.Name),
				Items:    []types.ProjectItem{entity, keyword},
				Priority: 2,
			})
		}
	}

	// Entity + location.
	for _, entity := range head(entities, 10) {
		for _, location := range head(locations, 10) {
			queries = append(queries, types.SearchQuery{
				Query:    quote(entity.Name) + " " + quote(location.Name),
				Items:    []types.ProjectItem{entity, location},
				Priority: 3,
			})
		}
	}

	// Organization + location.
	for _, org := range head(organizations, 5) {
		for _, location := range head(locations, 10) {
			queries = append(queries, types.SearchQuery{
				Query:    quote(org.Name) + " " + quote(location.Name),
				Items:    []types.ProjectItem{org, location},
				Priority: 2,
			})
		}
	}

	// Entity + organization.
	for _, entity := range head(entities, 10) {
		for _, org := range head(organizations, 5) {
			queries = append(queries, types.SearchQuery{
				Query:    quote(entity.Name) + " " + quote(org.Name),
				Items:    []types.ProjectItem{entity, org},
				Priority: 2,
			})
		}
	}

	// Entity + keyword + location triples.
	if maxCombinations >= 3 {
		for _, entity := range head(entities, 5) {
			for _, keyword := range head(keywords, 5) {
				for _, location := range head(locations, 5) {
					queries = append(queries, types.SearchQuery{
						Query:    quote(entity.Name) + " " + cleanTerm(keyword.Name) + " " + quote(location.Name),
						Items:    []types.ProjectItem{entity, keyword, location},
						Priority: 3,
					})
				}
			}
		}
	}

	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].Priority < queries[j].Priority
	})

	queries = Deduplicate(queries, dedupeThreshold)
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	g.log.Info("generated smart search queries",
		zap.Int("entityCount", len(entities)),
		zap.Int("organizationCount", len(organizations)),
		zap.Int("keywordCount", len(keywords)),
		zap.Int("locationCount", len(locations)),
		zap.Int("queryCount", len(queries)))
	return queries
}

// Deduplicate drops queries whose string is near-identical (token-overlap
// similarity at or above threshold) to an earlier query, preserving order.
func Deduplicate(queries []types.SearchQuery, threshold float64) []types.SearchQuery {
	var kept []types.SearchQuery
	var seen []string
	for _, q := range queries {
		normalized := strings.ToLower(strings.TrimSpace(q.Query))
		duplicate := false
		for _, prior := range seen {
			if nlp.Similarity(normalized, prior) >= threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			seen = append(seen, normalized)
			kept = append(kept, q)
		}
	}
	return kept
}

// cleanTerm strips surrounding quotes left over from user input.
func cleanTerm(term string) string {
	return strings.Trim(strings.TrimSpace(term), `"'`)
}

func quote(term string) string {
	return `"` + cleanTerm(term) + `"`
}

func head(items []types.ProjectItem, n int) []types.ProjectItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func concat(groups ...[]types.ProjectItem) []types.ProjectItem {
	var all []types.ProjectItem
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}
