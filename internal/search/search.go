// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans queries out to web search providers and merges the
// results into deduplicated source records.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meshintel/opera/pkg/types"
)

// defaultCredibility is the 0-10 credibility score assigned to newly
// discovered sources before any assessment.
const defaultCredibility = 5

// Options holds per-call search parameters.
type Options struct {
	// MaxResults caps results per provider. Zero means the provider default.
	MaxResults int
}

// Provider searches one external backend. Implementations hold their own
// rate limiter: consecutive calls to the same provider serialize, while
// distinct providers run concurrently.
type Provider interface {
	Name() string

	// Priority orders providers for dedup: on a URL collision the record
	// from the lower-priority-number provider is kept.
	Priority() int

	// Enabled reports whether the provider has the credentials it needs.
	Enabled() bool

	Search(ctx context.Context, query string, opts Options) ([]types.SourceRecord, error)
}

// Aggregator fans a query out to all enabled providers.
type Aggregator struct {
	providers []Provider
	log       *zap.Logger
}

// NewAggregator returns an Aggregator over the given providers. A nil
// logger discards output.
func NewAggregator(log *zap.Logger, providers ...Provider) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{providers: providers, log: log}
}

// Enabled returns the enabled providers in priority order.
func (a *Aggregator) Enabled() []Provider {
	var enabled []Provider
	for _, p := range a.providers {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority() < enabled[j].Priority()
	})
	return enabled
}

// SearchAll queries every enabled provider concurrently. A provider
// failure is logged and contributes nothing; it never fails the call.
// Results are deduplicated by normalized URL, keeping the first occurrence
// in provider-priority order, and stamped with an ID and discovery time.
func (a *Aggregator) SearchAll(ctx context.Context, query string, opts Options) []types.SourceRecord {
	enabled := a.Enabled()
	if len(enabled) == 0 {
		a.log.Warn("no search providers enabled", zap.String("query", query))
		return nil
	}

	type providerResult struct {
		records  []types.SourceRecord
		err      error
		name     string
		priority int
	}

	ch := make(chan providerResult, len(enabled))
	var wg sync.WaitGroup
	for _, p := range enabled {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			records, err := p.Search(ctx, query, opts)
			ch <- providerResult{records: records, err: err, name: p.Name(), priority: p.Priority()}
		}(p)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	byPriority := make(map[int][]types.SourceRecord)
	var priorities []int
	total := 0
	for pr := range ch {
		if pr.err != nil {
			a.log.Warn("search provider failed",
				zap.String("provider", pr.name),
				zap.String("query", query),
				zap.Error(pr.err))
			continue
		}
		if _, ok := byPriority[pr.priority]; !ok {
			priorities = append(priorities, pr.priority)
		}
		byPriority[pr.priority] = append(byPriority[pr.priority], pr.records...)
		total += len(pr.records)
	}
	sort.Ints(priorities)

	seen := make(map[string]bool)
	var merged []types.SourceRecord
	now := time.Now()
	for _, priority := range priorities {
		for _, r := range byPriority[priority] {
			key := NormalizeURL(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			if r.SourceType == "" {
				r.SourceType = classifySourceType(r.URL)
			}
			if r.CredibilityScore == 0 {
				r.CredibilityScore = defaultCredibility
			}
			r.DiscoveredAt = now
			merged = append(merged, r)
		}
	}

	a.log.Info("multi-provider search complete",
		zap.String("query", query),
		zap.Int("providerCount", len(enabled)),
		zap.Int("totalResults", total),
		zap.Int("dedupedResults", len(merged)))
	return merged
}

// NormalizeURL returns the dedup key for a source URL.
func NormalizeURL(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

// classifySourceType buckets a URL into the coarse source categories that
// feed confidence scoring.
func classifySourceType(u string) string {
	host := strings.ToLower(u)
	switch {
	case strings.Contains(host, "news"), strings.Contains(host, "reuters.com"),
		strings.Contains(host, "apnews.com"), strings.Contains(host, "bbc.c"):
		return "news"
	case strings.Contains(host, ".gov"), strings.Contains(host, "courtlistener"),
		strings.Contains(host, "sec.gov"):
		return "public_record"
	default:
		return "web"
	}
}
