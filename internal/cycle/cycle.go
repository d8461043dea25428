// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cycle orchestrates one end-to-end research run: generate queries
// from project items, search, scrape, extract, cross-reference, and queue
// novel findings for human review.
package cycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/event"
	"github.com/meshintel/opera/internal/location"
	"github.com/meshintel/opera/internal/nlp"
	"github.com/meshintel/opera/internal/query"
	"github.com/meshintel/opera/internal/review"
	"github.com/meshintel/opera/internal/scrape"
	"github.com/meshintel/opera/internal/search"
	"github.com/meshintel/opera/internal/store"
	"github.com/meshintel/opera/internal/xref"
	"github.com/meshintel/opera/pkg/types"
)

// maxResultsPerQuery caps what one query requests from each provider.
const maxResultsPerQuery = 10

// snippetLength is the target context window around a finding mention.
const snippetLength = 150

// Manager runs research cycles. At most one cycle is active per project;
// cycles for distinct projects may run concurrently.
type Manager struct {
	store     store.Store
	searcher  *search.Aggregator
	scraper   *scrape.Scraper
	queries   *query.Generator
	entities  *nlp.Extractor
	locations *location.Extractor
	xrefs     *xref.Referencer
	reviews   *review.Queue
	emitter   event.Emitter
	cfg       types.ResearchConfig
	log       *zap.Logger

	mu     sync.Mutex
	active map[string]*types.ResearchCycle
}

// NewManager wires the pipeline stages together.
func NewManager(
	st store.Store,
	searcher *search.Aggregator,
	scraper *scrape.Scraper,
	entities *nlp.Extractor,
	locations *location.Extractor,
	reviews *review.Queue,
	em event.Emitter,
	cfg types.ResearchConfig,
	log *zap.Logger,
) *Manager {
	if em == nil {
		em = event.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:     st,
		searcher:  searcher,
		scraper:   scraper,
		queries:   query.NewGenerator(log),
		entities:  entities,
		locations: locations,
		xrefs:     xref.NewReferencer(log),
		reviews:   reviews,
		emitter:   em,
		cfg:       cfg,
		log:       log,
		active:    make(map[string]*types.ResearchCycle),
	}
}

// Active returns the running cycle for the project, if any.
func (m *Manager) Active(projectID string) (*types.ResearchCycle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.active[projectID]
	if !ok {
		return nil, false
	}
	snapshot := *c
	return &snapshot, true
}

// StartCycle runs one full research cycle for the project and returns the
// final cycle record. A second call while a cycle is active for the same
// project is rejected. Failures mark the cycle failed and release the
// active marker; the pipeline is then free to start a new cycle.
func (m *Manager) StartCycle(ctx context.Context, projectID, userID string) (*types.ResearchCycle, error) {
	if _, err := m.store.Project(ctx, projectID); err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}

	number, err := m.store.NextCycleNumber(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cycle number: %w", err)
	}
	cycle := &types.ResearchCycle{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		CycleNumber: number,
		Status:      types.CycleGeneratingQueries,
		StartedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	if running, ok := m.active[projectID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("cycle %d already running for project %s", running.CycleNumber, projectID)
	}
	m.active[projectID] = cycle
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.active, projectID)
		m.mu.Unlock()
	}()

	if err := m.store.CreateCycle(ctx, cycle); err != nil {
		return nil, fmt.Errorf("create cycle: %w", err)
	}

	m.log.Info("starting research cycle",
		zap.String("project_id", projectID),
		zap.String("cycle_id", cycle.ID),
		zap.Int("cycle_number", number))
	m.emitter.Emit("research:cycle_started", *cycle)

	if err := m.run(ctx, cycle, userID); err != nil {
		m.fail(ctx, cycle)
		return cycle, err
	}
	return cycle, nil
}

func (m *Manager) run(ctx context.Context, cycle *types.ResearchCycle, userID string) error {
	items, err := m.store.Items(ctx, cycle.ProjectID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	queries := m.queries.GenerateSmart(items, query.Options{
		MaxQueries:      m.maxQueries(),
		MaxCombinations: 3,
	})
	if len(queries) == 0 {
		return m.complete(ctx, cycle, 0, 0, "no queries to execute")
	}
	m.emitter.Emit("research:query_generation_complete", map[string]any{"queryCount": len(queries)})

	m.setStatus(ctx, cycle, types.CycleSearching)
	sources := m.search(ctx, cycle, queries)
	if len(sources) == 0 {
		return m.complete(ctx, cycle, 0, 0, "no sources found")
	}
	cycle.SourcesFound = len(sources)
	m.setStatus(ctx, cycle, types.CycleScraping)

	findings, bySource := m.scrapeAndExtract(ctx, cycle, sources)
	m.emitter.Emit("research:extraction_complete", map[string]any{"findingCount": len(findings)})

	m.setStatus(ctx, cycle, types.CycleExtracting)
	queued, err := m.crossReferenceAndQueue(ctx, cycle, findings, bySource)
	if err != nil {
		return err
	}

	return m.complete(ctx, cycle, len(sources), queued, "")
}

// search runs every query through the aggregator, deduplicating by
// normalized URL across queries and persisting each new source.
func (m *Manager) search(ctx context.Context, cycle *types.ResearchCycle, queries []types.SearchQuery) []types.SourceRecord {
	max := m.maxQueries()
	if len(queries) > max {
		queries = queries[:max]
	}

	seen := make(map[string]bool)
	var sources []types.SourceRecord
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		results := m.searcher.SearchAll(ctx, q.Query, search.Options{MaxResults: maxResultsPerQuery})
		for _, r := range results {
			key := search.NormalizeURL(r.URL)
			if seen[key] {
				continue
			}
			seen[key] = true
			if err := m.store.SaveSource(ctx, cycle.ProjectID, r); err != nil {
				m.log.Warn("save source failed", zap.String("url", r.URL), zap.Error(err))
				continue
			}
			sources = append(sources, r)
		}
		m.emitter.Emit("research:searching", map[string]any{
			"query":        q.Query,
			"resultsFound": len(results),
			"totalSources": len(sources),
		})
	}
	return sources
}

// scrapeAndExtract visits every scrapeable source and turns its text into
// findings. Unscrapeable, blocked, and empty pages are skipped without
// failing the cycle.
func (m *Manager) scrapeAndExtract(ctx context.Context, cycle *types.ResearchCycle, sources []types.SourceRecord) ([]types.Finding, map[string]*types.SourceRecord) {
	bySource := make(map[string]*types.SourceRecord, len(sources))
	var findings []types.Finding

	for i := range sources {
		src := &sources[i]
		bySource[src.URL] = src
		if ctx.Err() != nil {
			break
		}
		if !scrape.IsScrapeable(src.URL) {
			continue
		}

		page := m.scraper.Scrape(ctx, src.URL)
		if !page.OK() {
			m.log.Debug("source yielded no content",
				zap.String("url", src.URL),
				zap.String("error", page.Err))
			continue
		}

		src.FullText = page.Content
		if err := m.store.SaveSource(ctx, cycle.ProjectID, *src); err != nil {
			m.log.Warn("save source text failed", zap.String("url", src.URL), zap.Error(err))
		}

		extracted := m.entities.Extract(page.Content, src.URL)
		for _, person := range extracted.People {
			findings = append(findings, types.Finding{
				Kind:      types.FindingEntity,
				Name:      person,
				SourceURL: src.URL,
				Context:   contextAround(page.Content, person),
			})
		}
		for _, org := range extracted.Organizations {
			findings = append(findings, types.Finding{
				Kind:      types.FindingOrganization,
				Name:      org,
				SourceURL: src.URL,
				Context:   contextAround(page.Content, org),
			})
		}

		for _, loc := range m.locations.ExtractAndGeocode(ctx, page.Content, src.URL) {
			if loc.Confidence != location.ConfidenceHigh {
				continue
			}
			findings = append(findings, types.Finding{
				Kind:      types.FindingLocation,
				Name:      loc.Name,
				Address:   loc.Address,
				Coords:    loc.Coords,
				SourceURL: src.URL,
				Context:   contextAround(page.Content, loc.Name),
			})
		}
	}

	return xref.DeduplicateFindings(findings), bySource
}

// crossReferenceAndQueue scores findings against existing items and queues
// the novel, sufficiently confident ones for review.
func (m *Manager) crossReferenceAndQueue(ctx context.Context, cycle *types.ResearchCycle, findings []types.Finding, bySource map[string]*types.SourceRecord) (int, error) {
	items, err := m.store.Items(ctx, cycle.ProjectID)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}

	matches := m.xrefs.CrossReference(findings, items)
	minConfidence := m.cfg.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.5
	}

	queued := 0
	for _, match := range matches {
		if !match.IsNew {
			continue
		}
		confidence := xref.ConfidenceScore(bySource[match.Finding.SourceURL], 1)
		if confidence < minConfidence {
			continue
		}
		f := match.Finding
		f.Confidence = confidence
		if _, err := m.reviews.Enqueue(ctx, cycle.ProjectID, f, review.Origin{CycleID: cycle.ID}); err != nil {
			m.log.Warn("queue finding failed", zap.String("name", f.Name), zap.Error(err))
			continue
		}
		queued++
	}
	return queued, nil
}

func (m *Manager) complete(ctx context.Context, cycle *types.ResearchCycle, sources, queued int, message string) error {
	now := time.Now().UTC()
	cycle.Status = types.CycleCompleted
	cycle.SourcesFound = sources
	cycle.FindingsQueued = queued
	cycle.CompletedAt = &now
	if err := m.store.UpdateCycle(ctx, cycle); err != nil {
		return fmt.Errorf("complete cycle: %w", err)
	}

	payload := map[string]any{
		"cycle":          *cycle,
		"sourcesFound":   sources,
		"findingsQueued": queued,
	}
	if message != "" {
		payload["message"] = message
	}
	m.emitter.Emit("research:cycle_complete", payload)
	m.log.Info("cycle completed",
		zap.String("cycle_id", cycle.ID),
		zap.Int("sources", sources),
		zap.Int("findings", queued))
	return nil
}

func (m *Manager) fail(ctx context.Context, cycle *types.ResearchCycle) {
	now := time.Now().UTC()
	cycle.Status = types.CycleFailed
	cycle.CompletedAt = &now
	if err := m.store.UpdateCycle(ctx, cycle); err != nil {
		m.log.Warn("mark cycle failed", zap.String("cycle_id", cycle.ID), zap.Error(err))
	}
	m.emitter.Emit("research:cycle_failed", map[string]any{"cycleId": cycle.ID})
}

func (m *Manager) setStatus(ctx context.Context, cycle *types.ResearchCycle, status types.CycleStatus) {
	cycle.Status = status
	if err := m.store.UpdateCycle(ctx, cycle); err != nil {
		m.log.Warn("update cycle status",
			zap.String("cycle_id", cycle.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (m *Manager) maxQueries() int {
	if m.cfg.MaxQueriesPerCycle > 0 {
		return m.cfg.MaxQueriesPerCycle
	}
	return 50
}

// contextAround returns roughly snippetLength characters centered on the
// first mention of term, with ellipses marking truncated sides. An absent
// term yields an empty snippet.
func contextAround(text, term string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(term))
	if idx < 0 {
		return ""
	}
	start := idx - snippetLength/2
	if start < 0 {
		start = 0
	}
	end := idx + len(term) + snippetLength/2
	if end > len(text) {
		end = len(text)
	}
	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}
