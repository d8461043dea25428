// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/jobs"
	"github.com/meshintel/opera/internal/location"
	"github.com/meshintel/opera/internal/nlp"
	"github.com/meshintel/opera/internal/scrape"
	"github.com/meshintel/opera/internal/store"
	"github.com/meshintel/opera/pkg/types"
)

// Scraped-finding confidences on the finding's 0-1 scale. Page-scrape
// findings rank below cycle findings; geocoded locations rank slightly
// above names and organizations, keywords below both.
const (
	scrapedEntityConfidence   = 0.55
	scrapedOrgConfidence      = 0.55
	scrapedLocationConfidence = 0.60
	scrapedKeywordConfidence  = 0.50
)

const minKeywordLength = 3

// ScrapeResult summarizes one background scrape job.
type ScrapeResult struct {
	Scraped bool   `json:"scraped"`
	Reason  string `json:"reason,omitempty"`
	Found   int    `json:"entities_found"`
	Added   int    `json:"entities_added"`
	Skipped int    `json:"skipped"`
}

// ScrapeWorker executes ScrapeJobType jobs: it scrapes an approved
// finding's source page, extracts entities and locations, and feeds the
// novel ones back into the review queue with the approved review as their
// ScrapedFrom origin.
type ScrapeWorker struct {
	scraper   *scrape.Scraper
	entities  *nlp.Extractor
	locations *location.Extractor
	store     store.Store
	queue     *Queue
	cfg       types.ResearchConfig
	log       *zap.Logger
}

// NewScrapeWorker builds the worker. Register it on the job queue under
// ScrapeJobType.
func NewScrapeWorker(scraper *scrape.Scraper, entities *nlp.Extractor, locations *location.Extractor, st store.Store, q *Queue, cfg types.ResearchConfig, log *zap.Logger) *ScrapeWorker {
	if entities == nil {
		entities = nlp.NewExtractor(log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ScrapeWorker{scraper: scraper, entities: entities, locations: locations, store: st, queue: q, cfg: cfg, log: log}
}

// Execute implements jobs.Worker. Scrape failures are results, not errors:
// a blocked or empty page completes the job rather than burning retries.
func (w *ScrapeWorker) Execute(ctx context.Context, data any, job *jobs.Job) (any, error) {
	payload, ok := data.(ScrapeJob)
	if !ok {
		return nil, fmt.Errorf("unexpected job payload %T", data)
	}
	if payload.SourceURL == "" {
		return nil, fmt.Errorf("scrape job missing source URL")
	}
	w.log.Info("scrape worker started",
		zap.String("review_id", payload.ReviewID),
		zap.String("source_url", payload.SourceURL),
		zap.String("job_id", job.ID))

	if !scrape.IsScrapeable(payload.SourceURL) {
		return ScrapeResult{Reason: "url_not_scrapeable"}, nil
	}

	page := w.scraper.Scrape(ctx, payload.SourceURL)
	if !page.OK() {
		reason := "no_content"
		if page.Blocked {
			reason = "blocked"
		}
		w.log.Warn("scrape yielded no content",
			zap.String("source_url", payload.SourceURL),
			zap.String("error", page.Err))
		return ScrapeResult{Reason: reason}, nil
	}

	extracted := w.entities.Extract(page.Content, payload.SourceURL)
	locs := w.locations.ExtractAndGeocode(ctx, page.Content, payload.SourceURL)

	dup, err := w.dedupIndex(ctx, payload.ProjectID)
	if err != nil {
		return nil, err
	}

	maxPerKind := w.cfg.MaxEntitiesPerPage
	if maxPerKind <= 0 {
		maxPerKind = 10
	}
	result := ScrapeResult{Scraped: true}

	enqueue := func(f types.Finding) error {
		f.SourceURL = payload.SourceURL
		f.Context = contextSnippet(page.Content, f.Name, 200)
		_, err := w.queue.Enqueue(ctx, payload.ProjectID, f, Origin{ScrapedFrom: payload.ReviewID})
		if err != nil {
			return err
		}
		result.Added++
		return nil
	}

	people := capped(extracted.People, maxPerKind)
	result.Found += len(extracted.People)
	result.Skipped += len(extracted.People) - len(people)
	for _, person := range people {
		if dup.seen(person, types.FindingEntity) {
			result.Skipped++
			continue
		}
		if err := enqueue(types.Finding{Kind: types.FindingEntity, Name: person, Confidence: scrapedEntityConfidence}); err != nil {
			return nil, err
		}
	}

	orgs := capped(extracted.Organizations, maxPerKind)
	result.Found += len(extracted.Organizations)
	result.Skipped += len(extracted.Organizations) - len(orgs)
	for _, org := range orgs {
		if dup.seen(org, types.FindingOrganization) {
			result.Skipped++
			continue
		}
		if err := enqueue(types.Finding{Kind: types.FindingOrganization, Name: org, Confidence: scrapedOrgConfidence}); err != nil {
			return nil, err
		}
	}

	// Only confidently geocoded locations are worth a reviewer's time.
	high := make([]location.Candidate, 0, len(locs))
	for _, loc := range locs {
		if loc.Confidence == location.ConfidenceHigh {
			high = append(high, loc)
		}
	}
	result.Found += len(locs)
	if len(high) > maxPerKind {
		high = high[:maxPerKind]
	}
	result.Skipped += len(locs) - len(high)
	for _, loc := range high {
		if dup.seen(loc.Name, types.FindingLocation) {
			result.Skipped++
			continue
		}
		if err := enqueue(types.Finding{
			Kind:       types.FindingLocation,
			Name:       loc.Name,
			Address:    loc.Address,
			Coords:     loc.Coords,
			Confidence: scrapedLocationConfidence,
		}); err != nil {
			return nil, err
		}
	}

	keywords := capped(extracted.Keywords, 2*maxPerKind)
	result.Found += len(extracted.Keywords)
	result.Skipped += len(extracted.Keywords) - len(keywords)
	for _, kw := range keywords {
		if len(kw) < minKeywordLength || dup.seen(kw, types.FindingKeyword) {
			result.Skipped++
			continue
		}
		if err := enqueue(types.Finding{Kind: types.FindingKeyword, Name: kw, Confidence: scrapedKeywordConfidence}); err != nil {
			return nil, err
		}
	}

	w.log.Info("scrape worker completed",
		zap.String("review_id", payload.ReviewID),
		zap.Int("found", result.Found),
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// dedupIndex snapshots the names already known to the project: existing
// items plus unreviewed queue entries.
type dedupIndex struct {
	names map[string]types.FindingKind
}

func (w *ScrapeWorker) dedupIndex(ctx context.Context, projectID string) (*dedupIndex, error) {
	idx := &dedupIndex{names: map[string]types.FindingKind{}}
	items, err := w.store.Items(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	for _, it := range items {
		idx.names[normalKey(it.Name)] = types.FindingKind(it.Type)
	}
	reviews, err := w.store.ReviewsFor(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	for _, r := range reviews {
		if !r.Reviewed {
			idx.names[normalKey(r.DisplayName())] = r.FindingKind
		}
	}
	return idx, nil
}

// seen reports whether name is already tracked. Entities additionally use
// fuzzy matching so "Dr. Alice Smith" does not re-queue "alice smith".
func (d *dedupIndex) seen(name string, kind types.FindingKind) bool {
	key := normalKey(name)
	if key == "" {
		return true
	}
	if _, ok := d.names[key]; ok {
		return true
	}
	if kind == types.FindingEntity {
		for existing, existingKind := range d.names {
			if existingKind == types.FindingEntity && nlp.SameEntity(existing, name, nlp.SameEntityThreshold) {
				return true
			}
		}
	}
	// Remember it so one page cannot queue the same name twice.
	d.names[key] = kind
	return false
}

// contextSnippet returns up to maxLen characters of text around the first
// mention of name, or the head of the text when name is absent.
func contextSnippet(text, name string, maxLen int) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(name))
	if idx < 0 {
		if len(text) > maxLen {
			return strings.TrimSpace(text[:maxLen])
		}
		return strings.TrimSpace(text)
	}
	start := idx - 50
	if start < 0 {
		start = 0
	}
	end := idx + len(name) + 150
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}

func capped(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func normalKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
