// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review implements the human-in-the-loop review queue. Findings
// produced by research cycles and background scrape jobs wait here until a
// user approves or rejects them; approval promotes the finding to a project
// item and may enqueue a follow-up scrape of its source page.
package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/event"
	"github.com/meshintel/opera/internal/geocode"
	"github.com/meshintel/opera/internal/jobs"
	"github.com/meshintel/opera/internal/scrape"
	"github.com/meshintel/opera/internal/store"
	"github.com/meshintel/opera/pkg/types"
)

// ScrapeJobType is the job-queue type for background scrapes of approved
// finding sources.
const ScrapeJobType = "scrape-approved-finding"

// scrapeJobPriority is the queue priority for approval-triggered scrapes.
const scrapeJobPriority = 5

var (
	// ErrNotFound is returned when no review matches the given reference.
	ErrNotFound = errors.New("review not found")

	// ErrAlreadyProcessed is returned when the review was approved or
	// rejected before. Approve and Reject take effect exactly once.
	ErrAlreadyProcessed = errors.New("review already processed")

	// ErrInvalidRef is returned for a reference that is neither a review
	// ID nor a positive pending-list index.
	ErrInvalidRef = errors.New("invalid review reference")
)

// ScrapeJob is the payload of a ScrapeJobType job.
type ScrapeJob struct {
	ReviewID  string            `json:"review_id"`
	SourceURL string            `json:"source_url"`
	ProjectID string            `json:"project_id"`
	Kind      types.FindingKind `json:"finding_type"`
	UserID    string            `json:"user_id"`
}

// Origin records where an enqueued finding came from. Cycle findings set
// CycleID; findings from a background scrape set ScrapedFrom to the review
// whose approval triggered the scrape.
type Origin struct {
	CycleID     string
	ScrapedFrom string
}

// Queue manages review items for all projects. It is safe for concurrent
// use; the store is the source of truth and the mutex only serializes the
// read-modify-write inside Approve and Reject.
type Queue struct {
	mu      sync.Mutex
	store   store.Store
	geo     geocode.Geocoder
	jobs    *jobs.Queue
	emitter event.Emitter
	cfg     types.ResearchConfig
	log     *zap.Logger
}

// NewQueue builds a review queue. geo is used to geocode location findings
// on demand at approval time; jq may be nil when background scraping is
// not wired (approvals then never enqueue scrape jobs).
func NewQueue(st store.Store, geo geocode.Geocoder, jq *jobs.Queue, em event.Emitter, cfg types.ResearchConfig, log *zap.Logger) *Queue {
	if em == nil {
		em = event.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{store: st, geo: geo, jobs: jq, emitter: em, cfg: cfg, log: log}
}

// Enqueue converts a finding to a review item and persists it. The
// finding's 0-1 confidence is converted to the queue's 0-10 scale here and
// nowhere else.
func (q *Queue) Enqueue(ctx context.Context, projectID string, f types.Finding, origin Origin) (*types.ReviewItem, error) {
	item := &types.ReviewItem{
		ID:             "review-" + uuid.NewString(),
		ProjectID:      projectID,
		CycleID:        origin.CycleID,
		FindingKind:    f.Kind,
		Name:           f.Name,
		Address:        f.Address,
		Coords:         f.Coords,
		Confidence:     f.Confidence * 10,
		ContextSnippet: f.Context,
		SourceURL:      f.SourceURL,
		Status:         types.ReviewPending,
		ScrapedFrom:    origin.ScrapedFrom,
		CreatedAt:      time.Now().UTC(),
	}
	if err := q.store.SaveReview(ctx, item); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	q.emitter.Emit("reviewQueue", *item)
	q.log.Debug("finding queued for review",
		zap.String("review_id", item.ID),
		zap.String("kind", string(item.FindingKind)),
		zap.String("name", item.DisplayName()))
	return item, nil
}

// Pending returns the project's unreviewed items in creation order.
func (q *Queue) Pending(ctx context.Context, projectID string) ([]types.ReviewItem, error) {
	all, err := q.store.ReviewsFor(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pending := make([]types.ReviewItem, 0, len(all))
	for _, r := range all {
		if !r.Reviewed {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// ItemsFor returns every review item for the project, reviewed or not.
func (q *Queue) ItemsFor(ctx context.Context, projectID string) ([]types.ReviewItem, error) {
	return q.store.ReviewsFor(ctx, projectID)
}

// resolve finds a review by reference: a full review ID, or a 1-based
// index into the pending list.
func (q *Queue) resolve(ctx context.Context, projectID, ref string) (*types.ReviewItem, error) {
	if strings.HasPrefix(ref, "review-") {
		all, err := q.store.ReviewsFor(ctx, projectID)
		if err != nil {
			return nil, err
		}
		for i := range all {
			if all[i].ID == ref {
				return &all[i], nil
			}
		}
		return nil, ErrNotFound
	}

	idx, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil || idx < 1 {
		return nil, ErrInvalidRef
	}
	pending, err := q.Pending(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if idx > len(pending) {
		return nil, ErrNotFound
	}
	return &pending[idx-1], nil
}

// Approve marks the review approved and promotes the finding to a project
// item according to its kind. Entities and organizations are added
// directly; a location without coordinates is geocoded first, and the
// whole approval aborts untouched if geocoding yields nothing; a keyword
// whose source is a web page adds no item and only triggers a scrape. If
// the source URL is scrapeable, a background scrape job is enqueued after
// a successful approval, subject to the auto-scrape settings.
func (q *Queue) Approve(ctx context.Context, projectID, ref, userID string) (*types.ReviewItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	review, err := q.resolve(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	if review.Reviewed {
		return nil, ErrAlreadyProcessed
	}

	// Resolve coordinates before mutating anything so a geocoding miss
	// leaves the review pending and the project untouched.
	coords := review.Coords
	if review.FindingKind == types.FindingLocation && coords == nil {
		address := review.Address
		if address == "" {
			address = review.Name
		}
		q.emitter.Emit("chat", fmt.Sprintf("geocoding location: %s...", address))
		results, err := q.geo.Geocode(ctx, address)
		if err != nil || len(results) == 0 {
			q.emitter.Emit("chat", "could not geocode location, skipping")
			return nil, fmt.Errorf("could not geocode location %q", address)
		}
		coords = &results[0].Coords
	}

	if err := q.promote(ctx, projectID, review, coords, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	review.Reviewed = true
	review.Status = types.ReviewApproved
	review.ReviewedAt = &now
	review.ReviewedBy = userID
	if err := q.store.UpdateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	q.emitter.Emit("reviewUpdated", map[string]any{"reviewId": review.ID, "status": string(review.Status)})
	q.log.Info("finding approved",
		zap.String("review_id", review.ID),
		zap.String("kind", string(review.FindingKind)),
		zap.String("name", review.DisplayName()))

	q.maybeScrape(review, userID)
	return review, nil
}

// promote adds the project item an approval implies. Keyword findings
// whose source is a web page add nothing: approving them only sanctions
// scraping the page for entities.
func (q *Queue) promote(ctx context.Context, projectID string, review *types.ReviewItem, coords *types.LatLng, userID string) error {
	var (
		itemType types.ItemType
		data     = map[string]string{}
	)
	switch review.FindingKind {
	case types.FindingLocation:
		itemType = types.ItemLocation
		address := review.Address
		if address == "" {
			address = review.Name
		}
		data["address"] = address
	case types.FindingOrganization:
		itemType = types.ItemOrganization
	case types.FindingKeyword:
		if review.HasWebSource() {
			q.emitter.Emit("chat", "webpage approved, scraping for entities...")
			return nil
		}
		itemType = types.ItemKeyword
	default:
		itemType = types.ItemEntity
	}
	if review.SourceURL != "" {
		data["source_url"] = review.SourceURL
	}
	data["discovered_via"] = "osint"

	name := strings.ToLower(review.DisplayName())
	existing, err := q.store.Items(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	for _, it := range existing {
		if it.Type == itemType && strings.EqualFold(strings.TrimSpace(it.Name), strings.TrimSpace(name)) {
			q.log.Debug("item already in project", zap.String("name", name))
			return nil
		}
	}

	item := types.ProjectItem{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      itemType,
		Coords:    coords,
		Data:      data,
		AddedBy:   userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.store.AddItem(ctx, projectID, item); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	q.emitter.Emit("chat", fmt.Sprintf("%s added: %s", itemType, name))
	return nil
}

// maybeScrape enqueues a background scrape of the approved finding's
// source page when the configuration and URL allow it.
func (q *Queue) maybeScrape(review *types.ReviewItem, userID string) {
	if q.jobs == nil || !review.HasWebSource() || !q.cfg.EnableAutoScraping {
		return
	}
	if !scrape.IsScrapeable(review.SourceURL) {
		return
	}
	// A keyword backed by a web page is really a discovered page; it
	// scrapes regardless of the kind allowlist.
	keywordWebpage := review.FindingKind == types.FindingKeyword
	if !keywordWebpage && !kindAllowed(q.cfg.AutoScrapeKinds, review.FindingKind) {
		return
	}
	job := q.jobs.Add(ScrapeJobType, ScrapeJob{
		ReviewID:  review.ID,
		SourceURL: review.SourceURL,
		ProjectID: review.ProjectID,
		Kind:      review.FindingKind,
		UserID:    userID,
	}, scrapeJobPriority)
	q.emitter.Emit("chat", "scraping page for additional entities...")
	q.log.Info("scrape job queued",
		zap.String("review_id", review.ID),
		zap.String("source_url", review.SourceURL),
		zap.String("job_id", job.ID))
}

// Reject marks the review rejected. No project item is created and the
// review cannot be re-processed afterwards.
func (q *Queue) Reject(ctx context.Context, projectID, ref, userID string) (*types.ReviewItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	review, err := q.resolve(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	if review.Reviewed {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	review.Reviewed = true
	review.Status = types.ReviewRejected
	review.ReviewedAt = &now
	review.ReviewedBy = userID
	if err := q.store.UpdateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	q.emitter.Emit("reviewUpdated", map[string]any{"reviewId": review.ID, "status": string(review.Status)})
	q.log.Info("finding rejected", zap.String("review_id", review.ID))
	return review, nil
}

func kindAllowed(kinds []types.FindingKind, k types.FindingKind) bool {
	for _, allowed := range kinds {
		if allowed == k {
			return true
		}
	}
	return false
}
