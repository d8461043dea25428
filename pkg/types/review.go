// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// ReviewStatus tracks the outcome of human review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewItem is a finding persisted in the review queue awaiting human
// approval or rejection. The transition to approved or rejected happens
// exactly once; Reviewed is true if and only if Status is approved or
// rejected.
type ReviewItem struct {
	ID        string `json:"id" yaml:"id"`
	ProjectID string `json:"project_id" yaml:"project_id"`

	// CycleID links the item to the cycle that produced it; empty for
	// items produced by a background scrape job.
	CycleID string `json:"cycle_id,omitempty" yaml:"cycle_id,omitempty"`

	FindingKind FindingKind `json:"finding_type" yaml:"finding_type"`

	Name    string  `json:"name" yaml:"name"`
	Address string  `json:"address,omitempty" yaml:"address,omitempty"`
	Coords  *LatLng `json:"coords,omitempty" yaml:"coords,omitempty"`

	// Confidence is on the review queue's 0-10 scale.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	ContextSnippet string `json:"context_snippet,omitempty" yaml:"context_snippet,omitempty"`
	SourceURL      string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	Reviewed bool         `json:"reviewed" yaml:"reviewed"`
	Status   ReviewStatus `json:"status" yaml:"status"`

	// ScrapedFrom is the ID of the review item whose approval triggered
	// the scrape that produced this one.
	ScrapedFrom string `json:"scraped_from,omitempty" yaml:"scraped_from,omitempty"`

	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty" yaml:"reviewed_at,omitempty"`
	ReviewedBy string     `json:"reviewed_by,omitempty" yaml:"reviewed_by,omitempty"`
}

// DisplayName returns the name, falling back to the address.
func (r ReviewItem) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Address
}

// HasWebSource reports whether the item's source URL points at an actual
// web page, as opposed to a placeholder.
func (r ReviewItem) HasWebSource() bool {
	return r.SourceURL != "" && r.SourceURL != "#" && strings.HasPrefix(r.SourceURL, "http")
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
