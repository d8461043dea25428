// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceRecord is a web page discovered by a search provider. URL is the
// natural key: two records with the same normalized URL within a cycle
// collapse to one.
type SourceRecord struct {
	ID string `json:"id" yaml:"id"`

	URL string `json:"url" yaml:"url"`

	Title string `json:"title" yaml:"title"`

	Snippet string `json:"snippet" yaml:"snippet"`

	// Provider names the search backend that found this record.
	Provider string `json:"provider" yaml:"provider"`

	// SourceType is a coarse classification used for confidence scoring:
	// "news", "public_record", or "web".
	SourceType string `json:"source_type,omitempty" yaml:"source_type,omitempty"`

	// FullText is the scraped page body, populated during the scraping step.
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`

	// CredibilityScore is on a 0-10 scale; new sources default to 5.
	CredibilityScore float64 `json:"credibility_score" yaml:"credibility_score"`

	DiscoveredAt time.Time `json:"discovered_at" yaml:"discovered_at"`
}

// FindingKind tags the variant of a Finding.
type FindingKind string

const (
	FindingEntity       FindingKind = "entity"
	FindingOrganization FindingKind = "organization"
	FindingLocation     FindingKind = "location"

	// FindingKeyword covers two cases the review workflow distinguishes by
	// SourceURL: a genuine free-text keyword, and a discovered webpage whose
	// approval only triggers a scrape.
	FindingKeyword FindingKind = "keyword"
)

// Finding is a candidate fact extracted from a source. It is ephemeral
// until promoted to a ReviewItem.
type Finding struct {
	Kind FindingKind `json:"kind"`

	Name string `json:"name"`

	// Address and Coords are set for location findings only.
	Address string  `json:"address,omitempty"`
	Coords  *LatLng `json:"coords,omitempty"`

	SourceURL string `json:"source_url"`

	// Context is a snippet of the source text surrounding the mention.
	Context string `json:"context,omitempty"`

	// Confidence is on the pipeline's internal 0-1 scale. It is converted
	// to the review queue's 0-10 scale exactly once, at enqueue time.
	Confidence float64 `json:"confidence"`
}

// Key returns the normalized dedup key for the finding: the lowercased
// name, falling back to the address.
func (f Finding) Key() string {
	if f.Name != "" {
		return normalizeKey(f.Name)
	}
	return normalizeKey(f.Address)
}
