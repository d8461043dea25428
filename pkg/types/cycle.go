// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CycleStatus is the research cycle state machine. Transitions run
// strictly forward through the working states to completed; failed is
// terminal and reachable from any state.
type CycleStatus string

const (
	CycleGeneratingQueries CycleStatus = "generating_queries"
	CycleSearching         CycleStatus = "searching"
	CycleScraping          CycleStatus = "scraping"
	CycleExtracting        CycleStatus = "extracting"
	CycleCompleted         CycleStatus = "completed"
	CycleFailed            CycleStatus = "failed"
)

// ResearchCycle records one end-to-end research run for a project. At most
// one cycle per project is active at a time.
type ResearchCycle struct {
	ID        string `json:"id" yaml:"id"`
	ProjectID string `json:"project_id" yaml:"project_id"`

	// CycleNumber is monotonic per project.
	CycleNumber int `json:"cycle_number" yaml:"cycle_number"`

	Status CycleStatus `json:"status" yaml:"status"`

	SourcesFound   int `json:"sources_found" yaml:"sources_found"`
	FindingsQueued int `json:"findings_queued" yaml:"findings_queued"`

	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Done reports whether the cycle reached a terminal state.
func (c ResearchCycle) Done() bool {
	return c.Status == CycleCompleted || c.Status == CycleFailed
}
