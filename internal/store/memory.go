// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/meshintel/opera/pkg/types"
)

// Memory is a map-backed Store. All methods are safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]types.Project
	items    map[string][]types.ProjectItem   // project id → items
	cycles   map[string][]types.ResearchCycle // project id → cycles
	sources  map[string][]types.SourceRecord  // project id → sources
	reviews  map[string][]types.ReviewItem    // project id → review items
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]types.Project),
		items:    make(map[string][]types.ProjectItem),
		cycles:   make(map[string][]types.ResearchCycle),
		sources:  make(map[string][]types.SourceRecord),
		reviews:  make(map[string][]types.ReviewItem),
	}
}

func (m *Memory) CreateProject(_ context.Context, p *types.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.projects[p.ID]; exists {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	m.projects[p.ID] = *p
	return nil
}

func (m *Memory) Project(_ context.Context, id string) (*types.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) Projects(_ context.Context) ([]types.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) AddItem(_ context.Context, projectID string, item types.ProjectItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	key := strings.ToLower(strings.TrimSpace(item.Name))
	for _, existing := range m.items[projectID] {
		if strings.ToLower(existing.Name) == key && existing.Type == item.Type {
			return fmt.Errorf("item %q already exists in project %s", item.Name, projectID)
		}
	}
	m.items[projectID] = append(m.items[projectID], item)
	return nil
}

func (m *Memory) Items(_ context.Context, projectID string) ([]types.ProjectItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ProjectItem(nil), m.items[projectID]...), nil
}

func (m *Memory) CreateCycle(_ context.Context, c *types.ResearchCycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[c.ProjectID] = append(m.cycles[c.ProjectID], *c)
	return nil
}

func (m *Memory) UpdateCycle(_ context.Context, c *types.ResearchCycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cycles := m.cycles[c.ProjectID]
	for i := range cycles {
		if cycles[i].ID == c.ID {
			cycles[i] = *c
			return nil
		}
	}
	return fmt.Errorf("cycle %s: %w", c.ID, ErrNotFound)
}

func (m *Memory) NextCycleNumber(_ context.Context, projectID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, c := range m.cycles[projectID] {
		if c.CycleNumber > max {
			max = c.CycleNumber
		}
	}
	return max + 1, nil
}

func (m *Memory) CyclesFor(_ context.Context, projectID string) ([]types.ResearchCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ResearchCycle(nil), m.cycles[projectID]...), nil
}

func (m *Memory) SaveSource(_ context.Context, projectID string, src types.SourceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sources := m.sources[projectID]
	for i := range sources {
		if sources[i].ID == src.ID {
			sources[i] = src
			return nil
		}
	}
	m.sources[projectID] = append(sources, src)
	return nil
}

func (m *Memory) SourcesFor(_ context.Context, projectID string) ([]types.SourceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.SourceRecord(nil), m.sources[projectID]...), nil
}

func (m *Memory) SaveReview(_ context.Context, item *types.ReviewItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[item.ProjectID] = append(m.reviews[item.ProjectID], *item)
	return nil
}

func (m *Memory) UpdateReview(_ context.Context, item *types.ReviewItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reviews := m.reviews[item.ProjectID]
	for i := range reviews {
		if reviews[i].ID == item.ID {
			reviews[i] = *item
			return nil
		}
	}
	return fmt.Errorf("review %s: %w", item.ID, ErrNotFound)
}

func (m *Memory) ReviewsFor(_ context.Context, projectID string) ([]types.ReviewItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ReviewItem(nil), m.reviews[projectID]...), nil
}

func (m *Memory) Close() error { return nil }
