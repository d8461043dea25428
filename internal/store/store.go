// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists projects, research cycles, discovered sources,
// and review items. Two backends exist: an in-memory store for tests and
// ephemeral sessions, and a SQLite store for durable workspaces.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/meshintel/opera/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary of the pipeline.
type Store interface {
	CreateProject(ctx context.Context, p *types.Project) error
	Project(ctx context.Context, id string) (*types.Project, error)
	Projects(ctx context.Context) ([]types.Project, error)

	// AddItem appends one item to a project. Item names are the natural
	// dedup key: adding a second item with the same normalized name and
	// type is rejected.
	AddItem(ctx context.Context, projectID string, item types.ProjectItem) error
	Items(ctx context.Context, projectID string) ([]types.ProjectItem, error)

	CreateCycle(ctx context.Context, c *types.ResearchCycle) error
	UpdateCycle(ctx context.Context, c *types.ResearchCycle) error
	NextCycleNumber(ctx context.Context, projectID string) (int, error)
	CyclesFor(ctx context.Context, projectID string) ([]types.ResearchCycle, error)

	SaveSource(ctx context.Context, projectID string, src types.SourceRecord) error
	SourcesFor(ctx context.Context, projectID string) ([]types.SourceRecord, error)

	SaveReview(ctx context.Context, item *types.ReviewItem) error
	UpdateReview(ctx context.Context, item *types.ReviewItem) error
	ReviewsFor(ctx context.Context, projectID string) ([]types.ReviewItem, error)

	Close() error
}

// Open builds the configured backend.
func Open(cfg types.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case types.StoreMemory, "":
		return NewMemory(), nil
	case types.StoreSQLite:
		return NewSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
