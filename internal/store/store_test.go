// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/opera/pkg/types"
)

// backends runs a subtest against both store implementations.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLite(filepath.Join(t.TempDir(), "opera.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func newProject(t *testing.T, s Store) types.Project {
	t.Helper()
	p := types.Project{
		ID:        uuid.NewString(),
		Name:      "test project",
		CreatedBy: "tester",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreateProject(context.Background(), &p))
	return p
}

func TestProjectRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := newProject(t, s)

		got, err := s.Project(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, p.CreatedBy, got.CreatedBy)

		_, err = s.Project(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := s.Projects(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestItemsAppendAndDedup(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := newProject(t, s)

		item := types.ProjectItem{
			ID:        uuid.NewString(),
			Name:      "alice smith",
			Type:      types.ItemEntity,
			Data:      map[string]string{"source_url": "https://example.com"},
			AddedBy:   "tester",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.AddItem(ctx, p.ID, item))

		dup := item
		dup.ID = uuid.NewString()
		assert.Error(t, s.AddItem(ctx, p.ID, dup), "same name and type must be rejected")

		loc := types.ProjectItem{
			ID:        uuid.NewString(),
			Name:      "warehouse",
			Type:      types.ItemLocation,
			Coords:    &types.LatLng{Latitude: 40.7, Longitude: -74.0},
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.AddItem(ctx, p.ID, loc))

		items, err := s.Items(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "alice smith", items[0].Name)
		assert.Equal(t, "https://example.com", items[0].Data["source_url"])
		require.NotNil(t, items[1].Coords)
		assert.InDelta(t, 40.7, items[1].Coords.Latitude, 0.0001)
	})
}

func TestCycleLifecycle(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := newProject(t, s)

		n, err := s.NextCycleNumber(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		c := types.ResearchCycle{
			ID:          uuid.NewString(),
			ProjectID:   p.ID,
			CycleNumber: n,
			Status:      types.CycleGeneratingQueries,
			StartedAt:   time.Now().UTC(),
		}
		require.NoError(t, s.CreateCycle(ctx, &c))

		done := time.Now().UTC()
		c.Status = types.CycleCompleted
		c.SourcesFound = 4
		c.FindingsQueued = 2
		c.CompletedAt = &done
		require.NoError(t, s.UpdateCycle(ctx, &c))

		cycles, err := s.CyclesFor(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, cycles, 1)
		assert.Equal(t, types.CycleCompleted, cycles[0].Status)
		assert.Equal(t, 4, cycles[0].SourcesFound)
		require.NotNil(t, cycles[0].CompletedAt)

		n, err = s.NextCycleNumber(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestSourceRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := newProject(t, s)

		src := types.SourceRecord{
			ID:               uuid.NewString(),
			URL:              "https://example.com/page",
			Title:            "Example",
			Snippet:          "A snippet.",
			Provider:         "duckduckgo",
			SourceType:       "web",
			CredibilityScore: 5,
			DiscoveredAt:     time.Now().UTC(),
		}
		require.NoError(t, s.SaveSource(ctx, p.ID, src))

		sources, err := s.SourcesFor(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, src.URL, sources[0].URL)
		assert.Equal(t, "duckduckgo", sources[0].Provider)

		// Saving again with the same ID updates in place.
		src.FullText = "scraped body"
		require.NoError(t, s.SaveSource(ctx, p.ID, src))
		sources, err = s.SourcesFor(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, "scraped body", sources[0].FullText)
	})
}

func TestReviewRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := newProject(t, s)

		item := types.ReviewItem{
			ID:             uuid.NewString(),
			ProjectID:      p.ID,
			FindingKind:    types.FindingEntity,
			Name:           "charlie brown",
			Confidence:     6.5,
			ContextSnippet: "...mentioned charlie brown at the event...",
			SourceURL:      "https://example.com/article",
			Status:         types.ReviewPending,
			CreatedAt:      time.Now().UTC(),
		}
		require.NoError(t, s.SaveReview(ctx, &item))

		now := time.Now().UTC()
		item.Reviewed = true
		item.Status = types.ReviewApproved
		item.ReviewedAt = &now
		item.ReviewedBy = "tester"
		require.NoError(t, s.UpdateReview(ctx, &item))

		reviews, err := s.ReviewsFor(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.True(t, reviews[0].Reviewed)
		assert.Equal(t, types.ReviewApproved, reviews[0].Status)
		assert.Equal(t, "tester", reviews[0].ReviewedBy)
		require.NotNil(t, reviews[0].ReviewedAt)

		missing := item
		missing.ID = "missing"
		assert.ErrorIs(t, s.UpdateReview(ctx, &missing), ErrNotFound)
	})
}

func TestOpen(t *testing.T) {
	s, err := Open(types.StoreConfig{Driver: types.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(types.StoreConfig{Driver: types.StoreSQLite, Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open(types.StoreConfig{Driver: "bogus"})
	assert.Error(t, err)
}
