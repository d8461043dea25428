// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/opera/internal/event"
	"github.com/meshintel/opera/internal/geocode"
	"github.com/meshintel/opera/internal/jobs"
	"github.com/meshintel/opera/internal/store"
	"github.com/meshintel/opera/pkg/types"
)

// stubGeocoder resolves a fixed set of addresses.
type stubGeocoder struct {
	known map[string]geocode.Result
	calls []string
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) ([]geocode.Result, error) {
	s.calls = append(s.calls, address)
	if r, ok := s.known[address]; ok {
		return []geocode.Result{r}, nil
	}
	return nil, nil
}

func (s *stubGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return "", nil
}

type fixture struct {
	queue   *Queue
	store   store.Store
	events  *event.Recorder
	geo     *stubGeocoder
	project string
}

func newFixture(t *testing.T, cfg types.ResearchConfig, jq *jobs.Queue) *fixture {
	t.Helper()
	st := store.NewMemory()
	project := &types.Project{ID: "proj-1", Name: "acme probe", CreatedAt: time.Now()}
	require.NoError(t, st.CreateProject(context.Background(), project))

	geo := &stubGeocoder{known: map[string]geocode.Result{
		"Portland, OR": {
			Coords:  types.LatLng{Latitude: 45.52, Longitude: -122.68},
			Address: "Portland, Multnomah County, Oregon, United States",
		},
	}}
	rec := &event.Recorder{}
	return &fixture{
		queue:   NewQueue(st, geo, jq, rec, cfg, nil),
		store:   st,
		events:  rec,
		geo:     geo,
		project: project.ID,
	}
}

func (f *fixture) enqueue(t *testing.T, finding types.Finding) *types.ReviewItem {
	t.Helper()
	item, err := f.queue.Enqueue(context.Background(), f.project, finding, Origin{CycleID: "cycle-1"})
	require.NoError(t, err)
	return item
}

func TestEnqueue_ConvertsConfidenceScale(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)

	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingEntity,
		Name:       "Alice Smith",
		SourceURL:  "https://example.com/article",
		Confidence: 0.82,
	})

	assert.Contains(t, item.ID, "review-")
	assert.InDelta(t, 8.2, item.Confidence, 0.001)
	assert.Equal(t, types.ReviewPending, item.Status)
	assert.False(t, item.Reviewed)
	assert.Equal(t, "cycle-1", item.CycleID)
	assert.Len(t, f.events.Named("reviewQueue"), 1)

	pending, err := f.queue.Pending(context.Background(), f.project)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestApprove_EntityByIndex(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	f.enqueue(t, types.Finding{
		Kind:       types.FindingEntity,
		Name:       "Alice Smith",
		SourceURL:  "https://example.com/article",
		Confidence: 0.8,
	})

	approved, err := f.queue.Approve(context.Background(), f.project, "1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, types.ReviewApproved, approved.Status)
	assert.True(t, approved.Reviewed)
	assert.Equal(t, "user-1", approved.ReviewedBy)

	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice smith", items[0].Name)
	assert.Equal(t, types.ItemEntity, items[0].Type)
	assert.Equal(t, "osint", items[0].Data["discovered_via"])
	assert.Equal(t, "https://example.com/article", items[0].Data["source_url"])

	updates := f.events.Named("reviewUpdated")
	require.Len(t, updates, 1)
}

func TestApprove_Idempotent(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	item := f.enqueue(t, types.Finding{Kind: types.FindingEntity, Name: "Bob Jones", Confidence: 0.7})

	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)

	_, err = f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	_, err = f.queue.Reject(context.Background(), f.project, item.ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestApprove_BadReferences(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	f.enqueue(t, types.Finding{Kind: types.FindingEntity, Name: "Bob Jones", Confidence: 0.7})

	_, err := f.queue.Approve(context.Background(), f.project, "review-does-not-exist", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.queue.Approve(context.Background(), f.project, "7", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.queue.Approve(context.Background(), f.project, "0", "user-1")
	assert.ErrorIs(t, err, ErrInvalidRef)

	_, err = f.queue.Approve(context.Background(), f.project, "garbage", "user-1")
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestApprove_LocationGeocodesOnDemand(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingLocation,
		Name:       "Portland, OR",
		Confidence: 0.6,
	})

	approved, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, approved.Reviewed)
	assert.Equal(t, []string{"Portland, OR"}, f.geo.calls)

	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.ItemLocation, items[0].Type)
	require.NotNil(t, items[0].Coords)
	assert.InDelta(t, 45.52, items[0].Coords.Latitude, 0.001)
	assert.Equal(t, "Portland, OR", items[0].Data["address"])
}

func TestApprove_LocationGeocodeFailureAborts(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingLocation,
		Name:       "Nowhere Special",
		Confidence: 0.6,
	})

	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not geocode location")

	// The review stays pending and no item leaks into the project.
	pending, err := f.queue.Pending(context.Background(), f.project)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestApprove_LocationWithCoordsSkipsGeocoding(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingLocation,
		Name:       "warehouse district",
		Address:    "500 Dock St",
		Coords:     &types.LatLng{Latitude: 47.6, Longitude: -122.3},
		Confidence: 0.6,
	})

	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)
	assert.Empty(t, f.geo.calls)

	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "500 Dock St", items[0].Data["address"])
}

func TestApprove_KeywordWebpageAddsNoItem(t *testing.T) {
	jq := jobs.NewQueue(nil, nil)
	received := make(chan ScrapeJob, 1)
	jq.RegisterWorker(ScrapeJobType, jobs.WorkerFunc(func(_ context.Context, data any, _ *jobs.Job) (any, error) {
		received <- data.(ScrapeJob)
		return nil, nil
	}))
	f := newFixture(t, types.DefaultConfig().Research, jq)

	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingKeyword,
		Name:       "offshore registry leak",
		SourceURL:  "https://example.com/leak-report",
		Confidence: 0.55,
	})

	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)

	// No keyword item, but the page is queued for scraping.
	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	assert.Empty(t, items)

	select {
	case job := <-received:
		assert.Equal(t, item.ID, job.ReviewID)
		assert.Equal(t, "https://example.com/leak-report", job.SourceURL)
		assert.Equal(t, types.FindingKeyword, job.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("scrape job never executed")
	}
}

func TestApprove_KeywordWithoutURLAddsKeywordItem(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingKeyword,
		Name:       "Shell Company",
		Confidence: 0.5,
	})

	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)

	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "shell company", items[0].Name)
	assert.Equal(t, types.ItemKeyword, items[0].Type)
}

func TestApprove_AutoScrapingDisabled(t *testing.T) {
	jq := jobs.NewQueue(nil, nil)
	executed := make(chan struct{}, 1)
	jq.RegisterWorker(ScrapeJobType, jobs.WorkerFunc(func(context.Context, any, *jobs.Job) (any, error) {
		executed <- struct{}{}
		return nil, nil
	}))
	cfg := types.DefaultConfig().Research
	cfg.EnableAutoScraping = false
	f := newFixture(t, cfg, jq)

	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingEntity,
		Name:       "Alice Smith",
		SourceURL:  "https://example.com/article",
		Confidence: 0.8,
	})
	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)

	jq.Wait()
	select {
	case <-executed:
		t.Fatal("scrape job ran despite auto-scraping being disabled")
	default:
	}
}

func TestApprove_KindNotInAllowlistSkipsScrape(t *testing.T) {
	jq := jobs.NewQueue(nil, nil)
	jq.RegisterWorker(ScrapeJobType, jobs.WorkerFunc(func(context.Context, any, *jobs.Job) (any, error) {
		return nil, nil
	}))
	cfg := types.DefaultConfig().Research
	cfg.AutoScrapeKinds = []types.FindingKind{types.FindingLocation}
	f := newFixture(t, cfg, jq)

	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingEntity,
		Name:       "Alice Smith",
		SourceURL:  "https://example.com/article",
		Confidence: 0.8,
	})
	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)

	jq.Wait()
	assert.Zero(t, jq.GetStatus().Total)
}

func TestApprove_DuplicateItemNameTolerated(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	require.NoError(t, f.store.AddItem(context.Background(), f.project, types.ProjectItem{
		ID:   "item-1",
		Name: "alice smith",
		Type: types.ItemEntity,
	}))

	item := f.enqueue(t, types.Finding{Kind: types.FindingEntity, Name: "Alice Smith", Confidence: 0.8})
	_, err := f.queue.Approve(context.Background(), f.project, item.ID, "user-1")
	require.NoError(t, err)

	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestReject_NoSideEffects(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	item := f.enqueue(t, types.Finding{
		Kind:       types.FindingEntity,
		Name:       "Alice Smith",
		SourceURL:  "https://example.com/article",
		Confidence: 0.8,
	})

	rejected, err := f.queue.Reject(context.Background(), f.project, "1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, types.ReviewRejected, rejected.Status)
	assert.Equal(t, item.ID, rejected.ID)

	items, err := f.store.Items(context.Background(), f.project)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, f.geo.calls)
}

func TestPending_IndexFollowsRemainingOrder(t *testing.T) {
	f := newFixture(t, types.DefaultConfig().Research, nil)
	f.enqueue(t, types.Finding{Kind: types.FindingEntity, Name: "First Person", Confidence: 0.8})
	second := f.enqueue(t, types.Finding{Kind: types.FindingEntity, Name: "Second Person", Confidence: 0.8})

	_, err := f.queue.Approve(context.Background(), f.project, "1", "user-1")
	require.NoError(t, err)

	// After the first approval the second review becomes index 1.
	approved, err := f.queue.Approve(context.Background(), f.project, "1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, approved.ID)
}
