package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lebroads/pothole-map/internal/boundary"
	"github.com/lebroads/pothole-map/internal/events"
	"github.com/lebroads/pothole-map/internal/models"
)

const square = `{"type":"Polygon","coordinates":[[[0,0],[0,10],[10,10],[10,0],[0,0]]]}`

func squareBoundary(t *testing.T) *boundary.Service {
	t.Helper()
	svc := boundary.NewService(boundary.BytesSource{Name: "square", Data: []byte(square)})
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func report(id int64, lat, lng float64, created time.Time) models.Report {
	return models.Report{
		ID:        id,
		Position:  models.Position{Lat: lat, Lng: lng},
		RoadSide:  models.RoadSideMiddle,
		Intensity: 3,
		CreatedAt: created,
	}
}

func TestBulkLoadDropsOutsideRecords(t *testing.T) {
	rec := &recorder{}
	c := New(squareBoundary(t), rec)
	now := time.Now()

	kept := c.BulkLoad([]models.Report{
		report(1, 5, 5, now),
		report(2, -1, 5, now),
	})

	assert.Equal(t, 1, kept)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(2)
	assert.False(t, ok)

	require.Equal(t, []string{events.ReportsLoaded}, rec.types())
	assert.Equal(t, events.ReportsLoadedData{Loaded: 1, Dropped: 1}, rec.events[0].Data)
}

func TestBulkLoadReplacesWholesale(t *testing.T) {
	c := New(squareBoundary(t), nil)
	now := time.Now()

	c.BulkLoad([]models.Report{report(1, 5, 5, now), report(2, 6, 6, now)})
	c.BulkLoad([]models.Report{report(3, 7, 7, now)})

	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Has(1))
	assert.True(t, c.Has(3))
}

func TestBulkLoadBeforeBoundaryReadyDropsEverything(t *testing.T) {
	pending := boundary.NewService(boundary.BytesSource{Name: "square", Data: []byte(square)})
	c := New(pending, nil)

	assert.Equal(t, 0, c.BulkLoad([]models.Report{report(1, 5, 5, time.Now())}))
}

func TestUpsert(t *testing.T) {
	rec := &recorder{}
	c := New(squareBoundary(t), rec)
	now := time.Now()

	assert.True(t, c.Upsert(report(1, 5, 5, now)))

	updated := report(1, 5, 5, now)
	updated.Descriptor = "deep"
	assert.True(t, c.Upsert(updated))

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "deep", got.Descriptor)
	assert.Equal(t, 1, c.Len())

	assert.False(t, c.Upsert(report(2, 50, 50, now)))
	assert.False(t, c.Has(2))
	assert.Equal(t, []string{events.ReportUpserted, events.ReportUpserted}, rec.types())
}

func TestApplyVoteAggregates(t *testing.T) {
	rec := &recorder{}
	c := New(squareBoundary(t), rec)
	original := report(1, 5, 5, time.Now())
	original.Descriptor = "near the bakery"
	c.Upsert(original)

	agg := models.VoteAggregates{Upvotes: 4, Downvotes: 1, Score: 3}
	assert.True(t, c.ApplyVoteAggregates(1, agg))

	got, _ := c.Get(1)
	assert.Equal(t, agg, got.VoteAggregates)
	assert.Equal(t, "near the bakery", got.Descriptor, "only aggregates change")
	assert.Equal(t, original.Position, got.Position)

	assert.False(t, c.ApplyVoteAggregates(99, agg), "absent id is a no-op")
	assert.False(t, c.Has(99))

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, events.AggregatesChanged, last.Type)
	assert.Equal(t, int64(1), last.Data.(events.AggregatesData).ReportID)
}

func TestAllOrderingAndSnapshot(t *testing.T) {
	c := New(squareBoundary(t), nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c.BulkLoad([]models.Report{
		report(1, 1, 1, base),
		report(2, 2, 2, base.Add(time.Hour)),
		report(3, 3, 3, base),
	})

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	// mutating the snapshot does not touch the cache
	all[0].Descriptor = "changed"
	got, _ := c.Get(2)
	assert.Empty(t, got.Descriptor)

	c.Upsert(report(4, 4, 4, base.Add(2*time.Hour)))
	assert.Len(t, all, 3)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(squareBoundary(t), nil)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			c.Upsert(report(id, 5, 5, now))
			c.ApplyVoteAggregates(id, models.VoteAggregates{Upvotes: 1, Score: 1})
		}(int64(i))
		go func() {
			defer wg.Done()
			_ = c.All()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, c.Len())
}

func TestReloadKeepsWritesNewerThanListing(t *testing.T) {
	c := New(squareBoundary(t), nil)
	now := time.Now()
	c.BulkLoad([]models.Report{report(1, 5, 5, now), report(2, 6, 6, now)})

	since := c.Version()
	listed := []models.Report{report(1, 5, 5, now), report(2, 6, 6, now)}

	// writes that land while the store is being listed
	require.True(t, c.ApplyVoteAggregates(1, models.VoteAggregates{Upvotes: 3, Score: 3}))
	require.True(t, c.Upsert(report(3, 7, 7, now)))

	n, ok := c.Reload(listed, since)
	require.True(t, ok)
	assert.Equal(t, 3, n)

	r, found := c.Get(1)
	require.True(t, found)
	assert.Equal(t, 3, r.Score, "fresher aggregates survive the reload")
	assert.True(t, c.Has(3), "a concurrent save survives the reload")
}

func TestReloadDropsEntriesMissingFromListing(t *testing.T) {
	c := New(squareBoundary(t), nil)
	now := time.Now()
	c.BulkLoad([]models.Report{report(1, 5, 5, now), report(2, 6, 6, now)})

	n, ok := c.Reload([]models.Report{report(2, 6, 6, now)}, c.Version())
	require.True(t, ok)
	assert.Equal(t, 1, n)
	assert.False(t, c.Has(1))
}

func TestOlderReloadCannotOverwriteNewer(t *testing.T) {
	c := New(squareBoundary(t), nil)
	now := time.Now()

	older := c.Version()
	require.True(t, c.Upsert(report(1, 5, 5, now)))
	newer := c.Version()

	_, ok := c.Reload([]models.Report{report(1, 5, 5, now), report(2, 6, 6, now)}, newer)
	require.True(t, ok)

	_, ok = c.Reload(nil, older)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}
