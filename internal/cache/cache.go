// Package cache holds the display state of every persisted report, keyed by id.
//
// The cache is the single source of truth for what gets rendered. Only
// reports inside the boundary are admitted; anything else is dropped and
// logged, never deleted from the store.
package cache

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/lebroads/pothole-map/internal/events"
	"github.com/lebroads/pothole-map/internal/models"
)

// Boundary is the containment check applied to every admitted report
type Boundary interface {
	Contains(lat, lng float64) bool
}

// Cache maps report id to report display state
type Cache struct {
	boundary  Boundary
	publisher events.Publisher

	mu      sync.RWMutex
	reports map[int64]models.Report

	// seq counts writes; stamps holds the seq of each entry's last write
	seq      uint64
	stamps   map[int64]uint64
	// version the last reload was listed at
	listedAt uint64
}

// New creates an empty cache. publisher may be nil.
func New(boundary Boundary, publisher events.Publisher) *Cache {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Cache{
		boundary:  boundary,
		publisher: publisher,
		reports:   make(map[int64]models.Report),
		stamps:    make(map[int64]uint64),
	}
}

func (c *Cache) admit(records []models.Report) (map[int64]models.Report, int) {
	next := make(map[int64]models.Report, len(records))
	dropped := 0
	for _, r := range records {
		if !c.boundary.Contains(r.Position.Lat, r.Position.Lng) {
			dropped++
			slog.Warn("Dropping report outside boundary",
				"report_id", r.ID, "lat", r.Position.Lat, "lng", r.Position.Lng)
			continue
		}
		next[r.ID] = r
	}
	return next, dropped
}

func (c *Cache) publishLoaded(loaded, dropped int) {
	slog.Info("Report cache loaded", "loaded", loaded, "dropped", dropped)
	c.publisher.Publish(events.New(events.ReportsLoaded, events.ReportsLoadedData{
		Loaded:  loaded,
		Dropped: dropped,
	}))
}

// Version returns the current write counter. Take it before listing the
// store and pass it to Reload.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// BulkLoad replaces the cache contents wholesale and returns how many records were kept
func (c *Cache) BulkLoad(records []models.Report) int {
	next, dropped := c.admit(records)

	c.mu.Lock()
	c.seq++
	c.reports = next
	c.stamps = make(map[int64]uint64, len(next))
	for id := range next {
		c.stamps[id] = c.seq
	}
	c.listedAt = c.seq
	c.mu.Unlock()

	c.publishLoaded(len(next), dropped)
	return len(next)
}

// Reload replaces the contents with records listed when the cache was at
// version since. Entries written after since are newer than the listing
// and are kept. A reload listed before the previous one is discarded and
// reported as false.
func (c *Cache) Reload(records []models.Report, since uint64) (int, bool) {
	next, dropped := c.admit(records)

	c.mu.Lock()
	if since < c.listedAt {
		c.mu.Unlock()
		slog.Info("Discarding stale report reload", "since", since)
		return 0, false
	}
	stamps := make(map[int64]uint64, len(next))
	for id := range next {
		stamps[id] = since
	}
	for id, stamp := range c.stamps {
		if stamp > since {
			next[id] = c.reports[id]
			stamps[id] = stamp
		}
	}
	c.seq++
	c.reports = next
	c.stamps = stamps
	c.listedAt = since
	c.mu.Unlock()

	c.publishLoaded(len(next), dropped)
	return len(next), true
}

// Upsert inserts or replaces a report by id. It returns false when the
// report lies outside the boundary and was not admitted.
func (c *Cache) Upsert(report models.Report) bool {
	if !c.boundary.Contains(report.Position.Lat, report.Position.Lng) {
		slog.Warn("Refusing to cache report outside boundary",
			"report_id", report.ID, "lat", report.Position.Lat, "lng", report.Position.Lng)
		return false
	}

	c.mu.Lock()
	c.seq++
	c.reports[report.ID] = report
	c.stamps[report.ID] = c.seq
	c.mu.Unlock()

	c.publisher.Publish(events.New(events.ReportUpserted, report))
	return true
}

// ApplyVoteAggregates overwrites the vote counters of a cached report.
// Unknown ids are a logged no-op.
func (c *Cache) ApplyVoteAggregates(id int64, agg models.VoteAggregates) bool {
	c.mu.Lock()
	r, ok := c.reports[id]
	if ok {
		c.seq++
		r.VoteAggregates = agg
		c.reports[id] = r
		c.stamps[id] = c.seq
	}
	c.mu.Unlock()

	if !ok {
		slog.Debug("Ignoring aggregates for report not in cache", "report_id", id)
		return false
	}

	c.publisher.Publish(events.New(events.AggregatesChanged, events.AggregatesData{
		ReportID:       id,
		VoteAggregates: agg,
	}))
	return true
}

// Get returns a copy of the cached report
func (c *Cache) Get(id int64) (models.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[id]
	return r, ok
}

// Has reports whether id is cached
func (c *Cache) Has(id int64) bool {
	_, ok := c.Get(id)
	return ok
}

// All returns a snapshot ordered newest first, ties broken by id descending
func (c *Cache) All() []models.Report {
	c.mu.RLock()
	out := make([]models.Report, 0, len(c.reports))
	for _, r := range c.reports {
		out = append(out, r)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Len returns the number of cached reports
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.reports)
}
