package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lebroads/pothole-map/internal/boundary"
	"github.com/lebroads/pothole-map/internal/cache"
	"github.com/lebroads/pothole-map/internal/events"
	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/internal/repository"
)

const squareGeoJSON = `{"type":"Polygon","coordinates":[[[0,0],[0,10],[10,10],[10,0],[0,0]]]}`

func squareBoundary(t *testing.T) *boundary.Service {
	t.Helper()
	svc := boundary.NewService(boundary.BytesSource{Name: "square", Data: []byte(squareGeoJSON)})
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

// toggleBoundary lets a test move the boundary under an existing draft
type toggleBoundary struct {
	inner   Boundary
	blocked atomic.Bool
}

func (b *toggleBoundary) Contains(lat, lng float64) bool {
	if b.blocked.Load() {
		return false
	}
	return b.inner.Contains(lat, lng)
}

type voteKey struct {
	reportID int64
	voterID  string
}

// memoryStore mimics the PostgreSQL schema: unique identical reports,
// one vote row per (report, voter) and derived aggregates.
type memoryStore struct {
	mu      sync.Mutex
	nextID  int64
	reports map[int64]models.Report
	votes   map[voteKey]int

	createErr   error
	voteErr     error
	aggErr      error
	createGate  chan struct{}
	voteGate    chan struct{}
	createCalls int
	aggCalls    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		reports: make(map[int64]models.Report),
		votes:   make(map[voteKey]int),
	}
}

func (m *memoryStore) Create(ctx context.Context, report *models.Report) error {
	m.mu.Lock()
	gate := m.createGate
	m.createCalls++
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.reports {
		if r.Position == report.Position && r.RoadSide == report.RoadSide &&
			r.Descriptor == report.Descriptor && r.Intensity == report.Intensity {
			return repository.ErrDuplicateReport
		}
	}

	m.nextID++
	report.ID = m.nextID
	report.CreatedAt = time.Now().UTC()
	report.VoteAggregates = models.VoteAggregates{}
	m.reports[report.ID] = *report
	return nil
}

func (m *memoryStore) Upsert(ctx context.Context, vote *models.Vote) error {
	m.mu.Lock()
	gate := m.voteGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.voteErr != nil {
		return m.voteErr
	}
	if _, ok := m.reports[vote.ReportID]; !ok {
		return repository.ErrReportNotFound
	}
	m.votes[voteKey{vote.ReportID, vote.VoterID}] = vote.Value
	vote.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryStore) GetAggregates(ctx context.Context, id int64) (models.VoteAggregates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aggCalls++
	if m.aggErr != nil {
		return models.VoteAggregates{}, m.aggErr
	}
	if _, ok := m.reports[id]; !ok {
		return models.VoteAggregates{}, repository.ErrReportNotFound
	}

	var agg models.VoteAggregates
	for k, v := range m.votes {
		if k.reportID != id {
			continue
		}
		if v > 0 {
			agg.Upvotes++
		} else {
			agg.Downvotes++
		}
		agg.Score += v
	}
	return agg, nil
}

func (m *memoryStore) voteRows(reportID int64) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := map[string]int{}
	for k, v := range m.votes {
		if k.reportID == reportID {
			rows[k.voterID] = v
		}
	}
	return rows
}

// seed inserts a report straight into the store and the cache
func (m *memoryStore) seed(t *testing.T, c *cache.Cache, pos models.Position) models.Report {
	t.Helper()
	r := &models.Report{Position: pos, RoadSide: models.RoadSideMiddle, Intensity: 3}
	require.NoError(t, m.Create(context.Background(), r))
	require.True(t, c.Upsert(*r))
	return *r
}

type notifierFunc func(ctx context.Context, reportID int64) error

func (f notifierFunc) NotifyVoteChanged(ctx context.Context, reportID int64) error {
	return f(ctx, reportID)
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(eventType string) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

var errStoreDown = errors.New("connection reset by peer")
