// Package boundary answers whether a coordinate lies inside the country polygon.
//
// The polygon is loaded once. Until a load succeeds every containment query
// answers false, so nothing can be placed while the boundary is unknown. The
// bounding box is exposed for camera constraints only and is never used to
// decide validity.
package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
)

// State describes the load lifecycle of the boundary
type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// BoundaryLoadError is fatal for placement during the current session
type BoundaryLoadError struct {
	Source string
	Err    error
}

func (e *BoundaryLoadError) Error() string {
	return fmt.Sprintf("failed to load boundary from %s: %v", e.Source, e.Err)
}

func (e *BoundaryLoadError) Unwrap() error {
	return e.Err
}

// Service holds the authoritative boundary polygon
type Service struct {
	source Source

	once    sync.Once
	settled chan struct{}

	mu     sync.RWMutex
	state  State
	region *Region
	err    error
}

// NewService creates a boundary service reading from source
func NewService(source Source) *Service {
	return &Service{
		source:  source,
		settled: make(chan struct{}),
		state:   StatePending,
	}
}

// Load fetches and parses the boundary. It runs at most once; later calls
// return the outcome of the first one. There is no retry.
func (s *Service) Load(ctx context.Context) error {
	s.once.Do(func() {
		defer close(s.settled)

		region, err := s.fetch(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateFailed
			s.err = &BoundaryLoadError{Source: s.source.String(), Err: err}
			slog.Error("Boundary load failed, placement disabled", "source", s.source.String(), "error", err)
			return
		}
		s.state = StateReady
		s.region = region
		b := region.Bound()
		slog.Info("Boundary loaded",
			"source", s.source.String(),
			"polygons", len(region.polygons),
			"min_lat", b.Min.Lat(), "min_lng", b.Min.Lon(),
			"max_lat", b.Max.Lat(), "max_lng", b.Max.Lon(),
		)
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Service) fetch(ctx context.Context) (*Region, error) {
	data, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	region, err := ParseGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return region, nil
}

// Settled is closed once Load has finished, successfully or not
func (s *Service) Settled() <-chan struct{} {
	return s.settled
}

// Contains reports whether the coordinate lies inside the boundary.
// It is false while the boundary is pending or failed.
func (s *Service) Contains(lat, lng float64) bool {
	s.mu.RLock()
	region := s.region
	s.mu.RUnlock()

	if region == nil {
		return false
	}
	return region.Contains(lat, lng)
}

// Bound returns the camera bounding box once the boundary is ready
func (s *Service) Bound() (orb.Bound, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.region == nil {
		return orb.Bound{}, false
	}
	return s.region.Bound(), true
}

// State returns the current load state
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the load error, if any
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
