package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lebroads/pothole-map/internal/events"
	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/pkg/validator"
)

// VoteStore upserts a vote keyed by (report, voter)
type VoteStore interface {
	Upsert(ctx context.Context, vote *models.Vote) error
}

// AggregateReader reads the authoritative vote counters of a report
type AggregateReader interface {
	GetAggregates(ctx context.Context, id int64) (models.VoteAggregates, error)
}

// ChangeNotifier tells other processes that a report's votes changed
type ChangeNotifier interface {
	NotifyVoteChanged(ctx context.Context, reportID int64) error
}

// VoteService records votes and keeps cached aggregates authoritative.
// Counters are always re-read after a write, never incremented locally.
type VoteService struct {
	votes      VoteStore
	aggregates AggregateReader
	cache      ReportCache
	publisher  events.Publisher
	notifier   ChangeNotifier

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewVoteService creates a new vote service. publisher may be nil.
func NewVoteService(votes VoteStore, aggregates AggregateReader, cache ReportCache, publisher events.Publisher) *VoteService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &VoteService{
		votes:      votes,
		aggregates: aggregates,
		cache:      cache,
		publisher:  publisher,
		inFlight:   make(map[int64]struct{}),
	}
}

// SetNotifier installs a channel used to announce local votes to other processes
func (s *VoteService) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

// ControlsEnabled is false while a vote on the report is in flight
func (s *VoteService) ControlsEnabled(reportID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[reportID]
	return !busy
}

// CastVote records the voter's opinion, replacing an earlier one, then
// applies the re-fetched aggregates to the cache.
func (s *VoteService) CastVote(ctx context.Context, reportID int64, voterID string, value int) (models.VoteAggregates, error) {
	if validator.ValidateVoteValue(value) != nil {
		return models.VoteAggregates{}, ErrInvalidVote
	}
	if validator.ValidateVoterID(voterID) != nil {
		return models.VoteAggregates{}, ErrInvalidVoterID
	}

	if !s.acquire(reportID) {
		return models.VoteAggregates{}, ErrVoteInFlight
	}
	defer s.release(reportID)

	vote := &models.Vote{ReportID: reportID, VoterID: voterID, Value: value}
	if err := s.votes.Upsert(ctx, vote); err != nil {
		slog.Warn("Failed to record vote", "report_id", reportID, "error", err)
		return models.VoteAggregates{}, &VoteError{ReportID: reportID, Err: err}
	}

	agg, err := s.aggregates.GetAggregates(ctx, reportID)
	if err != nil {
		if s.cache.Has(reportID) {
			return models.VoteAggregates{}, &VoteError{
				ReportID: reportID,
				Err:      fmt.Errorf("vote recorded but aggregates could not be refreshed: %w", err),
			}
		}
		slog.Warn("Failed to refresh aggregates for report not on display", "report_id", reportID, "error", err)
		return models.VoteAggregates{}, nil
	}

	s.cache.ApplyVoteAggregates(reportID, agg)

	if s.notifier != nil {
		if err := s.notifier.NotifyVoteChanged(ctx, reportID); err != nil {
			slog.Warn("Failed to announce vote change", "report_id", reportID, "error", err)
		}
	}

	return agg, nil
}

// HandleExternalChange refreshes a cached report after another voter changed
// its votes. Failures are logged only.
func (s *VoteService) HandleExternalChange(ctx context.Context, reportID int64) {
	if !s.cache.Has(reportID) {
		slog.Debug("Ignoring vote change for report not in cache", "report_id", reportID)
		return
	}

	agg, err := s.aggregates.GetAggregates(ctx, reportID)
	if err != nil {
		slog.Warn("Failed to refresh aggregates after external change", "report_id", reportID, "error", err)
		return
	}

	s.cache.ApplyVoteAggregates(reportID, agg)
}

func (s *VoteService) acquire(reportID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[reportID]; busy {
		return false
	}
	s.inFlight[reportID] = struct{}{}
	s.publishControls(reportID, false)
	return true
}

func (s *VoteService) release(reportID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, reportID)
	s.publishControls(reportID, true)
}

func (s *VoteService) publishControls(reportID int64, enabled bool) {
	s.publisher.Publish(events.New(events.VoteControlsChanged, events.VoteControlsData{
		ReportID: reportID,
		Enabled:  enabled,
	}))
}
