package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/lebroads/pothole-map/internal/events"
	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/internal/render"
	"github.com/lebroads/pothole-map/internal/repository"
	"github.com/lebroads/pothole-map/pkg/validator"
)

// DraftState is the placement state of a session
type DraftState string

const (
	DraftIdle   DraftState = "idle"
	DraftArmed  DraftState = "armed"
	DraftPlaced DraftState = "placed"
	DraftSaving DraftState = "saving"
)

// Boundary answers point containment. It must be false while unknown.
type Boundary interface {
	Contains(lat, lng float64) bool
}

// ReportCreator persists a new report, filling in id and created_at
type ReportCreator interface {
	Create(ctx context.Context, report *models.Report) error
}

// ReportCache receives reports and aggregates once they are authoritative
type ReportCache interface {
	Upsert(report models.Report) bool
	ApplyVoteAggregates(id int64, agg models.VoteAggregates) bool
	Has(id int64) bool
}

// SafetyGate asks the user to acknowledge the safety notice. It returns
// true on consent. A nil gate always consents.
type SafetyGate func(ctx context.Context) bool

// DraftSession governs placing one new report at a time
type DraftSession struct {
	boundary  Boundary
	reports   ReportCreator
	cache     ReportCache
	publisher events.Publisher
	newToken  func() string

	mu    sync.Mutex
	state DraftState
	draft *models.Draft
	// bumped whenever the session leaves a state, so late save results can be recognised
	generation uint64
}

// NewDraftSession creates an idle session. publisher may be nil.
func NewDraftSession(boundary Boundary, reports ReportCreator, cache ReportCache, publisher events.Publisher) *DraftSession {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &DraftSession{
		boundary:  boundary,
		reports:   reports,
		cache:     cache,
		publisher: publisher,
		newToken:  func() string { return ulid.Make().String() },
		state:     DraftIdle,
	}
}

// State returns the current state and a copy of the draft, if any
func (s *DraftSession) State() (DraftState, *models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.draftCopy()
}

// Arm enters placement mode after the safety gate consents. Declining
// leaves the session idle.
func (s *DraftSession) Arm(ctx context.Context, gate SafetyGate) error {
	s.mu.Lock()
	if s.state != DraftIdle && s.state != DraftArmed {
		s.mu.Unlock()
		return ErrInvalidState
	}
	gen := s.generation
	s.mu.Unlock()

	// the gate may wait on the user; never hold the lock across it
	consent := gate == nil || gate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrInvalidState
	}
	if !consent {
		s.transition(DraftIdle)
		return ErrConsentDeclined
	}
	s.transition(DraftArmed)
	return nil
}

// PlaceAt materialises a draft with default attributes at the position.
// In Placed it moves the draft and resets its attributes.
func (s *DraftSession) PlaceAt(lat, lng float64) (models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != DraftArmed && s.state != DraftPlaced {
		return models.Draft{}, ErrInvalidState
	}
	if validator.ValidateCoordinates(lat, lng) != nil || !s.boundary.Contains(lat, lng) {
		return models.Draft{}, &OutOfBoundsError{Lat: lat, Lng: lng}
	}

	draft := models.NewDraft(s.newToken(), models.Position{Lat: lat, Lng: lng})
	s.draft = &draft
	s.transition(DraftPlaced)
	return draft, nil
}

// SetRoadSide edits the draft's road side
func (s *DraftSession) SetRoadSide(side models.RoadSide) (models.Draft, error) {
	if _, err := models.ParseRoadSide(string(side)); err != nil {
		return models.Draft{}, ErrInvalidRoadSide
	}
	return s.edit(func(d *models.Draft) { d.RoadSide = side })
}

// SetDescriptor edits the draft's free-text label
func (s *DraftSession) SetDescriptor(descriptor string) (models.Draft, error) {
	if err := validator.ValidateDescriptor(descriptor); err != nil {
		return models.Draft{}, ErrDescriptorTooLong
	}
	clean := validator.SanitizeString(descriptor)
	return s.edit(func(d *models.Draft) { d.Descriptor = clean })
}

// SetIntensity edits the draft's severity and returns the re-derived projection
func (s *DraftSession) SetIntensity(intensity int) (render.Severity, error) {
	if err := validator.ValidateIntensity(intensity); err != nil {
		return render.Severity{}, ErrInvalidIntensity
	}
	draft, err := s.edit(func(d *models.Draft) { d.Intensity = intensity })
	if err != nil {
		return render.Severity{}, err
	}
	return render.SeverityOf(draft.Intensity), nil
}

func (s *DraftSession) edit(apply func(d *models.Draft)) (models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != DraftPlaced || s.draft == nil {
		return models.Draft{}, ErrInvalidState
	}
	apply(s.draft)
	s.publishLocked()
	return *s.draft, nil
}

// Cancel discards any draft and returns to idle. An in-flight save keeps
// running but its result is neither cached nor applied to the session.
func (s *DraftSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == DraftIdle {
		return
	}
	if s.state == DraftSaving {
		slog.Info("Draft cancelled while saving", "token", s.draft.Token)
	}
	s.transition(DraftIdle)
}

// Save persists the draft. On success the new report is in the cache and
// the session is idle; on failure the draft stays placed. A save that
// completes after Cancel returns ErrDraftCancelled.
func (s *DraftSession) Save(ctx context.Context) (models.Report, error) {
	s.mu.Lock()
	switch s.state {
	case DraftSaving:
		s.mu.Unlock()
		return models.Report{}, ErrSaveInProgress
	case DraftPlaced:
	default:
		s.mu.Unlock()
		return models.Report{}, ErrInvalidState
	}

	pos := s.draft.Position
	if !s.boundary.Contains(pos.Lat, pos.Lng) {
		s.mu.Unlock()
		return models.Report{}, &OutOfBoundsError{Lat: pos.Lat, Lng: pos.Lng}
	}

	token := s.draft.Token
	report := s.draft.Report()
	s.transition(DraftSaving)
	gen := s.generation
	s.mu.Unlock()

	err := s.reports.Create(ctx, &report)

	s.mu.Lock()
	defer s.mu.Unlock()
	stale := s.generation != gen

	if err != nil {
		saveErr := &SaveFailedError{Kind: SaveFailedGeneric, Err: err}
		if errors.Is(err, repository.ErrDuplicateReport) {
			saveErr.Kind = SaveFailedDuplicate
		}
		if stale {
			slog.Info("Ignoring failed save of a cancelled draft", "token", token, "error", err)
			return models.Report{}, saveErr
		}
		slog.Warn("Failed to save draft", "token", token, "kind", saveErr.Kind, "error", err)
		s.transition(DraftPlaced)
		return models.Report{}, saveErr
	}

	// a cancelled draft is never promoted; the row shows up on the next bulk load
	if stale {
		slog.Info("Save completed after the draft was cancelled", "token", token, "report_id", report.ID)
		return models.Report{}, ErrDraftCancelled
	}

	s.cache.Upsert(report)
	slog.Info("Report saved", "report_id", report.ID, "token", token)
	s.transition(DraftIdle)
	return report, nil
}

// transition must be called with mu held
func (s *DraftSession) transition(next DraftState) {
	if next == DraftIdle || next == DraftArmed {
		s.draft = nil
	}
	if s.state != next {
		s.generation++
	}
	s.state = next
	s.publishLocked()
}

func (s *DraftSession) publishLocked() {
	s.publisher.Publish(events.New(events.DraftChanged, events.DraftData{
		State: string(s.state),
		Draft: s.draftCopy(),
	}))
}

func (s *DraftSession) draftCopy() *models.Draft {
	if s.draft == nil {
		return nil
	}
	d := *s.draft
	return &d
}
