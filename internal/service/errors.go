package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState      = errors.New("operation not allowed in current draft state")
	ErrConsentDeclined   = errors.New("safety notice was not acknowledged")
	ErrSaveInProgress    = errors.New("a save is already in progress")
	ErrDraftCancelled    = errors.New("draft was cancelled before the save completed")
	ErrVoteInFlight      = errors.New("a vote for this report is already in flight")
	ErrInvalidIntensity  = errors.New("intensity must be between 1 and 5")
	ErrInvalidRoadSide   = errors.New("road side must be Left, Middle or Right")
	ErrInvalidVote       = errors.New("vote value must be 1 or -1")
	ErrInvalidVoterID    = errors.New("invalid voter id")
	ErrDescriptorTooLong = errors.New("descriptor is too long")
)

// OutOfBoundsError means the position is not inside the boundary, or the
// boundary is not loaded
type OutOfBoundsError struct {
	Lat float64
	Lng float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("position %.6f, %.6f is outside the allowed region", e.Lat, e.Lng)
}

// SaveFailureKind distinguishes duplicate reports from other save failures
type SaveFailureKind string

const (
	SaveFailedGeneric   SaveFailureKind = "generic"
	SaveFailedDuplicate SaveFailureKind = "duplicate"
)

// SaveFailedError is returned when persisting a draft fails. The draft is kept.
type SaveFailedError struct {
	Kind SaveFailureKind
	Err  error
}

func (e *SaveFailedError) Error() string {
	if e.Kind == SaveFailedDuplicate {
		return "save failed: a report already exists at this position with identical attributes"
	}
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e *SaveFailedError) Unwrap() error {
	return e.Err
}

// IsDuplicate reports whether the failure was a uniqueness violation
func (e *SaveFailedError) IsDuplicate() bool {
	return e.Kind == SaveFailedDuplicate
}

// VoteError is returned when a vote could not be recorded or its result
// could not be read back
type VoteError struct {
	ReportID int64
	Err      error
}

func (e *VoteError) Error() string {
	return fmt.Sprintf("vote on report %d failed: %v", e.ReportID, e.Err)
}

func (e *VoteError) Unwrap() error {
	return e.Err
}
