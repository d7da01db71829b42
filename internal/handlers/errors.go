package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lebroads/pothole-map/internal/repository"
	"github.com/lebroads/pothole-map/internal/service"
)

// respondWithServiceError maps core errors to status codes
func respondWithServiceError(w http.ResponseWriter, err error) {
	var (
		oob     *service.OutOfBoundsError
		saveErr *service.SaveFailedError
		voteErr *service.VoteError
	)

	switch {
	case errors.As(err, &oob):
		respondWithError(w, http.StatusUnprocessableEntity, ErrMsgOutOfBounds)
	case errors.As(err, &saveErr):
		if saveErr.IsDuplicate() {
			respondWithError(w, http.StatusConflict, ErrMsgDuplicateReport)
			return
		}
		slog.Error("Save failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, ErrMsgSaveFailed)
	case errors.As(err, &voteErr):
		if errors.Is(err, repository.ErrReportNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgReportNotFound)
			return
		}
		slog.Error("Vote failed", "report_id", voteErr.ReportID, "error", err)
		respondWithError(w, http.StatusInternalServerError, ErrMsgVoteFailed)
	case errors.Is(err, service.ErrConsentDeclined):
		respondWithError(w, http.StatusPreconditionRequired, ErrMsgSafetyNotice)
	case errors.Is(err, service.ErrInvalidState):
		respondWithError(w, http.StatusConflict, ErrMsgInvalidState)
	case errors.Is(err, service.ErrSaveInProgress):
		respondWithError(w, http.StatusConflict, ErrMsgSaveInProgress)
	case errors.Is(err, service.ErrDraftCancelled):
		respondWithError(w, http.StatusConflict, ErrMsgDraftCancelled)
	case errors.Is(err, service.ErrVoteInFlight):
		respondWithError(w, http.StatusConflict, ErrMsgVoteInFlight)
	case errors.Is(err, service.ErrInvalidIntensity),
		errors.Is(err, service.ErrInvalidRoadSide),
		errors.Is(err, service.ErrInvalidVote),
		errors.Is(err, service.ErrInvalidVoterID),
		errors.Is(err, service.ErrDescriptorTooLong):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Unhandled service error", "error", err)
		respondWithError(w, http.StatusInternalServerError, ErrMsgInternal)
	}
}
