package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lebroads/pothole-map/internal/identity"
	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/internal/repository"
	"github.com/lebroads/pothole-map/internal/service"
)

// VoteLookup reads the stored vote of one voter
type VoteLookup interface {
	Get(ctx context.Context, reportID int64, voterID string) (*models.Vote, error)
}

// VoteHandler handles vote casting
type VoteHandler struct {
	votes    *service.VoteService
	lookup   VoteLookup
	identity *identity.Store
}

// NewVoteHandler creates a new vote handler. lookup may be nil.
func NewVoteHandler(votes *service.VoteService, lookup VoteLookup, identity *identity.Store) *VoteHandler {
	return &VoteHandler{votes: votes, lookup: lookup, identity: identity}
}

// CastVoteRequest carries +1 or -1
type CastVoteRequest struct {
	Value int `json:"value"`
}

// VoteResponse reports the authoritative counters after a vote
type VoteResponse struct {
	ReportID int64 `json:"report_id"`
	models.VoteAggregates
}

// VoteControlsResponse tells whether the vote buttons are usable and which
// one the voter last pressed (0 when none)
type VoteControlsResponse struct {
	ReportID int64 `json:"report_id"`
	Enabled  bool  `json:"enabled"`
	MyVote   int   `json:"my_vote"`
}

// voterID prefers the id presented by the client and falls back to this device's id
func (h *VoteHandler) voterID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(VoterIDHeader)); id != "" {
		return id
	}
	return h.identity.GetOrCreateVoterID()
}

// CastVote records an up or down vote
// @Summary Cast vote
// @Description Record the voter's opinion on a report, replacing an earlier one, and return the re-read aggregates
// @Tags Votes
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param X-Voter-ID header string false "Device-local voter id"
// @Param request body CastVoteRequest true "Vote value, 1 or -1"
// @Success 200 {object} VoteResponse
// @Failure 400 {object} map[string]string "Invalid vote"
// @Failure 404 {object} map[string]string "Report not found"
// @Failure 409 {object} map[string]string "Vote already in progress"
// @Failure 500 {object} map[string]string "Vote failed"
// @Router /reports/{id}/votes [post]
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	var req CastVoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	agg, err := h.votes.CastVote(r.Context(), id, h.voterID(r), req.Value)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, VoteResponse{ReportID: id, VoteAggregates: agg})
}

// GetVoteControls reports whether voting on a report is currently possible
// @Summary Get vote controls
// @Description Vote controls are disabled while a vote on the report is in flight
// @Tags Votes
// @Produce json
// @Param id path int true "Report ID"
// @Param X-Voter-ID header string false "Device-local voter id"
// @Success 200 {object} VoteControlsResponse
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Router /reports/{id}/votes/controls [get]
func (h *VoteHandler) GetVoteControls(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, VoteControlsResponse{
		ReportID: id,
		Enabled:  h.votes.ControlsEnabled(id),
		MyVote:   h.myVote(r.Context(), id, h.voterID(r)),
	})
}

func (h *VoteHandler) myVote(ctx context.Context, reportID int64, voterID string) int {
	if h.lookup == nil {
		return 0
	}
	vote, err := h.lookup.Get(ctx, reportID, voterID)
	if err != nil {
		if !errors.Is(err, repository.ErrVoteNotFound) {
			slog.Warn("Failed to look up vote", "report_id", reportID, "error", err)
		}
		return 0
	}
	return vote.Value
}
