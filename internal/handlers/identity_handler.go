package handlers

import (
	"net/http"

	"github.com/lebroads/pothole-map/internal/identity"
)

// IdentityHandler exposes this device's anonymous voter id and dismissal flags
type IdentityHandler struct {
	identity *identity.Store
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(store *identity.Store) *IdentityHandler {
	return &IdentityHandler{identity: store}
}

// IdentityResponse is the device-local identity state
type IdentityResponse struct {
	VoterID                  string `json:"voter_id"`
	SafetyNoticeAcknowledged bool   `json:"safety_notice_acknowledged"`
}

// GetIdentity returns the device voter id, creating it on first use
// @Summary Get identity
// @Description Get the anonymous device-local voter id. It deduplicates votes and is not an account.
// @Tags Identity
// @Produce json
// @Success 200 {object} IdentityResponse
// @Router /identity [get]
func (h *IdentityHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, IdentityResponse{
		VoterID:                  h.identity.GetOrCreateVoterID(),
		SafetyNoticeAcknowledged: h.identity.Acknowledged(identity.KeySafetyNotice),
	})
}

// AcknowledgeSafetyNotice remembers that the safety notice was dismissed on this device
// @Summary Acknowledge safety notice
// @Description Record the one-time safety notice dismissal so placement no longer asks
// @Tags Identity
// @Produce json
// @Success 200 {object} IdentityResponse
// @Router /identity/safety-notice [post]
func (h *IdentityHandler) AcknowledgeSafetyNotice(w http.ResponseWriter, r *http.Request) {
	h.identity.Acknowledge(identity.KeySafetyNotice)
	h.GetIdentity(w, r)
}
