package handlers

import (
	"context"
	"net/http"

	"github.com/lebroads/pothole-map/internal/identity"
	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/internal/render"
	"github.com/lebroads/pothole-map/internal/service"
	"github.com/lebroads/pothole-map/pkg/validator"
)

// DraftHandler forwards placement gestures to the draft session
type DraftHandler struct {
	session  *service.DraftSession
	identity *identity.Store
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(session *service.DraftSession, identity *identity.Store) *DraftHandler {
	return &DraftHandler{session: session, identity: identity}
}

// DraftResponse is the draft session as the form sees it
type DraftResponse struct {
	State string            `json:"state"`
	Draft *render.DraftView `json:"draft,omitempty"`
}

// ArmRequest answers the safety notice
type ArmRequest struct {
	AcknowledgeSafetyNotice bool `json:"acknowledge_safety_notice"`
	// Remember skips the notice on later arms from this device
	Remember bool `json:"remember"`
}

// PlaceRequest is a tap on the map
type PlaceRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// UpdateDraftRequest edits the placed draft. Absent fields are left alone.
type UpdateDraftRequest struct {
	RoadSide   *string `json:"road_side,omitempty"`
	Descriptor *string `json:"descriptor,omitempty" validate:"max=500"`
	Intensity  *int    `json:"intensity,omitempty" validate:"min=1,max=5"`
}

func (h *DraftHandler) respondWithDraft(w http.ResponseWriter, code int) {
	state, draft := h.session.State()
	resp := DraftResponse{State: string(state)}
	if draft != nil {
		view := render.DraftViewFor(*draft)
		resp.Draft = &view
	}
	respondWithJSON(w, code, resp)
}

// GetDraft returns the current draft state
// @Summary Get draft
// @Description Get the draft session state and the placed draft, if any
// @Tags Draft
// @Produce json
// @Success 200 {object} DraftResponse
// @Router /draft [get]
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	h.respondWithDraft(w, http.StatusOK)
}

// Arm enters placement mode
// @Summary Arm placement
// @Description Enter placement mode. The safety notice must be acknowledged now or earlier on this device.
// @Tags Draft
// @Accept json
// @Produce json
// @Param request body ArmRequest false "Safety notice answer"
// @Success 200 {object} DraftResponse
// @Failure 409 {object} map[string]string "Not allowed in current state"
// @Failure 428 {object} map[string]string "Safety notice not acknowledged"
// @Router /draft/arm [post]
func (h *DraftHandler) Arm(w http.ResponseWriter, r *http.Request) {
	var req ArmRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
			return
		}
	}

	gate := func(ctx context.Context) bool {
		if h.identity.Acknowledged(identity.KeySafetyNotice) {
			return true
		}
		if !req.AcknowledgeSafetyNotice {
			return false
		}
		if req.Remember {
			h.identity.Acknowledge(identity.KeySafetyNotice)
		}
		return true
	}

	if err := h.session.Arm(r.Context(), gate); err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithDraft(w, http.StatusOK)
}

// Place materialises the draft at a tapped position
// @Summary Place draft
// @Description Place or move the draft. Attributes reset to their defaults.
// @Tags Draft
// @Accept json
// @Produce json
// @Param request body PlaceRequest true "Tapped position"
// @Success 200 {object} DraftResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 409 {object} map[string]string "Not armed"
// @Failure 422 {object} map[string]string "Outside the allowed region"
// @Router /draft/place [post]
func (h *DraftHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req PlaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.session.PlaceAt(*req.Lat, *req.Lng); err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithDraft(w, http.StatusOK)
}

// Update edits the placed draft
// @Summary Update draft
// @Description Edit road side, descriptor or intensity of the placed draft
// @Tags Draft
// @Accept json
// @Produce json
// @Param request body UpdateDraftRequest true "Fields to change"
// @Success 200 {object} DraftResponse
// @Failure 400 {object} map[string]string "Invalid field"
// @Failure 409 {object} map[string]string "No placed draft"
// @Router /draft [patch]
func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateDraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.RoadSide != nil {
		side, err := models.ParseRoadSide(*req.RoadSide)
		if err != nil {
			respondWithServiceError(w, service.ErrInvalidRoadSide)
			return
		}
		if _, err := h.session.SetRoadSide(side); err != nil {
			respondWithServiceError(w, err)
			return
		}
	}
	if req.Descriptor != nil {
		if _, err := h.session.SetDescriptor(*req.Descriptor); err != nil {
			respondWithServiceError(w, err)
			return
		}
	}
	if req.Intensity != nil {
		if _, err := h.session.SetIntensity(*req.Intensity); err != nil {
			respondWithServiceError(w, err)
			return
		}
	}

	h.respondWithDraft(w, http.StatusOK)
}

// Save persists the placed draft
// @Summary Save draft
// @Description Persist the draft as a report. On success the session returns to idle.
// @Tags Draft
// @Produce json
// @Success 201 {object} render.Popup
// @Failure 409 {object} map[string]string "Duplicate report, save in progress, draft cancelled or no placed draft"
// @Failure 422 {object} map[string]string "Outside the allowed region"
// @Failure 500 {object} map[string]string "Save failed"
// @Router /draft/save [post]
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	report, err := h.session.Save(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, render.PopupFor(report))
}

// Cancel discards the draft
// @Summary Cancel draft
// @Description Leave placement mode and discard any draft
// @Tags Draft
// @Produce json
// @Success 200 {object} DraftResponse
// @Router /draft/cancel [post]
func (h *DraftHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.session.Cancel()
	h.respondWithDraft(w, http.StatusOK)
}
