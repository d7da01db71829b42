package handlers

import (
	"net/http"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/lebroads/pothole-map/internal/boundary"
)

// BoundaryReader is the boundary as the map view needs it
type BoundaryReader interface {
	State() boundary.State
	Bound() (orb.Bound, bool)
	Contains(lat, lng float64) bool
}

// BoundaryHandler exposes boundary state and the camera bounding box
type BoundaryHandler struct {
	boundary BoundaryReader
}

// NewBoundaryHandler creates a new boundary handler
func NewBoundaryHandler(b BoundaryReader) *BoundaryHandler {
	return &BoundaryHandler{boundary: b}
}

// BoundsResponse is a lat/lng box
type BoundsResponse struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundaryResponse describes the loaded boundary. Bounds are for the camera only.
type BoundaryResponse struct {
	State  string          `json:"state"`
	Bounds *BoundsResponse `json:"bounds,omitempty"`
}

// ContainsResponse answers a point query
type ContainsResponse struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Inside bool    `json:"inside"`
}

// GetBoundary returns the boundary load state and bounding box
// @Summary Get boundary
// @Description Get the boundary load state and its bounding box for camera constraints
// @Tags Boundary
// @Produce json
// @Success 200 {object} BoundaryResponse
// @Router /boundary [get]
func (h *BoundaryHandler) GetBoundary(w http.ResponseWriter, r *http.Request) {
	resp := BoundaryResponse{State: string(h.boundary.State())}
	if b, ok := h.boundary.Bound(); ok {
		// orb points are (lng, lat)
		resp.Bounds = &BoundsResponse{
			South: b.Min.Lat(),
			West:  b.Min.Lon(),
			North: b.Max.Lat(),
			East:  b.Max.Lon(),
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Contains answers whether a position is inside the boundary
// @Summary Point containment
// @Description Check whether a position lies inside the boundary. False while the boundary is not loaded.
// @Tags Boundary
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Success 200 {object} ContainsResponse
// @Failure 400 {object} map[string]string "Invalid coordinates"
// @Router /boundary/contains [get]
func (h *BoundaryHandler) Contains(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		respondWithError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}

	respondWithJSON(w, http.StatusOK, ContainsResponse{Lat: lat, Lng: lng, Inside: h.boundary.Contains(lat, lng)})
}
