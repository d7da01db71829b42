package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/internal/render"
	"github.com/lebroads/pothole-map/internal/repository"
)

// ReportReader reads the cached display state
type ReportReader interface {
	All() []models.Report
	Get(id int64) (models.Report, bool)
	Upsert(report models.Report) bool
}

// ReportFetcher reads one report from the store
type ReportFetcher interface {
	GetByID(ctx context.Context, id int64) (*models.Report, error)
}

// ReportHandler serves the renderable reports
type ReportHandler struct {
	reports ReportReader
	store   ReportFetcher
}

// NewReportHandler creates a new report handler. store may be nil, in
// which case only cached reports are served.
func NewReportHandler(reports ReportReader, store ReportFetcher) *ReportHandler {
	return &ReportHandler{reports: reports, store: store}
}

// ListReports returns every cached report as a popup
// @Summary List reports
// @Description Get all reports inside the boundary, newest first, projected for display
// @Tags Reports
// @Produce json
// @Success 200 {array} render.Popup
// @Router /reports [get]
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, render.Popups(h.reports.All()))
}

// GetReport returns one cached report
// @Summary Get report
// @Description Get one report's popup by id
// @Tags Reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} render.Popup
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Failure 404 {object} map[string]string "Report not found"
// @Router /reports/{id} [get]
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	report, found := h.reports.Get(id)
	if !found {
		report, found = h.fetch(r.Context(), id)
	}
	if !found {
		respondWithError(w, http.StatusNotFound, ErrMsgReportNotFound)
		return
	}

	respondWithJSON(w, http.StatusOK, render.PopupFor(report))
}

// fetch reads a report saved by another process. It is only served once
// the cache accepts it, so reports outside the boundary stay hidden.
func (h *ReportHandler) fetch(ctx context.Context, id int64) (models.Report, bool) {
	if h.store == nil {
		return models.Report{}, false
	}

	report, err := h.store.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrReportNotFound) {
			slog.Warn("Failed to fetch report", "report_id", id, "error", err)
		}
		return models.Report{}, false
	}

	if !h.reports.Upsert(*report) {
		return models.Report{}, false
	}
	return h.reports.Get(id)
}

func reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReportID)
		return 0, false
	}
	return id, true
}
