package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lebroads/pothole-map/internal/models"
)

// ReportRepository handles report database operations
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a report and fills in the store-assigned id and created_at.
// An identical existing report yields ErrDuplicateReport.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (lat, lng, road_side, descriptor, intensity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		report.Position.Lat,
		report.Position.Lng,
		report.RoadSide,
		report.Descriptor,
		report.Intensity,
	).Scan(&report.ID, &report.CreatedAt)

	if hasCode(err, uniqueViolation) {
		return ErrDuplicateReport
	}
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	report.VoteAggregates = models.VoteAggregates{}
	return nil
}

// List returns every report with its vote aggregates, newest first
func (r *ReportRepository) List(ctx context.Context) ([]models.Report, error) {
	query := `
		SELECT id, lat, lng, road_side, descriptor, intensity, created_at, upvotes, downvotes, score
		FROM report_scores
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			slog.Error("Failed to close rows", "error", err)
		}
	}(rows)

	var reports []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

// GetByID retrieves a report with its vote aggregates
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	query := `
		SELECT id, lat, lng, road_side, descriptor, intensity, created_at, upvotes, downvotes, score
		FROM report_scores
		WHERE id = $1
	`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// GetAggregates reads the authoritative vote counters of one report
func (r *ReportRepository) GetAggregates(ctx context.Context, id int64) (models.VoteAggregates, error) {
	query := `SELECT upvotes, downvotes, score FROM report_scores WHERE id = $1`

	var agg models.VoteAggregates
	err := r.db.QueryRowContext(ctx, query, id).Scan(&agg.Upvotes, &agg.Downvotes, &agg.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return agg, ErrReportNotFound
	}
	if err != nil {
		return agg, fmt.Errorf("failed to get vote aggregates: %w", err)
	}

	return agg, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*models.Report, error) {
	report := &models.Report{}
	var roadSide string
	err := s.Scan(
		&report.ID,
		&report.Position.Lat,
		&report.Position.Lng,
		&roadSide,
		&report.Descriptor,
		&report.Intensity,
		&report.CreatedAt,
		&report.Upvotes,
		&report.Downvotes,
		&report.Score,
	)
	if err != nil {
		return nil, err
	}

	// legacy rows may carry unexpected casing
	side, perr := models.ParseRoadSide(roadSide)
	if perr != nil {
		side = models.RoadSideMiddle
	}
	report.RoadSide = side
	return report, nil
}
