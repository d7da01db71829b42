package testutil

import (
	"database/sql"
	"testing"

	"github.com/lebroads/pothole-map/internal/models"
)

// Beirut is a position inside the bundled boundary
var Beirut = models.Position{Lat: 33.8938, Lng: 35.5194}

// CreateReport inserts a report row directly and returns it with its assigned id
func CreateReport(t *testing.T, db *sql.DB, pos models.Position, side models.RoadSide, descriptor string, intensity int) models.Report {
	t.Helper()

	r := models.Report{
		Position:   pos,
		RoadSide:   side,
		Descriptor: descriptor,
		Intensity:  intensity,
	}
	err := db.QueryRow(
		`INSERT INTO reports (lat, lng, road_side, descriptor, intensity) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		pos.Lat, pos.Lng, string(side), descriptor, intensity,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create report: %v", err)
	}
	return r
}

// CreateVote inserts or replaces a vote row directly
func CreateVote(t *testing.T, db *sql.DB, reportID int64, voterID string, value int) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO votes (report_id, voter_id, value) VALUES ($1, $2, $3)
		 ON CONFLICT (report_id, voter_id) DO UPDATE SET value = EXCLUDED.value`,
		reportID, voterID, value,
	)
	if err != nil {
		t.Fatalf("Failed to create vote: %v", err)
	}
}
