package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lebroads/pothole-map/internal/models"
)

var ErrVoteNotFound = errors.New("vote not found")

// VoteRepository handles vote database operations
type VoteRepository struct {
	db *sql.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *sql.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Upsert stores the voter's current opinion, replacing any earlier vote on the same report
func (r *VoteRepository) Upsert(ctx context.Context, vote *models.Vote) error {
	query := `
		INSERT INTO votes (report_id, voter_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (report_id, voter_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, vote.ReportID, vote.VoterID, vote.Value).Scan(&vote.UpdatedAt)
	if hasCode(err, foreignKeyViolation) {
		return ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}

	return nil
}

// Get retrieves the vote of one voter on one report
func (r *VoteRepository) Get(ctx context.Context, reportID int64, voterID string) (*models.Vote, error) {
	query := `
		SELECT report_id, voter_id, value, updated_at
		FROM votes
		WHERE report_id = $1 AND voter_id = $2
	`

	vote := &models.Vote{}
	err := r.db.QueryRowContext(ctx, query, reportID, voterID).Scan(
		&vote.ReportID,
		&vote.VoterID,
		&vote.Value,
		&vote.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return vote, nil
}
