package applicationinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/application"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresApplicationRepository implements application.Repository using PostgreSQL
type PostgresApplicationRepository struct {
	db *sqlx.DB
}

// NewPostgresApplicationRepository creates a new PostgreSQL application repository
func NewPostgresApplicationRepository(db *sqlx.DB) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

type pairModel struct {
	JobID       string `db:"job_id"`
	CandidateID string `db:"candidate_id"`
}

// ExistsByJobAndCandidate checks if an application exists for a job and candidate
func (r *PostgresApplicationRepository) ExistsByJobAndCandidate(ctx context.Context, jobID kernel.JobID, candidateID kernel.CandidateID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM applications WHERE job_id = $1 AND candidate_id = $2)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, jobID.String(), candidateID.String())
	if err != nil {
		return false, application.ErrLookupFailed().WithCause(err).WithDetail("job_id", jobID)
	}

	return exists, nil
}

// AppliedPairs returns the pairs that already have an application
func (r *PostgresApplicationRepository) AppliedPairs(ctx context.Context, jobIDs []kernel.JobID, candidateIDs []kernel.CandidateID) (application.PairSet, error) {
	pairs := make(application.PairSet)
	if len(jobIDs) == 0 || len(candidateIDs) == 0 {
		return pairs, nil
	}

	jobs := make([]string, len(jobIDs))
	for i, id := range jobIDs {
		jobs[i] = id.String()
	}
	candidates := make([]string, len(candidateIDs))
	for i, id := range candidateIDs {
		candidates[i] = id.String()
	}

	query := `
		SELECT job_id, candidate_id
		FROM applications
		WHERE job_id = ANY($1) AND candidate_id = ANY($2)
	`

	var rows []pairModel
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(jobs), pq.Array(candidates)); err != nil {
		return nil, application.ErrLookupFailed().WithCause(err)
	}

	for _, row := range rows {
		pairs.Add(kernel.JobID(row.JobID), kernel.CandidateID(row.CandidateID))
	}

	return pairs, nil
}

// UpdateMatchScore writes the match-score fields of an existing application
func (r *PostgresApplicationRepository) UpdateMatchScore(ctx context.Context, jobID kernel.JobID, candidateID kernel.CandidateID, update application.ScoreUpdate) (bool, error) {
	query := `
		UPDATE applications
		SET match_score = $3,
		    match_breakdown = $4,
		    match_source = $5,
		    match_scored_at = $6,
		    updated_at = $7
		WHERE job_id = $1 AND candidate_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		jobID.String(),
		candidateID.String(),
		update.Overall,
		[]byte(update.Breakdown),
		update.Source,
		update.ScoredAt,
		time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update application match score: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}
