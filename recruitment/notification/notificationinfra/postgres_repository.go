package notificationinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/application"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresRepository implements notification.Repository and
// notification.EmployerDirectory using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL notification repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	_ notification.Repository        = (*PostgresRepository)(nil)
	_ notification.EmployerDirectory = (*PostgresRepository)(nil)
)

// ============================================================================
// Database Models
// ============================================================================

type pairModel struct {
	JobID       string `db:"job_id"`
	CandidateID string `db:"candidate_id"`
}

type employerModel struct {
	ID             string         `db:"id"`
	Email          string         `db:"email"`
	Name           string         `db:"name"`
	Company        sql.NullString `db:"company"`
	DigestEnabled  bool           `db:"digest_enabled"`
	DigestMinScore sql.NullInt32  `db:"digest_min_score"`
	DigestFreq     sql.NullString `db:"digest_frequency"`
}

func (m *employerModel) toEntity() *notification.Employer {
	return &notification.Employer{
		ID:      kernel.UserID(m.ID),
		Email:   kernel.Email(m.Email),
		Name:    m.Name,
		Company: m.Company.String,
		Preference: notification.DigestPreference{
			Enabled:   m.DigestEnabled,
			MinScore:  int(m.DigestMinScore.Int32),
			Frequency: notification.Frequency(m.DigestFreq.String),
		},
	}
}

const employerQuery = `
	SELECT e.user_id AS id, e.email, e.name, e.company,
	       COALESCE(p.enabled, false) AS digest_enabled,
	       p.min_score AS digest_min_score,
	       p.frequency AS digest_frequency
	FROM employer_profiles e
	LEFT JOIN digest_preferences p ON p.user_id = e.user_id`

// ============================================================================
// Notification records
// ============================================================================

// NotifiedPairs returns the pairs with a claimed or sent record of any kind
func (r *PostgresRepository) NotifiedPairs(ctx context.Context, jobIDs []kernel.JobID, candidateIDs []kernel.CandidateID) (application.PairSet, error) {
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
		SELECT DISTINCT job_id, candidate_id
		FROM notification_records
		WHERE job_id = ANY($1) AND candidate_id = ANY($2) AND status <> $3
	`

	var rows []pairModel
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(jobs), pq.Array(candidates), string(notification.RecordFailed)); err != nil {
		return nil, fmt.Errorf("failed to list notified pairs: %w", err)
	}

	for _, row := range rows {
		pairs.Add(kernel.JobID(row.JobID), kernel.CandidateID(row.CandidateID))
	}

	return pairs, nil
}

// Claim inserts the record unless one already exists for the same kind and
// pair. A previously failed record is taken over.
func (r *PostgresRepository) Claim(ctx context.Context, record *notification.NotificationRecord) (bool, error) {
	if record.ID.IsEmpty() {
		record.ID = kernel.NewNotificationID(uuid.NewString())
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.Status = notification.RecordClaimed

	query := `
		INSERT INTO notification_records (
			id, kind, candidate_id, job_id, recipient_id, recipient,
			score, tracking_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (kind, candidate_id, job_id) DO UPDATE SET
			id = EXCLUDED.id,
			recipient_id = EXCLUDED.recipient_id,
			recipient = EXCLUDED.recipient,
			score = EXCLUDED.score,
			tracking_id = EXCLUDED.tracking_id,
			status = EXCLUDED.status,
			error = NULL,
			created_at = EXCLUDED.created_at
		WHERE notification_records.status = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID.String(),
		string(record.Kind),
		record.CandidateID.String(),
		record.JobID.String(),
		record.RecipientID,
		string(record.Recipient),
		record.Score,
		record.TrackingID.String(),
		string(record.Status),
		record.CreatedAt,
		string(notification.RecordFailed),
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// MarkSent records the provider message id on the given records
func (r *PostgresRepository) MarkSent(ctx context.Context, ids []kernel.NotificationID, messageID string, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE notification_records
		SET status = $2, message_id = $3, sent_at = $4, error = NULL
		WHERE id = ANY($1)
	`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(notificationIDs(ids)), string(notification.RecordSent), messageID, sentAt); err != nil {
		return fmt.Errorf("failed to mark notifications sent: %w", err)
	}

	return nil
}

// MarkFailed releases the records so a later pass may claim them again
func (r *PostgresRepository) MarkFailed(ctx context.Context, ids []kernel.NotificationID, reason string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE notification_records
		SET status = $2, error = $3
		WHERE id = ANY($1)
	`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(notificationIDs(ids)), string(notification.RecordFailed), reason); err != nil {
		return fmt.Errorf("failed to mark notifications failed: %w", err)
	}

	return nil
}

func notificationIDs(ids []kernel.NotificationID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// ============================================================================
// Digest runs & engagement
// ============================================================================

// RecordDigestRun stores the outcome of one employer digest check
func (r *PostgresRepository) RecordDigestRun(ctx context.Context, run notification.DigestRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
		INSERT INTO digest_runs (
			id, employer_id, frequency, status, match_count, tracking_id,
			message_id, error, period_start, period_end, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.EmployerID.String(),
		string(run.Frequency),
		string(run.Status),
		run.MatchCount,
		nullString(run.TrackingID.String()),
		nullString(run.MessageID),
		nullString(run.Error),
		run.PeriodStart,
		run.PeriodEnd,
		run.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record digest run: %w", err)
	}

	return nil
}

// RecordEngagement appends an open or click event for a tracking id
func (r *PostgresRepository) RecordEngagement(ctx context.Context, trackingID kernel.TrackingID, event notification.EngagementType, at time.Time) error {
	query := `
		INSERT INTO notification_engagements (id, tracking_id, event, occurred_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), trackingID.String(), string(event), at); err != nil {
		return fmt.Errorf("failed to record engagement: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ============================================================================
// Employer directory
// ============================================================================

// GetEmployer retrieves an employer and its digest preference
func (r *PostgresRepository) GetEmployer(ctx context.Context, id kernel.UserID) (*notification.Employer, error) {
	query := employerQuery + ` WHERE e.user_id = $1`

	var model employerModel
	if err := r.db.GetContext(ctx, &model, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrEmployerNotFound().WithDetail("employer_id", id.String())
		}
		return nil, fmt.Errorf("failed to get employer: %w", err)
	}

	return model.toEntity(), nil
}

// ListEmployers retrieves every employer with its digest preference
func (r *PostgresRepository) ListEmployers(ctx context.Context) ([]*notification.Employer, error) {
	query := employerQuery + ` ORDER BY e.user_id`

	var models []employerModel
	if err := r.db.SelectContext(ctx, &models, query); err != nil {
		return nil, fmt.Errorf("failed to list employers: %w", err)
	}

	employers := make([]*notification.Employer, len(models))
	for i := range models {
		employers[i] = models[i].toEntity()
	}
	return employers, nil
}
