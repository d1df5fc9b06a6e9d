package matchinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresHistoryRepository implements matching.HistoryRepository using PostgreSQL
type PostgresHistoryRepository struct {
	db *sqlx.DB
}

// NewPostgresHistoryRepository creates a new PostgreSQL match history repository
func NewPostgresHistoryRepository(db *sqlx.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// ============================================================================
// Database Model
// ============================================================================

const historyColumns = `
	id, user_id, candidate_id, job_id,
	overall, skill, experience, culture_fit, wellbeing, work_setting,
	salary_fit, location_fit, career_growth, soft_skills,
	breakdown, source, outcome, scored_at, outcome_at`

type historyModel struct {
	ID           string          `db:"id"`
	UserID       string          `db:"user_id"`
	CandidateID  string          `db:"candidate_id"`
	JobID        string          `db:"job_id"`
	Overall      int             `db:"overall"`
	Skill        int             `db:"skill"`
	Experience   int             `db:"experience"`
	CultureFit   int             `db:"culture_fit"`
	Wellbeing    int             `db:"wellbeing"`
	WorkSetting  int             `db:"work_setting"`
	SalaryFit    int             `db:"salary_fit"`
	LocationFit  int             `db:"location_fit"`
	CareerGrowth int             `db:"career_growth"`
	SoftSkills   int             `db:"soft_skills"`
	Breakdown    json.RawMessage `db:"breakdown"`
	Source       string          `db:"source"`
	Outcome      sql.NullString  `db:"outcome"`
	ScoredAt     time.Time       `db:"scored_at"`
	OutcomeAt    *time.Time      `db:"outcome_at"`
}

func (m *historyModel) toEntity() (matching.MatchHistoryRecord, error) {
	var breakdown matching.Breakdown
	if len(m.Breakdown) > 0 {
		if err := json.Unmarshal(m.Breakdown, &breakdown); err != nil {
			return matching.MatchHistoryRecord{}, fmt.Errorf("failed to unmarshal breakdown: %w", err)
		}
	}

	return matching.MatchHistoryRecord{
		ID:          m.ID,
		UserID:      kernel.UserID(m.UserID),
		CandidateID: kernel.CandidateID(m.CandidateID),
		JobID:       kernel.JobID(m.JobID),
		Score: matching.MatchScore{
			Overall:      m.Overall,
			Skill:        m.Skill,
			Experience:   m.Experience,
			CultureFit:   m.CultureFit,
			Wellbeing:    m.Wellbeing,
			WorkSetting:  m.WorkSetting,
			SalaryFit:    m.SalaryFit,
			LocationFit:  m.LocationFit,
			CareerGrowth: m.CareerGrowth,
			SoftSkills:   m.SoftSkills,
			Breakdown:    breakdown,
			Source:       matching.ScoreSource(m.Source),
		},
		Outcome:   matching.Outcome(m.Outcome.String),
		ScoredAt:  m.ScoredAt,
		OutcomeAt: m.OutcomeAt,
	}, nil
}

func toRecords(models []historyModel) ([]matching.MatchHistoryRecord, error) {
	records := make([]matching.MatchHistoryRecord, 0, len(models))
	for i := range models {
		record, err := models[i].toEntity()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ============================================================================
// Repository Implementation
// ============================================================================

// ListByUserSince retrieves the history of a user scored at or after since
func (r *PostgresHistoryRepository) ListByUserSince(ctx context.Context, userID kernel.UserID, since time.Time) ([]matching.MatchHistoryRecord, error) {
	query := `SELECT ` + historyColumns + `
		FROM match_history
		WHERE user_id = $1 AND scored_at >= $2
		ORDER BY scored_at, id`

	var models []historyModel
	if err := r.db.SelectContext(ctx, &models, query, userID.String(), since); err != nil {
		return nil, fmt.Errorf("failed to list match history: %w", err)
	}

	return toRecords(models)
}

// ListByUserAndCandidates retrieves the history of a user for the given candidates
func (r *PostgresHistoryRepository) ListByUserAndCandidates(ctx context.Context, userID kernel.UserID, candidateIDs []kernel.CandidateID) ([]matching.MatchHistoryRecord, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidateIDs))
	for i, id := range candidateIDs {
		ids[i] = id.String()
	}

	query := `SELECT ` + historyColumns + `
		FROM match_history
		WHERE user_id = $1 AND candidate_id = ANY($2)
		ORDER BY scored_at, id`

	var models []historyModel
	if err := r.db.SelectContext(ctx, &models, query, userID.String(), pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list candidate match history: %w", err)
	}

	return toRecords(models)
}

// ListByJobsSince retrieves the history recorded for the given jobs at or after since
func (r *PostgresHistoryRepository) ListByJobsSince(ctx context.Context, jobIDs []kernel.JobID, since time.Time, minOverall int) ([]matching.MatchHistoryRecord, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(jobIDs))
	for i, id := range jobIDs {
		ids[i] = id.String()
	}

	query := `SELECT ` + historyColumns + `
		FROM match_history
		WHERE job_id = ANY($1) AND scored_at >= $2 AND overall >= $3
		ORDER BY overall DESC, scored_at, id`

	var models []historyModel
	if err := r.db.SelectContext(ctx, &models, query, pq.Array(ids), since, minOverall); err != nil {
		return nil, fmt.Errorf("failed to list job match history: %w", err)
	}

	return toRecords(models)
}

// Append stores a new history record
func (r *PostgresHistoryRepository) Append(ctx context.Context, record matching.MatchHistoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ScoredAt.IsZero() {
		record.ScoredAt = time.Now()
	}

	breakdown, err := json.Marshal(record.Score.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	var outcome sql.NullString
	if record.Outcome != matching.OutcomePending {
		outcome = sql.NullString{String: string(record.Outcome), Valid: true}
	}

	query := `
		INSERT INTO match_history (` + historyColumns + `
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19
		)`

	s := record.Score
	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.UserID.String(), record.CandidateID.String(), record.JobID.String(),
		s.Overall, s.Skill, s.Experience, s.CultureFit, s.Wellbeing, s.WorkSetting,
		s.SalaryFit, s.LocationFit, s.CareerGrowth, s.SoftSkills,
		breakdown, string(s.Source), outcome, record.ScoredAt, record.OutcomeAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match history: %w", err)
	}

	return nil
}
