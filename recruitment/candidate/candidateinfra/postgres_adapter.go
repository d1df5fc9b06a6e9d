package candidateinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresCandidateRepository implements candidate.Repository using PostgreSQL
type PostgresCandidateRepository struct {
	db *sqlx.DB
}

// NewPostgresCandidateRepository creates a new PostgreSQL candidate repository
func NewPostgresCandidateRepository(db *sqlx.DB) *PostgresCandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

// ============================================================================
// Database Model
// ============================================================================

const candidateColumns = `
	id, email, first_name, last_name, headline, skills, years_of_experience,
	education, preferences, soft_skills, personality_traits,
	salary_min, salary_max, salary_currency, location, open_to_relocation,
	status, created_at, updated_at`

type candidateModel struct {
	ID                string          `db:"id"`
	Email             string          `db:"email"`
	FirstName         string          `db:"first_name"`
	LastName          string          `db:"last_name"`
	Headline          sql.NullString  `db:"headline"`
	Skills            pq.StringArray  `db:"skills"`
	YearsOfExperience int             `db:"years_of_experience"`
	Education         json.RawMessage `db:"education"`
	Preferences       json.RawMessage `db:"preferences"`
	SoftSkills        pq.StringArray  `db:"soft_skills"`
	PersonalityTraits pq.StringArray  `db:"personality_traits"`
	SalaryMin         sql.NullInt64   `db:"salary_min"`
	SalaryMax         sql.NullInt64   `db:"salary_max"`
	SalaryCurrency    sql.NullString  `db:"salary_currency"`
	Location          sql.NullString  `db:"location"`
	OpenToRelocation  bool            `db:"open_to_relocation"`
	Status            string          `db:"status"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// toEntity converts database model to domain entity
func (m *candidateModel) toEntity() (*candidate.Candidate, error) {
	var education []candidate.Education
	if len(m.Education) > 0 {
		if err := json.Unmarshal(m.Education, &education); err != nil {
			return nil, fmt.Errorf("failed to unmarshal education: %w", err)
		}
	}

	var prefs candidate.WorkPreferences
	if len(m.Preferences) > 0 {
		if err := json.Unmarshal(m.Preferences, &prefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}

	skills := make([]kernel.Skill, len(m.Skills))
	for i, s := range m.Skills {
		skills[i] = kernel.Skill(s)
	}

	return &candidate.Candidate{
		ID:                kernel.CandidateID(m.ID),
		Email:             kernel.Email(m.Email),
		FirstName:         kernel.FirstName(m.FirstName),
		LastName:          kernel.LastName(m.LastName),
		Headline:          m.Headline.String,
		Skills:            skills,
		YearsOfExperience: m.YearsOfExperience,
		Education:         education,
		Preferences:       prefs,
		SoftSkills:        []string(m.SoftSkills),
		PersonalityTraits: []string(m.PersonalityTraits),
		DesiredSalary: kernel.SalaryRange{
			Min:      int(m.SalaryMin.Int64),
			Max:      int(m.SalaryMax.Int64),
			Currency: m.SalaryCurrency.String,
		},
		Location:         kernel.Location(m.Location.String),
		OpenToRelocation: m.OpenToRelocation,
		Status:           candidate.CandidateStatus(m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

func toEntities(models []candidateModel) ([]*candidate.Candidate, error) {
	entities := make([]*candidate.Candidate, 0, len(models))
	for i := range models {
		entity, err := models[i].toEntity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// ============================================================================
// Repository Implementation
// ============================================================================

// GetByID retrieves a candidate by ID
func (r *PostgresCandidateRepository) GetByID(ctx context.Context, id kernel.CandidateID) (*candidate.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`

	var model candidateModel
	if err := r.db.GetContext(ctx, &model, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, candidate.ErrCandidateNotFound().WithDetail("candidate_id", id.String())
		}
		return nil, fmt.Errorf("failed to get candidate by id: %w", err)
	}

	return model.toEntity()
}

// GetByIDs retrieves the candidates with the given IDs
func (r *PostgresCandidateRepository) GetByIDs(ctx context.Context, ids []kernel.CandidateID) ([]*candidate.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = ANY($1) ORDER BY created_at`

	var models []candidateModel
	if err := r.db.SelectContext(ctx, &models, query, pq.Array(raw)); err != nil {
		return nil, fmt.Errorf("failed to get candidates by ids: %w", err)
	}

	return toEntities(models)
}

// ListActive retrieves active candidates with pagination
func (r *PostgresCandidateRepository) ListActive(ctx context.Context, pagination kernel.PaginationOptions) (*kernel.Paginated[candidate.Candidate], error) {
	pagination = pagination.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM candidates WHERE status = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, candidate.CandidateStatusActive); err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	// created_at, id keeps page boundaries stable across calls
	query := `SELECT ` + candidateColumns + `
		FROM candidates
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`

	var models []candidateModel
	err := r.db.SelectContext(ctx, &models, query, candidate.CandidateStatusActive, pagination.PageSize, pagination.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	entities := make([]candidate.Candidate, 0, len(models))
	for i := range models {
		entity, err := models[i].toEntity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, *entity)
	}

	return kernel.NewPaginated(entities, pagination, total), nil
}

// ListCreatedSince retrieves active candidates created after since
func (r *PostgresCandidateRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]*candidate.Candidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM candidates
		WHERE status = $1 AND created_at > $2
		ORDER BY created_at, id`

	var models []candidateModel
	if err := r.db.SelectContext(ctx, &models, query, candidate.CandidateStatusActive, since); err != nil {
		return nil, fmt.Errorf("failed to list new candidates: %w", err)
	}

	return toEntities(models)
}

// ============================================================================
// Semantic Search with pgvector
// ============================================================================

// NearestToEmbedding returns active candidates ordered by cosine distance
func (r *PostgresCandidateRepository) NearestToEmbedding(ctx context.Context, embedding []float32, limit int) ([]*candidate.Candidate, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding cannot be empty")
	}
	if limit <= 0 {
		limit = kernel.DefaultPageSize
	}

	query := `SELECT ` + candidateColumns + `
		FROM candidates
		WHERE status = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3`

	var models []candidateModel
	err := r.db.SelectContext(ctx, &models, query, candidate.CandidateStatusActive, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates by embedding: %w", err)
	}

	return toEntities(models)
}

// UpdateEmbedding stores the profile embedding of a candidate
func (r *PostgresCandidateRepository) UpdateEmbedding(ctx context.Context, id kernel.CandidateID, embedding []float32) error {
	query := `UPDATE candidates SET embedding = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String(), pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to update candidate embedding: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return candidate.ErrCandidateNotFound().WithDetail("candidate_id", id.String())
	}

	return nil
}
