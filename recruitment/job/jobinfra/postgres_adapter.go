package jobinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresJobRepository implements job.Repository using PostgreSQL
type PostgresJobRepository struct {
	db *sqlx.DB
}

// NewPostgresJobRepository creates a new PostgreSQL job repository
func NewPostgresJobRepository(db *sqlx.DB) *PostgresJobRepository {
	return &PostgresJobRepository{
		db: db,
	}
}

// ============================================================================
// Database Model
// ============================================================================

const jobColumns = `
	id, job_title, job_description, enriched_description,
	required_skills, preferred_skills, work_setting, employment_type,
	salary_min, salary_max, salary_currency, location, company,
	posted_by, status, published_at, created_at, updated_at`

type jobModel struct {
	ID                  string         `db:"id"`
	JobTitle            string         `db:"job_title"`
	JobDescription      string         `db:"job_description"`
	EnrichedDescription sql.NullString `db:"enriched_description"`
	RequiredSkills      pq.StringArray `db:"required_skills"`
	PreferredSkills     pq.StringArray `db:"preferred_skills"`
	WorkSetting         sql.NullString `db:"work_setting"`
	EmploymentType      sql.NullString `db:"employment_type"`
	SalaryMin           sql.NullInt64  `db:"salary_min"`
	SalaryMax           sql.NullInt64  `db:"salary_max"`
	SalaryCurrency      sql.NullString `db:"salary_currency"`
	Location            sql.NullString `db:"location"`
	Company             sql.NullString `db:"company"`
	PostedBy            string         `db:"posted_by"`
	Status              string         `db:"status"`
	PublishedAt         *time.Time     `db:"published_at"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func toSkills(raw pq.StringArray) []kernel.Skill {
	skills := make([]kernel.Skill, len(raw))
	for i, s := range raw {
		skills[i] = kernel.Skill(s)
	}
	return skills
}

// toEntity converts database model to domain entity
func (m *jobModel) toEntity() *job.Job {
	return &job.Job{
		ID:                  kernel.JobID(m.ID),
		Title:               kernel.JobTitle(m.JobTitle),
		Description:         kernel.JobDescription(m.JobDescription),
		EnrichedDescription: m.EnrichedDescription.String,
		RequiredSkills:      toSkills(m.RequiredSkills),
		PreferredSkills:     toSkills(m.PreferredSkills),
		WorkSetting:         kernel.WorkSetting(m.WorkSetting.String),
		EmploymentType:      kernel.EmploymentType(m.EmploymentType.String),
		Salary: kernel.SalaryRange{
			Min:      int(m.SalaryMin.Int64),
			Max:      int(m.SalaryMax.Int64),
			Currency: m.SalaryCurrency.String,
		},
		Location:    kernel.Location(m.Location.String),
		Company:     kernel.CompanyName(m.Company.String),
		PostedBy:    kernel.UserID(m.PostedBy),
		Status:      job.JobStatus(m.Status),
		PublishedAt: m.PublishedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toEntities(models []jobModel) []*job.Job {
	entities := make([]*job.Job, 0, len(models))
	for i := range models {
		entities = append(entities, models[i].toEntity())
	}
	return entities
}

var eligibleStatuses = pq.Array([]string{string(job.JobStatusOpen), string(job.JobStatusPublished)})

// ============================================================================
// Repository Implementation
// ============================================================================

// GetByID retrieves a job by ID
func (r *PostgresJobRepository) GetByID(ctx context.Context, id kernel.JobID) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	var model jobModel
	err := r.db.GetContext(ctx, &model, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, job.ErrJobNotFound().WithDetail("job_id", id.String())
		}
		return nil, fmt.Errorf("failed to get job by id: %w", err)
	}

	return model.toEntity(), nil
}

// GetByIDs retrieves the jobs with the given IDs
func (r *PostgresJobRepository) GetByIDs(ctx context.Context, ids []kernel.JobID) ([]*job.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ANY($1) ORDER BY created_at`

	var models []jobModel
	if err := r.db.SelectContext(ctx, &models, query, pq.Array(raw)); err != nil {
		return nil, fmt.Errorf("failed to get jobs by ids: %w", err)
	}

	return toEntities(models), nil
}

// ListEligible retrieves open and published jobs with pagination
func (r *PostgresJobRepository) ListEligible(ctx context.Context, pagination kernel.PaginationOptions) (*kernel.Paginated[job.Job], error) {
	pagination = pagination.Normalize()

	// Count total
	var total int
	countQuery := `SELECT COUNT(*) FROM jobs WHERE status = ANY($1)`
	if err := r.db.GetContext(ctx, &total, countQuery, eligibleStatuses); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = ANY($1)
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`

	var models []jobModel
	err := r.db.SelectContext(ctx, &models, query, eligibleStatuses, pagination.PageSize, pagination.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	entities := make([]job.Job, 0, len(models))
	for i := range models {
		entities = append(entities, *models[i].toEntity())
	}

	return kernel.NewPaginated(entities, pagination, total), nil
}

// ListCreatedSince retrieves eligible jobs created after since
func (r *PostgresJobRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = ANY($1) AND created_at > $2
		ORDER BY created_at, id`

	var models []jobModel
	if err := r.db.SelectContext(ctx, &models, query, eligibleStatuses, since); err != nil {
		return nil, fmt.Errorf("failed to list new jobs: %w", err)
	}

	return toEntities(models), nil
}

// ListByUserID retrieves jobs posted by a specific user
func (r *PostgresJobRepository) ListByUserID(ctx context.Context, userID kernel.UserID) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE posted_by = $1
		ORDER BY created_at DESC`

	var models []jobModel
	if err := r.db.SelectContext(ctx, &models, query, userID.String()); err != nil {
		return nil, fmt.Errorf("failed to list user jobs: %w", err)
	}

	return toEntities(models), nil
}

// UpdateEmbedding stores the posting embedding of a job
func (r *PostgresJobRepository) UpdateEmbedding(ctx context.Context, id kernel.JobID, embedding []float32) error {
	query := `UPDATE jobs SET embedding = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String(), pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to update job embedding: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return job.ErrJobNotFound().WithDetail("job_id", id.String())
	}

	return nil
}
