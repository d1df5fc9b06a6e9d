package job

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

type Repository interface {
	// GetByID retrieves a job by ID
	GetByID(ctx context.Context, id kernel.JobID) (*Job, error)

	// GetByIDs retrieves the jobs with the given IDs, missing IDs are skipped
	GetByIDs(ctx context.Context, ids []kernel.JobID) ([]*Job, error)

	// ListEligible retrieves open and published jobs with pagination
	ListEligible(ctx context.Context, pagination kernel.PaginationOptions) (*kernel.Paginated[Job], error)

	// ListCreatedSince retrieves eligible jobs created after since
	ListCreatedSince(ctx context.Context, since time.Time) ([]*Job, error)

	// ListByUserID retrieves jobs posted by a specific user
	ListByUserID(ctx context.Context, userID kernel.UserID) ([]*Job, error)

	// UpdateEmbedding stores the posting embedding of a job
	UpdateEmbedding(ctx context.Context, id kernel.JobID, embedding []float32) error
}
