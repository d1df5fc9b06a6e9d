package candidate

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

type Repository interface {
	// GetByID retrieves a candidate by ID
	GetByID(ctx context.Context, id kernel.CandidateID) (*Candidate, error)

	// GetByIDs retrieves the candidates with the given IDs, missing IDs are skipped
	GetByIDs(ctx context.Context, ids []kernel.CandidateID) ([]*Candidate, error)

	// ListActive retrieves active candidates with pagination
	ListActive(ctx context.Context, pagination kernel.PaginationOptions) (*kernel.Paginated[Candidate], error)

	// ListCreatedSince retrieves active candidates created after since
	ListCreatedSince(ctx context.Context, since time.Time) ([]*Candidate, error)

	// NearestToEmbedding retrieves the active candidates closest to the given vector
	NearestToEmbedding(ctx context.Context, embedding []float32, limit int) ([]*Candidate, error)

	// UpdateEmbedding stores the profile embedding of a candidate
	UpdateEmbedding(ctx context.Context, id kernel.CandidateID, embedding []float32) error
}
