package matching

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

type HistoryRepository interface {
	// ListByUserSince retrieves the history of a user scored at or after since
	ListByUserSince(ctx context.Context, userID kernel.UserID, since time.Time) ([]MatchHistoryRecord, error)

	// ListByUserAndCandidates retrieves the history of a user for the given candidates
	ListByUserAndCandidates(ctx context.Context, userID kernel.UserID, candidateIDs []kernel.CandidateID) ([]MatchHistoryRecord, error)

	// ListByJobsSince retrieves the history recorded for the given jobs at or after since
	ListByJobsSince(ctx context.Context, jobIDs []kernel.JobID, since time.Time, minOverall int) ([]MatchHistoryRecord, error)

	// Append stores a new history record
	Append(ctx context.Context, record MatchHistoryRecord) error
}

type Exporter interface {
	// Export stores the batch results as an artifact and returns its location
	Export(ctx context.Context, name string, results []BatchMatchResult) (string, error)
}

type WatermarkStore interface {
	// LastRun returns the start time of the previous incremental run, zero if none
	LastRun(ctx context.Context) (time.Time, error)

	// SetLastRun stores the start time of a finished incremental run
	SetLastRun(ctx context.Context, at time.Time) error
}
