package application

import (
	"context"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

type Repository interface {
	// ExistsByJobAndCandidate checks if an application exists for a job and candidate
	ExistsByJobAndCandidate(ctx context.Context, jobID kernel.JobID, candidateID kernel.CandidateID) (bool, error)

	// AppliedPairs returns the pairs among jobIDs x candidateIDs that already have an application
	AppliedPairs(ctx context.Context, jobIDs []kernel.JobID, candidateIDs []kernel.CandidateID) (PairSet, error)

	// UpdateMatchScore writes the match-score fields of an existing application.
	// Reports false when no application exists for the pair.
	UpdateMatchScore(ctx context.Context, jobID kernel.JobID, candidateID kernel.CandidateID, update ScoreUpdate) (bool, error)
}
