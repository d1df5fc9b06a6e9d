package application

import (
	"encoding/json"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

// ApplicationStatus represents the status of an application
type ApplicationStatus string

const (
	ApplicationStatusSubmitted    ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview  ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusInterviewing ApplicationStatus = "INTERVIEWING"
	ApplicationStatusApproved     ApplicationStatus = "APPROVED"
	ApplicationStatusRejected     ApplicationStatus = "REJECTED"
	ApplicationStatusWithdrawn    ApplicationStatus = "WITHDRAWN"
)

type Application struct {
	ID             kernel.ApplicationID `db:"id" json:"id"`
	JobID          kernel.JobID         `db:"job_id" json:"job_id"`
	CandidateID    kernel.CandidateID   `db:"candidate_id" json:"candidate_id"`
	Status         ApplicationStatus    `db:"status" json:"status"`
	MatchScore     *int                 `db:"match_score" json:"match_score,omitempty"`
	MatchBreakdown json.RawMessage      `db:"match_breakdown" json:"match_breakdown,omitempty"`
	MatchSource    string               `db:"match_source" json:"match_source,omitempty"`
	MatchScoredAt  *time.Time           `db:"match_scored_at" json:"match_scored_at,omitempty"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// HasMatchScore checks if the application was scored
func (a *Application) HasMatchScore() bool {
	return a.MatchScore != nil
}

// ScoreUpdate carries the match-score fields written back to an application
type ScoreUpdate struct {
	Overall   int             `db:"match_score"`
	Breakdown json.RawMessage `db:"match_breakdown"`
	Source    string          `db:"match_source"`
	ScoredAt  time.Time       `db:"match_scored_at"`
}

// Pair identifies a job and candidate combination
type Pair struct {
	JobID       kernel.JobID
	CandidateID kernel.CandidateID
}

// PairSet is a set of job/candidate pairs
type PairSet map[Pair]struct{}

// Add inserts a pair
func (s PairSet) Add(jobID kernel.JobID, candidateID kernel.CandidateID) {
	s[Pair{JobID: jobID, CandidateID: candidateID}] = struct{}{}
}

// Has checks membership of a pair
func (s PairSet) Has(jobID kernel.JobID, candidateID kernel.CandidateID) bool {
	_, ok := s[Pair{JobID: jobID, CandidateID: candidateID}]
	return ok
}
