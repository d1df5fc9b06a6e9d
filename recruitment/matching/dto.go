package matching

import (
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
)

// ============================================================================
// Request DTOs
// ============================================================================

type ScoreRequest struct {
	CandidateID kernel.CandidateID `json:"candidate_id" validate:"required"`
	JobID       kernel.JobID       `json:"job_id" validate:"required"`
}

type ExplainRequest struct {
	CandidateID kernel.CandidateID `json:"candidate_id" validate:"required"`
	JobID       kernel.JobID       `json:"job_id" validate:"required"`
}

// BatchMatchRequest scores the listed jobs against the listed candidates.
// An empty candidate list means every active candidate.
type BatchMatchRequest struct {
	JobIDs        []kernel.JobID       `json:"job_ids" validate:"required,min=1,max=200,unique"`
	CandidateIDs  []kernel.CandidateID `json:"candidate_ids" validate:"max=5000,unique"`
	TopN          int                  `json:"top_n" validate:"gte=0,lte=1000"`
	MinScore      int                  `json:"min_score" validate:"gte=0,lte=100"`
	Concurrency   int                  `json:"concurrency" validate:"gte=0,lte=64"`
	GroupBy       GroupBy              `json:"group_by" validate:"omitempty,oneof=job candidate"`
	RecordHistory bool                 `json:"record_history"`
}

type RecommendRequest struct {
	UserID   kernel.UserID `json:"user_id" query:"user_id"`
	MinScore float64       `json:"min_score" query:"min_score" validate:"gte=0,lte=150"`
	Limit    int           `json:"limit" query:"limit" validate:"gte=0,lte=500"`
	PoolSize int           `json:"pool_size" query:"pool_size" validate:"gte=0,lte=1000"`
}

type WeightsRequest struct {
	UserID       kernel.UserID `json:"user_id" query:"user_id" validate:"required"`
	LookbackDays int           `json:"lookback_days" query:"lookback_days" validate:"gte=0,lte=3650"`
}

// ============================================================================
// Response DTOs
// ============================================================================

type ScoreResponse struct {
	CandidateID        kernel.CandidateID         `json:"candidate_id"`
	JobID              kernel.JobID               `json:"job_id"`
	Candidate          candidate.CandidateSummary `json:"candidate"`
	Job                job.JobSummary             `json:"job"`
	Score              MatchScore                 `json:"score"`
	ApplicationUpdated bool                       `json:"application_updated"`
}

type ExplainResponse struct {
	CandidateID kernel.CandidateID         `json:"candidate_id"`
	JobID       kernel.JobID               `json:"job_id"`
	Candidate   candidate.CandidateSummary `json:"candidate"`
	Job         job.JobSummary             `json:"job"`
	Score       MatchScore                 `json:"score"`
	Explanation Explanation                `json:"explanation"`
}

type RecommendResponse struct {
	JobID           kernel.JobID           `json:"job_id"`
	Job             job.JobSummary         `json:"job"`
	Weights         LearningWeights        `json:"weights"`
	Recommendations []RankedRecommendation `json:"recommendations"`
}

// IncrementalReport covers both directions of an incremental run
type IncrementalReport struct {
	Since         time.Time    `json:"since"`
	NewJobs       *BatchReport `json:"new_jobs,omitempty"`
	NewCandidates *BatchReport `json:"new_candidates,omitempty"`
}
