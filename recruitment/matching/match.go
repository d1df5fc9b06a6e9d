package matching

import (
	"math"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

// ScoreSource tells which path produced a score
type ScoreSource string

const (
	SourceOracle   ScoreSource = "oracle"
	SourceFallback ScoreSource = "fallback"
)

// Dimension names one of the scored attributes
type Dimension string

const (
	DimensionOverall      Dimension = "overall"
	DimensionSkill        Dimension = "skill"
	DimensionExperience   Dimension = "experience"
	DimensionCultureFit   Dimension = "cultureFit"
	DimensionWellbeing    Dimension = "wellbeing"
	DimensionWorkSetting  Dimension = "workSetting"
	DimensionSalaryFit    Dimension = "salaryFit"
	DimensionLocationFit  Dimension = "locationFit"
	DimensionCareerGrowth Dimension = "careerGrowth"
	DimensionSoftSkills   Dimension = "softSkills"
)

// Label returns the human-readable name of the dimension
func (d Dimension) Label() string {
	switch d {
	case DimensionSkill:
		return "skills"
	case DimensionExperience:
		return "experience"
	case DimensionCultureFit:
		return "culture fit"
	case DimensionWellbeing:
		return "wellbeing"
	case DimensionWorkSetting:
		return "work setting"
	case DimensionSalaryFit:
		return "salary fit"
	case DimensionLocationFit:
		return "location"
	case DimensionCareerGrowth:
		return "career growth"
	case DimensionSoftSkills:
		return "soft skills"
	default:
		return "overall"
	}
}

const (
	MinScore = 0
	MaxScore = 100
)

// FallbackNotice flags scores computed without the oracle
const FallbackNotice = "basic scoring - AI unavailable"

// Breakdown is the free-form reasoning attached to a score
type Breakdown struct {
	Strengths       []string `json:"strengths"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
	KeyInsights     []string `json:"keyInsights"`
}

// MatchScore is the compatibility of one candidate with one job.
// Overall is always derived from the other nine dimensions.
type MatchScore struct {
	Overall      int         `json:"overall"`
	Skill        int         `json:"skill"`
	Experience   int         `json:"experience"`
	CultureFit   int         `json:"cultureFit"`
	Wellbeing    int         `json:"wellbeing"`
	WorkSetting  int         `json:"workSetting"`
	SalaryFit    int         `json:"salaryFit"`
	LocationFit  int         `json:"locationFit"`
	CareerGrowth int         `json:"careerGrowth"`
	SoftSkills   int         `json:"softSkills"`
	Breakdown    Breakdown   `json:"matchBreakdown"`
	Source       ScoreSource `json:"source"`
}

// overallWeights is the canonical weighting of the nine dimensions
var overallWeights = []struct {
	dim    Dimension
	weight float64
}{
	{DimensionSkill, 0.30},
	{DimensionExperience, 0.15},
	{DimensionCultureFit, 0.15},
	{DimensionWellbeing, 0.10},
	{DimensionWorkSetting, 0.10},
	{DimensionSalaryFit, 0.10},
	{DimensionLocationFit, 0.05},
	{DimensionCareerGrowth, 0.03},
	{DimensionSoftSkills, 0.02},
}

// Clamp bounds a value to [0,100]
func Clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// WeightedOverall computes overall from the nine sub-dimensions
func WeightedOverall(s MatchScore) int {
	var total float64
	for _, w := range overallWeights {
		total += w.weight * float64(s.Get(w.dim))
	}
	return Clamp(int(math.Round(total)))
}

// Get returns the value of a dimension
func (s MatchScore) Get(d Dimension) int {
	switch d {
	case DimensionOverall:
		return s.Overall
	case DimensionSkill:
		return s.Skill
	case DimensionExperience:
		return s.Experience
	case DimensionCultureFit:
		return s.CultureFit
	case DimensionWellbeing:
		return s.Wellbeing
	case DimensionWorkSetting:
		return s.WorkSetting
	case DimensionSalaryFit:
		return s.SalaryFit
	case DimensionLocationFit:
		return s.LocationFit
	case DimensionCareerGrowth:
		return s.CareerGrowth
	case DimensionSoftSkills:
		return s.SoftSkills
	}
	return 0
}

// Normalized clamps every dimension and recomputes overall
func (s MatchScore) Normalized() MatchScore {
	s.Skill = Clamp(s.Skill)
	s.Experience = Clamp(s.Experience)
	s.CultureFit = Clamp(s.CultureFit)
	s.Wellbeing = Clamp(s.Wellbeing)
	s.WorkSetting = Clamp(s.WorkSetting)
	s.SalaryFit = Clamp(s.SalaryFit)
	s.LocationFit = Clamp(s.LocationFit)
	s.CareerGrowth = Clamp(s.CareerGrowth)
	s.SoftSkills = Clamp(s.SoftSkills)
	s.Overall = WeightedOverall(s)
	return s
}

// IsFallback reports whether the score came from the heuristic scorer
func (s MatchScore) IsFallback() bool {
	return s.Source == SourceFallback
}

// SubDimensions lists the nine dimensions overall is derived from
func SubDimensions() []Dimension {
	dims := make([]Dimension, len(overallWeights))
	for i, w := range overallWeights {
		dims[i] = w.dim
	}
	return dims
}

// ============================================================================
// History & Outcomes
// ============================================================================

// Outcome is the hiring pipeline stage a scored match reached
type Outcome string

const (
	OutcomePending     Outcome = ""
	OutcomeContacted   Outcome = "contacted"
	OutcomeInterviewed Outcome = "interviewed"
	OutcomeOffered     Outcome = "offered"
	OutcomeHired       Outcome = "hired"
	OutcomeRejected    Outcome = "rejected"
)

// IsKnown reports whether a downstream stage recorded an outcome
func (o Outcome) IsKnown() bool {
	switch o {
	case OutcomeContacted, OutcomeInterviewed, OutcomeOffered, OutcomeHired, OutcomeRejected:
		return true
	}
	return false
}

// IsSuccessful reports whether the match progressed past first contact
func (o Outcome) IsSuccessful() bool {
	return o == OutcomeHired || o == OutcomeOffered || o == OutcomeInterviewed
}

// MatchHistoryRecord is an append-only snapshot of a score for a user.
// Outcome is filled in later by the hiring pipeline.
type MatchHistoryRecord struct {
	ID          string             `json:"id"`
	UserID      kernel.UserID      `json:"user_id"`
	CandidateID kernel.CandidateID `json:"candidate_id"`
	JobID       kernel.JobID       `json:"job_id"`
	Score       MatchScore         `json:"score"`
	Outcome     Outcome            `json:"outcome,omitempty"`
	ScoredAt    time.Time          `json:"scored_at"`
	OutcomeAt   *time.Time         `json:"outcome_at,omitempty"`
}

// ============================================================================
// Learning Weights
// ============================================================================

type WeightsSource string

const (
	WeightsDefault WeightsSource = "default"
	WeightsLearned WeightsSource = "learned"
)

// WeightTolerance is the accepted deviation of the weight sum from 1
const WeightTolerance = 0.01

// LearningWeights bias ranking toward the profile of past successful matches
type LearningWeights struct {
	Skill        float64             `json:"skill"`
	Culture      float64             `json:"culture"`
	Wellbeing    float64             `json:"wellbeing"`
	Experience   float64             `json:"experience"`
	OutcomeBonus map[Outcome]float64 `json:"outcomeBonus"`
	SampleSize   int                 `json:"sampleSize"`
	Source       WeightsSource       `json:"source"`
}

// DefaultOutcomeBonus returns the multiplier applied per most recent outcome
func DefaultOutcomeBonus() map[Outcome]float64 {
	return map[Outcome]float64{
		OutcomeHired:       1.2,
		OutcomeOffered:     1.1,
		OutcomeInterviewed: 1.05,
		OutcomeContacted:   1.0,
		OutcomeRejected:    0.8,
	}
}

// DefaultWeights are used when there is no usable history
func DefaultWeights() LearningWeights {
	return LearningWeights{
		Skill:        0.35,
		Culture:      0.25,
		Wellbeing:    0.20,
		Experience:   0.20,
		OutcomeBonus: DefaultOutcomeBonus(),
		Source:       WeightsDefault,
	}
}

// Sum returns the sum of the four weights
func (w LearningWeights) Sum() float64 {
	return w.Skill + w.Culture + w.Wellbeing + w.Experience
}

// Bonus returns the multiplier for an outcome, 1 when none applies
func (w LearningWeights) Bonus(o Outcome) float64 {
	if !o.IsKnown() {
		return 1.0
	}
	if b, ok := w.OutcomeBonus[o]; ok {
		return b
	}
	return 1.0
}

// WeightOf returns the weight attached to a sub-dimension
func (w LearningWeights) WeightOf(d Dimension) float64 {
	switch d {
	case DimensionSkill:
		return w.Skill
	case DimensionCultureFit:
		return w.Culture
	case DimensionWellbeing:
		return w.Wellbeing
	case DimensionExperience:
		return w.Experience
	}
	return 0
}

// RankedDimensions are the sub-dimensions the learning weights apply to
var RankedDimensions = []Dimension{DimensionSkill, DimensionCultureFit, DimensionWellbeing, DimensionExperience}

// ============================================================================
// Batch & Recommendation Results
// ============================================================================

// GroupBy selects which side of the cross-product results are ranked for
type GroupBy string

const (
	GroupByJob       GroupBy = "job"
	GroupByCandidate GroupBy = "candidate"
)

// MatchEntry is one ranked pair inside a batch result
type MatchEntry struct {
	Rank        int                `json:"rank"`
	CandidateID kernel.CandidateID `json:"candidate_id"`
	JobID       kernel.JobID       `json:"job_id"`
	Score       MatchScore         `json:"score"`
}

// BatchMatchResult is the top-N list for one job or one candidate
type BatchMatchResult struct {
	GroupBy     GroupBy            `json:"group_by"`
	JobID       kernel.JobID       `json:"job_id,omitempty"`
	CandidateID kernel.CandidateID `json:"candidate_id,omitempty"`
	Matches     []MatchEntry       `json:"matches"`
}

// BatchStats are the per-run counters of a batch
type BatchStats struct {
	Jobs          int           `json:"jobs"`
	Candidates    int           `json:"candidates"`
	Batches       int           `json:"batches"`
	Pairs         int           `json:"pairs"`
	Skipped       int           `json:"skipped"`
	Duplicates    int           `json:"duplicates"`
	Scored        int           `json:"scored"`
	Fallbacks     int           `json:"fallbacks"`
	Failed        int           `json:"failed"`
	BelowMinScore int           `json:"below_min_score"`
	MatchesFound  int           `json:"matches_found"`
	Elapsed       time.Duration `json:"elapsed"`
	Cancelled     bool          `json:"cancelled"`
}

// BatchReport is the outcome of one orchestrator run
type BatchReport struct {
	Results []BatchMatchResult `json:"results"`
	Stats   BatchStats         `json:"stats"`
}

// RankedRecommendation is a candidate scored with learned weights
type RankedRecommendation struct {
	Rank                int                `json:"rank"`
	CandidateID         kernel.CandidateID `json:"candidate_id"`
	JobID               kernel.JobID       `json:"job_id"`
	RecommendationScore float64            `json:"recommendation_score"`
	Confidence          float64            `json:"confidence"`
	LastOutcome         Outcome            `json:"last_outcome,omitempty"`
	SuccessfulHistory   int                `json:"successful_history"`
	Score               MatchScore         `json:"score"`
	Explanation         string             `json:"explanation"`
}

// Explanation is the human-readable reading of a score
type Explanation struct {
	Summary          string      `json:"summary"`
	Strengths        []string    `json:"strengths"`
	ImprovementAreas []string    `json:"improvementAreas"`
	Source           ScoreSource `json:"source"`
}
