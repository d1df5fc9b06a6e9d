package matchsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/errx"
	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/recruitment/application"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
)

// Embedder turns profile and posting text into vectors
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Config holds the tunables of the matching service
type Config struct {
	Batch              BatchOptions
	LookbackDays       int
	RecommendPoolSize  int
	RecommendLimit     int
	Preselect          bool // narrow recommendation pools by embedding distance
	ExportResults      bool
	IncrementalDefault time.Duration
}

func DefaultConfig() Config {
	return Config{
		Batch:              DefaultBatchOptions(),
		LookbackDays:       DefaultLookbackDays,
		RecommendPoolSize:  200,
		RecommendLimit:     DefaultRecommendLimit,
		IncrementalDefault: time.Hour,
	}
}

// MatchService is the entry point of the matching engine
type MatchService struct {
	candidates   candidate.Repository
	jobs         job.Repository
	applications application.Repository

	calculator   *Calculator
	estimator    *WeightEstimator
	ranker       *Ranker
	orchestrator *Orchestrator

	embedder  Embedder
	exporter  matching.Exporter
	watermark matching.WatermarkStore

	cfg Config
	now func() time.Time
}

// NewMatchService creates the service. embedder, exporter and watermark may be nil.
func NewMatchService(
	candidates candidate.Repository,
	jobs job.Repository,
	applications application.Repository,
	calculator *Calculator,
	estimator *WeightEstimator,
	ranker *Ranker,
	orchestrator *Orchestrator,
	embedder Embedder,
	exporter matching.Exporter,
	watermark matching.WatermarkStore,
	cfg Config,
) *MatchService {
	return &MatchService{
		candidates:   candidates,
		jobs:         jobs,
		applications: applications,
		calculator:   calculator,
		estimator:    estimator,
		ranker:       ranker,
		orchestrator: orchestrator,
		embedder:     embedder,
		exporter:     exporter,
		watermark:    watermark,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Orchestrator exposes the batch orchestrator to other engines
func (s *MatchService) Orchestrator() *Orchestrator {
	return s.orchestrator
}

// ============================================================================
// Single pair
// ============================================================================

// ScoreOne scores a pair and writes the score back to an existing application
func (s *MatchService) ScoreOne(ctx context.Context, req matching.ScoreRequest) (*matching.ScoreResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, matching.ErrInvalidInput().WithCause(err)
	}

	c, j, err := s.loadPair(ctx, req.CandidateID, req.JobID)
	if err != nil {
		return nil, err
	}

	score, err := s.calculator.Score(ctx, c, j)
	if err != nil {
		return nil, err
	}

	return &matching.ScoreResponse{
		CandidateID:        c.ID,
		JobID:              j.ID,
		Candidate:          c.ToSummary(),
		Job:                j.ToSummary(),
		Score:              score,
		ApplicationUpdated: s.writeBack(ctx, j.ID, c.ID, score),
	}, nil
}

// Explain scores a pair and describes the result
func (s *MatchService) Explain(ctx context.Context, req matching.ExplainRequest) (*matching.ExplainResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, matching.ErrInvalidInput().WithCause(err)
	}

	c, j, err := s.loadPair(ctx, req.CandidateID, req.JobID)
	if err != nil {
		return nil, err
	}

	score, err := s.calculator.Score(ctx, c, j)
	if err != nil {
		return nil, err
	}

	return &matching.ExplainResponse{
		CandidateID: c.ID,
		JobID:       j.ID,
		Candidate:   c.ToSummary(),
		Job:         j.ToSummary(),
		Score:       score,
		Explanation: s.calculator.Explain(ctx, c, j, score),
	}, nil
}

func (s *MatchService) loadPair(ctx context.Context, candidateID kernel.CandidateID, jobID kernel.JobID) (*candidate.Candidate, *job.Job, error) {
	c, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, nil, err
	}
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if err := j.EnsureEligible(); err != nil {
		return nil, nil, err
	}
	return c, j, nil
}

func (s *MatchService) writeBack(ctx context.Context, jobID kernel.JobID, candidateID kernel.CandidateID, score matching.MatchScore) bool {
	breakdown, err := json.Marshal(score)
	if err != nil {
		logx.Errorw("failed to encode match breakdown", "job_id", jobID, "candidate_id", candidateID, "error", err)
		return false
	}

	updated, err := s.applications.UpdateMatchScore(ctx, jobID, candidateID, application.ScoreUpdate{
		Overall:   score.Overall,
		Breakdown: breakdown,
		Source:    string(score.Source),
		ScoredAt:  s.now(),
	})
	if err != nil {
		logx.Errorw("failed to store application match score", "job_id", jobID, "candidate_id", candidateID, "error", err)
		return false
	}
	return updated
}

// ============================================================================
// Batch
// ============================================================================

// BatchMatch scores the requested jobs against the requested candidates,
// or against every active candidate when none are listed.
func (s *MatchService) BatchMatch(ctx context.Context, req matching.BatchMatchRequest) (*matching.BatchReport, error) {
	if err := validate.Struct(req); err != nil {
		return nil, matching.ErrInvalidInput().WithCause(err)
	}

	jobs, err := s.loadJobs(ctx, req.JobIDs)
	if err != nil {
		return nil, err
	}

	opts := s.cfg.Batch
	opts.MinScore = req.MinScore
	opts.RecordHistory = req.RecordHistory
	if req.TopN > 0 {
		opts.TopN = req.TopN
	}
	if req.Concurrency > 0 {
		opts.Concurrency = req.Concurrency
	}
	if req.GroupBy != "" {
		opts.GroupBy = req.GroupBy
	}

	if len(req.CandidateIDs) == 0 {
		return s.orchestrator.Run(ctx, jobs, s.activeCandidates(), opts)
	}

	candidates, err := s.loadCandidates(ctx, req.CandidateIDs)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.BatchMatch(ctx, jobs, candidates, opts)
}

// RunFullBatch matches every eligible job against every active candidate
func (s *MatchService) RunFullBatch(ctx context.Context) (*matching.BatchReport, error) {
	jobs, err := s.allEligibleJobs(ctx)
	if err != nil {
		return nil, err
	}

	logx.Infof("Starting full batch match: %d jobs", len(jobs))

	opts := s.cfg.Batch
	opts.GroupBy = matching.GroupByJob
	report, err := s.orchestrator.Run(ctx, jobs, s.activeCandidates(), opts)
	if report != nil {
		s.export(ctx, "full", report)
	}
	return report, err
}

// RunIncremental matches what was created since the previous incremental run:
// new jobs against all candidates, then new candidates against the older jobs.
func (s *MatchService) RunIncremental(ctx context.Context) (*matching.IncrementalReport, error) {
	startedAt := s.now()
	since := startedAt.Add(-s.cfg.IncrementalDefault)
	if s.watermark != nil {
		last, err := s.watermark.LastRun(ctx)
		if err != nil {
			logx.Warnw("incremental watermark unavailable, using default window", "error", err)
		} else if !last.IsZero() {
			since = last
		}
	}

	newJobs, err := s.jobs.ListCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list new jobs: %w", err)
	}
	newCandidates, err := s.candidates.ListCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list new candidates: %w", err)
	}

	logx.Infof("Incremental match since %s: %d new jobs, %d new candidates", since.Format(time.RFC3339), len(newJobs), len(newCandidates))

	if s.cfg.Preselect {
		s.indexCandidates(ctx, newCandidates)
	}

	report := &matching.IncrementalReport{Since: since}
	opts := s.cfg.Batch

	if len(newJobs) > 0 {
		opts.GroupBy = matching.GroupByJob
		report.NewJobs, err = s.orchestrator.Run(ctx, newJobs, s.activeCandidates(), opts)
		if err != nil {
			return report, err
		}
		s.export(ctx, "incremental-jobs", report.NewJobs)
	}

	if len(newCandidates) > 0 {
		olderJobs, err := s.allEligibleJobs(ctx)
		if err != nil {
			return report, err
		}
		olderJobs = excludeJobs(olderJobs, newJobs)

		if len(olderJobs) > 0 {
			opts.GroupBy = matching.GroupByCandidate
			report.NewCandidates, err = s.orchestrator.BatchMatch(ctx, olderJobs, newCandidates, opts)
			if err != nil {
				return report, err
			}
			s.export(ctx, "incremental-candidates", report.NewCandidates)
		}
	}

	if s.watermark != nil {
		if err := s.watermark.SetLastRun(ctx, startedAt); err != nil {
			logx.Errorw("failed to store incremental watermark", "error", err)
		}
	}

	return report, nil
}

func (s *MatchService) export(ctx context.Context, kind string, report *matching.BatchReport) {
	if s.exporter == nil || !s.cfg.ExportResults || report == nil {
		return
	}

	name := fmt.Sprintf("%s-%s", kind, s.now().UTC().Format("20060102T150405Z"))
	location, err := s.exporter.Export(ctx, name, report.Results)
	if err != nil {
		logx.Errorw("failed to export batch results", "name", name, "error", err)
		return
	}
	logx.Infow("batch results exported", "location", location, "results", len(report.Results))
}

// ============================================================================
// Recommendations & weights
// ============================================================================

// Recommend ranks a candidate pool for a job with the employer's learned weights
func (s *MatchService) Recommend(ctx context.Context, jobID kernel.JobID, req matching.RecommendRequest) (*matching.RecommendResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, matching.ErrInvalidInput().WithCause(err)
	}

	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := j.EnsureEligible(); err != nil {
		return nil, err
	}

	userID := req.UserID
	if userID.IsEmpty() {
		userID = j.EmployerID()
	}
	poolSize := req.PoolSize
	if poolSize == 0 {
		poolSize = s.cfg.RecommendPoolSize
	}
	limit := req.Limit
	if limit == 0 {
		limit = s.cfg.RecommendLimit
	}

	pool, err := s.recommendationPool(ctx, j, poolSize)
	if err != nil {
		return nil, err
	}

	weights, err := s.estimator.Estimate(ctx, userID, s.cfg.LookbackDays)
	if err != nil {
		logx.Warnw("using default weights", "user_id", userID, "error", err)
		weights = matching.DefaultWeights()
	}

	recs, err := s.ranker.Recommend(ctx, j, pool, weights, RecommendOptions{
		UserID:      userID,
		MinScore:    req.MinScore,
		Limit:       limit,
		Concurrency: s.cfg.Batch.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	return &matching.RecommendResponse{JobID: j.ID, Job: j.ToSummary(), Weights: weights, Recommendations: recs}, nil
}

// EstimateWeights exposes the weight estimator
func (s *MatchService) EstimateWeights(ctx context.Context, req matching.WeightsRequest) (matching.LearningWeights, error) {
	if err := validate.Struct(req); err != nil {
		return matching.LearningWeights{}, matching.ErrInvalidInput().WithCause(err)
	}
	lookback := req.LookbackDays
	if lookback == 0 {
		lookback = s.cfg.LookbackDays
	}
	return s.estimator.Estimate(ctx, req.UserID, lookback)
}

func (s *MatchService) recommendationPool(ctx context.Context, j *job.Job, size int) ([]*candidate.Candidate, error) {
	if s.cfg.Preselect && s.embedder != nil {
		embedding, err := s.IndexJob(ctx, j)
		if err == nil {
			pool, err := s.candidates.NearestToEmbedding(ctx, embedding, size)
			if err == nil && len(pool) > 0 {
				return pool, nil
			}
			if err != nil {
				logx.Warnw("embedding preselection failed, using active candidates", "job_id", j.ID, "error", err)
			}
		}
	}

	page, err := s.candidates.ListActive(ctx, kernel.PaginationOptions{Page: 1, PageSize: size})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}
	return toPointers(page.Items), nil
}

// ============================================================================
// Embeddings
// ============================================================================

// IndexJob embeds a posting and stores the vector
func (s *MatchService) IndexJob(ctx context.Context, j *job.Job) ([]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}
	embedding, err := s.embedder.GenerateEmbedding(ctx, j.PostingText())
	if err != nil {
		logx.Warnw("failed to embed job", "job_id", j.ID, "error", err)
		return nil, err
	}
	if err := s.jobs.UpdateEmbedding(ctx, j.ID, embedding); err != nil {
		logx.Warnw("failed to store job embedding", "job_id", j.ID, "error", err)
	}
	return embedding, nil
}

// IndexCandidate embeds a profile and stores the vector
func (s *MatchService) IndexCandidate(ctx context.Context, c *candidate.Candidate) error {
	if s.embedder == nil {
		return nil
	}
	if c.Headline == "" && len(c.Skills) == 0 {
		return candidate.ErrInvalidProfile().WithDetail("candidate_id", c.ID)
	}
	embedding, err := s.embedder.GenerateEmbedding(ctx, c.ProfileText())
	if err != nil {
		logx.Warnw("failed to embed candidate", "candidate_id", c.ID, "error", err)
		return err
	}
	return s.candidates.UpdateEmbedding(ctx, c.ID, embedding)
}

func (s *MatchService) indexCandidates(ctx context.Context, cands []*candidate.Candidate) {
	indexed := 0
	for _, c := range cands {
		if err := s.IndexCandidate(ctx, c); err != nil {
			if errx.IsCode(err, candidate.CodeInvalidProfile) {
				logx.Debugw("skipping candidate without profile text", "candidate_id", c.ID)
				continue
			}
			logx.Warnw("failed to index candidate", "candidate_id", c.ID, "error", err)
			continue
		}
		indexed++
	}
	if indexed > 0 {
		logx.Infof("Indexed %d of %d new candidates", indexed, len(cands))
	}
}

// ============================================================================
// Loading helpers
// ============================================================================

func (s *MatchService) loadJobs(ctx context.Context, ids []kernel.JobID) ([]*job.Job, error) {
	jobs, err := s.jobs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[kernel.JobID]*job.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	ordered := make([]*job.Job, 0, len(ids))
	for _, id := range ids {
		j, ok := byID[id]
		if !ok {
			return nil, job.ErrJobNotFound().WithDetail("job_id", id.String())
		}
		ordered = append(ordered, j)
	}
	return ordered, nil
}

func (s *MatchService) loadCandidates(ctx context.Context, ids []kernel.CandidateID) ([]*candidate.Candidate, error) {
	candidates, err := s.candidates.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[kernel.CandidateID]*candidate.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	ordered := make([]*candidate.Candidate, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, candidate.ErrCandidateNotFound().WithDetail("candidate_id", id.String())
		}
		ordered = append(ordered, c)
	}
	return ordered, nil
}

// AllEligibleJobs pages through every open and published job
func (s *MatchService) AllEligibleJobs(ctx context.Context) ([]*job.Job, error) {
	return s.allEligibleJobs(ctx)
}

func (s *MatchService) allEligibleJobs(ctx context.Context) ([]*job.Job, error) {
	var out []*job.Job
	for page := 1; ; page++ {
		p, err := s.jobs.ListEligible(ctx, kernel.PaginationOptions{Page: page, PageSize: kernel.MaxPageSize})
		if err != nil {
			return nil, fmt.Errorf("failed to list eligible jobs: %w", err)
		}
		for i := range p.Items {
			out = append(out, &p.Items[i])
		}
		if !p.HasNext() {
			return out, nil
		}
	}
}

// ActiveCandidates returns a source paging through every active candidate
func (s *MatchService) ActiveCandidates() CandidateSource {
	return s.activeCandidates()
}

func (s *MatchService) activeCandidates() CandidateSource {
	page := 0
	done := false
	return func(ctx context.Context, size int) ([]*candidate.Candidate, error) {
		if done {
			return nil, nil
		}
		page++
		p, err := s.candidates.ListActive(ctx, kernel.PaginationOptions{Page: page, PageSize: size})
		if err != nil {
			return nil, err
		}
		done = !p.HasNext()
		return toPointers(p.Items), nil
	}
}

func toPointers(items []candidate.Candidate) []*candidate.Candidate {
	out := make([]*candidate.Candidate, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}

func excludeJobs(all, exclude []*job.Job) []*job.Job {
	skip := make(map[kernel.JobID]struct{}, len(exclude))
	for _, j := range exclude {
		skip[j.ID] = struct{}{}
	}
	out := make([]*job.Job, 0, len(all))
	for _, j := range all {
		if _, ok := skip[j.ID]; !ok {
			out = append(out, j)
		}
	}
	return out
}
