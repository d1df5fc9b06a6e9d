package matchsrv

import (
	"context"
	"sort"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/application"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTopN        = 10
	DefaultBatchSize   = 100
	DefaultConcurrency = 5
)

var validate = validator.New()

// PairScorer scores one candidate against one job
type PairScorer interface {
	Score(ctx context.Context, c *candidate.Candidate, j *job.Job) (matching.MatchScore, error)
}

// BatchOptions tune a batch run
type BatchOptions struct {
	TopN          int              `json:"top_n" validate:"gte=1,lte=1000"`
	MinScore      int              `json:"min_score" validate:"gte=0,lte=100"`
	Concurrency   int              `json:"concurrency" validate:"gte=1,lte=64"`
	BatchSize     int              `json:"batch_size" validate:"gte=1,lte=1000"`
	GroupBy       matching.GroupBy `json:"group_by" validate:"oneof=job candidate"`
	RecordHistory bool             `json:"record_history"` // append a history row per scored pair
	KeepAll       bool             `json:"-"`              // keep every match at or above MinScore, TopN is ignored
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		TopN:        DefaultTopN,
		Concurrency: DefaultConcurrency,
		BatchSize:   DefaultBatchSize,
		GroupBy:     matching.GroupByJob,
	}
}

func (o BatchOptions) withDefaults() BatchOptions {
	d := DefaultBatchOptions()
	if o.TopN == 0 {
		o.TopN = d.TopN
	}
	if o.Concurrency == 0 {
		o.Concurrency = d.Concurrency
	}
	if o.BatchSize == 0 {
		o.BatchSize = d.BatchSize
	}
	if o.GroupBy == "" {
		o.GroupBy = d.GroupBy
	}
	return o
}

// CandidateSource yields the next batch of candidates. An empty batch ends the run.
type CandidateSource func(ctx context.Context, size int) ([]*candidate.Candidate, error)

// SliceSource serves candidates from memory
func SliceSource(candidates []*candidate.Candidate) CandidateSource {
	next := 0
	return func(_ context.Context, size int) ([]*candidate.Candidate, error) {
		if next >= len(candidates) {
			return nil, nil
		}
		end := min(next+size, len(candidates))
		batch := candidates[next:end]
		next = end
		return batch, nil
	}
}

// Orchestrator scores job x candidate cross-products with bounded concurrency
type Orchestrator struct {
	scorer       PairScorer
	applications application.Repository
	history      matching.HistoryRepository
	telemetry    telemetry.Sink
	now          func() time.Time
}

func NewOrchestrator(scorer PairScorer, applications application.Repository, history matching.HistoryRepository, sink telemetry.Sink) *Orchestrator {
	return &Orchestrator{
		scorer:       scorer,
		applications: applications,
		history:      history,
		telemetry:    telemetry.OrNop(sink),
		now:          time.Now,
	}
}

type pairState int

const (
	pairPending pairState = iota
	pairSkipped
	pairFailed
	pairBelowMin
	pairScored
)

type pairResult struct {
	state pairState
	score matching.MatchScore
}

// BatchMatch scores every job against every candidate
func (o *Orchestrator) BatchMatch(ctx context.Context, jobs []*job.Job, candidates []*candidate.Candidate, opts BatchOptions) (*matching.BatchReport, error) {
	if err := validateCandidates(candidates); err != nil {
		return nil, err
	}
	return o.Run(ctx, jobs, SliceSource(candidates), opts)
}

// MatchJobToCandidates ranks candidates for a single job
func (o *Orchestrator) MatchJobToCandidates(ctx context.Context, j *job.Job, candidates []*candidate.Candidate, opts BatchOptions) (*matching.BatchMatchResult, matching.BatchStats, error) {
	opts.GroupBy = matching.GroupByJob
	report, err := o.BatchMatch(ctx, []*job.Job{j}, candidates, opts)
	return single(report, err)
}

// MatchCandidateToJobs ranks jobs for a single candidate
func (o *Orchestrator) MatchCandidateToJobs(ctx context.Context, c *candidate.Candidate, jobs []*job.Job, opts BatchOptions) (*matching.BatchMatchResult, matching.BatchStats, error) {
	opts.GroupBy = matching.GroupByCandidate
	report, err := o.BatchMatch(ctx, jobs, []*candidate.Candidate{c}, opts)
	return single(report, err)
}

func single(report *matching.BatchReport, err error) (*matching.BatchMatchResult, matching.BatchStats, error) {
	if report == nil {
		return nil, matching.BatchStats{}, err
	}
	if len(report.Results) == 0 {
		return &matching.BatchMatchResult{Matches: []matching.MatchEntry{}}, report.Stats, err
	}
	return &report.Results[0], report.Stats, err
}

// Run scores jobs against the candidates yielded by source, one batch at a time.
// Cancellation is honoured between batches; the pairs of a started batch finish.
func (o *Orchestrator) Run(ctx context.Context, jobs []*job.Job, source CandidateSource, opts BatchOptions) (*matching.BatchReport, error) {
	opts = opts.withDefaults()
	if err := validate.Struct(opts); err != nil {
		return nil, matching.ErrInvalidOptions().WithCause(err)
	}
	if err := validateJobs(jobs); err != nil {
		return nil, err
	}

	start := o.now()
	stats := matching.BatchStats{}
	jobs = uniqueJobs(jobs, &stats)
	stats.Jobs = len(jobs)
	agg := newAggregator(opts, jobs)
	seen := make(map[kernel.CandidateID]struct{})

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			stats.Cancelled = true
			runErr = matching.ErrBatchCancelled().WithCause(err)
			logx.Warnw("batch run cancelled", "batches", stats.Batches, "pairs", stats.Pairs)
			break
		}

		batch, err := source(ctx, opts.BatchSize)
		if err != nil {
			runErr = matching.ErrSourceFailed().WithCause(err)
			logx.Errorw("failed to load candidate batch", "batch", stats.Batches+1, "error", err)
			break
		}
		if len(batch) == 0 {
			break
		}
		if err := validateCandidates(batch); err != nil {
			runErr = err
			break
		}
		batch = unseenCandidates(batch, seen, &stats)
		if len(batch) == 0 {
			continue
		}

		stats.Batches++
		stats.Candidates += len(batch)
		results := o.scoreBatch(context.WithoutCancel(ctx), jobs, batch, opts)

		var scored, skipped, failed int
		for ci, c := range batch {
			if opts.GroupBy == matching.GroupByCandidate {
				agg.touch(c)
			}
			for ji, j := range jobs {
				res := results[ci*len(jobs)+ji]
				stats.Pairs++
				switch res.state {
				case pairSkipped:
					stats.Skipped++
					skipped++
				case pairFailed:
					stats.Failed++
					failed++
				case pairBelowMin:
					stats.Scored++
					stats.BelowMinScore++
					scored++
				case pairScored:
					stats.Scored++
					stats.MatchesFound++
					scored++
					if res.score.IsFallback() {
						stats.Fallbacks++
					}
					agg.add(c, j, res.score)
				}
			}
		}
		agg.trim()

		logx.Infow("batch processed",
			"batch", stats.Batches,
			"candidates", len(batch),
			"scored", scored,
			"skipped", skipped,
			"failed", failed,
			"matches_so_far", stats.MatchesFound,
		)
		o.telemetry.Record(telemetry.Event{
			Name: matching.EventBatchProgress,
			At:   o.now(),
			Counts: map[string]int{
				"candidates": len(batch),
				"scored":     scored,
				"skipped":    skipped,
				"failed":     failed,
			},
		})
	}

	stats.Elapsed = o.now().Sub(start)
	report := &matching.BatchReport{Results: agg.results(), Stats: stats}

	logx.Infow("batch run finished",
		"jobs", stats.Jobs,
		"candidates", stats.Candidates,
		"pairs", stats.Pairs,
		"scored", stats.Scored,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"matches", stats.MatchesFound,
		"elapsed", stats.Elapsed,
		"cancelled", stats.Cancelled,
	)
	o.telemetry.Record(telemetry.Event{
		Name:     matching.EventBatchCompleted,
		At:       o.now(),
		Duration: stats.Elapsed,
		Labels:   map[string]string{"group_by": string(opts.GroupBy)},
		Counts: map[string]int{
			"pairs":     stats.Pairs,
			"scored":    stats.Scored,
			"skipped":   stats.Skipped,
			"failed":    stats.Failed,
			"fallbacks": stats.Fallbacks,
			"matches":   stats.MatchesFound,
		},
	})

	return report, runErr
}

// scoreBatch scores one batch and returns once every pair has resolved.
// Slot ci*len(jobs)+ji holds the result of candidate ci with job ji.
func (o *Orchestrator) scoreBatch(ctx context.Context, jobs []*job.Job, batch []*candidate.Candidate, opts BatchOptions) []pairResult {
	results := make([]pairResult, len(batch)*len(jobs))
	applied := o.appliedPairs(ctx, jobs, batch)

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for ci, c := range batch {
		for ji, j := range jobs {
			idx := ci*len(jobs) + ji
			g.Go(func() error {
				results[idx] = o.scorePair(ctx, j, c, applied, opts)
				return nil
			})
		}
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) scorePair(ctx context.Context, j *job.Job, c *candidate.Candidate, applied application.PairSet, opts BatchOptions) pairResult {
	exists, err := o.hasApplication(ctx, j.ID, c.ID, applied)
	if err != nil {
		o.pairFailed(j, c, "application lookup", err)
		return pairResult{state: pairFailed}
	}
	if exists {
		return pairResult{state: pairSkipped}
	}

	score, err := o.scorer.Score(ctx, c, j)
	if err != nil {
		o.pairFailed(j, c, "scoring", err)
		return pairResult{state: pairFailed}
	}

	if opts.RecordHistory && o.history != nil {
		record := matching.MatchHistoryRecord{
			UserID:      j.EmployerID(),
			CandidateID: c.ID,
			JobID:       j.ID,
			Score:       score,
			ScoredAt:    o.now(),
		}
		if err := o.history.Append(ctx, record); err != nil {
			o.pairFailed(j, c, "history append", err)
			return pairResult{state: pairFailed}
		}
	}

	if score.Overall < opts.MinScore {
		return pairResult{state: pairBelowMin, score: score}
	}
	return pairResult{state: pairScored, score: score}
}

// appliedPairs prefetches existing applications for a batch. A nil set means
// the prefetch failed and every pair checks on its own.
func (o *Orchestrator) appliedPairs(ctx context.Context, jobs []*job.Job, batch []*candidate.Candidate) application.PairSet {
	jobIDs := make([]kernel.JobID, len(jobs))
	for i, j := range jobs {
		jobIDs[i] = j.ID
	}
	candidateIDs := make([]kernel.CandidateID, len(batch))
	for i, c := range batch {
		candidateIDs[i] = c.ID
	}

	pairs, err := o.applications.AppliedPairs(ctx, jobIDs, candidateIDs)
	if err != nil {
		logx.Warnw("application prefetch failed, checking pairs one by one", "error", err)
		return nil
	}
	return pairs
}

func (o *Orchestrator) hasApplication(ctx context.Context, jobID kernel.JobID, candidateID kernel.CandidateID, applied application.PairSet) (bool, error) {
	if applied != nil {
		return applied.Has(jobID, candidateID), nil
	}
	return o.applications.ExistsByJobAndCandidate(ctx, jobID, candidateID)
}

func (o *Orchestrator) pairFailed(j *job.Job, c *candidate.Candidate, stage string, err error) {
	logx.Errorw("pair excluded from batch",
		"job_id", j.ID,
		"candidate_id", c.ID,
		"stage", stage,
		"error", err,
	)
	o.telemetry.Record(telemetry.Event{
		Name:   matching.EventPairFailed,
		At:     o.now(),
		Labels: map[string]string{"stage": stage},
	})
}

func validateJobs(jobs []*job.Job) error {
	for i, j := range jobs {
		if j == nil {
			return matching.ErrInvalidInput().WithDetail("reason", "nil job").WithDetail("index", i)
		}
		if err := j.EnsureEligible(); err != nil {
			return err
		}
	}
	return nil
}

// uniqueJobs drops repeated job IDs, keeping the first occurrence
func uniqueJobs(jobs []*job.Job, stats *matching.BatchStats) []*job.Job {
	seen := make(map[kernel.JobID]struct{}, len(jobs))
	out := make([]*job.Job, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := seen[j.ID]; ok {
			stats.Duplicates++
			continue
		}
		seen[j.ID] = struct{}{}
		out = append(out, j)
	}
	return out
}

// unseenCandidates drops candidates already yielded earlier in the run
func unseenCandidates(batch []*candidate.Candidate, seen map[kernel.CandidateID]struct{}, stats *matching.BatchStats) []*candidate.Candidate {
	out := make([]*candidate.Candidate, 0, len(batch))
	for _, c := range batch {
		if _, ok := seen[c.ID]; ok {
			stats.Duplicates++
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func validateCandidates(candidates []*candidate.Candidate) error {
	for i, c := range candidates {
		if c == nil {
			return matching.ErrInvalidInput().WithDetail("reason", "nil candidate").WithDetail("index", i)
		}
		if !c.IsEligibleForMatching() {
			return candidate.ErrCandidateInactive().WithDetail("candidate_id", c.ID.String())
		}
	}
	return nil
}

// ============================================================================
// Aggregation
// ============================================================================

type aggregator struct {
	groupBy matching.GroupBy
	topN    int
	order   []string
	groups  map[string]*matching.BatchMatchResult
}

func newAggregator(opts BatchOptions, jobs []*job.Job) *aggregator {
	a := &aggregator{
		groupBy: opts.GroupBy,
		topN:    opts.TopN,
		groups:  make(map[string]*matching.BatchMatchResult),
	}
	if opts.KeepAll {
		a.topN = 0
	}
	if opts.GroupBy == matching.GroupByJob {
		for _, j := range jobs {
			a.group(j.ID.String(), func(r *matching.BatchMatchResult) { r.JobID = j.ID })
		}
	}
	return a
}

func (a *aggregator) group(key string, init func(*matching.BatchMatchResult)) *matching.BatchMatchResult {
	if r, ok := a.groups[key]; ok {
		return r
	}
	r := &matching.BatchMatchResult{GroupBy: a.groupBy, Matches: []matching.MatchEntry{}}
	init(r)
	a.groups[key] = r
	a.order = append(a.order, key)
	return r
}

// add appends in input order, which sorting keeps for equal scores
func (a *aggregator) add(c *candidate.Candidate, j *job.Job, score matching.MatchScore) {
	entry := matching.MatchEntry{CandidateID: c.ID, JobID: j.ID, Score: score}
	var r *matching.BatchMatchResult
	if a.groupBy == matching.GroupByJob {
		r = a.group(j.ID.String(), func(r *matching.BatchMatchResult) { r.JobID = j.ID })
	} else {
		r = a.touch(c)
	}
	r.Matches = append(r.Matches, entry)
}

// touch registers a candidate group so candidates without matches still get a result
func (a *aggregator) touch(c *candidate.Candidate) *matching.BatchMatchResult {
	return a.group(c.ID.String(), func(r *matching.BatchMatchResult) { r.CandidateID = c.ID })
}

// trim sorts every group and keeps its top N, all entries when topN is 0.
// Earlier entries win ties, so trimming after each batch gives the same result
// as trimming once at the end.
func (a *aggregator) trim() {
	for _, r := range a.groups {
		sort.SliceStable(r.Matches, func(x, y int) bool {
			return r.Matches[x].Score.Overall > r.Matches[y].Score.Overall
		})
		if a.topN > 0 && len(r.Matches) > a.topN {
			r.Matches = r.Matches[:a.topN]
		}
	}
}

func (a *aggregator) results() []matching.BatchMatchResult {
	a.trim()
	out := make([]matching.BatchMatchResult, 0, len(a.order))
	for _, key := range a.order {
		r := a.groups[key]
		for i := range r.Matches {
			r.Matches[i].Rank = i + 1
		}
		out = append(out, *r)
	}
	return out
}
