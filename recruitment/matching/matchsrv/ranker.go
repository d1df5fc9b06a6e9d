package matchsrv

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"golang.org/x/sync/errgroup"
)

const (
	baseConfidence = 0.7
	maxConfidence  = 0.95

	DefaultRecommendLimit = 20
)

// RecommendOptions tune a recommendation run
type RecommendOptions struct {
	UserID      kernel.UserID `validate:"required"`
	MinScore    float64       `validate:"gte=0,lte=150"`
	Limit       int           `validate:"gte=1,lte=500"`
	Concurrency int           `validate:"gte=1,lte=64"`
}

// Ranker orders a candidate pool for a job using learned weights
type Ranker struct {
	scorer    PairScorer
	history   matching.HistoryRepository
	telemetry telemetry.Sink
}

func NewRanker(scorer PairScorer, history matching.HistoryRepository, sink telemetry.Sink) *Ranker {
	return &Ranker{
		scorer:    scorer,
		history:   history,
		telemetry: telemetry.OrNop(sink),
	}
}

type candidateHistory struct {
	known      int
	successful int
	last       matching.Outcome
	lastAt     time.Time
}

// Recommend scores the pool, re-weights the result and returns it sorted by
// recommendation score. Candidates whose scoring fails are left out.
func (r *Ranker) Recommend(ctx context.Context, j *job.Job, pool []*candidate.Candidate, weights matching.LearningWeights, opts RecommendOptions) ([]matching.RankedRecommendation, error) {
	if j == nil {
		return nil, matching.ErrInvalidInput().WithDetail("reason", "job is required")
	}
	if err := j.EnsureEligible(); err != nil {
		return nil, err
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultRecommendLimit
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if err := validate.Struct(opts); err != nil {
		return nil, matching.ErrInvalidOptions().WithCause(err)
	}
	ids := make([]kernel.CandidateID, len(pool))
	for i, c := range pool {
		if c == nil {
			return nil, matching.ErrInvalidInput().WithDetail("reason", "candidate pool contains a nil entry")
		}
		ids[i] = c.ID
	}

	start := time.Now()
	histories := r.loadHistory(ctx, opts.UserID, ids)

	scores := make([]*matching.MatchScore, len(pool))
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, c := range pool {
		g.Go(func() error {
			s, err := r.scorer.Score(ctx, c, j)
			if err != nil {
				logx.Warnw("excluding candidate from recommendations",
					"candidate_id", c.ID,
					"job_id", j.ID,
					"error", err,
				)
				return nil
			}
			scores[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	recs := make([]matching.RankedRecommendation, 0, len(pool))
	for i, c := range pool {
		if scores[i] == nil {
			continue
		}
		h := histories[c.ID]
		value := RecommendationScore(*scores[i], weights)
		if h.last.IsKnown() {
			value *= weights.Bonus(h.last)
		}
		value = math.Round(value*100) / 100
		if value < opts.MinScore {
			continue
		}

		recs = append(recs, matching.RankedRecommendation{
			CandidateID:         c.ID,
			JobID:               j.ID,
			RecommendationScore: value,
			Confidence:          Confidence(h.known, h.successful),
			LastOutcome:         h.last,
			SuccessfulHistory:   h.successful,
			Score:               *scores[i],
			Explanation:         recommendationExplanation(*scores[i], weights, h.successful),
		})
	}

	sort.SliceStable(recs, func(a, b int) bool {
		return recs[a].RecommendationScore > recs[b].RecommendationScore
	})
	if len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}

	r.telemetry.Record(telemetry.Event{
		Name:     matching.EventRecommend,
		At:       time.Now(),
		Duration: time.Since(start),
		Labels:   map[string]string{"weights": string(weights.Source)},
		Counts:   map[string]int{"pool": len(pool), "returned": len(recs)},
	})

	return recs, nil
}

// loadHistory groups the user's history per candidate. A read failure leaves
// every candidate without history rather than failing the ranking.
func (r *Ranker) loadHistory(ctx context.Context, userID kernel.UserID, ids []kernel.CandidateID) map[kernel.CandidateID]candidateHistory {
	out := make(map[kernel.CandidateID]candidateHistory, len(ids))
	if r.history == nil || len(ids) == 0 {
		return out
	}

	records, err := r.history.ListByUserAndCandidates(ctx, userID, ids)
	if err != nil {
		logx.Warnw("match history unavailable, ranking without it", "user_id", userID, "error", err)
		return out
	}

	for _, rec := range records {
		h := out[rec.CandidateID]
		if rec.Outcome.IsSuccessful() {
			h.successful++
		}
		if rec.Outcome.IsKnown() {
			h.known++
			at := rec.ScoredAt
			if rec.OutcomeAt != nil {
				at = *rec.OutcomeAt
			}
			if h.last == matching.OutcomePending || at.After(h.lastAt) {
				h.last = rec.Outcome
				h.lastAt = at
			}
		}
		out[rec.CandidateID] = h
	}
	return out
}

// RecommendationScore weights the four ranked dimensions
func RecommendationScore(s matching.MatchScore, w matching.LearningWeights) float64 {
	var v float64
	for _, d := range matching.RankedDimensions {
		v += w.WeightOf(d) * float64(s.Get(d))
	}
	return v
}

// Confidence grows from 0.7 toward 0.95 with the share of successful past
// matches among those with a recorded outcome
func Confidence(known, successful int) float64 {
	if known <= 0 {
		return baseConfidence
	}
	ratio := float64(successful) / float64(known)
	return baseConfidence + (maxConfidence-baseConfidence)*ratio
}

func recommendationExplanation(s matching.MatchScore, w matching.LearningWeights, successful int) string {
	type contribution struct {
		dim   matching.Dimension
		value float64
	}
	parts := make([]contribution, 0, len(matching.RankedDimensions))
	for _, d := range matching.RankedDimensions {
		parts = append(parts, contribution{d, w.WeightOf(d) * float64(s.Get(d))})
	}
	sort.SliceStable(parts, func(a, b int) bool { return parts[a].value > parts[b].value })

	top := make([]string, 0, 2)
	for _, p := range parts[:2] {
		top = append(top, fmt.Sprintf("%s (%d)", p.dim.Label(), s.Get(p.dim)))
	}

	text := "Strongest on " + strings.Join(top, " and ")
	if successful > 0 {
		text += fmt.Sprintf("; %d previous positive outcome", successful)
		if successful > 1 {
			text += "s"
		}
	}
	return text + "."
}
