package matchsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
)

const DefaultLookbackDays = 90

// WeightEstimator derives ranking weights from a user's hiring outcomes
type WeightEstimator struct {
	history   matching.HistoryRepository
	telemetry telemetry.Sink
	now       func() time.Time
}

func NewWeightEstimator(history matching.HistoryRepository, sink telemetry.Sink) *WeightEstimator {
	return &WeightEstimator{
		history:   history,
		telemetry: telemetry.OrNop(sink),
		now:       time.Now,
	}
}

// Estimate computes the weights for a user from the history inside the lookback window
func (e *WeightEstimator) Estimate(ctx context.Context, userID kernel.UserID, lookbackDays int) (matching.LearningWeights, error) {
	if userID.IsEmpty() {
		return matching.LearningWeights{}, matching.ErrInvalidInput().WithDetail("reason", "user id is required")
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	since := e.now().AddDate(0, 0, -lookbackDays)
	records, err := e.history.ListByUserSince(ctx, userID, since)
	if err != nil {
		return matching.LearningWeights{}, matching.ErrHistoryFailed().
			WithDetail("user_id", userID.String()).
			WithCause(err)
	}

	weights := ComputeWeights(records)

	logx.Debugw("estimated learning weights",
		"user_id", userID,
		"records", len(records),
		"successful", weights.SampleSize,
		"source", weights.Source,
	)
	e.telemetry.Record(telemetry.Event{
		Name:   matching.EventWeights,
		At:     e.now(),
		Labels: map[string]string{"source": string(weights.Source)},
		Counts: map[string]int{"records": len(records), "successful": weights.SampleSize},
	})

	return weights, nil
}

// ComputeWeights averages the four ranked dimensions over successful outcomes
// and normalises them. Sums are kept as integers so the result does not
// depend on record order.
func ComputeWeights(records []matching.MatchHistoryRecord) matching.LearningWeights {
	var skill, culture, wellbeing, experience, n int
	for _, r := range records {
		if !r.Outcome.IsSuccessful() {
			continue
		}
		skill += matching.Clamp(r.Score.Skill)
		culture += matching.Clamp(r.Score.CultureFit)
		wellbeing += matching.Clamp(r.Score.Wellbeing)
		experience += matching.Clamp(r.Score.Experience)
		n++
	}

	total := skill + culture + wellbeing + experience
	if n == 0 || total == 0 {
		return matching.DefaultWeights()
	}

	// the averages share the divisor n, so it cancels out when normalising
	sum := float64(total)
	return matching.LearningWeights{
		Skill:        float64(skill) / sum,
		Culture:      float64(culture) / sum,
		Wellbeing:    float64(wellbeing) / sum,
		Experience:   float64(experience) / sum,
		OutcomeBonus: matching.DefaultOutcomeBonus(),
		SampleSize:   n,
		Source:       matching.WeightsLearned,
	}
}
