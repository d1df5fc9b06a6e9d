package matchsrv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
)

const DefaultOracleTimeout = 30 * time.Second

// Calculator scores candidate/job pairs with the oracle and falls back to
// the heuristic scorer whenever the oracle cannot produce a valid score.
type Calculator struct {
	oracle    matching.Oracle
	telemetry telemetry.Sink
	timeout   time.Duration
}

// NewCalculator creates a calculator. A nil oracle always uses the fallback.
func NewCalculator(oracle matching.Oracle, sink telemetry.Sink, timeout time.Duration) *Calculator {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &Calculator{
		oracle:    oracle,
		telemetry: telemetry.OrNop(sink),
		timeout:   timeout,
	}
}

// Score returns the match score of a pair. Oracle problems never surface as errors;
// only missing entities do.
func (c *Calculator) Score(ctx context.Context, cand *candidate.Candidate, j *job.Job) (matching.MatchScore, error) {
	if cand == nil || j == nil {
		return matching.MatchScore{}, matching.ErrInvalidInput().WithDetail("reason", "candidate and job are required")
	}

	if c.oracle == nil {
		return c.fallback(cand, j, "oracle disabled"), nil
	}

	prompt, err := buildScorePrompt(cand, j)
	if err != nil {
		return c.fallback(cand, j, err.Error()), nil
	}

	start := time.Now()
	octx, cancel := context.WithTimeout(ctx, c.timeout)
	raw, err := c.oracle.Generate(octx, prompt)
	cancel()
	if err != nil {
		return c.fallback(cand, j, oracleFailureReason(err)), nil
	}

	switch d := matching.DecodeScore(raw).(type) {
	case matching.Valid:
		logx.Debugw("oracle scored pair",
			"candidate_id", cand.ID,
			"job_id", j.ID,
			"overall", d.Score.Overall,
			"reported_overall", d.ReportedOverall,
			"model", c.oracle.Model(),
		)
		c.telemetry.Record(telemetry.Event{
			Name:     matching.EventOracleScored,
			At:       time.Now(),
			Duration: time.Since(start),
			Labels:   map[string]string{"model": c.oracle.Model()},
		})
		return d.Score, nil
	case matching.Invalid:
		return c.fallback(cand, j, d.Reason), nil
	default:
		return c.fallback(cand, j, "unrecognised decode result"), nil
	}
}

func (c *Calculator) fallback(cand *candidate.Candidate, j *job.Job, reason string) matching.MatchScore {
	logx.Warnw("scoring oracle unavailable, using fallback",
		"candidate_id", cand.ID,
		"job_id", j.ID,
		"reason", reason,
	)
	c.telemetry.Record(telemetry.Event{
		Name:   matching.EventOracleFallback,
		At:     time.Now(),
		Labels: map[string]string{"reason": reasonLabel(reason)},
	})
	return Fallback(cand, j)
}

// Explain describes a score in plain language. It never fails; without a
// usable oracle response the explanation is built from the numbers alone.
func (c *Calculator) Explain(ctx context.Context, cand *candidate.Candidate, j *job.Job, score matching.MatchScore) matching.Explanation {
	if c.oracle == nil || cand == nil || j == nil {
		return TemplateExplanation(score)
	}

	prompt, err := buildExplainPrompt(cand, j, score)
	if err != nil {
		return c.templateExplanation(score, err.Error())
	}

	octx, cancel := context.WithTimeout(ctx, c.timeout)
	raw, err := c.oracle.Generate(octx, prompt)
	cancel()
	if err != nil {
		return c.templateExplanation(score, oracleFailureReason(err))
	}

	explanation, err := matching.DecodeExplanation(raw)
	if err != nil {
		return c.templateExplanation(score, err.Error())
	}
	return explanation
}

func (c *Calculator) templateExplanation(score matching.MatchScore, reason string) matching.Explanation {
	logx.Warnw("explanation oracle unavailable, using template", "reason", reason)
	c.telemetry.Record(telemetry.Event{
		Name:   matching.EventExplainFallback,
		At:     time.Now(),
		Labels: map[string]string{"reason": reasonLabel(reason)},
	})
	return TemplateExplanation(score)
}

const (
	strongThreshold = 80
	weakThreshold   = 60
)

// TemplateExplanation builds an explanation from the numeric scores only
func TemplateExplanation(score matching.MatchScore) matching.Explanation {
	type dimValue struct {
		dim   matching.Dimension
		value int
	}

	dims := make([]dimValue, 0, 9)
	for _, d := range matching.SubDimensions() {
		dims = append(dims, dimValue{d, score.Get(d)})
	}
	sort.SliceStable(dims, func(a, b int) bool { return dims[a].value > dims[b].value })

	e := matching.Explanation{
		Strengths:        []string{},
		ImprovementAreas: []string{},
		Source:           matching.SourceFallback,
	}
	for _, dv := range dims {
		switch {
		case dv.value >= strongThreshold:
			e.Strengths = append(e.Strengths, fmt.Sprintf("Strong %s (%d/100)", dv.dim.Label(), dv.value))
		case dv.value < weakThreshold:
			e.ImprovementAreas = append(e.ImprovementAreas, fmt.Sprintf("Lower %s (%d/100)", dv.dim.Label(), dv.value))
		}
	}

	e.Summary = fmt.Sprintf("%s match with an overall score of %d/100; strongest on %s (%d/100).",
		matchLevel(score.Overall), score.Overall, dims[0].dim.Label(), dims[0].value)
	if score.IsFallback() {
		e.Summary += " Scores were computed with " + matching.FallbackNotice + "."
	}

	return e
}

func matchLevel(overall int) string {
	switch {
	case overall >= 85:
		return "Excellent"
	case overall >= 70:
		return "Good"
	case overall >= 50:
		return "Fair"
	default:
		return "Weak"
	}
}

func oracleFailureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return err.Error()
}

// reasonLabel keeps the telemetry label set small
func reasonLabel(reason string) string {
	switch reason {
	case "timeout", "cancelled", "oracle disabled", "empty response":
		return reason
	}
	if strings.HasPrefix(reason, "schema") {
		return "schema"
	}
	if strings.HasPrefix(reason, "malformed") {
		return "malformed"
	}
	return "error"
}
