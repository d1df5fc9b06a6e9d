package matchsrv

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/errx"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const oracleScore = `{
  "overall": 12,
  "skill": 90, "experience": 80, "cultureFit": 80, "wellbeing": 80, "workSetting": 100,
  "salaryFit": 100, "locationFit": 80, "careerGrowth": 60, "softSkills": 70,
  "matchBreakdown": {"strengths": ["Go"], "concerns": [], "recommendations": [], "keyInsights": []}
}`

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logx.SetLogger(zap.New(core))
	t.Cleanup(func() { logx.SetLogger(zap.NewNop()) })
	return logs
}

func TestCalculatorUsesOracleScore(t *testing.T) {
	sink := telemetry.NewMemory()
	oracle := &stubOracle{response: oracleScore}
	calc := NewCalculator(oracle, sink, time.Second)

	score, err := calc.Score(context.Background(), newCandidate("c1", "Go"), newJob("j1", "Go"))

	require.NoError(t, err)
	assert.Equal(t, matching.SourceOracle, score.Source)
	assert.Equal(t, 90, score.Skill)
	// the reported overall is replaced by the weighted one
	assert.Equal(t, matching.WeightedOverall(score), score.Overall)
	assert.NotEqual(t, 12, score.Overall)
	assert.Len(t, sink.Named(matching.EventOracleScored), 1)

	require.Len(t, oracle.prompts, 1)
	assert.Contains(t, oracle.prompts[0].User, `"requiredSkills": [`)
	assert.NotContains(t, oracle.prompts[0].User, "{{CANDIDATE_JSON}}")
}

func TestCalculatorFallsBackOnOracleError(t *testing.T) {
	logs := observeLogs(t)
	sink := telemetry.NewMemory()
	calc := NewCalculator(&stubOracle{err: errors.New("503 service unavailable")}, sink, time.Second)

	score, err := calc.Score(context.Background(),
		newCandidate("c1", "JavaScript", "React"),
		newJob("j1", "JavaScript", "React", "Node.js"),
	)

	require.NoError(t, err)
	assert.Equal(t, matching.SourceFallback, score.Source)
	assert.Equal(t, 67, score.Skill)
	assert.Len(t, sink.Named(matching.EventOracleFallback), 1)
	assert.Equal(t, 1, logs.FilterMessage("scoring oracle unavailable, using fallback").Len())
}

func TestCalculatorFallsBackOnInvalidResponse(t *testing.T) {
	sink := telemetry.NewMemory()
	bad := strings.Replace(oracleScore, `"skill": 90`, `"skill": 190`, 1)
	calc := NewCalculator(&stubOracle{response: bad}, sink, time.Second)

	score, err := calc.Score(context.Background(), newCandidate("c1"), newJob("j1"))

	require.NoError(t, err)
	assert.True(t, score.IsFallback())
	assert.Equal(t, 64, score.Overall)

	events := sink.Named(matching.EventOracleFallback)
	require.Len(t, events, 1)
	assert.Equal(t, "schema", events[0].Labels["reason"])
}

func TestCalculatorFallsBackOnTimeout(t *testing.T) {
	sink := telemetry.NewMemory()
	oracle := &stubOracle{respond: func(ctx context.Context, _ matching.Prompt) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	calc := NewCalculator(oracle, sink, 20*time.Millisecond)

	score, err := calc.Score(context.Background(), newCandidate("c1"), newJob("j1"))

	require.NoError(t, err)
	assert.True(t, score.IsFallback())
	assert.Equal(t, "timeout", sink.Named(matching.EventOracleFallback)[0].Labels["reason"])
}

func TestCalculatorWithoutOracle(t *testing.T) {
	score, err := NewCalculator(nil, nil, 0).Score(context.Background(), newCandidate("c1"), newJob("j1"))

	require.NoError(t, err)
	assert.True(t, score.IsFallback())
}

func TestCalculatorRejectsMissingEntities(t *testing.T) {
	_, err := NewCalculator(nil, nil, 0).Score(context.Background(), nil, newJob("j1"))

	require.Error(t, err)
	assert.True(t, errx.IsCode(err, matching.CodeInvalidInput))
}

func TestExplainUsesOracle(t *testing.T) {
	oracle := &stubOracle{response: `{"summary":"Solid backend fit","strengths":["Go"],"improvementAreas":["Kubernetes"]}`}
	calc := NewCalculator(oracle, nil, time.Second)

	e := calc.Explain(context.Background(), newCandidate("c1"), newJob("j1"), Fallback(newCandidate("c1"), newJob("j1")))

	assert.Equal(t, "Solid backend fit", e.Summary)
	assert.Equal(t, matching.SourceOracle, e.Source)
	assert.Contains(t, oracle.prompts[0].User, `"overall": 64`)
}

func TestExplainFallsBackToTemplate(t *testing.T) {
	sink := telemetry.NewMemory()
	calc := NewCalculator(&stubOracle{response: "not json"}, sink, time.Second)
	score := matching.MatchScore{
		Skill: 95, Experience: 40, CultureFit: 70, Wellbeing: 70, WorkSetting: 100,
		SalaryFit: 90, LocationFit: 70, CareerGrowth: 70, SoftSkills: 70,
	}.Normalized()

	e := calc.Explain(context.Background(), newCandidate("c1"), newJob("j1"), score)

	assert.Equal(t, matching.SourceFallback, e.Source)
	assert.Contains(t, e.Summary, "overall score of 78/100")
	assert.Contains(t, e.Summary, "work setting (100/100)")
	assert.Equal(t, []string{"Strong work setting (100/100)", "Strong skills (95/100)", "Strong salary fit (90/100)"}, e.Strengths)
	assert.Equal(t, []string{"Lower experience (40/100)"}, e.ImprovementAreas)
	assert.Len(t, sink.Named(matching.EventExplainFallback), 1)
}
