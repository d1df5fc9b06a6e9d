package matching

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
  "overall": 99,
  "skill": 90, "experience": 80, "cultureFit": 75, "wellbeing": 70, "workSetting": 100,
  "salaryFit": 85, "locationFit": 60, "careerGrowth": 65, "softSkills": 72.6,
  "matchBreakdown": {
    "strengths": ["Go", "Distributed systems"],
    "concerns": [],
    "recommendations": ["Ask about Kubernetes"],
    "keyInsights": ["Strong backend profile"]
  }
}`

func TestDecodeScoreValid(t *testing.T) {
	d := DecodeScore("```json\n" + validResponse + "\n```")

	v, ok := d.(Valid)
	require.True(t, ok, "expected Valid, got %#v", d)
	assert.Equal(t, 99, v.ReportedOverall)
	assert.Equal(t, 73, v.Score.SoftSkills)
	assert.Equal(t, WeightedOverall(v.Score), v.Score.Overall)
	assert.Equal(t, SourceOracle, v.Score.Source)
	assert.Equal(t, []string{"Go", "Distributed systems"}, v.Score.Breakdown.Strengths)
	assert.NotNil(t, v.Score.Breakdown.Concerns)
}

func TestDecodeScoreInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"prose":          "I cannot score this candidate.",
		"out of range":   strings.Replace(validResponse, `"skill": 90`, `"skill": 140`, 1),
		"negative":       strings.Replace(validResponse, `"wellbeing": 70`, `"wellbeing": -1`, 1),
		"missing field":  strings.Replace(validResponse, `"careerGrowth": 65,`, ``, 1),
		"unknown field":  strings.Replace(validResponse, `"overall": 99,`, `"overall": 99, "vibes": 10,`, 1),
		"string value":   strings.Replace(validResponse, `"skill": 90`, `"skill": "high"`, 1),
		"no breakdown":   `{"overall":1,"skill":1,"experience":1,"cultureFit":1,"wellbeing":1,"workSetting":1,"salaryFit":1,"locationFit":1,"careerGrowth":1,"softSkills":1}`,
		"null insights":  strings.Replace(validResponse, `"keyInsights": ["Strong backend profile"]`, `"keyInsights": null`, 1),
		"truncated json": validResponse[:120],
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			d := DecodeScore(raw)
			inv, ok := d.(Invalid)
			require.True(t, ok, "expected Invalid, got %#v", d)
			assert.NotEmpty(t, inv.Reason)
		})
	}
}

func TestDecodeExplanation(t *testing.T) {
	e, err := DecodeExplanation(`{"summary":"Good fit","strengths":["Go"],"improvementAreas":["SQL"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Good fit", e.Summary)
	assert.Equal(t, SourceOracle, e.Source)

	_, err = DecodeExplanation(`{"summary":"","strengths":[],"improvementAreas":[]}`)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	results := []BatchMatchResult{{
		GroupBy: GroupByJob,
		JobID:   "job-1",
		Matches: []MatchEntry{
			{Rank: 1, JobID: "job-1", CandidateID: "cand-1", Score: MatchScore{Overall: 80, Source: SourceFallback}},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "job,job-1,cand-1,1,fallback,80,"))
}
