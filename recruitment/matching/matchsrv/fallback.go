package matchsrv

import (
	"fmt"
	"math"
	"strings"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
)

const neutralScore = 70

// Fallback scores a pair without the oracle. It only reads the two entities.
func Fallback(c *candidate.Candidate, j *job.Job) matching.MatchScore {
	matched, missing := matching.MatchSkills(c.Skills, j.RequiredSkills)

	score := matching.MatchScore{
		Skill:        skillScore(len(matched), len(j.RequiredSkills)),
		Experience:   neutralScore,
		CultureFit:   neutralScore,
		Wellbeing:    neutralScore,
		WorkSetting:  workSettingScore(c, j),
		SalaryFit:    salaryScore(c, j),
		LocationFit:  neutralScore,
		CareerGrowth: neutralScore,
		SoftSkills:   neutralScore,
		Source:       matching.SourceFallback,
	}
	score.Breakdown = fallbackBreakdown(score, j, matched, missing)

	return score.Normalized()
}

func skillScore(matched, required int) int {
	if required == 0 {
		return 50
	}
	return int(math.Round(float64(matched) / float64(required) * 100))
}

func workSettingScore(c *candidate.Candidate, j *job.Job) int {
	preferred := c.Preferences.Setting
	if !preferred.IsSet() || !j.WorkSetting.IsSet() {
		return neutralScore
	}
	if preferred.Equal(j.WorkSetting) {
		return 100
	}
	return 50
}

func salaryScore(c *candidate.Candidate, j *job.Job) int {
	expected := c.ExpectedSalary()
	if expected <= 0 || !j.Salary.IsComplete() {
		return neutralScore
	}

	switch {
	case expected < j.Salary.Min:
		return 90
	case expected <= j.Salary.Max:
		return 100
	}

	gap := float64(expected - j.Salary.Max)
	v := int(math.Round(100 * (1 - gap/float64(expected))))
	if v < 0 {
		return 0
	}
	return v
}

func fallbackBreakdown(s matching.MatchScore, j *job.Job, matched, missing []kernel.Skill) matching.Breakdown {
	b := matching.Breakdown{
		Strengths:       []string{},
		Concerns:        []string{},
		Recommendations: []string{},
		KeyInsights:     []string{matching.FallbackNotice},
	}

	if len(j.RequiredSkills) > 0 {
		b.KeyInsights = append(b.KeyInsights, fmt.Sprintf("Covers %d of %d required skills", len(matched), len(j.RequiredSkills)))
	}
	if len(matched) > 0 {
		b.Strengths = append(b.Strengths, "Has required skills: "+strings.Join(matching.SkillNames(matched), ", "))
	}
	if len(missing) > 0 {
		b.Concerns = append(b.Concerns, "Missing required skills: "+strings.Join(matching.SkillNames(missing), ", "))
		b.Recommendations = append(b.Recommendations, "Check for transferable experience in "+strings.Join(matching.SkillNames(missing), ", "))
	}

	switch s.WorkSetting {
	case 100:
		b.Strengths = append(b.Strengths, "Preferred work setting matches the role")
	case 50:
		b.Concerns = append(b.Concerns, "Preferred work setting differs from the role")
	}

	switch {
	case s.SalaryFit == 100:
		b.Strengths = append(b.Strengths, "Salary expectation within the posted band")
	case s.SalaryFit == 90:
		b.Strengths = append(b.Strengths, "Salary expectation below the posted band")
	case s.SalaryFit < neutralScore:
		b.Concerns = append(b.Concerns, "Salary expectation above the posted band")
		b.Recommendations = append(b.Recommendations, "Discuss compensation early")
	}

	return b
}
