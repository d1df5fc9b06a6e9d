package matchsrv

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Abraxas-365/relay-match/recruitment/candidate"
	"github.com/Abraxas-365/relay-match/recruitment/job"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
)

//go:embed prompts/score.md
var scorePromptTemplate string

//go:embed prompts/explain.md
var explainPromptTemplate string

const (
	scoreSystemPrompt   = "You are a recruiting assistant that only answers with valid JSON matching the requested schema."
	explainSystemPrompt = "You are a recruiting assistant that explains match scores. Answer only with JSON."
	scoreMaxTokens      = 800
	explainMaxTokens    = 400
)

// candidateAttributes is the curated part of a profile sent to the oracle
type candidateAttributes struct {
	Skills            []string `json:"skills"`
	YearsOfExperience int      `json:"yearsOfExperience"`
	Education         []string `json:"education,omitempty"`
	WorkSetting       string   `json:"preferredWorkSetting,omitempty"`
	TeamSize          string   `json:"preferredTeamSize,omitempty"`
	ManagementStyle   string   `json:"preferredManagementStyle,omitempty"`
	SoftSkills        []string `json:"softSkills,omitempty"`
	PersonalityTraits []string `json:"personalityTraits,omitempty"`
	DesiredSalaryMin  int      `json:"desiredSalaryMin,omitempty"`
	DesiredSalaryMax  int      `json:"desiredSalaryMax,omitempty"`
	Location          string   `json:"location,omitempty"`
	OpenToRelocation  bool     `json:"openToRelocation"`
}

// jobAttributes is the curated part of a posting sent to the oracle
type jobAttributes struct {
	Title           string   `json:"title"`
	Company         string   `json:"company,omitempty"`
	Description     string   `json:"description"`
	RequiredSkills  []string `json:"requiredSkills"`
	PreferredSkills []string `json:"preferredSkills,omitempty"`
	WorkSetting     string   `json:"workSetting,omitempty"`
	EmploymentType  string   `json:"employmentType,omitempty"`
	SalaryMin       int      `json:"salaryMin,omitempty"`
	SalaryMax       int      `json:"salaryMax,omitempty"`
	Location        string   `json:"location,omitempty"`
}

func newCandidateAttributes(c *candidate.Candidate) candidateAttributes {
	education := make([]string, 0, len(c.Education))
	for _, e := range c.Education {
		entry := strings.TrimSpace(fmt.Sprintf("%s %s, %s", e.Degree, e.Field, e.Institution))
		education = append(education, entry)
	}

	return candidateAttributes{
		Skills:            matching.SkillNames(c.Skills),
		YearsOfExperience: c.YearsOfExperience,
		Education:         education,
		WorkSetting:       string(c.Preferences.Setting),
		TeamSize:          c.Preferences.TeamSize,
		ManagementStyle:   c.Preferences.ManagementStyle,
		SoftSkills:        c.SoftSkills,
		PersonalityTraits: c.PersonalityTraits,
		DesiredSalaryMin:  c.DesiredSalary.Min,
		DesiredSalaryMax:  c.DesiredSalary.Max,
		Location:          string(c.Location),
		OpenToRelocation:  c.OpenToRelocation,
	}
}

func newJobAttributes(j *job.Job) jobAttributes {
	description := j.EnrichedDescription
	if description == "" {
		description = string(j.Description)
	}

	return jobAttributes{
		Title:           string(j.Title),
		Company:         string(j.Company),
		Description:     description,
		RequiredSkills:  matching.SkillNames(j.RequiredSkills),
		PreferredSkills: matching.SkillNames(j.PreferredSkills),
		WorkSetting:     string(j.WorkSetting),
		EmploymentType:  string(j.EmploymentType),
		SalaryMin:       j.Salary.Min,
		SalaryMax:       j.Salary.Max,
		Location:        string(j.Location),
	}
}

func buildScorePrompt(c *candidate.Candidate, j *job.Job) (matching.Prompt, error) {
	candidateJSON, err := json.MarshalIndent(newCandidateAttributes(c), "", "  ")
	if err != nil {
		return matching.Prompt{}, fmt.Errorf("marshal candidate attributes: %w", err)
	}
	jobJSON, err := json.MarshalIndent(newJobAttributes(j), "", "  ")
	if err != nil {
		return matching.Prompt{}, fmt.Errorf("marshal job attributes: %w", err)
	}

	user := strings.ReplaceAll(scorePromptTemplate, "{{CANDIDATE_JSON}}", string(candidateJSON))
	user = strings.ReplaceAll(user, "{{JOB_JSON}}", string(jobJSON))

	return matching.Prompt{System: scoreSystemPrompt, User: user, MaxTokens: scoreMaxTokens}, nil
}

func buildExplainPrompt(c *candidate.Candidate, j *job.Job, score matching.MatchScore) (matching.Prompt, error) {
	scores := make(map[string]int, 10)
	for _, d := range append([]matching.Dimension{matching.DimensionOverall}, matching.SubDimensions()...) {
		scores[string(d)] = score.Get(d)
	}
	scoreJSON, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return matching.Prompt{}, fmt.Errorf("marshal scores: %w", err)
	}

	user := strings.ReplaceAll(explainPromptTemplate, "{{CANDIDATE_NAME}}", c.GetFullName())
	user = strings.ReplaceAll(user, "{{JOB_TITLE}}", string(j.Title))
	user = strings.ReplaceAll(user, "{{SCORE_JSON}}", string(scoreJSON))

	return matching.Prompt{System: explainSystemPrompt, User: user, MaxTokens: explainMaxTokens}, nil
}
