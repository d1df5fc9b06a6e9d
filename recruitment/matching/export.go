package matching

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"group_by", "job_id", "candidate_id", "rank", "source",
	"overall", "skill", "experience", "culture_fit", "wellbeing", "work_setting",
	"salary_fit", "location_fit", "career_growth", "soft_skills", "strengths", "concerns",
}

// WriteCSV writes one row per ranked entry
func WriteCSV(w io.Writer, results []BatchMatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, result := range results {
		for _, e := range result.Matches {
			s := e.Score
			row := []string{
				string(result.GroupBy),
				e.JobID.String(),
				e.CandidateID.String(),
				strconv.Itoa(e.Rank),
				string(s.Source),
				strconv.Itoa(s.Overall),
				strconv.Itoa(s.Skill),
				strconv.Itoa(s.Experience),
				strconv.Itoa(s.CultureFit),
				strconv.Itoa(s.Wellbeing),
				strconv.Itoa(s.WorkSetting),
				strconv.Itoa(s.SalaryFit),
				strconv.Itoa(s.LocationFit),
				strconv.Itoa(s.CareerGrowth),
				strconv.Itoa(s.SoftSkills),
				strings.Join(s.Breakdown.Strengths, "; "),
				strings.Join(s.Breakdown.Concerns, "; "),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
