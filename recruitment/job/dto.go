package job

import "github.com/Abraxas-365/relay-match/pkg/kernel"

// JobSummary is the compact view returned alongside match results
type JobSummary struct {
	ID          kernel.JobID       `json:"id"`
	Title       kernel.JobTitle    `json:"job_title"`
	Company     kernel.CompanyName `json:"company,omitempty"`
	Location    kernel.Location    `json:"location,omitempty"`
	WorkSetting kernel.WorkSetting `json:"work_setting,omitempty"`
	Status      JobStatus          `json:"status"`
}

// ToSummary converts the entity into its summary view
func (j *Job) ToSummary() JobSummary {
	return JobSummary{
		ID:          j.ID,
		Title:       j.Title,
		Company:     j.Company,
		Location:    j.Location,
		WorkSetting: j.WorkSetting,
		Status:      j.Status,
	}
}
