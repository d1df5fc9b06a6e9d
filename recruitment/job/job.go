package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

// JobStatus represents the status of a job posting
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"     // Created but not visible
	JobStatusOpen      JobStatus = "open"      // Accepting applications
	JobStatusPublished JobStatus = "published" // Accepting applications and listed
	JobStatusClosed    JobStatus = "closed"    // No longer accepting applications
)

type Job struct {
	ID                  kernel.JobID          `db:"id" json:"id"`
	Title               kernel.JobTitle       `db:"job_title" json:"job_title"`
	Description         kernel.JobDescription `db:"job_description" json:"job_description"`
	EnrichedDescription string                `db:"enriched_description" json:"enriched_description,omitempty"`
	RequiredSkills      []kernel.Skill        `db:"required_skills" json:"required_skills"`
	PreferredSkills     []kernel.Skill        `db:"preferred_skills" json:"preferred_skills,omitempty"`
	WorkSetting         kernel.WorkSetting    `db:"work_setting" json:"work_setting,omitempty"`
	EmploymentType      kernel.EmploymentType `db:"employment_type" json:"employment_type,omitempty"`
	Salary              kernel.SalaryRange    `db:"salary" json:"salary"`
	Location            kernel.Location       `db:"location" json:"location,omitempty"`
	Company             kernel.CompanyName    `db:"company" json:"company,omitempty"`
	PostedBy            kernel.UserID         `db:"posted_by" json:"posted_by"`
	Status              JobStatus             `db:"status" json:"status"`
	PublishedAt         *time.Time            `db:"published_at" json:"published_at,omitempty"`
	CreatedAt           time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time             `db:"updated_at" json:"updated_at"`
}

// ============================================================================
// Domain Methods
// ============================================================================

// IsPublished checks if the job is currently published
func (j *Job) IsPublished() bool {
	return j.Status == JobStatusPublished
}

// IsOpen checks if the job is open
func (j *Job) IsOpen() bool {
	return j.Status == JobStatusOpen
}

// IsClosed checks if the job is closed
func (j *Job) IsClosed() bool {
	return j.Status == JobStatusClosed
}

// IsEligibleForMatching checks if the job takes part in batch matching
func (j *Job) IsEligibleForMatching() bool {
	return j.IsOpen() || j.IsPublished()
}

// EnsureEligible returns an error when the job cannot be matched
func (j *Job) EnsureEligible() error {
	if !j.IsEligibleForMatching() {
		return ErrJobNotEligible().
			WithDetail("job_id", j.ID.String()).
			WithDetail("status", j.Status)
	}
	return nil
}

// EmployerID returns the user owning the posting
func (j *Job) EmployerID() kernel.UserID {
	return j.PostedBy
}

// PostingText flattens the posting for embedding generation
func (j *Job) PostingText() string {
	var b strings.Builder
	b.WriteString(string(j.Title))
	if j.Company != "" {
		fmt.Fprintf(&b, " at %s", j.Company)
	}
	b.WriteString(". ")
	if j.EnrichedDescription != "" {
		b.WriteString(j.EnrichedDescription)
	} else {
		b.WriteString(string(j.Description))
	}
	if len(j.RequiredSkills) > 0 {
		skills := make([]string, len(j.RequiredSkills))
		for i, s := range j.RequiredSkills {
			skills[i] = string(s)
		}
		b.WriteString(" Required skills: ")
		b.WriteString(strings.Join(skills, ", "))
		b.WriteString(".")
	}
	return b.String()
}
