package candidate

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

// CandidateStatus represents the status of a candidate
type CandidateStatus string

const (
	CandidateStatusActive   CandidateStatus = "ACTIVE"   // Visible to matching
	CandidateStatusInactive CandidateStatus = "INACTIVE" // Deactivated
	CandidateStatusArchived CandidateStatus = "ARCHIVED" // Archived
)

// Education is one entry of a candidate's education history
type Education struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	Field          string `json:"field,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
}

// WorkPreferences are the explicit preferences stated by the candidate
type WorkPreferences struct {
	Setting         kernel.WorkSetting `json:"setting,omitempty"`
	TeamSize        string             `json:"team_size,omitempty"`
	ManagementStyle string             `json:"management_style,omitempty"`
}

// Candidate is the read-only profile snapshot used for matching
type Candidate struct {
	ID                kernel.CandidateID `db:"id" json:"id"`
	Email             kernel.Email       `db:"email" json:"email"`
	FirstName         kernel.FirstName   `db:"first_name" json:"first_name"`
	LastName          kernel.LastName    `db:"last_name" json:"last_name"`
	Headline          string             `db:"headline" json:"headline,omitempty"`
	Skills            []kernel.Skill     `db:"skills" json:"skills"`
	YearsOfExperience int                `db:"years_of_experience" json:"years_of_experience"`
	Education         []Education        `db:"education" json:"education,omitempty"`
	Preferences       WorkPreferences    `db:"preferences" json:"preferences"`
	SoftSkills        []string           `db:"soft_skills" json:"soft_skills,omitempty"`
	// PersonalityTraits are AI-inferred at resume parse time
	PersonalityTraits []string           `db:"personality_traits" json:"personality_traits,omitempty"`
	DesiredSalary     kernel.SalaryRange `db:"desired_salary" json:"desired_salary"`
	Location          kernel.Location    `db:"location" json:"location,omitempty"`
	OpenToRelocation  bool               `db:"open_to_relocation" json:"open_to_relocation"`
	Status            CandidateStatus    `db:"status" json:"status"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

// ============================================================================
// Domain Methods
// ============================================================================

// IsActive checks if the candidate is active
func (c *Candidate) IsActive() bool {
	return c.Status == CandidateStatusActive
}

// IsEligibleForMatching checks if the candidate may be scored against jobs
func (c *Candidate) IsEligibleForMatching() bool {
	return c.IsActive()
}

// GetFullName returns the candidate's full name
func (c *Candidate) GetFullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", c.FirstName, c.LastName))
}

// ExpectedSalary returns the amount the candidate asks for, 0 when unknown.
// The lower bound of the desired range wins when both are set.
func (c *Candidate) ExpectedSalary() int {
	if c.DesiredSalary.Min > 0 {
		return c.DesiredSalary.Min
	}
	if c.DesiredSalary.Max > 0 {
		return c.DesiredSalary.Max
	}
	return 0
}

// ProfileText flattens the profile for embedding generation
func (c *Candidate) ProfileText() string {
	var b strings.Builder
	if c.Headline != "" {
		b.WriteString(c.Headline)
		b.WriteString(". ")
	}
	if len(c.Skills) > 0 {
		skills := make([]string, len(c.Skills))
		for i, s := range c.Skills {
			skills[i] = string(s)
		}
		b.WriteString("Skills: ")
		b.WriteString(strings.Join(skills, ", "))
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "%d years of experience.", c.YearsOfExperience)
	if c.Location != "" {
		fmt.Fprintf(&b, " Based in %s.", c.Location)
	}
	return b.String()
}
