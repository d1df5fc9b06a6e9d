package kernel

import "strings"

type Email string

type FirstName string

type LastName string

type JobTitle string

type JobDescription string

type CompanyName string

type Location string

// Skill is a free-text skill label as entered by candidates or employers
type Skill string

// Normalized returns the lower-cased, trimmed label used for comparisons
func (s Skill) Normalized() string {
	return strings.ToLower(strings.TrimSpace(string(s)))
}

// WorkSetting is where the work happens (remote, hybrid, onsite)
type WorkSetting string

const (
	WorkSettingRemote WorkSetting = "remote"
	WorkSettingHybrid WorkSetting = "hybrid"
	WorkSettingOnsite WorkSetting = "onsite"
)

// IsSet reports whether a setting was provided
func (w WorkSetting) IsSet() bool {
	return strings.TrimSpace(string(w)) != ""
}

// Equal compares two settings case-insensitively
func (w WorkSetting) Equal(other WorkSetting) bool {
	return strings.EqualFold(strings.TrimSpace(string(w)), strings.TrimSpace(string(other)))
}

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// SalaryRange is a yearly amount band. Zero bounds mean unknown.
type SalaryRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency,omitempty"`
}

// IsComplete reports whether both bounds are known and ordered
func (r SalaryRange) IsComplete() bool {
	return r.Min > 0 && r.Max > 0 && r.Min <= r.Max
}

// IsEmpty reports whether no bound is known
func (r SalaryRange) IsEmpty() bool {
	return r.Min <= 0 && r.Max <= 0
}
