package candidate

import "github.com/Abraxas-365/relay-match/pkg/kernel"

// CandidateSummary is the compact view returned alongside match results
type CandidateSummary struct {
	ID                kernel.CandidateID `json:"id"`
	FullName          string             `json:"full_name"`
	Email             kernel.Email       `json:"email"`
	Headline          string             `json:"headline,omitempty"`
	Skills            []kernel.Skill     `json:"skills"`
	YearsOfExperience int                `json:"years_of_experience"`
	Location          kernel.Location    `json:"location,omitempty"`
}

// ToSummary converts the entity into its summary view
func (c *Candidate) ToSummary() CandidateSummary {
	return CandidateSummary{
		ID:                c.ID,
		FullName:          c.GetFullName(),
		Email:             c.Email,
		Headline:          c.Headline,
		Skills:            c.Skills,
		YearsOfExperience: c.YearsOfExperience,
		Location:          c.Location,
	}
}
