package matching

import (
	"strings"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

// SkillMatches reports whether a candidate skill covers a job skill.
// Either label may contain the other, compared case-insensitively.
func SkillMatches(candidateSkill, jobSkill kernel.Skill) bool {
	c, j := candidateSkill.Normalized(), jobSkill.Normalized()
	if c == "" || j == "" {
		return false
	}
	return strings.Contains(c, j) || strings.Contains(j, c)
}

// MatchSkills splits the wanted skills into the ones the candidate has and the ones missing
func MatchSkills(have, want []kernel.Skill) (matched, missing []kernel.Skill) {
	for _, w := range want {
		found := false
		for _, h := range have {
			if SkillMatches(h, w) {
				found = true
				break
			}
		}
		if found {
			matched = append(matched, w)
		} else {
			missing = append(missing, w)
		}
	}
	return matched, missing
}

// SkillNames converts skills to plain strings
func SkillNames(skills []kernel.Skill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = string(s)
	}
	return out
}
