package screening

import (
	"strings"
	"unicode/utf8"
)

// minSpecificJobTextLen is the shortest job text, in characters, that can be
// specific enough to screen against.
const minSpecificJobTextLen = 100

// minSpecificSkills is how many non-generic required skills a job must name.
const minSpecificSkills = 3

// vagueKeywords mark a skill as generic when they appear anywhere in it.
var vagueKeywords = []string{
	"coding",
	"programming",
	"development",
	"software",
	"technology",
	"experience",
	"skills",
	"knowledge",
	"good",
	"team player",
	"communication",
	"self-motivated",
	"quick learner",
}

// VagueReason names the first rule that made a job vague.
type VagueReason string

const (
	NotVague            VagueReason = ""
	VagueNoSkills       VagueReason = "no required skills"
	VagueAllGeneric     VagueReason = "every required skill is generic"
	VagueTextTooShort   VagueReason = "job text too short"
	VagueTooFewSpecific VagueReason = "fewer than 3 specific required skills"
)

// IsVague reports whether a job is too unspecific to screen against. It is a
// pure function of its inputs.
func IsVague(requiredSkills []string, jobText string) bool {
	return VaguenessReason(requiredSkills, jobText) != NotVague
}

// VaguenessReason evaluates the vagueness rules in order and returns the
// first that fires.
func VaguenessReason(requiredSkills []string, jobText string) VagueReason {
	if len(requiredSkills) == 0 {
		return VagueNoSkills
	}

	specific := 0
	for _, s := range requiredSkills {
		if !isGenericSkill(s) {
			specific++
		}
	}
	if specific == 0 {
		return VagueAllGeneric
	}
	if utf8.RuneCountInString(jobText) < minSpecificJobTextLen {
		return VagueTextTooShort
	}
	if specific < minSpecificSkills {
		return VagueTooFewSpecific
	}
	return NotVague
}

func isGenericSkill(skill string) bool {
	lower := strings.ToLower(skill)
	for _, kw := range vagueKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
