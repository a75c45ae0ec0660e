package screening

import (
	"context"

	"github.com/fairyhunter13/sift/internal/domain"
)

type matchWire struct {
	SkillMatches     []string `json:"skillMatches"`
	SkillGaps        []string `json:"skillGaps"`
	PreferredMatches []string `json:"preferredMatches"`
	ExperienceMatch  *bool    `json:"experienceMatch"`
	EducationMatch   *bool    `json:"educationMatch"`
}

// Matcher compares a candidate with the requirements of a non-vague job.
// Skill equivalence is left entirely to the generator.
type Matcher struct {
	gen generator
	kit *kit
}

func NewMatcher(gen domain.Generator) *Matcher {
	return &Matcher{gen: generator{gen}, kit: mustKit()}
}

func (m *Matcher) Match(ctx context.Context, profile domain.CandidateProfile, reqs domain.JobRequirements) (domain.MatchDetails, error) {
	in := matchInput{
		CandidateSkills:     profile.Skills,
		CandidateExperience: profile.ExperienceSummary,
		CandidateEducation:  profile.EducationSummary,
		RequiredSkills:      reqs.RequiredSkills,
		PreferredSkills:     reqs.PreferredSkills,
	}
	if reqs.HasMinimumExperience() {
		in.MinimumYears = *reqs.MinimumExperienceYears
	}
	if reqs.HasMeaningfulEducation() {
		in.RequiredEducation = *reqs.RequiredEducation
	}
	prompt, err := m.kit.prompts.renderMatch(in)
	if err != nil {
		return domain.MatchDetails{}, domain.NewMatchFailure(err)
	}
	raw, err := m.gen.call(ctx, domain.StageMatch, prompt)
	if err != nil {
		return domain.MatchDetails{}, domain.NewMatchFailure(err)
	}
	var w matchWire
	if err := m.kit.decodeStage(raw, m.kit.schemas.match, &w); err != nil {
		return domain.MatchDetails{}, domain.NewMatchFailure(err)
	}
	// A dimension the job does not constrain can never be satisfied.
	return domain.MatchDetails{
		MatchedRequired:     dedupe(w.SkillMatches),
		MissingRequired:     dedupe(w.SkillGaps),
		MatchedPreferred:    dedupe(w.PreferredMatches),
		ExperienceSatisfied: reqs.HasMinimumExperience() && w.ExperienceMatch != nil && *w.ExperienceMatch,
		EducationSatisfied:  reqs.HasMeaningfulEducation() && w.EducationMatch != nil && *w.EducationMatch,
	}, nil
}
