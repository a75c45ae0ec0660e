package screening

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
)

type requirementsWire struct {
	RequiredSkills  []string `json:"requiredSkills"`
	PreferredSkills []string `json:"preferredSkills"`
	ExperienceYears *float64 `json:"experienceYears"`
	Education       *string  `json:"education"`
	IsVague         *bool    `json:"isVague"`
}

// RequirementAnalyzer turns a job description into JobRequirements.
type RequirementAnalyzer struct {
	gen generator
	kit *kit
}

func NewRequirementAnalyzer(gen domain.Generator) *RequirementAnalyzer {
	return &RequirementAnalyzer{gen: generator{gen}, kit: mustKit()}
}

// Analyze extracts the requirements and sets IsVague from the local rule.
// The generator's own isVague answer is only logged when it disagrees.
func (a *RequirementAnalyzer) Analyze(ctx context.Context, jobText string) (domain.JobRequirements, error) {
	if strings.TrimSpace(jobText) == "" {
		return domain.JobRequirements{}, domain.NewExtractionFailure(domain.StageRequirements, ErrEmptyInput)
	}
	prompt, err := a.kit.prompts.renderRequirements(requirementsInput{JobText: strings.TrimSpace(jobText)})
	if err != nil {
		return domain.JobRequirements{}, domain.NewExtractionFailure(domain.StageRequirements, err)
	}
	raw, err := a.gen.call(ctx, domain.StageRequirements, prompt)
	if err != nil {
		return domain.JobRequirements{}, domain.NewExtractionFailure(domain.StageRequirements, err)
	}
	var w requirementsWire
	if err := a.kit.decodeStage(raw, a.kit.schemas.requirements, &w); err != nil {
		return domain.JobRequirements{}, domain.NewExtractionFailure(domain.StageRequirements, err)
	}

	reqs := domain.JobRequirements{
		RequiredSkills:  dedupe(w.RequiredSkills),
		PreferredSkills: dedupe(w.PreferredSkills),
	}
	if w.ExperienceYears != nil {
		years := int(math.Floor(*w.ExperienceYears))
		reqs.MinimumExperienceYears = &years
	}
	if w.Education != nil {
		edu := strings.TrimSpace(*w.Education)
		reqs.RequiredEducation = &edu
	}

	reason := VaguenessReason(reqs.RequiredSkills, jobText)
	reqs.IsVague = reason != NotVague
	if w.IsVague != nil && *w.IsVague != reqs.IsVague {
		observability.LoggerFromContext(ctx).Info("generator vagueness verdict overridden",
			slog.Bool("generator_vague", *w.IsVague),
			slog.Bool("vague", reqs.IsVague),
			slog.String("reason", string(reason)))
	}
	return reqs, nil
}
