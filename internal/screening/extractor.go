package screening

import (
	"context"
	"errors"
	"strings"

	"github.com/fairyhunter13/sift/internal/domain"
)

// ErrEmptyInput is the cause recorded when a stage receives blank text.
var ErrEmptyInput = errors.New("input text is empty")

type profileWire struct {
	CandidateName *string  `json:"candidateName"`
	Skills        []string `json:"skills"`
	Experience    *string  `json:"experience"`
	Education     *string  `json:"education"`
}

// ProfileExtractor turns resume text into a CandidateProfile.
type ProfileExtractor struct {
	gen generator
	kit *kit
}

func NewProfileExtractor(gen domain.Generator) *ProfileExtractor {
	return &ProfileExtractor{gen: generator{gen}, kit: mustKit()}
}

// Extract fails with an ExtractionFailure when the text is blank, the
// generator fails or its answer does not fit the profile schema.
func (e *ProfileExtractor) Extract(ctx context.Context, resumeText string) (domain.CandidateProfile, error) {
	if strings.TrimSpace(resumeText) == "" {
		return domain.CandidateProfile{}, domain.NewExtractionFailure(domain.StageProfile, ErrEmptyInput)
	}
	prompt, err := e.kit.prompts.renderProfile(profileInput{ResumeText: strings.TrimSpace(resumeText)})
	if err != nil {
		return domain.CandidateProfile{}, domain.NewExtractionFailure(domain.StageProfile, err)
	}
	raw, err := e.gen.call(ctx, domain.StageProfile, prompt)
	if err != nil {
		return domain.CandidateProfile{}, domain.NewExtractionFailure(domain.StageProfile, err)
	}
	var w profileWire
	if err := e.kit.decodeStage(raw, e.kit.schemas.profile, &w); err != nil {
		return domain.CandidateProfile{}, domain.NewExtractionFailure(domain.StageProfile, err)
	}

	p := domain.CandidateProfile{
		Skills:            dedupe(w.Skills),
		ExperienceSummary: strings.TrimSpace(deref(w.Experience)),
		EducationSummary:  strings.TrimSpace(deref(w.Education)),
	}
	if name := strings.TrimSpace(deref(w.CandidateName)); name != "" && !strings.EqualFold(name, "null") {
		p.Name = &name
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
