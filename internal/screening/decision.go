package screening

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/sift/internal/domain"
)

// VagueReasoning is the fixed explanation given for vague job descriptions.
const VagueReasoning = "The job description lacks specific, actionable requirements such as concrete technologies " +
	"and qualifications, so candidates cannot be matched against it. " +
	"Please provide a more detailed job description before automated evaluation can proceed."

// DecisionPath records which branch produced a result.
type DecisionPath string

const (
	PathScored   DecisionPath = "scored"
	PathVague    DecisionPath = "vague"
	PathFallback DecisionPath = "fallback"
)

var errMissingMatch = errors.New("match details missing for a non-vague job")

// DecisionMaker turns requirements and match details into a ScreeningResult.
// It has two terminal states: vague, which needs no match, and scored.
type DecisionMaker struct {
	gen generator
	kit *kit
}

func NewDecisionMaker(gen domain.Generator) *DecisionMaker {
	return &DecisionMaker{gen: generator{gen}, kit: mustKit()}
}

// VagueResult is the verdict for any vague job.
func VagueResult() domain.ScreeningResult {
	return domain.ScreeningResult{
		MatchScore:     0,
		Confidence:     0,
		Recommendation: domain.RecommendationManualReview,
		RequiresHuman:  true,
		Reasoning:      VagueReasoning,
	}
}

// Decide scores a non-vague job and asks the generator for a short narrative.
// When only the narrative fails it returns the full numeric result with a
// fixed reasoning text together with a ReasoningFailure.
func (d *DecisionMaker) Decide(ctx context.Context, reqs domain.JobRequirements, match *domain.MatchDetails) (domain.ScreeningResult, error) {
	if reqs.IsVague {
		return VagueResult(), nil
	}
	if match == nil {
		return domain.ScreeningResult{}, domain.NewReasoningFailure(errMissingMatch)
	}

	sc := Score(reqs, *match)
	// Thresholds apply to the unrounded score.
	rec, human := Recommend(sc.MatchScore)
	res := domain.ScreeningResult{
		MatchScore:     round2(sc.MatchScore),
		Confidence:     sc.Confidence,
		Recommendation: rec,
		RequiresHuman:  human,
	}

	reasoning, err := d.reason(ctx, res, *match)
	if err != nil {
		res.Reasoning = fallbackReasoning(res, *match)
		return res, domain.NewReasoningFailure(err)
	}
	res.Reasoning = reasoning
	return res, nil
}

func (d *DecisionMaker) reason(ctx context.Context, res domain.ScreeningResult, match domain.MatchDetails) (string, error) {
	prompt, err := d.kit.prompts.renderReasoning(reasoningInput{
		Outcome:          res.Recommendation.Label(),
		ScorePercent:     scorePercent(res.MatchScore),
		MatchedRequired:  match.MatchedRequired,
		MissingRequired:  match.MissingRequired,
		MatchedPreferred: match.MatchedPreferred,
		ExperienceMatch:  match.ExperienceSatisfied,
		EducationMatch:   match.EducationSatisfied,
	})
	if err != nil {
		return "", err
	}
	raw, err := d.gen.call(ctx, domain.StageDecision, prompt)
	if err != nil {
		return "", err
	}
	text := d.kit.cleaner.CleanText(raw)
	if text == "" {
		return "", errors.New("generator returned empty reasoning")
	}
	return text, nil
}

func scorePercent(score float64) int { return int(math.Round(score * 100)) }

func fallbackReasoning(res domain.ScreeningResult, match domain.MatchDetails) string {
	missing := "none"
	if len(match.MissingRequired) > 0 {
		missing = strings.Join(match.MissingRequired, ", ")
	}
	return fmt.Sprintf("%s with a match score of %d%%, matching %d required skill(s). Missing required skills: %s.",
		res.Recommendation.Label(), scorePercent(res.MatchScore), len(match.MatchedRequired), missing)
}
