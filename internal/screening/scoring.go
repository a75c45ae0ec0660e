package screening

import (
	"math"

	"github.com/fairyhunter13/sift/internal/domain"
)

// Scoring weights and partial credits.
const (
	weightRequired   = 0.55
	weightPreferred  = 0.15
	weightExperience = 0.20
	weightEducation  = 0.10

	experienceUnmet  = 0.25
	educationUnmet   = 0.35
	dimensionUnknown = 0.5

	proceedThreshold = 0.65
	reviewThreshold  = 0.35
)

// Scorecard is the numeric breakdown behind one scored decision.
type Scorecard struct {
	RequiredRatio   float64
	PreferredRatio  float64
	ExperienceScore float64
	EducationScore  float64
	// MatchScore is the clamped weighted sum before rounding.
	MatchScore float64
	// Specified counts the dimensions the job actually constrains (0..3).
	Specified  int
	Confidence float64
}

// Score applies the weighted formula to a non-vague requirement set and the
// matcher's verdict. MatchedRequired is counted as given, capped at 1.
func Score(reqs domain.JobRequirements, match domain.MatchDetails) Scorecard {
	var sc Scorecard

	if total := len(reqs.RequiredSkills); total > 0 {
		sc.RequiredRatio = math.Min(1, float64(len(match.MatchedRequired))/float64(total))
		sc.Specified++
	} else {
		sc.RequiredRatio = 1
	}
	if total := len(reqs.PreferredSkills); total > 0 {
		sc.PreferredRatio = math.Min(1, float64(len(match.MatchedPreferred))/float64(total))
	}

	sc.ExperienceScore = dimensionUnknown
	if reqs.HasMinimumExperience() {
		sc.Specified++
		sc.ExperienceScore = experienceUnmet
		if match.ExperienceSatisfied {
			sc.ExperienceScore = 1
		}
	}
	sc.EducationScore = dimensionUnknown
	if reqs.HasMeaningfulEducation() {
		sc.Specified++
		sc.EducationScore = educationUnmet
		if match.EducationSatisfied {
			sc.EducationScore = 1
		}
	}

	sc.MatchScore = clamp01(sc.RequiredRatio*weightRequired +
		sc.PreferredRatio*weightPreferred +
		sc.ExperienceScore*weightExperience +
		sc.EducationScore*weightEducation)
	sc.Confidence = clamp01(round2(0.5 + float64(sc.Specified)/3*0.5))
	return sc
}

// Recommend maps an unrounded match score to a verdict and whether a human must look.
func Recommend(score float64) (domain.Recommendation, bool) {
	switch {
	case score >= proceedThreshold-scoreEpsilon:
		return domain.RecommendationProceed, false
	case score >= reviewThreshold-scoreEpsilon:
		return domain.RecommendationManualReview, true
	default:
		return domain.RecommendationReject, false
	}
}

// scoreEpsilon absorbs float error such as 0.55+0.10 = 0.6499999999999999.
const scoreEpsilon = 1e-9

// round2 rounds half up to two decimals.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5+scoreEpsilon) / 100
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
