package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestRecommendationLabels(t *testing.T) {
	tests := []struct {
		rec      Recommendation
		expected string
	}{
		{RecommendationProceed, "Proceed to interview"},
		{RecommendationManualReview, "Needs manual review"},
		{RecommendationReject, "Reject"},
		{Recommendation("Other"), "Other"},
	}

	for _, tt := range tests {
		t.Run(string(tt.rec), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rec.Label())
		})
	}
	assert.True(t, RecommendationReject.Valid())
	assert.False(t, Recommendation("maybe").Valid())
}

func TestIsMeaningfulEducation(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want bool
	}{
		{"nil", nil, false},
		{"empty", strPtr("  "), false},
		{"not specified", strPtr("Not Specified"), false},
		{"n/a", strPtr("N/A"), false},
		{"none", strPtr("none"), false},
		{"degree", strPtr("Bachelor's in Computer Science"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMeaningfulEducation(tt.in))
		})
	}
}

func TestJobRequirements_HasMinimumExperience(t *testing.T) {
	assert.False(t, JobRequirements{}.HasMinimumExperience())
	assert.False(t, JobRequirements{MinimumExperienceYears: intPtr(0)}.HasMinimumExperience())
	assert.True(t, JobRequirements{MinimumExperienceYears: intPtr(3)}.HasMinimumExperience())
}

func TestCandidateProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "", CandidateProfile{}.DisplayName())
	assert.Equal(t, "Ada Lovelace", CandidateProfile{Name: strPtr("Ada Lovelace")}.DisplayName())
}
