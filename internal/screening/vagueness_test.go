package screening

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVague(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 100)
	tests := []struct {
		name    string
		skills  []string
		text    string
		want    bool
		because VagueReason
	}{
		{"no skills", nil, long, true, VagueNoSkills},
		{"no skills with long text", []string{}, strings.Repeat("Kubernetes ", 50), true, VagueNoSkills},
		{"all generic", []string{"coding", "team player"}, long, true, VagueAllGeneric},
		{"generic checked case-insensitively", []string{"Good Communication", "Software Development"}, long, true, VagueAllGeneric},
		{"specific", []string{"Kubernetes", "Go", "Postgres", "gRPC"}, long, false, NotVague},
		{"short text", []string{"Kubernetes", "Go", "Postgres"}, strings.Repeat("x", 99), true, VagueTextTooShort},
		{"too few specific", []string{"Go", "Postgres", "coding skills"}, long, true, VagueTooFewSpecific},
		{"exactly three specific", []string{"Go", "Postgres", "Redis", "teamwork and communication"}, long, false, NotVague},
		{"generic rule wins over length", []string{"coding"}, "short", true, VagueAllGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVague(tt.skills, tt.text))
			assert.Equal(t, tt.because, VaguenessReason(tt.skills, tt.text))
		})
	}
}

func TestIsVague_CountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	skills := []string{"Go", "Rust", "Zig"}
	// 99 two-byte runes are 198 bytes but still too short.
	assert.True(t, IsVague(skills, strings.Repeat("é", 99)))
	assert.False(t, IsVague(skills, strings.Repeat("é", 100)))
}
