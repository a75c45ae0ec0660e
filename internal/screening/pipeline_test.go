package screening_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/sift/internal/adapter/ai/stub"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
	"github.com/fairyhunter13/sift/internal/screening"
)

// stageGen answers each stage through a function and counts calls per stage.
type stageGen struct {
	fn    func(stage string) (string, error)
	match atomic.Int32
	calls atomic.Int32
}

func (g *stageGen) Generate(ctx context.Context, _ string) (string, error) {
	g.calls.Add(1)
	stage := observability.StageFromContext(ctx)
	if stage == "match" {
		g.match.Add(1)
	}
	return g.fn(stage)
}

const (
	resume = `Ada Lovelace
ada@example.com
Backend engineer, 7 years building Go services on Kubernetes with PostgreSQL and Kafka.
BSc Mathematics`

	job = `Senior Backend Engineer.
We need Go, Kubernetes, PostgreSQL and gRPC. 5+ years required. Bachelor degree in a technical field.
Nice to have: Kafka, Terraform.`
)

func newPipeline(t *testing.T, gen domain.Generator) *screening.Pipeline {
	t.Helper()
	p, err := screening.NewPipeline(gen)
	require.NoError(t, err)
	return p
}

func TestNewPipeline_RequiresGenerator(t *testing.T) {
	_, err := screening.NewPipeline(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestScreen_WithStubGenerator(t *testing.T) {
	out := newPipeline(t, stub.New()).Screen(context.Background(), resume, job)

	require.NoError(t, out.Err)
	assert.Equal(t, screening.PathScored, out.Path)
	assert.Equal(t, "Ada Lovelace", out.CandidateName)

	// Go, Kubernetes and PostgreSQL of four required skills, Kafka of two
	// preferred, 7 >= 5 years, BSc meets a bachelor requirement:
	// 0.75*0.55 + 0.5*0.15 + 1*0.20 + 1*0.10 = 0.7875.
	assert.Equal(t, 0.79, out.Result.MatchScore)
	assert.Equal(t, 1.0, out.Result.Confidence)
	assert.Equal(t, domain.RecommendationProceed, out.Result.Recommendation)
	assert.False(t, out.Result.RequiresHuman)
	assert.NotEmpty(t, out.Result.Reasoning)

	m, ok := out.State.Match()
	require.True(t, ok)
	assert.Equal(t, []string{"gRPC"}, m.MissingRequired)
	res, ok := out.State.Result()
	require.True(t, ok)
	assert.Equal(t, out.Result, res)
}

func TestScreen_Idempotent(t *testing.T) {
	p := newPipeline(t, stub.New())
	a := p.Screen(context.Background(), resume, job)
	b := p.Screen(context.Background(), resume, job)

	a.Result.Reasoning, b.Result.Reasoning = "", ""
	assert.Equal(t, a.Result, b.Result)
	assert.Equal(t, a.CandidateName, b.CandidateName)
}

func TestScreen_VagueJobNeverMatches(t *testing.T) {
	gen := &stageGen{fn: func(stage string) (string, error) {
		switch stage {
		case "profile":
			return `{"candidateName": "Sam", "skills": ["Go"], "experience": "", "education": ""}`, nil
		case "requirements":
			return `{"requiredSkills": ["coding", "team player"], "preferredSkills": [], "experienceYears": null, "education": null, "isVague": true}`, nil
		}
		return `{}`, nil
	}}
	out := newPipeline(t, gen).Screen(context.Background(), "Sam\nGo developer", strings.Repeat("We need someone good at coding. ", 5))

	require.NoError(t, out.Err)
	assert.Equal(t, screening.PathVague, out.Path)
	assert.Equal(t, screening.VagueResult(), out.Result)
	assert.Zero(t, gen.match.Load())
	assert.EqualValues(t, 2, gen.calls.Load())
	_, matched := out.State.Match()
	assert.False(t, matched)
}

func TestScreen_FallbackOnStageFailure(t *testing.T) {
	valid := map[string]string{
		"profile":      `{"candidateName": "Sam", "skills": ["Go"], "experience": "", "education": ""}`,
		"requirements": `{"requiredSkills": ["Go", "Rust", "Kafka"], "preferredSkills": [], "experienceYears": null, "education": null, "isVague": false}`,
		"match":        `{"skillMatches": ["Go"], "skillGaps": ["Rust", "Kafka"], "preferredMatches": [], "experienceMatch": false, "educationMatch": false}`,
	}
	jobText := strings.Repeat("Go, Rust and Kafka engineer wanted. ", 4)

	tests := []struct {
		broken string
		prefix string
		kind   error
	}{
		{"profile", "Failed to extract candidate profile from resume: ", domain.ErrExtraction},
		{"requirements", "Failed to analyze job requirements: ", domain.ErrExtraction},
		{"match", "Failed to match candidate with job: ", domain.ErrMatch},
	}
	for _, tt := range tests {
		t.Run(tt.broken, func(t *testing.T) {
			gen := &stageGen{fn: func(stage string) (string, error) {
				if stage == tt.broken {
					return "Sorry, I cannot help with that.", nil
				}
				if s, ok := valid[stage]; ok {
					return s, nil
				}
				return "Fine candidate. Worth a call.", nil
			}}
			out := newPipeline(t, gen).Screen(context.Background(), "Sam resume text", jobText)

			assert.Equal(t, screening.PathFallback, out.Path)
			assert.Equal(t, 0.0, out.Result.MatchScore)
			assert.Equal(t, 0.0, out.Result.Confidence)
			assert.Equal(t, domain.RecommendationManualReview, out.Result.Recommendation)
			assert.True(t, out.Result.RequiresHuman)
			assert.True(t, strings.HasPrefix(out.Result.Reasoning, tt.prefix), out.Result.Reasoning)
			assert.ErrorIs(t, out.Err, tt.kind)
			assert.Equal(t, domain.Stage(tt.broken), out.FailedStage())
		})
	}
}

func TestScreen_EmptyResumeFallsBack(t *testing.T) {
	gen := &stageGen{fn: func(string) (string, error) {
		return `{"requiredSkills": ["Go", "Rust", "Kafka"]}`, nil
	}}
	out := newPipeline(t, gen).Screen(context.Background(), "   ", strings.Repeat("Go Rust Kafka ", 10))

	assert.Equal(t, screening.PathFallback, out.Path)
	assert.Equal(t, "Failed to extract candidate profile from resume: input text is empty", out.Result.Reasoning)
	assert.ErrorIs(t, out.Err, screening.ErrEmptyInput)
}

func TestScreen_UpstreamErrorFallsBack(t *testing.T) {
	gen := &stageGen{fn: func(stage string) (string, error) {
		if stage == "requirements" {
			return "", domain.NewUpstreamError("gemini", domain.ErrUpstreamTimeout)
		}
		return `{"candidateName": null, "skills": []}`, nil
	}}
	out := newPipeline(t, gen).Screen(context.Background(), "resume", "job")

	assert.Equal(t, screening.PathFallback, out.Path)
	assert.ErrorIs(t, out.Err, domain.ErrUpstream)
	assert.ErrorIs(t, out.Err, domain.ErrUpstreamTimeout)
	assert.True(t, strings.HasPrefix(out.Result.Reasoning, "Failed to analyze job requirements: "))
}

func TestScreen_PanicIsContained(t *testing.T) {
	for _, stage := range []string{"profile", "match", "decision"} {
		t.Run(stage, func(t *testing.T) {
			gen := stub.New()
			panicky := &stageGen{fn: func(s string) (string, error) {
				if s == stage {
					panic("boom")
				}
				return gen.Generate(observability.ContextWithStage(context.Background(), s), promptFor(s))
			}}
			var out screening.Outcome
			require.NotPanics(t, func() {
				out = newPipeline(t, panicky).Screen(context.Background(), resume, job)
			})
			assert.Equal(t, screening.PathFallback, out.Path)
			assert.True(t, out.Result.RequiresHuman)
			assert.ErrorIs(t, out.Err, domain.ErrInternal)
			assert.Equal(t, domain.Stage(stage), out.FailedStage())
		})
	}
}

// promptFor feeds the stub inputs that make every stage succeed.
func promptFor(stage string) string {
	switch stage {
	case "profile":
		return "Resume:\n\"\"\"\n" + resume + "\n\"\"\"\n"
	case "requirements":
		return "Job Description:\n\"\"\"\n" + job + "\n\"\"\"\n"
	case "match":
		return "Candidate Skills: Go\nRequired Skills: Go, Rust\n"
	}
	return "Outcome: Reject (match score: 10%)\n"
}

func TestScreen_ReasoningFailureKeepsVerdict(t *testing.T) {
	base := stub.New()
	gen := &stageGen{}
	gen.fn = func(stage string) (string, error) {
		if stage == "decision" {
			return "", errors.New("503 from provider")
		}
		return base.Generate(observability.ContextWithStage(context.Background(), stage), promptFor(stage))
	}
	out := newPipeline(t, gen).Screen(context.Background(), resume, job)

	assert.Equal(t, screening.PathScored, out.Path)
	assert.ErrorIs(t, out.Err, domain.ErrReasoning)
	assert.True(t, out.Result.Recommendation.Valid())
	assert.NotContains(t, out.Result.Reasoning, "Failed to")
}
