// Package screening implements the candidate screening pipeline: profile
// extraction and requirement analysis in parallel, a vagueness check, skill
// matching and a scored decision with a short narrative.
package screening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	obsadapter "github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
)

// Outcome is what one pipeline run hands back. Result is always usable; Err
// carries the stage failure behind a fallback or a degraded narrative.
type Outcome struct {
	State         PipelineState
	Result        domain.ScreeningResult
	CandidateName string
	Err           error
	Path          DecisionPath
}

// FailedStage returns the stage named by Err, if any.
func (o Outcome) FailedStage() domain.Stage {
	st, _ := domain.StageOf(o.Err)
	return st
}

// Pipeline runs the stages for one resume against one job description.
type Pipeline struct {
	extractor *ProfileExtractor
	analyzer  *RequirementAnalyzer
	matcher   *Matcher
	decider   *DecisionMaker
}

// NewPipeline builds every stage on top of gen.
func NewPipeline(gen domain.Generator) (*Pipeline, error) {
	if gen == nil {
		return nil, fmt.Errorf("op=screening.NewPipeline: %w: generator is nil", domain.ErrInvalidArgument)
	}
	if _, err := defaultKit(); err != nil {
		return nil, fmt.Errorf("op=screening.NewPipeline: %w", err)
	}
	return &Pipeline{
		extractor: NewProfileExtractor(gen),
		analyzer:  NewRequirementAnalyzer(gen),
		matcher:   NewMatcher(gen),
		decider:   NewDecisionMaker(gen),
	}, nil
}

// Screen never returns an error and never panics: any stage failure becomes a
// fallback result that asks for human review.
func (p *Pipeline) Screen(ctx context.Context, resumeText, jobText string) (out Outcome) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "screening.Pipeline.Screen")
	defer span.End()
	lg := observability.LoggerFromContext(ctx)

	state := NewState(resumeText, jobText)
	defer func() {
		if r := recover(); r != nil {
			out = p.fallback(ctx, state, fmt.Errorf("%w: panic: %v", domain.ErrInternal, r))
		}
		span.SetAttributes(
			attribute.String("screening.path", string(out.Path)),
			attribute.String("screening.recommendation", string(out.Result.Recommendation)),
			attribute.Float64("screening.match_score", out.Result.MatchScore),
		)
		if out.Err != nil {
			span.RecordError(out.Err)
			if out.Path == PathFallback {
				span.SetStatus(codes.Error, out.Err.Error())
			}
		}
		obsadapter.ObserveScreening(string(out.Result.Recommendation), string(out.Path), out.Result.MatchScore, time.Since(start))
		lg.Info("screening finished",
			slog.String("path", string(out.Path)),
			slog.String("recommendation", string(out.Result.Recommendation)),
			slog.Float64("match_score", out.Result.MatchScore),
			slog.Duration("duration", time.Since(start)))
	}()

	var (
		profile domain.CandidateProfile
		reqs    domain.JobRequirements
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return guard(domain.StageProfile, func() (err error) {
			profile, err = p.extractor.Extract(gctx, resumeText)
			return err
		})
	})
	g.Go(func() error {
		return guard(domain.StageRequirements, func() (err error) {
			reqs, err = p.analyzer.Analyze(gctx, jobText)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return p.fallback(ctx, state, err)
	}
	state = state.WithProfile(profile).WithRequirements(reqs)

	var matchPtr *domain.MatchDetails
	path := PathVague
	if !reqs.IsVague {
		var match domain.MatchDetails
		err := guard(domain.StageMatch, func() (err error) {
			match, err = p.matcher.Match(ctx, profile, reqs)
			return err
		})
		if err != nil {
			return p.fallback(ctx, state, err)
		}
		state = state.WithMatch(match)
		matchPtr = &match
		path = PathScored
	}

	var result domain.ScreeningResult
	err := guard(domain.StageDecision, func() (err error) {
		result, err = p.decider.Decide(ctx, reqs, matchPtr)
		return err
	})
	if err != nil && !result.Recommendation.Valid() {
		return p.fallback(ctx, state, err)
	}
	if err != nil {
		// Only the narrative failed; the numeric verdict stands.
		recordFailure(ctx, err)
	}
	state = state.WithResult(result)
	return Outcome{
		State:         state,
		Result:        result,
		CandidateName: profile.DisplayName(),
		Err:           err,
		Path:          path,
	}
}

// guard turns a panic inside fn into a failure of stage.
func guard(stage domain.Stage, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("%w: panic: %v", domain.ErrInternal, r)
			switch stage {
			case domain.StageMatch:
				err = domain.NewMatchFailure(cause)
			case domain.StageDecision:
				err = domain.NewReasoningFailure(cause)
			default:
				err = domain.NewExtractionFailure(stage, cause)
			}
		}
	}()
	return fn()
}

func (p *Pipeline) fallback(ctx context.Context, state PipelineState, err error) Outcome {
	recordFailure(ctx, err)
	res := FallbackResult(err)
	name := ""
	if prof, ok := state.Profile(); ok {
		name = prof.DisplayName()
	}
	return Outcome{
		State:         state.WithResult(res),
		Result:        res,
		CandidateName: name,
		Err:           err,
		Path:          PathFallback,
	}
}

// FallbackResult is the human-review verdict given when a stage failed.
func FallbackResult(err error) domain.ScreeningResult {
	return domain.ScreeningResult{
		MatchScore:     0,
		Confidence:     0,
		Recommendation: domain.RecommendationManualReview,
		RequiresHuman:  true,
		Reasoning:      fallbackMessage(err),
	}
}

func fallbackMessage(err error) string {
	cause := err
	var se *domain.StageError
	if errors.As(err, &se) && se.Err != nil {
		cause = se.Err
	}
	stage, _ := domain.StageOf(err)
	switch stage {
	case domain.StageProfile:
		return "Failed to extract candidate profile from resume: " + cause.Error()
	case domain.StageRequirements:
		return "Failed to analyze job requirements: " + cause.Error()
	case domain.StageMatch:
		return "Failed to match candidate with job: " + cause.Error()
	case domain.StageDecision:
		return "Failed to make hiring decision: " + cause.Error()
	default:
		return "Screening failed: " + cause.Error()
	}
}

func recordFailure(ctx context.Context, err error) {
	stage, _ := domain.StageOf(err)
	kind, _ := domain.KindOf(err)
	if stage == "" {
		stage = "unknown"
	}
	if kind == "" {
		kind = "Internal"
	}
	obsadapter.StageFailed(string(stage), string(kind))
	observability.LoggerFromContext(ctx).Warn("screening stage failed",
		slog.String("stage", string(stage)),
		slog.String("kind", string(kind)),
		slog.Bool("upstream", errors.Is(err, domain.ErrUpstream)),
		slog.Any("error", err))
}
