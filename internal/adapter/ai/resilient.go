package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/sift/internal/adapter/ai/tokencount"
	obsadapter "github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
	"github.com/fairyhunter13/sift/internal/service/ratelimiter"
)

// ErrCircuitOpen is returned while the provider's circuit breaker refuses calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Permanent marks a provider error as not worth retrying.
func Permanent(err error) error { return backoff.Permanent(err) }

// Resilient decorates a provider Generator with a per-call timeout, bounded
// exponential retry for transient failures, a circuit breaker, an optional
// shared rate limit, metrics and token accounting. Every error it returns is a
// *domain.UpstreamError.
type Resilient struct {
	next     domain.Generator
	provider string
	model    string
	retry    config.RetryConfig
	breaker  *CircuitBreaker
	limiter  ratelimiter.Limiter
	tokens   *tokencount.Counter
}

// Option configures a Resilient generator.
type Option func(*Resilient)

// WithCircuitBreaker guards calls with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(r *Resilient) { r.breaker = cb }
}

// WithRateLimiter makes each attempt wait for a token from l.
func WithRateLimiter(l ratelimiter.Limiter) Option {
	return func(r *Resilient) { r.limiter = l }
}

// WithTokenCounter overrides the token counter.
func WithTokenCounter(c *tokencount.Counter) Option {
	return func(r *Resilient) { r.tokens = c }
}

// NewResilient wraps next.
func NewResilient(next domain.Generator, provider, model string, rc config.RetryConfig, opts ...Option) *Resilient {
	r := &Resilient{
		next:     next,
		provider: provider,
		model:    model,
		retry:    rc,
		tokens:   tokencount.DefaultCounter,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RateLimitKey is the limiter bucket shared by every caller of provider.
func RateLimitKey(provider string) string { return "ai:" + provider }

func (r *Resilient) newBackOff(ctx context.Context) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.retry.InitialInterval
	expo.MaxInterval = r.retry.MaxInterval
	expo.Multiplier = r.retry.Multiplier
	expo.MaxElapsedTime = r.retry.MaxElapsedTime
	return backoff.WithContext(backoff.WithMaxRetries(expo, r.retry.MaxRetries), ctx)
}

// Generate implements domain.Generator.
func (r *Resilient) Generate(ctx context.Context, prompt string) (string, error) {
	stage := observability.StageFromContext(ctx)
	lg := observability.LoggerFromContext(ctx).With(
		slog.String("provider", r.provider),
		slog.String("stage", stage),
	)

	ctx, span := otel.Tracer("ai").Start(ctx, "Generator.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", r.provider),
		attribute.String("ai.model", r.model),
		attribute.String("screening.stage", stage),
	)

	if r.breaker != nil && !r.breaker.Allow() {
		obsadapter.ObserveAIRequest(r.provider, stage, "circuit_open", 0)
		span.SetStatus(codes.Error, "circuit open")
		return "", domain.NewUpstreamError(r.provider, ErrCircuitOpen)
	}

	var (
		out      string
		attempts int
	)
	op := func() error {
		attempts++
		if attempts > 1 {
			obsadapter.AIRetriesTotal.WithLabelValues(r.provider, stage).Inc()
		}
		if err := r.waitForToken(ctx, lg); err != nil {
			return backoff.Permanent(err)
		}
		text, err := r.attempt(ctx, stage, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	}
	notify := func(err error, wait time.Duration) {
		lg.Warn("generator call failed, retrying",
			slog.Int("attempt", attempts),
			slog.Duration("backoff", wait),
			slog.Any("error", err))
	}

	err := backoff.RetryNotify(op, r.newBackOff(ctx), notify)
	span.SetAttributes(attribute.Int("ai.attempts", attempts))
	if err != nil {
		switch {
		case r.breaker == nil:
		case ctx.Err() != nil:
			// The caller gave up; the provider is not at fault.
			r.breaker.Abandon()
		default:
			r.breaker.RecordFailure()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		lg.Error("generator call failed", slog.Int("attempts", attempts), slog.Any("error", err))
		return "", domain.NewUpstreamError(r.provider, err)
	}
	if r.breaker != nil {
		r.breaker.RecordSuccess()
	}
	obsadapter.ObserveTokens(r.provider, r.tokens.Count(prompt, r.model), r.tokens.Count(out, r.model))
	return out, nil
}

// attempt performs one call under the per-call timeout and classifies its error.
func (r *Resilient) attempt(ctx context.Context, stage, prompt string) (string, error) {
	callCtx := ctx
	cancel := func() {}
	if r.retry.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, r.retry.CallTimeout)
	}
	defer cancel()

	start := time.Now()
	text, err := r.next.Generate(callCtx, prompt)
	dur := time.Since(start)

	switch {
	case err == nil:
		obsadapter.ObserveAIRequest(r.provider, stage, "success", dur)
		return text, nil
	case ctx.Err() != nil:
		// The caller gave up; retrying cannot help.
		obsadapter.ObserveAIRequest(r.provider, stage, "canceled", dur)
		return "", backoff.Permanent(ctx.Err())
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		obsadapter.ObserveAIRequest(r.provider, stage, "timeout", dur)
		return "", fmt.Errorf("%w: no answer within %s", domain.ErrUpstreamTimeout, r.retry.CallTimeout)
	default:
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			obsadapter.ObserveAIRequest(r.provider, stage, "permanent_error", dur)
		} else {
			obsadapter.ObserveAIRequest(r.provider, stage, "error", dur)
		}
		return "", err
	}
}

func (r *Resilient) waitForToken(ctx context.Context, lg *slog.Logger) error {
	if r.limiter == nil {
		return nil
	}
	maxWait := r.retry.CallTimeout
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	ok, err := ratelimiter.Wait(ctx, r.limiter, RateLimitKey(r.provider), maxWait)
	if err != nil {
		return err
	}
	if !ok {
		obsadapter.AIRateLimitedTotal.WithLabelValues(r.provider).Inc()
		lg.Warn("generator rate limit exhausted", slog.Duration("max_wait", maxWait))
		return domain.ErrRateLimited
	}
	return nil
}
