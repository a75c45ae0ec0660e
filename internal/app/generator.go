package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/sift/internal/adapter/ai"
	"github.com/fairyhunter13/sift/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/sift/internal/adapter/ai/openrouter"
	"github.com/fairyhunter13/sift/internal/adapter/ai/stub"
	obsadapter "github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/screening"
	"github.com/fairyhunter13/sift/internal/service/ratelimiter"
	"github.com/fairyhunter13/sift/internal/usecase"
)

// NewRedisLimiter connects to REDIS_URL and shares one token bucket per
// provider. It returns nils when Redis is not configured.
func NewRedisLimiter(ctx context.Context, cfg config.Config) (*ratelimiter.RedisLuaLimiter, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("op=app.NewRedisLimiter: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("op=app.NewRedisLimiter: ping: %w", err)
	}
	bucket := ratelimiter.NewBucketConfigFromPerMinute(cfg.AIRateLimitPerMin)
	limiter := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
		ai.RateLimitKey(gemini.ProviderName):     bucket,
		ai.RateLimitKey(openrouter.ProviderName): bucket,
	})
	return limiter, rdb, nil
}

// NewGenerator builds the configured provider wrapped with timeout, retry,
// circuit breaker and the optional shared rate limit.
func NewGenerator(ctx context.Context, cfg config.Config, limiter ratelimiter.Limiter) (domain.Generator, error) {
	var (
		base     domain.Generator
		provider string
		model    string
	)
	switch cfg.AIProvider {
	case config.ProviderGemini:
		g, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		base, provider, model = g, gemini.ProviderName, g.Model()
	case config.ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENROUTER_API_KEY is required", domain.ErrInvalidArgument)
		}
		c := openrouter.New(cfg)
		base, provider, model = c, openrouter.ProviderName, c.Model()
	case config.ProviderStub:
		base, provider, model = stub.New(), stub.ProviderName, stub.ProviderName
	default:
		return nil, fmt.Errorf("%w: unknown AI provider %q", domain.ErrInvalidArgument, cfg.AIProvider)
	}

	cb := ai.NewCircuitBreaker(provider, cfg.CircuitFailureThreshold, cfg.CircuitRecoveryTimeout)
	cb.OnStateChange(func(name string, state ai.CircuitState) {
		obsadapter.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
		slog.Warn("generator circuit breaker changed state", slog.String("provider", name), slog.String("state", state.String()))
	})
	obsadapter.CircuitBreakerState.WithLabelValues(provider).Set(float64(ai.CircuitClosed))

	opts := []ai.Option{ai.WithCircuitBreaker(cb)}
	if limiter != nil {
		opts = append(opts, ai.WithRateLimiter(limiter))
	}
	slog.Info("generator configured", slog.String("provider", provider), slog.String("model", model))
	return ai.NewResilient(base, provider, model, cfg.GetRetryConfig(), opts...), nil
}

// NewScreenerFactory returns a factory building a pipeline on a Gemini
// generator bound to a caller-supplied key. Those generators share the rate
// limit but not the circuit breaker, which tracks the service's own key.
func NewScreenerFactory(cfg config.Config, limiter ratelimiter.Limiter) usecase.ScreenerFactory {
	return func(ctx context.Context, apiKey string) (usecase.Screener, error) {
		g, err := gemini.NewGenerator(ctx, apiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		var opts []ai.Option
		if limiter != nil {
			opts = append(opts, ai.WithRateLimiter(limiter))
		}
		gen := ai.NewResilient(g, gemini.ProviderName, g.Model(), cfg.GetRetryConfig(), opts...)
		p, err := screening.NewPipeline(gen)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
