package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of generator calls by provider, pipeline stage and outcome",
		},
		[]string{"provider", "stage", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Generator call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
		[]string{"provider", "stage"},
	)
	AIRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_retries_total",
			Help: "Generator calls repeated after a transient failure; each one may be billed again",
		},
		[]string{"provider", "stage"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated tokens sent to and received from the generator",
		},
		[]string{"provider", "kind"},
	)
	AIRateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_rate_limited_total",
			Help: "Generator calls delayed or refused by the shared rate limiter",
		},
		[]string{"provider"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	ScreeningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenings_total",
			Help: "Screening results by recommendation and decision path",
		},
		[]string{"recommendation", "path"},
	)
	ScreeningStageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_stage_failures_total",
			Help: "Pipeline stage failures by stage and failure kind",
		},
		[]string{"stage", "kind"},
	)
	ScreeningDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screening_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
	)
	MatchScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screening_match_score",
			Help:    "Distribution of match scores on the scored path",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.35, 0.4, 0.5, 0.6, 0.65, 0.7, 0.8, 0.9, 1.0},
		},
	)
	SuspectResumeTextTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_text_suspect_total",
			Help: "Extracted resume texts that were empty or implausibly short",
		},
		[]string{"extension"},
	)

	TasksEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screening_tasks_enqueued_total",
			Help: "Total number of screening tasks enqueued",
		},
	)
	TasksProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "screening_tasks_processing",
			Help: "Number of screening tasks currently processing",
		},
	)
	TasksFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_tasks_finished_total",
			Help: "Screening tasks finished by final status",
		},
		[]string{"status"},
	)
)

// InitMetrics registers every collector with the default registry.
func InitMetrics() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AIRequestsTotal,
		AIRequestDuration,
		AIRetriesTotal,
		AITokensTotal,
		AIRateLimitedTotal,
		CircuitBreakerState,
		ScreeningsTotal,
		ScreeningStageFailuresTotal,
		ScreeningDuration,
		MatchScoreHistogram,
		SuspectResumeTextTotal,
		TasksEnqueuedTotal,
		TasksProcessing,
		TasksFinishedTotal,
	)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest records one generator attempt.
func ObserveAIRequest(provider, stage, outcome string, dur time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, stage, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider, stage).Observe(dur.Seconds())
}

// ObserveTokens adds estimated prompt and completion token counts.
func ObserveTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// ObserveScreening records a finished pipeline run.
func ObserveScreening(recommendation, path string, matchScore float64, dur time.Duration) {
	ScreeningsTotal.WithLabelValues(recommendation, path).Inc()
	ScreeningDuration.Observe(dur.Seconds())
	if path == "scored" && matchScore >= 0 && matchScore <= 1 {
		MatchScoreHistogram.Observe(matchScore)
	}
}

// StageFailed counts a pipeline stage failure.
func StageFailed(stage, kind string) {
	ScreeningStageFailuresTotal.WithLabelValues(stage, kind).Inc()
}

func EnqueueTask() { TasksEnqueuedTotal.Inc() }

func StartProcessingTask() { TasksProcessing.Inc() }

func FinishTask(status string) {
	TasksProcessing.Dec()
	TasksFinishedTotal.WithLabelValues(status).Inc()
}
