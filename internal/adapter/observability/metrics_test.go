package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/jobs/{id}", http.MethodGet, "No Content"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/abc", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/jobs/{id}", http.MethodGet, "No Content"))
	assert.Equal(t, before+1, after)
}

func TestScreeningMetricsHelpers(t *testing.T) {
	before := testutil.ToFloat64(ScreeningsTotal.WithLabelValues("Reject", "scored"))
	ObserveScreening("Reject", "scored", 0.2, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(ScreeningsTotal.WithLabelValues("Reject", "scored")))

	StageFailed("match", "MatchFailure")
	assert.GreaterOrEqual(t, testutil.ToFloat64(ScreeningStageFailuresTotal.WithLabelValues("match", "MatchFailure")), 1.0)

	tokBefore := testutil.ToFloat64(AITokensTotal.WithLabelValues("stub", "prompt"))
	ObserveTokens("stub", 12, 0)
	assert.Equal(t, tokBefore+12, testutil.ToFloat64(AITokensTotal.WithLabelValues("stub", "prompt")))

	ObserveAIRequest("stub", "profile", "success", 10*time.Millisecond)
	EnqueueTask()
	StartProcessingTask()
	FinishTask("complete")
}
