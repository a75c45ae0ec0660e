// Package app wires adapters and use cases into runnable servers.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/sift/internal/adapter/httpserver"
	"github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/config"
)

// ParseOrigins splits a comma-separated origin list, trimming spaces.
// An empty list means every origin.
func ParseOrigins(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", httpserver.HeaderRequestID},
		ExposedHeaders:   []string{httpserver.HeaderRequestID, "ETag", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.AcceptJSON)
		v1.Use(httpserver.TimeoutMiddleware(cfg.HTTPRequestTimeout))

		// Mutating endpoints are rate limited per client IP.
		v1.Group(func(wr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
			wr.Post("/screen", srv.ScreenHandler())
			wr.Post("/jobs", srv.CreateJobHandler())
			wr.Post("/jobs/{id}/screenings", srv.SubmitScreeningsHandler())
		})

		v1.Get("/jobs", srv.ListJobsHandler())
		v1.Get("/jobs/{id}", srv.GetJobHandler())
		v1.Delete("/jobs/{id}", srv.DeleteJobHandler())
		v1.Get("/jobs/{id}/screenings", srv.ListScreeningsHandler())
		v1.Get("/screenings/{id}", srv.GetScreeningHandler())
		v1.Delete("/screenings/{id}", srv.DeleteScreeningHandler())
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
