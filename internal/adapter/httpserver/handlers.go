package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/usecase"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// ReadinessCheck is one dependency checked by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Jobs       usecase.JobService
	Screenings usecase.ScreeningService
	Checks     []ReadinessCheck
}

// NewServer constructs a Server. Checks run in the given order on /readyz.
func NewServer(cfg config.Config, jobs usecase.JobService, screenings usecase.ScreeningService, checks ...ReadinessCheck) *Server {
	return &Server{Cfg: cfg, Jobs: jobs, Screenings: screenings, Checks: checks}
}

// ScreenHandler screens uploaded resumes against an inline job description
// and answers with one result per resume.
func (s *Server) ScreenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseUpload(w, r, s.Cfg.MaxUploadBytes()); err != nil {
			s.writeUploadError(w, r, err)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		jobText := formValue(r, fieldJobDescription)
		if jobText == "" {
			writeError(w, r, fmt.Errorf("%w: jobDescription is required", domain.ErrInvalidArgument),
				map[string]string{"field": fieldJobDescription})
			return
		}
		docs, err := readResumes(r, s.Cfg.MaxResumesPerRequest)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": fieldResumes})
			return
		}

		reports, err := s.Screenings.ScreenDocuments(r.Context(), jobText, docs, formValue(r, fieldAPIKey))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		views := make([]usecase.ReportView, 0, len(reports))
		for _, rep := range reports {
			views = append(views, usecase.NewReportView(rep))
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": views})
	}
}

// CreateJobHandler stores a job posting.
func (s *Server) CreateJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		req.Description = strings.TrimSpace(req.Description)
		if fields, err := validateStruct(req); err != nil {
			writeError(w, r, err, fields)
			return
		}
		job, err := s.Jobs.Create(r.Context(), req.Title, req.Description)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Location", "/v1/jobs/"+job.ID)
		writeJSON(w, http.StatusCreated, usecase.NewJobView(job))
	}
}

// ListJobsHandler lists jobs, newest first.
func (s *Server) ListJobsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "limit"})
			return
		}
		jobs, err := s.Jobs.List(r.Context(), limit)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		views := make([]usecase.JobView, 0, len(jobs))
		for _, j := range jobs {
			views = append(views, usecase.NewJobView(j))
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
	}
}

// GetJobHandler returns one job.
func (s *Server) GetJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := validateID(id); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		job, err := s.Jobs.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, usecase.NewJobView(job))
	}
}

// DeleteJobHandler removes a job and, through the store, its screenings.
func (s *Server) DeleteJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := validateID(id); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		if err := s.Jobs.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SubmitScreeningsHandler queues uploaded resumes against a stored job.
func (s *Server) SubmitScreeningsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		if err := validateID(jobID); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		if err := parseUpload(w, r, s.Cfg.MaxUploadBytes()); err != nil {
			s.writeUploadError(w, r, err)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		docs, err := readResumes(r, s.Cfg.MaxResumesPerRequest)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": fieldResumes})
			return
		}
		created, err := s.Screenings.Submit(r.Context(), jobID, docs)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"screenings": screeningViews(created)})
	}
}

// ListScreeningsHandler lists the screenings of one job.
func (s *Server) ListScreeningsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		if err := validateID(jobID); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		list, err := s.Screenings.ListByJob(r.Context(), jobID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"screenings": screeningViews(list)})
	}
}

// GetScreeningHandler returns one screening and honours If-None-Match.
func (s *Server) GetScreeningHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := validateID(id); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		view, etag, err := s.Screenings.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// DeleteScreeningHandler removes one screening.
func (s *Server) DeleteScreeningHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := validateID(id); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		if err := s.Screenings.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler checks every configured dependency and answers 503 if any fails.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make([]check, 0, len(s.Checks))
		for _, c := range s.Checks {
			if c.Check == nil {
				continue
			}
			res := check{Name: c.Name, OK: true}
			if err := c.Check(ctx); err != nil {
				res.OK = false
				res.Details = err.Error()
				status = http.StatusServiceUnavailable
			}
			checks = append(checks, res)
		}
		writeJSON(w, status, map[string]any{"checks": checks})
	}
}

func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var details any
	if errors.Is(err, errPayloadTooLarge) {
		details = map[string]int64{"max_mb": s.Cfg.MaxUploadMB}
	}
	writeError(w, r, err, details)
}

func screeningViews(list []domain.Screening) []usecase.ScreeningView {
	out := make([]usecase.ScreeningView, 0, len(list))
	for _, sc := range list {
		out = append(out, usecase.NewScreeningView(sc))
	}
	return out
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
