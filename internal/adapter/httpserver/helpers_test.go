package httpserver_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/sift/internal/adapter/httpserver"
	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/screening"
	"github.com/fairyhunter13/sift/internal/usecase"
)

const pdfHeader = "%PDF-1.4\n"

// memStore keeps jobs and screenings in memory.
type memStore struct {
	mu         sync.Mutex
	jobs       map[string]domain.Job
	screenings map[string]domain.Screening
	tasks      []domain.ScreeningTask
}

func newMemStore() *memStore {
	return &memStore{jobs: map[string]domain.Job{}, screenings: map[string]domain.Screening{}}
}

type memJobs struct{ *memStore }

func (m memJobs) Create(_ domain.Context, j domain.Job) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = uuid.NewString()
	j.CreatedAt = time.Now()
	m.jobs[j.ID] = j
	return j.ID, nil
}

func (m memJobs) Get(_ domain.Context, id string) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return j, nil
}

func (m memJobs) List(_ domain.Context, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memJobs) Delete(_ domain.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.jobs, id)
	for sid, s := range m.screenings {
		if s.JobID == id {
			delete(m.screenings, sid)
		}
	}
	return nil
}

type memScreenings struct{ *memStore }

func (m memScreenings) Create(_ domain.Context, s domain.Screening) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.screenings[s.ID] = s
	return s.ID, nil
}

func (m memScreenings) Get(_ domain.Context, id string) (domain.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[id]
	if !ok {
		return domain.Screening{}, domain.ErrNotFound
	}
	return s, nil
}

func (m memScreenings) ListByJob(_ domain.Context, jobID string) ([]domain.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Screening, 0)
	for _, s := range m.screenings {
		if s.JobID == jobID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ResumeName < out[b].ResumeName })
	return out, nil
}

func (m memScreenings) Finish(_ domain.Context, s domain.Screening) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.screenings[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != domain.ScreeningPending {
		return domain.ErrConflict
	}
	cur.Status, cur.Result, cur.FailedStage, cur.CandidateName = s.Status, s.Result, s.FailedStage, s.CandidateName
	cur.UpdatedAt = time.Now()
	m.screenings[s.ID] = cur
	return nil
}

func (m memScreenings) ListStalePending(_ domain.Context, cutoff time.Time, _ int) ([]domain.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Screening
	for _, s := range m.screenings {
		if s.Status == domain.ScreeningPending && s.CreatedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m memScreenings) Delete(_ domain.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.screenings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.screenings, id)
	return nil
}

type memQueue struct{ *memStore }

func (m memQueue) EnqueueScreening(_ domain.Context, task domain.ScreeningTask) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return task.ScreeningID, nil
}

// pdfText strips the fake PDF header; "unreadable" in the content fails.
type pdfText struct{}

func (pdfText) Extract(_ context.Context, _ string, data []byte) (string, error) {
	text := strings.TrimPrefix(string(data), pdfHeader)
	if strings.Contains(text, "unreadable") {
		return "", domain.ErrUnsupportedMedia
	}
	return text, nil
}

// firstLineScreener names the candidate after the first resume line.
type firstLineScreener struct{}

func (firstLineScreener) Screen(_ context.Context, resumeText, _ string) screening.Outcome {
	name, _, _ := strings.Cut(resumeText, "\n")
	return screening.Outcome{
		CandidateName: name,
		Path:          screening.PathScored,
		Result: domain.ScreeningResult{
			MatchScore:     0.72,
			Confidence:     0.9,
			Recommendation: domain.RecommendationProceed,
			Reasoning:      "Strong overlap.",
		},
	}
}

type fixture struct {
	store  *memStore
	server *httpserver.Server
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemStore()
	cfg := config.Config{MaxUploadMB: 1, MaxResumesPerRequest: 3}
	jobs := usecase.NewJobService(memJobs{store})
	screenings := usecase.NewScreeningService(memJobs{store}, memScreenings{store}, memQueue{store}, pdfText{}, firstLineScreener{})
	return fixture{store: store, server: httpserver.NewServer(cfg, jobs, screenings)}
}

type part struct {
	field, name string
	data        []byte
}

func pdf(field, name, text string) part {
	return part{field: field, name: name, data: []byte(pdfHeader + text)}
}

func multipartRequest(t *testing.T, target string, values map[string]string, parts ...part) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, target, buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func withParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}
