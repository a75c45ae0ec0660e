package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/screening"
)

type jobRepoMock struct{ mock.Mock }

func (m *jobRepoMock) Create(ctx domain.Context, j domain.Job) (string, error) {
	args := m.Called(ctx, j)
	return args.String(0), args.Error(1)
}

func (m *jobRepoMock) Get(ctx domain.Context, id string) (domain.Job, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Job), args.Error(1)
}

func (m *jobRepoMock) List(ctx domain.Context, limit int) ([]domain.Job, error) {
	args := m.Called(ctx, limit)
	jobs, _ := args.Get(0).([]domain.Job)
	return jobs, args.Error(1)
}

func (m *jobRepoMock) Delete(ctx domain.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type screeningRepoMock struct{ mock.Mock }

func (m *screeningRepoMock) Create(ctx domain.Context, s domain.Screening) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

func (m *screeningRepoMock) Get(ctx domain.Context, id string) (domain.Screening, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Screening), args.Error(1)
}

func (m *screeningRepoMock) ListByJob(ctx domain.Context, jobID string) ([]domain.Screening, error) {
	args := m.Called(ctx, jobID)
	out, _ := args.Get(0).([]domain.Screening)
	return out, args.Error(1)
}

func (m *screeningRepoMock) Finish(ctx domain.Context, s domain.Screening) error {
	return m.Called(ctx, s).Error(0)
}

func (m *screeningRepoMock) ListStalePending(ctx domain.Context, cutoff time.Time, limit int) ([]domain.Screening, error) {
	args := m.Called(ctx, cutoff, limit)
	out, _ := args.Get(0).([]domain.Screening)
	return out, args.Error(1)
}

func (m *screeningRepoMock) Delete(ctx domain.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type queueMock struct{ mock.Mock }

func (m *queueMock) EnqueueScreening(ctx domain.Context, task domain.ScreeningTask) (string, error) {
	args := m.Called(ctx, task)
	return args.String(0), args.Error(1)
}

// textExtractor returns the document bytes as text unless the name is listed in fail.
type textExtractor struct{ fail map[string]error }

func (e textExtractor) Extract(_ context.Context, name string, data []byte) (string, error) {
	if err, ok := e.fail[name]; ok {
		return "", err
	}
	return string(data), nil
}

// fakeScreener answers from a function and records the resume texts it saw.
type fakeScreener struct {
	mu   sync.Mutex
	seen []string
	fn   func(resumeText, jobText string) screening.Outcome
}

func (f *fakeScreener) Screen(_ context.Context, resumeText, jobText string) screening.Outcome {
	f.mu.Lock()
	f.seen = append(f.seen, resumeText)
	f.mu.Unlock()
	return f.fn(resumeText, jobText)
}

func scoredOutcome(name string, score float64) screening.Outcome {
	return screening.Outcome{
		CandidateName: name,
		Path:          screening.PathScored,
		Result: domain.ScreeningResult{
			MatchScore:     score,
			Confidence:     1,
			Recommendation: domain.RecommendationProceed,
			Reasoning:      "fits",
		},
	}
}
