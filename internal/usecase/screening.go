package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
	"github.com/fairyhunter13/sift/internal/screening"
)

// Screener runs the screening pipeline; *screening.Pipeline satisfies it.
type Screener interface {
	Screen(ctx context.Context, resumeText, jobText string) screening.Outcome
}

// ScreenerFactory builds a Screener bound to a caller-supplied API key.
type ScreenerFactory func(ctx context.Context, apiKey string) (Screener, error)

// ScreeningService screens resumes synchronously or through the queue.
type ScreeningService struct {
	Jobs        domain.JobRepository
	Screenings  domain.ScreeningRepository
	Queue       domain.Queue
	Extractor   domain.TextExtractor
	Screener    Screener
	ForKey      ScreenerFactory
	Concurrency int
}

// ScreeningOption configures a ScreeningService.
type ScreeningOption func(*ScreeningService)

// WithScreenerFactory enables per-request API keys.
func WithScreenerFactory(f ScreenerFactory) ScreeningOption {
	return func(s *ScreeningService) { s.ForKey = f }
}

// WithConcurrency bounds how many resumes of one request run at once.
func WithConcurrency(n int) ScreeningOption {
	return func(s *ScreeningService) { s.Concurrency = n }
}

// NewScreeningService constructs a ScreeningService. Jobs, Screenings and
// Queue may be nil when only ScreenDocuments is used.
func NewScreeningService(jobs domain.JobRepository, screenings domain.ScreeningRepository, q domain.Queue, ext domain.TextExtractor, sc Screener, opts ...ScreeningOption) ScreeningService {
	s := ScreeningService{Jobs: jobs, Screenings: screenings, Queue: q, Extractor: ext, Screener: sc, Concurrency: 4}
	for _, o := range opts {
		o(&s)
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 1
	}
	return s
}

// ScreenDocuments screens every resume against jobText and returns one report
// per resume in input order. A resume that cannot be read gets the fallback
// result; the call itself only fails on invalid input.
func (s ScreeningService) ScreenDocuments(ctx domain.Context, jobText string, docs []domain.ResumeDocument, apiKey string) ([]domain.ScreeningReport, error) {
	if strings.TrimSpace(jobText) == "" {
		return nil, fmt.Errorf("%w: job description required", domain.ErrInvalidArgument)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: at least one resume required", domain.ErrInvalidArgument)
	}
	sc, err := s.screenerFor(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.ScreeningReport, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			reports[i] = s.screenOne(gctx, sc, jobText, doc)
			return nil
		})
	}
	_ = g.Wait()
	return reports, nil
}

func (s ScreeningService) screenOne(ctx context.Context, sc Screener, jobText string, doc domain.ResumeDocument) domain.ScreeningReport {
	rep := domain.ScreeningReport{ResumeName: doc.Name}
	text, err := s.Extractor.Extract(ctx, doc.Name, doc.Data)
	if err != nil {
		ferr := domain.NewExtractionFailure(domain.StageProfile, err)
		observability.LoggerFromContext(ctx).Warn("resume text extraction failed",
			slog.String("resume", doc.Name), slog.Any("error", err))
		rep.Result = screening.FallbackResult(ferr)
		rep.FailedStage = domain.StageProfile
		return rep
	}
	out := sc.Screen(ctx, text, jobText)
	rep.CandidateName = out.CandidateName
	rep.Result = out.Result
	rep.FailedStage = out.FailedStage()
	return rep
}

func (s ScreeningService) screenerFor(ctx context.Context, apiKey string) (Screener, error) {
	if apiKey = strings.TrimSpace(apiKey); apiKey == "" || s.ForKey == nil {
		if s.Screener == nil {
			return nil, fmt.Errorf("%w: no screener configured", domain.ErrInternal)
		}
		return s.Screener, nil
	}
	sc, err := s.ForKey(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: api key rejected: %v", domain.ErrInvalidArgument, err)
	}
	return sc, nil
}

// Submit extracts each resume, stores a pending screening for it and enqueues
// the work. Resumes that cannot be read are stored directly as errors.
func (s ScreeningService) Submit(ctx domain.Context, jobID string, docs []domain.ResumeDocument) ([]domain.Screening, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: at least one resume required", domain.ErrInvalidArgument)
	}
	if _, err := s.Jobs.Get(ctx, jobID); err != nil {
		return nil, err
	}
	lg := observability.LoggerFromContext(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	out := make([]domain.Screening, 0, len(docs))
	for _, doc := range docs {
		sc := domain.Screening{JobID: jobID, ResumeName: doc.Name, Status: domain.ScreeningPending}
		text, extractErr := s.Extractor.Extract(ctx, doc.Name, doc.Data)
		if extractErr != nil {
			res := screening.FallbackResult(domain.NewExtractionFailure(domain.StageProfile, extractErr))
			sc.Status = domain.ScreeningError
			sc.Result = &res
			sc.FailedStage = domain.StageProfile
		}
		id, err := s.Screenings.Create(ctx, sc)
		if err != nil {
			return out, err
		}
		sc.ID = id
		if extractErr != nil {
			lg.Warn("resume text extraction failed", slog.String("screening_id", id), slog.Any("error", extractErr))
			out = append(out, sc)
			continue
		}

		task := domain.ScreeningTask{ScreeningID: id, JobID: jobID, ResumeName: doc.Name, ResumeText: text, RequestID: requestID}
		if _, err := s.Queue.EnqueueScreening(ctx, task); err != nil {
			// No pipeline stage ran, so FailedStage stays empty.
			res := screening.FallbackResult(err)
			res.Reasoning = "Screening could not be queued for processing: " + err.Error()
			sc.Status = domain.ScreeningError
			sc.Result = &res
			if ferr := s.Screenings.Finish(ctx, sc); ferr != nil {
				lg.Error("failed to mark screening as error", slog.String("screening_id", id), slog.Any("error", ferr))
			}
			return out, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// Process runs one queued task. A screening that is no longer pending was
// handled by an earlier delivery and is skipped.
func (s ScreeningService) Process(ctx domain.Context, task domain.ScreeningTask) error {
	lg := observability.LoggerFromContext(ctx).With(slog.String("screening_id", task.ScreeningID))
	current, err := s.Screenings.Get(ctx, task.ScreeningID)
	if err != nil {
		return err
	}
	if current.Status != domain.ScreeningPending {
		lg.Info("screening already finished, skipping redelivery", slog.String("status", string(current.Status)))
		return nil
	}
	job, err := s.Jobs.Get(ctx, task.JobID)
	if err != nil {
		return err
	}

	out := s.Screener.Screen(ctx, task.ResumeText, job.Description)
	done := domain.Screening{
		ID:            task.ScreeningID,
		CandidateName: out.CandidateName,
		Status:        domain.ScreeningComplete,
		Result:        &out.Result,
		FailedStage:   out.FailedStage(),
	}
	if out.Path == screening.PathFallback {
		done.Status = domain.ScreeningError
	}
	if err := s.Screenings.Finish(ctx, done); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			lg.Info("screening finished concurrently, result discarded")
			return nil
		}
		return err
	}
	return nil
}

// Get loads one screening with its ETag.
func (s ScreeningService) Get(ctx domain.Context, id string) (ScreeningView, string, error) {
	sc, err := s.Screenings.Get(ctx, id)
	if err != nil {
		return ScreeningView{}, "", err
	}
	v := NewScreeningView(sc)
	return v, makeETag(v), nil
}

// ListByJob returns the screenings of an existing job.
func (s ScreeningService) ListByJob(ctx domain.Context, jobID string) ([]domain.Screening, error) {
	if _, err := s.Jobs.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return s.Screenings.ListByJob(ctx, jobID)
}

// Delete removes one screening.
func (s ScreeningService) Delete(ctx domain.Context, id string) error {
	return s.Screenings.Delete(ctx, id)
}
