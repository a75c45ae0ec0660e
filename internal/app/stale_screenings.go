package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/screening"
)

// ErrScreeningTimedOut is the cause recorded on screenings the sweeper gives up on.
var ErrScreeningTimedOut = fmt.Errorf("%w: screening was not processed in time", domain.ErrUpstreamTimeout)

// StaleScreeningSweeper moves screenings stuck in pending, for example after
// a lost queue message, to error with the fallback result.
type StaleScreeningSweeper struct {
	screenings domain.ScreeningRepository
	maxAge     time.Duration
	interval   time.Duration
	pageSize   int
	now        func() time.Time
}

// NewStaleScreeningSweeper returns nil when screenings is nil.
func NewStaleScreeningSweeper(screenings domain.ScreeningRepository, maxAge, interval time.Duration) *StaleScreeningSweeper {
	if screenings == nil {
		return nil
	}
	if maxAge <= 0 {
		maxAge = 15 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &StaleScreeningSweeper{
		screenings: screenings,
		maxAge:     maxAge,
		interval:   interval,
		pageSize:   100,
		now:        time.Now,
	}
}

// Run sweeps once immediately and then every interval until ctx ends.
func (s *StaleScreeningSweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("stale screening sweeper stopping")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce finishes every stale pending screening and returns how many it moved.
func (s *StaleScreeningSweeper) SweepOnce(ctx context.Context) int {
	tracer := otel.Tracer("screenings.sweeper")
	ctx, span := tracer.Start(ctx, "StaleScreeningSweeper.SweepOnce")
	defer span.End()

	cutoff := s.now().Add(-s.maxAge)
	span.SetAttributes(
		attribute.Int("screenings.page_size", s.pageSize),
		attribute.Float64("screenings.max_age_seconds", s.maxAge.Seconds()),
	)

	checked, failed := 0, 0
	for {
		page, err := s.screenings.ListStalePending(ctx, cutoff, s.pageSize)
		if err != nil {
			span.RecordError(err)
			slog.Error("stale screening sweep failed to list screenings", slog.Any("error", err))
			break
		}
		checked += len(page)

		moved := 0
		for _, sc := range page {
			if s.fail(ctx, sc) {
				moved++
			}
		}
		failed += moved
		// A short page is the last one. A page where nothing moved would be
		// listed again, so stop there too.
		if len(page) < s.pageSize || moved == 0 {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("screenings.total_checked", checked),
		attribute.Int("screenings.total_marked_error", failed),
	)
	if failed > 0 {
		slog.Warn("stale screenings marked as error", slog.Int("count", failed), slog.Duration("max_age", s.maxAge))
	}
	return failed
}

func (s *StaleScreeningSweeper) fail(ctx context.Context, sc domain.Screening) bool {
	ctx, span := otel.Tracer("screenings.sweeper").Start(ctx, "StaleScreeningSweeper.markError")
	defer span.End()
	span.SetAttributes(attribute.String("screening.id", sc.ID))

	res := screening.FallbackResult(ErrScreeningTimedOut)
	sc.Status = domain.ScreeningError
	sc.Result = &res
	if err := s.screenings.Finish(ctx, sc); err != nil {
		span.RecordError(err)
		slog.Error("stale screening sweep failed to finish screening",
			slog.String("screening_id", sc.ID), slog.Any("error", err))
		return false
	}
	return true
}
