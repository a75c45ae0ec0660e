package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupService handles data retention and cleanup
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90 // default 90 days
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays, now: time.Now}
}

// CleanupOldData removes screenings older than the retention period, then
// jobs that are older too and have no screenings left.
func (s *CleanupService) CleanupOldData(ctx context.Context) error {
	cutoff := s.now().UTC().AddDate(0, 0, -s.RetentionDays)

	tag, err := s.Pool.Exec(ctx, `DELETE FROM screenings WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.screenings: %w", err)
	}
	deletedScreenings := tag.RowsAffected()

	tag, err = s.Pool.Exec(ctx, `DELETE FROM jobs j WHERE j.created_at < $1
		AND NOT EXISTS (SELECT 1 FROM screenings s WHERE s.job_id = j.id)`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.jobs: %w", err)
	}

	slog.Info("data cleanup completed",
		slog.Int64("deleted_screenings", deletedScreenings),
		slog.Int64("deleted_jobs", tag.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

// RunPeriodic starts a periodic cleanup job
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour // daily by default
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
