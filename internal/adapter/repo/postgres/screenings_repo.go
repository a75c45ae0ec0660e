package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/sift/internal/domain"
)

// ScreeningRepo persists screening records and their results.
type ScreeningRepo struct{ Pool PgxPool }

// NewScreeningRepo constructs a ScreeningRepo with the given pool.
func NewScreeningRepo(p PgxPool) *ScreeningRepo { return &ScreeningRepo{Pool: p} }

const screeningColumns = `id, job_id, resume_name, candidate_name, status,
	match_score, confidence, recommendation, requires_human, reasoning,
	failed_stage, created_at, updated_at`

// Create inserts a screening, normally in the pending state.
func (r *ScreeningRepo) Create(ctx domain.Context, s domain.Screening) (string, error) {
	ctx, span := startSpan(ctx, "screenings.Create", "INSERT", "screenings")
	defer span.End()
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = domain.ScreeningPending
	}
	now := time.Now().UTC()
	r0 := resultColumns(s.Result)
	q := `INSERT INTO screenings (` + screeningColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.Pool.Exec(ctx, q, id, s.JobID, s.ResumeName, s.CandidateName, string(s.Status),
		r0.score, r0.confidence, r0.recommendation, r0.human, r0.reasoning,
		string(s.FailedStage), now, now)
	if err != nil {
		return "", fmt.Errorf("op=screening.create: %w", err)
	}
	return id, nil
}

// Get loads one screening.
func (r *ScreeningRepo) Get(ctx domain.Context, id string) (domain.Screening, error) {
	ctx, span := startSpan(ctx, "screenings.Get", "SELECT", "screenings")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return domain.Screening{}, fmt.Errorf("op=screening.get: %w", domain.ErrNotFound)
	}
	s, err := scanScreening(r.Pool.QueryRow(ctx, `SELECT `+screeningColumns+` FROM screenings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Screening{}, fmt.Errorf("op=screening.get: %w", domain.ErrNotFound)
		}
		return domain.Screening{}, fmt.Errorf("op=screening.get: %w", err)
	}
	return s, nil
}

// ListByJob returns the screenings of a job in submission order.
func (r *ScreeningRepo) ListByJob(ctx domain.Context, jobID string) ([]domain.Screening, error) {
	ctx, span := startSpan(ctx, "screenings.ListByJob", "SELECT", "screenings")
	defer span.End()
	if _, err := uuid.Parse(jobID); err != nil {
		return []domain.Screening{}, nil
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+screeningColumns+` FROM screenings WHERE job_id=$1 ORDER BY created_at, id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("op=screening.list: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Screening, 0)
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("op=screening.list: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=screening.list: %w", err)
	}
	return out, nil
}

// Finish stores the final state of a pending screening. A screening that is
// no longer pending yields ErrConflict so redelivered tasks are not replayed.
func (r *ScreeningRepo) Finish(ctx domain.Context, s domain.Screening) error {
	ctx, span := startSpan(ctx, "screenings.Finish", "UPDATE", "screenings")
	defer span.End()
	if s.Status != domain.ScreeningComplete && s.Status != domain.ScreeningError {
		return fmt.Errorf("op=screening.finish: %w: status %q", domain.ErrInvalidArgument, s.Status)
	}
	r0 := resultColumns(s.Result)
	q := `UPDATE screenings
	SET status=$2, candidate_name=$3, match_score=$4, confidence=$5, recommendation=$6,
	    requires_human=$7, reasoning=$8, failed_stage=$9, updated_at=$10
	WHERE id=$1 AND status='pending'`
	tag, err := r.Pool.Exec(ctx, q, s.ID, string(s.Status), s.CandidateName,
		r0.score, r0.confidence, r0.recommendation, r0.human, r0.reasoning,
		string(s.FailedStage), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=screening.finish: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.Get(ctx, s.ID); err != nil {
		return fmt.Errorf("op=screening.finish: %w", err)
	}
	return fmt.Errorf("op=screening.finish: %w: screening %s is not pending", domain.ErrConflict, s.ID)
}

// ListStalePending returns up to limit pending screenings created before cutoff, oldest first.
func (r *ScreeningRepo) ListStalePending(ctx domain.Context, cutoff time.Time, limit int) ([]domain.Screening, error) {
	ctx, span := startSpan(ctx, "screenings.ListStalePending", "SELECT", "screenings")
	defer span.End()
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+screeningColumns+` FROM screenings
	WHERE status='pending' AND created_at < $1 ORDER BY created_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("op=screening.list_stale: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Screening, 0)
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("op=screening.list_stale: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=screening.list_stale: %w", err)
	}
	return out, nil
}

// Delete removes one screening.
func (r *ScreeningRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "screenings.Delete", "DELETE", "screenings")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("op=screening.delete: %w", domain.ErrNotFound)
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM screenings WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=screening.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=screening.delete: %w", domain.ErrNotFound)
	}
	return nil
}

type resultRow struct {
	score, confidence *float64
	recommendation    *string
	human             *bool
	reasoning         *string
}

func resultColumns(res *domain.ScreeningResult) resultRow {
	if res == nil {
		return resultRow{}
	}
	rec := string(res.Recommendation)
	return resultRow{
		score:          &res.MatchScore,
		confidence:     &res.Confidence,
		recommendation: &rec,
		human:          &res.RequiresHuman,
		reasoning:      &res.Reasoning,
	}
}

func scanScreening(row pgx.Row) (domain.Screening, error) {
	var (
		s           domain.Screening
		status      string
		failedStage string
		rr          resultRow
	)
	if err := row.Scan(&s.ID, &s.JobID, &s.ResumeName, &s.CandidateName, &status,
		&rr.score, &rr.confidence, &rr.recommendation, &rr.human, &rr.reasoning,
		&failedStage, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.Screening{}, err
	}
	s.Status = domain.ScreeningStatus(status)
	s.FailedStage = domain.Stage(failedStage)
	if rr.recommendation != nil {
		res := domain.ScreeningResult{Recommendation: domain.Recommendation(*rr.recommendation)}
		if rr.score != nil {
			res.MatchScore = *rr.score
		}
		if rr.confidence != nil {
			res.Confidence = *rr.confidence
		}
		if rr.human != nil {
			res.RequiresHuman = *rr.human
		}
		if rr.reasoning != nil {
			res.Reasoning = *rr.reasoning
		}
		s.Result = &res
	}
	return s, nil
}
