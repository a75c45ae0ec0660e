package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/sift/internal/domain"
)

var tracer = otel.Tracer("repo.postgres")

func startSpan(ctx domain.Context, name, op, table string) (domain.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", table),
	))
}

// JobRepo persists and loads job postings.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

// Create inserts a new job and returns its id (generated when empty).
func (r *JobRepo) Create(ctx domain.Context, j domain.Job) (string, error) {
	ctx, span := startSpan(ctx, "jobs.Create", "INSERT", "jobs")
	defer span.End()
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	created := j.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := `INSERT INTO jobs (id, title, description, created_at) VALUES ($1,$2,$3,$4)`
	if _, err := r.Pool.Exec(ctx, q, id, j.Title, j.Description, created); err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	return id, nil
}

// Get loads a job by id.
func (r *JobRepo) Get(ctx domain.Context, id string) (domain.Job, error) {
	ctx, span := startSpan(ctx, "jobs.Get", "SELECT", "jobs")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return domain.Job{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
	}
	q := `SELECT id, title, description, created_at FROM jobs WHERE id=$1`
	var j domain.Job
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&j.ID, &j.Title, &j.Description, &j.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
		}
		return domain.Job{}, fmt.Errorf("op=job.get: %w", err)
	}
	return j, nil
}

// List returns the most recent jobs first.
func (r *JobRepo) List(ctx domain.Context, limit int) ([]domain.Job, error) {
	ctx, span := startSpan(ctx, "jobs.List", "SELECT", "jobs")
	defer span.End()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, title, description, created_at FROM jobs ORDER BY created_at DESC LIMIT $1`
	rows, err := r.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0)
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Description, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=job.list: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	return jobs, nil
}

// Delete removes a job; its screenings go with it through the foreign key.
func (r *JobRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "jobs.Delete", "DELETE", "jobs")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("op=job.delete: %w", domain.ErrNotFound)
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM jobs WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=job.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=job.delete: %w", domain.ErrNotFound)
	}
	return nil
}
