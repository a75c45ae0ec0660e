// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/sift/internal/domain"
)

// MaxJobTitleLen bounds job titles in characters.
const MaxJobTitleLen = 200

// JobService manages job postings.
type JobService struct {
	Jobs domain.JobRepository
}

// NewJobService constructs a JobService.
func NewJobService(j domain.JobRepository) JobService { return JobService{Jobs: j} }

// Create validates and stores a job.
func (s JobService) Create(ctx domain.Context, title, description string) (domain.Job, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if n := utf8.RuneCountInString(title); n == 0 || n > MaxJobTitleLen {
		return domain.Job{}, fmt.Errorf("%w: title must be 1..%d characters", domain.ErrInvalidArgument, MaxJobTitleLen)
	}
	if description == "" {
		return domain.Job{}, fmt.Errorf("%w: description required", domain.ErrInvalidArgument)
	}
	j := domain.Job{Title: title, Description: description, CreatedAt: time.Now().UTC()}
	id, err := s.Jobs.Create(ctx, j)
	if err != nil {
		return domain.Job{}, err
	}
	j.ID = id
	return j, nil
}

// Get loads one job.
func (s JobService) Get(ctx domain.Context, id string) (domain.Job, error) {
	return s.Jobs.Get(ctx, id)
}

// List returns up to limit jobs, newest first.
func (s JobService) List(ctx domain.Context, limit int) ([]domain.Job, error) {
	return s.Jobs.List(ctx, limit)
}

// Delete removes a job and its screenings.
func (s JobService) Delete(ctx domain.Context, id string) error {
	return s.Jobs.Delete(ctx, id)
}
