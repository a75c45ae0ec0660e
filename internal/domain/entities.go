package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrUnsupportedMedia  = errors.New("unsupported media type")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// CandidateProfile is the structured view of one resume.
type CandidateProfile struct {
	Name              *string
	Skills            []string
	ExperienceSummary string
	EducationSummary  string
}

// DisplayName returns the candidate name or an empty string.
func (p CandidateProfile) DisplayName() string {
	if p.Name == nil {
		return ""
	}
	return *p.Name
}

// JobRequirements is the structured view of one job description.
// IsVague is always the locally computed verdict.
type JobRequirements struct {
	RequiredSkills         []string
	PreferredSkills        []string
	MinimumExperienceYears *int
	RequiredEducation      *string
	IsVague                bool
}

// HasMinimumExperience reports whether a positive years requirement was given.
func (r JobRequirements) HasMinimumExperience() bool {
	return r.MinimumExperienceYears != nil && *r.MinimumExperienceYears > 0
}

// HasMeaningfulEducation reports whether an education requirement was given
// that is not a placeholder for "unspecified".
func (r JobRequirements) HasMeaningfulEducation() bool {
	return IsMeaningfulEducation(r.RequiredEducation)
}

var educationPlaceholders = map[string]struct{}{
	"":              {},
	"not specified": {},
	"unspecified":   {},
	"none":          {},
	"n/a":           {},
	"na":            {},
	"null":          {},
	"not required":  {},
}

// IsMeaningfulEducation reports whether s names an actual education requirement.
func IsMeaningfulEducation(s *string) bool {
	if s == nil {
		return false
	}
	_, placeholder := educationPlaceholders[strings.ToLower(strings.TrimSpace(*s))]
	return !placeholder
}

// MatchDetails is the matcher's verdict. It is taken as given even when
// MatchedRequired and MissingRequired do not partition the required skills.
type MatchDetails struct {
	MatchedRequired     []string
	MissingRequired     []string
	MatchedPreferred    []string
	ExperienceSatisfied bool
	EducationSatisfied  bool
}

// Recommendation is the three-way screening verdict.
type Recommendation string

const (
	RecommendationProceed      Recommendation = "ProceedToInterview"
	RecommendationManualReview Recommendation = "NeedsManualReview"
	RecommendationReject       Recommendation = "Reject"
)

// Label returns the human readable form shown to recruiters.
func (r Recommendation) Label() string {
	switch r {
	case RecommendationProceed:
		return "Proceed to interview"
	case RecommendationManualReview:
		return "Needs manual review"
	case RecommendationReject:
		return "Reject"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known recommendations.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationProceed, RecommendationManualReview, RecommendationReject:
		return true
	}
	return false
}

// ScreeningResult is the terminal artifact of one pipeline run.
type ScreeningResult struct {
	MatchScore     float64
	Confidence     float64
	Recommendation Recommendation
	RequiresHuman  bool
	Reasoning      string
}

// Job is a stored job posting.
type Job struct {
	ID          string
	Title       string
	Description string
	CreatedAt   time.Time
}

type ScreeningStatus string

const (
	ScreeningPending  ScreeningStatus = "pending"
	ScreeningComplete ScreeningStatus = "complete"
	ScreeningError    ScreeningStatus = "error"
)

// Screening is the stored record of one resume screened against one job.
// Result is nil while pending. Error screenings still carry the fallback result.
type Screening struct {
	ID            string
	JobID         string
	ResumeName    string
	CandidateName string
	Status        ScreeningStatus
	Result        *ScreeningResult
	FailedStage   Stage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ResumeDocument is an uploaded resume file.
type ResumeDocument struct {
	Name string
	Data []byte
}

// ScreeningReport is the synchronous answer for one resume.
type ScreeningReport struct {
	ResumeName    string
	CandidateName string
	Result        ScreeningResult
	FailedStage   Stage
}

// ScreeningTask is the queued unit of asynchronous work.
type ScreeningTask struct {
	ScreeningID string `json:"screening_id"`
	JobID       string `json:"job_id"`
	ResumeName  string `json:"resume_name"`
	ResumeText  string `json:"resume_text"`
	RequestID   string `json:"request_id,omitempty"`
}

// Repositories (ports)

type JobRepository interface {
	Create(ctx Context, j Job) (string, error)
	Get(ctx Context, id string) (Job, error)
	List(ctx Context, limit int) ([]Job, error)
	Delete(ctx Context, id string) error
}

type ScreeningRepository interface {
	Create(ctx Context, s Screening) (string, error)
	Get(ctx Context, id string) (Screening, error)
	ListByJob(ctx Context, jobID string) ([]Screening, error)
	// Finish moves a pending screening to complete or error. It returns
	// ErrConflict when the screening is no longer pending.
	Finish(ctx Context, s Screening) error
	// ListStalePending returns pending screenings created before cutoff.
	ListStalePending(ctx Context, cutoff time.Time, limit int) ([]Screening, error)
	Delete(ctx Context, id string) error
}

// Queue (port)

type Queue interface {
	EnqueueScreening(ctx Context, task ScreeningTask) (string, error)
}

// Generator is the text-generation capability used by every content-producing stage.
type Generator interface {
	Generate(ctx Context, prompt string) (string, error)
}

// TextExtractor (port)
// Extract turns an uploaded document into plain text. fileName carries the
// original name so implementations can dispatch on its extension.
type TextExtractor interface {
	Extract(ctx Context, fileName string, data []byte) (string, error)
}

type Context = context.Context
