package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fairyhunter13/sift/internal/domain"
)

// ResultView is the JSON form of a ScreeningResult.
type ResultView struct {
	MatchScore     float64 `json:"matchScore"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
	RequiresHuman  bool    `json:"requiresHuman"`
	Reasoning      string  `json:"reasoning"`
}

// NewResultView converts r.
func NewResultView(r domain.ScreeningResult) ResultView {
	return ResultView{
		MatchScore:     r.MatchScore,
		Confidence:     r.Confidence,
		Recommendation: string(r.Recommendation),
		RequiresHuman:  r.RequiresHuman,
		Reasoning:      r.Reasoning,
	}
}

// ReportView is one entry of a synchronous screening response.
type ReportView struct {
	ResumeName    string `json:"resumeName"`
	CandidateName string `json:"candidateName,omitempty"`
	ResultView
	FailedStage string `json:"failedStage,omitempty"`
}

// NewReportView converts r.
func NewReportView(r domain.ScreeningReport) ReportView {
	return ReportView{
		ResumeName:    r.ResumeName,
		CandidateName: r.CandidateName,
		ResultView:    NewResultView(r.Result),
		FailedStage:   string(r.FailedStage),
	}
}

// ScreeningView is the JSON form of a stored screening.
type ScreeningView struct {
	ID            string      `json:"id"`
	JobID         string      `json:"jobId"`
	ResumeName    string      `json:"resumeName"`
	CandidateName string      `json:"candidateName,omitempty"`
	Status        string      `json:"status"`
	Result        *ResultView `json:"result,omitempty"`
	FailedStage   string      `json:"failedStage,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// NewScreeningView converts s.
func NewScreeningView(s domain.Screening) ScreeningView {
	v := ScreeningView{
		ID:            s.ID,
		JobID:         s.JobID,
		ResumeName:    s.ResumeName,
		CandidateName: s.CandidateName,
		Status:        string(s.Status),
		FailedStage:   string(s.FailedStage),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Result != nil {
		rv := NewResultView(*s.Result)
		v.Result = &rv
	}
	return v
}

// JobView is the JSON form of a job.
type JobView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewJobView converts j.
func NewJobView(j domain.Job) JobView {
	return JobView{ID: j.ID, Title: j.Title, Description: j.Description, CreatedAt: j.CreatedAt}
}

// makeETag hashes the JSON encoding of v into a strong quoted ETag.
func makeETag(v any) string {
	b, _ := json.Marshal(v)
	s := sha256.Sum256(b)
	return `"` + hex.EncodeToString(s[:16]) + `"`
}
