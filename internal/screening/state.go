package screening

import "github.com/fairyhunter13/sift/internal/domain"

// PipelineState is the value threaded through one screening run. Each With*
// method returns a copy with one more field set; set fields are never
// overwritten, so concurrent stages can each hold their own copy.
type PipelineState struct {
	resumeText   string
	jobText      string
	profile      *domain.CandidateProfile
	requirements *domain.JobRequirements
	match        *domain.MatchDetails
	result       *domain.ScreeningResult
}

// NewState starts a run for one resume and one job description.
func NewState(resumeText, jobText string) PipelineState {
	return PipelineState{resumeText: resumeText, jobText: jobText}
}

func (s PipelineState) ResumeText() string { return s.resumeText }
func (s PipelineState) JobText() string    { return s.jobText }

func (s PipelineState) Profile() (domain.CandidateProfile, bool) {
	if s.profile == nil {
		return domain.CandidateProfile{}, false
	}
	return *s.profile, true
}

func (s PipelineState) Requirements() (domain.JobRequirements, bool) {
	if s.requirements == nil {
		return domain.JobRequirements{}, false
	}
	return *s.requirements, true
}

func (s PipelineState) Match() (domain.MatchDetails, bool) {
	if s.match == nil {
		return domain.MatchDetails{}, false
	}
	return *s.match, true
}

func (s PipelineState) Result() (domain.ScreeningResult, bool) {
	if s.result == nil {
		return domain.ScreeningResult{}, false
	}
	return *s.result, true
}

func (s PipelineState) WithProfile(p domain.CandidateProfile) PipelineState {
	if s.profile != nil {
		return s
	}
	s.profile = &p
	return s
}

func (s PipelineState) WithRequirements(r domain.JobRequirements) PipelineState {
	if s.requirements != nil {
		return s
	}
	s.requirements = &r
	return s
}

func (s PipelineState) WithMatch(m domain.MatchDetails) PipelineState {
	if s.match != nil {
		return s
	}
	s.match = &m
	return s
}

func (s PipelineState) WithResult(r domain.ScreeningResult) PipelineState {
	if s.result != nil {
		return s
	}
	s.result = &r
	return s
}
