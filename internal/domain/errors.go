package domain

import (
	"errors"
	"fmt"
)

// Stage names one step of the screening pipeline.
type Stage string

const (
	StageProfile      Stage = "profile"
	StageRequirements Stage = "requirements"
	StageMatch        Stage = "match"
	StageDecision     Stage = "decision"
)

// FailureKind classifies a stage failure.
type FailureKind string

const (
	ExtractionFailure FailureKind = "ExtractionFailure"
	MatchFailure      FailureKind = "MatchFailure"
	ReasoningFailure  FailureKind = "ReasoningFailure"
)

// Pipeline failure sentinels, matched with errors.Is.
var (
	ErrExtraction = errors.New("extraction failure")
	ErrMatch      = errors.New("match failure")
	ErrReasoning  = errors.New("reasoning failure")
	ErrUpstream   = errors.New("upstream capability failure")
)

// StageError is raised by a pipeline stage. Err holds the cause, which is an
// *UpstreamError when the generator itself failed.
type StageError struct {
	Kind  FailureKind
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s in %s stage: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

func (k FailureKind) sentinel() error {
	switch k {
	case ExtractionFailure:
		return ErrExtraction
	case MatchFailure:
		return ErrMatch
	case ReasoningFailure:
		return ErrReasoning
	default:
		return ErrInternal
	}
}

// NewExtractionFailure wraps err as an extraction failure of stage.
func NewExtractionFailure(stage Stage, err error) error {
	return &StageError{Kind: ExtractionFailure, Stage: stage, Err: err}
}

// NewMatchFailure wraps err as a matcher failure.
func NewMatchFailure(err error) error {
	return &StageError{Kind: MatchFailure, Stage: StageMatch, Err: err}
}

// NewReasoningFailure wraps err as a reasoning failure.
func NewReasoningFailure(err error) error {
	return &StageError{Kind: ReasoningFailure, Stage: StageDecision, Err: err}
}

// UpstreamError reports that the generation capability errored or timed out.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("upstream capability failure: %v", e.Err)
	}
	return fmt.Sprintf("upstream capability failure (%s): %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// NewUpstreamError wraps err unless it already is an upstream failure.
func NewUpstreamError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Provider: provider, Err: err}
}

// StageOf returns the stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// KindOf returns the failure kind recorded in err, if any.
func KindOf(err error) (FailureKind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
