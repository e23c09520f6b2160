package core

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an error originated from, so callers can
// tell "no answer available" apart from "service unavailable".
type Stage string

const (
	StageEmbed    Stage = "embed"
	StageRetrieve Stage = "retrieve"
	StageCompose  Stage = "compose"
	StageGenerate Stage = "generate"
	StageIngest   Stage = "ingest"
)

// ErrorKind is the failure taxonomy shared across the pipeline.
type ErrorKind string

const (
	KindEmbeddingUnavailable ErrorKind = "embedding_unavailable"
	KindIndexUnavailable     ErrorKind = "index_unavailable"
	KindGenerationFailed     ErrorKind = "generation_failed"
	KindBudgetExceeded       ErrorKind = "budget_exceeded"
	KindInvalidQuery         ErrorKind = "invalid_query"
)

// PipelineError tags a failure with its kind, originating stage, and
// whether a retry could plausibly succeed.
type PipelineError struct {
	Kind      ErrorKind
	Stage     Stage
	Transient bool
	Err       error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at stage %s: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s at stage %s", e.Kind, e.Stage)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches on Kind so sentinel comparisons like
// errors.Is(err, core.ErrGenerationFailed) work regardless of stage.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrEmbeddingUnavailable = &PipelineError{Kind: KindEmbeddingUnavailable}
	ErrIndexUnavailable     = &PipelineError{Kind: KindIndexUnavailable}
	ErrGenerationFailed     = &PipelineError{Kind: KindGenerationFailed}
	ErrBudgetExceeded       = &PipelineError{Kind: KindBudgetExceeded}
	ErrInvalidQuery         = &PipelineError{Kind: KindInvalidQuery}
)

// NewPipelineError builds a tagged, permanent error.
func NewPipelineError(kind ErrorKind, stage Stage, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// NewTransientError builds a tagged error a single retry may clear.
func NewTransientError(kind ErrorKind, stage Stage, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Transient: true, Err: err}
}

// IsTransient reports whether err is a pipeline error marked transient.
func IsTransient(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

// StageOf returns the originating stage, or "" for untagged errors.
func StageOf(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

// KindOf returns the error kind, or "" for untagged errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
