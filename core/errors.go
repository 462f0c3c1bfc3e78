package core

import (
	"errors"
	"fmt"
)

// Error kinds reported at the pipeline boundary.
var (
	ErrFetchFailure         = errors.New("fetch failed")
	ErrNoExtractorMatched   = errors.New("no extractor matched")
	ErrExtractionFailure    = errors.New("extraction failed")
	ErrNoProvidersAvailable = errors.New("no providers available")
	ErrConversionFailure    = errors.New("conversion failed")
	ErrInvalidInput         = errors.New("invalid input")
)

// Pipeline stages.
const (
	StageInput      = "input"
	StageFetch      = "fetch"
	StageExtraction = "extraction"
	StageConversion = "conversion"
)

// StageError identifies which stage of a pipeline run gave up.
// errors.Is matches both the kind and the wrapped cause.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

// NewStageError wraps err as a failure of kind in stage.
func NewStageError(stage string, kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
