package errors

import (
	stderrors "errors"
	"fmt"
)

// Stage identifies the pipeline step a ProcessingError originated from
type Stage int

const (
	StageUnknown Stage = iota
	StageValidation
	StageExtraction
	StageRendering
	StageSerialization
)

// String returns the lowercase stage tag used in logs and tool output
func (s Stage) String() string {
	switch s {
	case StageValidation:
		return "validation"
	case StageExtraction:
		return "extraction"
	case StageRendering:
		return "rendering"
	case StageSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// ProcessingError is the single domain error surfaced to callers when a
// document could not be sanitized. The original document is never modified.
type ProcessingError struct {
	Stage      Stage  `json:"stage"`
	Message    string `json:"message"`
	PageNumber int    `json:"page_number,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	msg := e.Message
	if e.PageNumber > 0 {
		msg = fmt.Sprintf("%s (page %d)", msg, e.PageNumber)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, msg)
}

// Unwrap exposes the collaborator error
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// New creates a ProcessingError without an underlying cause
func New(stage Stage, message string) *ProcessingError {
	return &ProcessingError{Stage: stage, Message: message}
}

// Wrap wraps err into a ProcessingError for the given stage. An error that is
// already a ProcessingError is returned unchanged so the original stage wins.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return err
	}
	return &ProcessingError{Stage: stage, Message: stage.String() + " failed", Err: err}
}

// Wrapf wraps err with a formatted message
func Wrapf(stage Stage, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return err
	}
	return &ProcessingError{Stage: stage, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithPage attaches the 1-based page number the error relates to
func (e *ProcessingError) WithPage(pageNumber int) *ProcessingError {
	e.PageNumber = pageNumber
	return e
}

// StageOf returns the stage of the first ProcessingError in err's chain
func StageOf(err error) Stage {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Stage
	}
	return StageUnknown
}

// IsStage reports whether err carries a ProcessingError for stage
func IsStage(err error, stage Stage) bool {
	return err != nil && StageOf(err) == stage
}

// WrapPage wraps err for a specific 1-based page. Existing ProcessingErrors
// are returned unchanged.
func WrapPage(stage Stage, pageNumber int, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return err
	}
	return &ProcessingError{
		Stage:      stage,
		Message:    fmt.Sprintf(format, args...),
		PageNumber: pageNumber,
		Err:        err,
	}
}
