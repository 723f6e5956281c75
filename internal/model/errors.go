package model

import (
	"errors"
	"fmt"
)

// Synchronous validation failures. These never change job status.
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotComplete    = errors.New("job not complete")
	ErrInvalidState      = errors.New("invalid job state")
	ErrInvalidRange      = errors.New("preview window outside recording")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrNoTracks          = errors.New("no tracks available for mixing")
	ErrInvalidUpload     = errors.New("invalid upload")
)

// ErrEncodeFailed marks encoder failures. Scoped to a single render
// request; the owning job stays complete.
var ErrEncodeFailed = errors.New("encode failed")

// AnalysisError is an asynchronous adapter failure. It always
// terminates the owning job as failed and is never retried.
type AnalysisError struct {
	Stage string // "separation" or "diarization"
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// NewSeparationError wraps a source-separation failure.
func NewSeparationError(err error) *AnalysisError {
	return &AnalysisError{Stage: "separation", Err: err}
}

// NewDiarizationError wraps a diarization failure.
func NewDiarizationError(err error) *AnalysisError {
	return &AnalysisError{Stage: "diarization", Err: err}
}
