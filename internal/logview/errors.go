package logview

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by sources when the job id no longer resolves.
var ErrNotFound = errors.New("job not found")

// ErrStale reports that an operation finished after the viewer moved on to a
// newer generation; its result was discarded.
var ErrStale = errors.New("result superseded by newer generation")

// NotFoundError reports that the job backing the viewer is gone.
type NotFoundError struct {
	JobID int64
	Err   error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %d: %v", e.JobID, ErrNotFound)
}

// Unwrap lets errors.Is match ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransientFetchError wraps a network or server failure on count or fetch.
type TransientFetchError struct {
	Op    string
	JobID int64
	Err   error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s logs for job %d: %v", e.Op, e.JobID, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	var tf *TransientFetchError
	return errors.As(err, &tf)
}

func classify(op string, jobID int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{JobID: jobID, Err: err}
	}
	return &TransientFetchError{Op: op, JobID: jobID, Err: err}
}
