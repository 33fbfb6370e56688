package domain

import (
	"errors"
	"fmt"
)

var (
	ErrResourceUnavailable  = errors.New("resource unavailable")
	ErrInvalidPipelineState = errors.New("invalid pipeline state")
	ErrExternalToolFailure  = errors.New("external tool failure")
	ErrCancelled            = errors.New("cancelled")
	ErrEmptyOutput          = errors.New("tool produced no output")

	ErrSendingReplyFailed = errors.New("failed to send reply")
	ErrInvalidWidth       = errors.New("invalid width")
	ErrMissingImage       = errors.New("missing image")
)

// ToolError describes a stage whose process exited non-zero, was killed, or exited
// cleanly without producing output. Err holds the reason when the exit code alone
// does not explain the failure.
type ToolError struct {
	Stage    string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}

	return fmt.Sprintf("stage %s exited with code %d", e.Stage, e.ExitCode)
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalToolFailure}
	}

	return []error{ErrExternalToolFailure, e.Err}
}

// Cancelled wraps a context error so that it matches both ErrCancelled and the original cause.
func Cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
