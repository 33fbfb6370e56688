package port

import (
	"context"
	"vipsscaler/internal/core/domain"
)

type Runner interface {
	// Run executes inv as a child process and blocks until it exits. A non-zero exit is reported through the
	// result, errors are reserved for processes that could not be started or were cancelled.
	Run(ctx context.Context, inv domain.Invocation) (domain.ExecutionResult, error)
}
