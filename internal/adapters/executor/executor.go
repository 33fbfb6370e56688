package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"
	"vipsscaler/internal/core/domain"

	"github.com/rs/zerolog/log"
)

const (
	DefaultCaptureLimit = 64 * 1024
	DefaultKillGrace    = 2 * time.Second
	DefaultPollInterval = 50 * time.Millisecond

	// exitLimitExceeded is what a shell reports for a child killed by SIGXFSZ.
	exitLimitExceeded = 153
)

// Runner executes external tools directly, without a shell. Each child runs in its own
// process group so that cancellation and limit violations take down any helpers it spawned.
type Runner struct {
	captureLimit int
	killGrace    time.Duration
}

func NewRunner(captureLimit int, killGrace time.Duration) *Runner {
	if captureLimit <= 0 {
		captureLimit = DefaultCaptureLimit
	}
	if killGrace <= 0 {
		killGrace = DefaultKillGrace
	}

	return &Runner{captureLimit: captureLimit, killGrace: killGrace}
}

func (r *Runner) Run(ctx context.Context, inv domain.Invocation) (domain.ExecutionResult, error) {
	res := domain.ExecutionResult{ExitCode: -1}

	if len(inv.Tokens) == 0 {
		return res, errors.New("empty command")
	}

	if err := ctx.Err(); err != nil {
		return res, domain.Cancelled(err)
	}

	cmd := exec.CommandContext(ctx, inv.Tokens[0], inv.Tokens[1:]...)
	cmd.Env = MergeEnv(os.Environ(), inv.Env)
	cmd.WaitDelay = r.killGrace

	output := newLimitedWriter(r.captureLimit)
	cmd.Stdout = output
	cmd.Stderr = output

	configureProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("starting %s: %w", inv.Tokens[0], err)
	}

	l := log.With().Int("pid", cmd.Process.Pid).Str("binary", inv.Tokens[0]).Logger()

	if inv.Limits.MaxFileSize > 0 {
		if err := applyFileSizeLimit(cmd.Process.Pid, inv.Limits.MaxFileSize); err != nil {
			l.Debug().Err(err).Msg("could not apply file size limit to child")
		}
	}

	var exceeded atomic.Bool
	done := make(chan struct{})
	if inv.Limits.MaxFileSize > 0 && inv.Limits.WatchPath != "" {
		go watchOutput(cmd, inv.Limits, &exceeded, done)
	}

	err := cmd.Wait()
	close(done)

	res.CombinedOutput = output.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		l.Warn().Err(ctxErr).Msg("child terminated by cancellation")
		return res, domain.Cancelled(ctxErr)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		return res, fmt.Errorf("waiting for %s: %w", inv.Tokens[0], err)
	}

	res.ExitCode = exitCode(cmd.ProcessState)

	if overLimit(inv.Limits) {
		exceeded.Store(true)
	}

	if exceeded.Load() {
		if res.ExitCode == 0 {
			res.ExitCode = exitLimitExceeded
		}
		res.CombinedOutput += fmt.Sprintf("\noutput exceeded the limit of %d bytes", inv.Limits.MaxFileSize)
	}

	l.Debug().Int("exitCode", res.ExitCode).Msg("child exited")

	return res, nil
}

func overLimit(limits domain.Limits) bool {
	if limits.MaxFileSize <= 0 || limits.WatchPath == "" {
		return false
	}

	stat, err := os.Stat(limits.WatchPath)
	return err == nil && stat.Size() > limits.MaxFileSize
}

func watchOutput(cmd *exec.Cmd, limits domain.Limits, exceeded *atomic.Bool, done <-chan struct{}) {
	interval := limits.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !overLimit(limits) {
				continue
			}

			exceeded.Store(true)
			log.Warn().Str("path", limits.WatchPath).Int64("limit", limits.MaxFileSize).
				Msg("output over size limit, killing child")

			if err := killProcessGroup(cmd); err != nil {
				log.Debug().Err(err).Msg("kill after size violation failed")
			}

			return
		}
	}
}
