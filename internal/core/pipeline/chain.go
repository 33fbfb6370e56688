package pipeline

import (
	"context"
	"fmt"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Chain runs stages strictly in order. A stage only starts once the previous one has
// exited and left a non-empty output behind.
type Chain struct {
	runner port.Runner
	store  port.FileStore
	env    map[string]string
	limits domain.Limits
	stages []*Stage
}

func NewChain(runner port.Runner, store port.FileStore, env map[string]string, limits domain.Limits) *Chain {
	return &Chain{runner: runner, store: store, env: env, limits: limits}
}

func (c *Chain) Add(stages ...*Stage) *Chain {
	c.stages = append(c.stages, stages...)
	return c
}

func (c *Chain) Len() int {
	return len(c.stages)
}

// Run executes the chain and returns the output path of the last stage. The first
// failing stage aborts the chain.
func (c *Chain) Run(ctx context.Context) (string, error) {
	if len(c.stages) == 0 {
		return "", fmt.Errorf("%w: empty chain", domain.ErrInvalidPipelineState)
	}

	for i, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Str("stage", stage.Name()).Msg("chain cancelled before stage")
			return "", fmt.Errorf("before stage %s: %w", stage.Name(), domain.Cancelled(err))
		}

		log.Debug().Int("index", i).Int("stages", len(c.stages)).Str("stage", stage.Name()).Msg("executing stage")

		if err := stage.Execute(ctx, c.runner, c.env, c.limits); err != nil {
			return "", err
		}

		if err := c.verifyOutput(stage); err != nil {
			return "", err
		}
	}

	return c.stages[len(c.stages)-1].Output(), nil
}

func (c *Chain) verifyOutput(stage *Stage) error {
	size, err := c.store.Size(stage.Output())
	if err == nil && size > 0 {
		return nil
	}

	stage.state = failed
	stage.scope.Discard(stage.Output())

	reason := domain.ErrEmptyOutput
	if err != nil {
		reason = fmt.Errorf("%w: %w", domain.ErrEmptyOutput, err)
	}

	log.Error().Err(reason).Str("stage", stage.Name()).Str("path", stage.Output()).
		Int("exitCode", stage.Result().ExitCode).Msg("stage left no output behind")

	return &domain.ToolError{
		Stage:    stage.Name(),
		ExitCode: stage.Result().ExitCode,
		Output:   stage.Result().CombinedOutput,
		Err:      reason,
	}
}
