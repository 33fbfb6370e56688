package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Input is either a caller supplied file or the output of a prior stage.
type Input struct {
	path  string
	stage *Stage
}

func FromFile(path string) Input {
	return Input{path: path}
}

func FromStage(stage *Stage) Input {
	return Input{stage: stage}
}

// Output is either a caller supplied path or a temporary file allocated from the scope.
type Output struct {
	path      string
	extension string
	temp      bool
	options   []string
}

func ToFile(path string, options ...string) Output {
	return Output{path: path, options: options}
}

func ToTemp(extension string, options ...string) Output {
	return Output{extension: extension, temp: true, options: options}
}

type state int

const (
	pending state = iota
	succeeded
	failed
)

func (s state) String() string {
	switch s {
	case succeeded:
		return "succeeded"
	case failed:
		return "failed"
	default:
		return "pending"
	}
}

// Stage is a single invocation of the external tool.
type Stage struct {
	name          string
	binary        string
	args          []domain.Arg
	scope         *Scope
	input         Input
	output        string
	outputOptions []string
	callerOutput  bool
	removeInput   bool
	state         state
	result        domain.ExecutionResult
}

func NewStage(name, binary string, args []domain.Arg) *Stage {
	return &Stage{name: name, binary: binary, args: args}
}

func (s *Stage) Name() string {
	return s.name
}

// SetIO wires the stage's input and resolves its output to a concrete path. A temporary
// output is bound to scope; a stage input is always removed once this stage has run.
func (s *Stage) SetIO(scope *Scope, in Input, out Output) error {
	s.scope = scope
	s.input = in
	s.removeInput = in.stage != nil
	s.outputOptions = out.options

	if !out.temp {
		s.output = out.path
		s.callerOutput = true
		return nil
	}

	path, err := scope.Allocate(out.extension)
	if err != nil {
		return fmt.Errorf("stage %s: %w", s.name, err)
	}

	s.output = path

	return nil
}

func (s *Stage) Output() string {
	return s.output
}

func (s *Stage) Result() domain.ExecutionResult {
	return s.result
}

func (s *Stage) inputPath() (string, error) {
	if s.input.stage == nil {
		return s.input.path, nil
	}

	if s.input.stage.state != succeeded {
		return "", fmt.Errorf("%w: stage %s reads from stage %s which is %s",
			domain.ErrInvalidPipelineState, s.name, s.input.stage.name, s.input.stage.state)
	}

	return s.input.stage.output, nil
}

// Command builds the argument vector for the stage. Values are never quoted or passed
// through a shell, so each flag reaches the tool as exactly one token.
func (s *Stage) Command() ([]string, error) {
	if s.output == "" {
		return nil, fmt.Errorf("%w: stage %s has no output", domain.ErrInvalidPipelineState, s.name)
	}

	in, err := s.inputPath()
	if err != nil {
		return nil, err
	}

	cmd := make([]string, 0, len(s.args)+4)
	cmd = append(cmd, s.binary, in)
	cmd = append(cmd, FlattenArgs(s.args)...)
	cmd = append(cmd, "-o", s.outputToken())

	return cmd, nil
}

func (s *Stage) outputToken() string {
	if len(s.outputOptions) == 0 {
		return s.output
	}

	return fmt.Sprintf("%s[%s]", s.output, strings.Join(s.outputOptions, ","))
}

// FlattenArgs renders args as "--name" or "--name=value" tokens, preserving order.
func FlattenArgs(args []domain.Arg) []string {
	tokens := make([]string, 0, len(args))
	for _, arg := range args {
		token := "--" + arg.Name
		if arg.Value != "" {
			token += "=" + arg.Value
		}
		tokens = append(tokens, token)
	}

	return tokens
}

// Execute runs the stage to completion. A failed run removes whatever was written to the
// output path; a consumed intermediate input is removed in every case.
func (s *Stage) Execute(ctx context.Context, runner port.Runner, env map[string]string, limits domain.Limits) error {
	if s.state != pending {
		return fmt.Errorf("%w: stage %s already %s", domain.ErrInvalidPipelineState, s.name, s.state)
	}

	tokens, err := s.Command()
	if err != nil {
		log.Error().Err(err).Str("stage", s.name).Msg("cannot build stage command")
		return err
	}

	l := log.With().Str("stage", s.name).Logger()
	l.Debug().Strs("command", tokens).Msg("running stage")

	// A caller-supplied output must come from this run, never from an earlier one.
	if s.callerOutput {
		s.scope.Discard(s.output)
	}

	limits.WatchPath = s.output
	res, runErr := runner.Run(ctx, domain.Invocation{Tokens: tokens, Env: env, Limits: limits})
	s.result = res

	if s.removeInput {
		s.scope.Discard(tokens[1])
	}

	if runErr == nil && res.Succeeded() {
		s.state = succeeded
		l.Debug().Msg("stage finished")
		return nil
	}

	s.state = failed
	s.scope.Discard(s.output)

	if runErr != nil {
		if errors.Is(runErr, domain.ErrCancelled) {
			l.Warn().Err(runErr).Msg("stage cancelled")
			return fmt.Errorf("stage %s: %w", s.name, runErr)
		}

		l.Error().Err(runErr).Msg("stage could not run")
		return &domain.ToolError{Stage: s.name, ExitCode: res.ExitCode, Output: runErr.Error()}
	}

	l.Error().Int("exitCode", res.ExitCode).Str("output", res.CombinedOutput).Msg("stage failed")

	return &domain.ToolError{Stage: s.name, ExitCode: res.ExitCode, Output: res.CombinedOutput}
}
