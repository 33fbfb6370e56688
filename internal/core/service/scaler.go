package service

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/pipeline"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

type ScalerConfig struct {
	Binary          string
	Environment     map[string]string
	Limits          domain.Limits
	Timeout         time.Duration
	CommentArgument string
	Formats         map[string]domain.Format
}

// Scaler turns ScalerParameters into a chain of vipsthumbnail invocations and owns the
// cleanup of everything the chain allocates.
type Scaler struct {
	store  port.FileStore
	runner port.Runner
	config ScalerConfig
}

func NewScaler(store port.FileStore, runner port.Runner, config ScalerConfig) *Scaler {
	return &Scaler{store: store, runner: runner, config: config}
}

func (s *Scaler) Transform(ctx context.Context, params domain.ScalerParameters) (string, error) {
	l := log.With().
		Str("src", params.SrcPath).
		Str("mimeType", params.MimeType).
		Str("size", params.PhysicalDimensions()).
		Logger()

	if err := s.checkParams(params); err != nil {
		l.Error().Err(err).Msg("refusing to build pipeline")
		return "", err
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	scope := pipeline.NewScope(s.store)
	defer scope.Close()

	chain, err := s.buildChain(scope, params)
	if err != nil {
		l.Error().Err(err).Msg("failed to build pipeline")
		return "", fmt.Errorf("building pipeline: %w", err)
	}

	l.Debug().Int("stages", chain.Len()).Msg("executing pipeline")

	out, err := chain.Run(ctx)
	if err != nil {
		l.Error().Err(err).Msg("transform failed")
		return "", fmt.Errorf("transform %s: %w", params.SrcPath, err)
	}

	scope.Release(out)

	l.Info().Str("dst", out).Msg("transform finished")

	return out, nil
}

func (s *Scaler) checkParams(params domain.ScalerParameters) error {
	switch {
	case s.config.Binary == "":
		return fmt.Errorf("%w: no scaler binary configured", domain.ErrInvalidPipelineState)
	case params.SrcPath == "":
		return fmt.Errorf("%w: missing source path", domain.ErrInvalidPipelineState)
	case params.PhysicalWidth <= 0 || params.PhysicalHeight <= 0:
		return fmt.Errorf("%w: missing physical dimensions", domain.ErrInvalidPipelineState)
	}

	return nil
}

func (s *Scaler) buildChain(scope *pipeline.Scope, params domain.ScalerParameters) (*pipeline.Chain, error) {
	format := s.config.Formats[params.MimeType]
	size := domain.Arg{Name: "size", Value: params.PhysicalDimensions()}

	args := append([]domain.Arg{size}, format.Arguments...)
	if s.config.CommentArgument != "" && params.Comment != "" {
		args = append(args, domain.Arg{Name: s.config.CommentArgument, Value: params.Comment})
	}

	options := slices.Clone(format.OutputOptions)
	if params.Interlace {
		options = append(options, "interlace")
	}

	final := pipeline.ToFile(params.DstPath, options...)
	if params.DstPath == "" {
		final = pipeline.ToTemp(outputExtension(params), options...)
	}

	chain := pipeline.NewChain(s.runner, s.store, s.config.Environment, s.config.Limits)
	input := pipeline.FromFile(params.SrcPath)

	if format.Intermediate != "" {
		shrink := pipeline.NewStage("shrink", s.config.Binary, []domain.Arg{size})
		if err := shrink.SetIO(scope, input, pipeline.ToTemp(format.Intermediate)); err != nil {
			return nil, err
		}

		chain.Add(shrink)
		input = pipeline.FromStage(shrink)
	}

	thumbnail := pipeline.NewStage("thumbnail", s.config.Binary, args)
	if err := thumbnail.SetIO(scope, input, final); err != nil {
		return nil, err
	}

	return chain.Add(thumbnail), nil
}

func outputExtension(params domain.ScalerParameters) string {
	if ext := filepath.Ext(params.SrcPath); ext != "" {
		return ext
	}

	return domain.ExtensionForMime(params.MimeType)
}
