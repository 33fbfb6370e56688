package port

import (
	"context"
	"vipsscaler/internal/core/domain"
)

type Transformer interface {
	// Transform scales the source described by params and returns the path of the result. On success the caller
	// owns the returned file and must remove it once consumed.
	Transform(ctx context.Context, params domain.ScalerParameters) (string, error)
}
