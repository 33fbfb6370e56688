package port

import (
	"context"
	"vipsscaler/internal/core/domain"
)

type Authorizer interface {
	// IsAuthorized reports whether the sender of message may use the bot, notifying them if not.
	IsAuthorized(ctx context.Context, message *domain.Message) bool
}
