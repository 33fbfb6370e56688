package service

import (
	"context"
	"fmt"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

// ChatAuthorizer only lets allowlisted chats request thumbnails. An empty allowlist
// disables the front-end for everyone.
type ChatAuthorizer struct {
	allowlist map[int64]bool
	admin     string
	sender    port.TextSender
}

func NewChatAuthorizer(allowed []int64, admin string, sender port.TextSender) *ChatAuthorizer {
	allowlist := make(map[int64]bool, len(allowed))
	for _, id := range allowed {
		allowlist[id] = true
	}

	return &ChatAuthorizer{allowlist: allowlist, admin: admin, sender: sender}
}

const forbidden = "Thumbnail testing is not enabled for this chat. Ask @%s to allow ID %d."

func (a *ChatAuthorizer) IsAuthorized(ctx context.Context, message *domain.Message) bool {
	if a.allowlist[message.ChatID] {
		return true
	}

	log.Info().Int64("chatId", message.ChatID).Str("username", message.Username).
		Msg("rejecting unauthorized chat")

	_, err := a.sender.SendMessageReply(ctx, message, fmt.Sprintf(forbidden, a.admin, message.ChatID))
	if err != nil {
		log.Err(err).Msg("failed to send unauthorized warning")
	}

	return false
}
