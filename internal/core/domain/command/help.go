package command

import (
	"context"
	"strings"
	"time"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

type Help struct {
	registry   port.CommandRegistry
	textSender port.TextSender
	command    string
}

func NewHelp(registry port.CommandRegistry, textSender port.TextSender, command string) *Help {
	return &Help{registry: registry, textSender: textSender, command: command}
}

func (h *Help) GetCommand() string {
	return h.command
}

func (h *Help) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	log.Info().
		Int64("chatId", message.ChatID).
		Str("username", message.Username).
		Str("command", h.GetCommand()).
		Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	go h.textSender.SendChatAction(ctx, message.ChatID, domain.Typing)

	text := "Available commands: " + strings.Join(h.registry.ListCommands(), ", ") +
		"\nReply to a photo with /thumb <width> to get a vipsthumbnail rendition."

	_, err := h.textSender.SendMessageReply(ctx, message, text)

	return err
}
