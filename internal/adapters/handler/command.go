package handler

import (
	"context"
	"fmt"
	"sync"
	"time"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/domain/command"
	"vipsscaler/internal/core/port"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// FileResolver is the part of *bot.Bot needed to turn a photo into a download URL.
type FileResolver interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type Command struct {
	commandRegistry port.CommandRegistry
	files           FileResolver
	timeout         time.Duration
	inflight        sync.WaitGroup
}

func NewCommand(commandRegistry port.CommandRegistry, files FileResolver, timeout time.Duration) *Command {
	return &Command{commandRegistry: commandRegistry, files: files, timeout: timeout}
}

// Handle matches bot.HandlerFunc. Responding happens in the background so the
// update loop is never blocked by a running thumbnailer. Responders stop when ctx is
// done, Wait blocks until they have.
func (c *Command) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		log.Debug().Msg("update without message")
		return
	}

	msg := update.Message

	text := msg.Text
	if len(msg.Photo) > 0 {
		text = msg.Caption
	}

	log.Debug().Str("message", text).Msg("received command")

	cmd := command.ParseCommand(text)
	commandHandler, err := c.commandRegistry.Get(cmd)
	if err != nil {
		log.Debug().Str("command", cmd).Err(err).Msg("no handler for command")
		return
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		message := &domain.Message{
			ID:       msg.ID,
			ChatID:   msg.Chat.ID,
			Username: getUserNameFromMessage(msg.From),
			Text:     text,
		}

		if photo, ok := findPhoto(msg); ok {
			url, err := c.resolve(ctx, photo)
			if err != nil {
				log.Error().Err(err).Msg("error getting file from telegram api")
			} else {
				message.ImageURL = url
				message.ImageWidth = photo.Width
				message.ImageHeight = photo.Height
			}
		}

		err := commandHandler.Respond(ctx, c.timeout, message)
		if err != nil {
			log.Err(err).Str("command", cmd).Msg("failed to respond to command")
		}
	}()
}

// Wait blocks until every responder started by Handle has returned.
func (c *Command) Wait() {
	c.inflight.Wait()
}

func (c *Command) resolve(ctx context.Context, photo models.PhotoSize) (string, error) {
	f, err := c.files.GetFile(ctx, &bot.GetFileParams{FileID: photo.FileID})
	if err != nil {
		return "", fmt.Errorf("resolving file %s: %w", photo.FileID, err)
	}

	return c.files.FileDownloadLink(f), nil
}

// findPhoto prefers a photo attached to the message itself over one in the message it replies to.
func findPhoto(msg *models.Message) (models.PhotoSize, bool) {
	photos := msg.Photo
	if len(photos) == 0 && msg.ReplyToMessage != nil {
		photos = msg.ReplyToMessage.Photo
	}

	if len(photos) == 0 {
		return models.PhotoSize{}, false
	}

	return findLargestImage(photos), true
}

// findLargestImage returns the widest rendition so there is room to downscale.
func findLargestImage(photos []models.PhotoSize) models.PhotoSize {
	largest := photos[0]
	for _, photo := range photos[1:] {
		if photo.Width > largest.Width {
			largest = photo
		}
	}

	return largest
}

func getUserNameFromMessage(user *models.User) string {
	if user == nil {
		return ""
	}

	if user.Username == "" {
		return user.FirstName
	}

	return "@" + user.Username
}
