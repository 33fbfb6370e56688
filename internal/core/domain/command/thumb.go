package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Telegram re-encodes every photo as JPEG.
const photoMimeType = "image/jpeg"

type Thumb struct {
	transformer  port.Transformer
	fetcher      port.Fetcher
	store        port.FileStore
	authorizer   port.Authorizer
	textSender   port.TextSender
	imageSender  port.ImageSender
	command      string
	defaultWidth int
}

func NewThumb(transformer port.Transformer, fetcher port.Fetcher, store port.FileStore, authorizer port.Authorizer,
	textSender port.TextSender, imageSender port.ImageSender, command string, defaultWidth int) *Thumb {
	return &Thumb{transformer: transformer, fetcher: fetcher, store: store, authorizer: authorizer,
		textSender: textSender, imageSender: imageSender, command: command, defaultWidth: defaultWidth}
}

func (t *Thumb) GetCommand() string {
	return t.command
}

func (t *Thumb) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	l := log.With().
		Int("messageId", message.ID).
		Int64("chatId", message.ChatID).
		Str("username", message.Username).
		Str("command", t.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !t.authorizer.IsAuthorized(ctx, message) {
		return nil
	}

	if message.ImageURL == "" {
		_ = t.textSender.NotifyAndReturnError(ctx, fmt.Errorf("%w, reply to a photo", domain.ErrMissingImage), message)
		return nil
	}

	width, err := t.parseWidth(ParseCommandArgs(message.Text))
	if err != nil {
		_ = t.textSender.NotifyAndReturnError(ctx, t.usage(), message)
		return nil
	}

	physicalWidth, physicalHeight, err := domain.NormalizeSize(message.ImageWidth, message.ImageHeight, width)
	if err != nil {
		_ = t.textSender.NotifyAndReturnError(ctx, err, message)
		return nil
	}

	go t.textSender.SendChatAction(ctx, message.ChatID, domain.SendingPhoto)

	src, err := t.fetcher.Fetch(ctx, message.ImageURL, domain.ExtensionForMime(photoMimeType))
	if err != nil {
		return t.textSender.NotifyAndReturnError(ctx, fmt.Errorf("failed to fetch image: %w", err), message)
	}
	defer t.store.Remove(src)

	params := domain.ScalerParameters{
		PhysicalWidth:  physicalWidth,
		PhysicalHeight: physicalHeight,
		ClientWidth:    physicalWidth,
		ClientHeight:   physicalHeight,
		SrcWidth:       message.ImageWidth,
		SrcHeight:      message.ImageHeight,
		SrcPath:        src,
		MimeType:       photoMimeType,
		Comment:        fmt.Sprintf("File source: chat %d, message %d", message.ChatID, message.ID),
		Interlace:      true,
	}

	l.Debug().Str("size", params.PhysicalDimensions()).Msg("scaling image")

	out, err := t.transformer.Transform(ctx, params)
	if err != nil {
		return t.textSender.NotifyAndReturnError(ctx, describe(err), message)
	}
	defer t.store.Remove(out)

	err = t.imageSender.SendImageFileReply(ctx, message, out)
	if err != nil {
		return t.textSender.NotifyAndReturnError(ctx, fmt.Errorf("failed to send thumbnail: %w", err), message)
	}

	return nil
}

func (t *Thumb) parseWidth(args string) (int, error) {
	if args == "" {
		return t.defaultWidth, nil
	}

	return strconv.Atoi(args)
}

func (t *Thumb) usage() error {
	return fmt.Errorf("usage: %s or %s <width>, default %d", t.command, t.command, t.defaultWidth)
}

// describe turns a pipeline failure into something a chat user can act on.
// Tool output is kept out of the reply, it is already in the log.
func describe(err error) error {
	var toolErr *domain.ToolError

	switch {
	case errors.Is(err, domain.ErrEmptyOutput):
		return errors.New("thumbnailing produced no image")
	case errors.As(err, &toolErr):
		return fmt.Errorf("thumbnailing failed with exit code %d", toolErr.ExitCode)
	case errors.Is(err, domain.ErrCancelled):
		return errors.New("thumbnailing timed out")
	case errors.Is(err, domain.ErrResourceUnavailable):
		return errors.New("no space for a temporary file, try again later")
	default:
		log.Error().Err(err).Msg("unexpected thumbnailing failure")
		return errors.New("internal error while thumbnailing")
	}
}
