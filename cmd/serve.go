package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"vipsscaler/internal/adapters/handler"
	"vipsscaler/internal/adapters/sender"
	"vipsscaler/internal/core/domain/command"
	"vipsscaler/internal/core/service"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer /thumb requests from allowlisted Telegram chats",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	log.Info().Msg("starting vipsscaler...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token must be set")
	}

	if len(cfg.Telegram.AllowedChatIDs) == 0 {
		log.Warn().Msg("telegram.allowed_chat_ids is empty, every request will be rejected")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scaler, store, err := newScaler(cfg)
	if err != nil {
		return err
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.WithDefaultHandler(noOpHandler))
	if err != nil {
		return err
	}

	s := sender.NewTelegram(b)
	authorizer := service.NewChatAuthorizer(cfg.Telegram.AllowedChatIDs, cfg.Telegram.AdminUsername, s)

	commandRegistry := &command.Registry{}
	commandRegistry.Register(command.NewThumb(scaler, store, store, authorizer, s, s, "/thumb",
		cfg.Thumb.DefaultWidth))
	commandRegistry.Register(command.NewHelp(commandRegistry, s, "/help"))

	commandHandler := handler.NewCommand(commandRegistry, b, cfg.Handler.Timeout)

	b.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, commandHandler.Handle)
	b.RegisterHandler(bot.HandlerTypePhotoCaption, "/", bot.MatchTypePrefix, commandHandler.Handle)

	log.Info().Strs("commands", commandRegistry.ListCommands()).Msg("bot listening")
	b.Start(ctx)

	log.Info().Msg("waiting for in-flight requests")
	commandHandler.Wait()
	log.Info().Msg("shut down")

	return nil
}

func noOpHandler(_ context.Context, _ *bot.Bot, _ *models.Update) {}
