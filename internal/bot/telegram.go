package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the subset of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot serves a Dispatcher over Telegram long polling.
type TelegramBot struct {
	api        botAPI
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewTelegramBot authenticates with token.
func NewTelegramBot(token string, dispatcher *Dispatcher, logger *slog.Logger) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	logger.Info("Authorized on telegram", slog.String("account", api.Self.UserName))
	return &TelegramBot{api: api, dispatcher: dispatcher, logger: logger}, nil
}

// Run polls for updates until ctx is done.
func (b *TelegramBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	logger := b.logger.With(slog.Int64("chat_id", msg.Chat.ID), slog.String("command", msg.Command()))
	logger.Info("Received bot command")

	for _, reply := range b.dispatcher.Handle(ctx, msg.Command(), msg.CommandArguments()) {
		if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
			logger.Error("Failed to send bot reply", slog.String("error", err.Error()))
		}
	}
}
