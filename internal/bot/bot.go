// Package bot is the Telegram transport: it receives commands over long
// polling and implements the outbound Messenger the rest of the system
// sends through.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot is the Telegram API wrapper. It is built before the services it
// serves because the delivery pipeline sends through it; the command router
// arrives later, at Run.
type Bot struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func New(token string, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	log.Info("telegram bot connected", zap.String("username", api.Self.UserName))

	return &Bot{api: api, log: log}, nil
}

// Run consumes updates until ctx is cancelled. Commands are handled in
// their own goroutines because /track blocks on its first check cycle.
func (b *Bot) Run(ctx context.Context, router *Router) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := commandMessage(update)
			if msg == nil {
				continue
			}
			go b.handle(ctx, router, msg)
		}
	}
}

// commandMessage returns the update's message when it carries a command.
// Channel posts have no sender; the router keys those on the chat.
func commandMessage(update tgbotapi.Update) *tgbotapi.Message {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || !msg.IsCommand() {
		return nil
	}
	return msg
}

func (b *Bot) handle(ctx context.Context, router *Router, msg *tgbotapi.Message) {
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}

	reply := router.HandleCommand(ctx, msg.Chat.ID, userID, msg.Command(), msg.CommandArguments())
	if reply == "" {
		return
	}
	if err := b.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		b.log.Error("sending reply", zap.Int64("chat", msg.Chat.ID), zap.Error(err))
	}
}

// SendMessage implements notify.Messenger.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// SendFile implements notify.Messenger. Everything goes out as a document
// so the delivered bytes match the download exactly.
func (b *Bot) SendFile(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("sending file: %w", err)
	}
	return nil
}
