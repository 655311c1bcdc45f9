package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, commands *Commands) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:      bot,
		Config:   c,
		Commands: commands,
	}, nil
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message: %v", m)
}

// HandleUpdate processes Telegram updates
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) string {
	log.Debugf("received command: %s", u.Message.Command())
	return b.Commands.Handle(ctx, u.Message.Chat.ID, u.Message.Command(), u.Message.CommandArguments())
}

// NotifyTriggered tells the owner of a triggered alert that its level was crossed.
// Alerts created from chat carry the chat id as their user id.
func (b *Bot) NotifyTriggered(ctx context.Context, alert types.Alert, price float64) error {
	chatID, err := strconv.ParseInt(alert.UserID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "alert %s has no chat to notify", alert.Hash)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.SendMessage(Message{
		ChatID: chatID,
		Text:   b.Commands.FormatTriggered(alert, price),
	})
}
