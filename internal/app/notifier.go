// internal/app/notifier.go
package app

import (
	"context"

	domainTelegram "cgv_schedule_tracker/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Notifier delivers a preformatted HTML announcement.
type Notifier interface {
	// Notify reports whether delivery succeeded. Failures are never retried.
	Notify(ctx context.Context, text string) bool
}

// TelegramNotifier sends announcements to a single Telegram chat.
type TelegramNotifier struct {
	client domainTelegram.Client
	chatID string
	logger *logrus.Entry
}

func NewTelegramNotifier(client domainTelegram.Client, chatID string, logger *logrus.Entry) *TelegramNotifier {
	return &TelegramNotifier{
		client: client,
		chatID: chatID,
		logger: logger,
	}
}

// Notify sends text with HTML parse mode. A failed send is logged and
// swallowed.
func (n *TelegramNotifier) Notify(ctx context.Context, text string) bool {
	if err := ctx.Err(); err != nil {
		n.logger.WithError(err).Warn("Telegram message not sent, shutting down")
		return false
	}

	err := n.client.SendMessage(n.chatID, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	if err != nil {
		n.logger.WithError(err).WithField("chat_id", n.chatID).Error("Failed to send Telegram message")
		return false
	}
	n.logger.WithField("chat_id", n.chatID).Info("Telegram message sent successfully")
	return true
}
