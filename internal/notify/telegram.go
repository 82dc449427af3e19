package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/abrezinsky/chanceraffle/internal/logger"
)

// messageSender is the part of *telego.Bot the alerter uses
type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramAlerter posts raffle activity to the organizers' chats
type TelegramAlerter struct {
	bot     messageSender
	chatIDs []int64
	log     logger.Logger
}

// NewTelegramAlerter creates an alerter using the bot token
func NewTelegramAlerter(log logger.Logger, token string, chatIDs []int64) (*TelegramAlerter, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramAlerter{bot: bot, chatIDs: chatIDs, log: log}, nil
}

func entryAlertText(n EntryNotice) string {
	return fmt.Sprintf("🎟 <b>Entry #%d confirmed</b>\n%s\nKind: %s\nAmount: %s",
		n.Number, html.EscapeString(n.Contact.Name), n.Kind, formatDollars(n.Amount))
}

func winnerAlertText(n WinnerNotice) string {
	return fmt.Sprintf("🏆 <b>Winner drawn: #%d</b>\n%s (%s)\nPrize: %s",
		n.Number, html.EscapeString(n.Contact.Name), html.EscapeString(n.Contact.Email),
		html.EscapeString(n.PrizeDescription))
}

func (t *TelegramAlerter) NotifyEntryConfirmed(ctx context.Context, n EntryNotice) error {
	return t.send(ctx, entryAlertText(n))
}

func (t *TelegramAlerter) NotifyWinner(ctx context.Context, n WinnerNotice) error {
	return t.send(ctx, winnerAlertText(n))
}

func (t *TelegramAlerter) send(ctx context.Context, text string) error {
	var firstErr error
	for _, chatID := range t.chatIDs {
		_, err := t.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:    tu.ID(chatID),
			Text:      text,
			ParseMode: "HTML",
		})
		if err != nil {
			t.log.Warn("Error sending telegram message", "chat_id", chatID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("telegram chat %d: %w", chatID, err)
			}
		}
	}
	return firstErr
}

var _ Notifier = (*TelegramAlerter)(nil)
