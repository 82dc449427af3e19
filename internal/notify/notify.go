// Package notify delivers entry confirmations and winner announcements.
// Delivery is best effort: callers log failures and never roll back ledger
// state because of them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
)

// EntryNotice describes a confirmed entry
type EntryNotice struct {
	EntryID          string           `json:"entry_id"`
	Contact          models.Contact   `json:"contact"`
	Number           int              `json:"assigned_number"`
	Kind             models.EntryKind `json:"entry_kind"`
	Amount           int64            `json:"amount_charged"`
	CampaignName     string           `json:"campaign_name"`
	PrizeDescription string           `json:"prize_description"`
	ConfirmedAt      time.Time        `json:"confirmed_at"`
}

// WinnerNotice describes the drawn winner
type WinnerNotice struct {
	EntryID          string         `json:"entry_id"`
	Contact          models.Contact `json:"contact"`
	Number           int            `json:"assigned_number"`
	CampaignName     string         `json:"campaign_name"`
	PrizeDescription string         `json:"prize_description"`
	CashValue        int64          `json:"cash_value"`
	DrawnAt          time.Time      `json:"drawn_at"`
}

// Notifier sends raffle notifications
type Notifier interface {
	NotifyEntryConfirmed(ctx context.Context, n EntryNotice) error
	NotifyWinner(ctx context.Context, n WinnerNotice) error
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; failures are joined.
type Multi []Notifier

func (m Multi) NotifyEntryConfirmed(ctx context.Context, n EntryNotice) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.NotifyEntryConfirmed(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyWinner(ctx context.Context, n WinnerNotice) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.NotifyWinner(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every notification
type Nop struct{}

func (Nop) NotifyEntryConfirmed(context.Context, EntryNotice) error { return nil }
func (Nop) NotifyWinner(context.Context, WinnerNotice) error        { return nil }

// formatDollars renders cents as $D.CC
func formatDollars(cents int64) string {
	if cents < 0 {
		return "-" + formatDollars(-cents)
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

var (
	_ Notifier = Multi(nil)
	_ Notifier = Nop{}
)
