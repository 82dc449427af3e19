package models

import "time"

// Primary pool bounds and pricing
const (
	PrimaryPoolSize = 360
	FirstOverflow   = PrimaryPoolSize + 1
	CentsPerNumber  = 100

	// MaxChargeCents is the authorization hold placed before a number is known
	MaxChargeCents = PrimaryPoolSize * CentsPerNumber
	MinChargeCents = CentsPerNumber

	DefaultOverflowMinutes = 180
	DefaultCashValueCents  = 1000000
)

// EntryKind describes how an entry's number was issued
type EntryKind string

const (
	KindPrimary  EntryKind = "PRIMARY"
	KindOverflow EntryKind = "OVERFLOW"
	KindManual   EntryKind = "MANUAL"
)

// EntryStatus is the lifecycle state of an entry
type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusConfirmed EntryStatus = "CONFIRMED"
	StatusFailed    EntryStatus = "FAILED"
	StatusRefunded  EntryStatus = "REFUNDED"
)

// HoldsNumber reports whether an entry in this status occupies its number
func (s EntryStatus) HoldsNumber() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusFailed
	case StatusConfirmed:
		return next == StatusRefunded
	default:
		return false
	}
}

// AmountForNumber returns the charge in cents bound to an assigned number
func AmountForNumber(number int) int64 {
	return int64(number) * CentsPerNumber
}

// Contact is the participant information attached to an entry
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Entry is one purchased (or administratively granted) raffle entry
type Entry struct {
	ID             string      `json:"id"`
	AssignedNumber int         `json:"assigned_number"`
	Kind           EntryKind   `json:"entry_kind"`
	AmountCharged  int64       `json:"amount_charged"`
	PaymentRef     *string     `json:"payment_ref,omitempty"`
	Status         EntryStatus `json:"status"`
	Contact
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TakenNumber is the public view of an occupied number
type TakenNumber struct {
	Number int       `json:"number"`
	Kind   EntryKind `json:"entry_kind"`
}

// Settings is the single raffle configuration row
type Settings struct {
	CampaignName            string     `json:"campaign_name"`
	PrizeDescription        string     `json:"prize_description"`
	CashValue               int64      `json:"cash_value"`
	IsActive                bool       `json:"is_active"`
	OverflowEnabled         bool       `json:"overflow_enabled"`
	OverflowStartTime       *time.Time `json:"overflow_start_time,omitempty"`
	OverflowDurationMinutes int        `json:"overflow_duration"`
	WinnerEntryID           *string    `json:"winner_entry_id,omitempty"`
	WinnerDrawnAt           *time.Time `json:"winner_drawn_at,omitempty"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// OverflowDuration returns the configured overflow window length
func (s *Settings) OverflowDuration() time.Duration {
	return time.Duration(s.OverflowDurationMinutes) * time.Minute
}

// OverflowDeadline returns the end of the overflow window, or false if not armed
func (s *Settings) OverflowDeadline() (time.Time, bool) {
	if s.OverflowStartTime == nil {
		return time.Time{}, false
	}
	return s.OverflowStartTime.Add(s.OverflowDuration()), true
}

// OverflowOpenAt reports whether overflow numbers may be issued at now
func (s *Settings) OverflowOpenAt(now time.Time) bool {
	if !s.OverflowEnabled {
		return false
	}
	deadline, armed := s.OverflowDeadline()
	return armed && !now.After(deadline)
}

// RaffleStats is the public summary of the raffle state
type RaffleStats struct {
	CampaignName          string  `json:"campaign_name"`
	PrizeDescription      string  `json:"prize_description"`
	CashValue             int64   `json:"cash_value"`
	IsActive              bool    `json:"is_active"`
	TotalEntries          int     `json:"total_entries"`
	PrimaryEntriesCount   int     `json:"primary_entries_count"`
	OverflowEntriesCount  int     `json:"overflow_entries_count"`
	ManualEntriesCount    int     `json:"manual_entries_count"`
	PrimaryRemaining      int     `json:"primary_remaining"`
	IsPrimarySoldOut      bool    `json:"is_primary_sold_out"`
	IsOverflowActive      bool    `json:"is_overflow_active"`
	OverflowTimeRemaining *int64  `json:"overflow_time_remaining,omitempty"` // milliseconds
	WinnerEntryID         *string `json:"winner_entry_id,omitempty"`
}

// AdminUser is an account allowed to use the admin API
type AdminUser struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
