package services

import (
	"errors"

	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// Raffle outcome errors. These are expected results reported to the caller,
// not defects.
var (
	ErrExhausted = &RaffleError{Code: "EXHAUSTED", Retryable: true,
		Message: "all entry numbers are currently taken"}
	ErrOverflowNotEnabled = &RaffleError{Code: "OVERFLOW_NOT_ENABLED", Retryable: true,
		Message: "primary numbers are sold out and overflow entries are not open"}
	ErrOverflowExpired = &RaffleError{Code: "OVERFLOW_EXPIRED",
		Message: "the overflow entry window has closed"}
	ErrCaptureFailed = &RaffleError{Code: "CAPTURE_FAILED",
		Message: "payment could not be captured; please try again with a new payment"}
	ErrNoConfirmedEntries = &RaffleError{Code: "NO_CONFIRMED_ENTRIES", Retryable: true,
		Message: "there are no confirmed entries to draw from"}
	ErrRaffleInactive = &RaffleError{Code: "RAFFLE_INACTIVE", Retryable: true,
		Message: "the raffle is not currently accepting entries"}
	ErrNumberTaken = &RaffleError{Code: "NUMBER_TAKEN",
		Message: "that number is already taken"}
	ErrAuthorizationFailed = &RaffleError{Code: "AUTHORIZATION_FAILED",
		Message: "payment authorization failed"}
	ErrNotInitialized = &RaffleError{Code: "NOT_INITIALIZED",
		Message: "the raffle has not been set up"}
)

// RaffleError is a typed raffle outcome. Retryable errors may succeed if the
// same request is repeated later; the rest need a different request.
type RaffleError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *RaffleError) Error() string {
	return e.Message
}

// AsRaffleError returns the *RaffleError in err's chain, if any
func AsRaffleError(err error) (*RaffleError, bool) {
	var re *RaffleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// settingsError maps a missing settings row to ErrNotInitialized
func settingsError(err error) error {
	if errors.Is(err, repository.ErrSettingsMissing) {
		return ErrNotInitialized
	}
	return err
}
