// Package payment defines the card authorization/capture gateway used to
// charge raffle entries, with a Midtrans Core API implementation and a mock.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AuthorizationAmount is the hold placed on a card before the entry number is
// known: the highest primary number in cents.
const AuthorizationAmount int64 = 36000

// RaffleType tags an authorization with the pool it is expected to draw from
type RaffleType string

const (
	RaffleTypePrimary  RaffleType = "primary"
	RaffleTypeOverflow RaffleType = "overflow"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingCardToken     = errors.New("card token is required")
	ErrDeclined             = errors.New("payment declined")
	ErrUnknownAuthorization = errors.New("unknown authorization")
	ErrAlreadySettled       = errors.New("authorization already captured or released")
)

// AuthorizeRequest asks the gateway to hold funds on a card
type AuthorizeRequest struct {
	Amount     int64
	RaffleType RaffleType
	CardToken  string
	Email      string
}

// Authorization is a held, not yet captured, payment
type Authorization struct {
	Ref        string     `json:"payment_ref"`
	Amount     int64      `json:"amount"`
	RaffleType RaffleType `json:"raffle_type"`
}

// Gateway is the external payment processor. Amounts are integer cents.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
	Capture(ctx context.Context, ref string, amount int64) error
	Cancel(ctx context.Context, ref string) error
	Refund(ctx context.Context, ref string, amount int64) error
}

// validateCapture checks a capture amount against the held authorization.
// Overflow numbers cost more than the hold; whether that succeeds is the
// processor's decision, so only the lower bound is checked here.
func validateCapture(amount int64) error {
	if amount < 100 {
		return fmt.Errorf("%w: %d cents", ErrInvalidAmount, amount)
	}
	return nil
}

// OrderID builds the merchant order id for an authorization. The raffle type
// is carried in the id so the processor dashboard shows which pool it was for.
func OrderID(raffleType RaffleType, unique string) string {
	return fmt.Sprintf("raffle-%s-%s", raffleType, unique)
}

// RaffleTypeFromOrderID recovers the raffle type encoded by OrderID
func RaffleTypeFromOrderID(orderID string) (RaffleType, bool) {
	rest, ok := strings.CutPrefix(orderID, "raffle-")
	if !ok {
		return "", false
	}
	switch {
	case strings.HasPrefix(rest, string(RaffleTypePrimary)+"-"):
		return RaffleTypePrimary, true
	case strings.HasPrefix(rest, string(RaffleTypeOverflow)+"-"):
		return RaffleTypeOverflow, true
	}
	return "", false
}
