package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"

	"github.com/abrezinsky/chanceraffle/internal/logger"
)

// Midtrans card transaction statuses
const (
	statusAuthorize = "authorize"
	statusCapture   = "capture"
	statusSettled   = "settlement"
)

// MidtransGateway implements Gateway with card pre-authorization on the
// Midtrans Core API
type MidtransGateway struct {
	client coreapi.Client
	log    logger.Logger
}

// NewMidtransGateway creates a gateway for the sandbox or production environment
func NewMidtransGateway(log logger.Logger, serverKey string, production bool) *MidtransGateway {
	g := &MidtransGateway{log: log}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g.client.New(serverKey, env)
	return g
}

// chargeRequest builds a pre-authorization charge for a tokenized card.
// Midtrans amounts are whole currency units.
func chargeRequest(req AuthorizeRequest, orderID string) *coreapi.ChargeReq {
	charge := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.Amount / 100,
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID: req.CardToken,
			Type:    statusAuthorize,
		},
	}
	if req.Email != "" {
		charge.CustomerDetails = &midtrans.CustomerDetails{Email: req.Email}
	}
	return charge
}

// captureRequest builds a capture for amount cents. Amounts are whole
// dollars, so the division stays in integers.
func captureRequest(ref string, amount int64) *coreapi.CaptureReq {
	return &coreapi.CaptureReq{
		TransactionID: ref,
		GrossAmt:      float64(amount / 100),
	}
}

// gatewayError converts a Midtrans error, which is a typed nil on success
func gatewayError(op string, err *midtrans.Error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("midtrans %s: %s", op, err.Error())
}

// Authorize places a hold for req.Amount on the card
func (g *MidtransGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	if req.CardToken == "" {
		return nil, ErrMissingCardToken
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d cents", ErrInvalidAmount, req.Amount)
	}
	if req.RaffleType == "" {
		req.RaffleType = RaffleTypePrimary
	}

	orderID := OrderID(req.RaffleType, uuid.NewString())
	resp, mErr := g.client.ChargeTransaction(chargeRequest(req, orderID))
	if err := gatewayError("charge", mErr); err != nil {
		return nil, err
	}
	if resp.TransactionStatus != statusAuthorize {
		g.log.Warn("Card authorization not granted", "order_id", orderID, "status", resp.TransactionStatus,
			"fraud_status", resp.FraudStatus)
		return nil, fmt.Errorf("%w: status %s", ErrDeclined, resp.TransactionStatus)
	}

	g.log.Debug("Card authorized", "order_id", orderID, "transaction_id", resp.TransactionID)
	return &Authorization{Ref: resp.TransactionID, Amount: req.Amount, RaffleType: req.RaffleType}, nil
}

// Capture charges amount against a held authorization
func (g *MidtransGateway) Capture(ctx context.Context, ref string, amount int64) error {
	if err := validateCapture(amount); err != nil {
		return err
	}
	resp, mErr := g.client.CaptureTransaction(captureRequest(ref, amount))
	if err := gatewayError("capture", mErr); err != nil {
		return err
	}
	if resp.TransactionStatus != statusCapture && resp.TransactionStatus != statusSettled {
		return fmt.Errorf("%w: capture status %s", ErrDeclined, resp.TransactionStatus)
	}
	return nil
}

// Cancel releases a held authorization
func (g *MidtransGateway) Cancel(ctx context.Context, ref string) error {
	_, mErr := g.client.CancelTransaction(ref)
	return gatewayError("cancel", mErr)
}

// Refund returns amount of a captured payment
func (g *MidtransGateway) Refund(ctx context.Context, ref string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d cents", ErrInvalidAmount, amount)
	}
	_, mErr := g.client.RefundTransaction(ref, &coreapi.RefundReq{
		RefundKey: "refund-" + ref,
		Amount:    amount / 100,
		Reason:    "raffle entry refund",
	})
	return gatewayError("refund", mErr)
}
