package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/errors"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/repository"
	"github.com/abrezinsky/chanceraffle/pkg/payment"
)

// PaymentService places the card hold that precedes an entry
type PaymentService struct {
	log     logger.Logger
	repo    repository.Ledger
	gateway payment.Gateway
	now     func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(log logger.Logger, repo repository.Ledger, gateway payment.Gateway) *PaymentService {
	return &PaymentService{log: log, repo: repo, gateway: gateway, now: time.Now}
}

// SetClock sets a custom time source (for testing)
func (s *PaymentService) SetClock(now func() time.Time) {
	s.now = now
}

// AuthorizeInput is a participant's request to hold funds
type AuthorizeInput struct {
	CardToken string
	Email     string
}

// Authorize holds the maximum entry amount on the participant's card. It
// refuses up front when no entry could currently be issued, so no hold is
// placed that would immediately have to be released.
func (s *PaymentService) Authorize(ctx context.Context, in AuthorizeInput) (*payment.Authorization, error) {
	if strings.TrimSpace(in.CardToken) == "" {
		return nil, errors.Validation("card token is required")
	}

	raffleType, err := s.availablePool(ctx)
	if err != nil {
		return nil, err
	}

	auth, err := s.gateway.Authorize(ctx, payment.AuthorizeRequest{
		Amount:     payment.AuthorizationAmount,
		RaffleType: raffleType,
		CardToken:  in.CardToken,
		Email:      in.Email,
	})
	if err != nil {
		s.log.Warn("Payment authorization failed", "raffle_type", raffleType, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
	}

	s.log.Info("Payment authorized", "payment_ref", auth.Ref, "raffle_type", raffleType, "amount", auth.Amount)
	return auth, nil
}

// availablePool reports which pool the next entry would come from, or why
// none is available
func (s *PaymentService) availablePool(ctx context.Context) (payment.RaffleType, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return "", settingsError(err)
	}
	if !settings.IsActive {
		return "", ErrRaffleInactive
	}

	held, err := s.repo.CountTakenPrimary(ctx)
	if err != nil {
		return "", err
	}
	if held < models.PrimaryPoolSize {
		return payment.RaffleTypePrimary, nil
	}

	if !settings.OverflowEnabled {
		return "", ErrOverflowNotEnabled
	}
	// An unarmed window is armed by the allocation itself.
	if settings.OverflowStartTime != nil && !settings.OverflowOpenAt(s.now()) {
		return "", ErrOverflowExpired
	}
	return payment.RaffleTypeOverflow, nil
}
