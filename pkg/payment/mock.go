package payment

import (
	"context"
	"fmt"
	"sync"
)

type authState int

const (
	stateAuthorized authState = iota
	stateCaptured
	stateCancelled
	stateRefunded
)

type mockAuth struct {
	amount   int64
	captured int64
	state    authState
}

// MockGateway is an in-memory Gateway for testing
type MockGateway struct {
	mu            sync.Mutex
	auths         map[string]*mockAuth
	nextID        int
	authorizeErr  error
	captureErr    error
	cancelErr     error
	refundErr     error
	strictHold    bool
	failCaptureOf map[int64]bool
}

// MockOption configures the mock gateway
type MockOption func(*MockGateway)

// WithAuthorizeError sets an error to return from Authorize
func WithAuthorizeError(err error) MockOption {
	return func(m *MockGateway) {
		m.authorizeErr = err
	}
}

// WithCaptureError sets an error to return from every Capture
func WithCaptureError(err error) MockOption {
	return func(m *MockGateway) {
		m.captureErr = err
	}
}

// WithCancelError sets an error to return from Cancel
func WithCancelError(err error) MockOption {
	return func(m *MockGateway) {
		m.cancelErr = err
	}
}

// WithRefundError sets an error to return from Refund
func WithRefundError(err error) MockOption {
	return func(m *MockGateway) {
		m.refundErr = err
	}
}

// WithCaptureLimit declines captures above the held amount, as a strict
// processor would
func WithCaptureLimit() MockOption {
	return func(m *MockGateway) {
		m.strictHold = true
	}
}

// WithDeclinedCaptureAmount declines captures of exactly amount cents
func WithDeclinedCaptureAmount(amount int64) MockOption {
	return func(m *MockGateway) {
		m.failCaptureOf[amount] = true
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(opts ...MockOption) *MockGateway {
	m := &MockGateway{
		auths:         make(map[string]*mockAuth),
		nextID:        1,
		failCaptureOf: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCaptureError changes the Capture error after construction
func (m *MockGateway) SetCaptureError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureErr = err
}

// Authorize records a new held authorization
func (m *MockGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	if m.authorizeErr != nil {
		return nil, m.authorizeErr
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d cents", ErrInvalidAmount, req.Amount)
	}
	if req.RaffleType == "" {
		req.RaffleType = RaffleTypePrimary
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ref := fmt.Sprintf("auth_mock_%d", m.nextID)
	m.nextID++
	m.auths[ref] = &mockAuth{amount: req.Amount}
	return &Authorization{Ref: ref, Amount: req.Amount, RaffleType: req.RaffleType}, nil
}

// MustAuthorize returns a fresh authorization ref for the standard hold
func (m *MockGateway) MustAuthorize() string {
	auth, err := m.Authorize(context.Background(), AuthorizeRequest{Amount: AuthorizationAmount})
	if err != nil {
		panic(err)
	}
	return auth.Ref
}

// Capture settles an authorization. Each authorization can be captured once.
func (m *MockGateway) Capture(ctx context.Context, ref string, amount int64) error {
	if err := validateCapture(amount); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captureErr != nil {
		return m.captureErr
	}
	auth, ok := m.auths[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAuthorization, ref)
	}
	if auth.state != stateAuthorized {
		return fmt.Errorf("%w: %s", ErrAlreadySettled, ref)
	}
	if m.failCaptureOf[amount] || (m.strictHold && amount > auth.amount) {
		return fmt.Errorf("%w: capture of %d cents", ErrDeclined, amount)
	}
	auth.state = stateCaptured
	auth.captured = amount
	return nil
}

// Cancel releases an uncaptured authorization
func (m *MockGateway) Cancel(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelErr != nil {
		return m.cancelErr
	}
	auth, ok := m.auths[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAuthorization, ref)
	}
	if auth.state != stateAuthorized {
		return fmt.Errorf("%w: %s", ErrAlreadySettled, ref)
	}
	auth.state = stateCancelled
	return nil
}

// Refund returns a captured payment
func (m *MockGateway) Refund(ctx context.Context, ref string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refundErr != nil {
		return m.refundErr
	}
	auth, ok := m.auths[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAuthorization, ref)
	}
	if auth.state != stateCaptured {
		return fmt.Errorf("refund of uncaptured authorization %s", ref)
	}
	if amount <= 0 || amount > auth.captured {
		return fmt.Errorf("%w: refund of %d cents", ErrInvalidAmount, amount)
	}
	auth.state = stateRefunded
	return nil
}

// Captured returns the amount captured on ref, if any
func (m *MockGateway) Captured(ref string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	auth, ok := m.auths[ref]
	if !ok || (auth.state != stateCaptured && auth.state != stateRefunded) {
		return 0, false
	}
	return auth.captured, true
}

// Cancelled reports whether ref was released
func (m *MockGateway) Cancelled(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	auth, ok := m.auths[ref]
	return ok && auth.state == stateCancelled
}

// Refunded reports whether ref was refunded
func (m *MockGateway) Refunded(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	auth, ok := m.auths[ref]
	return ok && auth.state == stateRefunded
}

// CaptureCount returns how many authorizations have been captured
func (m *MockGateway) CaptureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, auth := range m.auths {
		if auth.state == stateCaptured || auth.state == stateRefunded {
			n++
		}
	}
	return n
}

var _ Gateway = (*MockGateway)(nil)
var _ Gateway = (*MidtransGateway)(nil)
