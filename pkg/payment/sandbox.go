package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrUnknownHold  = errors.New("payment: unknown hold")
	ErrHoldSettled  = errors.New("payment: hold already settled")
	ErrInvalidValue = errors.New("payment: amount must be positive")
)

type HoldState string

const (
	HoldOpen     HoldState = "held"
	HoldCaptured HoldState = "captured"
	HoldRefunded HoldState = "refunded"
)

type Hold struct {
	ID     string
	Amount decimal.Decimal
	State  HoldState
}

// Sandbox is an in-memory Port for local runs and tests. It tracks holds and
// the balance transferred to each destination.
type Sandbox struct {
	mu        sync.Mutex
	holds     map[string]*Hold
	transfers map[string]decimal.Decimal
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		holds:     make(map[string]*Hold),
		transfers: make(map[string]decimal.Decimal),
	}
}

func (s *Sandbox) Hold(ctx context.Context, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", ErrInvalidValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "hold_" + uuid.NewString()
	s.holds[id] = &Hold{ID: id, Amount: amount, State: HoldOpen}
	zap.L().Debug("sandbox hold", zap.String("hold_id", id), zap.String("amount", amount.String()))
	return id, nil
}

func (s *Sandbox) settle(holdID string, to HoldState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holds[holdID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHold, holdID)
	}
	if h.State != HoldOpen {
		return fmt.Errorf("%w: %s is %s", ErrHoldSettled, holdID, h.State)
	}
	h.State = to
	return nil
}

func (s *Sandbox) Capture(ctx context.Context, holdID string) error {
	return s.settle(holdID, HoldCaptured)
}

func (s *Sandbox) Refund(ctx context.Context, holdID string) error {
	return s.settle(holdID, HoldRefunded)
}

func (s *Sandbox) Transfer(ctx context.Context, destination string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[destination] = s.transfers[destination].Add(amount)
	return nil
}

// HoldOf returns a copy of the hold, if known.
func (s *Sandbox) HoldOf(holdID string) (Hold, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[holdID]
	if !ok {
		return Hold{}, false
	}
	return *h, true
}

func (s *Sandbox) Transferred(destination string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfers[destination]
}
