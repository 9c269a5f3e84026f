// Package payment defines the port through which the engine moves money.
// Gateway adapters live outside this module.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=payment.go -destination=mock/payment_mock.go -package=mock

// Port is the payment gateway boundary. Calls are blocking and are not
// retried by the engine.
type Port interface {
	Hold(ctx context.Context, amount decimal.Decimal) (string, error)
	Capture(ctx context.Context, holdID string) error
	Refund(ctx context.Context, holdID string) error
	Transfer(ctx context.Context, destination string, amount decimal.Decimal) error
}
