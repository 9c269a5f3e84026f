// Package mirror publishes escrow records to an external ledger. Mirroring
// is best effort: failures are reported to the caller, which logs them and
// continues.
package mirror

import (
	"context"
	"time"
)

type Record struct {
	TransactionID string    `json:"transaction_id"`
	ClientID      string    `json:"client_id"`
	ProviderID    string    `json:"provider_id"`
	ServiceID     string    `json:"service_id"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	HoldID        string    `json:"hold_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type EscrowMirror interface {
	MirrorEscrow(ctx context.Context, rec Record) error
}

// Nop drops every record.
type Nop struct{}

func (Nop) MirrorEscrow(context.Context, Record) error { return nil }
