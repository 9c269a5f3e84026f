package escrow

import (
	"encoding/json"
	"fmt"
	"time"

	"smallbiznis-trustescrow/services/dispute"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	// StatusPending is the conceptual pre-state of a request; it is never stored.
	StatusPending   Status = "pending"
	StatusEscrowed  Status = "escrowed"
	StatusCompleted Status = "completed"
	StatusDisputed  Status = "disputed"
	StatusCancelled Status = "cancelled"
	StatusResolved  Status = "resolved"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusEscrowed},
	StatusEscrowed: {StatusCompleted, StatusDisputed, StatusCancelled},
	StatusDisputed: {StatusResolved},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusResolved
}

// Transaction is a held-funds record. Status transitions are the only
// mutation path; terminal rows are never written again.
type Transaction struct {
	ID              string          `gorm:"column:id;primaryKey"`
	ClientID        string          `gorm:"column:client_id;not null;index"`
	ProviderID      string          `gorm:"column:provider_id;not null;index"`
	ServiceID       string          `gorm:"column:service_id;not null"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(20,8);not null"`
	PlatformFee     decimal.Decimal `gorm:"column:platform_fee;type:decimal(20,8);not null;default:0"`
	ProviderPayout  decimal.Decimal `gorm:"column:provider_payout;type:decimal(20,8);not null;default:0"`
	Status          Status          `gorm:"column:status;not null;index"`
	HoldID          string          `gorm:"column:hold_id"`
	ActiveKey       *string         `gorm:"column:active_key;uniqueIndex"`
	ScheduledTime   *time.Time      `gorm:"column:scheduled_time"`
	LocationData    datatypes.JSON  `gorm:"column:location_data"`
	DisputeData     datatypes.JSON  `gorm:"column:dispute_data"`
	CompletionProof datatypes.JSON  `gorm:"column:completion_proof"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
	CompletedAt     *time.Time      `gorm:"column:completed_at"`
	// CapturedAt is set once the hold has been captured. A captured escrow
	// can only move forward to a provider payout.
	CapturedAt *time.Time `gorm:"column:captured_at"`
}

func (Transaction) TableName() string { return "escrow_transactions" }

// ActiveKeyFor identifies an open escrow for a (client, provider, service)
// triplet. At most one row may hold it.
func ActiveKeyFor(clientID, providerID, serviceID string) string {
	return fmt.Sprintf("%s:%s:%s", clientID, providerID, serviceID)
}

func decodeJSON[T any](raw datatypes.JSON) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (t *Transaction) Location() (*dispute.Location, error) {
	return decodeJSON[dispute.Location](t.LocationData)
}

func (t *Transaction) Dispute() (*dispute.Data, error) {
	return decodeJSON[dispute.Data](t.DisputeData)
}

func (t *Transaction) Proof() (*dispute.Proof, error) {
	return decodeJSON[dispute.Proof](t.CompletionProof)
}

// Role returns "client" or "provider" for userID, or "" when unrelated.
func (t *Transaction) Role(userID string) string {
	switch userID {
	case t.ClientID:
		return "client"
	case t.ProviderID:
		return "provider"
	default:
		return ""
	}
}

type CreateRequest struct {
	ClientID      string            `json:"client_id"`
	ProviderID    string            `json:"provider_id"`
	ServiceID     string            `json:"service_id"`
	ServiceType   string            `json:"service_type,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	ScheduledTime *time.Time        `json:"scheduled_time,omitempty"`
	Location      *dispute.Location `json:"location_data,omitempty"`
}

type CreateResult struct {
	TransactionID string          `json:"transaction_id"`
	Status        Status          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CompletionResult struct {
	Status      Status                   `json:"status"`
	CompletedAt time.Time                `json:"completed_at"`
	Fee         decimal.Decimal          `json:"platform_fee"`
	Payout      decimal.Decimal          `json:"provider_payout"`
	Validation  dispute.ValidationResult `json:"validation"`
}

type DisputeResult struct {
	DisputeID string `json:"dispute_id"`
	Status    Status `json:"status"`
}

type ResolveResult struct {
	Resolution    dispute.Resolution `json:"resolution"`
	TransactionID string             `json:"transaction_id"`
	Deltas        dispute.Deltas     `json:"reputation_deltas"`
}

type CancelResult struct {
	TransactionID string `json:"transaction_id"`
	Status        Status `json:"status"`
}

// Snapshot is the read-only projection returned by GetEscrowStatus.
type Snapshot struct {
	TransactionID   string            `json:"transaction_id"`
	Status          Status            `json:"status"`
	Amount          decimal.Decimal   `json:"amount"`
	PlatformFee     decimal.Decimal   `json:"platform_fee"`
	ProviderPayout  decimal.Decimal   `json:"provider_payout"`
	ClientID        string            `json:"client_id"`
	ProviderID      string            `json:"provider_id"`
	ServiceID       string            `json:"service_id"`
	ScheduledTime   *time.Time        `json:"scheduled_time,omitempty"`
	Location        *dispute.Location `json:"location_data,omitempty"`
	Dispute         *dispute.Data     `json:"dispute_data,omitempty"`
	CompletionProof *dispute.Proof    `json:"completion_proof,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}
