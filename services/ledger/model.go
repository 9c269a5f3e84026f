package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const GenesisHash = "GENESIS"

// TrustEvent is an append-only, hash-chained record of a trust relevant
// occurrence. Rows are never updated or deleted.
type TrustEvent struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	UserID          string         `gorm:"column:user_id;not null;index:idx_trust_events_user_created,priority:1"`
	EventType       EventType      `gorm:"column:event_type;not null"`
	EventData       datatypes.JSON `gorm:"column:event_data"`
	TrustDelta      int            `gorm:"column:trust_delta;not null;default:0"`
	ReputationDelta int            `gorm:"column:reputation_delta;not null;default:0"`
	TransactionID   *string        `gorm:"column:transaction_id;index"`
	CreatedAt       time.Time      `gorm:"column:created_at;index:idx_trust_events_user_created,priority:2"`
	PreviousHash    string         `gorm:"column:previous_hash"`
	Hash            string         `gorm:"column:hash"`
}

func (TrustEvent) TableName() string { return "trust_events" }

func (e *TrustEvent) HashFields() map[string]string {
	tx := ""
	if e.TransactionID != nil {
		tx = *e.TransactionID
	}
	return map[string]string{
		"id":               fmt.Sprintf("%d", e.ID),
		"user_id":          e.UserID,
		"event_type":       string(e.EventType),
		"event_data":       canonicalJSON(e.EventData),
		"trust_delta":      fmt.Sprintf("%d", e.TrustDelta),
		"reputation_delta": fmt.Sprintf("%d", e.ReputationDelta),
		"transaction_id":   tx,
		"created_at":       e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":    e.PreviousHash,
	}
}

func (e *TrustEvent) GenerateHash() string {
	fields := e.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// canonicalJSON re-encodes raw so that stores which normalise JSON (jsonb)
// hash identically to what was written.
func canonicalJSON(raw datatypes.JSON) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(b)
}

// Payload decodes EventData into the typed record for EventType.
func (e *TrustEvent) Payload() (EventData, error) {
	return DecodePayload(e.EventType, e.EventData)
}
