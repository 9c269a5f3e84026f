package ledger

import (
	"encoding/json"
	"fmt"

	"smallbiznis-trustescrow/pkg/errutil"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventRegistration         EventType = "registration"
	EventLogin                EventType = "login"
	EventReviewReceived       EventType = "review_received"
	EventVerificationUpgrade  EventType = "verification_upgrade"
	EventFraudReported        EventType = "fraud_reported"
	EventDisputeOpened        EventType = "dispute_opened"
	EventDisputeOutcome       EventType = "dispute_outcome"
	EventTransactionCompleted EventType = "transaction_completed"
	EventScoreRecalculated    EventType = "score_recalculated"
)

// EventData is implemented by every typed event payload.
type EventData interface {
	EventType() EventType
	Validate() error
}

type Registration struct {
	Channel string `json:"channel,omitempty"`
}

func (Registration) EventType() EventType { return EventRegistration }
func (Registration) Validate() error      { return nil }

type Login struct {
	Device string `json:"device,omitempty"`
}

func (Login) EventType() EventType { return EventLogin }
func (Login) Validate() error      { return nil }

type ReviewReceived struct {
	ReviewerID    string `json:"reviewer_id"`
	Rating        int    `json:"rating"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func (ReviewReceived) EventType() EventType { return EventReviewReceived }

func (r ReviewReceived) Validate() error {
	if r.ReviewerID == "" {
		return invalid("reviewer_id", "reviewer is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return invalid("rating", "rating must be between 1 and 5")
	}
	return nil
}

type VerificationUpgrade struct {
	FromTier int `json:"from_tier"`
	ToTier   int `json:"to_tier"`
}

func (VerificationUpgrade) EventType() EventType { return EventVerificationUpgrade }

func (v VerificationUpgrade) Validate() error {
	if v.FromTier < 1 || v.FromTier > 4 {
		return invalid("from_tier", "tier must be between 1 and 4")
	}
	if v.ToTier < 1 || v.ToTier > 4 {
		return invalid("to_tier", "tier must be between 1 and 4")
	}
	if v.ToTier <= v.FromTier {
		return invalid("to_tier", "upgrade must raise the tier")
	}
	return nil
}

type FraudReported struct {
	ReporterID string `json:"reporter_id"`
	Reason     string `json:"reason"`
}

func (FraudReported) EventType() EventType { return EventFraudReported }

func (f FraudReported) Validate() error {
	if f.Reason == "" {
		return invalid("reason", "reason is required")
	}
	return nil
}

type DisputeOpened struct {
	DisputeID   string `json:"dispute_id"`
	InitiatorID string `json:"initiator_id"`
	Reason      string `json:"reason"`
}

func (DisputeOpened) EventType() EventType { return EventDisputeOpened }

func (d DisputeOpened) Validate() error {
	if d.DisputeID == "" || d.InitiatorID == "" {
		return invalid("dispute_id", "dispute and initiator are required")
	}
	return nil
}

type DisputeOutcome struct {
	DisputeID string `json:"dispute_id"`
	Winner    string `json:"winner"`
	Role      string `json:"role"`
}

func (DisputeOutcome) EventType() EventType { return EventDisputeOutcome }

func (d DisputeOutcome) Validate() error {
	if d.Winner != "client" && d.Winner != "provider" {
		return invalid("winner", "winner must be client or provider")
	}
	if d.Role != "client" && d.Role != "provider" {
		return invalid("role", "role must be client or provider")
	}
	return nil
}

type TransactionCompleted struct {
	Role   string `json:"role"`
	Amount string `json:"amount"`
}

func (TransactionCompleted) EventType() EventType { return EventTransactionCompleted }

func (t TransactionCompleted) Validate() error {
	if t.Role != "client" && t.Role != "provider" {
		return invalid("role", "role must be client or provider")
	}
	return nil
}

// ScoreRecalculated records a full recalculation. Drift is the sum of
// incremental trust deltas applied since the previous recalculation; the
// recalculated score replaces them.
type ScoreRecalculated struct {
	PreviousScore int    `json:"previous_score"`
	NewScore      int    `json:"new_score"`
	Drift         int    `json:"drift"`
	PolicyVersion string `json:"policy_version"`
}

func (ScoreRecalculated) EventType() EventType { return EventScoreRecalculated }

func (s ScoreRecalculated) Validate() error {
	if s.NewScore < 0 {
		return invalid("new_score", "score must not be negative")
	}
	return nil
}

func invalid(field, msg string) error {
	return errutil.ValidationFailed("invalid event data", nil, errutil.WithDetails(errutil.Detail{Field: field, Message: msg}))
}

func encodePayload(d EventData) (datatypes.JSON, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func DecodePayload(t EventType, raw datatypes.JSON) (EventData, error) {
	var d EventData
	switch t {
	case EventRegistration:
		d = &Registration{}
	case EventLogin:
		d = &Login{}
	case EventReviewReceived:
		d = &ReviewReceived{}
	case EventVerificationUpgrade:
		d = &VerificationUpgrade{}
	case EventFraudReported:
		d = &FraudReported{}
	case EventDisputeOpened:
		d = &DisputeOpened{}
	case EventDisputeOutcome:
		d = &DisputeOutcome{}
	case EventTransactionCompleted:
		d = &TransactionCompleted{}
	case EventScoreRecalculated:
		d = &ScoreRecalculated{}
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if len(raw) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	return d, nil
}
