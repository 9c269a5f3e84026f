package dispute

import (
	"time"

	"smallbiznis-trustescrow/pkg/errutil"
)

type Winner string

const (
	WinnerClient   Winner = "client"
	WinnerProvider Winner = "provider"
)

func (w Winner) Valid() bool {
	return w == WinnerClient || w == WinnerProvider
}

type CaseStatus string

const (
	CaseOpen     CaseStatus = "open"
	CaseResolved CaseStatus = "resolved"
)

// Location is the service location recorded on an escrow.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type GPS struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (g GPS) validate(field string) error {
	if g.Lat < -90 || g.Lat > 90 || g.Lng < -180 || g.Lng > 180 {
		return errutil.ValidationFailed("invalid coordinates", nil, errutil.WithDetails(errutil.Detail{Field: field, Message: "latitude or longitude out of range"}))
	}
	return nil
}

// Proof is the completion evidence. Every field is optional.
type Proof struct {
	GPS       *GPS       `json:"gps,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Media     []string   `json:"media,omitempty"`
}

func (p Proof) Validate() error {
	if p.GPS != nil {
		if err := p.GPS.validate("gps"); err != nil {
			return err
		}
	}
	for _, m := range p.Media {
		if m == "" {
			return errutil.ValidationFailed("invalid media reference", nil, errutil.WithDetails(errutil.Detail{Field: "media", Message: "media reference must not be empty"}))
		}
	}
	return nil
}

func (l Location) Validate() error {
	return GPS{Lat: l.Lat, Lng: l.Lng}.validate("location_data")
}

type Check string

const (
	CheckGPS    Check = "gps"
	CheckTiming Check = "timing"
	CheckMedia  Check = "media"
)

type Validation struct {
	Check  Check   `json:"check"`
	Valid  bool    `json:"valid"`
	Value  float64 `json:"value,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

type ValidationResult struct {
	Valid       bool         `json:"valid"`
	Validations []Validation `json:"validations"`
}

// Request is what a party submits to open a dispute.
type Request struct {
	Reason   string   `json:"reason"`
	Evidence []string `json:"evidence,omitempty"`
}

func (r Request) Validate() error {
	if r.Reason == "" {
		return errutil.ValidationFailed("dispute reason is required", nil, errutil.WithDetails(errutil.Detail{Field: "reason", Message: "required"}))
	}
	return nil
}

// Resolution is the arbiter's decision.
type Resolution struct {
	Winner     Winner    `json:"winner"`
	Reasoning  string    `json:"reasoning"`
	Evidence   []string  `json:"evidence,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

func (r Resolution) Validate() error {
	if !r.Winner.Valid() {
		return errutil.ValidationFailed("invalid resolution", nil, errutil.WithDetails(errutil.Detail{Field: "winner", Message: "winner must be client or provider"}))
	}
	return nil
}

// Data is stored on the escrow while it is disputed or resolved.
type Data struct {
	DisputeID   string      `json:"dispute_id"`
	InitiatorID string      `json:"initiator_id"`
	Reason      string      `json:"reason"`
	Evidence    []string    `json:"evidence,omitempty"`
	Status      CaseStatus  `json:"status"`
	OpenedAt    time.Time   `json:"opened_at"`
	Resolution  *Resolution `json:"resolution,omitempty"`
}

// Case is the dispute record kept for arbiters.
type Case struct {
	ID            string     `gorm:"column:id;primaryKey"`
	TransactionID string     `gorm:"column:transaction_id;not null;index"`
	InitiatorID   string     `gorm:"column:initiator_id;not null"`
	Reason        string     `gorm:"column:reason"`
	Status        CaseStatus `gorm:"column:status;not null;index"`
	Winner        string     `gorm:"column:winner"`
	OpenedAt      time.Time  `gorm:"column:opened_at"`
	ResolvedAt    *time.Time `gorm:"column:resolved_at"`
}

func (Case) TableName() string { return "dispute_cases" }

// Deltas are reputation changes for the two parties of a resolved dispute.
type Deltas struct {
	Client   int `json:"client"`
	Provider int `json:"provider"`
}
