package trustscore

import "time"

type Components struct {
	TransactionSuccess float64 `json:"transaction_success"`
	ResponseTime       float64 `json:"response_time"`
	DisputeResolution  float64 `json:"dispute_resolution"`
	Longevity          float64 `json:"longevity"`
	VerificationLevel  float64 `json:"verification_level"`
}

// Stats summarises the escrow transactions a user took part in, as client
// or provider.
type Stats struct {
	Total              int     `json:"total"`
	Completed          int     `json:"completed"`
	Disputed           int     `json:"disputed"`
	AvgCompletionHours float64 `json:"avg_completion_hours"`
}

type Result struct {
	UserID        string     `json:"user_id"`
	Score         int        `json:"score"`
	Components    Components `json:"components"`
	Tier          string     `json:"tier"`
	Decay         float64    `json:"decay"`
	Stats         Stats      `json:"stats"`
	PreviousScore int        `json:"previous_score"`
	Drift         int        `json:"drift"`
	PolicyVersion string     `json:"policy_version"`
	CalculatedAt  time.Time  `json:"calculated_at"`
}
