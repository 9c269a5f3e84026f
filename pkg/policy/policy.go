// Package policy holds every tunable constant of the trust and escrow engine
// in one versioned structure so changes are reviewable as a single diff.
package policy

import (
	"errors"
	"fmt"
	"math"
)

const CurrentVersion = "2024-06.1"

type Policy struct {
	Version string        `mapstructure:"VERSION" json:"version"`
	Trust   TrustPolicy   `mapstructure:"TRUST" json:"trust"`
	Risk    RiskPolicy    `mapstructure:"RISK" json:"risk"`
	Escrow  EscrowPolicy  `mapstructure:"ESCROW" json:"escrow"`
	Dispute DisputePolicy `mapstructure:"DISPUTE" json:"dispute"`
}

type Weights struct {
	TransactionSuccess float64 `mapstructure:"TRANSACTION_SUCCESS" json:"transaction_success"`
	ResponseTime       float64 `mapstructure:"RESPONSE_TIME" json:"response_time"`
	DisputeResolution  float64 `mapstructure:"DISPUTE_RESOLUTION" json:"dispute_resolution"`
	Longevity          float64 `mapstructure:"LONGEVITY" json:"longevity"`
	VerificationLevel  float64 `mapstructure:"VERIFICATION_LEVEL" json:"verification_level"`
}

func (w Weights) Sum() float64 {
	return w.TransactionSuccess + w.ResponseTime + w.DisputeResolution + w.Longevity + w.VerificationLevel
}

type TierThresholds struct {
	Elite  int `mapstructure:"ELITE" json:"elite"`
	High   int `mapstructure:"HIGH" json:"high"`
	Medium int `mapstructure:"MEDIUM" json:"medium"`
	Low    int `mapstructure:"LOW" json:"low"`
}

// TrustPolicy drives score calculation. NeutralPrior is used for ratio
// components when there is no history.
type TrustPolicy struct {
	Weights              Weights        `mapstructure:"WEIGHTS" json:"weights"`
	NeutralPrior         float64        `mapstructure:"NEUTRAL_PRIOR" json:"neutral_prior"`
	ResponseWindowHours  float64        `mapstructure:"RESPONSE_WINDOW_HOURS" json:"response_window_hours"`
	LongevityMonths      float64        `mapstructure:"LONGEVITY_MONTHS" json:"longevity_months"`
	DecayWindowDays      float64        `mapstructure:"DECAY_WINDOW_DAYS" json:"decay_window_days"`
	DecayFloor           float64        `mapstructure:"DECAY_FLOOR" json:"decay_floor"`
	MaxScore             int            `mapstructure:"MAX_SCORE" json:"max_score"`
	MaxVerificationTier  int            `mapstructure:"MAX_VERIFICATION_TIER" json:"max_verification_tier"`
	Tiers                TierThresholds `mapstructure:"TIERS" json:"tiers"`
	CompletionReputation int            `mapstructure:"COMPLETION_REPUTATION" json:"completion_reputation"`
}

type AmountTier struct {
	Above        float64 `mapstructure:"ABOVE" json:"above"`
	RequiredTier int     `mapstructure:"REQUIRED_TIER" json:"required_tier"`
}

// CustomRule is an operator supplied CEL expression that adds Points and a
// factor named Name when it evaluates to true.
type CustomRule struct {
	Name       string `mapstructure:"NAME" json:"name"`
	Expression string `mapstructure:"EXPRESSION" json:"expression"`
	Points     int    `mapstructure:"POINTS" json:"points"`
}

type RiskPolicy struct {
	LowTrustThreshold      int          `mapstructure:"LOW_TRUST_THRESHOLD" json:"low_trust_threshold"`
	ClientLowTrustPoints   int          `mapstructure:"CLIENT_LOW_TRUST_POINTS" json:"client_low_trust_points"`
	ProviderLowTrustPoints int          `mapstructure:"PROVIDER_LOW_TRUST_POINTS" json:"provider_low_trust_points"`
	VerificationPoints     int          `mapstructure:"VERIFICATION_POINTS" json:"verification_points"`
	AmountTiers            []AmountTier `mapstructure:"AMOUNT_TIERS" json:"amount_tiers"`
	NewAccountDays         float64      `mapstructure:"NEW_ACCOUNT_DAYS" json:"new_account_days"`
	NewAccountPoints       int          `mapstructure:"NEW_ACCOUNT_POINTS" json:"new_account_points"`
	InactiveDays           float64      `mapstructure:"INACTIVE_DAYS" json:"inactive_days"`
	InactivePoints         int          `mapstructure:"INACTIVE_POINTS" json:"inactive_points"`
	AmountTrustMultiplier  float64      `mapstructure:"AMOUNT_TRUST_MULTIPLIER" json:"amount_trust_multiplier"`
	AmountFloor            float64      `mapstructure:"AMOUNT_FLOOR" json:"amount_floor"`
	HighAmountPoints       int          `mapstructure:"HIGH_AMOUNT_POINTS" json:"high_amount_points"`
	MediumThreshold        int          `mapstructure:"MEDIUM_THRESHOLD" json:"medium_threshold"`
	HighThreshold          int          `mapstructure:"HIGH_THRESHOLD" json:"high_threshold"`
	VerificationRequiredGT int          `mapstructure:"VERIFICATION_REQUIRED_GT" json:"verification_required_gt"`
	CustomRules            []CustomRule `mapstructure:"CUSTOM_RULES" json:"custom_rules"`
}

// RequiredTier returns the minimum verification tier for amount.
// AmountTiers is evaluated in order; the first tier whose Above is exceeded wins.
func (r RiskPolicy) RequiredTier(amount float64) int {
	for _, t := range r.AmountTiers {
		if amount > t.Above {
			return t.RequiredTier
		}
	}
	return 1
}

type EscrowPolicy struct {
	FeeBps int32 `mapstructure:"FEE_BPS" json:"fee_bps"`
}

type DisputePolicy struct {
	GPSRadiusMeters        float64 `mapstructure:"GPS_RADIUS_METERS" json:"gps_radius_meters"`
	TimingToleranceMinutes float64 `mapstructure:"TIMING_TOLERANCE_MINUTES" json:"timing_tolerance_minutes"`
	ProviderWinProvider    int     `mapstructure:"PROVIDER_WIN_PROVIDER" json:"provider_win_provider"`
	ProviderWinClient      int     `mapstructure:"PROVIDER_WIN_CLIENT" json:"provider_win_client"`
	ClientWinClient        int     `mapstructure:"CLIENT_WIN_CLIENT" json:"client_win_client"`
	ClientWinProvider      int     `mapstructure:"CLIENT_WIN_PROVIDER" json:"client_win_provider"`
}

func Default() Policy {
	return Policy{
		Version: CurrentVersion,
		Trust: TrustPolicy{
			Weights: Weights{
				TransactionSuccess: 0.35,
				ResponseTime:       0.15,
				DisputeResolution:  0.25,
				Longevity:          0.10,
				VerificationLevel:  0.15,
			},
			NeutralPrior:         0.5,
			ResponseWindowHours:  168,
			LongevityMonths:      24,
			DecayWindowDays:      30,
			DecayFloor:           0.5,
			MaxScore:             1000,
			MaxVerificationTier:  4,
			Tiers:                TierThresholds{Elite: 800, High: 600, Medium: 400, Low: 200},
			CompletionReputation: 10,
		},
		Risk: RiskPolicy{
			LowTrustThreshold:      200,
			ClientLowTrustPoints:   30,
			ProviderLowTrustPoints: 20,
			VerificationPoints:     25,
			AmountTiers: []AmountTier{
				{Above: 500, RequiredTier: 3},
				{Above: 100, RequiredTier: 2},
			},
			NewAccountDays:         7,
			NewAccountPoints:       15,
			InactiveDays:           30,
			InactivePoints:         10,
			AmountTrustMultiplier:  2,
			AmountFloor:            100,
			HighAmountPoints:       20,
			MediumThreshold:        20,
			HighThreshold:          50,
			VerificationRequiredGT: 40,
		},
		Escrow: EscrowPolicy{FeeBps: 500},
		Dispute: DisputePolicy{
			GPSRadiusMeters:        100,
			TimingToleranceMinutes: 30,
			ProviderWinProvider:    5,
			ProviderWinClient:      -10,
			ClientWinClient:        5,
			ClientWinProvider:      -15,
		},
	}
}

// Validate rejects policies that would break score bounds or classification.
func (p Policy) Validate() error {
	if p.Version == "" {
		return errors.New("policy: version required")
	}
	if sum := p.Trust.Weights.Sum(); math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("policy: trust weights must sum to 1, got %.4f", sum)
	}
	if p.Trust.DecayFloor < 0 || p.Trust.DecayFloor > 1 {
		return fmt.Errorf("policy: decay floor out of range: %v", p.Trust.DecayFloor)
	}
	if p.Trust.ResponseWindowHours <= 0 || p.Trust.LongevityMonths <= 0 || p.Trust.DecayWindowDays <= 0 {
		return errors.New("policy: trust windows must be positive")
	}
	if p.Trust.MaxScore <= 0 || p.Trust.MaxVerificationTier <= 0 {
		return errors.New("policy: max score and max tier must be positive")
	}
	if p.Risk.MediumThreshold >= p.Risk.HighThreshold {
		return fmt.Errorf("policy: medium threshold %d must be below high threshold %d", p.Risk.MediumThreshold, p.Risk.HighThreshold)
	}
	for i := 1; i < len(p.Risk.AmountTiers); i++ {
		if p.Risk.AmountTiers[i].Above >= p.Risk.AmountTiers[i-1].Above {
			return errors.New("policy: amount tiers must be sorted by descending threshold")
		}
	}
	for _, r := range p.Risk.CustomRules {
		if r.Name == "" || r.Expression == "" {
			return errors.New("policy: custom risk rule requires name and expression")
		}
		if r.Points < 0 {
			return fmt.Errorf("policy: custom risk rule %s has negative points", r.Name)
		}
	}
	if p.Escrow.FeeBps < 0 || p.Escrow.FeeBps > 10_000 {
		return fmt.Errorf("policy: escrow fee bps out of range: %d", p.Escrow.FeeBps)
	}
	if p.Dispute.GPSRadiusMeters <= 0 || p.Dispute.TimingToleranceMinutes <= 0 {
		return errors.New("policy: dispute tolerances must be positive")
	}
	return nil
}

// TierOf maps a trust score to its tier label.
func (t TrustPolicy) TierOf(score int) string {
	switch {
	case score >= t.Tiers.Elite:
		return "Elite"
	case score >= t.Tiers.High:
		return "High"
	case score >= t.Tiers.Medium:
		return "Medium"
	case score >= t.Tiers.Low:
		return "Low"
	default:
		return "New"
	}
}
