package risk

import "github.com/shopspring/decimal"

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	FactorClientLowTrust                   = "client_low_trust"
	FactorProviderLowTrust                 = "provider_low_trust"
	FactorClientInsufficientVerification   = "client_insufficient_verification"
	FactorProviderInsufficientVerification = "provider_insufficient_verification"
	FactorClientNewAccount                 = "client_new_account"
	FactorProviderInactive                 = "provider_inactive"
	FactorHighAmountForTrust               = "high_amount_for_trust"
)

var recommendations = map[string]string{
	FactorClientLowTrust:                   "Hold funds in escrow until the service is confirmed",
	FactorProviderLowTrust:                 "Request provider references or a completion proof with GPS",
	FactorClientInsufficientVerification:   "Ask the client to upgrade identity verification",
	FactorProviderInsufficientVerification: "Ask the provider to upgrade identity verification",
	FactorClientNewAccount:                 "Limit the first transactions of new clients",
	FactorProviderInactive:                 "Confirm provider availability before scheduling",
	FactorHighAmountForTrust:               "Split the amount or require additional verification",
}

type Request struct {
	ClientID    string          `json:"client_id"`
	ProviderID  string          `json:"provider_id"`
	Amount      decimal.Decimal `json:"amount"`
	ServiceType string          `json:"service_type"`
}

// Factor is one rule that fired, with the points it contributed.
type Factor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type Assessment struct {
	RiskLevel            Level    `json:"risk_level"`
	RiskScore            int      `json:"risk_score"`
	RiskFactors          []string `json:"risk_factors"`
	Recommendations      []string `json:"recommendations"`
	EscrowRequired       bool     `json:"escrow_required"`
	VerificationRequired bool     `json:"verification_required"`
	RequiredTier         int      `json:"required_tier"`
	Breakdown            []Factor `json:"breakdown"`
	PolicyVersion        string   `json:"policy_version"`
}

func (a *Assessment) add(name string, points int, recommendation string) {
	a.RiskScore += points
	a.RiskFactors = append(a.RiskFactors, name)
	a.Breakdown = append(a.Breakdown, Factor{Name: name, Points: points})
	if recommendation != "" {
		a.Recommendations = append(a.Recommendations, recommendation)
	}
}
