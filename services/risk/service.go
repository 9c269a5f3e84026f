package risk

import (
	"context"
	"time"

	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/observability"
	"smallbiznis-trustescrow/pkg/policy"
	"smallbiznis-trustescrow/services/user"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	users  *user.Service
	policy policy.Policy
	rules  *RuleSet
	now    func() time.Time
}

type ServiceParams struct {
	fx.In
	Users  *user.Service
	Policy policy.Policy
}

func NewService(p ServiceParams) (*Service, error) {
	var rules *RuleSet
	if len(p.Policy.Risk.CustomRules) > 0 {
		var err error
		rules, err = NewRuleSet(p.Policy.Risk.CustomRules)
		if err != nil {
			return nil, err
		}
		zap.L().Info("custom risk rules loaded", zap.Int("count", rules.Len()))
	}
	return &Service{
		users:  p.Users,
		policy: p.Policy,
		rules:  rules,
		now:    time.Now,
	}, nil
}

func (s *Service) SetNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Assess scores the counterparty risk of a proposed transaction. Scores are
// additive so a larger amount never lowers the result.
func (s *Service) Assess(ctx context.Context, req Request) (*Assessment, error) {
	ctx, span, log := observability.StartSpan(ctx, "risk.Assess")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if !req.Amount.IsPositive() {
		err = errutil.ValidationFailed("amount must be positive", nil, errutil.WithDetails(errutil.Detail{Field: "amount", Message: req.Amount.String()}))
		return nil, err
	}
	if req.ClientID == req.ProviderID {
		err = errutil.ValidationFailed("client and provider must differ", nil)
		return nil, err
	}

	client, provider, err := s.users.Pair(ctx, req.ClientID, req.ProviderID)
	if err != nil {
		log.Warn("risk assessment blocked", zap.String("client_id", req.ClientID), zap.String("provider_id", req.ProviderID), zap.Error(err))
		return nil, err
	}

	a := s.evaluate(req, client, provider)
	if s.rules != nil {
		in := s.input(req, client, provider, a.RequiredTier)
		if err = s.rules.apply(a, in); err != nil {
			log.Error("custom risk rule failed", zap.Error(err))
			err = errutil.Internal("risk rule evaluation failed", err)
			return nil, err
		}
	}
	s.classify(a)

	observability.Metrics().ObserveRisk(string(a.RiskLevel))
	log.Info("risk assessed",
		zap.String("client_id", req.ClientID),
		zap.String("provider_id", req.ProviderID),
		zap.String("amount", req.Amount.String()),
		zap.Int("risk_score", a.RiskScore),
		zap.String("risk_level", string(a.RiskLevel)),
		zap.Strings("risk_factors", a.RiskFactors),
	)
	return a, nil
}

func (s *Service) evaluate(req Request, client, provider *user.User) *Assessment {
	rp := s.policy.Risk
	now := s.now()
	amount := req.Amount.InexactFloat64()

	a := &Assessment{
		RiskFactors:     []string{},
		Recommendations: []string{},
		Breakdown:       []Factor{},
		PolicyVersion:   s.policy.Version,
	}

	if client.TrustScore < rp.LowTrustThreshold {
		a.add(FactorClientLowTrust, rp.ClientLowTrustPoints, recommendations[FactorClientLowTrust])
	}
	if provider.TrustScore < rp.LowTrustThreshold {
		a.add(FactorProviderLowTrust, rp.ProviderLowTrustPoints, recommendations[FactorProviderLowTrust])
	}

	a.RequiredTier = rp.RequiredTier(amount)
	if client.VerificationTier < a.RequiredTier {
		a.add(FactorClientInsufficientVerification, rp.VerificationPoints, recommendations[FactorClientInsufficientVerification])
	}
	if provider.VerificationTier < a.RequiredTier {
		a.add(FactorProviderInsufficientVerification, rp.VerificationPoints, recommendations[FactorProviderInsufficientVerification])
	}

	if client.AgeDays(now) < rp.NewAccountDays {
		a.add(FactorClientNewAccount, rp.NewAccountPoints, recommendations[FactorClientNewAccount])
	}
	if provider.InactiveDays(now) > rp.InactiveDays {
		a.add(FactorProviderInactive, rp.InactivePoints, recommendations[FactorProviderInactive])
	}

	limit := float64(client.TrustScore) * rp.AmountTrustMultiplier
	if limit < rp.AmountFloor {
		limit = rp.AmountFloor
	}
	if amount > limit {
		a.add(FactorHighAmountForTrust, rp.HighAmountPoints, recommendations[FactorHighAmountForTrust])
	}

	return a
}

func (s *Service) input(req Request, client, provider *user.User, requiredTier int) ruleInput {
	now := s.now()
	return ruleInput{
		Amount:               req.Amount.InexactFloat64(),
		ServiceType:          req.ServiceType,
		ClientTrust:          int64(client.TrustScore),
		ProviderTrust:        int64(provider.TrustScore),
		ClientTier:           int64(client.VerificationTier),
		ProviderTier:         int64(provider.VerificationTier),
		RequiredTier:         int64(requiredTier),
		ClientAgeDays:        client.AgeDays(now),
		ProviderInactiveDays: provider.InactiveDays(now),
	}
}

func (s *Service) classify(a *Assessment) {
	rp := s.policy.Risk
	switch {
	case a.RiskScore < rp.MediumThreshold:
		a.RiskLevel = LevelLow
	case a.RiskScore < rp.HighThreshold:
		a.RiskLevel = LevelMedium
	default:
		a.RiskLevel = LevelHigh
	}
	a.EscrowRequired = a.RiskLevel != LevelLow
	a.VerificationRequired = a.RiskScore > rp.VerificationRequiredGT
}
