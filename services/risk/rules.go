package risk

import (
	"fmt"

	"smallbiznis-trustescrow/pkg/celengine"
	"smallbiznis-trustescrow/pkg/observability"
	"smallbiznis-trustescrow/pkg/policy"

	"github.com/google/cel-go/cel"
)

// ruleInput is the variable set exposed to custom rule expressions.
type ruleInput struct {
	Amount               float64
	ServiceType          string
	ClientTrust          int64
	ProviderTrust        int64
	ClientTier           int64
	ProviderTier         int64
	RequiredTier         int64
	ClientAgeDays        float64
	ProviderInactiveDays float64
}

func (in ruleInput) attrs() map[string]any {
	return map[string]any{
		"amount":                 in.Amount,
		"service_type":           in.ServiceType,
		"client_trust":           in.ClientTrust,
		"provider_trust":         in.ProviderTrust,
		"client_tier":            in.ClientTier,
		"provider_tier":          in.ProviderTier,
		"required_tier":          in.RequiredTier,
		"client_age_days":        in.ClientAgeDays,
		"provider_inactive_days": in.ProviderInactiveDays,
	}
}

// RuleSet evaluates operator defined CEL rules on top of the built-in ones.
type RuleSet struct {
	env   *cel.Env
	rules []policy.CustomRule
	cache *celengine.ProgramCache
}

// NewRuleSet compiles every rule up front so a bad expression fails at
// startup rather than on the first assessment.
func NewRuleSet(rules []policy.CustomRule) (*RuleSet, error) {
	env, err := celengine.GetOrBuildEnv(ruleInput{}.attrs())
	if err != nil {
		return nil, err
	}
	cache := celengine.NewProgramCache()
	cache.OnLookup = observability.Metrics().RuleCache

	for _, r := range rules {
		if _, err := cache.Program(env, r.Expression); err != nil {
			return nil, fmt.Errorf("risk rule %s: %w", r.Name, err)
		}
	}
	return &RuleSet{env: env, rules: rules, cache: cache}, nil
}

func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

func (rs *RuleSet) apply(a *Assessment, in ruleInput) error {
	if rs == nil {
		return nil
	}
	attrs := in.attrs()
	for _, r := range rs.rules {
		prg, err := rs.cache.Program(rs.env, r.Expression)
		if err != nil {
			return fmt.Errorf("risk rule %s: %w", r.Name, err)
		}
		hit, err := celengine.EvalBool(prg, attrs)
		if err != nil {
			return fmt.Errorf("risk rule %s: %w", r.Name, err)
		}
		if hit {
			a.add(r.Name, r.Points, "")
		}
	}
	return nil
}
