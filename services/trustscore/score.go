package trustscore

import (
	"math"
	"time"

	"smallbiznis-trustescrow/pkg/policy"
	"smallbiznis-trustescrow/services/user"
)

const daysPerMonth = 30.0

// Tier labels a score with the default thresholds.
func Tier(score int) string {
	return policy.Default().Trust.TierOf(score)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ComputeComponents derives the five normalised components.
func ComputeComponents(p policy.TrustPolicy, u *user.User, st Stats, now time.Time) Components {
	c := Components{
		TransactionSuccess: p.NeutralPrior,
		ResponseTime:       p.NeutralPrior,
		DisputeResolution:  p.NeutralPrior,
	}
	if st.Total > 0 {
		c.TransactionSuccess = clamp01(float64(st.Completed) / float64(st.Total))
		c.DisputeResolution = clamp01(1 - float64(st.Disputed)/float64(st.Total))
	}
	if st.Completed > 0 {
		c.ResponseTime = clamp01(1 - st.AvgCompletionHours/p.ResponseWindowHours)
	}

	ageMonths := u.AgeDays(now) / daysPerMonth
	c.Longevity = clamp01(ageMonths / p.LongevityMonths)
	c.VerificationLevel = clamp01(float64(u.VerificationTier) / float64(p.MaxVerificationTier))
	return c
}

// Decay is the recency multiplier, never below the policy floor.
func Decay(p policy.TrustPolicy, u *user.User, now time.Time) float64 {
	return math.Max(p.DecayFloor, math.Exp(-u.InactiveDays(now)/p.DecayWindowDays))
}

// Compute is the pure scoring function: the same snapshot and clock always
// produce the same result.
func Compute(p policy.TrustPolicy, u *user.User, st Stats, now time.Time) (int, Components, float64) {
	c := ComputeComponents(p, u, st, now)
	w := p.Weights
	weighted := c.TransactionSuccess*w.TransactionSuccess +
		c.ResponseTime*w.ResponseTime +
		c.DisputeResolution*w.DisputeResolution +
		c.Longevity*w.Longevity +
		c.VerificationLevel*w.VerificationLevel

	decay := Decay(p, u, now)
	score := int(math.Round(weighted * decay * float64(p.MaxScore)))
	if score < 0 {
		score = 0
	}
	if score > p.MaxScore {
		score = p.MaxScore
	}
	return score, c, decay
}
