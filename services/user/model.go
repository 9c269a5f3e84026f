package user

import "time"

// User is the identity snapshot the engine scores. The identity subsystem
// owns the row; this module only reads it and applies score deltas.
type User struct {
	ID               string    `gorm:"column:id;primaryKey"`
	TrustScore       int       `gorm:"column:trust_score;not null;default:0"`
	ReputationScore  int       `gorm:"column:reputation_score;not null;default:0"`
	VerificationTier int       `gorm:"column:verification_tier;not null;default:1"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	LastActive       time.Time `gorm:"column:last_active"`
}

func (User) TableName() string { return "users" }

// AgeDays returns the account age at now in fractional days.
func (u *User) AgeDays(now time.Time) float64 {
	return now.Sub(u.CreatedAt).Hours() / 24
}

// InactiveDays returns the time since last activity at now in fractional days.
// A zero LastActive counts from account creation.
func (u *User) InactiveDays(now time.Time) float64 {
	last := u.LastActive
	if last.IsZero() {
		last = u.CreatedAt
	}
	d := now.Sub(last).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}
