package user

import (
	"context"

	"smallbiznis-trustescrow/pkg/db/option"
	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	users repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		users: repository.ProvideStore[User](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.get(ctx, nil, id)
}

// GetForUpdate reads the user inside tx with a row lock.
func (s *Service) GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*User, error) {
	return s.get(ctx, tx, id, option.WithLockingUpdate())
}

func (s *Service) get(ctx context.Context, tx *gorm.DB, id string, opts ...option.QueryOption) (*User, error) {
	if id == "" {
		return nil, errutil.ValidationFailed("user id is required", nil)
	}
	u, err := s.users.WithTrx(tx).FindOne(ctx, &User{ID: id}, opts...)
	if err != nil {
		zap.L().Error("failed to query user", zap.String("user_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to query user", err)
	}
	if u == nil {
		return nil, errutil.NotFound("user not found", nil, errutil.WithDetails(errutil.Detail{Field: "user_id", Message: id}))
	}
	return u, nil
}

// Pair loads both counterparties; either missing is NotFound.
func (s *Service) Pair(ctx context.Context, clientID, providerID string) (*User, *User, error) {
	client, err := s.Get(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	provider, err := s.Get(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}
	return client, provider, nil
}

// SetTrustScore persists a recalculated score inside tx.
func (s *Service) SetTrustScore(ctx context.Context, tx *gorm.DB, id string, score int) error {
	return s.users.WithTrx(tx).Update(ctx, id, map[string]any{"trust_score": score})
}

// ApplyDeltas increments the score fields inside tx, flooring both at zero.
func (s *Service) ApplyDeltas(ctx context.Context, tx *gorm.DB, id string, trustDelta, reputationDelta int) error {
	if trustDelta == 0 && reputationDelta == 0 {
		return nil
	}
	res := tx.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]any{
		"trust_score":      gorm.Expr("CASE WHEN trust_score + ? < 0 THEN 0 ELSE trust_score + ? END", trustDelta, trustDelta),
		"reputation_score": gorm.Expr("CASE WHEN reputation_score + ? < 0 THEN 0 ELSE reputation_score + ? END", reputationDelta, reputationDelta),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("user not found", nil, errutil.WithDetails(errutil.Detail{Field: "user_id", Message: id}))
	}
	return nil
}
