package user

import (
	"context"
	"testing"
	"time"

	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestGetNotFound(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	svc := NewService(ServiceParams{DB: db})

	_, err := svc.Get(context.Background(), "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	_, err = svc.Get(context.Background(), "")
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
}

func TestApplyDeltasFloorsAtZero(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	svc := NewService(ServiceParams{DB: db})
	ctx := context.Background()
	require.NoError(t, db.Create(&User{ID: "u1", TrustScore: 100, ReputationScore: 4, VerificationTier: 1}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ApplyDeltas(ctx, tx, "u1", 5, -10)
	})
	require.NoError(t, err)

	u, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 105, u.TrustScore)
	require.Equal(t, 0, u.ReputationScore)
}

func TestApplyDeltasNoUpperClamp(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	svc := NewService(ServiceParams{DB: db})
	ctx := context.Background()
	require.NoError(t, db.Create(&User{ID: "u1", TrustScore: 995, VerificationTier: 1}).Error)

	require.NoError(t, svc.ApplyDeltas(ctx, db, "u1", 20, 0))
	u, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1015, u.TrustScore)
}

func TestApplyDeltasUnknownUser(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	svc := NewService(ServiceParams{DB: db})
	err := svc.ApplyDeltas(context.Background(), db, "ghost", 1, 1)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestInactiveDays(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	u := &User{CreatedAt: now.AddDate(0, 0, -40)}
	require.InDelta(t, 40, u.InactiveDays(now), 1e-9)

	u.LastActive = now.AddDate(0, 0, -3)
	require.InDelta(t, 3, u.InactiveDays(now), 1e-9)
	require.InDelta(t, 40, u.AgeDays(now), 1e-9)
}
