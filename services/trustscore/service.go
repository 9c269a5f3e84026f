package trustscore

import (
	"context"
	"fmt"
	"time"

	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/observability"
	"smallbiznis-trustescrow/pkg/policy"
	"smallbiznis-trustescrow/pkg/task"
	"smallbiznis-trustescrow/services/escrow"
	"smallbiznis-trustescrow/services/ledger"
	"smallbiznis-trustescrow/services/user"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	users  *user.Service
	ledger *ledger.Service
	policy policy.Policy

	group singleflight.Group
	now   func() time.Time
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Users  *user.Service
	Ledger *ledger.Service
	Policy policy.Policy
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		users:  p.Users,
		ledger: p.Ledger,
		policy: p.Policy,
		now:    time.Now,
	}
}

func (s *Service) SetNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type statRow struct {
	Status      escrow.Status
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// stats aggregates the user's escrow history. Disputed counts every row that
// entered the dispute path, open or resolved.
func (s *Service) stats(ctx context.Context, tx *gorm.DB, userID string) (Stats, error) {
	var rows []statRow
	err := tx.WithContext(ctx).
		Model(&escrow.Transaction{}).
		Select("status", "created_at", "completed_at").
		Where("client_id = ? OR provider_id = ?", userID, userID).
		Find(&rows).Error
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	var hours float64
	var timed int
	for _, r := range rows {
		st.Total++
		switch r.Status {
		case escrow.StatusCompleted:
			st.Completed++
			if r.CompletedAt != nil {
				hours += r.CompletedAt.Sub(r.CreatedAt).Hours()
				timed++
			}
		case escrow.StatusDisputed, escrow.StatusResolved:
			st.Disputed++
		}
	}
	if timed > 0 {
		st.AvgCompletionHours = hours / float64(timed)
	}
	return st, nil
}

// Calculate re-derives the user's trust score from the escrow table and the
// user snapshot and persists it. Recalculation always wins over incremental
// ledger deltas; the replaced drift is recorded as a score_recalculated event.
func (s *Service) Calculate(ctx context.Context, userID string) (*Result, error) {
	ctx, span, log := observability.StartSpan(ctx, "trustscore.Calculate")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	now := s.now().UTC()
	var res *Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.users.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		st, err := s.stats(ctx, tx, userID)
		if err != nil {
			return err
		}

		drift, err := s.ledger.Drift(ctx, tx, userID)
		if err != nil {
			return err
		}

		score, components, decay := Compute(s.policy.Trust, u, st, now)
		res = &Result{
			UserID:        userID,
			Score:         score,
			Components:    components,
			Tier:          s.policy.Trust.TierOf(score),
			Decay:         decay,
			Stats:         st,
			PreviousScore: u.TrustScore,
			Drift:         drift,
			PolicyVersion: s.policy.Version,
			CalculatedAt:  now,
		}

		if score == u.TrustScore && drift == 0 {
			return nil
		}

		if _, err := s.ledger.AppendTx(ctx, tx, ledger.AppendParams{
			UserID: userID,
			Data: ledger.ScoreRecalculated{
				PreviousScore: u.TrustScore,
				NewScore:      score,
				Drift:         drift,
				PolicyVersion: s.policy.Version,
			},
		}); err != nil {
			return err
		}
		return s.users.SetTrustScore(ctx, tx, userID, score)
	})
	if err != nil {
		if errutil.StatusOf(err) == errutil.StatusUnknown {
			log.Error("failed to calculate trust score", zap.String("user_id", userID), zap.Error(err))
			err = errutil.Internal("failed to calculate trust score", err)
		}
		return nil, err
	}

	observability.Metrics().ObserveScore(res.Score)
	log.Info("trust score calculated",
		zap.String("user_id", userID),
		zap.Int("score", res.Score),
		zap.Int("previous_score", res.PreviousScore),
		zap.Int("drift", res.Drift),
		zap.String("tier", res.Tier),
	)
	return res, nil
}

// Recalculate collapses concurrent recalculations of the same user into one.
func (s *Service) Recalculate(ctx context.Context, userID string) (*Result, error) {
	v, err, _ := s.group.Do(userID, func() (any, error) {
		return s.Calculate(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// HandleRecalculate is the asynq handler for trust:recalculate tasks.
func (s *Service) HandleRecalculate(ctx context.Context, t *asynq.Task) error {
	p, err := task.DecodeRecalculate(t)
	if err != nil {
		observability.Metrics().ObserveTask(t.Type(), err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	_, err = s.Recalculate(ctx, p.UserID)
	observability.Metrics().ObserveTask(t.Type(), err)
	if err != nil {
		if errutil.Is(err, errutil.StatusNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
