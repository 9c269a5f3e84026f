package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smallbiznis-trustescrow/pkg/db/option"
	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/mirror"
	"smallbiznis-trustescrow/pkg/observability"
	"smallbiznis-trustescrow/pkg/payment"
	"smallbiznis-trustescrow/pkg/policy"
	"smallbiznis-trustescrow/pkg/repository"
	"smallbiznis-trustescrow/pkg/task"
	"smallbiznis-trustescrow/services/dispute"
	"smallbiznis-trustescrow/services/ledger"
	"smallbiznis-trustescrow/services/risk"
	"smallbiznis-trustescrow/services/user"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var bpsDivisor = decimal.NewFromInt(10_000)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	policy policy.Policy

	users    *user.Service
	ledger   *ledger.Service
	risk     *risk.Service
	resolver *dispute.Resolver

	payment  payment.Port
	mirror   mirror.EscrowMirror
	enqueuer task.Enqueuer

	transactions repository.Repository[Transaction]

	now func() time.Time
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Policy   policy.Policy
	Users    *user.Service
	Ledger   *ledger.Service
	Risk     *risk.Service
	Resolver *dispute.Resolver
	Payment  payment.Port
	Mirror   mirror.EscrowMirror `optional:"true"`
	Enqueuer task.Enqueuer       `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	m := p.Mirror
	if m == nil {
		m = mirror.Nop{}
	}
	return &Service{
		db:           p.DB,
		node:         p.Node,
		policy:       p.Policy,
		users:        p.Users,
		ledger:       p.Ledger,
		risk:         p.Risk,
		resolver:     p.Resolver,
		payment:      p.Payment,
		mirror:       m,
		enqueuer:     p.Enqueuer,
		transactions: repository.ProvideStore[Transaction](p.DB),
		now:          time.Now,
	}
}

func (s *Service) SetNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Fee returns the platform fee and the provider payout for amount.
func (s *Service) Fee(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	fee := amount.Mul(decimal.NewFromInt32(s.policy.Escrow.FeeBps)).Div(bpsDivisor)
	return fee, amount.Sub(fee)
}

func portError(call string, err error) error {
	observability.Metrics().PortError(call)
	return errutil.BadGateway(fmt.Sprintf("payment %s failed", call), err)
}

func preconditionFailed(t *Transaction, want Status) error {
	return errutil.UnprocessableEntity(
		fmt.Sprintf("escrow is %s, expected %s", t.Status, want), nil,
		errutil.WithDetails(errutil.Detail{Field: "status", Message: string(t.Status)}),
	)
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, id string, opts ...option.QueryOption) (*Transaction, error) {
	if id == "" {
		return nil, errutil.ValidationFailed("transaction id is required", nil)
	}
	t, err := s.transactions.WithTrx(tx).FindOne(ctx, &Transaction{ID: id}, opts...)
	if err != nil {
		return nil, errutil.Internal("failed to query escrow", err)
	}
	if t == nil {
		return nil, errutil.NotFound("escrow not found", nil, errutil.WithDetails(errutil.Detail{Field: "transaction_id", Message: id}))
	}
	return t, nil
}

// transition moves t from one status to another with a conditional update so
// a concurrent writer that already moved the row makes this call fail.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, t *Transaction, to Status, fields map[string]any) error {
	if !CanTransition(t.Status, to) {
		return preconditionFailed(t, to)
	}
	fields["status"] = to
	fields["updated_at"] = s.now().UTC()
	if to.Terminal() {
		fields["active_key"] = nil
	}
	res := tx.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND status = ?", t.ID, t.Status).
		Updates(fields)
	if res.Error != nil {
		return errutil.Internal("failed to update escrow", res.Error)
	}
	if res.RowsAffected == 0 {
		return errutil.UnprocessableEntity("escrow status changed concurrently", nil)
	}
	t.Status = to
	return nil
}

func settlementInProgress(t *Transaction) error {
	return errutil.UnprocessableEntity("escrow funds are already captured, settlement must be completed", nil,
		errutil.WithDetails(errutil.Detail{Field: "captured_at", Message: t.CapturedAt.Format(time.RFC3339)}))
}

// captureOnce captures the hold of escrow id and commits captured_at on its
// own, so a settlement whose transfer failed can be retried without a second
// capture. check runs against the locked row before any port call.
func (s *Service) captureOnce(ctx context.Context, id string, want Status, check func(*Transaction) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.load(ctx, tx, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t.Status != want {
			return preconditionFailed(t, want)
		}
		if check != nil {
			if err := check(t); err != nil {
				return err
			}
		}
		if t.CapturedAt != nil {
			return nil
		}

		res := tx.WithContext(ctx).Model(&Transaction{}).
			Where("id = ? AND status = ? AND captured_at IS NULL", t.ID, want).
			Update("captured_at", s.now().UTC())
		if res.Error != nil {
			return errutil.Internal("failed to record capture", res.Error)
		}
		if res.RowsAffected == 0 {
			return errutil.UnprocessableEntity("escrow status changed concurrently", nil)
		}
		if err := s.payment.Capture(ctx, t.HoldID); err != nil {
			return portError("capture", err)
		}
		return nil
	})
}

func (s *Service) validateProof(t *Transaction, proof dispute.Proof) (dispute.ValidationResult, error) {
	location, err := t.Location()
	if err != nil {
		return dispute.ValidationResult{}, errutil.Internal("corrupt location data", err)
	}
	validation := s.resolver.ValidateProof(proof, location, t.ScheduledTime)
	if !validation.Valid {
		var details []errutil.Detail
		for _, v := range validation.Validations {
			if !v.Valid {
				details = append(details, errutil.Detail{Field: string(v.Check), Message: v.Detail})
			}
		}
		return validation, errutil.ValidationFailed("completion proof rejected", nil, errutil.WithDetails(details...))
	}
	return validation, nil
}

func (s *Service) recalculate(ctx context.Context, reason string, userIDs ...string) {
	if s.enqueuer == nil {
		return
	}
	log := observability.LoggerFrom(ctx)
	for _, id := range userIDs {
		t, err := task.NewTrustRecalculate(id, reason)
		if err != nil {
			log.Warn("failed to build recalculation task", zap.String("user_id", id), zap.Error(err))
			continue
		}
		if _, err := s.enqueuer.Enqueue(ctx, t); err != nil {
			log.Warn("failed to enqueue recalculation", zap.String("user_id", id), zap.Error(err))
		}
	}
}

func (s *Service) mirrorEscrow(ctx context.Context, t *Transaction) {
	err := s.mirror.MirrorEscrow(ctx, mirror.Record{
		TransactionID: t.ID,
		ClientID:      t.ClientID,
		ProviderID:    t.ProviderID,
		ServiceID:     t.ServiceID,
		Amount:        t.Amount.String(),
		Status:        string(t.Status),
		HoldID:        t.HoldID,
		CreatedAt:     t.CreatedAt,
	})
	if err != nil {
		observability.Metrics().MirrorFailure()
		observability.LoggerFrom(ctx).Warn("failed to mirror escrow", zap.String("transaction_id", t.ID), zap.Error(err))
	}
}

func (r CreateRequest) Validate() error {
	var details []errutil.Detail
	if r.ClientID == "" {
		details = append(details, errutil.Detail{Field: "client_id", Message: "required"})
	}
	if r.ProviderID == "" {
		details = append(details, errutil.Detail{Field: "provider_id", Message: "required"})
	}
	if r.ServiceID == "" {
		details = append(details, errutil.Detail{Field: "service_id", Message: "required"})
	}
	if !r.Amount.IsPositive() {
		details = append(details, errutil.Detail{Field: "amount", Message: "must be positive"})
	}
	if r.ClientID != "" && r.ClientID == r.ProviderID {
		details = append(details, errutil.Detail{Field: "provider_id", Message: "must differ from client_id"})
	}
	if len(details) > 0 {
		return errutil.ValidationFailed("invalid escrow request", nil, errutil.WithDetails(details...))
	}
	if r.Location != nil {
		return r.Location.Validate()
	}
	return nil
}

// CreateEscrow assesses the counterparties, holds the funds and records the
// escrow. High risk requests are rejected before any hold is placed.
func (s *Service) CreateEscrow(ctx context.Context, req CreateRequest) (res *CreateResult, err error) {
	started := time.Now()
	ctx, span, log := observability.StartSpan(ctx, "escrow.CreateEscrow")
	defer func() {
		observability.EndSpan(span, err)
		observability.Metrics().ObserveTransition("create", started, err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	assessment, err := s.risk.Assess(ctx, risk.Request{
		ClientID:    req.ClientID,
		ProviderID:  req.ProviderID,
		Amount:      req.Amount,
		ServiceType: req.ServiceType,
	})
	if err != nil {
		return nil, err
	}
	if assessment.RiskLevel == risk.LevelHigh {
		details := make([]errutil.Detail, 0, len(assessment.Breakdown))
		for _, f := range assessment.Breakdown {
			details = append(details, errutil.Detail{Field: f.Name, Message: fmt.Sprintf("%d", f.Points)})
		}
		log.Info("escrow blocked by risk assessment",
			zap.String("client_id", req.ClientID),
			zap.String("provider_id", req.ProviderID),
			zap.Int("risk_score", assessment.RiskScore),
			zap.Strings("risk_factors", assessment.RiskFactors),
		)
		return nil, errutil.Forbidden("transaction blocked by risk assessment", nil, errutil.WithDetails(details...))
	}

	location, err := encodeJSON(req.Location)
	if err != nil {
		return nil, errutil.ValidationFailed("invalid location data", err)
	}

	key := ActiveKeyFor(req.ClientID, req.ProviderID, req.ServiceID)
	existing, err := s.transactions.FindOne(ctx, &Transaction{ActiveKey: &key})
	if err != nil {
		return nil, errutil.Internal("failed to query escrow", err)
	}
	if existing != nil {
		return nil, errutil.Conflict("an active escrow already exists for this service", nil,
			errutil.WithDetails(errutil.Detail{Field: "transaction_id", Message: existing.ID}))
	}

	holdID, err := s.payment.Hold(ctx, req.Amount)
	if err != nil {
		log.Error("failed to hold funds", zap.Error(err))
		return nil, portError("hold", err)
	}

	now := s.now().UTC()
	t := &Transaction{
		ID:             s.node.Generate().String(),
		ClientID:       req.ClientID,
		ProviderID:     req.ProviderID,
		ServiceID:      req.ServiceID,
		Amount:         req.Amount,
		PlatformFee:    decimal.Zero,
		ProviderPayout: decimal.Zero,
		Status:         StatusEscrowed,
		HoldID:         holdID,
		ActiveKey:      &key,
		ScheduledTime:  req.ScheduledTime,
		LocationData:   location,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.transactions.WithTrx(tx).FindOne(ctx, &Transaction{ActiveKey: &key})
		if err != nil {
			return errutil.Internal("failed to query escrow", err)
		}
		if existing != nil {
			return errutil.Conflict("an active escrow already exists for this service", nil,
				errutil.WithDetails(errutil.Detail{Field: "transaction_id", Message: existing.ID}))
		}
		if err := s.transactions.WithTrx(tx).Create(ctx, t); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errutil.Conflict("an active escrow already exists for this service", err)
			}
			return errutil.Internal("failed to create escrow", err)
		}
		return nil
	})
	if err != nil {
		if rerr := s.payment.Refund(ctx, holdID); rerr != nil {
			observability.Metrics().PortError("refund")
			log.Error("failed to release hold after create failure", zap.String("hold_id", holdID), zap.Error(rerr))
		}
		return nil, err
	}

	log.Info("escrow created",
		zap.String("transaction_id", t.ID),
		zap.String("amount", t.Amount.String()),
		zap.String("risk_level", string(assessment.RiskLevel)),
	)
	s.mirrorEscrow(ctx, t)

	return &CreateResult{
		TransactionID: t.ID,
		Status:        t.Status,
		Amount:        t.Amount,
		CreatedAt:     t.CreatedAt,
	}, nil
}

// ConfirmCompletion validates the completion proof, captures the hold and
// pays the provider out minus the platform fee.
func (s *Service) ConfirmCompletion(ctx context.Context, id string, proof dispute.Proof) (res *CompletionResult, err error) {
	started := time.Now()
	ctx, span, log := observability.StartSpan(ctx, "escrow.ConfirmCompletion")
	defer func() {
		observability.EndSpan(span, err)
		observability.Metrics().ObserveTransition("complete", started, err)
	}()

	if err := proof.Validate(); err != nil {
		return nil, err
	}

	err = s.captureOnce(ctx, id, StatusEscrowed, func(t *Transaction) error {
		_, err := s.validateProof(t, proof)
		return err
	})
	if err != nil {
		log.Warn("escrow capture failed", zap.String("transaction_id", id), zap.Error(err))
		return nil, err
	}

	var t *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = s.load(ctx, tx, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t.Status != StatusEscrowed {
			return preconditionFailed(t, StatusEscrowed)
		}
		if t.CapturedAt == nil {
			return errutil.Internal("escrow hold was not captured", nil)
		}

		validation, err := s.validateProof(t, proof)
		if err != nil {
			return err
		}

		proofData, err := encodeJSON(proof)
		if err != nil {
			return errutil.ValidationFailed("invalid completion proof", err)
		}

		fee, payout := s.Fee(t.Amount)
		completedAt := s.now().UTC()
		if err := s.transition(ctx, tx, t, StatusCompleted, map[string]any{
			"completed_at":     completedAt,
			"platform_fee":     fee,
			"provider_payout":  payout,
			"completion_proof": proofData,
		}); err != nil {
			return err
		}
		t.CompletedAt = &completedAt
		t.PlatformFee = fee
		t.ProviderPayout = payout

		for _, party := range []string{t.ClientID, t.ProviderID} {
			if _, err := s.ledger.AppendTx(ctx, tx, ledger.AppendParams{
				UserID:          party,
				Data:            ledger.TransactionCompleted{Role: t.Role(party), Amount: t.Amount.String()},
				ReputationDelta: s.policy.Trust.CompletionReputation,
				TransactionID:   t.ID,
			}); err != nil {
				return err
			}
		}

		if err := s.payment.Transfer(ctx, t.ProviderID, payout); err != nil {
			return portError("transfer", err)
		}

		res = &CompletionResult{
			Status:      t.Status,
			CompletedAt: completedAt,
			Fee:         fee,
			Payout:      payout,
			Validation:  validation,
		}
		return nil
	})
	if err != nil {
		log.Warn("escrow completion failed", zap.String("transaction_id", id), zap.Error(err))
		return nil, err
	}

	log.Info("escrow completed",
		zap.String("transaction_id", t.ID),
		zap.String("platform_fee", res.Fee.String()),
		zap.String("provider_payout", res.Payout.String()),
	)
	s.recalculate(ctx, string(StatusCompleted), t.ClientID, t.ProviderID)
	return res, nil
}

// InitiateDispute freezes an escrow. Funds stay held until resolution.
func (s *Service) InitiateDispute(ctx context.Context, id string, req dispute.Request, initiatorID string) (res *DisputeResult, err error) {
	started := time.Now()
	ctx, span, log := observability.StartSpan(ctx, "escrow.InitiateDispute")
	defer func() {
		observability.EndSpan(span, err)
		observability.Metrics().ObserveTransition("dispute", started, err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var t *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = s.load(ctx, tx, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t.Role(initiatorID) == "" {
			return errutil.Forbidden("only a party of the escrow can open a dispute", nil,
				errutil.WithDetails(errutil.Detail{Field: "initiator_id", Message: initiatorID}))
		}
		if t.Status != StatusEscrowed {
			return preconditionFailed(t, StatusEscrowed)
		}
		if t.CapturedAt != nil {
			return settlementInProgress(t)
		}

		openedAt := s.now().UTC()
		c, err := s.resolver.OpenCase(ctx, tx, t.ID, initiatorID, req.Reason, openedAt)
		if err != nil {
			return errutil.Internal("failed to open dispute case", err)
		}

		data, err := encodeJSON(dispute.Data{
			DisputeID:   c.ID,
			InitiatorID: initiatorID,
			Reason:      req.Reason,
			Evidence:    req.Evidence,
			Status:      dispute.CaseOpen,
			OpenedAt:    openedAt,
		})
		if err != nil {
			return errutil.Internal("failed to encode dispute data", err)
		}
		if err := s.transition(ctx, tx, t, StatusDisputed, map[string]any{"dispute_data": data}); err != nil {
			return err
		}

		for _, party := range []string{t.ClientID, t.ProviderID} {
			if _, err := s.ledger.AppendTx(ctx, tx, ledger.AppendParams{
				UserID:        party,
				Data:          ledger.DisputeOpened{DisputeID: c.ID, InitiatorID: initiatorID, Reason: req.Reason},
				TransactionID: t.ID,
			}); err != nil {
				return err
			}
		}

		res = &DisputeResult{DisputeID: c.ID, Status: t.Status}
		return nil
	})
	if err != nil {
		log.Warn("dispute initiation failed", zap.String("transaction_id", id), zap.Error(err))
		return nil, err
	}

	log.Info("escrow disputed",
		zap.String("transaction_id", t.ID),
		zap.String("dispute_id", res.DisputeID),
		zap.String("initiator_id", initiatorID),
	)
	s.recalculate(ctx, string(StatusDisputed), t.ClientID, t.ProviderID)
	return res, nil
}

// ResolveDispute settles a disputed escrow in favour of the winner and
// applies the reputation table to both parties.
func (s *Service) ResolveDispute(ctx context.Context, id string, resolution dispute.Resolution) (res *ResolveResult, err error) {
	started := time.Now()
	ctx, span, log := observability.StartSpan(ctx, "escrow.ResolveDispute")
	defer func() {
		observability.EndSpan(span, err)
		observability.Metrics().ObserveTransition("resolve", started, err)
	}()

	if err := resolution.Validate(); err != nil {
		return nil, err
	}
	deltas, err := s.resolver.Outcome(resolution.Winner)
	if err != nil {
		return nil, err
	}

	if resolution.Winner == dispute.WinnerProvider {
		if err := s.captureOnce(ctx, id, StatusDisputed, nil); err != nil {
			log.Warn("escrow capture failed", zap.String("transaction_id", id), zap.Error(err))
			return nil, err
		}
	}

	var t *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = s.load(ctx, tx, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t.Status != StatusDisputed {
			return preconditionFailed(t, StatusDisputed)
		}
		switch {
		case resolution.Winner == dispute.WinnerClient && t.CapturedAt != nil:
			return settlementInProgress(t)
		case resolution.Winner == dispute.WinnerProvider && t.CapturedAt == nil:
			return errutil.Internal("escrow hold was not captured", nil)
		}

		data, err := t.Dispute()
		if err != nil || data == nil {
			return errutil.Internal("missing dispute data", err)
		}

		resolution.ResolvedAt = s.now().UTC()
		data.Status = dispute.CaseResolved
		data.Resolution = &resolution
		raw, err := encodeJSON(data)
		if err != nil {
			return errutil.Internal("failed to encode dispute data", err)
		}

		proof, err := encodeJSON(dispute.Proof{Media: resolution.Evidence})
		if err != nil {
			return errutil.Internal("failed to encode resolution proof", err)
		}

		fields := map[string]any{"dispute_data": raw, "completion_proof": proof}
		var fee, payout decimal.Decimal
		if resolution.Winner == dispute.WinnerProvider {
			fee, payout = s.Fee(t.Amount)
			fields["platform_fee"] = fee
			fields["provider_payout"] = payout
		}
		if err := s.transition(ctx, tx, t, StatusResolved, fields); err != nil {
			return err
		}

		if err := s.resolver.CloseCase(ctx, tx, data.DisputeID, resolution.Winner, resolution.ResolvedAt); err != nil {
			return err
		}

		outcomes := []struct {
			userID string
			delta  int
		}{
			{t.ClientID, deltas.Client},
			{t.ProviderID, deltas.Provider},
		}
		for _, o := range outcomes {
			if _, err := s.ledger.AppendTx(ctx, tx, ledger.AppendParams{
				UserID: o.userID,
				Data: ledger.DisputeOutcome{
					DisputeID: data.DisputeID,
					Winner:    string(resolution.Winner),
					Role:      t.Role(o.userID),
				},
				ReputationDelta: o.delta,
				TransactionID:   t.ID,
			}); err != nil {
				return err
			}
		}

		switch resolution.Winner {
		case dispute.WinnerClient:
			if err := s.payment.Refund(ctx, t.HoldID); err != nil {
				return portError("refund", err)
			}
		case dispute.WinnerProvider:
			if err := s.payment.Transfer(ctx, t.ProviderID, payout); err != nil {
				return portError("transfer", err)
			}
		}

		res = &ResolveResult{Resolution: resolution, TransactionID: t.ID, Deltas: deltas}
		return nil
	})
	if err != nil {
		log.Warn("dispute resolution failed", zap.String("transaction_id", id), zap.Error(err))
		return nil, err
	}

	log.Info("dispute resolved",
		zap.String("transaction_id", t.ID),
		zap.String("winner", string(resolution.Winner)),
		zap.Int("client_delta", deltas.Client),
		zap.Int("provider_delta", deltas.Provider),
	)
	s.recalculate(ctx, string(StatusResolved), t.ClientID, t.ProviderID)
	return res, nil
}

// CancelEscrow releases the hold of an escrow that was never serviced.
func (s *Service) CancelEscrow(ctx context.Context, id, actorID, reason string) (res *CancelResult, err error) {
	started := time.Now()
	ctx, span, log := observability.StartSpan(ctx, "escrow.CancelEscrow")
	defer func() {
		observability.EndSpan(span, err)
		observability.Metrics().ObserveTransition("cancel", started, err)
	}()

	var t *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = s.load(ctx, tx, id, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t.Role(actorID) == "" {
			return errutil.Forbidden("only a party of the escrow can cancel it", nil,
				errutil.WithDetails(errutil.Detail{Field: "actor_id", Message: actorID}))
		}
		if t.Status != StatusEscrowed {
			return preconditionFailed(t, StatusEscrowed)
		}
		if t.CapturedAt != nil {
			return settlementInProgress(t)
		}
		if err := s.transition(ctx, tx, t, StatusCancelled, map[string]any{}); err != nil {
			return err
		}
		if err := s.payment.Refund(ctx, t.HoldID); err != nil {
			return portError("refund", err)
		}
		res = &CancelResult{TransactionID: t.ID, Status: t.Status}
		return nil
	})
	if err != nil {
		log.Warn("escrow cancellation failed", zap.String("transaction_id", id), zap.Error(err))
		return nil, err
	}

	log.Info("escrow cancelled",
		zap.String("transaction_id", t.ID),
		zap.String("actor_id", actorID),
		zap.String("reason", reason),
	)
	s.recalculate(ctx, string(StatusCancelled), t.ClientID, t.ProviderID)
	return res, nil
}

// GetEscrowStatus returns the read-only snapshot of an escrow.
func (s *Service) GetEscrowStatus(ctx context.Context, id string) (*Snapshot, error) {
	t, err := s.load(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	location, err := t.Location()
	if err != nil {
		return nil, errutil.Internal("corrupt location data", err)
	}
	data, err := t.Dispute()
	if err != nil {
		return nil, errutil.Internal("corrupt dispute data", err)
	}
	proof, err := t.Proof()
	if err != nil {
		return nil, errutil.Internal("corrupt completion proof", err)
	}

	return &Snapshot{
		TransactionID:   t.ID,
		Status:          t.Status,
		Amount:          t.Amount,
		PlatformFee:     t.PlatformFee,
		ProviderPayout:  t.ProviderPayout,
		ClientID:        t.ClientID,
		ProviderID:      t.ProviderID,
		ServiceID:       t.ServiceID,
		ScheduledTime:   t.ScheduledTime,
		Location:        location,
		Dispute:         data,
		CompletionProof: proof,
		CreatedAt:       t.CreatedAt,
		CompletedAt:     t.CompletedAt,
	}, nil
}
