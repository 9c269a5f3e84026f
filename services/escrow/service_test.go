package escrow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/mirror"
	"smallbiznis-trustescrow/pkg/payment"
	paymentmock "smallbiznis-trustescrow/pkg/payment/mock"
	"smallbiznis-trustescrow/pkg/policy"
	"smallbiznis-trustescrow/pkg/task"
	"smallbiznis-trustescrow/services/dispute"
	"smallbiznis-trustescrow/services/ledger"
	"smallbiznis-trustescrow/services/risk"
	"smallbiznis-trustescrow/services/testutil"
	"smallbiznis-trustescrow/services/user"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

var site = &dispute.Location{Lat: -6.2, Lng: 106.8, Address: "Jl. Sudirman 1"}

// metersNorth shifts the site latitude by roughly m meters.
func metersNorth(m float64) *dispute.GPS {
	return &dispute.GPS{Lat: site.Lat + m/111_195, Lng: site.Lng}
}

type recordingMirror struct {
	records []mirror.Record
	err     error
}

func (m *recordingMirror) MirrorEscrow(_ context.Context, rec mirror.Record) error {
	m.records = append(m.records, rec)
	return m.err
}

type recordingEnqueuer struct {
	users []string
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	p, err := task.DecodeRecalculate(t)
	if err != nil {
		return nil, err
	}
	e.users = append(e.users, p.UserID)
	return &asynq.TaskInfo{}, nil
}

type decimalEq struct{ want decimal.Decimal }

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string { return fmt.Sprintf("decimal equal to %s", m.want) }

type harness struct {
	svc      *Service
	db       *gorm.DB
	mirror   *recordingMirror
	enqueuer *recordingEnqueuer
}

func newHarness(t *testing.T, port payment.Port) *harness {
	t.Helper()
	db := testutil.NewTestDB(t, &user.User{}, &ledger.TrustEvent{}, &Transaction{}, &dispute.Case{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	seed := []*user.User{
		{ID: "client", TrustScore: 500, ReputationScore: 5, VerificationTier: 2, CreatedAt: now.AddDate(0, -6, 0), LastActive: now.Add(-time.Hour)},
		{ID: "provider", TrustScore: 500, ReputationScore: 0, VerificationTier: 2, CreatedAt: now.AddDate(0, -6, 0), LastActive: now.Add(-time.Hour)},
		{ID: "newcomer", TrustScore: 150, VerificationTier: 1, CreatedAt: now.AddDate(0, 0, -2), LastActive: now},
		{ID: "stranger", TrustScore: 500, VerificationTier: 2, CreatedAt: now.AddDate(-1, 0, 0), LastActive: now},
	}
	for _, u := range seed {
		require.NoError(t, db.Create(u).Error)
	}

	p := policy.Default()
	users := user.NewService(user.ServiceParams{DB: db})
	led := ledger.NewService(ledger.ServiceParams{DB: db, Node: node, Users: users})
	led.SetNowFunc(func() time.Time { return now })
	rs, err := risk.NewService(risk.ServiceParams{Users: users, Policy: p})
	require.NoError(t, err)
	rs.SetNowFunc(func() time.Time { return now })

	h := &harness{db: db, mirror: &recordingMirror{}, enqueuer: &recordingEnqueuer{}}
	h.svc = NewService(ServiceParams{
		DB:       db,
		Node:     node,
		Policy:   p,
		Users:    users,
		Ledger:   led,
		Risk:     rs,
		Resolver: dispute.NewResolver(dispute.ResolverParams{DB: db, Policy: p}),
		Payment:  port,
		Mirror:   h.mirror,
		Enqueuer: h.enqueuer,
	})
	h.svc.SetNowFunc(func() time.Time { return now })
	return h
}

func (h *harness) create(t *testing.T) *CreateResult {
	t.Helper()
	scheduled := now.Add(2 * time.Hour)
	res, err := h.svc.CreateEscrow(context.Background(), CreateRequest{
		ClientID:      "client",
		ProviderID:    "provider",
		ServiceID:     "svc-1",
		ServiceType:   "cleaning",
		Amount:        decimal.NewFromInt(200),
		ScheduledTime: &scheduled,
		Location:      site,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) reload(t *testing.T, id string) Transaction {
	t.Helper()
	var tx Transaction
	require.NoError(t, h.db.First(&tx, "id = ?", id).Error)
	return tx
}

func (h *harness) reputation(t *testing.T, id string) int {
	t.Helper()
	var u user.User
	require.NoError(t, h.db.First(&u, "id = ?", id).Error)
	return u.ReputationScore
}

func (h *harness) eventCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&ledger.TrustEvent{}).Count(&n).Error)
	return n
}

func TestCanTransition(t *testing.T) {
	all := []Status{StatusPending, StatusEscrowed, StatusCompleted, StatusDisputed, StatusCancelled, StatusResolved}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusEscrowed}:   true,
		{StatusEscrowed, StatusCompleted}: true,
		{StatusEscrowed, StatusDisputed}:  true,
		{StatusEscrowed, StatusCancelled}: true,
		{StatusDisputed, StatusResolved}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			require.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	require.True(t, StatusResolved.Terminal())
	require.False(t, StatusDisputed.Terminal())
}

func TestCreateEscrowHoldsFunds(t *testing.T) {
	pay := payment.NewSandbox()
	h := newHarness(t, pay)

	res := h.create(t)
	require.Equal(t, StatusEscrowed, res.Status)
	require.True(t, res.Amount.Equal(decimal.NewFromInt(200)))

	row := h.reload(t, res.TransactionID)
	require.NotNil(t, row.ActiveKey)
	require.Equal(t, ActiveKeyFor("client", "provider", "svc-1"), *row.ActiveKey)

	hold, ok := pay.HoldOf(row.HoldID)
	require.True(t, ok)
	require.Equal(t, payment.HoldOpen, hold.State)

	require.Len(t, h.mirror.records, 1)
	require.Equal(t, res.TransactionID, h.mirror.records[0].TransactionID)
	require.Equal(t, "200", h.mirror.records[0].Amount)
}

func TestCreateEscrowBlockedByRisk(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := paymentmock.NewMockPort(ctrl)
	h := newHarness(t, port)

	_, err := h.svc.CreateEscrow(context.Background(), CreateRequest{
		ClientID:   "newcomer",
		ProviderID: "provider",
		ServiceID:  "svc-1",
		Amount:     decimal.NewFromInt(600),
	})
	require.True(t, errutil.Is(err, errutil.StatusForbidden))

	fields := map[string]bool{}
	for _, d := range errutil.DetailsOf(err) {
		fields[d.Field] = true
	}
	require.True(t, fields[risk.FactorClientLowTrust])
	require.True(t, fields[risk.FactorClientNewAccount])

	var n int64
	require.NoError(t, h.db.Model(&Transaction{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestCreateEscrowValidatesRequest(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())

	_, err := h.svc.CreateEscrow(context.Background(), CreateRequest{ClientID: "client", ProviderID: "client", ServiceID: "s", Amount: decimal.NewFromInt(10)})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	_, err = h.svc.CreateEscrow(context.Background(), CreateRequest{ClientID: "client", ProviderID: "provider", ServiceID: "s", Amount: decimal.Zero})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	_, err = h.svc.CreateEscrow(context.Background(), CreateRequest{ClientID: "ghost", ProviderID: "provider", ServiceID: "s", Amount: decimal.NewFromInt(10)})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestCreateEscrowRejectsDuplicateActive(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := paymentmock.NewMockPort(ctrl)
	h := newHarness(t, port)

	port.EXPECT().Hold(gomock.Any(), decimalEq{decimal.NewFromInt(200)}).Return("h1", nil).Times(1)

	first := h.create(t)
	_, err := h.svc.CreateEscrow(context.Background(), CreateRequest{
		ClientID:   "client",
		ProviderID: "provider",
		ServiceID:  "svc-1",
		Amount:     decimal.NewFromInt(200),
	})
	require.True(t, errutil.Is(err, errutil.StatusConflict))
	require.Equal(t, first.TransactionID, errutil.DetailsOf(err)[0].Message)
}

func TestCreateEscrowHoldFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := paymentmock.NewMockPort(ctrl)
	h := newHarness(t, port)

	port.EXPECT().Hold(gomock.Any(), gomock.Any()).Return("", errors.New("card declined"))

	_, err := h.svc.CreateEscrow(context.Background(), CreateRequest{
		ClientID:   "client",
		ProviderID: "provider",
		ServiceID:  "svc-1",
		Amount:     decimal.NewFromInt(200),
	})
	require.True(t, errutil.Is(err, errutil.StatusBadGateway))

	var n int64
	require.NoError(t, h.db.Model(&Transaction{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestCreateEscrowIgnoresMirrorFailure(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())
	h.mirror.err = errors.New("relayer down")

	res := h.create(t)
	require.Equal(t, StatusEscrowed, h.reload(t, res.TransactionID).Status)
}

func TestConfirmCompletion(t *testing.T) {
	pay := payment.NewSandbox()
	h := newHarness(t, pay)
	res := h.create(t)

	ts := now.Add(2*time.Hour + 10*time.Minute)
	out, err := h.svc.ConfirmCompletion(context.Background(), res.TransactionID, dispute.Proof{
		GPS:       metersNorth(50),
		Timestamp: &ts,
		Media:     []string{"s3://proofs/1.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Status)
	require.True(t, out.Validation.Valid)
	require.Len(t, out.Validation.Validations, 3)
	require.True(t, out.Fee.Equal(decimal.NewFromInt(10)))
	require.True(t, out.Payout.Equal(decimal.NewFromInt(190)))

	row := h.reload(t, res.TransactionID)
	require.Equal(t, StatusCompleted, row.Status)
	require.Nil(t, row.ActiveKey)
	require.NotNil(t, row.CompletedAt)

	hold, _ := pay.HoldOf(row.HoldID)
	require.Equal(t, payment.HoldCaptured, hold.State)
	require.True(t, pay.Transferred("provider").Equal(decimal.NewFromInt(190)))

	require.Equal(t, 15, h.reputation(t, "client"))
	require.Equal(t, 10, h.reputation(t, "provider"))
	require.ElementsMatch(t, []string{"client", "provider"}, h.enqueuer.users)
}

func TestConfirmCompletionRequiresEscrowed(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())

	completed := h.create(t)
	_, err := h.svc.ConfirmCompletion(context.Background(), completed.TransactionID, dispute.Proof{})
	require.NoError(t, err)
	_, err = h.svc.ConfirmCompletion(context.Background(), completed.TransactionID, dispute.Proof{})
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	disputed := h.create(t)
	_, err = h.svc.InitiateDispute(context.Background(), disputed.TransactionID, dispute.Request{Reason: "no show"}, "client")
	require.NoError(t, err)
	_, err = h.svc.ConfirmCompletion(context.Background(), disputed.TransactionID, dispute.Proof{})
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	_, err = h.svc.ConfirmCompletion(context.Background(), "missing", dispute.Proof{})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestConfirmCompletionRejectsDistantProof(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())
	res := h.create(t)
	before := h.eventCount(t)

	_, err := h.svc.ConfirmCompletion(context.Background(), res.TransactionID, dispute.Proof{GPS: metersNorth(150)})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
	require.Equal(t, "gps", errutil.DetailsOf(err)[0].Field)

	require.Equal(t, StatusEscrowed, h.reload(t, res.TransactionID).Status)
	require.Equal(t, before, h.eventCount(t))
}

func TestConfirmCompletionRollsBackOnCaptureFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := paymentmock.NewMockPort(ctrl)
	h := newHarness(t, port)

	port.EXPECT().Hold(gomock.Any(), gomock.Any()).Return("h1", nil)
	port.EXPECT().Capture(gomock.Any(), "h1").Return(errors.New("processor timeout"))

	res := h.create(t)
	_, err := h.svc.ConfirmCompletion(context.Background(), res.TransactionID, dispute.Proof{})
	require.True(t, errutil.Is(err, errutil.StatusBadGateway))

	row := h.reload(t, res.TransactionID)
	require.Equal(t, StatusEscrowed, row.Status)
	require.NotNil(t, row.ActiveKey)
	require.Nil(t, row.CapturedAt)
	require.Zero(t, h.eventCount(t))
	require.Equal(t, 5, h.reputation(t, "client"))
	require.Empty(t, h.enqueuer.users)
}

func TestConfirmCompletionResumesAfterTransferFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := paymentmock.NewMockPort(ctrl)
	h := newHarness(t, port)

	payout := decimalEq{decimal.NewFromInt(190)}
	gomock.InOrder(
		port.EXPECT().Hold(gomock.Any(), gomock.Any()).Return("h1", nil),
		port.EXPECT().Capture(gomock.Any(), "h1").Return(nil).Times(1),
		port.EXPECT().Transfer(gomock.Any(), "provider", payout).Return(errors.New("payout rail down")),
		port.EXPECT().Transfer(gomock.Any(), "provider", payout).Return(nil),
	)

	res := h.create(t)
	_, err := h.svc.ConfirmCompletion(context.Background(), res.TransactionID, dispute.Proof{})
	require.True(t, errutil.Is(err, errutil.StatusBadGateway))

	row := h.reload(t, res.TransactionID)
	require.Equal(t, StatusEscrowed, row.Status)
	require.NotNil(t, row.CapturedAt)
	require.Empty(t, row.CompletionProof)
	require.Zero(t, h.eventCount(t))

	// A captured hold cannot be refunded or frozen.
	_, err = h.svc.CancelEscrow(context.Background(), res.TransactionID, "client", "changed plans")
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))
	_, err = h.svc.InitiateDispute(context.Background(), res.TransactionID, dispute.Request{Reason: "no show"}, "client")
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	out, err := h.svc.ConfirmCompletion(context.Background(), res.TransactionID, dispute.Proof{})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Status)

	row = h.reload(t, res.TransactionID)
	require.Equal(t, StatusCompleted, row.Status)
	require.Nil(t, row.ActiveKey)
	require.Equal(t, 15, h.reputation(t, "client"))
	require.Equal(t, 10, h.reputation(t, "provider"))
}

func TestResolveDisputeProviderWins(t *testing.T) {
	pay := payment.NewSandbox()
	h := newHarness(t, pay)
	res := h.create(t)

	d, err := h.svc.InitiateDispute(context.Background(), res.TransactionID, dispute.Request{Reason: "incomplete work", Evidence: []string{"photo-1"}}, "client")
	require.NoError(t, err)
	require.Equal(t, StatusDisputed, d.Status)

	out, err := h.svc.ResolveDispute(context.Background(), res.TransactionID, dispute.Resolution{Winner: dispute.WinnerProvider, Reasoning: "work verified"})
	require.NoError(t, err)
	require.Equal(t, dispute.Deltas{Provider: 5, Client: -10}, out.Deltas)

	require.Equal(t, 5, h.reputation(t, "provider"))
	require.Equal(t, 0, h.reputation(t, "client"))

	row := h.reload(t, res.TransactionID)
	require.Equal(t, StatusResolved, row.Status)
	require.Nil(t, row.ActiveKey)
	hold, _ := pay.HoldOf(row.HoldID)
	require.Equal(t, payment.HoldCaptured, hold.State)
	require.True(t, pay.Transferred("provider").Equal(decimal.NewFromInt(190)))

	data, err := row.Dispute()
	require.NoError(t, err)
	require.Equal(t, d.DisputeID, data.DisputeID)
	require.Equal(t, dispute.CaseResolved, data.Status)
	require.Equal(t, dispute.WinnerProvider, data.Resolution.Winner)
	require.Equal(t, []string{"photo-1"}, data.Evidence)

	var c dispute.Case
	require.NoError(t, h.db.First(&c, "id = ?", d.DisputeID).Error)
	require.Equal(t, dispute.CaseResolved, c.Status)

	proof, err := row.Proof()
	require.NoError(t, err)
	require.NotNil(t, proof)
}

func TestResolveDisputeResumesAfterTransferFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := paymentmock.NewMockPort(ctrl)
	h := newHarness(t, port)

	payout := decimalEq{decimal.NewFromInt(190)}
	gomock.InOrder(
		port.EXPECT().Hold(gomock.Any(), gomock.Any()).Return("h1", nil),
		port.EXPECT().Capture(gomock.Any(), "h1").Return(nil).Times(1),
		port.EXPECT().Transfer(gomock.Any(), "provider", payout).Return(errors.New("payout rail down")),
		port.EXPECT().Transfer(gomock.Any(), "provider", payout).Return(nil),
	)

	res := h.create(t)
	_, err := h.svc.InitiateDispute(context.Background(), res.TransactionID, dispute.Request{Reason: "incomplete work"}, "client")
	require.NoError(t, err)

	win := dispute.Resolution{Winner: dispute.WinnerProvider, Evidence: []string{"report-7"}}
	_, err = h.svc.ResolveDispute(context.Background(), res.TransactionID, win)
	require.True(t, errutil.Is(err, errutil.StatusBadGateway))

	row := h.reload(t, res.TransactionID)
	require.Equal(t, StatusDisputed, row.Status)
	require.NotNil(t, row.CapturedAt)
	require.Equal(t, 5, h.reputation(t, "client"))

	// Once captured, the dispute can only settle in favour of the provider.
	_, err = h.svc.ResolveDispute(context.Background(), res.TransactionID, dispute.Resolution{Winner: dispute.WinnerClient})
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	out, err := h.svc.ResolveDispute(context.Background(), res.TransactionID, win)
	require.NoError(t, err)
	require.Equal(t, dispute.Deltas{Provider: 5, Client: -10}, out.Deltas)

	row = h.reload(t, res.TransactionID)
	require.Equal(t, StatusResolved, row.Status)
	proof, err := row.Proof()
	require.NoError(t, err)
	require.Equal(t, []string{"report-7"}, proof.Media)
}

func TestCompletionProofPresentOnlyWhenSettled(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())
	ctx := context.Background()
	create := func(service string) string {
		res, err := h.svc.CreateEscrow(ctx, CreateRequest{ClientID: "client", ProviderID: "provider", ServiceID: service, Amount: decimal.NewFromInt(50)})
		require.NoError(t, err)
		return res.TransactionID
	}

	escrowed := create("escrowed")

	cancelled := create("cancelled")
	_, err := h.svc.CancelEscrow(ctx, cancelled, "client", "")
	require.NoError(t, err)

	disputed := create("disputed")
	_, err = h.svc.InitiateDispute(ctx, disputed, dispute.Request{Reason: "late"}, "client")
	require.NoError(t, err)

	completed := create("completed")
	_, err = h.svc.ConfirmCompletion(ctx, completed, dispute.Proof{})
	require.NoError(t, err)

	resolved := create("resolved")
	_, err = h.svc.InitiateDispute(ctx, resolved, dispute.Request{Reason: "late"}, "provider")
	require.NoError(t, err)
	_, err = h.svc.ResolveDispute(ctx, resolved, dispute.Resolution{Winner: dispute.WinnerClient})
	require.NoError(t, err)

	want := map[string]bool{escrowed: false, cancelled: false, disputed: false, completed: true, resolved: true}
	for id, present := range want {
		snap, err := h.svc.GetEscrowStatus(ctx, id)
		require.NoError(t, err)
		require.Equal(t, present, snap.CompletionProof != nil, "%s is %s", id, snap.Status)
	}
}

func TestResolveDisputeClientWins(t *testing.T) {
	pay := payment.NewSandbox()
	h := newHarness(t, pay)
	res := h.create(t)

	_, err := h.svc.InitiateDispute(context.Background(), res.TransactionID, dispute.Request{Reason: "no show"}, "provider")
	require.NoError(t, err)
	_, err = h.svc.ResolveDispute(context.Background(), res.TransactionID, dispute.Resolution{Winner: dispute.WinnerClient})
	require.NoError(t, err)

	require.Equal(t, 10, h.reputation(t, "client"))
	require.Equal(t, 0, h.reputation(t, "provider"))

	row := h.reload(t, res.TransactionID)
	hold, _ := pay.HoldOf(row.HoldID)
	require.Equal(t, payment.HoldRefunded, hold.State)
	require.True(t, pay.Transferred("provider").IsZero())

	_, err = h.svc.ResolveDispute(context.Background(), res.TransactionID, dispute.Resolution{Winner: dispute.WinnerClient})
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))
}

func TestResolveDisputeRejectsInvalidWinner(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())
	_, err := h.svc.ResolveDispute(context.Background(), "any", dispute.Resolution{Winner: "arbiter"})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
}

func TestInitiateDisputeRequiresParty(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())
	res := h.create(t)

	_, err := h.svc.InitiateDispute(context.Background(), res.TransactionID, dispute.Request{Reason: "spam"}, "stranger")
	require.True(t, errutil.Is(err, errutil.StatusForbidden))

	_, err = h.svc.InitiateDispute(context.Background(), res.TransactionID, dispute.Request{}, "client")
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
	require.Equal(t, StatusEscrowed, h.reload(t, res.TransactionID).Status)
}

func TestCancelEscrowReleasesActiveKey(t *testing.T) {
	pay := payment.NewSandbox()
	h := newHarness(t, pay)
	res := h.create(t)

	out, err := h.svc.CancelEscrow(context.Background(), res.TransactionID, "client", "changed plans")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, out.Status)

	row := h.reload(t, res.TransactionID)
	require.Nil(t, row.ActiveKey)
	hold, _ := pay.HoldOf(row.HoldID)
	require.Equal(t, payment.HoldRefunded, hold.State)

	again := h.create(t)
	require.NotEqual(t, res.TransactionID, again.TransactionID)

	_, err = h.svc.CancelEscrow(context.Background(), res.TransactionID, "client", "")
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))
}

func TestGetEscrowStatus(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())
	res := h.create(t)

	snap, err := h.svc.GetEscrowStatus(context.Background(), res.TransactionID)
	require.NoError(t, err)
	require.Equal(t, "client", snap.ClientID)
	require.Equal(t, "provider", snap.ProviderID)
	require.Equal(t, "svc-1", snap.ServiceID)
	require.Equal(t, StatusEscrowed, snap.Status)
	require.Equal(t, site.Address, snap.Location.Address)
	require.Nil(t, snap.Dispute)

	_, err = h.svc.GetEscrowStatus(context.Background(), "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestFee(t *testing.T) {
	h := newHarness(t, payment.NewSandbox())
	fee, payout := h.svc.Fee(decimal.RequireFromString("99.99"))
	require.Equal(t, "4.9995", fee.String())
	require.Equal(t, "94.9905", payout.String())
}
