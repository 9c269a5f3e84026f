package ledger

import (
	"context"
	"iter"
	"time"

	"smallbiznis-trustescrow/pkg/db/option"
	"smallbiznis-trustescrow/pkg/db/pagination"
	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/observability"
	"smallbiznis-trustescrow/pkg/repository"
	"smallbiznis-trustescrow/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	health "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

const defaultPageSize = 200

type Service struct {
	health.UnimplementedHealthServer

	db    *gorm.DB
	node  *snowflake.Node
	users *user.Service

	events repository.Repository[TrustEvent]

	now      func() time.Time
	pageSize int
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Users *user.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		users:    p.Users,
		events:   repository.ProvideStore[TrustEvent](p.DB),
		now:      time.Now,
		pageSize: defaultPageSize,
	}
}

// SetNowFunc overrides the clock used to stamp events.
func (s *Service) SetNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type AppendParams struct {
	UserID          string
	Data            EventData
	TrustDelta      int
	ReputationDelta int
	TransactionID   string
}

// Append writes one event and applies its deltas to the user in a single
// database transaction.
func (s *Service) Append(ctx context.Context, p AppendParams) (*TrustEvent, error) {
	var out *TrustEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.AppendTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AppendTx is Append inside a caller owned transaction. The user row is
// locked so the hash chain and the score deltas stay serialised per user.
func (s *Service) AppendTx(ctx context.Context, tx *gorm.DB, p AppendParams) (*TrustEvent, error) {
	log := observability.LoggerFrom(ctx).With(zap.String("user_id", p.UserID))

	if p.Data == nil {
		return nil, errutil.ValidationFailed("event data is required", nil)
	}
	if err := p.Data.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetForUpdate(ctx, tx, p.UserID); err != nil {
		return nil, err
	}

	last, err := s.lastEvent(ctx, tx, p.UserID)
	if err != nil {
		log.Error("failed to query last trust event", zap.Error(err))
		return nil, err
	}

	data, err := encodePayload(p.Data)
	if err != nil {
		return nil, errutil.ValidationFailed("failed to encode event data", err)
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	previousHash := GenesisHash
	if last != nil {
		previousHash = last.Hash
		if createdAt.Before(last.CreatedAt) {
			createdAt = last.CreatedAt.UTC()
		}
	}

	event := &TrustEvent{
		ID:              s.node.Generate().Int64(),
		UserID:          p.UserID,
		EventType:       p.Data.EventType(),
		EventData:       data,
		TrustDelta:      p.TrustDelta,
		ReputationDelta: p.ReputationDelta,
		CreatedAt:       createdAt,
		PreviousHash:    previousHash,
	}
	if p.TransactionID != "" {
		txID := p.TransactionID
		event.TransactionID = &txID
	}
	event.Hash = event.GenerateHash()

	if err := s.events.WithTrx(tx).Create(ctx, event); err != nil {
		log.Error("failed to append trust event", zap.Error(err))
		return nil, err
	}

	if err := s.users.ApplyDeltas(ctx, tx, p.UserID, p.TrustDelta, p.ReputationDelta); err != nil {
		log.Error("failed to apply trust deltas", zap.Error(err))
		return nil, err
	}

	return event, nil
}

func (s *Service) lastEvent(ctx context.Context, tx *gorm.DB, userID string) (*TrustEvent, error) {
	return s.events.WithTrx(tx).FindOne(ctx, &TrustEvent{UserID: userID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
	)
}

func after(createdAt time.Time, id int64) option.QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(created_at > ? OR (created_at = ? AND id > ?))", createdAt, createdAt, id)
	}
}

func ascending() []option.QueryOption {
	return []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithSortBy(option.QuerySortBy{OrderBy: "asc"}),
	}
}

// WindowedEvents yields the user's events strictly newer than since in
// ascending (created_at, id) order. Rows are fetched lazily in keyset pages;
// ranging over the sequence again restarts from since.
func (s *Service) WindowedEvents(ctx context.Context, userID string, since time.Time) iter.Seq2[*TrustEvent, error] {
	return s.scan(ctx, nil, userID, since.UTC(), nil)
}

// WindowedEventsTx is WindowedEvents reading through tx.
func (s *Service) WindowedEventsTx(ctx context.Context, tx *gorm.DB, userID string, since time.Time) iter.Seq2[*TrustEvent, error] {
	return s.scan(ctx, tx, userID, since.UTC(), nil)
}

func (s *Service) scan(ctx context.Context, tx *gorm.DB, userID string, since time.Time, start *TrustEvent) iter.Seq2[*TrustEvent, error] {
	return func(yield func(*TrustEvent, error) bool) {
		cursor := start
		for {
			opts := []option.QueryOption{
				option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.GT, Value: since}),
			}
			if cursor != nil {
				opts = append(opts, after(cursor.CreatedAt, cursor.ID))
			}
			opts = append(opts, ascending()...)
			opts = append(opts, option.WithLimit(s.pageSize))

			page, err := s.events.WithTrx(tx).Find(ctx, &TrustEvent{UserID: userID}, opts...)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			cursor = page[len(page)-1]
		}
	}
}

// Drift sums the trust deltas appended after the user's latest
// score_recalculated event, or over the whole history when there is none.
func (s *Service) Drift(ctx context.Context, tx *gorm.DB, userID string) (int, error) {
	last, err := s.events.WithTrx(tx).FindOne(ctx, &TrustEvent{UserID: userID, EventType: EventScoreRecalculated},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
	)
	if err != nil {
		return 0, err
	}

	drift := 0
	for e, err := range s.scan(ctx, tx, userID, time.Time{}, last) {
		if err != nil {
			return 0, err
		}
		drift += e.TrustDelta
	}
	return drift, nil
}

// ListEvents returns one cursor page of the user's events, oldest first.
func (s *Service) ListEvents(ctx context.Context, userID string, page pagination.Pagination) ([]*TrustEvent, *pagination.PageInfo, error) {
	log := observability.LoggerFrom(ctx)

	opts := []option.QueryOption{}
	if page.Cursor != "" {
		c, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		opts = append(opts, after(c.CreatedAt.UTC(), c.ID))
	}
	opts = append(opts, ascending()...)
	opts = append(opts, option.ApplyPagination(page))

	events, err := s.events.Find(ctx, &TrustEvent{UserID: userID}, opts...)
	if err != nil {
		log.Error("failed to list trust events", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, err
	}

	events, info, err := pagination.Page(events, page.Size(), func(e *TrustEvent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt.UTC(), ID: e.ID}
	})
	if err != nil {
		return nil, nil, errutil.Internal("failed to build cursor", err)
	}
	return events, info, nil
}

type ChainReport struct {
	UserID   string `json:"user_id"`
	Valid    bool   `json:"valid"`
	Checked  int    `json:"checked"`
	BrokenAt int64  `json:"broken_at,omitempty"`
}

// VerifyChain recomputes every hash of the user's chain.
func (s *Service) VerifyChain(ctx context.Context, userID string) (*ChainReport, error) {
	report := &ChainReport{UserID: userID, Valid: true}
	lastHash := GenesisHash
	for e, err := range s.WindowedEvents(ctx, userID, time.Time{}) {
		if err != nil {
			observability.LoggerFrom(ctx).Error("failed to read trust events", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
		report.Checked++
		if e.PreviousHash != lastHash || e.Hash != e.GenerateHash() {
			report.Valid = false
			report.BrokenAt = e.ID
			return report, nil
		}
		lastHash = e.Hash
	}
	return report, nil
}
