package dispute

import (
	"context"
	"fmt"
	"math"
	"time"

	"smallbiznis-trustescrow/pkg/db/option"
	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/policy"
	"smallbiznis-trustescrow/pkg/repository"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const earthRadiusMeters = 6_371_000.0

type Resolver struct {
	policy policy.DisputePolicy
	cases  repository.Repository[Case]
}

type ResolverParams struct {
	fx.In
	DB     *gorm.DB
	Policy policy.Policy
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		policy: p.Policy.Dispute,
		cases:  repository.ProvideStore[Case](p.DB),
	}
}

// Haversine returns the great circle distance between two points in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidateProof runs every check the proof supplies. A supplied check with
// nothing on record to compare against fails. The proof is valid when all
// supplied checks pass; an empty proof is valid.
func (r *Resolver) ValidateProof(proof Proof, location *Location, scheduled *time.Time) ValidationResult {
	res := ValidationResult{Valid: true, Validations: []Validation{}}

	if proof.GPS != nil {
		v := Validation{Check: CheckGPS}
		if location == nil {
			v.Detail = "no service location on record"
		} else {
			d := Haversine(proof.GPS.Lat, proof.GPS.Lng, location.Lat, location.Lng)
			v.Value = d
			v.Valid = d < r.policy.GPSRadiusMeters
			v.Detail = fmt.Sprintf("%.1fm from service location", d)
		}
		res.Validations = append(res.Validations, v)
	}

	if proof.Timestamp != nil {
		v := Validation{Check: CheckTiming}
		if scheduled == nil {
			v.Detail = "no scheduled time on record"
		} else {
			diff := math.Abs(proof.Timestamp.Sub(*scheduled).Minutes())
			v.Value = diff
			v.Valid = diff < r.policy.TimingToleranceMinutes
			v.Detail = fmt.Sprintf("%.1f minutes from scheduled time", diff)
		}
		res.Validations = append(res.Validations, v)
	}

	if len(proof.Media) > 0 {
		res.Validations = append(res.Validations, Validation{
			Check:  CheckMedia,
			Valid:  true,
			Value:  float64(len(proof.Media)),
			Detail: fmt.Sprintf("%d media references", len(proof.Media)),
		})
	}

	for _, v := range res.Validations {
		if !v.Valid {
			res.Valid = false
		}
	}
	return res
}

// Outcome returns the reputation deltas for winner.
func (r *Resolver) Outcome(winner Winner) (Deltas, error) {
	switch winner {
	case WinnerProvider:
		return Deltas{Provider: r.policy.ProviderWinProvider, Client: r.policy.ProviderWinClient}, nil
	case WinnerClient:
		return Deltas{Client: r.policy.ClientWinClient, Provider: r.policy.ClientWinProvider}, nil
	default:
		return Deltas{}, errutil.ValidationFailed("invalid winner", nil, errutil.WithDetails(errutil.Detail{Field: "winner", Message: string(winner)}))
	}
}

// OpenCase records a new dispute case inside tx.
func (r *Resolver) OpenCase(ctx context.Context, tx *gorm.DB, transactionID, initiatorID, reason string, at time.Time) (*Case, error) {
	c := &Case{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		InitiatorID:   initiatorID,
		Reason:        reason,
		Status:        CaseOpen,
		OpenedAt:      at,
	}
	if err := r.cases.WithTrx(tx).Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CloseCase marks the open case resolved inside tx.
func (r *Resolver) CloseCase(ctx context.Context, tx *gorm.DB, caseID string, winner Winner, at time.Time) error {
	c, err := r.cases.WithTrx(tx).FindOne(ctx, &Case{ID: caseID}, option.WithLockingUpdate())
	if err != nil {
		return err
	}
	if c == nil {
		return errutil.NotFound("dispute case not found", nil, errutil.WithDetails(errutil.Detail{Field: "dispute_id", Message: caseID}))
	}
	if c.Status != CaseOpen {
		return errutil.UnprocessableEntity("dispute case is not open", nil)
	}
	return r.cases.WithTrx(tx).Update(ctx, caseID, map[string]any{
		"status":      CaseResolved,
		"winner":      string(winner),
		"resolved_at": at,
	})
}

func (r *Resolver) ListOpenCases(ctx context.Context) ([]*Case, error) {
	return r.cases.Find(ctx, &Case{Status: CaseOpen}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "opened_at",
		OrderBy: "asc",
		Allow:   map[string]bool{"opened_at": true},
	}))
}

func (r *Resolver) GetCase(ctx context.Context, id string) (*Case, error) {
	c, err := r.cases.FindOne(ctx, &Case{ID: id})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errutil.NotFound("dispute case not found", nil)
	}
	return c, nil
}
