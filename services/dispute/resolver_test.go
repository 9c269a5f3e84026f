package dispute

import (
	"context"
	"math"
	"testing"
	"time"

	"smallbiznis-trustescrow/pkg/errutil"
	"smallbiznis-trustescrow/pkg/policy"
	"smallbiznis-trustescrow/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	db := testutil.NewTestDB(t, &Case{})
	return NewResolver(ResolverParams{DB: db, Policy: policy.Default()})
}

// north returns a point m meters due north of loc.
func north(loc Location, m float64) *GPS {
	return &GPS{Lat: loc.Lat + m/(earthRadiusMeters*math.Pi/180), Lng: loc.Lng}
}

var site = Location{Lat: -6.2088, Lng: 106.8456}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of longitude on the equator
	require.InDelta(t, 111_195, Haversine(0, 0, 0, 1), 1)
	require.InDelta(t, 0, Haversine(site.Lat, site.Lng, site.Lat, site.Lng), 1e-9)
}

func TestValidateProofGPS(t *testing.T) {
	r := newResolver(t)

	far := r.ValidateProof(Proof{GPS: north(site, 150)}, &site, nil)
	require.False(t, far.Valid)
	require.Len(t, far.Validations, 1)
	require.InDelta(t, 150, far.Validations[0].Value, 0.5)

	near := r.ValidateProof(Proof{GPS: north(site, 50)}, &site, nil)
	require.True(t, near.Valid)
}

func TestValidateProofTiming(t *testing.T) {
	r := newResolver(t)
	scheduled := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	early := scheduled.Add(-29 * time.Minute)
	require.True(t, r.ValidateProof(Proof{Timestamp: &early}, nil, &scheduled).Valid)

	late := scheduled.Add(30 * time.Minute)
	require.False(t, r.ValidateProof(Proof{Timestamp: &late}, nil, &scheduled).Valid)
}

func TestValidateProofAllSuppliedChecksMustPass(t *testing.T) {
	r := newResolver(t)
	scheduled := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	ts := scheduled.Add(5 * time.Minute)

	res := r.ValidateProof(Proof{GPS: north(site, 150), Timestamp: &ts, Media: []string{"s3://proof/1.jpg"}}, &site, &scheduled)
	require.False(t, res.Valid)
	require.Len(t, res.Validations, 3)

	res = r.ValidateProof(Proof{GPS: north(site, 10), Timestamp: &ts, Media: []string{"s3://proof/1.jpg"}}, &site, &scheduled)
	require.True(t, res.Valid)
}

func TestValidateProofAbsentChecks(t *testing.T) {
	r := newResolver(t)

	res := r.ValidateProof(Proof{}, &site, nil)
	require.True(t, res.Valid)
	require.Empty(t, res.Validations)

	res = r.ValidateProof(Proof{Media: []string{"m1"}}, nil, nil)
	require.True(t, res.Valid)

	res = r.ValidateProof(Proof{GPS: &GPS{Lat: 1, Lng: 1}}, nil, nil)
	require.False(t, res.Valid, "gps with no location on record cannot be verified")
}

func TestProofValidate(t *testing.T) {
	require.NoError(t, Proof{GPS: &GPS{Lat: 10, Lng: 10}}.Validate())
	err := Proof{GPS: &GPS{Lat: 91}}.Validate()
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
	require.Error(t, Proof{Media: []string{""}}.Validate())
}

func TestOutcomeTable(t *testing.T) {
	r := newResolver(t)

	d, err := r.Outcome(WinnerProvider)
	require.NoError(t, err)
	require.Equal(t, Deltas{Provider: 5, Client: -10}, d)

	d, err = r.Outcome(WinnerClient)
	require.NoError(t, err)
	require.Equal(t, Deltas{Client: 5, Provider: -15}, d)

	_, err = r.Outcome("arbiter")
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
}

func TestCaseLifecycle(t *testing.T) {
	db := testutil.NewTestDB(t, &Case{})
	r := NewResolver(ResolverParams{DB: db, Policy: policy.Default()})
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	c, err := r.OpenCase(ctx, db, "tx-1", "client-1", "no show", now)
	require.NoError(t, err)

	open, err := r.ListOpenCases(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, r.CloseCase(ctx, db, c.ID, WinnerClient, now.Add(time.Hour)))
	err = r.CloseCase(ctx, db, c.ID, WinnerClient, now.Add(time.Hour))
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	got, err := r.GetCase(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, CaseResolved, got.Status)
	require.Equal(t, "client", got.Winner)

	open, err = r.ListOpenCases(ctx)
	require.NoError(t, err)
	require.Empty(t, open)
}
