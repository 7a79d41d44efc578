// Package storetest is a conformance suite run against every Store
// implementation, so the in-memory store and the SQL stores cannot drift.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/generic"
)

// Store is what the suite exercises.
type Store interface {
	distribution.Store
	generic.DivisionOrderStore
}

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) Store

var now = time.Date(2024, time.April, 15, 10, 30, 0, 123000000, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Run executes every conformance test against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("RoundTripPreservesEveryField", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("DuplicateNaturalKey", func(t *testing.T) { testDuplicateKey(t, newStore(t)) })
	t.Run("SaveIsCompareAndSwap", func(t *testing.T) { testCompareAndSwap(t, newStore(t)) })
	t.Run("ConcurrentSavesOneWinner", func(t *testing.T) { testConcurrentSaves(t, newStore(t)) })
	t.Run("MissingRecords", func(t *testing.T) { testMissing(t, newStore(t)) })
	t.Run("ListByWellOrdering", func(t *testing.T) { testListByWell(t, newStore(t)) })
	t.Run("DivisionOrderWindows", func(t *testing.T) { testDivisionOrders(t, newStore(t)) })
}

func newDistribution(t *testing.T, partner generic.PartnerID, month time.Month) (distribution.Distribution, distribution.Event) {
	t.Helper()
	d, e, err := distribution.Create(distribution.CreateParams{
		OrganizationID:   "org-1",
		WellID:           "well-1",
		PartnerID:        partner,
		DivisionOrderID:  "do-1",
		ProductionMonth:  generic.MustProductionMonth(2024, month),
		RevenueBreakdown: distribution.NewBreakdown(generic.MustMoney("1000"), distribution.Deductions{}),
		CreatedBy:        "tester",
	}, now)
	require.NoError(t, err)
	return d, e
}

func testRoundTrip(t *testing.T, s Store) {
	// GIVEN: A paid distribution with optional amounts both present and absent
	// WHEN: It is created, saved and loaded back
	// THEN: Every field survives, amounts exactly

	ctx := context.Background()
	deductions := distribution.Deductions{
		SeveranceTax:    generic.Some(generic.MustMoney("373.75")),
		OtherDeductions: generic.Some(generic.MustMoney("0")),
	}
	breakdown := distribution.NewBreakdown(generic.MustMoney("8125.00"), deductions)
	breakdown.OilRevenue = generic.Some(generic.MustMoney("6250.00"))

	d, created, err := distribution.Create(distribution.CreateParams{
		OrganizationID:  "org-1",
		WellID:          "well-1",
		PartnerID:       "partner-a",
		DivisionOrderID: "do-1",
		ProductionMonth: generic.MustProductionMonth(2024, time.March),
		ProductionVolumes: distribution.ProductionVolumes{
			OilVolume: decimal.NewNullDecimal(dec("1000.5")),
		},
		RevenueBreakdown: breakdown,
		CreatedBy:        "tester",
	}, now)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, d, created))

	paid, paidEvent, err := d.MarkPaid(distribution.PaymentParams{
		CheckNumber:   "CHK-1001",
		PaymentDate:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		PaymentMethod: "check",
		ProcessedBy:   "ops",
	}, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, paid, d.Version, paidEvent))

	loaded, err := s.Load(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, paid.ID, loaded.ID)
	assert.Equal(t, paid.Key(), loaded.Key())
	assert.Equal(t, paid.OrganizationID, loaded.OrganizationID)
	assert.True(t, paid.ProductionVolumes.Equal(loaded.ProductionVolumes))
	assert.False(t, loaded.ProductionVolumes.GasVolume.Valid)
	assert.True(t, paid.RevenueBreakdown.Equal(loaded.RevenueBreakdown), "got %+v", loaded.RevenueBreakdown)
	assert.True(t, loaded.RevenueBreakdown.NetRevenue.Amount.Equal(dec("7751.25")))
	assert.False(t, loaded.RevenueBreakdown.GasRevenue.IsPresent())
	assert.True(t, loaded.IsPaid)
	assert.Equal(t, distribution.StatusPaid, loaded.Status)
	assert.Equal(t, "CHK-1001", loaded.PaymentInfo.CheckNumber)
	require.NotNil(t, loaded.PaymentInfo.PaymentDate)
	assert.True(t, paid.PaymentInfo.PaymentDate.Equal(*loaded.PaymentInfo.PaymentDate))
	assert.True(t, paid.CreatedAt.Equal(loaded.CreatedAt))
	assert.True(t, paid.UpdatedAt.Equal(loaded.UpdatedAt))
	assert.Equal(t, 1, loaded.Version)

	events, err := s.Events(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, distribution.EventCreated, events[0].Type)
	assert.Equal(t, distribution.EventPaid, events[1].Type)
	assert.Equal(t, 1, events[1].Version)
	assert.Equal(t, "ops", events[1].Actor)
	assert.Equal(t, "2024-04-30", events[1].Details["payment_date"])
}

func testDuplicateKey(t *testing.T, s Store) {
	ctx := context.Background()

	first, e := newDistribution(t, "p1", time.March)
	require.NoError(t, s.Create(ctx, first, e))

	again, _ := newDistribution(t, "p1", time.March)
	assert.ErrorIs(t, s.Create(ctx, again), generic.ErrDuplicateDistribution)

	found, err := s.FindByKey(ctx, again.Key())
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	// A different month is a different key.
	other, _ := newDistribution(t, "p1", time.April)
	assert.NoError(t, s.Create(ctx, other))
}

func testCompareAndSwap(t *testing.T, s Store) {
	// GIVEN: Two writers that both loaded version 0
	// WHEN: They save one after the other
	// THEN: The second gets a version conflict and writes nothing

	ctx := context.Background()
	d, e := newDistribution(t, "p1", time.March)
	require.NoError(t, s.Create(ctx, d, e))

	params := distribution.RecalculateParams{
		RevenueBreakdown: distribution.NewBreakdown(generic.MustMoney("1200"), distribution.Deductions{}),
		CalculatedBy:     "writer-a",
	}
	a, ea, err := d.Recalculate(params, now)
	require.NoError(t, err)
	params.CalculatedBy = "writer-b"
	params.RevenueBreakdown = distribution.NewBreakdown(generic.MustMoney("900"), distribution.Deductions{})
	b, eb, err := d.Recalculate(params, now)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, a, 0, ea))
	err = s.Save(ctx, b, 0, eb)

	var conflict *generic.VersionConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, 0, conflict.Expected)
	assert.Equal(t, 1, conflict.Actual)

	loaded, err := s.Load(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, loaded.RevenueBreakdown.NetRevenue.Amount.Equal(dec("1200")))

	events, err := s.Events(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// A snapshot that skips a version is refused before touching storage.
	skipped := a
	skipped.Version = 5
	assert.ErrorIs(t, s.Save(ctx, skipped, 1), generic.ErrInvalidInput)
}

func testConcurrentSaves(t *testing.T, s Store) {
	ctx := context.Background()
	d, e := newDistribution(t, "p1", time.March)
	require.NoError(t, s.Create(ctx, d, e))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, ev, err := d.Recalculate(distribution.RecalculateParams{
				RevenueBreakdown: d.RevenueBreakdown,
				CalculatedBy:     "writer",
			}, now)
			if !assert.NoError(t, err) {
				return
			}
			err = s.Save(ctx, next, 0, ev)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, generic.ErrVersionConflict):
				conflicts++
			default:
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func testMissing(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Load(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	_, err = s.Events(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	d, _ := newDistribution(t, "p1", time.March)
	next, _, err := d.Recalculate(distribution.RecalculateParams{RevenueBreakdown: d.RevenueBreakdown, CalculatedBy: "x"}, now)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Save(ctx, next, 0), generic.ErrNotFound)

	_, err = s.FindByKey(ctx, d.Key())
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func testListByWell(t *testing.T, s Store) {
	ctx := context.Background()
	for _, c := range []struct {
		partner generic.PartnerID
		month   time.Month
	}{
		{"p2", time.April},
		{"p1", time.April},
		{"p2", time.March},
		{"p1", time.March},
	} {
		d, e := newDistribution(t, c.partner, c.month)
		require.NoError(t, s.Create(ctx, d, e))
	}

	all, err := s.ListByWell(ctx, "well-1", generic.ProductionMonth{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	got := make([]string, len(all))
	for i, d := range all {
		got[i] = d.ProductionMonth.String() + "/" + string(d.PartnerID)
	}
	assert.Equal(t, []string{"2024-03/p1", "2024-03/p2", "2024-04/p1", "2024-04/p2"}, got)

	april, err := s.ListByWell(ctx, "well-1", generic.MustProductionMonth(2024, time.April))
	require.NoError(t, err)
	assert.Len(t, april, 2)

	none, err := s.ListByWell(ctx, "well-9", generic.ProductionMonth{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDivisionOrders(t *testing.T, s Store) {
	// GIVEN: One open-ended interest, one that ended, one not started
	// WHEN: Active interests are listed for a date
	// THEN: Only interests whose window contains the date are returned

	ctx := context.Background()
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveInterest(ctx, generic.DivisionOrderInterest{
		DivisionOrderID: "do-b", WellID: "well-1", PartnerID: "partner-b",
		DecimalInterest: dec("0.25"), EffectiveFrom: jan,
	}))
	require.NoError(t, s.SaveInterest(ctx, generic.DivisionOrderInterest{
		DivisionOrderID: "do-a", WellID: "well-1", PartnerID: "partner-a",
		DecimalInterest: dec("0.75"), EffectiveFrom: jan, EffectiveTo: &mar,
	}))
	require.NoError(t, s.SaveInterest(ctx, generic.DivisionOrderInterest{
		DivisionOrderID: "do-c", WellID: "well-1", PartnerID: "partner-c",
		DecimalInterest: dec("0.75"), EffectiveFrom: mar,
	}))
	require.NoError(t, s.SaveInterest(ctx, generic.DivisionOrderInterest{
		DivisionOrderID: "do-z", WellID: "well-2", PartnerID: "partner-a",
		DecimalInterest: dec("1"), EffectiveFrom: jan,
	}))

	feb, err := s.ListActiveInterests(ctx, "well-1", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, feb, 2)
	assert.Equal(t, generic.PartnerID("partner-a"), feb[0].PartnerID)
	assert.Equal(t, generic.PartnerID("partner-b"), feb[1].PartnerID)

	// EffectiveTo is exclusive.
	onMar, err := s.ListActiveInterests(ctx, "well-1", mar)
	require.NoError(t, err)
	require.Len(t, onMar, 2)
	assert.Equal(t, generic.PartnerID("partner-b"), onMar[0].PartnerID)
	assert.Equal(t, generic.PartnerID("partner-c"), onMar[1].PartnerID)
	assert.True(t, onMar[1].DecimalInterest.Equal(dec("0.75")))

	// Saving the same id replaces the interest.
	require.NoError(t, s.SaveInterest(ctx, generic.DivisionOrderInterest{
		DivisionOrderID: "do-c", WellID: "well-1", PartnerID: "partner-c",
		DecimalInterest: dec("0.70"), EffectiveFrom: mar, EffectiveTo: &jun,
	}))
	after, err := s.ListActiveInterests(ctx, "well-1", mar)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.True(t, after[1].DecimalInterest.Equal(dec("0.7")))
	require.NotNil(t, after[1].EffectiveTo)
	assert.True(t, after[1].EffectiveTo.Equal(jun))

	wells, err := s.ListWells(ctx)
	require.NoError(t, err)
	assert.Equal(t, []generic.WellID{"well-1", "well-2"}, wells)
}
