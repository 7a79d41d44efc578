package payment_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
	"github.com/warp/revenue-engine/payment"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func money(s string) generic.Money { return generic.MustMoney(s) }

func scenarioProduction() lease.ProductionData {
	return lease.ProductionData{
		OilVolume:      dec("1000"),
		GasVolume:      dec("5000"),
		OilPrice:       money("50"),
		GasPrice:       money("3"),
		ProductionDate: time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
}

func royaltyOnlyLease() lease.LeaseData {
	return lease.LeaseData{LeaseID: "lease-1", RoyaltyRate: dec("0.125")}
}

// =============================================================================
// LEAF STRATEGIES
// =============================================================================

func TestRoyalty_ScenarioAmount(t *testing.T) {
	// GIVEN: 1000 bbl @ $50 and 5000 mcf @ $3 at a 12.5% royalty
	// WHEN: Royalty is calculated
	// THEN: Amount is exactly $8,125

	s := payment.NewRoyaltyStrategy()
	l, p := royaltyOnlyLease(), scenarioProduction()

	require.True(t, s.IsApplicable(l, p))
	result := s.Calculate(l, p)

	assert.True(t, result.Amount.Amount.Equal(dec("8125")), "got %s", result.Amount)
	assert.Equal(t, payment.TypeRoyalty, result.CalculationType)
	assert.Equal(t, generic.CurrencyUSD, result.Currency)
	assert.True(t, result.Breakdown["gross_revenue"].Equal(dec("65000")))
}

func TestRoyalty_NotApplicableWithoutProduction(t *testing.T) {
	s := payment.NewRoyaltyStrategy()
	p := scenarioProduction()
	p.OilVolume = decimal.Zero
	p.GasVolume = decimal.Zero

	assert.False(t, s.IsApplicable(royaltyOnlyLease(), p))
	assert.False(t, s.IsApplicable(lease.LeaseData{}, scenarioProduction()))
}

func TestWorkingInterest_NeverNegative(t *testing.T) {
	// GIVEN: Operating expenses larger than gross revenue
	// WHEN: Working interest is calculated
	// THEN: Payout is zero, never negative

	s := payment.NewWorkingInterestStrategy()
	p := scenarioProduction() // gross 65000

	for _, opex := range []string{"65000.01", "70000", "1000000"} {
		l := lease.LeaseData{
			WorkingInterest:   dec("0.75"),
			OperatingExpenses: generic.Some(money(opex)),
		}
		result := s.Calculate(l, p)
		assert.True(t, result.Amount.IsZero(), "opex %s produced %s", opex, result.Amount)
	}
}

func TestWorkingInterest_NetsExpensesBeforeMultiplier(t *testing.T) {
	s := payment.NewWorkingInterestStrategy()
	l := lease.LeaseData{
		WorkingInterest:   dec("0.5"),
		OperatingExpenses: generic.Some(money("15000")),
	}

	result := s.Calculate(l, scenarioProduction())

	// (65000 - 15000) x 0.5
	assert.True(t, result.Amount.Amount.Equal(dec("25000")), "got %s", result.Amount)
}

func TestWorkingInterest_AbsentExpensesTreatedAsZero(t *testing.T) {
	s := payment.NewWorkingInterestStrategy()
	l := lease.LeaseData{WorkingInterest: dec("1")}

	result := s.Calculate(l, scenarioProduction())

	assert.True(t, result.Amount.Amount.Equal(dec("65000")))
}

func TestNetRevenueInterest_IgnoresExpenses(t *testing.T) {
	s := payment.NewNetRevenueInterestStrategy()
	l := lease.LeaseData{
		NetRevenueInterest: dec("0.8"),
		OperatingExpenses:  generic.Some(money("100000")),
	}

	require.True(t, s.IsApplicable(l, scenarioProduction()))
	result := s.Calculate(l, scenarioProduction())

	assert.True(t, result.Amount.Amount.Equal(dec("52000")))
}

func TestLeaseBonus_IgnoresProduction(t *testing.T) {
	s := payment.NewLeaseBonusStrategy()
	l := lease.LeaseData{
		Acreage:           dec("640"),
		LeaseBonusPerAcre: generic.Some(money("250")),
	}

	assert.True(t, s.IsApplicable(l, lease.ProductionData{}))
	result := s.Calculate(l, lease.ProductionData{})
	assert.True(t, result.Amount.Amount.Equal(dec("160000")))

	assert.False(t, s.IsApplicable(lease.LeaseData{Acreage: dec("640")}, lease.ProductionData{}))
}

// =============================================================================
// COMPOSITE
// =============================================================================

func TestComposite_AdditivityOverAllSubsets(t *testing.T) {
	// GIVEN: Every subset of {royalty, WI, NRI, bonus} made applicable
	// WHEN: The composite of all four is calculated
	// THEN: Amount is the sum of the applicable leaves, breakdown has k entries

	p := scenarioProduction()
	composite := payment.NewCompositeStrategy(
		payment.NewRoyaltyStrategy(),
		payment.NewWorkingInterestStrategy(),
		payment.NewNetRevenueInterestStrategy(),
		payment.NewLeaseBonusStrategy(),
	)

	for mask := 0; mask < 16; mask++ {
		t.Run(fmt.Sprintf("mask_%04b", mask), func(t *testing.T) {
			l := lease.LeaseData{
				Acreage:           dec("320"),
				OperatingExpenses: generic.Some(money("5000")),
			}
			if mask&1 != 0 {
				l.RoyaltyRate = dec("0.125")
			}
			if mask&2 != 0 {
				l.WorkingInterest = dec("0.75")
			}
			if mask&4 != 0 {
				l.NetRevenueInterest = dec("0.65625")
			}
			if mask&8 != 0 {
				l.LeaseBonusPerAcre = generic.Some(money("100"))
			}

			expected := generic.ZeroMoney()
			k := 0
			for _, typ := range payment.AllCalculationTypes() {
				leaf, err := payment.NewStrategy(typ)
				require.NoError(t, err)
				if leaf.IsApplicable(l, p) {
					expected = expected.Add(leaf.Calculate(l, p).Amount)
					k++
				}
			}

			result := composite.Calculate(l, p)
			assert.True(t, result.Amount.Equal(expected), "got %s want %s", result.Amount, expected)
			assert.Len(t, result.Breakdown, k)
			assert.Equal(t, k > 0, composite.IsApplicable(l, p))
		})
	}
}

// =============================================================================
// FACTORY
// =============================================================================

func TestFactory_UnknownTagFails(t *testing.T) {
	_, err := payment.ForTypes(payment.TypeRoyalty, "overriding_royalty")

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrUnknownStrategy))
	assert.True(t, errors.Is(err, generic.ErrInvalidInput))
	assert.Contains(t, err.Error(), "overriding_royalty")
}

func TestFactory_SingleTagIsLeaf(t *testing.T) {
	s, err := payment.ForTypes(payment.TypeLeaseBonus)
	require.NoError(t, err)
	assert.Equal(t, payment.TypeLeaseBonus, s.CalculationType())

	s, err = payment.ForTypes(payment.TypeRoyalty, payment.TypeWorkingInterest)
	require.NoError(t, err)
	assert.Equal(t, payment.TypeComposite, s.CalculationType())
}

func TestFactory_CompositeNotResolvableByTag(t *testing.T) {
	_, err := payment.NewStrategy(payment.TypeComposite)
	assert.ErrorIs(t, err, generic.ErrUnknownStrategy)
}

func TestFactory_AutoSelect(t *testing.T) {
	p := scenarioProduction()

	t.Run("royalty only", func(t *testing.T) {
		s := payment.ForLease(royaltyOnlyLease(), p)
		assert.Equal(t, payment.TypeRoyalty, s.CalculationType())
	})

	t.Run("nothing applicable falls back to royalty", func(t *testing.T) {
		s := payment.ForLease(lease.LeaseData{}, p)
		assert.Equal(t, payment.TypeRoyalty, s.CalculationType())
	})

	t.Run("several applicable wraps in composite", func(t *testing.T) {
		l := royaltyOnlyLease()
		l.WorkingInterest = dec("0.5")
		s := payment.ForLease(l, p)
		require.Equal(t, payment.TypeComposite, s.CalculationType())

		composite := s.(*payment.CompositeStrategy)
		children := composite.Strategies()
		require.Len(t, children, 2)
		assert.Equal(t, payment.TypeRoyalty, children[0].CalculationType())
		assert.Equal(t, payment.TypeWorkingInterest, children[1].CalculationType())
	})
}

func TestParseCalculationTypes(t *testing.T) {
	types, err := payment.ParseCalculationTypes([]string{"royalty", "lease_bonus"})
	require.NoError(t, err)
	assert.Equal(t, []payment.CalculationType{payment.TypeRoyalty, payment.TypeLeaseBonus}, types)

	_, err = payment.ParseCalculationTypes([]string{"royalty", "bogus"})
	assert.ErrorIs(t, err, generic.ErrUnknownStrategy)
}
