package distribution_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
	"github.com/warp/revenue-engine/payment"
	"github.com/warp/revenue-engine/pricing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var now = time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func money(s string) generic.Money { return generic.MustMoney(s) }

func volumes(oil, gas string) distribution.ProductionVolumes {
	return distribution.ProductionVolumes{
		OilVolume: decimal.NewNullDecimal(dec(oil)),
		GasVolume: decimal.NewNullDecimal(dec(gas)),
	}
}

func scenarioParams() distribution.CreateParams {
	return distribution.CreateParams{
		OrganizationID:    "org-1",
		WellID:            "well-W",
		PartnerID:         "partner-1",
		DivisionOrderID:   "do-1",
		ProductionMonth:   generic.MustProductionMonth(2024, time.March),
		ProductionVolumes: volumes("1000", "5000"),
		RevenueBreakdown:  distribution.NewBreakdown(money("8125"), distribution.Deductions{}),
		CreatedBy:         "accountant",
	}
}

func created(t *testing.T) distribution.Distribution {
	t.Helper()
	d, _, err := distribution.Create(scenarioParams(), now)
	require.NoError(t, err)
	return d
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_ScenarioDistribution(t *testing.T) {
	// GIVEN: The 2024-03 royalty of $8,125 with no deductions
	// WHEN: The distribution is created
	// THEN: It is unpaid, calculated, at version 0, with a created event

	d, event, err := distribution.Create(scenarioParams(), now)
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.False(t, d.IsPaid)
	assert.Equal(t, 0, d.Version)
	assert.Equal(t, distribution.StatusCalculated, d.Status)
	assert.True(t, d.RevenueBreakdown.TotalRevenue.Equal(money("8125")))
	assert.True(t, d.RevenueBreakdown.NetRevenue.Equal(money("8125")))
	assert.Equal(t, "2024-03", d.ProductionMonth.String())

	assert.Equal(t, distribution.EventCreated, event.Type)
	assert.Equal(t, d.ID, event.DistributionID)
	assert.Equal(t, 0, event.Version)
	assert.Equal(t, "accountant", event.Actor)
}

func TestCreate_RequiresIdentity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*distribution.CreateParams)
		field  string
	}{
		{"organization", func(p *distribution.CreateParams) { p.OrganizationID = "" }, "organization_id"},
		{"well", func(p *distribution.CreateParams) { p.WellID = "" }, "well_id"},
		{"partner", func(p *distribution.CreateParams) { p.PartnerID = "" }, "partner_id"},
		{"division order", func(p *distribution.CreateParams) { p.DivisionOrderID = "" }, "division_order_id"},
		{"month", func(p *distribution.CreateParams) { p.ProductionMonth = generic.ProductionMonth{} }, "production_month"},
		{"negative oil", func(p *distribution.CreateParams) { p.ProductionVolumes = volumes("-1", "0") }, "oil_volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scenarioParams()
			tt.mutate(&p)

			_, _, err := distribution.Create(p, now)

			var ve *generic.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreate_RejectsNegativeNet(t *testing.T) {
	p := scenarioParams()
	p.RevenueBreakdown = distribution.NewBreakdown(money("100"), distribution.Deductions{
		SeveranceTax: generic.Some(money("150")),
	})

	_, _, err := distribution.Create(p, now)

	assert.ErrorIs(t, err, generic.ErrNegativeNetRevenue)
	assert.ErrorIs(t, err, generic.ErrBusinessRule)
}

// =============================================================================
// RECALCULATE
// =============================================================================

func TestRecalculate_AdvancesVersionAndReplacesData(t *testing.T) {
	d := created(t)
	breakdown := distribution.NewBreakdown(money("9000"), distribution.Deductions{
		SeveranceTax: generic.Some(money("414")),
	})

	next, event, err := d.Recalculate(distribution.RecalculateParams{
		ProductionVolumes: volumes("1100", "5000"),
		RevenueBreakdown:  breakdown,
		CalculatedBy:      "accountant",
		Reason:            "corrected run ticket",
	}, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, next.Version)
	assert.Equal(t, distribution.StatusRecalculated, next.Status)
	assert.True(t, next.RevenueBreakdown.NetRevenue.Equal(money("8586")))
	assert.True(t, next.ProductionVolumes.Equal(volumes("1100", "5000")))
	assert.Equal(t, d.CreatedAt, next.CreatedAt)
	assert.True(t, next.UpdatedAt.After(d.UpdatedAt))

	assert.Equal(t, 0, d.Version, "original snapshot is untouched")
	assert.Equal(t, distribution.EventRecalculated, event.Type)
	assert.Equal(t, "corrected run ticket", event.Reason)
	assert.Equal(t, "8125", event.Details["previous_net_revenue"])
}

func TestRecalculate_IdempotentInValue(t *testing.T) {
	// GIVEN: A distribution recalculated with some volumes and breakdown
	// WHEN: The same recalculation is applied again
	// THEN: The breakdown is identical in value, only the version differs

	d := created(t)
	params := distribution.RecalculateParams{
		ProductionVolumes: volumes("1200", "4800"),
		RevenueBreakdown: distribution.NewBreakdown(money("9300"), distribution.Deductions{
			TransportationCosts: generic.Some(money("120.50")),
			AdValorem:           generic.Some(money("0")),
		}),
		CalculatedBy: "accountant",
	}

	first, _, err := d.Recalculate(params, now)
	require.NoError(t, err)
	second, _, err := first.Recalculate(params, now)
	require.NoError(t, err)

	assert.True(t, first.RevenueBreakdown.Equal(second.RevenueBreakdown))
	assert.True(t, first.RevenueBreakdown.NetRevenue.Equal(second.RevenueBreakdown.NetRevenue))
	assert.True(t, first.ProductionVolumes.Equal(second.ProductionVolumes))
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
}

func TestRecalculate_NegativeNetRejectedWithoutChange(t *testing.T) {
	d := created(t)
	bad := distribution.NewBreakdown(money("100"), distribution.Deductions{
		OtherDeductions: generic.Some(money("100.01")),
	})

	next, _, err := d.Recalculate(distribution.RecalculateParams{
		RevenueBreakdown: bad,
		CalculatedBy:     "accountant",
	}, now)

	require.ErrorIs(t, err, generic.ErrNegativeNetRevenue)
	var br *generic.BusinessRuleError
	require.True(t, errors.As(err, &br))
	assert.Equal(t, d.ID, br.DistributionID)
	assert.Equal(t, d, next)
}

func TestRecalculate_RequiresActor(t *testing.T) {
	d := created(t)
	_, _, err := d.Recalculate(distribution.RecalculateParams{RevenueBreakdown: d.RevenueBreakdown}, now)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// MARK PAID
// =============================================================================

func TestMarkPaid_IsTerminal(t *testing.T) {
	// GIVEN: The scenario distribution
	// WHEN: It is paid with CHK-001 on 2024-04-01
	// THEN: It is paid at version 1, and further recalculation or payment fails

	d := created(t)
	paidOn := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	paid, event, err := d.MarkPaid(distribution.PaymentParams{
		CheckNumber:   "CHK-001",
		PaymentDate:   paidOn,
		PaymentMethod: "check",
		ProcessedBy:   "treasurer",
	}, now)
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	assert.Equal(t, 1, paid.Version)
	assert.Equal(t, distribution.StatusPaid, paid.Status)
	assert.Equal(t, "CHK-001", paid.PaymentInfo.CheckNumber)
	require.NotNil(t, paid.PaymentInfo.PaymentDate)
	assert.True(t, paid.PaymentInfo.PaymentDate.Equal(paidOn))
	assert.Equal(t, distribution.EventPaid, event.Type)
	assert.Equal(t, "2024-04-01", event.Details["payment_date"])

	_, _, err = paid.Recalculate(distribution.RecalculateParams{
		RevenueBreakdown: paid.RevenueBreakdown,
		CalculatedBy:     "accountant",
	}, now)
	assert.ErrorIs(t, err, generic.ErrAlreadyPaid)
	assert.ErrorIs(t, err, generic.ErrBusinessRule)

	_, _, err = paid.MarkPaid(distribution.PaymentParams{
		CheckNumber: "CHK-002",
		PaymentDate: paidOn,
		ProcessedBy: "treasurer",
	}, now)
	assert.ErrorIs(t, err, generic.ErrAlreadyPaid)
}

func TestMarkPaid_RequiresDate(t *testing.T) {
	d := created(t)
	_, _, err := d.MarkPaid(distribution.PaymentParams{CheckNumber: "CHK-001", ProcessedBy: "treasurer"}, now)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// BREAKDOWN
// =============================================================================

func TestBreakdown_Validate(t *testing.T) {
	t.Run("net within a cent is accepted", func(t *testing.T) {
		b := distribution.RevenueBreakdown{
			TotalRevenue: money("1000"),
			Deductions:   distribution.Deductions{SeveranceTax: generic.Some(money("46"))},
			NetRevenue:   money("954.01"),
		}
		assert.NoError(t, b.Validate())
	})

	t.Run("net off by more than a cent is invalid input", func(t *testing.T) {
		b := distribution.RevenueBreakdown{
			TotalRevenue: money("1000"),
			Deductions:   distribution.Deductions{SeveranceTax: generic.Some(money("46"))},
			NetRevenue:   money("960"),
		}
		err := b.Validate()
		assert.ErrorIs(t, err, generic.ErrInvalidInput)
		assert.Contains(t, err.Error(), "net_revenue")
	})

	t.Run("negative deduction is invalid input", func(t *testing.T) {
		b := distribution.NewBreakdown(money("1000"), distribution.Deductions{ProcessingCosts: generic.Some(money("-5"))})
		assert.ErrorIs(t, b.Validate(), generic.ErrInvalidInput)
	})

	t.Run("mixed currency is invalid input", func(t *testing.T) {
		b := distribution.NewBreakdown(money("1000"), distribution.Deductions{
			AdValorem: generic.Some(generic.NewMoneyIn(dec("5"), "CAD")),
		})
		assert.ErrorIs(t, b.Validate(), generic.ErrInvalidInput)
	})

	t.Run("zero deduction differs from absent", func(t *testing.T) {
		zero := distribution.NewBreakdown(money("10"), distribution.Deductions{AdValorem: generic.Some(money("0"))})
		absent := distribution.NewBreakdown(money("10"), distribution.Deductions{})
		assert.True(t, zero.NetRevenue.Equal(absent.NetRevenue))
		assert.False(t, zero.Equal(absent))
	})
}

func TestBreakdownFromPricing(t *testing.T) {
	result := pricing.StandardStrategy{}.CalculatePrice(
		pricing.MarketData{OilBasePrice: money("50"), GasBasePrice: money("3")},
		pricing.QualityData{}, pricing.LocationData{},
		pricing.Volumes{OilVolume: dec("1000"), GasVolume: dec("0")},
	)

	b := distribution.BreakdownFromPricing(result, pricing.Volumes{OilVolume: dec("1000")}, distribution.Deductions{
		SeveranceTax: generic.Some(money("2300")),
	})

	oil, ok := b.OilRevenue.Get()
	require.True(t, ok)
	assert.True(t, oil.Equal(money("50000")))
	assert.False(t, b.GasRevenue.IsPresent(), "no gas produced, gas revenue not applicable")
	assert.True(t, b.NetRevenue.Equal(money("47700")))
	assert.NoError(t, b.Validate())
}

func TestBreakdownFromPayment_Royalty(t *testing.T) {
	l := lease.LeaseData{RoyaltyRate: dec("0.125")}
	p := lease.ProductionData{OilVolume: dec("1000"), GasVolume: dec("5000"), OilPrice: money("50"), GasPrice: money("3")}
	amount := payment.NewRoyaltyStrategy().Calculate(l, p)

	b := distribution.BreakdownFromPayment(amount, distribution.Deductions{})

	assert.True(t, b.TotalRevenue.Equal(money("8125")))
	assert.True(t, b.NetRevenue.Equal(money("8125")))
	oil, _ := b.OilRevenue.Get()
	gas, _ := b.GasRevenue.Get()
	assert.True(t, oil.Equal(money("6250")))
	assert.True(t, gas.Equal(money("1875")))
}
