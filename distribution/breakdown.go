package distribution

import (
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/payment"
	"github.com/warp/revenue-engine/pricing"
)

// NetRevenueTolerance is the largest accepted gap between the stated net
// revenue and total minus deductions (one cent).
var NetRevenueTolerance = decimal.RequireFromString("0.01")

// =============================================================================
// DEDUCTIONS
// =============================================================================

// Deductions are the optional burdens netted out of total revenue. Absent
// means "not applicable", which is not the same as $0.00.
type Deductions struct {
	SeveranceTax        generic.OptionalMoney
	AdValorem           generic.OptionalMoney
	TransportationCosts generic.OptionalMoney
	ProcessingCosts     generic.OptionalMoney
	OtherDeductions     generic.OptionalMoney
}

type namedDeduction struct {
	field  string
	amount generic.OptionalMoney
}

func (d Deductions) named() []namedDeduction {
	return []namedDeduction{
		{"severance_tax", d.SeveranceTax},
		{"ad_valorem", d.AdValorem},
		{"transportation_costs", d.TransportationCosts},
		{"processing_costs", d.ProcessingCosts},
		{"other_deductions", d.OtherDeductions},
	}
}

// Total sums the present deductions.
func (d Deductions) Total() generic.Money {
	total := generic.ZeroMoney()
	for _, n := range d.named() {
		total = total.Add(n.amount.OrZero())
	}
	return total
}

func (d Deductions) Equal(o Deductions) bool {
	return d.SeveranceTax.Equal(o.SeveranceTax) &&
		d.AdValorem.Equal(o.AdValorem) &&
		d.TransportationCosts.Equal(o.TransportationCosts) &&
		d.ProcessingCosts.Equal(o.ProcessingCosts) &&
		d.OtherDeductions.Equal(o.OtherDeductions)
}

// =============================================================================
// REVENUE BREAKDOWN
// =============================================================================

// RevenueBreakdown is owned by a Distribution. Invariant once accepted:
// NetRevenue == TotalRevenue - Deductions.Total() and NetRevenue >= 0.
type RevenueBreakdown struct {
	OilRevenue   generic.OptionalMoney
	GasRevenue   generic.OptionalMoney
	TotalRevenue generic.Money
	Deductions
	NetRevenue generic.Money
}

// NewBreakdown derives NetRevenue from total and deductions.
func NewBreakdown(total generic.Money, d Deductions) RevenueBreakdown {
	return RevenueBreakdown{
		TotalRevenue: total,
		Deductions:   d,
		NetRevenue:   total.Sub(d.Total()),
	}
}

// BreakdownFromPricing values the well's whole stream at the effective
// prices. Oil and gas revenue are present only when that stream produced.
func BreakdownFromPricing(r pricing.Result, v pricing.Volumes, d Deductions) RevenueBreakdown {
	b := NewBreakdown(r.TotalValue, d)
	if v.OilVolume.IsPositive() {
		b.OilRevenue = generic.Some(r.OilPrice.Mul(v.OilVolume))
	}
	if v.GasVolume.IsPositive() {
		b.GasRevenue = generic.Some(r.GasPrice.Mul(v.GasVolume))
	}
	return b
}

// BreakdownFromPayment uses a payment amount as the owner's total revenue.
// For a royalty the oil and gas shares are carried over at the royalty rate.
func BreakdownFromPayment(a payment.Amount, d Deductions) RevenueBreakdown {
	b := NewBreakdown(a.Amount, d)
	if a.CalculationType != payment.TypeRoyalty {
		return b
	}
	rate := a.Breakdown["royalty_rate"]
	if oil, ok := a.Breakdown["oil_revenue"]; ok && oil.IsPositive() {
		b.OilRevenue = generic.Some(generic.NewMoney(oil.Mul(rate)))
	}
	if gas, ok := a.Breakdown["gas_revenue"]; ok && gas.IsPositive() {
		b.GasRevenue = generic.Some(generic.NewMoney(gas.Mul(rate)))
	}
	return b
}

// Validate checks currency, signs and the net revenue identity. A negative
// net revenue is a business-rule violation; everything else is input
// validation.
func (b RevenueBreakdown) Validate() error {
	amounts := []generic.Money{b.TotalRevenue, b.NetRevenue}
	for _, o := range []generic.OptionalMoney{b.OilRevenue, b.GasRevenue} {
		if m, ok := o.Get(); ok {
			amounts = append(amounts, m)
		}
	}
	for _, n := range b.named() {
		m, ok := n.amount.Get()
		if !ok {
			continue
		}
		if m.IsNegative() {
			return &generic.ValidationError{Field: n.field, Value: m.Amount.String(), Reason: "must not be negative"}
		}
		amounts = append(amounts, m)
	}
	if err := generic.SameCurrency(amounts...); err != nil {
		return err
	}

	if b.TotalRevenue.IsNegative() {
		return &generic.ValidationError{Field: "total_revenue", Value: b.TotalRevenue.Amount.String(), Reason: "must not be negative"}
	}
	if b.NetRevenue.IsNegative() {
		return &generic.BusinessRuleError{
			Rule:    generic.ErrNegativeNetRevenue,
			Message: "net revenue " + b.NetRevenue.String() + " is below zero",
		}
	}

	expected := b.TotalRevenue.Sub(b.Deductions.Total())
	if b.NetRevenue.Sub(expected).Amount.Abs().GreaterThan(NetRevenueTolerance) {
		return &generic.ValidationError{
			Field:  "net_revenue",
			Value:  b.NetRevenue.Amount.String(),
			Reason: "must equal total revenue less deductions (" + expected.Amount.String() + ")",
		}
	}
	return nil
}

// Equal compares by value, including presence of optional amounts.
func (b RevenueBreakdown) Equal(o RevenueBreakdown) bool {
	return b.OilRevenue.Equal(o.OilRevenue) &&
		b.GasRevenue.Equal(o.GasRevenue) &&
		b.TotalRevenue.Equal(o.TotalRevenue) &&
		b.Deductions.Equal(o.Deductions) &&
		b.NetRevenue.Equal(o.NetRevenue)
}
