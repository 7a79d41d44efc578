/*
Package payment implements the payment calculation strategies: how much an
owner is owed for a lease and a month of production.

PURPOSE:
  Each strategy turns a LeaseData and a ProductionData into a single
  PaymentAmount. Strategies are stateless and safe to share across
  goroutines; the Composite sums whichever children apply.

STRATEGIES:
  Royalty:            gross x royaltyRate (needs production)
  WorkingInterest:    max(0, gross - opex) x workingInterest
  NetRevenueInterest: gross x netRevenueInterest (no expense netting)
  LeaseBonus:         bonusPerAcre x acreage (ignores production)
  Composite:          sum of applicable children

ORDERING:
  WorkingInterest nets operating expenses BEFORE applying the interest
  multiplier. Applying the multiplier first and then subtracting expenses
  can produce negative payouts.

EXAMPLE:
  s := payment.NewRoyaltyStrategy()
  if s.IsApplicable(l, p) {
      amt := s.Calculate(l, p) // 8125.00 for 1000bbl@$50 + 5000mcf@$3 at 12.5%
  }

SEE ALSO:
  - factory.go: Tag resolution and auto-selection
  - pricing/: Effective unit prices fed into ProductionData
*/
package payment

import (
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
)

// =============================================================================
// CALCULATION TYPES
// =============================================================================

// CalculationType tags a strategy. The set is closed.
type CalculationType string

const (
	TypeRoyalty            CalculationType = "royalty"
	TypeWorkingInterest    CalculationType = "working_interest"
	TypeNetRevenueInterest CalculationType = "net_revenue_interest"
	TypeLeaseBonus         CalculationType = "lease_bonus"
	TypeComposite          CalculationType = "composite"
)

// AllCalculationTypes lists the leaf strategies in auto-selection order.
func AllCalculationTypes() []CalculationType {
	return []CalculationType{TypeRoyalty, TypeWorkingInterest, TypeNetRevenueInterest, TypeLeaseBonus}
}

func (t CalculationType) String() string { return string(t) }

// =============================================================================
// STRATEGY INTERFACE
// =============================================================================

// Strategy computes one category of owner payment.
type Strategy interface {
	// Calculate returns the payment. It does not consult IsApplicable;
	// callers (and Composite) gate on it first.
	Calculate(l lease.LeaseData, p lease.ProductionData) Amount

	// CalculationType returns the strategy's tag.
	CalculationType() CalculationType

	// IsApplicable reports whether this strategy pays anything for the inputs.
	IsApplicable(l lease.LeaseData, p lease.ProductionData) bool
}

// Amount is the result of a calculation. Breakdown keys are component names
// for leaf strategies and calculation types for Composite.
type Amount struct {
	Amount          generic.Money
	Currency        generic.Currency
	CalculationType CalculationType
	Breakdown       map[string]decimal.Decimal
}

func newAmount(t CalculationType, m generic.Money, breakdown map[string]decimal.Decimal) Amount {
	return Amount{
		Amount:          m,
		Currency:        m.Currency,
		CalculationType: t,
		Breakdown:       breakdown,
	}
}
