package payment

import (
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
)

// =============================================================================
// ROYALTY
// =============================================================================

// RoyaltyStrategy pays the mineral owner's share of gross revenue.
type RoyaltyStrategy struct{}

func NewRoyaltyStrategy() *RoyaltyStrategy { return &RoyaltyStrategy{} }

func (s *RoyaltyStrategy) CalculationType() CalculationType { return TypeRoyalty }

func (s *RoyaltyStrategy) IsApplicable(l lease.LeaseData, p lease.ProductionData) bool {
	return l.RoyaltyRate.IsPositive() && p.HasProduction()
}

func (s *RoyaltyStrategy) Calculate(l lease.LeaseData, p lease.ProductionData) Amount {
	oil := p.OilRevenue()
	gas := p.GasRevenue()
	gross := oil.Add(gas)
	return newAmount(TypeRoyalty, gross.Mul(l.RoyaltyRate), map[string]decimal.Decimal{
		"oil_revenue":   oil.Amount,
		"gas_revenue":   gas.Amount,
		"gross_revenue": gross.Amount,
		"royalty_rate":  l.RoyaltyRate,
	})
}

// =============================================================================
// WORKING INTEREST
// =============================================================================

// WorkingInterestStrategy pays the operator/partner share net of expenses.
type WorkingInterestStrategy struct{}

func NewWorkingInterestStrategy() *WorkingInterestStrategy { return &WorkingInterestStrategy{} }

func (s *WorkingInterestStrategy) CalculationType() CalculationType { return TypeWorkingInterest }

func (s *WorkingInterestStrategy) IsApplicable(l lease.LeaseData, _ lease.ProductionData) bool {
	return l.WorkingInterest.IsPositive()
}

func (s *WorkingInterestStrategy) Calculate(l lease.LeaseData, p lease.ProductionData) Amount {
	gross := p.GrossRevenue()
	opex := l.OperatingExpenses.OrZero()

	// Net first, then multiply. The floor keeps the payout non-negative.
	net := gross.Sub(opex).Max(gross.Zero())

	return newAmount(TypeWorkingInterest, net.Mul(l.WorkingInterest), map[string]decimal.Decimal{
		"gross_revenue":      gross.Amount,
		"operating_expenses": opex.Amount,
		"net_revenue":        net.Amount,
		"working_interest":   l.WorkingInterest,
	})
}

// =============================================================================
// NET REVENUE INTEREST
// =============================================================================

// NetRevenueInterestStrategy pays a share of gross with no expense netting.
type NetRevenueInterestStrategy struct{}

func NewNetRevenueInterestStrategy() *NetRevenueInterestStrategy {
	return &NetRevenueInterestStrategy{}
}

func (s *NetRevenueInterestStrategy) CalculationType() CalculationType { return TypeNetRevenueInterest }

func (s *NetRevenueInterestStrategy) IsApplicable(l lease.LeaseData, _ lease.ProductionData) bool {
	return l.NetRevenueInterest.IsPositive()
}

func (s *NetRevenueInterestStrategy) Calculate(l lease.LeaseData, p lease.ProductionData) Amount {
	gross := p.GrossRevenue()
	return newAmount(TypeNetRevenueInterest, gross.Mul(l.NetRevenueInterest), map[string]decimal.Decimal{
		"gross_revenue":        gross.Amount,
		"net_revenue_interest": l.NetRevenueInterest,
	})
}

// =============================================================================
// LEASE BONUS
// =============================================================================

// LeaseBonusStrategy pays the per-acre signing bonus. Production is ignored.
type LeaseBonusStrategy struct{}

func NewLeaseBonusStrategy() *LeaseBonusStrategy { return &LeaseBonusStrategy{} }

func (s *LeaseBonusStrategy) CalculationType() CalculationType { return TypeLeaseBonus }

func (s *LeaseBonusStrategy) IsApplicable(l lease.LeaseData, _ lease.ProductionData) bool {
	return l.LeaseBonusPerAcre.OrZero().IsPositive()
}

func (s *LeaseBonusStrategy) Calculate(l lease.LeaseData, _ lease.ProductionData) Amount {
	perAcre := l.LeaseBonusPerAcre.OrZero()
	return newAmount(TypeLeaseBonus, perAcre.Mul(l.Acreage), map[string]decimal.Decimal{
		"bonus_per_acre": perAcre.Amount,
		"acreage":        l.Acreage,
	})
}

// =============================================================================
// COMPOSITE
// =============================================================================

// CompositeStrategy sums its applicable children in order.
type CompositeStrategy struct {
	strategies []Strategy
}

func NewCompositeStrategy(strategies ...Strategy) *CompositeStrategy {
	return &CompositeStrategy{strategies: append([]Strategy(nil), strategies...)}
}

func (s *CompositeStrategy) CalculationType() CalculationType { return TypeComposite }

// Strategies returns a copy of the children.
func (s *CompositeStrategy) Strategies() []Strategy {
	return append([]Strategy(nil), s.strategies...)
}

func (s *CompositeStrategy) IsApplicable(l lease.LeaseData, p lease.ProductionData) bool {
	for _, child := range s.strategies {
		if child.IsApplicable(l, p) {
			return true
		}
	}
	return false
}

// Calculate includes only applicable children. Breakdown is keyed by each
// included child's calculation type. Two children of the same type
// accumulate into one key.
func (s *CompositeStrategy) Calculate(l lease.LeaseData, p lease.ProductionData) Amount {
	total := generic.ZeroMoney()
	breakdown := make(map[string]decimal.Decimal)
	for _, child := range s.strategies {
		if !child.IsApplicable(l, p) {
			continue
		}
		result := child.Calculate(l, p)
		total = total.Add(result.Amount)
		key := string(child.CalculationType())
		breakdown[key] = breakdown[key].Add(result.Amount.Amount)
	}
	return newAmount(TypeComposite, total, breakdown)
}

// Compile-time checks
var (
	_ Strategy = (*RoyaltyStrategy)(nil)
	_ Strategy = (*WorkingInterestStrategy)(nil)
	_ Strategy = (*NetRevenueInterestStrategy)(nil)
	_ Strategy = (*LeaseBonusStrategy)(nil)
	_ Strategy = (*CompositeStrategy)(nil)
)
