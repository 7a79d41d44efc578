package payment

import (
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
)

// =============================================================================
// STRATEGY FACTORY
// =============================================================================

// NewStrategy resolves a single tag. Composite is not constructible by tag;
// request several leaf tags instead.
func NewStrategy(t CalculationType) (Strategy, error) {
	switch t {
	case TypeRoyalty:
		return NewRoyaltyStrategy(), nil
	case TypeWorkingInterest:
		return NewWorkingInterestStrategy(), nil
	case TypeNetRevenueInterest:
		return NewNetRevenueInterestStrategy(), nil
	case TypeLeaseBonus:
		return NewLeaseBonusStrategy(), nil
	default:
		return nil, &generic.UnknownStrategyError{Family: "payment", Tag: string(t)}
	}
}

// ForTypes resolves explicit tags. One tag returns that strategy, several
// return a Composite in the given order. Any unknown tag fails the call.
func ForTypes(types ...CalculationType) (Strategy, error) {
	if len(types) == 0 {
		return nil, &generic.ValidationError{Field: "strategies", Reason: "at least one strategy type is required"}
	}
	strategies := make([]Strategy, 0, len(types))
	for _, t := range types {
		s, err := NewStrategy(t)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	if len(strategies) == 1 {
		return strategies[0], nil
	}
	return NewCompositeStrategy(strategies...), nil
}

// ForLease auto-selects exactly the leaf strategies whose gate passes, in
// AllCalculationTypes order. With none applicable it falls back to Royalty.
func ForLease(l lease.LeaseData, p lease.ProductionData) Strategy {
	var applicable []Strategy
	for _, t := range AllCalculationTypes() {
		s, _ := NewStrategy(t)
		if s.IsApplicable(l, p) {
			applicable = append(applicable, s)
		}
	}
	switch len(applicable) {
	case 0:
		return NewRoyaltyStrategy()
	case 1:
		return applicable[0]
	default:
		return NewCompositeStrategy(applicable...)
	}
}

// Select resolves explicit tags when given, otherwise auto-selects.
func Select(l lease.LeaseData, p lease.ProductionData, types ...CalculationType) (Strategy, error) {
	if len(types) > 0 {
		return ForTypes(types...)
	}
	return ForLease(l, p), nil
}

// ParseCalculationTypes converts raw tags, failing on the first unknown one.
func ParseCalculationTypes(raw []string) ([]CalculationType, error) {
	types := make([]CalculationType, 0, len(raw))
	for _, r := range raw {
		t := CalculationType(r)
		if _, err := NewStrategy(t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
