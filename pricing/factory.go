package pricing

import (
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// STRATEGY FACTORY
// =============================================================================

// Factory resolves pricing strategies by tag or from signals.
type Factory struct {
	thresholds Thresholds
}

func NewFactory(t Thresholds) *Factory {
	return &Factory{thresholds: t}
}

// DefaultFactory uses DefaultThresholds.
func DefaultFactory() *Factory {
	return NewFactory(DefaultThresholds())
}

// NewStrategy resolves a method tag.
func NewStrategy(m Method) (Strategy, error) {
	switch m {
	case MethodStandard:
		return StandardStrategy{}, nil
	case MethodQualityAdjusted:
		return QualityAdjustedStrategy{}, nil
	case MethodLocationBased:
		return LocationBasedStrategy{}, nil
	case MethodPremium:
		return PremiumStrategy{}, nil
	case MethodDiscounted:
		return DiscountedStrategy{}, nil
	default:
		return nil, &generic.UnknownStrategyError{Family: "pricing", Tag: string(m)}
	}
}

// ForSignals picks the optimal strategy. The order of the checks is the
// contract: a well that is both high quality and poorly located is
// discounted, not premium.
func (f *Factory) ForSignals(q QualityData, loc LocationData) Strategy {
	switch {
	case f.isHighQuality(q) && f.isWellLocated(loc):
		return PremiumStrategy{}
	case f.isPoorQuality(q) || f.isPoorLocation(loc):
		return DiscountedStrategy{}
	case q.HasSignal():
		return QualityAdjustedStrategy{}
	case loc.HasSignal():
		return LocationBasedStrategy{}
	default:
		return StandardStrategy{}
	}
}

// Select resolves an explicit method when given, otherwise auto-selects.
func (f *Factory) Select(m Method, q QualityData, loc LocationData) (Strategy, error) {
	if m != "" {
		return NewStrategy(m)
	}
	return f.ForSignals(q, loc), nil
}

func (f *Factory) isHighQuality(q QualityData) bool {
	return q.APIGravity.Valid && q.SulfurContent.Valid &&
		q.APIGravity.Decimal.GreaterThanOrEqual(f.thresholds.HighQualityMinGravity) &&
		q.SulfurContent.Decimal.LessThanOrEqual(f.thresholds.HighQualityMaxSulfur)
}

// isWellLocated needs some location signal; an unknown location is not a good one.
func (f *Factory) isWellLocated(loc LocationData) bool {
	return loc.HasSignal() && loc.MarketAccessPenalty.LessThanOrEqual(f.thresholds.WellLocatedMaxPenalty)
}

func (f *Factory) isPoorQuality(q QualityData) bool {
	return (q.APIGravity.Valid && q.APIGravity.Decimal.LessThan(f.thresholds.PoorQualityMaxGravity)) ||
		(q.SulfurContent.Valid && q.SulfurContent.Decimal.GreaterThan(f.thresholds.PoorQualityMinSulfur))
}

func (f *Factory) isPoorLocation(loc LocationData) bool {
	return loc.MarketAccessPenalty.GreaterThan(f.thresholds.PoorLocationMinPenalty)
}
