package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// Pricing constants. These are contractual, not tunable.
var (
	ReferenceGravity       = decimal.NewFromInt(37)
	GravityAdjustPerDegree = decimal.RequireFromString("0.25")
	SweetSulfurMax         = decimal.RequireFromString("0.5")
	SweetPremium           = decimal.RequireFromString("1.00")
	SourDiscount           = decimal.RequireFromString("2.00")
	ReferenceBTU           = decimal.NewFromInt(1030)

	PremiumBase             = decimal.RequireFromString("0.15")
	PremiumGravityThreshold = decimal.NewFromInt(40)
	PremiumGravityBonus     = decimal.RequireFromString("0.05")
	PremiumSulfurThreshold  = decimal.RequireFromString("0.3")
	PremiumSulfurBonus      = decimal.RequireFromString("0.05")

	DiscountGravityThreshold = decimal.NewFromInt(30)
	DiscountGravity          = decimal.RequireFromString("0.10")
	DiscountSulfurThreshold  = decimal.RequireFromString("1.0")
	DiscountSulfur           = decimal.RequireFromString("0.05")
	DiscountPenaltyThreshold = decimal.NewFromInt(5)
	DiscountPenalty          = decimal.RequireFromString("0.08")
	DiscountFloor            = decimal.RequireFromString("0.60")
)

// =============================================================================
// STANDARD
// =============================================================================

type StandardStrategy struct{}

func (StandardStrategy) Method() Method { return MethodStandard }

func (StandardStrategy) CalculatePrice(m MarketData, _ QualityData, loc LocationData, v Volumes) Result {
	var adj adjustments
	oil := m.OilBasePrice.Add(adj.add("region_premium", ProductOil, "regional premium", loc.RegionPremium))
	gas := m.GasBasePrice.Add(adj.add("region_premium", ProductGas, "regional premium", loc.GasRegionPremium))
	return adj.result(MethodStandard, oil, gas, v)
}

// =============================================================================
// QUALITY ADJUSTED
// =============================================================================

type QualityAdjustedStrategy struct{}

func (QualityAdjustedStrategy) Method() Method { return MethodQualityAdjusted }

func (QualityAdjustedStrategy) CalculatePrice(m MarketData, q QualityData, loc LocationData, v Volumes) Result {
	var adj adjustments
	oil := m.OilBasePrice.Add(adj.add("region_premium", ProductOil, "regional premium", loc.RegionPremium))
	gas := m.GasBasePrice.Add(adj.add("region_premium", ProductGas, "regional premium", loc.GasRegionPremium))

	if q.APIGravity.Valid {
		delta := q.APIGravity.Decimal.Sub(ReferenceGravity).Mul(GravityAdjustPerDegree)
		oil = oil.Add(adj.add("api_gravity", ProductOil, "API gravity vs 37 reference", generic.NewMoney(delta)))
	}
	if q.SulfurContent.Valid {
		if q.SulfurContent.Decimal.LessThanOrEqual(SweetSulfurMax) {
			oil = oil.Add(adj.add("sulfur", ProductOil, "sweet crude premium", generic.NewMoney(SweetPremium)))
		} else {
			oil = oil.Add(adj.add("sulfur", ProductOil, "sour crude discount", generic.NewMoney(SourDiscount.Neg())))
		}
	}
	if q.BTUContent.Valid {
		ratio := q.BTUContent.Decimal.Sub(ReferenceBTU).Div(ReferenceBTU)
		gas = gas.Add(adj.add("btu_content", ProductGas, "BTU content vs 1030 reference", m.GasBasePrice.Mul(ratio)))
	}

	oil = oil.Add(adj.add("transportation", ProductOil, "transportation cost", loc.TransportationCost.Neg()))
	gas = gas.Add(adj.add("processing", ProductGas, "processing cost", loc.ProcessingCost.Neg()))
	return adj.result(MethodQualityAdjusted, oil, gas, v)
}

// =============================================================================
// LOCATION BASED
// =============================================================================

type LocationBasedStrategy struct{}

func (LocationBasedStrategy) Method() Method { return MethodLocationBased }

func (LocationBasedStrategy) CalculatePrice(m MarketData, _ QualityData, loc LocationData, v Volumes) Result {
	var adj adjustments
	oil := m.OilBasePrice.
		Add(adj.add("region_premium", ProductOil, "regional premium", loc.RegionPremium)).
		Add(adj.add("transportation_differential", ProductOil, "transportation differential", loc.TransportationDifferential)).
		Add(adj.add("market_access", ProductOil, "market access penalty", generic.NewMoney(loc.MarketAccessPenalty.Neg())))
	gas := m.GasBasePrice.Add(adj.add("region_premium", ProductGas, "regional premium", loc.GasRegionPremium))
	return adj.result(MethodLocationBased, oil, gas, v)
}

// =============================================================================
// PREMIUM
// =============================================================================

type PremiumStrategy struct{}

func (PremiumStrategy) Method() Method { return MethodPremium }

// PremiumFactor is 1 + 0.15, plus 0.05 for gravity above 40 and 0.05 for
// sulfur below 0.3%.
func PremiumFactor(q QualityData) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(PremiumBase)
	if q.APIGravity.Valid && q.APIGravity.Decimal.GreaterThan(PremiumGravityThreshold) {
		factor = factor.Add(PremiumGravityBonus)
	}
	if q.SulfurContent.Valid && q.SulfurContent.Decimal.LessThan(PremiumSulfurThreshold) {
		factor = factor.Add(PremiumSulfurBonus)
	}
	return factor
}

func (PremiumStrategy) CalculatePrice(m MarketData, q QualityData, _ LocationData, v Volumes) Result {
	var adj adjustments
	factor := PremiumFactor(q)
	gasFactor := decimal.NewFromInt(1).Add(PremiumBase)

	oil := m.OilBasePrice.Mul(factor)
	gas := m.GasBasePrice.Mul(gasFactor)
	adj.add("premium", ProductOil, "premium factor "+factor.String(), oil.Sub(m.OilBasePrice))
	adj.add("premium", ProductGas, "premium factor "+gasFactor.String(), gas.Sub(m.GasBasePrice))
	return adj.result(MethodPremium, oil, gas, v)
}

// =============================================================================
// DISCOUNTED
// =============================================================================

type DiscountedStrategy struct{}

func (DiscountedStrategy) Method() Method { return MethodDiscounted }

// DiscountFactor starts at 1.0 and is never below DiscountFloor.
func DiscountFactor(q QualityData, loc LocationData) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	if q.APIGravity.Valid && q.APIGravity.Decimal.LessThan(DiscountGravityThreshold) {
		factor = factor.Sub(DiscountGravity)
	}
	if q.SulfurContent.Valid && q.SulfurContent.Decimal.GreaterThan(DiscountSulfurThreshold) {
		factor = factor.Sub(DiscountSulfur)
	}
	if loc.MarketAccessPenalty.GreaterThan(DiscountPenaltyThreshold) {
		factor = factor.Sub(DiscountPenalty)
	}
	return decimal.Max(factor, DiscountFloor)
}

func (DiscountedStrategy) CalculatePrice(m MarketData, q QualityData, loc LocationData, v Volumes) Result {
	var adj adjustments
	factor := DiscountFactor(q, loc)

	oil := m.OilBasePrice.Mul(factor)
	gas := m.GasBasePrice.Mul(factor)
	adj.add("discount", ProductOil, "discount factor "+factor.String(), oil.Sub(m.OilBasePrice))
	adj.add("discount", ProductGas, "discount factor "+factor.String(), gas.Sub(m.GasBasePrice))
	return adj.result(MethodDiscounted, oil, gas, v)
}

// =============================================================================
// HELPERS
// =============================================================================

// adjustments collects non-zero components while prices are built.
type adjustments []Adjustment

func (a *adjustments) add(typ string, product Product, description string, amount generic.Money) generic.Money {
	if !amount.IsZero() {
		*a = append(*a, Adjustment{Type: typ, Product: product, Description: description, Amount: amount})
	}
	return amount
}

func (a adjustments) result(method Method, oil, gas generic.Money, v Volumes) Result {
	return Result{
		OilPrice:      oil,
		GasPrice:      gas,
		TotalValue:    totalValue(oil, gas, v),
		Adjustments:   []Adjustment(a),
		PricingMethod: method,
	}
}

// Compile-time checks
var (
	_ Strategy = StandardStrategy{}
	_ Strategy = QualityAdjustedStrategy{}
	_ Strategy = LocationBasedStrategy{}
	_ Strategy = PremiumStrategy{}
	_ Strategy = DiscountedStrategy{}
)
