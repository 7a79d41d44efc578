/*
Package pricing turns market prices plus crude quality and location signals
into effective unit prices for oil ($/bbl) and gas ($/mcf).

PURPOSE:
  The effective prices feed lease.ProductionData before the payment
  strategies run. Strategies are stateless; the Factory picks one
  explicitly by method tag or automatically from quality/location signals.

STRATEGIES:
  standard:         base + region premium
  quality_adjusted: gravity, sulfur and BTU adjustments, less transport/processing
  location_based:   base + region premium + transport differential - market access penalty
  premium:          base x (1.15 + gravity bonus + sulfur bonus)
  discounted:       base x discount factor, floored at 0.60

AUTO-SELECTION PRECEDENCE (fixed, see factory.go):
  1. high quality AND well located  -> premium
  2. poor quality OR poor location  -> discounted
  3. any quality signal             -> quality_adjusted
  4. any location signal            -> location_based
  5. otherwise                      -> standard

SEE ALSO:
  - config.go: YAML-loadable selection thresholds and region premiums
  - payment/: consumes the effective prices
*/
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// Method tags a pricing strategy.
type Method string

const (
	MethodStandard        Method = "standard"
	MethodQualityAdjusted Method = "quality_adjusted"
	MethodLocationBased   Method = "location_based"
	MethodPremium         Method = "premium"
	MethodDiscounted      Method = "discounted"
)

// AllMethods lists every pricing method.
func AllMethods() []Method {
	return []Method{MethodStandard, MethodQualityAdjusted, MethodLocationBased, MethodPremium, MethodDiscounted}
}

// MarketData carries posted benchmark prices.
type MarketData struct {
	OilBasePrice generic.Money // $/bbl
	GasBasePrice generic.Money // $/mcf
	PricingDate  time.Time
}

// QualityData carries crude and gas quality measurements. Absent values
// are not signals.
type QualityData struct {
	APIGravity    decimal.NullDecimal // degrees API
	SulfurContent decimal.NullDecimal // percent by weight
	BTUContent    decimal.NullDecimal // BTU per cubic foot
}

// HasSignal is true when any measurement is present.
func (q QualityData) HasSignal() bool {
	return q.APIGravity.Valid || q.SulfurContent.Valid || q.BTUContent.Valid
}

// LocationData carries the well's market position. Oil amounts are per
// barrel, gas amounts per mcf.
type LocationData struct {
	Region                     string
	RegionPremium              generic.Money // oil
	GasRegionPremium           generic.Money // gas
	TransportationDifferential generic.Money // oil, signed
	MarketAccessPenalty        decimal.Decimal
	TransportationCost         generic.Money // oil
	ProcessingCost             generic.Money // gas
}

// HasSignal is true when a region is named or any location figure is non-zero.
func (l LocationData) HasSignal() bool {
	return l.Region != "" ||
		!l.RegionPremium.IsZero() ||
		!l.GasRegionPremium.IsZero() ||
		!l.TransportationDifferential.IsZero() ||
		!l.MarketAccessPenalty.IsZero() ||
		!l.TransportationCost.IsZero() ||
		!l.ProcessingCost.IsZero()
}

// Volumes to value at the effective prices.
type Volumes struct {
	OilVolume decimal.Decimal // bbl
	GasVolume decimal.Decimal // mcf
}

// Product names a priced stream.
type Product string

const (
	ProductOil Product = "oil"
	ProductGas Product = "gas"
)

// Adjustment is one per-unit component applied on top of the base price.
// For multiplicative strategies Amount is the resulting per-unit delta.
type Adjustment struct {
	Type        string
	Product     Product
	Description string
	Amount      generic.Money
}

// Result is the outcome of a pricing calculation.
type Result struct {
	OilPrice      generic.Money
	GasPrice      generic.Money
	TotalValue    generic.Money
	Adjustments   []Adjustment
	PricingMethod Method
}

// Strategy computes effective unit prices.
type Strategy interface {
	CalculatePrice(m MarketData, q QualityData, loc LocationData, v Volumes) Result
	Method() Method
}

func totalValue(oil, gas generic.Money, v Volumes) generic.Money {
	return oil.Mul(v.OilVolume).Add(gas.Mul(v.GasVolume))
}
