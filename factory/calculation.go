/*
Package factory converts JSON calculation payloads into domain records.

PURPOSE:
  Lease terms, production facts, market data and revenue breakdowns arrive
  as JSON (HTTP bodies, scenario fixtures). The factory validates them and
  builds lease.LeaseData, lease.ProductionData, the pricing inputs and
  distribution.RevenueBreakdown.

NUMBERS:
  Every amount, fraction and volume is a decimal. Both "0.125" and 0.125
  are accepted; strings are preferred because they never pass through a
  float. Responses always use strings.

JSON SCHEMA (lease + production):
  {
    "lease": {
      "lease_id": "lease-1",
      "royalty_rate": "0.125",
      "working_interest": "0.75",
      "operating_expenses": "15000.00",
      "acreage": "640",
      "lease_bonus_per_acre": "250.00"
    },
    "production": {
      "oil_volume": "1000",
      "gas_volume": "5000",
      "oil_price": "50.00",
      "gas_price": "3.00",
      "production_date": "2024-03-31"
    }
  }

VALIDATION:
  - Fractions may exceed 1 (overrides, composites) but never be negative
  - Volumes, prices and deductions are never negative
  - Omitted optional amounts stay absent, they do not become $0.00

SEE ALSO:
  - lease/types.go: LeaseData and ProductionData
  - distribution/breakdown.go: RevenueBreakdown
  - api/dto.go: Request/response bodies built from these types
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
	"github.com/warp/revenue-engine/pricing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type LeaseJSON struct {
	LeaseID            string              `json:"lease_id"`
	RoyaltyRate        decimal.NullDecimal `json:"royalty_rate"`
	WorkingInterest    decimal.NullDecimal `json:"working_interest"`
	NetRevenueInterest decimal.NullDecimal `json:"net_revenue_interest"`
	OperatingExpenses  decimal.NullDecimal `json:"operating_expenses"`
	Acreage            decimal.NullDecimal `json:"acreage"`
	LeaseBonusPerAcre  decimal.NullDecimal `json:"lease_bonus_per_acre"`
}

type ProductionJSON struct {
	OilVolume      decimal.NullDecimal `json:"oil_volume"`
	GasVolume      decimal.NullDecimal `json:"gas_volume"`
	WaterVolume    decimal.NullDecimal `json:"water_volume"`
	OilPrice       decimal.NullDecimal `json:"oil_price"`
	GasPrice       decimal.NullDecimal `json:"gas_price"`
	ProductionDate string              `json:"production_date"`
}

type MarketJSON struct {
	OilBasePrice decimal.NullDecimal `json:"oil_base_price"`
	GasBasePrice decimal.NullDecimal `json:"gas_base_price"`
	PricingDate  string              `json:"pricing_date,omitempty"`
}

type QualityJSON struct {
	APIGravity    decimal.NullDecimal `json:"api_gravity"`
	SulfurContent decimal.NullDecimal `json:"sulfur_content"`
	BTUContent    decimal.NullDecimal `json:"btu_content"`
}

type LocationJSON struct {
	Region                     string              `json:"region,omitempty"`
	RegionPremium              decimal.NullDecimal `json:"region_premium"`
	GasRegionPremium           decimal.NullDecimal `json:"gas_region_premium"`
	TransportationDifferential decimal.NullDecimal `json:"transportation_differential"`
	MarketAccessPenalty        decimal.NullDecimal `json:"market_access_penalty"`
	TransportationCost         decimal.NullDecimal `json:"transportation_cost"`
	ProcessingCost             decimal.NullDecimal `json:"processing_cost"`
}

type VolumesJSON struct {
	OilVolume decimal.NullDecimal `json:"oil_volume"`
	GasVolume decimal.NullDecimal `json:"gas_volume"`
}

type DeductionsJSON struct {
	SeveranceTax        decimal.NullDecimal `json:"severance_tax"`
	AdValorem           decimal.NullDecimal `json:"ad_valorem"`
	TransportationCosts decimal.NullDecimal `json:"transportation_costs"`
	ProcessingCosts     decimal.NullDecimal `json:"processing_costs"`
	OtherDeductions     decimal.NullDecimal `json:"other_deductions"`
}

// BreakdownJSON carries a revenue breakdown. NetRevenue may be omitted on
// input, in which case it is derived from total and deductions.
type BreakdownJSON struct {
	OilRevenue   decimal.NullDecimal `json:"oil_revenue"`
	GasRevenue   decimal.NullDecimal `json:"gas_revenue"`
	TotalRevenue decimal.NullDecimal `json:"total_revenue"`
	DeductionsJSON
	NetRevenue decimal.NullDecimal `json:"net_revenue"`
}

// =============================================================================
// CALCULATION FACTORY
// =============================================================================

// CalculationFactory converts JSON payloads to domain records.
type CalculationFactory struct{}

func NewCalculationFactory() *CalculationFactory {
	return &CalculationFactory{}
}

// ParseLease parses a JSON lease document.
func (f *CalculationFactory) ParseLease(data []byte) (lease.LeaseData, error) {
	var lj LeaseJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return lease.LeaseData{}, fmt.Errorf("failed to parse lease JSON: %w", err)
	}
	return f.LeaseFromJSON(lj)
}

func (f *CalculationFactory) LeaseFromJSON(lj LeaseJSON) (lease.LeaseData, error) {
	var p parser
	l := lease.LeaseData{
		LeaseID:            generic.LeaseID(strings.TrimSpace(lj.LeaseID)),
		RoyaltyRate:        p.nonNegative("royalty_rate", lj.RoyaltyRate),
		WorkingInterest:    p.nonNegative("working_interest", lj.WorkingInterest),
		NetRevenueInterest: p.nonNegative("net_revenue_interest", lj.NetRevenueInterest),
		OperatingExpenses:  p.optionalMoney("operating_expenses", lj.OperatingExpenses),
		Acreage:            p.nonNegative("acreage", lj.Acreage),
		LeaseBonusPerAcre:  p.optionalMoney("lease_bonus_per_acre", lj.LeaseBonusPerAcre),
	}
	return l, p.err
}

// ParseProduction parses a JSON production document.
func (f *CalculationFactory) ParseProduction(data []byte) (lease.ProductionData, error) {
	var pj ProductionJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return lease.ProductionData{}, fmt.Errorf("failed to parse production JSON: %w", err)
	}
	return f.ProductionFromJSON(pj)
}

// ProductionFromJSON requires a production date; prices may be omitted
// when a pricing strategy will supply them.
func (f *CalculationFactory) ProductionFromJSON(pj ProductionJSON) (lease.ProductionData, error) {
	var p parser
	prod := lease.ProductionData{
		OilVolume:      p.nonNegative("oil_volume", pj.OilVolume),
		GasVolume:      p.nonNegative("gas_volume", pj.GasVolume),
		WaterVolume:    p.optionalNonNegative("water_volume", pj.WaterVolume),
		OilPrice:       p.money("oil_price", pj.OilPrice),
		GasPrice:       p.money("gas_price", pj.GasPrice),
		ProductionDate: p.date("production_date", pj.ProductionDate, true),
	}
	return prod, p.err
}

func (f *CalculationFactory) MarketFromJSON(mj MarketJSON) (pricing.MarketData, error) {
	var p parser
	m := pricing.MarketData{
		OilBasePrice: p.money("oil_base_price", mj.OilBasePrice),
		GasBasePrice: p.money("gas_base_price", mj.GasBasePrice),
		PricingDate:  p.date("pricing_date", mj.PricingDate, false),
	}
	return m, p.err
}

func (f *CalculationFactory) QualityFromJSON(qj QualityJSON) (pricing.QualityData, error) {
	var p parser
	q := pricing.QualityData{
		APIGravity:    qj.APIGravity,
		SulfurContent: p.optionalNonNegative("sulfur_content", qj.SulfurContent),
		BTUContent:    p.optionalNonNegative("btu_content", qj.BTUContent),
	}
	return q, p.err
}

// LocationFromJSON keeps the transportation differential signed; every
// other figure is a cost or premium and must not be negative.
func (f *CalculationFactory) LocationFromJSON(lj LocationJSON) (pricing.LocationData, error) {
	var p parser
	loc := pricing.LocationData{
		Region:                     strings.TrimSpace(lj.Region),
		RegionPremium:              p.signedMoney(lj.RegionPremium),
		GasRegionPremium:           p.signedMoney(lj.GasRegionPremium),
		TransportationDifferential: p.signedMoney(lj.TransportationDifferential),
		MarketAccessPenalty:        p.nonNegative("market_access_penalty", lj.MarketAccessPenalty),
		TransportationCost:         p.money("transportation_cost", lj.TransportationCost),
		ProcessingCost:             p.money("processing_cost", lj.ProcessingCost),
	}
	return loc, p.err
}

func (f *CalculationFactory) VolumesFromJSON(vj VolumesJSON) (distribution.ProductionVolumes, error) {
	var p parser
	v := distribution.ProductionVolumes{
		OilVolume: p.optionalNonNegative("oil_volume", vj.OilVolume),
		GasVolume: p.optionalNonNegative("gas_volume", vj.GasVolume),
	}
	return v, p.err
}

// PricingVolumes treats absent volumes as zero.
func (f *CalculationFactory) PricingVolumes(vj VolumesJSON) (pricing.Volumes, error) {
	var p parser
	v := pricing.Volumes{
		OilVolume: p.nonNegative("oil_volume", vj.OilVolume),
		GasVolume: p.nonNegative("gas_volume", vj.GasVolume),
	}
	return v, p.err
}

func (f *CalculationFactory) DeductionsFromJSON(dj DeductionsJSON) (distribution.Deductions, error) {
	var p parser
	d := distribution.Deductions{
		SeveranceTax:        p.optionalMoney("severance_tax", dj.SeveranceTax),
		AdValorem:           p.optionalMoney("ad_valorem", dj.AdValorem),
		TransportationCosts: p.optionalMoney("transportation_costs", dj.TransportationCosts),
		ProcessingCosts:     p.optionalMoney("processing_costs", dj.ProcessingCosts),
		OtherDeductions:     p.optionalMoney("other_deductions", dj.OtherDeductions),
	}
	return d, p.err
}

// BreakdownFromJSON builds and validates a breakdown. Total revenue is
// required.
func (f *CalculationFactory) BreakdownFromJSON(bj BreakdownJSON) (distribution.RevenueBreakdown, error) {
	if !bj.TotalRevenue.Valid {
		return distribution.RevenueBreakdown{}, &generic.ValidationError{Field: "total_revenue", Reason: "is required"}
	}
	deductions, err := f.DeductionsFromJSON(bj.DeductionsJSON)
	if err != nil {
		return distribution.RevenueBreakdown{}, err
	}

	var p parser
	b := distribution.NewBreakdown(p.money("total_revenue", bj.TotalRevenue), deductions)
	b.OilRevenue = p.optionalMoney("oil_revenue", bj.OilRevenue)
	b.GasRevenue = p.optionalMoney("gas_revenue", bj.GasRevenue)
	if bj.NetRevenue.Valid {
		// Sign is checked by Validate, which reports negatives as a business rule.
		b.NetRevenue = generic.NewMoney(bj.NetRevenue.Decimal)
	}
	if p.err != nil {
		return distribution.RevenueBreakdown{}, p.err
	}
	return b, b.Validate()
}

// BreakdownToJSON is the inverse of BreakdownFromJSON.
func (f *CalculationFactory) BreakdownToJSON(b distribution.RevenueBreakdown) BreakdownJSON {
	return BreakdownJSON{
		OilRevenue:   fromOptional(b.OilRevenue),
		GasRevenue:   fromOptional(b.GasRevenue),
		TotalRevenue: decimal.NewNullDecimal(b.TotalRevenue.Amount),
		DeductionsJSON: DeductionsJSON{
			SeveranceTax:        fromOptional(b.SeveranceTax),
			AdValorem:           fromOptional(b.AdValorem),
			TransportationCosts: fromOptional(b.TransportationCosts),
			ProcessingCosts:     fromOptional(b.ProcessingCosts),
			OtherDeductions:     fromOptional(b.OtherDeductions),
		},
		NetRevenue: decimal.NewNullDecimal(b.NetRevenue.Amount),
	}
}

// VolumesToJSON is the inverse of VolumesFromJSON.
func (f *CalculationFactory) VolumesToJSON(v distribution.ProductionVolumes) VolumesJSON {
	return VolumesJSON{OilVolume: v.OilVolume, GasVolume: v.GasVolume}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// parser keeps the first error so a record can be built in one expression.
type parser struct {
	err error
}

func (p *parser) fail(field string, v decimal.Decimal, reason string) {
	if p.err == nil {
		p.err = &generic.ValidationError{Field: field, Value: v.String(), Reason: reason}
	}
}

func (p *parser) nonNegative(field string, nd decimal.NullDecimal) decimal.Decimal {
	if !nd.Valid {
		return decimal.Zero
	}
	if nd.Decimal.IsNegative() {
		p.fail(field, nd.Decimal, "must not be negative")
	}
	return nd.Decimal
}

func (p *parser) optionalNonNegative(field string, nd decimal.NullDecimal) decimal.NullDecimal {
	if nd.Valid && nd.Decimal.IsNegative() {
		p.fail(field, nd.Decimal, "must not be negative")
	}
	return nd
}

func (p *parser) money(field string, nd decimal.NullDecimal) generic.Money {
	return generic.NewMoney(p.nonNegative(field, nd))
}

func (p *parser) signedMoney(nd decimal.NullDecimal) generic.Money {
	if !nd.Valid {
		return generic.ZeroMoney()
	}
	return generic.NewMoney(nd.Decimal)
}

func (p *parser) optionalMoney(field string, nd decimal.NullDecimal) generic.OptionalMoney {
	if !nd.Valid {
		return generic.None()
	}
	return generic.Some(p.money(field, nd))
}

// date accepts "2006-01-02" and RFC 3339.
func (p *parser) date(field, s string, required bool) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		if required && p.err == nil {
			p.err = &generic.ValidationError{Field: field, Reason: "is required"}
		}
		return time.Time{}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil && p.err == nil {
		p.err = &generic.ValidationError{Field: field, Value: s, Reason: "expected YYYY-MM-DD or RFC 3339"}
	}
	return t
}

func fromOptional(o generic.OptionalMoney) decimal.NullDecimal {
	m, ok := o.Get()
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(m.Amount)
}
