/*
Package lease holds the fact records the calculation strategies consume.

PURPOSE:
  LeaseData and ProductionData are supplied per calculation call. They are
  not aggregates: the engine never loads or saves them, callers source them
  from the lease and production modules.

OWNERSHIP FRACTIONS:
  RoyaltyRate, WorkingInterest and NetRevenueInterest are fractions that in
  principle lie in [0, 1]. Values above 1 are tolerated (override and
  composite arrangements); only negative values are rejected at the parsing
  boundary (factory package).

SEE ALSO:
  - payment/: strategies over these records
  - factory/calculation.go: JSON parsing into these records
*/
package lease

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// LeaseData describes the ownership terms of a lease for a period.
type LeaseData struct {
	LeaseID            generic.LeaseID
	RoyaltyRate        decimal.Decimal
	WorkingInterest    decimal.Decimal
	NetRevenueInterest decimal.Decimal
	OperatingExpenses  generic.OptionalMoney
	Acreage            decimal.Decimal
	LeaseBonusPerAcre  generic.OptionalMoney
}

// ProductionData describes a well's production and unit prices for a period.
// Oil volumes are in barrels, gas in MCF.
type ProductionData struct {
	OilVolume      decimal.Decimal
	GasVolume      decimal.Decimal
	WaterVolume    decimal.NullDecimal
	OilPrice       generic.Money
	GasPrice       generic.Money
	ProductionDate time.Time
}

// OilRevenue is oilVolume x oilPrice.
func (p ProductionData) OilRevenue() generic.Money {
	return p.OilPrice.Mul(p.OilVolume)
}

// GasRevenue is gasVolume x gasPrice.
func (p ProductionData) GasRevenue() generic.Money {
	return p.GasPrice.Mul(p.GasVolume)
}

// GrossRevenue is oil revenue plus gas revenue, before any burden.
func (p ProductionData) GrossRevenue() generic.Money {
	return p.OilRevenue().Add(p.GasRevenue())
}

// HasProduction is true when either oil or gas volume is positive.
func (p ProductionData) HasProduction() bool {
	return p.OilVolume.IsPositive() || p.GasVolume.IsPositive()
}

// ProductionMonth derives the month from ProductionDate.
func (p ProductionData) ProductionMonth() (generic.ProductionMonth, error) {
	return generic.ProductionMonthOf(p.ProductionDate)
}
