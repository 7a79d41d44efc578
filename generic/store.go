/*
store.go - Division order persistence contracts

PURPOSE:
  Defines the interface between the engine and wherever division orders
  live. The engine only reads the active interest set for a well; the
  write side exists for administration and demo seeding.

KEY INTERFACES:
  DivisionOrderSource: listActiveInterests(wellId, asOf)
  DivisionOrderStore:  DivisionOrderSource + upsert + well listing

IMPLEMENTATIONS:
  - store/sqlstore: SQLite/PostgreSQL via database/sql
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - distribution/repository.go: Distribution persistence contract
  - revenue/divisionorder.go: Interest-sum validation
*/
package generic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIVISION ORDER INTEREST
// =============================================================================

// DivisionOrderInterest is one owner's decimal share of a well's revenue.
// EffectiveTo nil means open-ended.
type DivisionOrderInterest struct {
	DivisionOrderID DivisionOrderID
	WellID          WellID
	PartnerID       PartnerID
	DecimalInterest decimal.Decimal
	EffectiveFrom   time.Time
	EffectiveTo     *time.Time
}

// ActiveAt reports whether the interest applies on the given date.
// EffectiveFrom is inclusive, EffectiveTo exclusive.
func (i DivisionOrderInterest) ActiveAt(asOf time.Time) bool {
	if asOf.Before(i.EffectiveFrom) {
		return false
	}
	if i.EffectiveTo != nil && !asOf.Before(*i.EffectiveTo) {
		return false
	}
	return true
}

// DivisionOrderSource lists the interests in force for a well on a date.
type DivisionOrderSource interface {
	ListActiveInterests(ctx context.Context, wellID WellID, asOf time.Time) ([]DivisionOrderInterest, error)
}

// DivisionOrderStore adds the write side used by admin endpoints and seeding.
type DivisionOrderStore interface {
	DivisionOrderSource

	// SaveInterest inserts or replaces the interest keyed by DivisionOrderID.
	SaveInterest(ctx context.Context, interest DivisionOrderInterest) error

	// ListWells returns every well with at least one interest, sorted.
	ListWells(ctx context.Context) ([]WellID, error)
}
