package revenue

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// DefaultTolerance absorbs rounding from fixed-point fractions stored at
// eight or more places.
var DefaultTolerance = decimal.New(1, -6)

var unity = decimal.NewFromInt(1)

// =============================================================================
// DIVISION ORDER VALIDATION
// =============================================================================

// DivisionOrderValidation reports the unity check for a well. Entries are
// returned on failure too, so callers can show which allocations are off.
type DivisionOrderValidation struct {
	WellID    generic.WellID
	AsOf      time.Time
	Valid     bool
	Sum       decimal.Decimal
	Deviation decimal.Decimal
	Tolerance decimal.Decimal
	Entries   []generic.DivisionOrderInterest
}

// Err is nil when valid, otherwise a DivisionOrderImbalanceError.
func (v DivisionOrderValidation) Err() error {
	if v.Valid {
		return nil
	}
	return &generic.DivisionOrderImbalanceError{
		WellID:    v.WellID,
		Sum:       v.Sum,
		Deviation: v.Deviation,
		Tolerance: v.Tolerance,
	}
}

// ValidateInterests sums the decimal interests and compares to 1 within
// tolerance. An empty set sums to zero and fails.
func ValidateInterests(wellID generic.WellID, asOf time.Time, interests []generic.DivisionOrderInterest, tolerance decimal.Decimal) DivisionOrderValidation {
	sum := decimal.Zero
	for _, i := range interests {
		sum = sum.Add(i.DecimalInterest)
	}
	deviation := sum.Sub(unity).Abs()
	return DivisionOrderValidation{
		WellID:    wellID,
		AsOf:      asOf,
		Valid:     len(interests) > 0 && deviation.LessThanOrEqual(tolerance),
		Sum:       sum,
		Deviation: deviation,
		Tolerance: tolerance,
		Entries:   interests,
	}
}
