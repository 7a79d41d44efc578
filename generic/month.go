package generic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PRODUCTION MONTH - Calendar month a production/revenue record pertains to
// =============================================================================

const (
	MinProductionYear = 1900
	MaxProductionYear = 2100
)

// ProductionMonth is an immutable (year, month) pair. Its "YYYY-MM" form is
// part of a distribution's natural key.
type ProductionMonth struct {
	year  int
	month time.Month
}

// NewProductionMonth validates both components.
func NewProductionMonth(year int, month time.Month) (ProductionMonth, error) {
	if year < MinProductionYear || year > MaxProductionYear {
		return ProductionMonth{}, &ValidationError{
			Field:  "production_month.year",
			Value:  strconv.Itoa(year),
			Reason: fmt.Sprintf("must be between %d and %d", MinProductionYear, MaxProductionYear),
		}
	}
	if month < time.January || month > time.December {
		return ProductionMonth{}, &ValidationError{
			Field:  "production_month.month",
			Value:  strconv.Itoa(int(month)),
			Reason: "must be between 1 and 12",
		}
	}
	return ProductionMonth{year: year, month: month}, nil
}

// MustProductionMonth panics on invalid input. For tests and constants.
func MustProductionMonth(year int, month time.Month) ProductionMonth {
	pm, err := NewProductionMonth(year, month)
	if err != nil {
		panic(err)
	}
	return pm
}

// ProductionMonthOf returns the month containing t (in t's location).
func ProductionMonthOf(t time.Time) (ProductionMonth, error) {
	return NewProductionMonth(t.Year(), t.Month())
}

// CurrentProductionMonth returns the month containing now (UTC).
func CurrentProductionMonth() ProductionMonth {
	pm, _ := ProductionMonthOf(time.Now().UTC())
	return pm
}

// ParseProductionMonth accepts "YYYY-MM" and "YYYY-MM-DD".
func ParseProductionMonth(s string) (ProductionMonth, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 && len(parts) != 3 {
		return ProductionMonth{}, &ValidationError{Field: "production_month", Value: s, Reason: "expected YYYY-MM"}
	}
	if len(parts[0]) != 4 || len(parts[1]) != 2 {
		return ProductionMonth{}, &ValidationError{Field: "production_month", Value: s, Reason: "expected YYYY-MM"}
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return ProductionMonth{}, &ValidationError{Field: "production_month", Value: s, Reason: "year is not a number"}
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return ProductionMonth{}, &ValidationError{Field: "production_month", Value: s, Reason: "month is not a number"}
	}
	if len(parts) == 3 {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return ProductionMonth{}, &ValidationError{Field: "production_month", Value: s, Reason: "invalid date"}
		}
	}
	return NewProductionMonth(year, time.Month(month))
}

// Properties
func (pm ProductionMonth) Year() int         { return pm.year }
func (pm ProductionMonth) Month() time.Month { return pm.month }
func (pm ProductionMonth) IsZero() bool      { return pm.year == 0 }

// String returns the canonical "YYYY-MM" form.
func (pm ProductionMonth) String() string {
	return fmt.Sprintf("%04d-%02d", pm.year, int(pm.month))
}

// Comparison
func (pm ProductionMonth) index() int                          { return pm.year*12 + int(pm.month) - 1 }
func (pm ProductionMonth) Equal(other ProductionMonth) bool     { return pm.index() == other.index() }
func (pm ProductionMonth) Before(other ProductionMonth) bool    { return pm.index() < other.index() }
func (pm ProductionMonth) After(other ProductionMonth) bool     { return pm.index() > other.index() }
func (pm ProductionMonth) BeforeOrEqual(o ProductionMonth) bool { return !pm.After(o) }

// MonthsBetween returns the signed number of months from pm to other.
// 2024-01 -> 2024-03 is 2.
func (pm ProductionMonth) MonthsBetween(other ProductionMonth) int {
	return other.index() - pm.index()
}

// AddMonths may leave the valid year range; the error says so.
func (pm ProductionMonth) AddMonths(n int) (ProductionMonth, error) {
	idx := pm.index() + n
	return NewProductionMonth(idx/12, time.Month(idx%12+1))
}

func (pm ProductionMonth) Next() (ProductionMonth, error)     { return pm.AddMonths(1) }
func (pm ProductionMonth) Previous() (ProductionMonth, error) { return pm.AddMonths(-1) }

// StartDate is the first day of the month, UTC midnight.
func (pm ProductionMonth) StartDate() time.Time {
	return time.Date(pm.year, pm.month, 1, 0, 0, 0, 0, time.UTC)
}

// EndDate is the last day of the month, UTC midnight.
func (pm ProductionMonth) EndDate() time.Time {
	return pm.StartDate().AddDate(0, 1, -1)
}

// Contains reports whether t falls in the month (UTC).
func (pm ProductionMonth) Contains(t time.Time) bool {
	t = t.UTC()
	return t.Year() == pm.year && t.Month() == pm.month
}

func (pm ProductionMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(pm.String())
}

func (pm *ProductionMonth) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseProductionMonth(s)
	if err != nil {
		return err
	}
	*pm = parsed
	return nil
}
