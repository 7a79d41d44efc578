package generic

// =============================================================================
// MONTH RANGE - Inclusive span of production months
// =============================================================================

// MonthRange is [Start, End], both inclusive.
type MonthRange struct {
	Start ProductionMonth
	End   ProductionMonth
}

// RangeTo builds the inclusive range from pm to end.
func (pm ProductionMonth) RangeTo(end ProductionMonth) (MonthRange, error) {
	if end.Before(pm) {
		return MonthRange{}, ErrInvalidPeriod
	}
	return MonthRange{Start: pm, End: end}, nil
}

// Contains returns true if the month is within [Start, End].
func (r MonthRange) Contains(pm ProductionMonth) bool {
	return !pm.Before(r.Start) && !pm.After(r.End)
}

// Len is the number of months in the range.
func (r MonthRange) Len() int {
	return r.Start.MonthsBetween(r.End) + 1
}

// Months returns every month in the range, oldest first.
func (r MonthRange) Months() []ProductionMonth {
	months := make([]ProductionMonth, 0, r.Len())
	current := r.Start
	for current.BeforeOrEqual(r.End) {
		months = append(months, current)
		next, err := current.Next()
		if err != nil {
			break
		}
		current = next
	}
	return months
}

func (r MonthRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
