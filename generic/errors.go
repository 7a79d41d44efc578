/*
errors.go - Centralized error types for the revenue engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every money-affecting failure is returned synchronously to the caller;
  nothing in this taxonomy is logged-and-continued.

ERROR CATEGORIES:
  1. Input validation  - malformed month, unknown strategy tag, bad breakdown
  2. Business rule     - already paid, negative net revenue
  3. Concurrency       - version mismatch at save time (retryable)
  4. Division order    - interest sum deviates from 1.0 beyond tolerance
  5. Store             - not found, duplicate natural key

USAGE:
  if errors.Is(err, generic.ErrVersionConflict) {
      // reload and retry
  }

  var br *generic.BusinessRuleError
  if errors.As(err, &br) {
      log.Println(br.Rule)
  }

SEE ALSO:
  - store.go: Store contracts that return these errors
  - api/handlers.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the root of every input validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownStrategy is returned when an explicit strategy tag has no implementation.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrBusinessRule is the root of every business-rule violation.
	ErrBusinessRule = errors.New("business rule violation")

	// ErrAlreadyPaid is returned when recalculating or paying a paid distribution.
	ErrAlreadyPaid = errors.New("distribution already paid")

	// ErrNegativeNetRevenue is returned when a breakdown would leave net revenue below zero.
	ErrNegativeNetRevenue = errors.New("net revenue is negative")

	// ErrVersionConflict is returned when optimistic locking detects a concurrent write.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDivisionOrderImbalance is returned when decimal interests do not sum to 1.0.
	ErrDivisionOrderImbalance = errors.New("division order interests do not sum to 1")

	// ErrNotFound is returned when a referenced distribution doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateDistribution is returned when the natural key already exists.
	ErrDuplicateDistribution = errors.New("distribution already exists for well, partner, division order and month")

	// ErrInvalidPeriod is returned when a month range ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field and value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// UnknownStrategyError is a validation error for an unresolvable tag.
type UnknownStrategyError struct {
	Family string // "payment" or "pricing"
	Tag    string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown %s strategy %q", e.Family, e.Tag)
}

func (e *UnknownStrategyError) Unwrap() []error { return []error{ErrUnknownStrategy, ErrInvalidInput} }

// BusinessRuleError wraps a specific rule sentinel (ErrAlreadyPaid, ErrNegativeNetRevenue).
type BusinessRuleError struct {
	Rule           error
	DistributionID DistributionID
	Message        string
}

func (e *BusinessRuleError) Error() string {
	if e.DistributionID == "" {
		return fmt.Sprintf("%v: %s", e.Rule, e.Message)
	}
	return fmt.Sprintf("distribution %s: %v: %s", e.DistributionID, e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() []error { return []error{e.Rule, ErrBusinessRule} }

// VersionConflictError reports the version the caller held and the one stored.
type VersionConflictError struct {
	ID       DistributionID
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on distribution %s: expected version %d, stored version %d",
		e.ID, e.Expected, e.Actual)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

// DivisionOrderImbalanceError carries the computed sum for reporting.
type DivisionOrderImbalanceError struct {
	WellID    WellID
	Sum       decimal.Decimal
	Deviation decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *DivisionOrderImbalanceError) Error() string {
	return fmt.Sprintf("division order for well %s sums to %s (deviation %s exceeds tolerance %s)",
		e.WellID, e.Sum.String(), e.Deviation.String(), e.Tolerance.String())
}

func (e *DivisionOrderImbalanceError) Unwrap() error { return ErrDivisionOrderImbalance }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed after reload-and-retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsClientError returns true if the error is due to invalid client input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrBusinessRule) ||
		errors.Is(err, ErrDivisionOrderImbalance) ||
		errors.Is(err, ErrDuplicateDistribution) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
