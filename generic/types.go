/*
Package generic provides the value types and contracts shared by the
revenue distribution engine.

PURPOSE:
  This package holds everything the calculation strategies, the distribution
  aggregate, and the persistence adapters agree on: money, production months,
  identifiers, the error taxonomy, and the storage interfaces. It has no
  knowledge of royalty math or pricing rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A fixed-point currency amount (decimal, never float)
  - OptionalMoney: Money that may be absent ("not applicable" != $0.00)
  - Identifiers: Type-safe ids for wells, partners, division orders, etc.

DESIGN PRINCIPLES:
  1. Immutability: Money values are never mutated, every operation returns a new value
  2. Precision: Uses decimal.Decimal; rounding happens only for display (2 places)
  3. Type Safety: Distinct id types prevent passing a WellID where a PartnerID belongs
  4. Presence: Optional amounts carry an explicit presence flag for the audit trail

USAGE:
  price := generic.MustMoney("50.00")
  gross := price.Mul(decimal.NewFromInt(1000))   // $50,000.00
  royalty := gross.Mul(decimal.RequireFromString("0.125"))

SEE ALSO:
  - month.go: ProductionMonth value type
  - errors.go: Error taxonomy
  - store.go: Persistence contracts
*/
package generic

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY
// =============================================================================

// Currency is an ISO-4217 code. One currency is used per deployment.
type Currency string

const CurrencyUSD Currency = "USD"

// DefaultCurrency is applied by constructors that do not take a currency.
// Set once at startup from configuration.
var DefaultCurrency = CurrencyUSD

// DisplayPlaces is the precision boundary for currency display.
const DisplayPlaces = 2

// =============================================================================
// MONEY - Fixed-point currency amount
// =============================================================================

type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

func NewMoney(amount decimal.Decimal) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

func NewMoneyIn(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

func NewMoneyFromInt(amount int64) Money {
	return NewMoney(decimal.NewFromInt(amount))
}

// ParseMoney parses a decimal string such as "8125.00".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Value: s, Reason: "not a decimal number"}
	}
	return NewMoney(d), nil
}

// MustMoney parses s or panics. For tests and constants.
func MustMoney(s string) Money {
	return NewMoney(decimal.RequireFromString(s))
}

func ZeroMoney() Money { return NewMoney(decimal.Zero) }

func (m Money) Zero() Money                 { return Money{Amount: decimal.Zero, Currency: m.currency()} }
func (m Money) Add(o Money) Money           { return Money{Amount: m.Amount.Add(o.Amount), Currency: m.currency()} }
func (m Money) Sub(o Money) Money           { return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.currency()} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Amount: m.Amount.Mul(s), Currency: m.currency()} }
func (m Money) Neg() Money                  { return Money{Amount: m.Amount.Neg(), Currency: m.currency()} }
func (m Money) IsZero() bool                { return m.Amount.IsZero() }
func (m Money) IsNegative() bool            { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool            { return m.Amount.IsPositive() }
func (m Money) Equal(o Money) bool          { return m.currency() == o.currency() && m.Amount.Equal(o.Amount) }
func (m Money) Cmp(o Money) int             { return m.Amount.Cmp(o.Amount) }
func (m Money) GreaterThan(o Money) bool    { return m.Amount.GreaterThan(o.Amount) }
func (m Money) LessThan(o Money) bool       { return m.Amount.LessThan(o.Amount) }

// Max returns the larger amount.
func (m Money) Max(o Money) Money {
	if m.LessThan(o) {
		return o
	}
	return m
}

// Min returns the smaller amount.
func (m Money) Min(o Money) Money {
	if m.GreaterThan(o) {
		return o
	}
	return m
}

// Rounded returns the amount at the display precision (banker's rounding is
// not used; half away from zero, as on a check).
func (m Money) Rounded() Money {
	return Money{Amount: m.Amount.Round(DisplayPlaces), Currency: m.currency()}
}

// String renders for display: "8125.00 USD".
func (m Money) String() string {
	return m.Amount.StringFixed(DisplayPlaces) + " " + string(m.currency())
}

func (m Money) currency() Currency {
	if m.Currency == "" {
		return DefaultCurrency
	}
	return m.Currency
}

// SameCurrency reports an error when amounts mix currencies.
func SameCurrency(ms ...Money) error {
	if len(ms) == 0 {
		return nil
	}
	first := ms[0].currency()
	for _, m := range ms[1:] {
		if m.currency() != first {
			return &ValidationError{
				Field:  "currency",
				Value:  string(m.currency()),
				Reason: fmt.Sprintf("expected %s", first),
			}
		}
	}
	return nil
}

// SumMoney adds all amounts, starting from zero.
func SumMoney(ms ...Money) Money {
	total := ZeroMoney()
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON keeps full precision; amounts travel as strings.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Amount.String(), Currency: m.currency()})
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return &ValidationError{Field: "amount", Value: raw.Amount, Reason: "not a decimal number"}
	}
	m.Amount = d
	m.Currency = raw.Currency
	return nil
}

// =============================================================================
// OPTIONAL MONEY - Present vs. absent
// =============================================================================

// OptionalMoney distinguishes "$0.00 of severance tax" from "severance tax
// not applicable". The zero value is absent.
type OptionalMoney struct {
	value   Money
	present bool
}

func Some(m Money) OptionalMoney { return OptionalMoney{value: m, present: true} }
func None() OptionalMoney        { return OptionalMoney{} }

func (o OptionalMoney) IsPresent() bool    { return o.present }
func (o OptionalMoney) Get() (Money, bool) { return o.value, o.present }

// OrZero returns the amount, or zero when absent.
func (o OptionalMoney) OrZero() Money {
	if !o.present {
		return ZeroMoney()
	}
	return o.value
}

func (o OptionalMoney) Equal(other OptionalMoney) bool {
	if o.present != other.present {
		return false
	}
	return !o.present || o.value.Equal(other.value)
}

func (o OptionalMoney) String() string {
	if !o.present {
		return "n/a"
	}
	return o.value.String()
}

func (o OptionalMoney) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *OptionalMoney) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = None()
		return nil
	}
	var m Money
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*o = Some(m)
	return nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrganizationID string
type WellID string
type PartnerID string
type DivisionOrderID string
type DistributionID string
type LeaseID string
