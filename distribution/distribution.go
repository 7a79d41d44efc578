/*
Package distribution owns the lifecycle of one revenue distribution: the
amount owed to one partner under one division order for one well and
production month.

PURPOSE:
  A Distribution is an immutable snapshot. Transitions are pure functions
  that return the next snapshot plus the event describing it; nothing is
  mutated in place. The Store performs the compare-and-swap on Version.

STATE MACHINE:
  draft -> calculated -> (recalculated)* -> paid

  Create       draft -> calculated      version 0
  Recalculate  calculated|recalculated   version + 1
  MarkPaid     calculated|recalculated   version + 1, terminal

  Paid is terminal. Reopening a paid period is a compensating business
  action outside this package.

INVARIANTS:
  - Version increases by exactly one per accepted write
  - RevenueBreakdown.NetRevenue == TotalRevenue - deductions (within 0.01)
  - NetRevenue is never negative
  - IsPaid == (Status == StatusPaid)

SEE ALSO:
  - breakdown.go: RevenueBreakdown and its validation
  - events.go: Domain events appended on every accepted write
  - repository.go: Store contract with optimistic locking
*/
package distribution

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	// StatusDraft is the state of an aggregate before Create accepts it. It
	// is never persisted.
	StatusDraft        Status = "draft"
	StatusCalculated   Status = "calculated"
	StatusRecalculated Status = "recalculated"
	StatusPaid         Status = "paid"
)

// =============================================================================
// VALUE OBJECTS
// =============================================================================

// ProductionVolumes are the volumes the breakdown was computed from.
type ProductionVolumes struct {
	OilVolume decimal.NullDecimal // bbl
	GasVolume decimal.NullDecimal // mcf
}

func (v ProductionVolumes) Equal(o ProductionVolumes) bool {
	return nullEqual(v.OilVolume, o.OilVolume) && nullEqual(v.GasVolume, o.GasVolume)
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// PaymentInfo is set once, by MarkPaid.
type PaymentInfo struct {
	CheckNumber   string
	PaymentDate   *time.Time
	PaymentMethod string
}

// Key is the natural key. At most one distribution exists per key.
type Key struct {
	WellID          generic.WellID
	PartnerID       generic.PartnerID
	DivisionOrderID generic.DivisionOrderID
	ProductionMonth generic.ProductionMonth
}

func (k Key) String() string {
	return string(k.WellID) + "/" + string(k.PartnerID) + "/" + string(k.DivisionOrderID) + "/" + k.ProductionMonth.String()
}

// =============================================================================
// DISTRIBUTION - Aggregate root
// =============================================================================

type Distribution struct {
	ID                generic.DistributionID
	OrganizationID    generic.OrganizationID
	WellID            generic.WellID
	PartnerID         generic.PartnerID
	DivisionOrderID   generic.DivisionOrderID
	ProductionMonth   generic.ProductionMonth
	ProductionVolumes ProductionVolumes
	RevenueBreakdown  RevenueBreakdown
	PaymentInfo       PaymentInfo
	IsPaid            bool
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int
}

func (d Distribution) Key() Key {
	return Key{
		WellID:          d.WellID,
		PartnerID:       d.PartnerID,
		DivisionOrderID: d.DivisionOrderID,
		ProductionMonth: d.ProductionMonth,
	}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateParams describe a new distribution. ID is generated when empty.
type CreateParams struct {
	ID                generic.DistributionID
	OrganizationID    generic.OrganizationID
	WellID            generic.WellID
	PartnerID         generic.PartnerID
	DivisionOrderID   generic.DivisionOrderID
	ProductionMonth   generic.ProductionMonth
	ProductionVolumes ProductionVolumes
	RevenueBreakdown  RevenueBreakdown
	CreatedBy         string
}

func (p CreateParams) validate() error {
	switch {
	case p.OrganizationID == "":
		return &generic.ValidationError{Field: "organization_id", Reason: "is required"}
	case p.WellID == "":
		return &generic.ValidationError{Field: "well_id", Reason: "is required"}
	case p.PartnerID == "":
		return &generic.ValidationError{Field: "partner_id", Reason: "is required"}
	case p.DivisionOrderID == "":
		return &generic.ValidationError{Field: "division_order_id", Reason: "is required"}
	case p.ProductionMonth.IsZero():
		return &generic.ValidationError{Field: "production_month", Reason: "is required"}
	}
	if err := validateVolumes(p.ProductionVolumes); err != nil {
		return err
	}
	return p.RevenueBreakdown.Validate()
}

// Create builds a calculated distribution at version 0, unpaid.
func Create(p CreateParams, now time.Time) (Distribution, Event, error) {
	if err := p.validate(); err != nil {
		return Distribution{}, Event{}, err
	}
	id := p.ID
	if id == "" {
		id = generic.DistributionID(uuid.NewString())
	}
	now = now.UTC()

	d := Distribution{
		ID:                id,
		OrganizationID:    p.OrganizationID,
		WellID:            p.WellID,
		PartnerID:         p.PartnerID,
		DivisionOrderID:   p.DivisionOrderID,
		ProductionMonth:   p.ProductionMonth,
		ProductionVolumes: p.ProductionVolumes,
		RevenueBreakdown:  p.RevenueBreakdown,
		Status:            StatusCalculated,
		CreatedAt:         now,
		UpdatedAt:         now,
		Version:           0,
	}
	return d, newEvent(d, EventCreated, p.CreatedBy, "", now, map[string]string{
		"net_revenue": d.RevenueBreakdown.NetRevenue.Amount.String(),
	}), nil
}

// =============================================================================
// RECALCULATE
// =============================================================================

type RecalculateParams struct {
	ProductionVolumes ProductionVolumes
	RevenueBreakdown  RevenueBreakdown
	CalculatedBy      string
	Reason            string
}

// Recalculate replaces volumes and breakdown. Identical inputs produce an
// identical breakdown; the version still advances because every accepted
// write is an audit entry.
func (d Distribution) Recalculate(p RecalculateParams, now time.Time) (Distribution, Event, error) {
	if d.IsPaid {
		return d, Event{}, d.alreadyPaid("cannot recalculate a paid distribution")
	}
	if p.CalculatedBy == "" {
		return d, Event{}, &generic.ValidationError{Field: "calculated_by", Reason: "is required"}
	}
	if err := validateVolumes(p.ProductionVolumes); err != nil {
		return d, Event{}, err
	}
	if err := p.RevenueBreakdown.Validate(); err != nil {
		var br *generic.BusinessRuleError
		if errors.As(err, &br) {
			br.DistributionID = d.ID
		}
		return d, Event{}, err
	}

	previousNet := d.RevenueBreakdown.NetRevenue
	next := d
	next.ProductionVolumes = p.ProductionVolumes
	next.RevenueBreakdown = p.RevenueBreakdown
	next.Status = StatusRecalculated
	next.UpdatedAt = now.UTC()
	next.Version = d.Version + 1

	return next, newEvent(next, EventRecalculated, p.CalculatedBy, p.Reason, next.UpdatedAt, map[string]string{
		"previous_net_revenue": previousNet.Amount.String(),
		"net_revenue":          next.RevenueBreakdown.NetRevenue.Amount.String(),
	}), nil
}

// =============================================================================
// MARK PAID
// =============================================================================

type PaymentParams struct {
	CheckNumber   string
	PaymentDate   time.Time
	PaymentMethod string
	ProcessedBy   string
}

// MarkPaid records payment. It fails with ErrAlreadyPaid on a paid distribution.
func (d Distribution) MarkPaid(p PaymentParams, now time.Time) (Distribution, Event, error) {
	if d.IsPaid {
		return d, Event{}, d.alreadyPaid("payment already recorded")
	}
	if p.PaymentDate.IsZero() {
		return d, Event{}, &generic.ValidationError{Field: "payment_date", Reason: "is required"}
	}
	if p.ProcessedBy == "" {
		return d, Event{}, &generic.ValidationError{Field: "processed_by", Reason: "is required"}
	}

	paidOn := p.PaymentDate.UTC()
	next := d
	next.PaymentInfo = PaymentInfo{
		CheckNumber:   p.CheckNumber,
		PaymentDate:   &paidOn,
		PaymentMethod: p.PaymentMethod,
	}
	next.IsPaid = true
	next.Status = StatusPaid
	next.UpdatedAt = now.UTC()
	next.Version = d.Version + 1

	return next, newEvent(next, EventPaid, p.ProcessedBy, "", next.UpdatedAt, map[string]string{
		"check_number":   p.CheckNumber,
		"payment_date":   paidOn.Format(time.DateOnly),
		"payment_method": p.PaymentMethod,
		"net_revenue":    next.RevenueBreakdown.NetRevenue.Amount.String(),
	}), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (d Distribution) alreadyPaid(msg string) error {
	return &generic.BusinessRuleError{Rule: generic.ErrAlreadyPaid, DistributionID: d.ID, Message: msg}
}

func validateVolumes(v ProductionVolumes) error {
	if v.OilVolume.Valid && v.OilVolume.Decimal.IsNegative() {
		return &generic.ValidationError{Field: "oil_volume", Value: v.OilVolume.Decimal.String(), Reason: "must not be negative"}
	}
	if v.GasVolume.Valid && v.GasVolume.Decimal.IsNegative() {
		return &generic.ValidationError{Field: "gas_volume", Value: v.GasVolume.Decimal.String(), Reason: "must not be negative"}
	}
	return nil
}
