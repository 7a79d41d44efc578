/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract. Amounts, fractions and
  volumes are decimal strings; factory/ converts them.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculations:
    CalculatePaymentRequest, CalculatePriceRequest, CalculateBreakdownRequest
    PaymentDTO, PricingDTO, BreakdownResponse

  Distributions:
    CreateDistributionRequest, RecalculateDistributionRequest,
    PayDistributionRequest, DistributionDTO, EventDTO

  Division orders:
    DivisionOrderInterestDTO, DivisionOrderValidationDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done by factory/ and the domain, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/calculation.go: JSON schema types embedded here
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/payment"
	"github.com/warp/revenue-engine/pricing"
	"github.com/warp/revenue-engine/revenue"
)

// =============================================================================
// CALCULATIONS
// =============================================================================

// CalculatePaymentRequest prices nothing: production prices are used as given.
// Empty CalculationTypes auto-selects from the lease.
type CalculatePaymentRequest struct {
	Lease            factory.LeaseJSON      `json:"lease"`
	Production       factory.ProductionJSON `json:"production"`
	CalculationTypes []string               `json:"calculation_types,omitempty"`
}

type CalculatePriceRequest struct {
	Market   factory.MarketJSON   `json:"market"`
	Quality  factory.QualityJSON  `json:"quality"`
	Location factory.LocationJSON `json:"location"`
	Volumes  factory.VolumesJSON  `json:"volumes"`
	Method   string               `json:"pricing_method,omitempty"`
}

// CalculateBreakdownRequest runs pricing, then payment, then deductions.
type CalculateBreakdownRequest struct {
	Lease            factory.LeaseJSON      `json:"lease"`
	Production       factory.ProductionJSON `json:"production"`
	Market           factory.MarketJSON     `json:"market"`
	Quality          factory.QualityJSON    `json:"quality"`
	Location         factory.LocationJSON   `json:"location"`
	PricingMethod    string                 `json:"pricing_method,omitempty"`
	CalculationTypes []string               `json:"calculation_types,omitempty"`
	Deductions       factory.DeductionsJSON `json:"deductions"`
}

type PaymentDTO struct {
	Amount          decimal.Decimal            `json:"amount"`
	Currency        string                     `json:"currency"`
	CalculationType string                     `json:"calculation_type"`
	Breakdown       map[string]decimal.Decimal `json:"breakdown"`
}

type AdjustmentDTO struct {
	Type        string          `json:"type"`
	Product     string          `json:"product"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type PricingDTO struct {
	OilPrice      decimal.Decimal `json:"oil_price"`
	GasPrice      decimal.Decimal `json:"gas_price"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Currency      string          `json:"currency"`
	PricingMethod string          `json:"pricing_method"`
	Adjustments   []AdjustmentDTO `json:"adjustments"`
}

type BreakdownResponse struct {
	Pricing   PricingDTO            `json:"pricing"`
	Payment   PaymentDTO            `json:"payment"`
	Breakdown factory.BreakdownJSON `json:"revenue_breakdown"`
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

type CreateDistributionRequest struct {
	ID                   string                `json:"id,omitempty"`
	OrganizationID       string                `json:"organization_id"`
	WellID               string                `json:"well_id"`
	PartnerID            string                `json:"partner_id"`
	DivisionOrderID      string                `json:"division_order_id"`
	ProductionMonth      string                `json:"production_month"`
	ProductionVolumes    factory.VolumesJSON   `json:"production_volumes"`
	RevenueBreakdown     factory.BreakdownJSON `json:"revenue_breakdown"`
	CreatedBy            string                `json:"created_by"`
	AcknowledgeImbalance bool                  `json:"acknowledge_imbalance,omitempty"`
}

// RecalculateDistributionRequest: ExpectedVersion, when set, must match the
// stored version or the call conflicts.
type RecalculateDistributionRequest struct {
	ExpectedVersion   *int                  `json:"expected_version,omitempty"`
	ProductionVolumes factory.VolumesJSON   `json:"production_volumes"`
	RevenueBreakdown  factory.BreakdownJSON `json:"revenue_breakdown"`
	CalculatedBy      string                `json:"calculated_by"`
	Reason            string                `json:"reason,omitempty"`
}

type PayDistributionRequest struct {
	ExpectedVersion *int   `json:"expected_version,omitempty"`
	CheckNumber     string `json:"check_number,omitempty"`
	PaymentDate     string `json:"payment_date"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	ProcessedBy     string `json:"processed_by"`
}

type PaymentInfoDTO struct {
	CheckNumber   string `json:"check_number,omitempty"`
	PaymentDate   string `json:"payment_date,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type DistributionDTO struct {
	ID                string                `json:"id"`
	OrganizationID    string                `json:"organization_id"`
	WellID            string                `json:"well_id"`
	PartnerID         string                `json:"partner_id"`
	DivisionOrderID   string                `json:"division_order_id"`
	ProductionMonth   string                `json:"production_month"`
	ProductionVolumes factory.VolumesJSON   `json:"production_volumes"`
	RevenueBreakdown  factory.BreakdownJSON `json:"revenue_breakdown"`
	Currency          string                `json:"currency"`
	PaymentInfo       *PaymentInfoDTO       `json:"payment_info,omitempty"`
	IsPaid            bool                  `json:"is_paid"`
	Status            string                `json:"status"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at"`
	Version           int                   `json:"version"`
}

type EventDTO struct {
	ID             string            `json:"id"`
	DistributionID string            `json:"distribution_id"`
	Type           string            `json:"type"`
	Version        int               `json:"version"`
	Actor          string            `json:"actor,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	OccurredAt     string            `json:"occurred_at"`
	Details        map[string]string `json:"details,omitempty"`
}

// =============================================================================
// DIVISION ORDERS
// =============================================================================

type DivisionOrderInterestDTO struct {
	DivisionOrderID string          `json:"division_order_id,omitempty"`
	WellID          string          `json:"well_id"`
	PartnerID       string          `json:"partner_id"`
	DecimalInterest decimal.Decimal `json:"decimal_interest"`
	EffectiveFrom   string          `json:"effective_from"`
	EffectiveTo     *string         `json:"effective_to,omitempty"`
}

type DivisionOrderValidationDTO struct {
	WellID    string                     `json:"well_id"`
	AsOf      string                     `json:"as_of"`
	Valid     bool                       `json:"valid"`
	Sum       decimal.Decimal            `json:"sum"`
	Deviation decimal.Decimal            `json:"deviation"`
	Tolerance decimal.Decimal            `json:"tolerance"`
	Entries   []DivisionOrderInterestDTO `json:"entries"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toPaymentDTO(a payment.Amount) PaymentDTO {
	breakdown := make(map[string]decimal.Decimal, len(a.Breakdown))
	for k, v := range a.Breakdown {
		breakdown[k] = v
	}
	return PaymentDTO{
		Amount:          a.Amount.Amount,
		Currency:        string(a.Currency),
		CalculationType: string(a.CalculationType),
		Breakdown:       breakdown,
	}
}

func toPricingDTO(r pricing.Result) PricingDTO {
	adjustments := make([]AdjustmentDTO, len(r.Adjustments))
	for i, a := range r.Adjustments {
		adjustments[i] = AdjustmentDTO{
			Type:        a.Type,
			Product:     string(a.Product),
			Description: a.Description,
			Amount:      a.Amount.Amount,
		}
	}
	return PricingDTO{
		OilPrice:      r.OilPrice.Amount,
		GasPrice:      r.GasPrice.Amount,
		TotalValue:    r.TotalValue.Amount,
		Currency:      string(r.TotalValue.Currency),
		PricingMethod: string(r.PricingMethod),
		Adjustments:   adjustments,
	}
}

func toDistributionDTO(f *factory.CalculationFactory, d distribution.Distribution) DistributionDTO {
	dto := DistributionDTO{
		ID:                string(d.ID),
		OrganizationID:    string(d.OrganizationID),
		WellID:            string(d.WellID),
		PartnerID:         string(d.PartnerID),
		DivisionOrderID:   string(d.DivisionOrderID),
		ProductionMonth:   d.ProductionMonth.String(),
		ProductionVolumes: f.VolumesToJSON(d.ProductionVolumes),
		RevenueBreakdown:  f.BreakdownToJSON(d.RevenueBreakdown),
		Currency:          string(d.RevenueBreakdown.TotalRevenue.Currency),
		IsPaid:            d.IsPaid,
		Status:            string(d.Status),
		CreatedAt:         d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         d.UpdatedAt.Format(time.RFC3339),
		Version:           d.Version,
	}
	if d.IsPaid {
		info := &PaymentInfoDTO{
			CheckNumber:   d.PaymentInfo.CheckNumber,
			PaymentMethod: d.PaymentInfo.PaymentMethod,
		}
		if d.PaymentInfo.PaymentDate != nil {
			info.PaymentDate = d.PaymentInfo.PaymentDate.Format(time.DateOnly)
		}
		dto.PaymentInfo = info
	}
	return dto
}

func toEventDTO(e distribution.Event) EventDTO {
	return EventDTO{
		ID:             e.ID,
		DistributionID: string(e.DistributionID),
		Type:           string(e.Type),
		Version:        e.Version,
		Actor:          e.Actor,
		Reason:         e.Reason,
		OccurredAt:     e.OccurredAt.Format(time.RFC3339),
		Details:        e.Details,
	}
}

func toInterestDTO(i generic.DivisionOrderInterest) DivisionOrderInterestDTO {
	dto := DivisionOrderInterestDTO{
		DivisionOrderID: string(i.DivisionOrderID),
		WellID:          string(i.WellID),
		PartnerID:       string(i.PartnerID),
		DecimalInterest: i.DecimalInterest,
		EffectiveFrom:   i.EffectiveFrom.Format(time.DateOnly),
	}
	if i.EffectiveTo != nil {
		to := i.EffectiveTo.Format(time.DateOnly)
		dto.EffectiveTo = &to
	}
	return dto
}

func toValidationDTO(v revenue.DivisionOrderValidation) DivisionOrderValidationDTO {
	entries := make([]DivisionOrderInterestDTO, len(v.Entries))
	for i, e := range v.Entries {
		entries[i] = toInterestDTO(e)
	}
	return DivisionOrderValidationDTO{
		WellID:    string(v.WellID),
		AsOf:      v.AsOf.Format(time.DateOnly),
		Valid:     v.Valid,
		Sum:       v.Sum,
		Deviation: v.Deviation,
		Tolerance: v.Tolerance,
		Entries:   entries,
	}
}
