/*
handlers.go - HTTP API handlers for the revenue distribution engine

PURPOSE:
  Exposes the revenue engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to revenue.Engine.

ENDPOINTS:
  Calculations (pure, nothing stored):
    POST   /api/calculations/payment     Lease + production -> payment amount
    POST   /api/calculations/price       Market + quality + location -> prices
    POST   /api/calculations/breakdown   Pricing, payment and deductions

  Distributions:
    POST   /api/distributions                  Create (division-order gated)
    GET    /api/distributions/{id}             Get distribution
    GET    /api/distributions/{id}/events      Event history
    POST   /api/distributions/{id}/recalculate Recalculate (optimistic lock)
    POST   /api/distributions/{id}/pay         Mark paid (optimistic lock)

  Wells:
    GET    /api/wells/{id}/distributions?month=YYYY-MM
    GET    /api/wells/{id}/division-order?as_of=YYYY-MM-DD

  Division orders:
    POST   /api/division-orders        Record an interest
    POST   /api/division-orders/audit  Validate every well now

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

REQUEST FLOW:
  1. Decode JSON into a DTO
  2. Convert via factory (decimal parsing, sign checks)
  3. Call the engine
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown strategy
  - 404: Distribution not found
  - 409: Version conflict (retry with a fresh read), duplicate key
  - 422: Business rule (already paid, negative net), division-order imbalance
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/payment"
	"github.com/warp/revenue-engine/pricing"
	"github.com/warp/revenue-engine/revenue"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears stored data. Both the memory and SQL stores implement it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *revenue.Engine
	Store   Resetter
	Factory *factory.CalculationFactory
	Logger  *zap.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. store is used only for scenario resets.
func NewHandler(engine *revenue.Engine, store Resetter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Engine:  engine,
		Store:   store,
		Factory: factory.NewCalculationFactory(),
		Logger:  log,
	}
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// CalculatePayment runs a payment strategy over the given lease and production.
func (h *Handler) CalculatePayment(w http.ResponseWriter, r *http.Request) {
	var req CalculatePaymentRequest
	if !decode(w, r, &req) {
		return
	}

	l, err := h.Factory.LeaseFromJSON(req.Lease)
	if err != nil {
		h.fail(w, r, "Invalid lease", err)
		return
	}
	p, err := h.Factory.ProductionFromJSON(req.Production)
	if err != nil {
		h.fail(w, r, "Invalid production", err)
		return
	}
	types, err := payment.ParseCalculationTypes(req.CalculationTypes)
	if err != nil {
		h.fail(w, r, "Invalid calculation type", err)
		return
	}

	amount, err := h.Engine.CalculatePayment(l, p, types...)
	if err != nil {
		h.fail(w, r, "Payment calculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(amount))
}

// CalculatePrice runs a pricing strategy, auto-selected when no method is given.
func (h *Handler) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	var req CalculatePriceRequest
	if !decode(w, r, &req) {
		return
	}

	pr, err := h.priceRequest(req.Market, req.Quality, req.Location)
	if err != nil {
		h.fail(w, r, "Invalid pricing input", err)
		return
	}
	if pr.Volumes, err = h.Factory.PricingVolumes(req.Volumes); err != nil {
		h.fail(w, r, "Invalid volumes", err)
		return
	}
	pr.Method = pricing.Method(strings.TrimSpace(req.Method))

	result, err := h.Engine.CalculatePrice(pr)
	if err != nil {
		h.fail(w, r, "Pricing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPricingDTO(result))
}

// CalculateBreakdown chains pricing, payment and deductions without storing.
func (h *Handler) CalculateBreakdown(w http.ResponseWriter, r *http.Request) {
	var req CalculateBreakdownRequest
	if !decode(w, r, &req) {
		return
	}

	pr, err := h.priceRequest(req.Market, req.Quality, req.Location)
	if err != nil {
		h.fail(w, r, "Invalid pricing input", err)
		return
	}
	br := revenue.BreakdownRequest{
		Market:        pr.Market,
		Quality:       pr.Quality,
		Location:      pr.Location,
		PricingMethod: pricing.Method(strings.TrimSpace(req.PricingMethod)),
	}
	if br.Lease, err = h.Factory.LeaseFromJSON(req.Lease); err != nil {
		h.fail(w, r, "Invalid lease", err)
		return
	}
	if br.Production, err = h.Factory.ProductionFromJSON(req.Production); err != nil {
		h.fail(w, r, "Invalid production", err)
		return
	}
	if br.PaymentTypes, err = payment.ParseCalculationTypes(req.CalculationTypes); err != nil {
		h.fail(w, r, "Invalid calculation type", err)
		return
	}
	if br.Deductions, err = h.Factory.DeductionsFromJSON(req.Deductions); err != nil {
		h.fail(w, r, "Invalid deductions", err)
		return
	}

	result, err := h.Engine.CalculateBreakdown(br)
	if err != nil {
		h.fail(w, r, "Breakdown calculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, BreakdownResponse{
		Pricing:   toPricingDTO(result.Pricing),
		Payment:   toPaymentDTO(result.Payment),
		Breakdown: h.Factory.BreakdownToJSON(result.Breakdown),
	})
}

func (h *Handler) priceRequest(m factory.MarketJSON, q factory.QualityJSON, l factory.LocationJSON) (revenue.PriceRequest, error) {
	var (
		pr  revenue.PriceRequest
		err error
	)
	if pr.Market, err = h.Factory.MarketFromJSON(m); err != nil {
		return pr, err
	}
	if pr.Quality, err = h.Factory.QualityFromJSON(q); err != nil {
		return pr, err
	}
	pr.Location, err = h.Factory.LocationFromJSON(l)
	return pr, err
}

// =============================================================================
// DISTRIBUTION HANDLERS
// =============================================================================

// CreateDistribution stores a new distribution at version 0.
func (h *Handler) CreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req CreateDistributionRequest
	if !decode(w, r, &req) {
		return
	}

	month, err := generic.ParseProductionMonth(req.ProductionMonth)
	if err != nil {
		h.fail(w, r, "Invalid production month", err)
		return
	}
	volumes, err := h.Factory.VolumesFromJSON(req.ProductionVolumes)
	if err != nil {
		h.fail(w, r, "Invalid production volumes", err)
		return
	}
	breakdown, err := h.Factory.BreakdownFromJSON(req.RevenueBreakdown)
	if err != nil {
		h.fail(w, r, "Invalid revenue breakdown", err)
		return
	}

	d, err := h.Engine.CreateDistribution(r.Context(), revenue.CreateRequest{
		CreateParams: distribution.CreateParams{
			ID:                generic.DistributionID(strings.TrimSpace(req.ID)),
			OrganizationID:    generic.OrganizationID(strings.TrimSpace(req.OrganizationID)),
			WellID:            generic.WellID(strings.TrimSpace(req.WellID)),
			PartnerID:         generic.PartnerID(strings.TrimSpace(req.PartnerID)),
			DivisionOrderID:   generic.DivisionOrderID(strings.TrimSpace(req.DivisionOrderID)),
			ProductionMonth:   month,
			ProductionVolumes: volumes,
			RevenueBreakdown:  breakdown,
			CreatedBy:         req.CreatedBy,
		},
		AcknowledgeImbalance: req.AcknowledgeImbalance,
	})
	if err != nil {
		h.fail(w, r, "Failed to create distribution", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDistributionDTO(h.Factory, d))
}

// GetDistribution returns one distribution.
func (h *Handler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := h.Engine.GetDistribution(r.Context(), distributionID(r))
	if err != nil {
		h.fail(w, r, "Failed to load distribution", err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionDTO(h.Factory, d))
}

// GetDistributionEvents returns the event history, oldest first.
func (h *Handler) GetDistributionEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Engine.DistributionHistory(r.Context(), distributionID(r))
	if err != nil {
		h.fail(w, r, "Failed to load events", err)
		return
	}
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecalculateDistribution replaces volumes and breakdown.
func (h *Handler) RecalculateDistribution(w http.ResponseWriter, r *http.Request) {
	var req RecalculateDistributionRequest
	if !decode(w, r, &req) {
		return
	}

	volumes, err := h.Factory.VolumesFromJSON(req.ProductionVolumes)
	if err != nil {
		h.fail(w, r, "Invalid production volumes", err)
		return
	}
	breakdown, err := h.Factory.BreakdownFromJSON(req.RevenueBreakdown)
	if err != nil {
		h.fail(w, r, "Invalid revenue breakdown", err)
		return
	}

	d, err := h.Engine.RecalculateDistribution(r.Context(), revenue.RecalculateRequest{
		ID:              distributionID(r),
		ExpectedVersion: req.ExpectedVersion,
		RecalculateParams: distribution.RecalculateParams{
			ProductionVolumes: volumes,
			RevenueBreakdown:  breakdown,
			CalculatedBy:      req.CalculatedBy,
			Reason:            req.Reason,
		},
	})
	if err != nil {
		h.fail(w, r, "Failed to recalculate distribution", err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionDTO(h.Factory, d))
}

// PayDistribution records payment. Paid is terminal.
func (h *Handler) PayDistribution(w http.ResponseWriter, r *http.Request) {
	var req PayDistributionRequest
	if !decode(w, r, &req) {
		return
	}

	paidOn, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		h.fail(w, r, "Invalid payment date", err)
		return
	}

	d, err := h.Engine.MarkDistributionPaid(r.Context(), revenue.PayRequest{
		ID:              distributionID(r),
		ExpectedVersion: req.ExpectedVersion,
		PaymentParams: distribution.PaymentParams{
			CheckNumber:   req.CheckNumber,
			PaymentDate:   paidOn,
			PaymentMethod: req.PaymentMethod,
			ProcessedBy:   req.ProcessedBy,
		},
	})
	if err != nil {
		h.fail(w, r, "Failed to mark distribution paid", err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionDTO(h.Factory, d))
}

// =============================================================================
// WELL HANDLERS
// =============================================================================

// ListWellDistributions lists a well's distributions, optionally for one month.
func (h *Handler) ListWellDistributions(w http.ResponseWriter, r *http.Request) {
	var month generic.ProductionMonth
	if raw := r.URL.Query().Get("month"); raw != "" {
		var err error
		if month, err = generic.ParseProductionMonth(raw); err != nil {
			h.fail(w, r, "Invalid month", err)
			return
		}
	}

	list, err := h.Engine.ListDistributions(r.Context(), generic.WellID(chi.URLParam(r, "id")), month)
	if err != nil {
		h.fail(w, r, "Failed to list distributions", err)
		return
	}
	dtos := make([]DistributionDTO, len(list))
	for i, d := range list {
		dtos[i] = toDistributionDTO(h.Factory, d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ValidateDivisionOrder reports the unity check for a well. as_of defaults
// to today. An imbalance is a 200 with valid=false: the check itself succeeded.
func (h *Handler) ValidateDivisionOrder(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		var err error
		if asOf, err = parseDate("as_of", raw); err != nil {
			h.fail(w, r, "Invalid as_of", err)
			return
		}
	}

	v, err := h.Engine.ValidateDivisionOrderInterests(r.Context(), generic.WellID(chi.URLParam(r, "id")), asOf)
	if err != nil {
		h.fail(w, r, "Division order validation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationDTO(v))
}

// =============================================================================
// DIVISION ORDER HANDLERS
// =============================================================================

// RecordInterest upserts one owner's decimal interest.
func (h *Handler) RecordInterest(w http.ResponseWriter, r *http.Request) {
	var req DivisionOrderInterestDTO
	if !decode(w, r, &req) {
		return
	}

	from, err := parseDate("effective_from", req.EffectiveFrom)
	if err != nil {
		h.fail(w, r, "Invalid effective_from", err)
		return
	}
	interest := generic.DivisionOrderInterest{
		DivisionOrderID: generic.DivisionOrderID(strings.TrimSpace(req.DivisionOrderID)),
		WellID:          generic.WellID(strings.TrimSpace(req.WellID)),
		PartnerID:       generic.PartnerID(strings.TrimSpace(req.PartnerID)),
		DecimalInterest: req.DecimalInterest,
		EffectiveFrom:   from,
	}
	if req.EffectiveTo != nil {
		to, err := parseDate("effective_to", *req.EffectiveTo)
		if err != nil {
			h.fail(w, r, "Invalid effective_to", err)
			return
		}
		interest.EffectiveTo = &to
	}

	saved, err := h.Engine.RecordInterest(r.Context(), interest)
	if err != nil {
		h.fail(w, r, "Failed to record interest", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInterestDTO(saved))
}

// AuditDivisionOrders validates every well now and returns the failures.
func (h *Handler) AuditDivisionOrders(w http.ResponseWriter, r *http.Request) {
	failing, err := h.Engine.AuditDivisionOrders(r.Context(), time.Now().UTC())
	if err != nil {
		h.fail(w, r, "Division order audit failed", err)
		return
	}
	dtos := make([]DivisionOrderValidationDTO, len(failing))
	for i, v := range failing {
		dtos[i] = toValidationDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a domain error to its status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, message, err)
}

// statusFor orders checks from most to least specific: an imbalance or
// already-paid error also matches a broader sentinel.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrVersionConflict), errors.Is(err, generic.ErrDuplicateDistribution):
		return http.StatusConflict
	case errors.Is(err, generic.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrDivisionOrderImbalance), errors.Is(err, generic.ErrBusinessRule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generic.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func distributionID(r *http.Request) generic.DistributionID {
	return generic.DistributionID(chi.URLParam(r, "id"))
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &generic.ValidationError{Field: field, Reason: "is required"}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &generic.ValidationError{Field: field, Value: s, Reason: "expected YYYY-MM-DD or RFC 3339"}
	}
	return t, nil
}
