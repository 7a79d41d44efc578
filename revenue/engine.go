/*
Package revenue is the entry point to the revenue distribution engine.

PURPOSE:
  Engine wires the pure parts (payment and pricing strategies, the
  distribution aggregate) to the persistence boundary (distribution.Store,
  generic.DivisionOrderStore). It is the only place that loads, transitions
  and saves a distribution.

OPERATIONS:
  CalculatePayment                lease + production -> payment.Amount
  CalculatePrice                  market + quality + location -> pricing.Result
  CalculateBreakdown              pricing, then payment, then RevenueBreakdown
  CreateDistribution              division-order gate, then version 0 record
  RecalculateDistribution         load, transition, compare-and-swap save
  MarkDistributionPaid            load, transition, compare-and-swap save
  ValidateDivisionOrderInterests  unity check for a well on a date
  RecordInterest                  division-order upsert
  AuditDivisionOrders             unity check across every well
  DistributionHistory             event log

CONCURRENCY:
  Strategies and value objects are stateless and shared freely. The only
  shared mutable state is the stored record, guarded by its version. A
  conflict is returned to the caller, never retried or merged here.

ERRORS:
  Every money-affecting failure is returned. Only event publication, an
  informational side channel, is logged and swallowed.

SEE ALSO:
  - divisionorder.go: Interest-sum validation
  - distribution/: Aggregate and transitions
*/
package revenue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
	"github.com/warp/revenue-engine/observability/metrics"
	"github.com/warp/revenue-engine/payment"
	"github.com/warp/revenue-engine/pricing"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store          distribution.Store
	divisionOrders generic.DivisionOrderStore
	pricingConfig  pricing.Config
	pricing        *pricing.Factory
	publisher      distribution.Publisher
	logger         *zap.Logger
	metrics        *metrics.Metrics
	tolerance      decimal.Decimal
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDivisionOrders enables the division-order gate on CreateDistribution
// and the validation and maintenance operations.
func WithDivisionOrders(s generic.DivisionOrderStore) Option {
	return func(e *Engine) { e.divisionOrders = s }
}

func WithPricingConfig(cfg pricing.Config) Option {
	return func(e *Engine) {
		e.pricingConfig = cfg
		e.pricing = pricing.NewFactory(cfg.Thresholds)
	}
}

func WithPublisher(p distribution.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTolerance sets the division-order unity tolerance.
func WithTolerance(t decimal.Decimal) Option {
	return func(e *Engine) {
		if t.IsPositive() {
			e.tolerance = t
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store distribution.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		pricingConfig: pricing.DefaultConfig(),
		pricing:       pricing.DefaultFactory(),
		logger:        zap.NewNop(),
		tolerance:     DefaultTolerance,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tolerance is the configured division-order tolerance.
func (e *Engine) Tolerance() decimal.Decimal { return e.tolerance }

// =============================================================================
// CALCULATIONS - Pure, no persistence
// =============================================================================

// CalculatePayment resolves explicit strategy types, or auto-selects when
// none are given.
func (e *Engine) CalculatePayment(l lease.LeaseData, p lease.ProductionData, types ...payment.CalculationType) (payment.Amount, error) {
	s, err := payment.Select(l, p, types...)
	if err != nil {
		return payment.Amount{}, err
	}
	return s.Calculate(l, p), nil
}

// PriceRequest carries pricing inputs. An empty Method auto-selects.
type PriceRequest struct {
	Market   pricing.MarketData
	Quality  pricing.QualityData
	Location pricing.LocationData
	Volumes  pricing.Volumes
	Method   pricing.Method
}

// CalculatePrice fills region premiums from configuration, then prices.
func (e *Engine) CalculatePrice(req PriceRequest) (pricing.Result, error) {
	loc := e.pricingConfig.ApplyRegion(req.Location)
	s, err := e.pricing.Select(req.Method, req.Quality, loc)
	if err != nil {
		return pricing.Result{}, err
	}
	return s.CalculatePrice(req.Market, req.Quality, loc, req.Volumes), nil
}

// BreakdownRequest runs the whole calculation chain for one owner. The
// production record's prices are replaced by the effective prices.
type BreakdownRequest struct {
	Lease         lease.LeaseData
	Production    lease.ProductionData
	Market        pricing.MarketData
	Quality       pricing.QualityData
	Location      pricing.LocationData
	PricingMethod pricing.Method
	PaymentTypes  []payment.CalculationType
	Deductions    distribution.Deductions
}

type BreakdownResult struct {
	Pricing   pricing.Result
	Payment   payment.Amount
	Breakdown distribution.RevenueBreakdown
}

func (e *Engine) CalculateBreakdown(req BreakdownRequest) (BreakdownResult, error) {
	volumes := pricing.Volumes{OilVolume: req.Production.OilVolume, GasVolume: req.Production.GasVolume}
	priced, err := e.CalculatePrice(PriceRequest{
		Market:   req.Market,
		Quality:  req.Quality,
		Location: req.Location,
		Volumes:  volumes,
		Method:   req.PricingMethod,
	})
	if err != nil {
		return BreakdownResult{}, err
	}

	production := req.Production
	production.OilPrice = priced.OilPrice
	production.GasPrice = priced.GasPrice

	amount, err := e.CalculatePayment(req.Lease, production, req.PaymentTypes...)
	if err != nil {
		return BreakdownResult{}, err
	}

	breakdown := distribution.BreakdownFromPayment(amount, req.Deductions)
	if err := breakdown.Validate(); err != nil {
		return BreakdownResult{}, err
	}
	return BreakdownResult{Pricing: priced, Payment: amount, Breakdown: breakdown}, nil
}

// =============================================================================
// DISTRIBUTION LIFECYCLE
// =============================================================================

// CreateRequest adds the explicit imbalance override to the create params.
type CreateRequest struct {
	distribution.CreateParams

	// AcknowledgeImbalance lets creation proceed when the well's division
	// order does not sum to 1. It must be set deliberately.
	AcknowledgeImbalance bool
}

func (e *Engine) CreateDistribution(ctx context.Context, req CreateRequest) (d distribution.Distribution, err error) {
	defer e.observe("create", time.Now(), &err)

	if e.divisionOrders != nil && !req.ProductionMonth.IsZero() {
		v, err := e.ValidateDivisionOrderInterests(ctx, req.WellID, req.ProductionMonth.StartDate())
		if err != nil {
			return distribution.Distribution{}, err
		}
		if !v.Valid {
			if !req.AcknowledgeImbalance {
				return distribution.Distribution{}, v.Err()
			}
			e.logger.Warn("creating distribution over imbalanced division order",
				zap.String("well_id", string(req.WellID)),
				zap.String("sum", v.Sum.String()),
				zap.String("created_by", req.CreatedBy),
			)
		}
	}

	d, event, err := distribution.Create(req.CreateParams, e.now())
	if err != nil {
		return distribution.Distribution{}, err
	}
	if err := e.store.Create(ctx, d, event); err != nil {
		return distribution.Distribution{}, e.storeError("create distribution", d, err)
	}

	e.accepted(ctx, d, event)
	return d, nil
}

// RecalculateRequest targets a stored distribution. When ExpectedVersion is
// set the caller's view must be current, otherwise the call conflicts
// without writing.
type RecalculateRequest struct {
	ID              generic.DistributionID
	ExpectedVersion *int
	distribution.RecalculateParams
}

func (e *Engine) RecalculateDistribution(ctx context.Context, req RecalculateRequest) (d distribution.Distribution, err error) {
	defer e.observe("recalculate", time.Now(), &err)

	return e.transition(ctx, req.ID, req.ExpectedVersion, func(current distribution.Distribution) (distribution.Distribution, distribution.Event, error) {
		return current.Recalculate(req.RecalculateParams, e.now())
	})
}

// PayRequest targets a stored distribution. ExpectedVersion as for RecalculateRequest.
type PayRequest struct {
	ID              generic.DistributionID
	ExpectedVersion *int
	distribution.PaymentParams
}

func (e *Engine) MarkDistributionPaid(ctx context.Context, req PayRequest) (d distribution.Distribution, err error) {
	defer e.observe("mark_paid", time.Now(), &err)

	return e.transition(ctx, req.ID, req.ExpectedVersion, func(current distribution.Distribution) (distribution.Distribution, distribution.Event, error) {
		return current.MarkPaid(req.PaymentParams, e.now())
	})
}

type transitionFunc func(distribution.Distribution) (distribution.Distribution, distribution.Event, error)

// transition is load -> pure transition -> compare-and-swap save.
func (e *Engine) transition(ctx context.Context, id generic.DistributionID, expected *int, fn transitionFunc) (distribution.Distribution, error) {
	current, err := e.store.Load(ctx, id)
	if err != nil {
		return distribution.Distribution{}, err
	}
	if expected != nil && *expected != current.Version {
		return distribution.Distribution{}, &generic.VersionConflictError{ID: id, Expected: *expected, Actual: current.Version}
	}

	next, event, err := fn(current)
	if err != nil {
		return distribution.Distribution{}, err
	}
	if err := e.store.Save(ctx, next, current.Version, event); err != nil {
		return distribution.Distribution{}, e.storeError("save distribution", next, err)
	}

	e.accepted(ctx, next, event)
	return next, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (e *Engine) GetDistribution(ctx context.Context, id generic.DistributionID) (distribution.Distribution, error) {
	return e.store.Load(ctx, id)
}

func (e *Engine) FindDistribution(ctx context.Context, key distribution.Key) (distribution.Distribution, error) {
	return e.store.FindByKey(ctx, key)
}

func (e *Engine) ListDistributions(ctx context.Context, wellID generic.WellID, month generic.ProductionMonth) ([]distribution.Distribution, error) {
	return e.store.ListByWell(ctx, wellID, month)
}

// DistributionHistory returns the event log, oldest first.
func (e *Engine) DistributionHistory(ctx context.Context, id generic.DistributionID) ([]distribution.Event, error) {
	return e.store.Events(ctx, id)
}

// =============================================================================
// DIVISION ORDERS
// =============================================================================

var errNoDivisionOrders = errors.New("division order store not configured")

func (e *Engine) ValidateDivisionOrderInterests(ctx context.Context, wellID generic.WellID, asOf time.Time) (DivisionOrderValidation, error) {
	if e.divisionOrders == nil {
		return DivisionOrderValidation{}, errNoDivisionOrders
	}
	if wellID == "" {
		return DivisionOrderValidation{}, &generic.ValidationError{Field: "well_id", Reason: "is required"}
	}
	interests, err := e.divisionOrders.ListActiveInterests(ctx, wellID, asOf)
	if err != nil {
		return DivisionOrderValidation{}, fmt.Errorf("list active interests: %w", err)
	}

	v := ValidateInterests(wellID, asOf, interests, e.tolerance)
	if !v.Valid {
		e.metrics.IncImbalance()
		e.logger.Warn("division order imbalance",
			zap.String("well_id", string(wellID)),
			zap.Time("as_of", asOf),
			zap.String("sum", v.Sum.String()),
			zap.Int("entries", len(v.Entries)),
		)
	}
	return v, nil
}

// AuditDivisionOrders validates every well that has interests and returns
// only the failing ones.
func (e *Engine) AuditDivisionOrders(ctx context.Context, asOf time.Time) (failing []DivisionOrderValidation, err error) {
	defer e.observe("audit_division_orders", time.Now(), &err)

	if e.divisionOrders == nil {
		return nil, errNoDivisionOrders
	}
	wells, err := e.divisionOrders.ListWells(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wells: %w", err)
	}
	for _, w := range wells {
		v, err := e.ValidateDivisionOrderInterests(ctx, w, asOf)
		if err != nil {
			return failing, err
		}
		if !v.Valid {
			failing = append(failing, v)
		}
	}
	return failing, nil
}

// RecordInterest upserts one owner's interest. A missing DivisionOrderID is
// generated.
func (e *Engine) RecordInterest(ctx context.Context, interest generic.DivisionOrderInterest) (generic.DivisionOrderInterest, error) {
	if e.divisionOrders == nil {
		return generic.DivisionOrderInterest{}, errNoDivisionOrders
	}
	switch {
	case interest.WellID == "":
		return generic.DivisionOrderInterest{}, &generic.ValidationError{Field: "well_id", Reason: "is required"}
	case interest.PartnerID == "":
		return generic.DivisionOrderInterest{}, &generic.ValidationError{Field: "partner_id", Reason: "is required"}
	case interest.DecimalInterest.IsNegative():
		return generic.DivisionOrderInterest{}, &generic.ValidationError{
			Field: "decimal_interest", Value: interest.DecimalInterest.String(), Reason: "must not be negative",
		}
	case interest.EffectiveFrom.IsZero():
		return generic.DivisionOrderInterest{}, &generic.ValidationError{Field: "effective_from", Reason: "is required"}
	case interest.EffectiveTo != nil && !interest.EffectiveTo.After(interest.EffectiveFrom):
		return generic.DivisionOrderInterest{}, &generic.ValidationError{Field: "effective_to", Reason: "must be after effective_from"}
	}
	if interest.DivisionOrderID == "" {
		interest.DivisionOrderID = generic.DivisionOrderID(uuid.NewString())
	}
	if err := e.divisionOrders.SaveInterest(ctx, interest); err != nil {
		return generic.DivisionOrderInterest{}, fmt.Errorf("save interest: %w", err)
	}
	return interest, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) accepted(ctx context.Context, d distribution.Distribution, event distribution.Event) {
	e.metrics.IncEvent(string(event.Type))
	e.logger.Info("distribution write accepted",
		zap.String("distribution_id", string(d.ID)),
		zap.String("well_id", string(d.WellID)),
		zap.String("event", string(event.Type)),
		zap.Int("version", d.Version),
	)
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("event publication failed",
			zap.String("distribution_id", string(d.ID)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
}

func (e *Engine) storeError(op string, d distribution.Distribution, err error) error {
	var conflict *generic.VersionConflictError
	switch {
	case errors.As(err, &conflict):
		e.logger.Warn("version conflict",
			zap.String("distribution_id", string(d.ID)),
			zap.Int("expected", conflict.Expected),
			zap.Int("actual", conflict.Actual),
		)
		return err
	case generic.IsClientError(err), generic.IsNotFound(err):
		return err
	}
	e.logger.Error("persistence failure", zap.String("op", op), zap.String("distribution_id", string(d.ID)), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (e *Engine) observe(op string, start time.Time, errp *error) {
	result := metrics.ResultSuccess
	if err := *errp; err != nil {
		result = metrics.ResultError
		if generic.IsRetryable(err) {
			result = metrics.ResultConflict
			e.metrics.IncConflict(op)
		}
	}
	e.metrics.ObserveOperation(op, result, time.Since(start))
}
