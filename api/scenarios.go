/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario records division orders and
	drives distributions through the engine, so every record is created
	exactly the way an API client would create it.

AVAILABLE SCENARIOS:

	permian-royalty:      Balanced division order, one royalty distribution
	recalculated-paid:    Same well, corrected volumes, then paid
	imbalanced-order:     Division order summing to 0.95, create is refused

HOW SCENARIOS WORK:
 1. Reset store (clear all data)
 2. Record division-order interests
 3. Run the calculation chain (pricing, payment, deductions)
 4. Create, recalculate or pay distributions

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "permian-royalty"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to the loaders map

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase handler
  - revenue/engine.go: Operations used by the loaders
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/lease"
	"github.com/warp/revenue-engine/payment"
	"github.com/warp/revenue-engine/pricing"
	"github.com/warp/revenue-engine/revenue"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	ScenarioPermianRoyalty   = "permian-royalty"
	ScenarioRecalculatedPaid = "recalculated-paid"
	ScenarioImbalancedOrder  = "imbalanced-order"

	scenarioOrg     = "org-demo"
	permianWell     = "permian-001"
	eagleFordWell   = "eagleford-002"
	royaltyOwner    = "partner-royalty-owner"
	scenarioActor   = "scenario-loader"
	royaltyDivOrder = "permian-001-do-royalty-owner"
)

var scenarios = []ScenarioDTO{
	{
		ID:          ScenarioPermianRoyalty,
		Name:        "Permian Royalty",
		Description: "Balanced division order and a 12.5% royalty distribution: $8,125.00 gross, $7,751.25 net",
		Category:    "distribution",
	},
	{
		ID:          ScenarioRecalculatedPaid,
		Name:        "Recalculated and Paid",
		Description: "Royalty distribution corrected for revised volumes, then paid by check",
		Category:    "distribution",
	},
	{
		ID:          ScenarioImbalancedOrder,
		Name:        "Imbalanced Division Order",
		Description: "Interests sum to 0.95; distribution creation is refused until acknowledged",
		Category:    "division-order",
	},
}

var scenarioMonth = generic.MustProductionMonth(2024, time.March)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	loaders := map[string]func(context.Context) error{
		ScenarioPermianRoyalty:   h.loadPermianRoyaltyScenario,
		ScenarioRecalculatedPaid: h.loadRecalculatedPaidScenario,
		ScenarioImbalancedOrder:  h.loadImbalancedOrderScenario,
	}
	load, ok := loaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		h.Logger.Error("scenario load failed", zap.String("scenario", req.ScenarioID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario_id": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadPermianRoyaltyScenario: 1000 bbl at $50 and 5000 mcf at $3, a 12.5%
// royalty, and $373.75 severance tax.
func (h *Handler) loadPermianRoyaltyScenario(ctx context.Context) error {
	if err := h.recordInterests(ctx, permianWell, map[string]string{
		royaltyOwner:           "0.125",
		"partner-operator":     "0.6125",
		"partner-non-operator": "0.2625",
	}); err != nil {
		return err
	}
	_, err := h.createRoyaltyDistribution(ctx, "1000")
	return err
}

func (h *Handler) loadRecalculatedPaidScenario(ctx context.Context) error {
	if err := h.loadPermianRoyaltyScenario(ctx); err != nil {
		return err
	}
	d, err := h.Engine.FindDistribution(ctx, distribution.Key{
		WellID:          permianWell,
		PartnerID:       royaltyOwner,
		DivisionOrderID: royaltyDivOrder,
		ProductionMonth: scenarioMonth,
	})
	if err != nil {
		return err
	}

	// Revised run tickets add 40 bbl.
	corrected, err := h.royaltyBreakdown("1040")
	if err != nil {
		return err
	}
	d, err = h.Engine.RecalculateDistribution(ctx, revenue.RecalculateRequest{
		ID:              d.ID,
		ExpectedVersion: &d.Version,
		RecalculateParams: distribution.RecalculateParams{
			ProductionVolumes: scenarioVolumes("1040"),
			RevenueBreakdown:  corrected.Breakdown,
			CalculatedBy:      scenarioActor,
			Reason:            "revised run tickets",
		},
	})
	if err != nil {
		return err
	}

	_, err = h.Engine.MarkDistributionPaid(ctx, revenue.PayRequest{
		ID:              d.ID,
		ExpectedVersion: &d.Version,
		PaymentParams: distribution.PaymentParams{
			CheckNumber:   "CHK-240430-001",
			PaymentDate:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
			PaymentMethod: "check",
			ProcessedBy:   scenarioActor,
		},
	})
	return err
}

func (h *Handler) loadImbalancedOrderScenario(ctx context.Context) error {
	return h.recordInterests(ctx, eagleFordWell, map[string]string{
		"partner-operator":     "0.50",
		"partner-non-operator": "0.45",
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) recordInterests(ctx context.Context, well generic.WellID, shares map[string]string) error {
	for partner, share := range shares {
		interest, err := decimal.NewFromString(share)
		if err != nil {
			return err
		}
		_, err = h.Engine.RecordInterest(ctx, generic.DivisionOrderInterest{
			DivisionOrderID: generic.DivisionOrderID(fmt.Sprintf("%s-do-%s", well, partner[len("partner-"):])),
			WellID:          well,
			PartnerID:       generic.PartnerID(partner),
			DecimalInterest: interest,
			EffectiveFrom:   time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			return fmt.Errorf("record interest for %s: %w", partner, err)
		}
	}
	return nil
}

func (h *Handler) royaltyBreakdown(oilVolume string) (revenue.BreakdownResult, error) {
	return h.Engine.CalculateBreakdown(revenue.BreakdownRequest{
		Lease: lease.LeaseData{LeaseID: "lease-permian-001", RoyaltyRate: decimal.RequireFromString("0.125")},
		Production: lease.ProductionData{
			OilVolume:      decimal.RequireFromString(oilVolume),
			GasVolume:      decimal.NewFromInt(5000),
			ProductionDate: scenarioMonth.EndDate(),
		},
		Market: pricing.MarketData{
			OilBasePrice: generic.NewMoneyFromInt(50),
			GasBasePrice: generic.NewMoneyFromInt(3),
			PricingDate:  scenarioMonth.EndDate(),
		},
		PricingMethod: pricing.MethodStandard,
		PaymentTypes:  []payment.CalculationType{payment.TypeRoyalty},
		Deductions: distribution.Deductions{
			SeveranceTax: generic.Some(generic.MustMoney("373.75")),
		},
	})
}

func (h *Handler) createRoyaltyDistribution(ctx context.Context, oilVolume string) (distribution.Distribution, error) {
	result, err := h.royaltyBreakdown(oilVolume)
	if err != nil {
		return distribution.Distribution{}, err
	}
	return h.Engine.CreateDistribution(ctx, revenue.CreateRequest{CreateParams: distribution.CreateParams{
		OrganizationID:    scenarioOrg,
		WellID:            permianWell,
		PartnerID:         royaltyOwner,
		DivisionOrderID:   royaltyDivOrder,
		ProductionMonth:   scenarioMonth,
		ProductionVolumes: scenarioVolumes(oilVolume),
		RevenueBreakdown:  result.Breakdown,
		CreatedBy:         scenarioActor,
	}})
}

func scenarioVolumes(oil string) distribution.ProductionVolumes {
	return distribution.ProductionVolumes{
		OilVolume: decimal.NewNullDecimal(decimal.RequireFromString(oil)),
		GasVolume: decimal.NewNullDecimal(decimal.NewFromInt(5000)),
	}
}
