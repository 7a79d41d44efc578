package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) loadScenario(id string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestScenario_PermianRoyalty(t *testing.T) {
	// GIVEN: The permian-royalty scenario
	s := newTestServer(t)
	s.loadScenario(ScenarioPermianRoyalty)

	// WHEN: The well's distributions are listed
	list := decodeAs[[]DistributionDTO](t, s.do(http.MethodGet, "/api/wells/"+permianWell+"/distributions?month=2024-03", nil))

	// THEN: One royalty distribution of $8,125.00 gross, $7,751.25 net
	require.Len(t, list, 1)
	d := list[0]
	assert.Equal(t, royaltyOwner, d.PartnerID)
	assert.Equal(t, royaltyDivOrder, d.DivisionOrderID)
	assert.Equal(t, 0, d.Version)
	assertDecimal(t, "8125", d.RevenueBreakdown.TotalRevenue)
	assertDecimal(t, "6250", d.RevenueBreakdown.OilRevenue)
	assertDecimal(t, "1875", d.RevenueBreakdown.GasRevenue)
	assertDecimal(t, "7751.25", d.RevenueBreakdown.NetRevenue)

	// AND: The division order is balanced
	v := decodeAs[DivisionOrderValidationDTO](t, s.do(http.MethodGet, "/api/wells/"+permianWell+"/division-order?as_of=2024-03-01", nil))
	assert.True(t, v.Valid)
	assert.Len(t, v.Entries, 3)
}

func TestScenario_RecalculatedPaid(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(ScenarioRecalculatedPaid)

	list := decodeAs[[]DistributionDTO](t, s.do(http.MethodGet, "/api/wells/"+permianWell+"/distributions", nil))
	require.Len(t, list, 1)
	d := list[0]

	// 1040 bbl x $50 + 5000 mcf x $3 = $67,000 gross; 12.5% = $8,375.00
	assert.True(t, d.IsPaid)
	assert.Equal(t, "paid", d.Status)
	assert.Equal(t, 2, d.Version)
	assertDecimal(t, "8375", d.RevenueBreakdown.TotalRevenue)
	assertDecimal(t, "8001.25", d.RevenueBreakdown.NetRevenue)
	require.NotNil(t, d.PaymentInfo)
	assert.Equal(t, "CHK-240430-001", d.PaymentInfo.CheckNumber)

	events := decodeAs[[]EventDTO](t, s.do(http.MethodGet, "/api/distributions/"+d.ID+"/events", nil))
	require.Len(t, events, 3)
	assert.Equal(t, "revised run tickets", events[1].Reason)
}

func TestScenario_ImbalancedOrder(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(ScenarioImbalancedOrder)

	// The audit flags the well
	failing := decodeAs[[]DivisionOrderValidationDTO](t, s.do(http.MethodPost, "/api/division-orders/audit", nil))
	require.Len(t, failing, 1)
	assert.Equal(t, eagleFordWell, failing[0].WellID)

	// And creation against it is refused
	req := createRequest(eagleFordWell, "2024-03")
	rec := s.do(http.MethodPost, "/api/distributions", req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScenario_LoadResetsPreviousData(t *testing.T) {
	// GIVEN: One scenario loaded
	s := newTestServer(t)
	s.loadScenario(ScenarioImbalancedOrder)

	// WHEN: Another scenario is loaded
	s.loadScenario(ScenarioPermianRoyalty)

	// THEN: The first scenario's well is gone and current reflects the new one
	failing := decodeAs[[]DivisionOrderValidationDTO](t, s.do(http.MethodPost, "/api/division-orders/audit", nil))
	assert.Empty(t, failing)

	current := decodeAs[ScenarioDTO](t, s.do(http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, ScenarioPermianRoyalty, current.ID)
}

func TestScenario_ResetClearsCurrent(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(ScenarioPermianRoyalty)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/scenarios/reset", nil).Code)

	rec := s.do(http.MethodGet, "/api/scenarios/current", nil)
	assert.JSONEq(t, "null", rec.Body.String())
	list := decodeAs[[]DistributionDTO](t, s.do(http.MethodGet, "/api/wells/"+permianWell+"/distributions", nil))
	assert.Empty(t, list)
}

func TestScenario_Unknown(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "gulf-of-mexico"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	s := newTestServer(t)

	listed := decodeAs[[]ScenarioDTO](t, s.do(http.MethodGet, "/api/scenarios", nil))
	require.Len(t, listed, len(scenarios))

	for _, sc := range listed {
		t.Run(sc.ID, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: sc.ID})
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}
