/*
handlers_test.go - HTTP tests for the distribution and division-order handlers

Tests for:
- Distribution lifecycle (create, recalculate, pay, events)
- Optimistic locking through expected_version
- Error status mapping (400, 404, 409, 422)
- Division-order gate, validation and audit
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/generic/store"
	"github.com/warp/revenue-engine/revenue"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type testServer struct {
	t       *testing.T
	store   *store.Memory
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	engine := revenue.New(mem, revenue.WithDivisionOrders(mem))
	h := NewHandler(engine, mem, nil)
	return &testServer{t: t, store: mem, handler: h, router: NewRouter(h, RouterOptions{})}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func assertDecimal(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected %s, got null", want)
	assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "expected %s, got %s", want, got.Decimal)
}

func (s *testServer) recordInterests(well string, shares ...string) {
	s.t.Helper()
	for i, share := range shares {
		rec := s.do(http.MethodPost, "/api/division-orders", DivisionOrderInterestDTO{
			DivisionOrderID: fmt.Sprintf("%s-do-%d", well, i),
			WellID:          well,
			PartnerID:       fmt.Sprintf("partner-%d", i),
			DecimalInterest: decimal.RequireFromString(share),
			EffectiveFrom:   "2020-01-01",
		})
		require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func createRequest(well, month string) CreateDistributionRequest {
	return CreateDistributionRequest{
		OrganizationID:  "org-1",
		WellID:          well,
		PartnerID:       "partner-0",
		DivisionOrderID: well + "-do-0",
		ProductionMonth: month,
		ProductionVolumes: factory.VolumesJSON{
			OilVolume: dec("1000"),
			GasVolume: dec("5000"),
		},
		RevenueBreakdown: factory.BreakdownJSON{
			TotalRevenue:   dec("8125.00"),
			DeductionsJSON: factory.DeductionsJSON{SeveranceTax: dec("373.75")},
		},
		CreatedBy: "accountant",
	}
}

func recalculateRequest(expected *int, total string) RecalculateDistributionRequest {
	return RecalculateDistributionRequest{
		ExpectedVersion: expected,
		ProductionVolumes: factory.VolumesJSON{
			OilVolume: dec("1040"),
			GasVolume: dec("5000"),
		},
		RevenueBreakdown: factory.BreakdownJSON{
			TotalRevenue:   dec(total),
			DeductionsJSON: factory.DeductionsJSON{SeveranceTax: dec("373.75")},
		},
		CalculatedBy: "accountant",
		Reason:       "revised run tickets",
	}
}

func version(v int) *int { return &v }

func (s *testServer) createDistribution(well, month string) DistributionDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/distributions", createRequest(well, month))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeAs[DistributionDTO](s.t, rec)
}

// =============================================================================
// DISTRIBUTION LIFECYCLE
// =============================================================================

func TestDistribution_CreateRecalculatePay(t *testing.T) {
	// GIVEN: A well with a balanced division order
	s := newTestServer(t)
	s.recordInterests("well-1", "0.5", "0.5")

	// WHEN: A distribution is created
	created := s.createDistribution("well-1", "2024-03")

	// THEN: It starts at version 0 with a derived net revenue
	assert.Equal(t, 0, created.Version)
	assert.Equal(t, "calculated", created.Status)
	assert.Equal(t, "2024-03", created.ProductionMonth)
	assert.Equal(t, "USD", created.Currency)
	assert.False(t, created.IsPaid)
	assertDecimal(t, "7751.25", created.RevenueBreakdown.NetRevenue)

	rec := s.do(http.MethodGet, "/api/distributions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeAs[DistributionDTO](t, rec).ID)

	// WHEN: It is recalculated against the current version
	rec = s.do(http.MethodPost, "/api/distributions/"+created.ID+"/recalculate", recalculateRequest(version(0), "8450.00"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recalculated := decodeAs[DistributionDTO](t, rec)

	// THEN: The version advances and the new figures are stored
	assert.Equal(t, 1, recalculated.Version)
	assert.Equal(t, "recalculated", recalculated.Status)
	assertDecimal(t, "8076.25", recalculated.RevenueBreakdown.NetRevenue)
	assertDecimal(t, "1040", recalculated.ProductionVolumes.OilVolume)

	// WHEN: It is paid
	rec = s.do(http.MethodPost, "/api/distributions/"+created.ID+"/pay", PayDistributionRequest{
		ExpectedVersion: version(1),
		CheckNumber:     "CHK-1001",
		PaymentDate:     "2024-04-30",
		PaymentMethod:   "check",
		ProcessedBy:     "ap-clerk",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeAs[DistributionDTO](t, rec)

	// THEN: Payment info is recorded
	assert.True(t, paid.IsPaid)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, 2, paid.Version)
	require.NotNil(t, paid.PaymentInfo)
	assert.Equal(t, "CHK-1001", paid.PaymentInfo.CheckNumber)
	assert.Equal(t, "2024-04-30", paid.PaymentInfo.PaymentDate)

	// AND: The event log has one entry per accepted write
	rec = s.do(http.MethodGet, "/api/distributions/"+created.ID+"/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeAs[[]EventDTO](t, rec)
	require.Len(t, events, 3)
	assert.Equal(t, "distribution.created", events[0].Type)
	assert.Equal(t, "distribution.recalculated", events[1].Type)
	assert.Equal(t, "distribution.paid", events[2].Type)
	for i, e := range events {
		assert.Equal(t, i, e.Version)
	}
}

func TestDistribution_PaidIsTerminal(t *testing.T) {
	// GIVEN: A paid distribution
	s := newTestServer(t)
	s.recordInterests("well-1", "1")
	created := s.createDistribution("well-1", "2024-03")
	pay := PayDistributionRequest{PaymentDate: "2024-04-30", ProcessedBy: "ap-clerk"}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/distributions/"+created.ID+"/pay", pay).Code)

	// WHEN: It is paid again or recalculated
	repay := s.do(http.MethodPost, "/api/distributions/"+created.ID+"/pay", pay)
	recalc := s.do(http.MethodPost, "/api/distributions/"+created.ID+"/recalculate", recalculateRequest(nil, "8450.00"))

	// THEN: Both are business-rule violations and nothing changes
	assert.Equal(t, http.StatusUnprocessableEntity, repay.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, recalc.Code)

	rec := s.do(http.MethodGet, "/api/distributions/"+created.ID, nil)
	stored := decodeAs[DistributionDTO](t, rec)
	assert.Equal(t, 1, stored.Version)
	assertDecimal(t, "8125", stored.RevenueBreakdown.TotalRevenue)
}

func TestDistribution_StaleExpectedVersionConflicts(t *testing.T) {
	// GIVEN: A distribution that has already been recalculated once
	s := newTestServer(t)
	s.recordInterests("well-1", "1")
	created := s.createDistribution("well-1", "2024-03")
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPost, "/api/distributions/"+created.ID+"/recalculate", recalculateRequest(version(0), "8450.00")).Code)

	// WHEN: A second writer recalculates from the version it read
	rec := s.do(http.MethodPost, "/api/distributions/"+created.ID+"/recalculate", recalculateRequest(version(0), "9000.00"))

	// THEN: 409 and the first write stands
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, decodeAs[ErrorResponse](t, rec).Details)

	stored := decodeAs[DistributionDTO](t, s.do(http.MethodGet, "/api/distributions/"+created.ID, nil))
	assert.Equal(t, 1, stored.Version)
	assertDecimal(t, "8450", stored.RevenueBreakdown.TotalRevenue)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestDistribution_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	s.recordInterests("well-1", "1")
	s.createDistribution("well-1", "2024-03")

	negativeNet := createRequest("well-1", "2024-04")
	negativeNet.RevenueBreakdown = factory.BreakdownJSON{
		TotalRevenue:   dec("100.00"),
		DeductionsJSON: factory.DeductionsJSON{SeveranceTax: dec("150.00")},
	}
	missingWell := createRequest("", "2024-04")
	badMonth := createRequest("well-1", "2024-13")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed body", http.MethodPost, "/api/distributions", "{not json", http.StatusBadRequest},
		{"invalid month", http.MethodPost, "/api/distributions", badMonth, http.StatusBadRequest},
		{"missing well", http.MethodPost, "/api/distributions", missingWell, http.StatusBadRequest},
		{"duplicate natural key", http.MethodPost, "/api/distributions", createRequest("well-1", "2024-03"), http.StatusConflict},
		{"negative net revenue", http.MethodPost, "/api/distributions", negativeNet, http.StatusUnprocessableEntity},
		{"unknown distribution", http.MethodGet, "/api/distributions/missing", nil, http.StatusNotFound},
		{"unknown distribution events", http.MethodGet, "/api/distributions/missing/events", nil, http.StatusNotFound},
		{"recalculate unknown", http.MethodPost, "/api/distributions/missing/recalculate", recalculateRequest(nil, "1.00"), http.StatusNotFound},
		{"pay without date", http.MethodPost, "/api/distributions/missing/pay", PayDistributionRequest{ProcessedBy: "x"}, http.StatusBadRequest},
		{"bad month filter", http.MethodGet, "/api/wells/well-1/distributions?month=March", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeAs[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// WELLS AND DIVISION ORDERS
// =============================================================================

func TestListWellDistributions_MonthFilter(t *testing.T) {
	// GIVEN: Two months of distributions for one well
	s := newTestServer(t)
	s.recordInterests("well-1", "1")
	s.createDistribution("well-1", "2024-04")
	s.createDistribution("well-1", "2024-03")

	// WHEN: Listing without and with a month
	all := decodeAs[[]DistributionDTO](t, s.do(http.MethodGet, "/api/wells/well-1/distributions", nil))
	march := decodeAs[[]DistributionDTO](t, s.do(http.MethodGet, "/api/wells/well-1/distributions?month=2024-03", nil))
	other := decodeAs[[]DistributionDTO](t, s.do(http.MethodGet, "/api/wells/well-2/distributions", nil))

	// THEN: Results are ordered by month and filtered
	require.Len(t, all, 2)
	assert.Equal(t, "2024-03", all[0].ProductionMonth)
	assert.Equal(t, "2024-04", all[1].ProductionMonth)
	require.Len(t, march, 1)
	assert.Equal(t, "2024-03", march[0].ProductionMonth)
	assert.Empty(t, other)
}

func TestCreateDistribution_ImbalancedDivisionOrder(t *testing.T) {
	// GIVEN: A division order summing to 0.95
	s := newTestServer(t)
	s.recordInterests("well-1", "0.50", "0.45")

	// WHEN: A distribution is created without acknowledgement
	rec := s.do(http.MethodPost, "/api/distributions", createRequest("well-1", "2024-03"))

	// THEN: Creation is refused and nothing is stored
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, decodeAs[ErrorResponse](t, rec).Details, "0.95")
	assert.Empty(t, decodeAs[[]DistributionDTO](t, s.do(http.MethodGet, "/api/wells/well-1/distributions", nil)))

	// WHEN: The imbalance is acknowledged
	req := createRequest("well-1", "2024-03")
	req.AcknowledgeImbalance = true
	rec = s.do(http.MethodPost, "/api/distributions", req)

	// THEN: Creation proceeds
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestValidateDivisionOrder(t *testing.T) {
	s := newTestServer(t)
	s.recordInterests("well-ok", "0.125", "0.875")
	s.recordInterests("well-bad", "0.50", "0.45")

	t.Run("balanced", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/wells/well-ok/division-order?as_of=2024-03-01", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeAs[DivisionOrderValidationDTO](t, rec)
		assert.True(t, v.Valid)
		assert.True(t, decimal.NewFromInt(1).Equal(v.Sum))
		assert.Len(t, v.Entries, 2)
		assert.Equal(t, "2024-03-01", v.AsOf)
	})

	t.Run("imbalanced is reported, not an error", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/wells/well-bad/division-order", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeAs[DivisionOrderValidationDTO](t, rec)
		assert.False(t, v.Valid)
		assert.True(t, decimal.RequireFromString("0.95").Equal(v.Sum))
		assert.True(t, decimal.RequireFromString("0.05").Equal(v.Deviation))
	})

	t.Run("before every interest took effect", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/wells/well-ok/division-order?as_of=2019-12-31", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeAs[DivisionOrderValidationDTO](t, rec)
		assert.False(t, v.Valid)
		assert.Empty(t, v.Entries)
	})

	t.Run("bad date", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/wells/well-ok/division-order?as_of=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecordInterest_Validation(t *testing.T) {
	s := newTestServer(t)
	to := "2020-01-01"

	tests := []struct {
		name string
		body DivisionOrderInterestDTO
	}{
		{"missing well", DivisionOrderInterestDTO{PartnerID: "p", DecimalInterest: decimal.NewFromInt(1), EffectiveFrom: "2020-01-01"}},
		{"negative interest", DivisionOrderInterestDTO{WellID: "w", PartnerID: "p", DecimalInterest: decimal.NewFromInt(-1), EffectiveFrom: "2020-01-01"}},
		{"missing effective_from", DivisionOrderInterestDTO{WellID: "w", PartnerID: "p", DecimalInterest: decimal.NewFromInt(1)}},
		{"empty window", DivisionOrderInterestDTO{WellID: "w", PartnerID: "p", DecimalInterest: decimal.NewFromInt(1), EffectiveFrom: "2020-01-01", EffectiveTo: &to}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/division-orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	// A missing id is generated
	rec := s.do(http.MethodPost, "/api/division-orders", DivisionOrderInterestDTO{
		WellID: "w", PartnerID: "p", DecimalInterest: decimal.NewFromInt(1), EffectiveFrom: "2020-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decodeAs[DivisionOrderInterestDTO](t, rec).DivisionOrderID)
}

func TestAuditDivisionOrders_ReturnsOnlyFailingWells(t *testing.T) {
	// GIVEN: One balanced and one imbalanced well
	s := newTestServer(t)
	s.recordInterests("well-ok", "0.5", "0.5")
	s.recordInterests("well-bad", "0.6", "0.5")

	// WHEN: The audit runs
	rec := s.do(http.MethodPost, "/api/division-orders/audit", nil)

	// THEN: Only the imbalanced well is returned
	require.Equal(t, http.StatusOK, rec.Code)
	failing := decodeAs[[]DivisionOrderValidationDTO](t, rec)
	require.Len(t, failing, 1)
	assert.Equal(t, "well-bad", failing[0].WellID)
	assert.True(t, decimal.RequireFromString("1.1").Equal(failing[0].Sum))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
