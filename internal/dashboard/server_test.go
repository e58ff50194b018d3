package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rdxflow/config"
	"rdxflow/internal/ledger"
	"rdxflow/internal/models"
	"rdxflow/internal/pipeline"
	"rdxflow/internal/pipeline/reconciler"
	"rdxflow/logger"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DashboardConfig{
		Enabled:         true,
		Address:         ":0",
		RefreshInterval: time.Second,
		LogHistory:      10,
	}
	s := NewServer(cfg, reconciler.FillZero, ledger.NewMemory(), logger.GetLogger())
	if s == nil {
		t.Fatalf("expected enabled server")
	}
	t.Cleanup(s.cleanup)
	return s
}

func testResult() *pipeline.Result {
	return &pipeline.Result{
		RunID: "test-run",
		Rows: []models.ReconciledRow{
			{Ticker: "ABC", PCR: 1.5, DeliveryPct: 42.5, ClosePrice: 150.25, CashMatched: true},
			{Ticker: "XYZ", PCR: 0.4, DeliveryPct: 10, ClosePrice: 99, CashMatched: true},
		},
		Summaries: []models.InstrumentSummary{{Ticker: "ABC"}, {Ticker: "XYZ"}},
		Warnings:  []models.Warning{{Stage: "aggregator", Code: "data_shape", Message: "stray row"}},
	}
}

func TestNewServerDisabled(t *testing.T) {
	if s := NewServer(config.DashboardConfig{Enabled: false}, reconciler.FillZero, nil, logger.GetLogger()); s != nil {
		t.Fatalf("disabled dashboard must return nil server")
	}
}

func TestRowsEndpointBeforeFirstRun(t *testing.T) {
	s := testServer(t)
	router := s.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rows", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first run, got %d", rec.Code)
	}
}

func TestRowsEndpointServesAndFilters(t *testing.T) {
	s := testServer(t)
	s.Publish(testResult())
	router := s.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rows", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		RunID string                 `json:"run_id"`
		Count int                    `json:"count"`
		Rows  []models.ReconciledRow `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RunID != "test-run" || body.Count != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}

	// a pcr range filter narrows the served rows
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rows?filter=pcr,1,2", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode filtered body: %v", err)
	}
	if body.Count != 1 || body.Rows[0].Ticker != "ABC" {
		t.Fatalf("filter not applied: %+v", body)
	}
}

func TestRowsEndpointRejectsBadFilters(t *testing.T) {
	s := testServer(t)
	s.Publish(testResult())
	router := s.buildRouter()

	for _, q := range []string{
		"/api/rows?filter=pcr,1",
		"/api/rows?filter=unknown,1,2",
		"/api/rows?filter=pcr,x,2",
		"/api/rows?filter=pcr,1,y",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestWarningsEndpoint(t *testing.T) {
	s := testServer(t)
	s.Publish(testResult())
	router := s.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/warnings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Warnings []models.Warning `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Warnings) != 1 || body.Warnings[0].Code != "data_shape" {
		t.Fatalf("unexpected warnings: %+v", body.Warnings)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s := testServer(t)
	if err := s.history.Append(context.Background(), "2024-02-28",
		[]models.InstrumentSummary{{Ticker: "ABC", FutureOI: 1000}}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	router := s.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/2024-02-28", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Summaries []models.InstrumentSummary `json:"summaries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Summaries) != 1 || body.Summaries[0].Ticker != "ABC" {
		t.Fatalf("unexpected summaries: %+v", body.Summaries)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	router := s.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestParseFilters(t *testing.T) {
	filters, err := parseFilters([]string{"pcr,0.5,2", "delivery_pct, 30 , 90 "})
	if err != nil {
		t.Fatalf("parseFilters: %v", err)
	}
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(filters))
	}
	if filters[0].Field != "pcr" || filters[0].Min != 0.5 || filters[0].Max != 2 {
		t.Fatalf("filter 0 mismatch: %+v", filters[0])
	}
	if filters[1].Field != "delivery_pct" || filters[1].Min != 30 || filters[1].Max != 90 {
		t.Fatalf("filter 1 mismatch: %+v", filters[1])
	}
}
