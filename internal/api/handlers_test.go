package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/analyzer"
	apperrors "github.com/wallet-taxscan/internal/errors"
	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/service"
	"github.com/wallet-taxscan/internal/tax"
	"github.com/wallet-taxscan/internal/types"
)

const testWallet = "WaLLet111111111111111111111111111111111111"

// fakeTaxService records the last request and serves canned results
type fakeTaxService struct {
	calculateErr error
	lastRequest  service.CalculationRequest
}

func (f *fakeTaxService) Calculate(ctx context.Context, req service.CalculationRequest) (*service.CalculationResult, error) {
	f.lastRequest = req
	if f.calculateErr != nil {
		return nil, f.calculateErr
	}
	return &service.CalculationResult{
		Report: &models.Report{
			RunID:       "run-1",
			Wallet:      req.Wallet,
			Method:      types.MethodFIFO,
			Region:      types.RegionUSFederal,
			GeneratedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			NetGain:     decimal.NewFromInt(100),
			EventCount:  1,
		},
		CSV:       "TAX REPORT SUMMARY\n",
		Narrative: "SOLANA WALLET TAX REPORT\n",
	}, nil
}

func (f *fakeTaxService) Analyze(ctx context.Context, req service.AnalysisRequest) (*analyzer.Analysis, error) {
	if f.calculateErr != nil {
		return nil, f.calculateErr
	}
	return &analyzer.Analysis{Wallet: req.Wallet}, nil
}

func (f *fakeTaxService) Regions() []tax.Region {
	return tax.Regions()
}

func createTestServer() (*Server, *fakeTaxService) {
	svc := &fakeTaxService{}
	server := NewServer(&ServerConfig{Host: "127.0.0.1", Port: "0"}, svc)
	return server, svc
}

func postJSON(server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	server, _ := createTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %q", body["status"])
	}
}

func TestCalculateReport_InvalidJSON(t *testing.T) {
	server, _ := createTestServer()

	req := httptest.NewRequest("POST", "/api/v1/reports", strings.NewReader("invalid json"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestCalculateReport_UnknownField(t *testing.T) {
	server, _ := createTestServer()

	req := httptest.NewRequest("POST", "/api/v1/reports",
		strings.NewReader(`{"wallet": "abc", "bogus": true}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestCalculateReport_Success(t *testing.T) {
	server, svc := createTestServer()

	w := postJSON(server, "/api/v1/reports", map[string]interface{}{
		"wallet": testWallet,
		"method": "LIFO",
		"region": "uk",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if svc.lastRequest.Wallet != testWallet {
		t.Errorf("Expected wallet to pass through, got %q", svc.lastRequest.Wallet)
	}
	if svc.lastRequest.Method != types.MethodLIFO {
		t.Errorf("Expected LIFO method, got %q", svc.lastRequest.Method)
	}

	var result service.CalculationResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if result.Report == nil || result.Report.RunID != "run-1" {
		t.Error("Expected report in response")
	}
}

func TestCalculateReport_ServiceErrorMapsToStatus(t *testing.T) {
	server, svc := createTestServer()
	svc.calculateErr = apperrors.NewInvalidWalletAddressError("bad")

	w := postJSON(server, "/api/v1/reports", map[string]interface{}{"wallet": "bad"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse error response: %v", err)
	}
	if resp.Error.Code != "INVALID_WALLET_ADDRESS" {
		t.Errorf("Expected INVALID_WALLET_ADDRESS code, got %q", resp.Error.Code)
	}
}

func TestCalculateReport_InternalErrorMapsTo500(t *testing.T) {
	server, svc := createTestServer()
	svc.calculateErr = apperrors.NewInternalError("pipeline failed", nil)

	w := postJSON(server, "/api/v1/reports", map[string]interface{}{"wallet": testWallet})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestExportCSV_Headers(t *testing.T) {
	server, _ := createTestServer()

	w := postJSON(server, "/api/v1/reports/csv", map[string]interface{}{"wallet": testWallet})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv content type, got %q", ct)
	}
	disposition := w.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "tax_report_"+testWallet) {
		t.Errorf("Expected filename with wallet in disposition, got %q", disposition)
	}
	if !strings.Contains(w.Body.String(), "TAX REPORT SUMMARY") {
		t.Error("Expected CSV body in response")
	}
}

func TestExportNarrative_PlainText(t *testing.T) {
	server, _ := createTestServer()

	w := postJSON(server, "/api/v1/reports/narrative", map[string]interface{}{"wallet": testWallet})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "SOLANA WALLET TAX REPORT") {
		t.Error("Expected narrative body in response")
	}
}

func TestAnalyzeWallet_Success(t *testing.T) {
	server, _ := createTestServer()

	w := postJSON(server, "/api/v1/analysis", map[string]interface{}{
		"wallet":          testWallet,
		"timePeriodHours": 24,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var analysis analyzer.Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if analysis.Wallet != testWallet {
		t.Errorf("Expected wallet in analysis, got %q", analysis.Wallet)
	}
}

func TestListRegions(t *testing.T) {
	server, _ := createTestServer()

	req := httptest.NewRequest("GET", "/api/v1/regions", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		Regions []regionView `json:"regions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(body.Regions) != 10 {
		t.Errorf("Expected 10 regions, got %d", len(body.Regions))
	}
	if body.Regions[0].ID == "" {
		t.Error("Expected region IDs to be populated")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := createTestServer()

	req := httptest.NewRequest("GET", "/api/v1/reports", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse error response: %v", err)
	}
	if resp.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("Expected METHOD_NOT_ALLOWED code, got %q", resp.Error.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	server, _ := createTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS headers on response")
	}
}
