package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wallet-taxscan/internal/service"
)

// handleCalculateReport runs the full pipeline and returns the structured
// report plus both serialized export bodies.
//
// POST /api/v1/reports
func (s *Server) handleCalculateReport(w http.ResponseWriter, r *http.Request) {
	var req service.CalculationRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error(), nil)
		return
	}

	result, err := s.taxService.Calculate(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleExportCSV returns only the tabular export as a CSV download.
//
// POST /api/v1/reports/csv
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var req service.CalculationRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error(), nil)
		return
	}

	result, err := s.taxService.Calculate(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("tax_report_%s_%s.csv", req.Wallet, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result.CSV))
}

// handleExportNarrative returns only the plain-text export.
//
// POST /api/v1/reports/narrative
func (s *Server) handleExportNarrative(w http.ResponseWriter, r *http.Request) {
	var req service.CalculationRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error(), nil)
		return
	}

	result, err := s.taxService.Calculate(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result.Narrative))
}

// handleAnalyzeWallet returns trading-pattern analytics for a wallet.
//
// POST /api/v1/analysis
func (s *Server) handleAnalyzeWallet(w http.ResponseWriter, r *http.Request) {
	var req service.AnalysisRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error(), nil)
		return
	}

	analysis, err := s.taxService.Analyze(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

// regionView is the wire representation of one supported region
type regionView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Currency        string `json:"currency"`
	ThresholdDays   int    `json:"thresholdDays"`
	ShortTermRate   string `json:"shortTermRate"`
	LongTermRate    string `json:"longTermRate"`
	AnnualExemption string `json:"annualExemption,omitempty"`
	Description     string `json:"description"`
}

// handleListRegions lists the supported tax regions.
//
// GET /api/v1/regions
func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions := s.taxService.Regions()

	views := make([]regionView, 0, len(regions))
	for _, region := range regions {
		view := regionView{
			ID:            string(region.ID),
			Name:          region.Name,
			Currency:      region.Currency,
			ThresholdDays: region.ThresholdDays,
			ShortTermRate: region.ShortTermRate.String(),
			LongTermRate:  region.LongTermRate.String(),
			Description:   region.Description,
		}
		if region.AnnualExemption.IsPositive() {
			view.AnnualExemption = region.AnnualExemption.String()
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"regions": views,
	})
}
