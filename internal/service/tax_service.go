// Package service orchestrates the calculation pipeline: fetch, normalize,
// price, ledger matching, tax computation and report building for one
// request.
package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/adapter"
	"github.com/wallet-taxscan/internal/analyzer"
	"github.com/wallet-taxscan/internal/config"
	apperrors "github.com/wallet-taxscan/internal/errors"
	"github.com/wallet-taxscan/internal/fetcher"
	"github.com/wallet-taxscan/internal/ledger"
	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/normalize"
	"github.com/wallet-taxscan/internal/pricing"
	"github.com/wallet-taxscan/internal/report"
	"github.com/wallet-taxscan/internal/tax"
	"github.com/wallet-taxscan/internal/types"
)

// CalculationRequest is one report computation request
type CalculationRequest struct {
	Wallet          string                 `json:"wallet"`
	Method          types.AccountingMethod `json:"method"`
	Region          types.RegionID         `json:"region"`
	MaxTransactions int                    `json:"maxTransactions"`

	// BestEffort keeps partially fetched data when the provider fails or the
	// pipeline times out mid-fetch. Off by default: a partial report is
	// misleading unless the caller asked for it.
	BestEffort bool `json:"bestEffort"`
}

// CalculationResult is the report plus both serialized export bodies
type CalculationResult struct {
	Report    *models.Report `json:"report"`
	CSV       string         `json:"csv"`
	Narrative string         `json:"narrative"`
}

// AnalysisRequest is one wallet trading-pattern analysis request
type AnalysisRequest struct {
	CalculationRequest
	TimePeriodHours int `json:"timePeriodHours"`
}

// TaxService runs calculation pipelines. It is safe for concurrent use: all
// per-run state (ledger, resolver memos) lives inside Calculate; only the
// daily price cache is shared, and it handles its own locking.
type TaxService struct {
	cfg        *config.Config
	fetcher    *fetcher.Fetcher
	native     adapter.NativePriceSource
	tokens     adapter.TokenPriceSource
	dailyCache *pricing.DailyPriceCache
}

// New creates the tax service over its collaborators
func New(cfg *config.Config, provider adapter.LedgerDataProvider, native adapter.NativePriceSource, tokens adapter.TokenPriceSource, dailyCache *pricing.DailyPriceCache) *TaxService {
	return &TaxService{
		cfg: cfg,
		fetcher: fetcher.New(provider, fetcher.Config{
			PageSize:       cfg.Helius.PageSize,
			ParseWorkers:   cfg.Helius.ParseWorkers,
			MaxRetries:     cfg.Helius.MaxRetries,
			RetryBaseDelay: cfg.Helius.RetryBaseDelay,
		}),
		native:     native,
		tokens:     tokens,
		dailyCache: dailyCache,
	}
}

// Calculate runs the full pipeline for one request and renders both exports.
// The run is bounded by the configured pipeline timeout.
func (s *TaxService) Calculate(ctx context.Context, req CalculationRequest) (*CalculationResult, error) {
	r, region, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}

	var csvBuf, textBuf bytes.Buffer
	if err := report.WriteCSV(&csvBuf, r); err != nil {
		return nil, apperrors.NewInternalError("csv export failed", err)
	}
	if err := report.WriteNarrative(&textBuf, r, region); err != nil {
		return nil, apperrors.NewInternalError("narrative export failed", err)
	}

	return &CalculationResult{
		Report:    r,
		CSV:       csvBuf.String(),
		Narrative: textBuf.String(),
	}, nil
}

// Analyze runs the pipeline and derives trading-pattern analytics from the
// report. No export rendering happens on this path.
func (s *TaxService) Analyze(ctx context.Context, req AnalysisRequest) (*analyzer.Analysis, error) {
	r, _, err := s.buildReport(ctx, req.CalculationRequest)
	if err != nil {
		return nil, err
	}

	a := analyzer.New(req.Wallet, req.TimePeriodHours)
	return a.Analyze(r.Events, r.OpenLots), nil
}

// buildReport runs the pipeline stages shared by report and analysis
// requests: validate, fetch, normalize, price, ledger matching, aggregation.
func (s *TaxService) buildReport(ctx context.Context, req CalculationRequest) (*models.Report, tax.Region, error) {
	req, region, err := s.prepare(req)
	if err != nil {
		return nil, tax.Region{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Calculation.PipelineTimeout)
	defer cancel()

	runID := uuid.NewString()
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"runId":  runID,
		"wallet": req.Wallet,
		"method": string(req.Method),
		"region": string(req.Region),
	})
	ctx = logging.WithLogger(ctx, logger)
	logger.Info("Starting tax calculation")

	fetchResult, err := s.fetcher.Fetch(ctx, req.Wallet, req.MaxTransactions)
	if err != nil {
		if !req.BestEffort || fetchResult == nil || len(fetchResult.Transactions) == 0 {
			return nil, tax.Region{}, err
		}
		logger.WithFields(map[string]interface{}{
			"transactions": len(fetchResult.Transactions),
			"error":        err.Error(),
		}).Warn("Continuing with partial history (best effort)")
	}

	entries := normalize.New(req.Wallet).NormalizeAll(fetchResult.Transactions)

	resolver := pricing.NewResolver(s.native, s.tokens, s.dailyCache,
		decimal.NewFromFloat(s.cfg.Prices.DefaultSOLPriceUSD))
	priced := resolver.ResolveAll(ctx, entries)

	led, err := ledger.New(req.Method, region.ThresholdDays)
	if err != nil {
		return nil, tax.Region{}, apperrors.NewInternalError("ledger initialization failed", err)
	}
	if err := led.Process(priced); err != nil {
		return nil, tax.Region{}, apperrors.NewInternalError("ledger processing failed", err)
	}

	// Mints traded only against SOL or USDC never went through the token
	// source; fetch their display metadata before symbols render.
	resolver.ResolveMetadata(ctx, led.Mints())

	r := report.Build(report.BuildInput{
		RunID:            runID,
		Wallet:           req.Wallet,
		Method:           req.Method,
		Region:           region,
		Events:           led.Events(),
		OpenLots:         led.OpenLots(),
		TransactionCount: len(fetchResult.Transactions),
		WindowTruncated:  fetchResult.Truncated,
		Metadata:         resolver.Metadata,
	})

	logger.WithFields(map[string]interface{}{
		"events":  r.EventCount,
		"netGain": r.NetGain.StringFixed(2),
	}).Info("Tax calculation complete")

	return r, region, nil
}

// Regions lists the supported tax regions
func (s *TaxService) Regions() []tax.Region {
	return tax.Regions()
}

// prepare validates the request, applies defaults and resolves the region.
// Validation happens before any network call so bad input fails fast.
func (s *TaxService) prepare(req CalculationRequest) (CalculationRequest, tax.Region, error) {
	if err := ValidateWalletAddress(req.Wallet); err != nil {
		return req, tax.Region{}, err
	}

	if req.Method == "" {
		req.Method = types.MethodFIFO
	}
	if !req.Method.Valid() {
		return req, tax.Region{}, apperrors.NewInvalidParameterError("method",
			fmt.Sprintf("must be %s or %s", types.MethodFIFO, types.MethodLIFO))
	}

	if req.Region == "" {
		req.Region = types.RegionUSFederal
	}
	region, err := tax.GetRegion(req.Region)
	if err != nil {
		return req, tax.Region{}, err
	}

	if req.MaxTransactions <= 0 {
		req.MaxTransactions = s.cfg.Calculation.DefaultMaxTransactions
	}
	if req.MaxTransactions > s.cfg.Calculation.MaxMaxTransactions {
		req.MaxTransactions = s.cfg.Calculation.MaxMaxTransactions
	}

	return req, region, nil
}

// ValidateWalletAddress checks the base58 shape of a Solana address without
// touching the network.
func ValidateWalletAddress(address string) error {
	if len(address) < 32 || len(address) > 44 {
		return apperrors.NewInvalidWalletAddressError(address)
	}
	for _, c := range address {
		if !isBase58Char(c) {
			return apperrors.NewInvalidWalletAddressError(address)
		}
	}
	return nil
}

// isBase58Char reports membership in the Bitcoin base58 alphabet, which
// excludes 0, O, I and l.
func isBase58Char(c rune) bool {
	switch {
	case c >= '1' && c <= '9':
		return true
	case c >= 'A' && c <= 'H', c >= 'J' && c <= 'N', c >= 'P' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'k', c >= 'm' && c <= 'z':
		return true
	}
	return false
}
