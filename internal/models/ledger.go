package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/types"
)

// PricedTransaction is a normalized entry annotated with its USD valuation.
// Exactly one of the value sources applies: a direct ValueUSD, or Deferred,
// meaning the value is derived inside the ledger from the swap pairing (the
// disposal leg's proceeds become the acquisition leg's cost basis).
type PricedTransaction struct {
	NormalizedTransaction

	// ValueUSD is the total USD value of this entry: proceeds for a
	// disposal, cost basis for an acquisition.
	ValueUSD decimal.Decimal

	// Estimated is true when no direct price was resolvable and the value
	// is a best-effort estimate (or zero).
	Estimated bool

	// Deferred is true when the value must be taken from the paired swap
	// leg during ledger processing.
	Deferred bool
}

// Lot represents one unconsumed (or partially consumed) acquisition.
// It is owned exclusively by the lot ledger for its mint and is mutated only
// by consumption during disposal matching.
type Lot struct {
	Mint         string          `json:"mint"`
	AcquiredAt   time.Time       `json:"acquiredAt"`
	OriginalQty  decimal.Decimal `json:"originalQty"`
	RemainingQty decimal.Decimal `json:"remainingQty"`
	UnitCostUSD  decimal.Decimal `json:"unitCostUsd"`

	// Unpriced is true when the acquisition could not be valued; the lot
	// carries a zero cost basis and disposals consuming it are flagged.
	Unpriced bool `json:"unpriced,omitempty"`
}

// CostBasis returns the USD cost basis of the remaining quantity
func (l *Lot) CostBasis() decimal.Decimal {
	return l.RemainingQty.Mul(l.UnitCostUSD)
}

// TaxableEvent is one matched disposal-against-lot fragment. A disposal that
// spans multiple lots produces one event per consumed fragment, preserving
// per-lot holding-period attribution.
type TaxableEvent struct {
	Mint           string               `json:"mint"`
	Symbol         string               `json:"symbol"`
	DisposedAt     time.Time            `json:"disposedAt"`
	Quantity       decimal.Decimal      `json:"quantity"`
	ProceedsUSD    decimal.Decimal      `json:"proceedsUsd"`
	CostBasisUSD   decimal.Decimal      `json:"costBasisUsd"`
	GainUSD        decimal.Decimal      `json:"gainUsd"`
	AcquiredAt     time.Time            `json:"acquiredAt"`
	HoldingDays    int                  `json:"holdingDays"`
	Classification types.Classification `json:"classification"`
	TaxOwedUSD     decimal.Decimal      `json:"taxOwedUsd"`
	Flags          []types.EventFlag    `json:"flags,omitempty"`
	Signature      string               `json:"signature"`
}

// HasFlag reports whether the event carries the given flag
func (e *TaxableEvent) HasFlag(flag types.EventFlag) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// TaxSummary is the output of the region tax model over an event list
type TaxSummary struct {
	Region           types.RegionID  `json:"region"`
	ShortTermNetGain decimal.Decimal `json:"shortTermNetGain"`
	LongTermNetGain  decimal.Decimal `json:"longTermNetGain"`
	ExemptionApplied decimal.Decimal `json:"exemptionApplied"`
	TaxableGain      decimal.Decimal `json:"taxableGain"`
	ShortTermTaxUSD  decimal.Decimal `json:"shortTermTaxUsd"`
	LongTermTaxUSD   decimal.Decimal `json:"longTermTaxUsd"`
	TotalTaxUSD      decimal.Decimal `json:"totalTaxUsd"`
}

// TokenBreakdown is the per-token subtotal block of a report
type TokenBreakdown struct {
	Mint       string          `json:"mint"`
	Symbol     string          `json:"symbol"`
	Invested   decimal.Decimal `json:"invested"`
	Proceeds   decimal.Decimal `json:"proceeds"`
	GainUSD    decimal.Decimal `json:"gainUsd"`
	ROIPercent decimal.Decimal `json:"roiPercent"`
	EventCount int             `json:"eventCount"`
}

// Caveat describes one non-fatal degradation surfaced in the final report
type Caveat struct {
	Flag    types.EventFlag `json:"flag"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
}

// Report aggregates taxable events, ledger state and the tax summary for one
// calculation run. Both serialized exports are built from the same instance so
// their totals cannot diverge.
type Report struct {
	RunID            string                 `json:"runId"`
	Wallet           string                 `json:"wallet"`
	Method           types.AccountingMethod `json:"method"`
	Region           types.RegionID         `json:"region"`
	GeneratedAt      time.Time              `json:"generatedAt"`
	TotalProceeds    decimal.Decimal        `json:"totalProceeds"`
	TotalCostBasis   decimal.Decimal        `json:"totalCostBasis"`
	NetGain          decimal.Decimal        `json:"netGain"`
	EventCount       int                    `json:"eventCount"`
	Summary          TaxSummary             `json:"summary"`
	Tokens           []TokenBreakdown       `json:"tokens"`
	Events           []TaxableEvent         `json:"events"`
	OpenLots         []Lot                  `json:"openLots,omitempty"`
	Caveats          []Caveat               `json:"caveats,omitempty"`
	TransactionCount int                    `json:"transactionCount"`
	WindowTruncated  bool                   `json:"windowTruncated"`
}
