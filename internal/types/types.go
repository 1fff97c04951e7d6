// Package types provides common type definitions for the wallet tax scanner system.
package types

import "github.com/shopspring/decimal"

// AccountingMethod selects the lot-matching order for disposals
type AccountingMethod string

const (
	// MethodFIFO consumes lots in ascending acquired-timestamp order
	MethodFIFO AccountingMethod = "FIFO"
	// MethodLIFO consumes lots in descending acquired-timestamp order
	MethodLIFO AccountingMethod = "LIFO"
)

// Valid reports whether the accounting method is one of the supported values
func (m AccountingMethod) Valid() bool {
	return m == MethodFIFO || m == MethodLIFO
}

// Classification represents the holding-period classification of a taxable event
type Classification string

const (
	// ClassificationShortTerm represents a holding period below the region threshold
	ClassificationShortTerm Classification = "short_term"
	// ClassificationLongTerm represents a holding period at or above the region threshold
	ClassificationLongTerm Classification = "long_term"
)

// EntryKind represents the kind of a normalized transaction entry
type EntryKind string

const (
	// KindAcquisition represents tokens entering the wallet with a cost basis
	KindAcquisition EntryKind = "acquisition"
	// KindDisposal represents tokens leaving the wallet with proceeds
	KindDisposal EntryKind = "disposal"
	// KindFeeOnly represents a transaction whose only outflow is a network fee
	KindFeeOnly EntryKind = "fee_only"
)

// EventFlag marks a taxable event or lot whose numbers are not exact
type EventFlag string

const (
	// FlagCostBasisEstimated marks an event whose cost basis could not be priced
	FlagCostBasisEstimated EventFlag = "cost_basis_estimated"
	// FlagUnmatchedAcquisition marks a disposal matched against a synthetic zero-basis lot
	FlagUnmatchedAcquisition EventFlag = "unmatched_acquisition"
	// FlagLimitedWindow marks a report built from a truncated transaction window
	FlagLimitedWindow EventFlag = "limited_window"
)

// RegionID identifies a supported tax jurisdiction
type RegionID string

const (
	// RegionUSFederal represents United States federal tax rules
	RegionUSFederal RegionID = "us_federal"
	// RegionUSCalifornia represents federal plus California state tax rules
	RegionUSCalifornia RegionID = "us_california"
	// RegionUSNewYork represents federal plus New York state tax rules
	RegionUSNewYork RegionID = "us_new_york"
	// RegionUSTexas represents federal-only tax rules (no state income tax)
	RegionUSTexas RegionID = "us_texas"
	// RegionUSFlorida represents federal-only tax rules (no state income tax)
	RegionUSFlorida RegionID = "us_florida"
	// RegionUK represents United Kingdom capital gains tax rules
	RegionUK RegionID = "uk"
	// RegionIndia represents Indian crypto tax rules
	RegionIndia RegionID = "india"
	// RegionGermany represents German rules (tax-free past one year)
	RegionGermany RegionID = "germany"
	// RegionAustralia represents Australian CGT discount rules
	RegionAustralia RegionID = "australia"
	// RegionCanada represents Canadian 50% inclusion rules
	RegionCanada RegionID = "canada"
)

// Well-known Solana mint addresses and unit constants
const (
	// SOLMint is the native SOL (and wrapped SOL) mint address
	SOLMint = "So11111111111111111111111111111111111111112"
	// USDCMint is the USDC stablecoin mint address
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	// LamportsPerSOL is the number of lamports in one SOL
	LamportsPerSOL = 1_000_000_000
)

// DustEpsilon is the quantity below which balance changes are dropped by the
// normalizer to keep lot-ledger noise out of reports. Expressed in native
// token units (1e-9, one lamport-equivalent).
var DustEpsilon = decimal.New(1, -9)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}
