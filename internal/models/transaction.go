package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/types"
)

// RawTransaction is one enhanced transaction record as returned by the ledger
// data provider. It is immutable once fetched; the normalizer is the only
// consumer of its balance-change entries.
type RawTransaction struct {
	Signature      string          `json:"signature"`
	Timestamp      int64           `json:"timestamp"`
	Slot           uint64          `json:"slot"`
	Source         string          `json:"source"`
	Fee            int64           `json:"fee"`
	FeePayer       string          `json:"feePayer"`
	AccountData    []AccountData   `json:"accountData"`
	TokenTransfers []TokenTransfer `json:"tokenTransfers"`
}

// Time returns the transaction timestamp as a UTC time
func (t *RawTransaction) Time() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

// AccountData describes the native balance change of one account in a transaction
type AccountData struct {
	Account             string `json:"account"`
	NativeBalanceChange int64  `json:"nativeBalanceChange"`
}

// TokenTransfer describes one SPL token movement inside a transaction
type TokenTransfer struct {
	Mint            string          `json:"mint"`
	FromUserAccount string          `json:"fromUserAccount"`
	ToUserAccount   string          `json:"toUserAccount"`
	TokenAmount     decimal.Decimal `json:"tokenAmount"`
}

// NormalizedTransaction is one uniform entry produced from a RawTransaction.
// A swap decomposes into a paired disposal and acquisition sharing the same
// signature and timestamp; SwapLeg links the two.
type NormalizedTransaction struct {
	Kind      types.EntryKind
	Timestamp time.Time
	Mint      string
	Quantity  decimal.Decimal
	Signature string

	// SwapLeg is non-empty when this entry is one half of a swap; it holds
	// the mint of the opposite leg.
	SwapLeg string

	// NativeValue is the absolute SOL amount that moved with this entry,
	// used by the price resolver to value the entry when the counter-leg
	// is the native token.
	NativeValue decimal.Decimal

	// StableValueUSD is the absolute stablecoin amount that moved with
	// this entry. Stablecoin legs value the entry directly at one USD per
	// unit, bypassing price lookup.
	StableValueUSD decimal.Decimal
}

// TokenMetadata holds display metadata for a mint, resolved best-effort from
// the market data provider.
type TokenMetadata struct {
	Mint   string `json:"mint"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
