// Package adapter contains HTTP clients for external data providers: the
// ledger data provider (Helius) and the market price providers (CoinGecko,
// DexScreener).
package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/models"
)

// LedgerDataProvider fetches raw transaction pages for a wallet address.
// Pages walk backward from the most recent transaction; a non-empty before
// cursor continues from that signature.
type LedgerDataProvider interface {
	// FetchTransactionPage returns one page of raw transactions for the
	// address, newest first. An empty page means history is exhausted.
	FetchTransactionPage(ctx context.Context, address string, before string) ([]models.RawTransaction, error)
}

// NativePriceSource resolves the native currency (SOL) USD price for a date.
type NativePriceSource interface {
	// NativePriceUSD returns the daily closing USD price of the native
	// currency for the given date.
	NativePriceUSD(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

// TokenPriceSource resolves current USD prices and metadata for SPL tokens.
type TokenPriceSource interface {
	// TokenQuote returns the USD unit price and display metadata for a
	// mint. A zero price with nil error means the provider knows the token
	// but has no price for it.
	TokenQuote(ctx context.Context, mint string) (decimal.Decimal, models.TokenMetadata, error)
}
