package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/adapter"
	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/types"
)

// Resolver values normalized entries in USD. Resolution is two-tier: native
// currency legs use the daily price cache (backed by the native price
// source), everything else goes through the token price source with a per-run
// memo so a mint is looked up at most once per report.
//
// A resolver instance is scoped to one calculation run; only the daily price
// cache outlives it.
type Resolver struct {
	native     adapter.NativePriceSource
	tokens     adapter.TokenPriceSource
	dailyCache *DailyPriceCache

	defaultNativePrice decimal.Decimal

	// Per-run memos. The pipeline stage is single-threaded, so no locking.
	tokenQuotes map[string]decimal.Decimal
	metadata    map[string]models.TokenMetadata
}

// NewResolver creates a resolver for one calculation run
func NewResolver(native adapter.NativePriceSource, tokens adapter.TokenPriceSource, dailyCache *DailyPriceCache, defaultNativePrice decimal.Decimal) *Resolver {
	return &Resolver{
		native:             native,
		tokens:             tokens,
		dailyCache:         dailyCache,
		defaultNativePrice: defaultNativePrice,
		tokenQuotes:        make(map[string]decimal.Decimal),
		metadata:           make(map[string]models.TokenMetadata),
	}
}

// ResolveAll values every entry in the stream. Price failures never abort the
// run; affected entries degrade to estimated or deferred values.
func (r *Resolver) ResolveAll(ctx context.Context, entries []models.NormalizedTransaction) []models.PricedTransaction {
	priced := make([]models.PricedTransaction, 0, len(entries))
	for _, entry := range entries {
		priced = append(priced, r.Resolve(ctx, entry))
	}
	return priced
}

// Resolve values one entry. Valuation order:
//  1. stablecoin counter-leg: exact one-USD-per-unit value
//  2. native counter-leg: native amount times the daily SOL price
//  3. direct token quote from the market data provider (current price, so
//     always marked estimated)
//  4. swap leg with no direct price: deferred to the ledger's pairing rule
//  5. nothing resolvable: zero value, estimated
func (r *Resolver) Resolve(ctx context.Context, entry models.NormalizedTransaction) models.PricedTransaction {
	priced := models.PricedTransaction{NormalizedTransaction: entry}

	if entry.Kind == types.KindFeeOnly {
		// Fee quantity is denominated in SOL.
		price, estimated := r.nativePrice(ctx, entry.Timestamp)
		priced.ValueUSD = entry.Quantity.Mul(price)
		priced.Estimated = estimated
		return priced
	}

	if entry.StableValueUSD.IsPositive() {
		priced.ValueUSD = entry.StableValueUSD
		return priced
	}

	if entry.NativeValue.IsPositive() {
		price, estimated := r.nativePrice(ctx, entry.Timestamp)
		priced.ValueUSD = entry.NativeValue.Mul(price)
		priced.Estimated = estimated
		return priced
	}

	if quote := r.tokenQuote(ctx, entry.Mint); quote.IsPositive() {
		priced.ValueUSD = entry.Quantity.Mul(quote)
		priced.Estimated = true
		return priced
	}

	if entry.SwapLeg != "" {
		// Token-to-token swap with no direct price for this leg: the
		// ledger derives the value from the paired leg.
		priced.Deferred = true
		priced.Estimated = true
		return priced
	}

	priced.ValueUSD = decimal.Zero
	priced.Estimated = true
	return priced
}

// ResolveMetadata fetches and memoizes display metadata for every mint not
// already seen by a token quote. Entries valued through their SOL or USDC
// cash leg never hit the token source during resolution, so reports call this
// with the full traded-mint set before rendering symbols.
func (r *Resolver) ResolveMetadata(ctx context.Context, mints []string) {
	for _, mint := range mints {
		if mint == types.SOLMint {
			continue
		}
		if _, ok := r.metadata[mint]; ok {
			continue
		}
		r.tokenQuote(ctx, mint)
	}
}

// Metadata returns the display metadata memoized for a mint, with a
// truncated-mint fallback for tokens never quoted.
func (r *Resolver) Metadata(mint string) models.TokenMetadata {
	if meta, ok := r.metadata[mint]; ok {
		return meta
	}
	if mint == types.SOLMint {
		return models.TokenMetadata{Mint: mint, Symbol: "SOL", Name: "Solana"}
	}
	return adapter.FallbackMetadata(mint)
}

// nativePrice returns the daily SOL price for a timestamp. A lookup failure
// degrades to the configured default price and marks the value estimated.
func (r *Resolver) nativePrice(ctx context.Context, at time.Time) (decimal.Decimal, bool) {
	if price, ok := r.dailyCache.Get(ctx, at); ok {
		return price, false
	}

	price, err := r.native.NativePriceUSD(ctx, at)
	if err != nil || price.IsZero() {
		if err != nil {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"date":  DateKey(at),
				"error": err.Error(),
			}).Warn("Native price lookup failed, using default")
		}
		return r.defaultNativePrice, true
	}

	r.dailyCache.Put(ctx, at, price)
	return price, false
}

// tokenQuote returns the memoized market price for a mint, querying the
// provider on first sight. Provider failures memoize a zero quote so a dead
// provider costs one request per mint, not one per entry.
func (r *Resolver) tokenQuote(ctx context.Context, mint string) decimal.Decimal {
	if quote, ok := r.tokenQuotes[mint]; ok {
		return quote
	}

	quote, meta, err := r.tokens.TokenQuote(ctx, mint)
	if err != nil {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"mint":  mint,
			"error": err.Error(),
		}).Debug("Token quote lookup failed")
		quote = decimal.Zero
		meta = adapter.FallbackMetadata(mint)
	}

	r.tokenQuotes[mint] = quote
	r.metadata[mint] = meta
	return quote
}
