package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	apperrors "github.com/wallet-taxscan/internal/errors"
	"github.com/wallet-taxscan/internal/models"
)

// DexScreenerClient resolves per-token USD prices and display metadata from
// the DexScreener pairs endpoint. Unknown tokens fall back to a truncated
// mint address as the symbol.
type DexScreenerClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// DexScreenerClientConfig holds configuration for the DexScreener client
type DexScreenerClientConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	RequestTimeout    time.Duration
}

// NewDexScreenerClient creates a new DexScreener API client
func NewDexScreenerClient(cfg DexScreenerClientConfig) *DexScreenerClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com/latest"
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &DexScreenerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// dexPairsResponse is the subset of the token-pairs payload we consume
type dexPairsResponse struct {
	Pairs []struct {
		BaseToken struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"baseToken"`
		PriceUSD string `json:"priceUsd"`
	} `json:"pairs"`
}

// FallbackMetadata returns placeholder metadata for a mint with no listing
func FallbackMetadata(mint string) models.TokenMetadata {
	short := mint
	if len(short) > 8 {
		short = short[:8]
	}
	return models.TokenMetadata{
		Mint:   mint,
		Symbol: short,
		Name:   fmt.Sprintf("Unknown (%s...)", short),
	}
}

// TokenQuote returns the USD unit price and metadata for a mint. A zero price
// with nil error means the token is listed but has no usable price; callers
// treat that the same as unlisted.
func (c *DexScreenerClient) TokenQuote(ctx context.Context, mint string) (decimal.Decimal, models.TokenMetadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, FallbackMetadata(mint), apperrors.NewProviderTimeoutError("dexscreener")
	}

	reqURL := fmt.Sprintf("%s/dex/tokens/%s", c.baseURL, mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, FallbackMetadata(mint), apperrors.NewProviderError("dexscreener", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, FallbackMetadata(mint), apperrors.NewProviderError("dexscreener", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, FallbackMetadata(mint), apperrors.NewProviderRateLimitError("dexscreener")
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, FallbackMetadata(mint), apperrors.NewProviderError("dexscreener",
			fmt.Errorf("HTTP error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, FallbackMetadata(mint), apperrors.NewProviderError("dexscreener", err)
	}

	var pairs dexPairsResponse
	if err := json.Unmarshal(body, &pairs); err != nil {
		return decimal.Zero, FallbackMetadata(mint), apperrors.NewProviderError("dexscreener",
			fmt.Errorf("failed to parse response: %w", err))
	}

	if len(pairs.Pairs) == 0 {
		return decimal.Zero, FallbackMetadata(mint), nil
	}

	pair := pairs.Pairs[0]
	meta := models.TokenMetadata{
		Mint:   mint,
		Symbol: strings.TrimSpace(pair.BaseToken.Symbol),
		Name:   strings.TrimSpace(pair.BaseToken.Name),
	}
	if meta.Symbol == "" || meta.Symbol == "N/A" {
		meta = FallbackMetadata(mint)
	}

	if pair.PriceUSD == "" {
		return decimal.Zero, meta, nil
	}

	price, err := decimal.NewFromString(pair.PriceUSD)
	if err != nil {
		return decimal.Zero, meta, nil
	}

	return price, meta, nil
}
