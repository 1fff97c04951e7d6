package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	apperrors "github.com/wallet-taxscan/internal/errors"
)

// CoinGeckoClient resolves historical daily SOL prices from the CoinGecko
// coin-history endpoint. Failures are non-fatal for the pipeline; callers
// degrade to a configured default price.
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// CoinGeckoClientConfig holds configuration for the CoinGecko client
type CoinGeckoClientConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	RequestTimeout    time.Duration
}

// NewCoinGeckoClient creates a new CoinGecko API client
func NewCoinGeckoClient(cfg CoinGeckoClientConfig) *CoinGeckoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CoinGeckoClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// coinHistoryResponse is the subset of the coin-history payload we consume
type coinHistoryResponse struct {
	MarketData struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

// NativePriceUSD returns the daily USD price of SOL for the given date.
// CoinGecko's history endpoint expects dd-mm-yyyy.
func (c *CoinGeckoClient) NativePriceUSD(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, apperrors.NewProviderTimeoutError("coingecko")
	}

	reqURL := fmt.Sprintf("%s/coins/solana/history?date=%s&localization=false",
		c.baseURL, date.Format("02-01-2006"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, apperrors.NewProviderError("coingecko", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, apperrors.NewProviderError("coingecko", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, apperrors.NewProviderRateLimitError("coingecko")
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, apperrors.NewProviderError("coingecko",
			fmt.Errorf("HTTP error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, apperrors.NewProviderError("coingecko", err)
	}

	var history coinHistoryResponse
	if err := json.Unmarshal(body, &history); err != nil {
		return decimal.Zero, apperrors.NewProviderError("coingecko",
			fmt.Errorf("failed to parse response: %w", err))
	}

	price, ok := history.MarketData.CurrentPrice["usd"]
	if !ok || price.IsZero() {
		return decimal.Zero, apperrors.NewPriceUnavailableError("SOL", date)
	}

	return price, nil
}
