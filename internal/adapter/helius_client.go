package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/wallet-taxscan/internal/errors"
	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/models"
)

// HeliusClient fetches enhanced transaction history from the Helius API.
// Pagination walks backward from the most recent transaction using the
// before-signature cursor, up to PageSize records per page.
type HeliusClient struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
	limiter  *rate.Limiter
}

// HeliusClientConfig holds configuration for the Helius client
type HeliusClientConfig struct {
	APIKey  string
	BaseURL string
	// RequestsPerSecond is the provider quota ceiling. This is a throughput
	// ceiling only; correctness never depends on it.
	RequestsPerSecond float64
	PageSize          int
	RequestTimeout    time.Duration
}

// NewHeliusClient creates a new Helius API client
func NewHeliusClient(cfg HeliusClientConfig) *HeliusClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.helius.xyz/v0"
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10 // free tier default
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HeliusClient{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// PageSize returns the configured page size
func (c *HeliusClient) PageSize() int {
	return c.pageSize
}

// FetchTransactionPage returns one page of raw transactions for the address,
// newest first. An empty before cursor starts from the most recent
// transaction; an empty result means history is exhausted.
func (c *HeliusClient) FetchTransactionPage(ctx context.Context, address string, before string) ([]models.RawTransaction, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewProviderError("helius", fmt.Errorf("API key not configured"))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewProviderTimeoutError("helius")
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("limit", strconv.Itoa(c.pageSize))
	if before != "" {
		params.Set("before", before)
	}

	reqURL := fmt.Sprintf("%s/addresses/%s/transactions?%s", c.baseURL, address, params.Encode())

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var page []models.RawTransaction
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apperrors.NewProviderError("helius", fmt.Errorf("failed to parse response: %w", err))
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"address": address,
		"page":    len(page),
		"before":  before,
	}).Debug("Fetched transaction page")

	return page, nil
}

// maxRetryAfter caps the wait a 429 Retry-After header can impose.
const maxRetryAfter = 30 * time.Second

// retryAfterDelay parses the delta-seconds form of a Retry-After header.
// A missing or unparseable header yields zero and the caller falls back to
// its own backoff schedule.
func retryAfterDelay(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	wait := time.Duration(seconds) * time.Second
	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	return wait
}

// doRequest performs one HTTP request, classifying rate-limit and timeout
// responses so the fetcher's retry layer can decide what to do.
func (c *HeliusClient) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewProviderError("helius", fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewProviderTimeoutError("helius")
		}
		return nil, apperrors.NewProviderError("helius", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError("helius", fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Honor the provider's advised delay before surfacing the error so
		// the retry layer's next attempt lands after the quota window resets.
		if wait := retryAfterDelay(resp.Header); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
			}
		}
		return nil, apperrors.NewProviderRateLimitError("helius")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewProviderError("helius",
			fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, string(body)))
	}

	return body, nil
}
