// Package fetcher retrieves a wallet's raw transaction history from the
// ledger data provider under rate-limit constraints.
package fetcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wallet-taxscan/internal/adapter"
	apperrors "github.com/wallet-taxscan/internal/errors"
	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/retry"
)

// Fetcher pages backward through a wallet's transaction history until the
// count limit or history exhaustion is reached. The cursor walk is sequential
// (each page's cursor comes from the previous page) while page validation
// runs on a bounded worker pool; a final ordered merge makes the output
// independent of completion order.
type Fetcher struct {
	provider     adapter.LedgerDataProvider
	pageSize     int
	parseWorkers int
	retryConfig  *retry.RetryConfig
}

// Config holds fetcher configuration
type Config struct {
	PageSize       int
	ParseWorkers   int
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Result is the outcome of one fetch run
type Result struct {
	// Transactions are ordered oldest-to-newest by (timestamp, slot,
	// signature) regardless of fetch completion order.
	Transactions []models.RawTransaction

	// Truncated is true when the count limit was reached before the full
	// history was retrieved. The report must state it is based on the
	// limited window.
	Truncated bool

	// Pages is the number of provider pages consumed.
	Pages int
}

// New creates a fetcher over the given provider
func New(provider adapter.LedgerDataProvider, cfg Config) *Fetcher {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	workers := cfg.ParseWorkers
	if workers <= 0 {
		workers = 4
	}

	retryConfig := retry.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retryConfig.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		retryConfig.InitialDelay = cfg.RetryBaseDelay
	}

	return &Fetcher{
		provider:     provider,
		pageSize:     pageSize,
		parseWorkers: workers,
		retryConfig:  retryConfig,
	}
}

// Fetch retrieves up to maxTransactions raw transactions for the address,
// oldest first. A page failure is retried with exponential backoff; exhausting
// all retry attempts aborts the fetch with a FetchFailure error carrying the
// count of transactions fetched so far. Partial data is never silently
// dropped: the caller decides whether to use it.
func (f *Fetcher) Fetch(ctx context.Context, address string, maxTransactions int) (*Result, error) {
	logger := logging.FromContext(ctx).WithField("wallet", address)

	pagesCh := make(chan []models.RawTransaction, f.parseWorkers)
	validCh := make(chan []models.RawTransaction, f.parseWorkers)

	// Validation workers: drop records without a timestamp or signature.
	var wg sync.WaitGroup
	for i := 0; i < f.parseWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pagesCh {
				valid := make([]models.RawTransaction, 0, len(page))
				for _, tx := range page {
					if tx.Signature == "" || tx.Timestamp <= 0 {
						continue
					}
					valid = append(valid, tx)
				}
				validCh <- valid
			}
		}()
	}

	go func() {
		wg.Wait()
		close(validCh)
	}()

	// Collector: dedupe by signature and accumulate.
	var collected []models.RawTransaction
	seen := make(map[string]struct{})
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for valid := range validCh {
			for _, tx := range valid {
				if _, dup := seen[tx.Signature]; dup {
					continue
				}
				seen[tx.Signature] = struct{}{}
				collected = append(collected, tx)
			}
		}
	}()

	// Cursor walk. The before cursor of each page depends on the previous
	// page, so the walk itself is sequential; the provider's rate limiter
	// paces the requests.
	var (
		before    string
		fetched   int
		pages     int
		truncated bool
		fetchErr  error
	)

	for {
		if ctx.Err() != nil {
			fetchErr = apperrors.NewProviderTimeoutError("helius")
			break
		}

		var page []models.RawTransaction
		result := retry.WithExponentialBackoff(ctx, f.retryConfig, func(ctx context.Context, attempt int) error {
			var err error
			page, err = f.provider.FetchTransactionPage(ctx, address, before)
			return err
		})
		if !result.Success {
			fetchErr = result.LastError
			break
		}

		pages++
		if len(page) == 0 {
			break
		}

		fetched += len(page)
		before = page[len(page)-1].Signature
		pagesCh <- page

		if fetched >= maxTransactions {
			// A full final page means more history likely exists.
			truncated = len(page) >= f.pageSize
			logger.WithFields(map[string]interface{}{
				"fetched": fetched,
				"limit":   maxTransactions,
			}).Warn("Reached transaction count limit")
			break
		}

		if len(page) < f.pageSize {
			break
		}
	}

	close(pagesCh)
	<-collectDone

	// Ordered merge: oldest to newest, ties broken by slot then signature
	// so the stream is byte-identical across runs.
	sort.Slice(collected, func(i, j int) bool {
		a, b := collected[i], collected[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Signature < b.Signature
	})

	if len(collected) > maxTransactions {
		// Keep the most recent maxTransactions records.
		collected = collected[len(collected)-maxTransactions:]
	}

	if fetchErr != nil {
		// Partial data travels with the error; best-effort callers may
		// still use it, everyone else discards it.
		partial := &Result{Transactions: collected, Truncated: true, Pages: pages}
		return partial, apperrors.NewFetchFailureError("helius", len(collected), fetchErr)
	}

	logger.WithFields(map[string]interface{}{
		"transactions": len(collected),
		"pages":        pages,
		"truncated":    truncated,
	}).Info("Fetch complete")

	return &Result{
		Transactions: collected,
		Truncated:    truncated,
		Pages:        pages,
	}, nil
}
