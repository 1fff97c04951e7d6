package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wallet-taxscan/internal/errors"
	"github.com/wallet-taxscan/internal/models"
)

const wallet = "WaLLet111111111111111111111111111111111111"

// fakeProvider serves canned pages keyed by the before cursor
type fakeProvider struct {
	pages     map[string][]models.RawTransaction
	failUntil int
	calls     int
}

func (f *fakeProvider) FetchTransactionPage(ctx context.Context, address, before string) ([]models.RawTransaction, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return nil, errors.New("transient provider error")
	}
	return f.pages[before], nil
}

func tx(sig string, ts int64) models.RawTransaction {
	return models.RawTransaction{Signature: sig, Timestamp: ts, Slot: uint64(ts)}
}

func fastConfig() Config {
	return Config{PageSize: 2, ParseWorkers: 2, MaxRetries: 2, RetryBaseDelay: time.Millisecond}
}

func TestFetch_SinglePage(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]models.RawTransaction{
		"": {tx("b", 200), tx("a", 100)},
	}}

	f := New(provider, fastConfig())
	result, err := f.Fetch(context.Background(), wallet, 100)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 2)
	// Oldest first regardless of provider order.
	assert.Equal(t, "a", result.Transactions[0].Signature)
	assert.Equal(t, "b", result.Transactions[1].Signature)
	assert.False(t, result.Truncated)
}

func TestFetch_PaginatesWithCursor(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]models.RawTransaction{
		"":  {tx("d", 400), tx("c", 300)},
		"c": {tx("b", 200), tx("a", 100)},
		"a": {},
	}}

	f := New(provider, fastConfig())
	result, err := f.Fetch(context.Background(), wallet, 100)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 4)
	assert.Equal(t, "a", result.Transactions[0].Signature)
	assert.Equal(t, "d", result.Transactions[3].Signature)
	assert.Equal(t, 3, result.Pages)
}

func TestFetch_StopsAtLimitAndFlagsTruncation(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]models.RawTransaction{
		"":  {tx("d", 400), tx("c", 300)},
		"c": {tx("b", 200), tx("a", 100)},
		"a": {tx("z", 50), tx("y", 25)},
	}}

	f := New(provider, fastConfig())
	result, err := f.Fetch(context.Background(), wallet, 3)
	require.NoError(t, err)

	// The limit keeps the most recent 3 and reports truncation because the
	// final page was full.
	require.Len(t, result.Transactions, 3)
	assert.True(t, result.Truncated)
	assert.Equal(t, "b", result.Transactions[0].Signature)
	assert.Equal(t, "d", result.Transactions[2].Signature)
}

func TestFetch_DropsInvalidRecords(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]models.RawTransaction{
		"": {tx("b", 200), {Signature: "", Timestamp: 100}},
	}}

	f := New(provider, fastConfig())
	result, err := f.Fetch(context.Background(), wallet, 100)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "b", result.Transactions[0].Signature)
}

func TestFetch_DeduplicatesBySignature(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]models.RawTransaction{
		"":  {tx("b", 200), tx("a", 100)},
		"a": {tx("a", 100)},
	}}

	f := New(provider, fastConfig())
	result, err := f.Fetch(context.Background(), wallet, 100)
	require.NoError(t, err)

	assert.Len(t, result.Transactions, 2)
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{
		failUntil: 1,
		pages: map[string][]models.RawTransaction{
			"": {tx("a", 100)},
		},
	}

	f := New(provider, fastConfig())
	result, err := f.Fetch(context.Background(), wallet, 100)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
}

func TestFetch_ExhaustedRetriesReturnPartialWithError(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]models.RawTransaction{
		"": {tx("d", 400), tx("c", 300)},
		// Cursor "c" has no entry: the fake returns nil page which ends the
		// walk cleanly, so force failures instead after the first page.
	}}
	provider.pages["c"] = nil

	failing := &failAfterProvider{inner: provider, failFrom: 2}
	f := New(failing, fastConfig())

	result, err := f.Fetch(context.Background(), wallet, 100)
	require.Error(t, err)

	var catErr *apperrors.CategorizedError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, "FETCH_FAILURE", catErr.Code)
	assert.Equal(t, 2, catErr.Details["transactionsFetched"])

	// Partial data travels with the error for best-effort callers.
	require.NotNil(t, result)
	assert.Len(t, result.Transactions, 2)
	assert.True(t, result.Truncated)
}

// failAfterProvider fails every call starting at failFrom
type failAfterProvider struct {
	inner    *fakeProvider
	failFrom int
	calls    int
}

func (f *failAfterProvider) FetchTransactionPage(ctx context.Context, address, before string) ([]models.RawTransaction, error) {
	f.calls++
	if f.calls >= f.failFrom {
		return nil, errors.New("provider down")
	}
	return f.inner.FetchTransactionPage(ctx, address, before)
}

func TestFetch_ContextCancellation(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]models.RawTransaction{
		"": {tx("a", 100)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(provider, fastConfig())
	_, err := f.Fetch(ctx, wallet, 100)
	require.Error(t, err)
}
