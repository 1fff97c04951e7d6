// Package ledger implements the cost-basis accounting engine: per-token
// acquisition lots, FIFO/LIFO disposal matching, and taxable event emission.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/types"
)

// Ledger maintains an ordered set of open acquisition lots per token and
// matches disposals against them under the accounting method selected for the
// run. One ledger instance is owned by exactly one calculation run; it is
// never shared and never blocks.
//
// Determinism: given an identical ordered entry stream and method, the ledger
// produces byte-identical taxable event sequences on every run.
type Ledger struct {
	method        types.AccountingMethod
	thresholdDays int

	lots map[string][]*models.Lot

	// Conservation bookkeeping: for every token, the sum of remaining
	// quantities across open lots must equal acquired minus disposed.
	// Synthetic shortfall lots count toward both sides.
	acquired map[string]decimal.Decimal
	disposed map[string]decimal.Decimal

	// pendingSwapProceeds carries a swap disposal's proceeds to its paired
	// acquisition, keyed by transaction signature.
	pendingSwapProceeds map[string]decimal.Decimal

	events       []models.TaxableEvent
	totalFeesUSD decimal.Decimal
}

// New creates a ledger for one calculation run. The accounting method and the
// holding-period threshold are fixed for the run's duration.
func New(method types.AccountingMethod, thresholdDays int) (*Ledger, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("unsupported accounting method: %s", method)
	}
	if thresholdDays < 0 {
		return nil, fmt.Errorf("holding-period threshold cannot be negative: %d", thresholdDays)
	}

	return &Ledger{
		method:              method,
		thresholdDays:       thresholdDays,
		lots:                make(map[string][]*models.Lot),
		acquired:            make(map[string]decimal.Decimal),
		disposed:            make(map[string]decimal.Decimal),
		pendingSwapProceeds: make(map[string]decimal.Decimal),
	}, nil
}

// Method returns the accounting method fixed for this run
func (l *Ledger) Method() types.AccountingMethod {
	return l.method
}

// RecordAcquisition appends a new lot with remaining = original = quantity.
// A non-positive quantity is rejected as a normalization-layer bug, not an
// accounting error.
func (l *Ledger) RecordAcquisition(mint string, at time.Time, quantity, costUSD decimal.Decimal, unpriced bool) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("acquisition quantity must be positive, got %s for %s", quantity, mint)
	}

	unitCost := decimal.Zero
	if !costUSD.IsZero() {
		unitCost = costUSD.Div(quantity)
	}

	l.lots[mint] = append(l.lots[mint], &models.Lot{
		Mint:         mint,
		AcquiredAt:   at,
		OriginalQty:  quantity,
		RemainingQty: quantity,
		UnitCostUSD:  unitCost,
		Unpriced:     unpriced,
	})
	l.acquired[mint] = l.acquired[mint].Add(quantity)

	return nil
}

// RecordDisposal matches a disposal against open lots under the active
// ordering, producing one taxable event per consumed lot fragment with
// proceeds apportioned pro-rata by fragment quantity. The multi-lot matching
// is atomic from the caller's perspective: validation happens before any lot
// is touched.
//
// When the disposal quantity exceeds all open lots' remaining quantity, the
// excess is matched against a synthetic zero-cost lot dated at the disposal
// timestamp (holding period 0, short-term) and flagged unmatched-acquisition.
func (l *Ledger) RecordDisposal(mint string, at time.Time, quantity, proceedsUSD decimal.Decimal, estimated bool, signature string) ([]models.TaxableEvent, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("disposal quantity must be positive, got %s for %s", quantity, mint)
	}

	var (
		events      []models.TaxableEvent
		outstanding = quantity
		allocated   = decimal.Zero
	)

	for outstanding.IsPositive() {
		lot := l.headLot(mint)
		if lot == nil {
			break
		}

		fragment := decimal.Min(outstanding, lot.RemainingQty)

		// Pro-rata by fragment quantity, except the disposal's final
		// fragment, which takes the unallocated residual so fragment
		// proceeds always sum back to the disposal's proceeds exactly.
		var fragmentProceeds decimal.Decimal
		if fragment.Equal(outstanding) {
			fragmentProceeds = proceedsUSD.Sub(allocated)
		} else {
			fragmentProceeds = proceedsUSD.Mul(fragment).Div(quantity)
		}
		fragmentBasis := fragment.Mul(lot.UnitCostUSD)

		event := models.TaxableEvent{
			Mint:         mint,
			DisposedAt:   at,
			Quantity:     fragment,
			ProceedsUSD:  fragmentProceeds,
			CostBasisUSD: fragmentBasis,
			GainUSD:      fragmentProceeds.Sub(fragmentBasis),
			AcquiredAt:   lot.AcquiredAt,
			Signature:    signature,
		}
		event.HoldingDays = holdingDays(lot.AcquiredAt, at)
		event.Classification = l.classify(event.HoldingDays)
		if estimated || lot.Unpriced {
			event.Flags = append(event.Flags, types.FlagCostBasisEstimated)
		}

		events = append(events, event)
		allocated = allocated.Add(fragmentProceeds)

		lot.RemainingQty = lot.RemainingQty.Sub(fragment)
		outstanding = outstanding.Sub(fragment)
		if lot.RemainingQty.IsZero() {
			l.dropHeadLot(mint)
		}
	}

	if outstanding.IsPositive() {
		// Shortfall: an acquisition outside the fetch window. Surfaced to
		// the user via the unmatched-acquisition flag, never hidden.
		shortfallProceeds := proceedsUSD.Sub(allocated)
		event := models.TaxableEvent{
			Mint:           mint,
			DisposedAt:     at,
			Quantity:       outstanding,
			ProceedsUSD:    shortfallProceeds,
			CostBasisUSD:   decimal.Zero,
			GainUSD:        shortfallProceeds,
			AcquiredAt:     at,
			HoldingDays:    0,
			Classification: types.ClassificationShortTerm,
			Flags:          []types.EventFlag{types.FlagUnmatchedAcquisition},
			Signature:      signature,
		}
		if estimated {
			event.Flags = append(event.Flags, types.FlagCostBasisEstimated)
		}
		events = append(events, event)

		// The synthetic lot is acquired and consumed in one step; count
		// both sides so conservation holds.
		l.acquired[mint] = l.acquired[mint].Add(outstanding)
	}

	l.disposed[mint] = l.disposed[mint].Add(quantity)
	l.events = append(l.events, events...)

	return events, nil
}

// headLot returns the next lot to consume under the active ordering, or nil
func (l *Ledger) headLot(mint string) *models.Lot {
	lots := l.lots[mint]
	if len(lots) == 0 {
		return nil
	}
	if l.method == types.MethodLIFO {
		return lots[len(lots)-1]
	}
	return lots[0]
}

// dropHeadLot removes the fully consumed head lot
func (l *Ledger) dropHeadLot(mint string) {
	lots := l.lots[mint]
	if len(lots) == 0 {
		return
	}
	if l.method == types.MethodLIFO {
		l.lots[mint] = lots[:len(lots)-1]
	} else {
		l.lots[mint] = lots[1:]
	}
	if len(l.lots[mint]) == 0 {
		delete(l.lots, mint)
	}
}

// classify applies the fixed tie-break rule: below the threshold is
// short-term, at or above it is long-term. A zero threshold region therefore
// classifies everything long-term; its rates are equal on both sides.
func (l *Ledger) classify(days int) types.Classification {
	if days >= l.thresholdDays {
		return types.ClassificationLongTerm
	}
	return types.ClassificationShortTerm
}

// holdingDays returns whole days between acquisition and disposal
func holdingDays(acquired, disposed time.Time) int {
	if disposed.Before(acquired) {
		return 0
	}
	return int(disposed.Sub(acquired).Hours() / 24)
}

// Process runs the full priced entry stream through the ledger in order.
// Swap pairs resolve here: the disposal leg's proceeds become the paired
// acquisition leg's cost basis when the pricer deferred the value.
func (l *Ledger) Process(entries []models.PricedTransaction) error {
	for _, entry := range entries {
		switch entry.Kind {
		case types.KindFeeOnly:
			l.totalFeesUSD = l.totalFeesUSD.Add(entry.ValueUSD)

		case types.KindDisposal:
			proceeds := entry.ValueUSD
			estimated := entry.Estimated
			if entry.Deferred {
				// No direct price for the disposed token: estimate
				// proceeds from its average open cost basis so the
				// paired acquisition inherits a defensible value.
				proceeds = l.AverageCostEstimate(entry.Mint, entry.Quantity)
				estimated = true
			}
			if entry.SwapLeg != "" && entry.SwapLeg != types.SOLMint && entry.SwapLeg != types.USDCMint {
				l.pendingSwapProceeds[entry.Signature] = proceeds
			}
			if _, err := l.RecordDisposal(entry.Mint, entry.Timestamp, entry.Quantity, proceeds, estimated, entry.Signature); err != nil {
				return err
			}

		case types.KindAcquisition:
			cost := entry.ValueUSD
			estimated := entry.Estimated
			unpriced := false
			if entry.Deferred {
				if pending, ok := l.pendingSwapProceeds[entry.Signature]; ok {
					cost = pending
					delete(l.pendingSwapProceeds, entry.Signature)
				} else {
					unpriced = true
				}
				estimated = true
			} else if cost.IsZero() && estimated {
				unpriced = true
			}
			if err := l.RecordAcquisition(entry.Mint, entry.Timestamp, entry.Quantity, cost, unpriced); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unknown entry kind: %s", entry.Kind)
		}
	}

	return nil
}

// AverageCostEstimate estimates the USD value of a quantity from the average
// unit cost of the token's open lots. Returns zero when nothing is held.
func (l *Ledger) AverageCostEstimate(mint string, quantity decimal.Decimal) decimal.Decimal {
	lots := l.lots[mint]
	if len(lots) == 0 {
		return decimal.Zero
	}

	totalCost := decimal.Zero
	totalQty := decimal.Zero
	for _, lot := range lots {
		totalCost = totalCost.Add(lot.RemainingQty.Mul(lot.UnitCostUSD))
		totalQty = totalQty.Add(lot.RemainingQty)
	}
	if !totalQty.IsPositive() {
		return decimal.Zero
	}

	return totalCost.Div(totalQty).Mul(quantity)
}

// Events returns the taxable events emitted so far, in emission order
func (l *Ledger) Events() []models.TaxableEvent {
	return l.events
}

// TotalFeesUSD returns the accumulated network fee value
func (l *Ledger) TotalFeesUSD() decimal.Decimal {
	return l.totalFeesUSD
}

// OpenLots returns all open lots ordered by mint then acquisition time, a
// deterministic snapshot for reports and holdings views.
func (l *Ledger) OpenLots() []models.Lot {
	mints := make([]string, 0, len(l.lots))
	for mint := range l.lots {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	var open []models.Lot
	for _, mint := range mints {
		for _, lot := range l.lots[mint] {
			open = append(open, *lot)
		}
	}
	return open
}

// RemainingQty returns the total remaining quantity of open lots for a mint
func (l *Ledger) RemainingQty(mint string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[mint] {
		total = total.Add(lot.RemainingQty)
	}
	return total
}

// AcquiredQty returns the total acquired quantity for a mint, synthetic
// shortfall lots included
func (l *Ledger) AcquiredQty(mint string) decimal.Decimal {
	return l.acquired[mint]
}

// DisposedQty returns the total disposed quantity for a mint
func (l *Ledger) DisposedQty(mint string) decimal.Decimal {
	return l.disposed[mint]
}

// Mints returns every mint the ledger has seen, sorted
func (l *Ledger) Mints() []string {
	seen := make(map[string]struct{})
	for mint := range l.acquired {
		seen[mint] = struct{}{}
	}
	for mint := range l.disposed {
		seen[mint] = struct{}{}
	}

	mints := make([]string, 0, len(seen))
	for mint := range seen {
		mints = append(mints, mint)
	}
	sort.Strings(mints)
	return mints
}
