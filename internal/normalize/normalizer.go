// Package normalize converts heterogeneous raw ledger records into the
// uniform internal transaction model consumed by the pricing and accounting
// stages.
package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/types"
)

// DefaultFeeMaxNative is the negligible-amount ceiling for classifying a pure
// native outflow as a network fee rather than a disposal. Solana fees are a
// few thousand lamports; 0.01 SOL is far above any real fee and far below any
// intentional transfer.
var DefaultFeeMaxNative = decimal.NewFromFloat(0.01)

// Normalizer converts raw transactions into normalized entries for one
// tracked wallet. Stablecoin and native mints are treated as cash legs and
// never become lots themselves.
type Normalizer struct {
	wallet       string
	dustEpsilon  decimal.Decimal
	feeMaxNative decimal.Decimal
	stableMints  map[string]struct{}
}

// New creates a normalizer for the given wallet address
func New(wallet string) *Normalizer {
	return &Normalizer{
		wallet:       wallet,
		dustEpsilon:  types.DustEpsilon,
		feeMaxNative: DefaultFeeMaxNative,
		stableMints: map[string]struct{}{
			types.USDCMint: {},
		},
	}
}

// Normalize converts one raw transaction into zero or more normalized
// entries. Transactions with no net balance change for the tracked wallet
// (approvals, no-ops) normalize to zero entries. Dust amounts below the
// epsilon are dropped.
func (n *Normalizer) Normalize(tx *models.RawTransaction) []models.NormalizedTransaction {
	ts := tx.Time()

	nativeChange := n.nativeChange(tx)
	tokensIn, tokensOut, stableIn, stableOut := n.tokenFlows(tx)

	// Pure native movement: a deposit or withdrawal is a cash leg, not a
	// taxable entry. A tiny outflow matching the fee profile is FeeOnly.
	if len(tokensIn) == 0 && len(tokensOut) == 0 && stableIn.IsZero() && stableOut.IsZero() {
		if nativeChange.IsNegative() && nativeChange.Abs().LessThanOrEqual(n.feeMaxNative) {
			return []models.NormalizedTransaction{{
				Kind:      types.KindFeeOnly,
				Timestamp: ts,
				Mint:      types.SOLMint,
				Quantity:  nativeChange.Abs(),
				Signature: tx.Signature,
			}}
		}
		return nil
	}

	var entries []models.NormalizedTransaction

	solOut := decimal.Zero
	solIn := decimal.Zero
	if nativeChange.IsNegative() {
		solOut = nativeChange.Abs()
	} else {
		solIn = nativeChange
	}

	switch {
	case len(tokensIn) == 1 && len(tokensOut) == 1:
		// Token-to-token swap: paired disposal and acquisition sharing the
		// same signature. The disposal's proceeds become the acquisition's
		// cost basis when token A has no direct USD price.
		out := tokensOut[0]
		in := tokensIn[0]
		entries = append(entries,
			models.NormalizedTransaction{
				Kind:      types.KindDisposal,
				Timestamp: ts,
				Mint:      out.mint,
				Quantity:  out.amount,
				Signature: tx.Signature,
				SwapLeg:   in.mint,
			},
			models.NormalizedTransaction{
				Kind:      types.KindAcquisition,
				Timestamp: ts,
				Mint:      in.mint,
				Quantity:  in.amount,
				Signature: tx.Signature,
				SwapLeg:   out.mint,
			},
		)

	case len(tokensIn) > 0 && len(tokensOut) == 0:
		// Tokens entered the wallet. With a native or stable outflow this
		// is a buy; without one it is a bare transfer-in whose basis must
		// be resolved by the pricer.
		for _, in := range tokensIn {
			entry := models.NormalizedTransaction{
				Kind:      types.KindAcquisition,
				Timestamp: ts,
				Mint:      in.mint,
				Quantity:  in.amount,
				Signature: tx.Signature,
			}
			if len(tokensIn) == 1 {
				// A fee-sized SOL outflow rides along with most swaps; only
				// an outflow above the fee ceiling is the actual cash leg.
				if solOut.GreaterThan(n.feeMaxNative) {
					entry.SwapLeg = types.SOLMint
					entry.NativeValue = solOut
				} else if stableOut.GreaterThan(n.dustEpsilon) {
					entry.SwapLeg = types.USDCMint
					entry.StableValueUSD = stableOut
				}
			}
			entries = append(entries, entry)
		}

	case len(tokensOut) > 0 && len(tokensIn) == 0:
		// Tokens left the wallet. With a native or stable inflow this is a
		// sell; without one it is a bare transfer-out priced best-effort.
		for _, out := range tokensOut {
			entry := models.NormalizedTransaction{
				Kind:      types.KindDisposal,
				Timestamp: ts,
				Mint:      out.mint,
				Quantity:  out.amount,
				Signature: tx.Signature,
			}
			if len(tokensOut) == 1 {
				// Rent refunds show up as tiny inflows; only an inflow above
				// the fee ceiling counts as sale proceeds in SOL.
				if solIn.GreaterThan(n.feeMaxNative) {
					entry.SwapLeg = types.SOLMint
					entry.NativeValue = solIn
				} else if stableIn.GreaterThan(n.dustEpsilon) {
					entry.SwapLeg = types.USDCMint
					entry.StableValueUSD = stableIn
				}
			}
			entries = append(entries, entry)
		}

	default:
		// Multi-token in and out in one transaction (aggregator routes,
		// LP operations). Matching legs reliably is not possible from
		// balance changes alone; skip rather than guess basis pairs.
		logging.WithFields(map[string]interface{}{
			"signature": tx.Signature,
			"in":        len(tokensIn),
			"out":       len(tokensOut),
		}).Debug("Skipping multi-leg transaction")
	}

	return entries
}

// NormalizeAll converts an ordered raw transaction stream
func (n *Normalizer) NormalizeAll(txs []models.RawTransaction) []models.NormalizedTransaction {
	var entries []models.NormalizedTransaction
	for i := range txs {
		entries = append(entries, n.Normalize(&txs[i])...)
	}
	return entries
}

// nativeChange returns the wallet's net native balance change in SOL
func (n *Normalizer) nativeChange(tx *models.RawTransaction) decimal.Decimal {
	for _, account := range tx.AccountData {
		if account.Account == n.wallet {
			return decimal.New(account.NativeBalanceChange, 0).
				Div(decimal.New(types.LamportsPerSOL, 0))
		}
	}
	return decimal.Zero
}

type tokenFlow struct {
	mint   string
	amount decimal.Decimal
}

// tokenFlows aggregates per-mint token movements attributable to the wallet,
// separating stablecoin cash legs and dropping dust.
func (n *Normalizer) tokenFlows(tx *models.RawTransaction) (in, out []tokenFlow, stableIn, stableOut decimal.Decimal) {
	inByMint := make(map[string]decimal.Decimal)
	outByMint := make(map[string]decimal.Decimal)
	stableIn = decimal.Zero
	stableOut = decimal.Zero

	// Deterministic iteration: preserve first-seen mint order.
	var inOrder, outOrder []string

	for _, transfer := range tx.TokenTransfers {
		amount := transfer.TokenAmount
		if amount.LessThanOrEqual(n.dustEpsilon) {
			continue
		}

		incoming := transfer.ToUserAccount == n.wallet
		outgoing := transfer.FromUserAccount == n.wallet
		if !incoming && !outgoing {
			continue
		}

		if transfer.Mint == types.SOLMint {
			// Wrapped SOL is already reflected in the native change.
			continue
		}

		if _, stable := n.stableMints[transfer.Mint]; stable {
			if incoming {
				stableIn = stableIn.Add(amount)
			} else {
				stableOut = stableOut.Add(amount)
			}
			continue
		}

		if incoming {
			if _, ok := inByMint[transfer.Mint]; !ok {
				inOrder = append(inOrder, transfer.Mint)
			}
			inByMint[transfer.Mint] = inByMint[transfer.Mint].Add(amount)
		} else {
			if _, ok := outByMint[transfer.Mint]; !ok {
				outOrder = append(outOrder, transfer.Mint)
			}
			outByMint[transfer.Mint] = outByMint[transfer.Mint].Add(amount)
		}
	}

	for _, mint := range inOrder {
		in = append(in, tokenFlow{mint: mint, amount: inByMint[mint]})
	}
	for _, mint := range outOrder {
		out = append(out, tokenFlow{mint: mint, amount: outByMint[mint]})
	}

	return in, out, stableIn, stableOut
}
