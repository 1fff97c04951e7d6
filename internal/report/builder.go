// Package report aggregates taxable events into the final report and renders
// its tabular and narrative exports. Both exports are built from the same
// Report instance so their totals cannot diverge.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/tax"
	"github.com/wallet-taxscan/internal/types"
)

// BuildInput carries everything the builder needs for one calculation run
type BuildInput struct {
	RunID            string
	Wallet           string
	Method           types.AccountingMethod
	Region           tax.Region
	Events           []models.TaxableEvent
	OpenLots         []models.Lot
	TransactionCount int
	WindowTruncated  bool

	// Metadata resolves display symbol and name for a mint
	Metadata func(mint string) models.TokenMetadata
}

// Build produces the aggregated report: totals, tax summary, per-token
// breakdown sorted by absolute gain, the full ordered event list with
// per-event tax annotations, and caveats for every degradation encountered.
func Build(in BuildInput) *models.Report {
	events := tax.AnnotateEvents(in.Events, in.Region)
	for i := range events {
		if in.Metadata != nil {
			events[i].Symbol = in.Metadata(events[i].Mint).Symbol
		}
	}

	r := &models.Report{
		RunID:            in.RunID,
		Wallet:           in.Wallet,
		Method:           in.Method,
		Region:           in.Region.ID,
		GeneratedAt:      time.Now().UTC(),
		TotalProceeds:    decimal.Zero,
		TotalCostBasis:   decimal.Zero,
		NetGain:          decimal.Zero,
		EventCount:       len(events),
		Summary:          tax.ComputeLiability(events, in.Region),
		Events:           events,
		OpenLots:         in.OpenLots,
		TransactionCount: in.TransactionCount,
		WindowTruncated:  in.WindowTruncated,
	}

	for i := range events {
		r.TotalProceeds = r.TotalProceeds.Add(events[i].ProceedsUSD)
		r.TotalCostBasis = r.TotalCostBasis.Add(events[i].CostBasisUSD)
		r.NetGain = r.NetGain.Add(events[i].GainUSD)
	}

	r.Tokens = tokenBreakdown(events)
	r.Caveats = caveats(events, in.WindowTruncated)

	return r
}

// tokenBreakdown subtotals events per mint, ordered by absolute gain
// descending with mint as the tie-break.
func tokenBreakdown(events []models.TaxableEvent) []models.TokenBreakdown {
	byMint := make(map[string]*models.TokenBreakdown)
	var order []string

	for i := range events {
		e := &events[i]
		b, ok := byMint[e.Mint]
		if !ok {
			b = &models.TokenBreakdown{
				Mint:       e.Mint,
				Symbol:     e.Symbol,
				Invested:   decimal.Zero,
				Proceeds:   decimal.Zero,
				GainUSD:    decimal.Zero,
				ROIPercent: decimal.Zero,
			}
			byMint[e.Mint] = b
			order = append(order, e.Mint)
		}
		b.Invested = b.Invested.Add(e.CostBasisUSD)
		b.Proceeds = b.Proceeds.Add(e.ProceedsUSD)
		b.GainUSD = b.GainUSD.Add(e.GainUSD)
		b.EventCount++
	}

	tokens := make([]models.TokenBreakdown, 0, len(order))
	for _, mint := range order {
		b := byMint[mint]
		if b.Invested.IsPositive() {
			b.ROIPercent = b.GainUSD.Div(b.Invested).Mul(decimal.NewFromInt(100))
		}
		tokens = append(tokens, *b)
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		gi, gj := tokens[i].GainUSD.Abs(), tokens[j].GainUSD.Abs()
		if !gi.Equal(gj) {
			return gi.GreaterThan(gj)
		}
		return tokens[i].Mint < tokens[j].Mint
	})

	return tokens
}

// caveats aggregates per-event flags into report-level notices
func caveats(events []models.TaxableEvent, truncated bool) []models.Caveat {
	counts := make(map[types.EventFlag]int)
	for i := range events {
		seen := make(map[types.EventFlag]struct{})
		for _, flag := range events[i].Flags {
			if _, dup := seen[flag]; dup {
				continue
			}
			seen[flag] = struct{}{}
			counts[flag]++
		}
	}

	var out []models.Caveat
	if n := counts[types.FlagCostBasisEstimated]; n > 0 {
		out = append(out, models.Caveat{
			Flag:    types.FlagCostBasisEstimated,
			Message: fmt.Sprintf("%d event(s) use estimated values because no historical price was available", n),
			Count:   n,
		})
	}
	if n := counts[types.FlagUnmatchedAcquisition]; n > 0 {
		out = append(out, models.Caveat{
			Flag:    types.FlagUnmatchedAcquisition,
			Message: fmt.Sprintf("%d event(s) dispose more than the observed acquisitions; the excess carries a zero cost basis", n),
			Count:   n,
		})
	}
	if truncated {
		out = append(out, models.Caveat{
			Flag:    types.FlagLimitedWindow,
			Message: "transaction history was truncated at the configured limit; earlier acquisitions may be missing",
			Count:   1,
		})
	}
	return out
}
