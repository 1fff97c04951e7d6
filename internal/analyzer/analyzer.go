// Package analyzer derives trading-pattern statistics from taxable events and
// open lots: win rate, PnL distribution, activity timeline, top performers,
// current holdings and hold-time breakdown.
package analyzer

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/models"
)

// breakEvenThreshold excludes rounding noise from the win-rate denominator.
// Token PnL within plus or minus one cent counts as break-even.
var breakEvenThreshold = decimal.NewFromFloat(0.01)

// timelineDays bounds the activity timeline to the most recent days
const timelineDays = 30

// excludedSymbols are cash-equivalent tokens excluded from performance stats
var excludedSymbols = map[string]struct{}{
	"USDC": {}, "USDT": {}, "DAI": {}, "BUSD": {}, "UST": {}, "FRAX": {}, "SOL": {},
}

// Analysis is the full trading-pattern result for one wallet
type Analysis struct {
	Wallet          string             `json:"wallet"`
	TimePeriodHours int                `json:"timePeriodHours,omitempty"`
	Stats           Stats              `json:"stats"`
	Timeline        []TimelineEntry    `json:"activityTimeline"`
	PnLDistribution []PnLBucket        `json:"pnlDistribution"`
	TopPerformers   []TokenPerformance `json:"topPerformers"`
	WorstPerformers []TokenPerformance `json:"worstPerformers"`
	Holdings        []Holding          `json:"currentHoldings"`
	HoldTimes       HoldTimeAnalysis   `json:"holdTimeAnalysis"`
	AnalyzedAt      time.Time          `json:"analyzedAt"`
}

// Stats summarizes per-token trading outcomes
type Stats struct {
	TotalTrades   int             `json:"totalTrades"`
	WinningTrades int             `json:"winningTrades"`
	LosingTrades  int             `json:"losingTrades"`
	WinRate       decimal.Decimal `json:"winRate"`
	TotalPnL      decimal.Decimal `json:"totalPnl"`
	AvgGain       decimal.Decimal `json:"avgGain"`
	AvgLoss       decimal.Decimal `json:"avgLoss"`
	LargestWin    decimal.Decimal `json:"largestWin"`
	LargestLoss   decimal.Decimal `json:"largestLoss"`
	AvgHoldDays   decimal.Decimal `json:"avgHoldDays"`
	TokensTraded  int             `json:"tokensTraded"`
}

// TimelineEntry is one day of trading activity
type TimelineEntry struct {
	Date  string          `json:"date"`
	Count int             `json:"count"`
	PnL   decimal.Decimal `json:"pnl"`
}

// PnLBucket is one range of the per-trade PnL histogram
type PnLBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// TokenPerformance is one token's aggregate realized outcome
type TokenPerformance struct {
	Symbol     string          `json:"symbol"`
	Mint       string          `json:"mint"`
	PnL        decimal.Decimal `json:"pnl"`
	Trades     int             `json:"trades"`
	ROIPercent decimal.Decimal `json:"roi"`
}

// Holding is one token position still open after all processed disposals
type Holding struct {
	Symbol    string          `json:"symbol"`
	Mint      string          `json:"mint"`
	Amount    decimal.Decimal `json:"amount"`
	CostBasis decimal.Decimal `json:"costBasis"`
}

// HoldTimeAnalysis buckets realized trades by holding period
type HoldTimeAnalysis struct {
	AvgHoldDays    decimal.Decimal `json:"avgHoldDays"`
	MedianHoldDays decimal.Decimal `json:"medianHoldDays"`
	QuickTrades    int             `json:"quickTrades"`    // under 1 day
	SwingTrades    int             `json:"swingTrades"`    // 1 to 7 days
	PositionTrades int             `json:"positionTrades"` // 7 to 30 days
	LongHolds      int             `json:"longHolds"`      // over 30 days
}

// Analyzer computes trading-pattern analytics over a report's events and
// lots. An optional rolling time window (in hours, from now) restricts the
// events considered; zero means all time.
type Analyzer struct {
	wallet          string
	timePeriodHours int
	now             func() time.Time
}

// New creates an analyzer for a wallet. timePeriodHours of zero disables the
// rolling window.
func New(wallet string, timePeriodHours int) *Analyzer {
	return &Analyzer{
		wallet:          wallet,
		timePeriodHours: timePeriodHours,
		now:             time.Now,
	}
}

// Analyze computes the full analysis from taxable events and open lots
func (a *Analyzer) Analyze(events []models.TaxableEvent, openLots []models.Lot) *Analysis {
	trades := a.filter(events)

	analysis := &Analysis{
		Wallet:          a.wallet,
		TimePeriodHours: a.timePeriodHours,
		Stats:           computeStats(trades),
		Timeline:        timeline(trades),
		PnLDistribution: pnlDistribution(trades),
		Holdings:        holdings(openLots),
		HoldTimes:       holdTimes(trades),
		AnalyzedAt:      a.now().UTC(),
	}
	analysis.TopPerformers, analysis.WorstPerformers = performers(trades)

	return analysis
}

// filter drops cash-equivalent tokens and events outside the rolling window
func (a *Analyzer) filter(events []models.TaxableEvent) []models.TaxableEvent {
	var cutoff time.Time
	if a.timePeriodHours > 0 {
		cutoff = a.now().Add(-time.Duration(a.timePeriodHours) * time.Hour)
	}

	var kept []models.TaxableEvent
	for i := range events {
		if _, excluded := excludedSymbols[events[i].Symbol]; excluded {
			continue
		}
		if !cutoff.IsZero() && events[i].DisposedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, events[i])
	}
	return kept
}

// computeStats counts wins and losses at token granularity: a token whose
// aggregate PnL sits inside the break-even band is excluded from the win-rate
// denominator.
func computeStats(trades []models.TaxableEvent) Stats {
	stats := Stats{
		WinRate:     decimal.Zero,
		TotalPnL:    decimal.Zero,
		AvgGain:     decimal.Zero,
		AvgLoss:     decimal.Zero,
		LargestWin:  decimal.Zero,
		LargestLoss: decimal.Zero,
		AvgHoldDays: decimal.Zero,
	}
	if len(trades) == 0 {
		return stats
	}

	pnlByMint := make(map[string]decimal.Decimal)
	holdTotal := decimal.Zero
	for i := range trades {
		pnlByMint[trades[i].Mint] = pnlByMint[trades[i].Mint].Add(trades[i].GainUSD)
		holdTotal = holdTotal.Add(decimal.NewFromInt(int64(trades[i].HoldingDays)))
	}

	winSum, lossSum := decimal.Zero, decimal.Zero
	var winners, losers int
	for _, pnl := range pnlByMint {
		stats.TotalPnL = stats.TotalPnL.Add(pnl)
		switch {
		case pnl.GreaterThan(breakEvenThreshold):
			winners++
			winSum = winSum.Add(pnl)
			stats.LargestWin = decimal.Max(stats.LargestWin, pnl)
		case pnl.LessThan(breakEvenThreshold.Neg()):
			losers++
			lossSum = lossSum.Add(pnl)
			stats.LargestLoss = decimal.Min(stats.LargestLoss, pnl)
		}
	}

	stats.TotalTrades = len(trades)
	stats.WinningTrades = winners
	stats.LosingTrades = losers
	stats.TokensTraded = len(pnlByMint)
	if decided := winners + losers; decided > 0 {
		stats.WinRate = decimal.NewFromInt(int64(winners)).
			Div(decimal.NewFromInt(int64(decided))).
			Mul(decimal.NewFromInt(100))
	}
	if winners > 0 {
		stats.AvgGain = winSum.Div(decimal.NewFromInt(int64(winners)))
	}
	if losers > 0 {
		stats.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(losers)))
	}
	stats.AvgHoldDays = holdTotal.Div(decimal.NewFromInt(int64(len(trades))))

	return stats
}

// timeline groups trades by UTC day, keeping the most recent entries
func timeline(trades []models.TaxableEvent) []TimelineEntry {
	if len(trades) == 0 {
		return nil
	}

	byDate := make(map[string]*TimelineEntry)
	for i := range trades {
		key := trades[i].DisposedAt.UTC().Format("2006-01-02")
		entry, ok := byDate[key]
		if !ok {
			entry = &TimelineEntry{Date: key, PnL: decimal.Zero}
			byDate[key] = entry
		}
		entry.Count++
		entry.PnL = entry.PnL.Add(trades[i].GainUSD)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > timelineDays {
		dates = dates[len(dates)-timelineDays:]
	}

	entries := make([]TimelineEntry, 0, len(dates))
	for _, date := range dates {
		entries = append(entries, *byDate[date])
	}
	return entries
}

// pnlBucket pairs a histogram label with its inclusion bounds
type pnlBucket struct {
	label string
	match func(decimal.Decimal) bool
}

var pnlBuckets = []pnlBucket{
	{"<-$100", func(x decimal.Decimal) bool { return x.LessThan(decimal.NewFromInt(-100)) }},
	{"-$100 to -$50", between(-100, -50)},
	{"-$50 to -$10", between(-50, -10)},
	{"-$10 to $0", between(-10, 0)},
	{"$0 to $10", between(0, 10)},
	{"$10 to $50", between(10, 50)},
	{"$50 to $100", between(50, 100)},
	{">$100", func(x decimal.Decimal) bool { return x.GreaterThanOrEqual(decimal.NewFromInt(100)) }},
}

func between(lo, hi int64) func(decimal.Decimal) bool {
	low, high := decimal.NewFromInt(lo), decimal.NewFromInt(hi)
	return func(x decimal.Decimal) bool {
		return x.GreaterThanOrEqual(low) && x.LessThan(high)
	}
}

// pnlDistribution builds the per-trade PnL histogram, omitting empty buckets
func pnlDistribution(trades []models.TaxableEvent) []PnLBucket {
	if len(trades) == 0 {
		return nil
	}

	var out []PnLBucket
	for _, bucket := range pnlBuckets {
		count := 0
		for i := range trades {
			if bucket.match(trades[i].GainUSD) {
				count++
			}
		}
		if count > 0 {
			out = append(out, PnLBucket{Range: bucket.label, Count: count})
		}
	}
	return out
}

// performers returns the five best and five worst tokens by realized PnL
func performers(trades []models.TaxableEvent) (top, worst []TokenPerformance) {
	byMint := make(map[string]*TokenPerformance)
	costByMint := make(map[string]decimal.Decimal)
	var order []string

	for i := range trades {
		t := &trades[i]
		perf, ok := byMint[t.Mint]
		if !ok {
			perf = &TokenPerformance{Symbol: t.Symbol, Mint: t.Mint, PnL: decimal.Zero, ROIPercent: decimal.Zero}
			byMint[t.Mint] = perf
			order = append(order, t.Mint)
		}
		perf.PnL = perf.PnL.Add(t.GainUSD)
		perf.Trades++
		costByMint[t.Mint] = costByMint[t.Mint].Add(t.CostBasisUSD)
	}

	all := make([]TokenPerformance, 0, len(order))
	for _, mint := range order {
		perf := byMint[mint]
		if cost := costByMint[mint]; cost.IsPositive() {
			perf.ROIPercent = perf.PnL.Div(cost).Mul(decimal.NewFromInt(100))
		}
		all = append(all, *perf)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].PnL.Equal(all[j].PnL) {
			return all[i].PnL.GreaterThan(all[j].PnL)
		}
		return all[i].Mint < all[j].Mint
	})

	if len(all) > 5 {
		top = all[:5]
	} else {
		top = all
	}

	n := len(all)
	for i := n - 1; i >= 0 && len(worst) < 5; i-- {
		worst = append(worst, all[i])
	}
	return top, worst
}

// holdings summarizes open lots per mint, largest cost basis first
func holdings(openLots []models.Lot) []Holding {
	byMint := make(map[string]*Holding)
	var order []string

	for i := range openLots {
		lot := &openLots[i]
		h, ok := byMint[lot.Mint]
		if !ok {
			h = &Holding{Mint: lot.Mint, Amount: decimal.Zero, CostBasis: decimal.Zero}
			byMint[lot.Mint] = h
			order = append(order, lot.Mint)
		}
		h.Amount = h.Amount.Add(lot.RemainingQty)
		h.CostBasis = h.CostBasis.Add(lot.CostBasis())
	}

	out := make([]Holding, 0, len(order))
	for _, mint := range order {
		if byMint[mint].Amount.IsPositive() {
			out = append(out, *byMint[mint])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CostBasis.Equal(out[j].CostBasis) {
			return out[i].CostBasis.GreaterThan(out[j].CostBasis)
		}
		return out[i].Mint < out[j].Mint
	})
	return out
}

// holdTimes buckets trades by holding period
func holdTimes(trades []models.TaxableEvent) HoldTimeAnalysis {
	analysis := HoldTimeAnalysis{
		AvgHoldDays:    decimal.Zero,
		MedianHoldDays: decimal.Zero,
	}
	if len(trades) == 0 {
		return analysis
	}

	days := make([]int, 0, len(trades))
	total := 0
	for i := range trades {
		d := trades[i].HoldingDays
		days = append(days, d)
		total += d

		switch {
		case d < 1:
			analysis.QuickTrades++
		case d < 7:
			analysis.SwingTrades++
		case d < 30:
			analysis.PositionTrades++
		default:
			analysis.LongHolds++
		}
	}

	sort.Ints(days)
	analysis.AvgHoldDays = decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(days))))
	mid := len(days) / 2
	if len(days)%2 == 1 {
		analysis.MedianHoldDays = decimal.NewFromInt(int64(days[mid]))
	} else {
		analysis.MedianHoldDays = decimal.NewFromInt(int64(days[mid-1] + days[mid])).Div(decimal.NewFromInt(2))
	}

	return analysis
}
