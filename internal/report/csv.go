package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/types"
)

// eventColumns is the fixed event table header. Column order is a
// compatibility contract with downstream spreadsheet tooling; append-only.
var eventColumns = []string{
	"Date", "Token", "Quantity", "Proceeds", "Cost Basis", "Gain/Loss",
	"Holding Period (days)", "Classification", "Tax Owed", "Flags",
}

// WriteCSV renders the tabular export: a header summary block, the taxable
// event table, and a per-token subtotal block, in that fixed section order.
func WriteCSV(w io.Writer, r *models.Report) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"TAX REPORT SUMMARY"},
		{"Wallet", r.Wallet},
		{"Accounting Method", string(r.Method)},
		{"Tax Region", string(r.Region)},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Total Proceeds", money(r.TotalProceeds)},
		{"Total Cost Basis", money(r.TotalCostBasis)},
		{"Net Gain/Loss", money(r.NetGain)},
		{"Short-term Net Gain", money(r.Summary.ShortTermNetGain)},
		{"Long-term Net Gain", money(r.Summary.LongTermNetGain)},
		{"Exemption Applied", money(r.Summary.ExemptionApplied)},
		{"Estimated Tax", money(r.Summary.TotalTaxUSD)},
		{"Taxable Events", strconv.Itoa(r.EventCount)},
		{},
		{"TAXABLE EVENTS"},
		eventColumns,
	}

	for i := range r.Events {
		rows = append(rows, eventRow(&r.Events[i]))
	}

	rows = append(rows,
		[]string{},
		[]string{"GAINS/LOSSES BY TOKEN"},
		[]string{"Token", "Invested", "Proceeds", "Gain/Loss", "ROI %", "Events"},
	)
	for _, t := range r.Tokens {
		rows = append(rows, []string{
			displayToken(t.Symbol, t.Mint),
			money(t.Invested),
			money(t.Proceeds),
			money(t.GainUSD),
			t.ROIPercent.StringFixed(1),
			strconv.Itoa(t.EventCount),
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// eventRow renders one taxable event in the fixed column order
func eventRow(e *models.TaxableEvent) []string {
	flags := make([]string, 0, len(e.Flags))
	for _, f := range e.Flags {
		flags = append(flags, string(f))
	}

	return []string{
		e.DisposedAt.Format("2006-01-02"),
		displayToken(e.Symbol, e.Mint),
		e.Quantity.StringFixed(4),
		money(e.ProceedsUSD),
		money(e.CostBasisUSD),
		money(e.GainUSD),
		strconv.Itoa(e.HoldingDays),
		classificationLabel(e.Classification),
		money(e.TaxOwedUSD),
		strings.Join(flags, ";"),
	}
}

func classificationLabel(c types.Classification) string {
	if c == types.ClassificationLongTerm {
		return "Long-term"
	}
	return "Short-term"
}

func displayToken(symbol, mint string) string {
	if symbol != "" {
		return symbol
	}
	return mint
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
