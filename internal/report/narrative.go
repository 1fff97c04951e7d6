package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/tax"
)

const lineWidth = 90

// WriteNarrative renders the plain-text export. It presents the same totals
// and the same event ordering as the tabular export; the figures in both come
// from one Report instance.
func WriteNarrative(w io.Writer, r *models.Report, region tax.Region) error {
	var b strings.Builder

	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)

	b.WriteString(rule + "\n")
	b.WriteString("SOLANA WALLET TAX REPORT\n")
	fmt.Fprintf(&b, "Region: %s\n", region.Name)
	fmt.Fprintf(&b, "Wallet: %s\n", r.Wallet)
	fmt.Fprintf(&b, "Accounting Method: %s\n", r.Method)
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(rule + "\n\n")

	b.WriteString("TAX CONFIGURATION\n")
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "Description: %s\n", region.Description)
	fmt.Fprintf(&b, "Short-term rate: %s%%\n", region.ShortTermRate.Mul(hundred).StringFixed(1))
	fmt.Fprintf(&b, "Long-term rate: %s%%\n", region.LongTermRate.Mul(hundred).StringFixed(1))
	if region.AnnualExemption.IsPositive() {
		fmt.Fprintf(&b, "Annual exemption: %s %s\n", region.Currency, region.AnnualExemption.StringFixed(0))
	}
	b.WriteString("\n")

	b.WriteString("TAX SUMMARY\n")
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "Total Taxable Sales: %d\n", r.EventCount)
	fmt.Fprintf(&b, "Total Proceeds: $%s\n", r.TotalProceeds.StringFixed(2))
	fmt.Fprintf(&b, "Total Cost Basis: $%s\n", r.TotalCostBasis.StringFixed(2))
	fmt.Fprintf(&b, "NET CAPITAL GAIN/LOSS: $%s\n", r.NetGain.StringFixed(2))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Short-term net gain: $%s\n", r.Summary.ShortTermNetGain.StringFixed(2))
	fmt.Fprintf(&b, "Long-term net gain: $%s\n", r.Summary.LongTermNetGain.StringFixed(2))
	if r.Summary.ExemptionApplied.IsPositive() {
		fmt.Fprintf(&b, "Exemption applied: $%s\n", r.Summary.ExemptionApplied.StringFixed(2))
	}
	fmt.Fprintf(&b, "Estimated tax liability: $%s\n", r.Summary.TotalTaxUSD.StringFixed(2))
	b.WriteString("\n")

	b.WriteString("TOKEN PERFORMANCE\n")
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "%-15s %-12s %-12s %-12s %-10s %-8s\n", "Token", "Invested", "Proceeds", "Gain/Loss", "ROI", "Events")
	b.WriteString(thin + "\n")
	for _, t := range r.Tokens {
		fmt.Fprintf(&b, "%-15s $%-11s $%-11s $%-11s %8s%% %-8d\n",
			truncate(displayToken(t.Symbol, t.Mint), 15),
			t.Invested.StringFixed(2),
			t.Proceeds.StringFixed(2),
			t.GainUSD.StringFixed(2),
			t.ROIPercent.StringFixed(1),
			t.EventCount,
		)
	}
	b.WriteString("\n")

	b.WriteString("TAXABLE EVENTS\n")
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "%-12s %-12s %-14s %-12s %-12s %-12s %-8s %-11s\n",
		"Date", "Token", "Quantity", "Proceeds", "Cost Basis", "Gain/Loss", "Days", "Term")
	b.WriteString(thin + "\n")
	for i := range r.Events {
		e := &r.Events[i]
		fmt.Fprintf(&b, "%-12s %-12s %-14s $%-11s $%-11s $%-11s %-8d %-11s\n",
			e.DisposedAt.Format("2006-01-02"),
			truncate(displayToken(e.Symbol, e.Mint), 12),
			e.Quantity.StringFixed(4),
			e.ProceedsUSD.StringFixed(2),
			e.CostBasisUSD.StringFixed(2),
			e.GainUSD.StringFixed(2),
			e.HoldingDays,
			classificationLabel(e.Classification),
		)
	}
	b.WriteString("\n")

	if len(r.Caveats) > 0 {
		b.WriteString("CAVEATS\n")
		b.WriteString(thin + "\n")
		for _, c := range r.Caveats {
			fmt.Fprintf(&b, "- %s\n", c.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	b.WriteString("IMPORTANT DISCLAIMER\n")
	b.WriteString(rule + "\n")
	b.WriteString("This report is for informational purposes only and should NOT be considered\n")
	b.WriteString("professional tax advice. Tax laws vary by jurisdiction and change frequently.\n")
	b.WriteString("Please consult with a qualified tax professional or accountant in your region\n")
	b.WriteString("before filing any tax returns or making tax-related decisions.\n")
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

var hundred = decimal.NewFromInt(100)

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
