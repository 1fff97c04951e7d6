package tax

import (
	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/types"
)

// ComputeLiability computes the tax summary for a list of taxable events
// under a region's rules. Pure function: events are never mutated.
//
// Netting is per classification: losses offset gains of the same
// classification. A net loss crosses into the other classification only when
// the region allows it. The annual exemption is subtracted once from the net
// taxable gain, consuming the higher-rated short-term portion first.
func ComputeLiability(events []models.TaxableEvent, region Region) models.TaxSummary {
	summary := models.TaxSummary{
		Region:           region.ID,
		ShortTermNetGain: decimal.Zero,
		LongTermNetGain:  decimal.Zero,
		ExemptionApplied: decimal.Zero,
		TaxableGain:      decimal.Zero,
		ShortTermTaxUSD:  decimal.Zero,
		LongTermTaxUSD:   decimal.Zero,
		TotalTaxUSD:      decimal.Zero,
	}

	for i := range events {
		if events[i].Classification == types.ClassificationLongTerm {
			summary.LongTermNetGain = summary.LongTermNetGain.Add(events[i].GainUSD)
		} else {
			summary.ShortTermNetGain = summary.ShortTermNetGain.Add(events[i].GainUSD)
		}
	}

	taxableShort := summary.ShortTermNetGain
	taxableLong := summary.LongTermNetGain

	if region.AllowCrossOffset {
		if taxableShort.IsNegative() && taxableLong.IsPositive() {
			taxableLong = taxableLong.Add(taxableShort)
			taxableShort = decimal.Zero
		} else if taxableLong.IsNegative() && taxableShort.IsPositive() {
			taxableShort = taxableShort.Add(taxableLong)
			taxableLong = decimal.Zero
		}
	}

	// A residual net loss in a classification owes nothing; loss carryforward
	// across years is out of scope.
	taxableShort = decimal.Max(taxableShort, decimal.Zero)
	taxableLong = decimal.Max(taxableLong, decimal.Zero)

	if region.AnnualExemption.IsPositive() {
		remaining := region.AnnualExemption

		applied := decimal.Min(remaining, taxableShort)
		taxableShort = taxableShort.Sub(applied)
		remaining = remaining.Sub(applied)
		summary.ExemptionApplied = applied

		applied = decimal.Min(remaining, taxableLong)
		taxableLong = taxableLong.Sub(applied)
		summary.ExemptionApplied = summary.ExemptionApplied.Add(applied)
	}

	summary.TaxableGain = taxableShort.Add(taxableLong)
	summary.ShortTermTaxUSD = taxableShort.Mul(region.ShortTermRate)
	summary.LongTermTaxUSD = taxableLong.Mul(region.LongTermRate)
	summary.TotalTaxUSD = summary.ShortTermTaxUSD.Add(summary.LongTermTaxUSD)

	return summary
}

// EventTax returns the per-event tax estimate: the event's gain times the
// rate for its classification, zero for losses. Exemptions and netting apply
// only at summary level; per-event figures are indicative.
func EventTax(event *models.TaxableEvent, region Region) decimal.Decimal {
	if !event.GainUSD.IsPositive() {
		return decimal.Zero
	}
	return event.GainUSD.Mul(region.Rate(event.Classification))
}

// AnnotateEvents returns a copy of the events with TaxOwedUSD filled in per
// EventTax. The input slice is not modified.
func AnnotateEvents(events []models.TaxableEvent, region Region) []models.TaxableEvent {
	annotated := make([]models.TaxableEvent, len(events))
	copy(annotated, events)
	for i := range annotated {
		annotated[i].TaxOwedUSD = EventTax(&annotated[i], region)
	}
	return annotated
}
