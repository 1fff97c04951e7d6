package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/tax"
	"github.com/wallet-taxscan/internal/types"
)

const (
	mintA = "AAAA111111111111111111111111111111111111111"
	mintB = "BBBB111111111111111111111111111111111111111"
)

var (
	acquiredAt = time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	disposedAt = time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func event(mint, proceeds, cost string, classification types.Classification, flags ...types.EventFlag) models.TaxableEvent {
	p, c := dec(proceeds), dec(cost)
	return models.TaxableEvent{
		Mint:           mint,
		DisposedAt:     disposedAt,
		AcquiredAt:     acquiredAt,
		Quantity:       dec("10"),
		ProceedsUSD:    p,
		CostBasisUSD:   c,
		GainUSD:        p.Sub(c),
		HoldingDays:    406,
		Classification: classification,
		Flags:          flags,
		Signature:      "sig-" + mint[:4],
	}
}

func usFederal(t *testing.T) tax.Region {
	t.Helper()
	region, err := tax.GetRegion(types.RegionUSFederal)
	require.NoError(t, err)
	return region
}

func buildFixture(t *testing.T) *models.Report {
	t.Helper()
	return Build(BuildInput{
		RunID:  "run-1",
		Wallet: "WaLLet111111111111111111111111111111111111",
		Method: types.MethodFIFO,
		Region: usFederal(t),
		Events: []models.TaxableEvent{
			event(mintA, "500", "300", types.ClassificationLongTerm),
			event(mintA, "100", "150", types.ClassificationShortTerm, types.FlagCostBasisEstimated),
			event(mintB, "50", "0", types.ClassificationShortTerm, types.FlagUnmatchedAcquisition),
		},
		TransactionCount: 42,
		WindowTruncated:  true,
		Metadata: func(mint string) models.TokenMetadata {
			if mint == mintA {
				return models.TokenMetadata{Mint: mint, Symbol: "AAA"}
			}
			return models.TokenMetadata{Mint: mint, Symbol: mint[:8]}
		},
	})
}

func TestBuild_Totals(t *testing.T) {
	r := buildFixture(t)

	assert.True(t, r.TotalProceeds.Equal(dec("650")))
	assert.True(t, r.TotalCostBasis.Equal(dec("450")))
	assert.True(t, r.NetGain.Equal(dec("200")))
	assert.Equal(t, 3, r.EventCount)
	assert.Equal(t, 42, r.TransactionCount)
	assert.True(t, r.WindowTruncated)

	// Summary nets per classification: long 200, short -50+50 = 0.
	assert.True(t, r.Summary.LongTermNetGain.Equal(dec("200")))
	assert.True(t, r.Summary.ShortTermNetGain.IsZero())
	assert.True(t, r.Summary.TotalTaxUSD.Equal(dec("40")))
}

func TestBuild_EventAnnotations(t *testing.T) {
	r := buildFixture(t)

	require.Len(t, r.Events, 3)
	assert.Equal(t, "AAA", r.Events[0].Symbol)
	// Long-term gain of 200 at the 20% rate.
	assert.True(t, r.Events[0].TaxOwedUSD.Equal(dec("40")))
	// Losses owe nothing.
	assert.True(t, r.Events[1].TaxOwedUSD.IsZero())
}

func TestBuild_TokenBreakdownOrderedByAbsoluteGain(t *testing.T) {
	r := buildFixture(t)

	require.Len(t, r.Tokens, 2)
	// Token A nets 200-50=150 gain, token B 50; A sorts first.
	assert.Equal(t, mintA, r.Tokens[0].Mint)
	assert.True(t, r.Tokens[0].GainUSD.Equal(dec("150")))
	assert.Equal(t, 2, r.Tokens[0].EventCount)
	assert.Equal(t, mintB, r.Tokens[1].Mint)

	// ROI = 150 / 450 invested = 33.3...%
	assert.Equal(t, "33.3", r.Tokens[0].ROIPercent.StringFixed(1))
}

func TestBuild_CaveatAggregation(t *testing.T) {
	r := buildFixture(t)

	require.Len(t, r.Caveats, 3)
	assert.Equal(t, types.FlagCostBasisEstimated, r.Caveats[0].Flag)
	assert.Equal(t, 1, r.Caveats[0].Count)
	assert.Equal(t, types.FlagUnmatchedAcquisition, r.Caveats[1].Flag)
	assert.Equal(t, types.FlagLimitedWindow, r.Caveats[2].Flag)
}

func TestBuild_NoEvents(t *testing.T) {
	r := Build(BuildInput{
		RunID:  "run-2",
		Wallet: "w",
		Method: types.MethodLIFO,
		Region: usFederal(t),
	})

	assert.True(t, r.TotalProceeds.IsZero())
	assert.True(t, r.NetGain.IsZero())
	assert.Empty(t, r.Tokens)
	assert.Empty(t, r.Caveats)
	assert.True(t, r.Summary.TotalTaxUSD.IsZero())
}

func TestWriteCSV_SectionsAndColumns(t *testing.T) {
	r := buildFixture(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	// Sections have differing field counts; disable the uniform-width check.
	reader := csv.NewReader(strings.NewReader(buf.String()))
	reader.FieldsPerRecord = -1
	_, err := reader.ReadAll()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "TAX REPORT SUMMARY", lines[0])

	var headerLine string
	for _, line := range lines {
		if strings.HasPrefix(line, "Date,") {
			headerLine = line
			break
		}
	}
	assert.Equal(t, strings.Join(eventColumns, ","), headerLine)

	assert.Contains(t, buf.String(), "TAXABLE EVENTS")
	assert.Contains(t, buf.String(), "GAINS/LOSSES BY TOKEN")
	assert.Contains(t, buf.String(), "Estimated Tax,40.00")
	assert.Contains(t, buf.String(), "cost_basis_estimated")
}

func TestExports_ShareTotals(t *testing.T) {
	r := buildFixture(t)

	var csvBuf, txtBuf bytes.Buffer
	require.NoError(t, WriteCSV(&csvBuf, r))
	require.NoError(t, WriteNarrative(&txtBuf, r, usFederal(t)))

	// Both exports carry the figures of the same Report instance.
	assert.Contains(t, csvBuf.String(), "Net Gain/Loss,200.00")
	assert.Contains(t, txtBuf.String(), "NET CAPITAL GAIN/LOSS: $200.00")
	assert.Contains(t, csvBuf.String(), "Total Proceeds,650.00")
	assert.Contains(t, txtBuf.String(), "Total Proceeds: $650.00")
	assert.Contains(t, txtBuf.String(), "Estimated tax liability: $40.00")
}

func TestWriteNarrative_Sections(t *testing.T) {
	r := buildFixture(t)

	var buf bytes.Buffer
	require.NoError(t, WriteNarrative(&buf, r, usFederal(t)))
	out := buf.String()

	for _, section := range []string{
		"SOLANA WALLET TAX REPORT",
		"TAX CONFIGURATION",
		"TAX SUMMARY",
		"TOKEN PERFORMANCE",
		"TAXABLE EVENTS",
		"CAVEATS",
		"IMPORTANT DISCLAIMER",
	} {
		assert.Contains(t, out, section)
	}

	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "Long-term")
	assert.Contains(t, out, "Short-term rate: 37.0%")
}

func TestDisplayToken_FallsBackToMint(t *testing.T) {
	assert.Equal(t, "AAA", displayToken("AAA", mintA))
	assert.Equal(t, mintA, displayToken("", mintA))
}
