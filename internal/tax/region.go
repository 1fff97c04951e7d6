// Package tax models regional capital-gains rules and computes tax liability
// from taxable events. Regions are immutable data; the liability computation
// is a pure function of events and region.
package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/errors"
	"github.com/wallet-taxscan/internal/types"
)

// Region is the immutable tax configuration for one jurisdiction. Rates model
// the highest applicable bracket; the report makes clear these are estimates,
// not filing-grade numbers.
type Region struct {
	ID            types.RegionID
	Name          string
	Currency      string
	ThresholdDays int
	ShortTermRate decimal.Decimal
	LongTermRate  decimal.Decimal

	// AnnualExemption is the tax-free allowance subtracted once from the net
	// taxable gain, in the region's currency treated at par with USD for
	// estimation. Zero when the region has none.
	AnnualExemption decimal.Decimal

	// AllowCrossOffset permits a net loss in one classification to offset
	// the other classification's gains.
	AllowCrossOffset bool

	HasStateTax     bool
	WashSaleApplies bool
	Description     string
}

// registry is the closed set of supported regions
var registry = map[types.RegionID]Region{
	types.RegionUSFederal: {
		ID:            types.RegionUSFederal,
		Name:          "United States (Federal)",
		Currency:      "USD",
		ThresholdDays: 365,
		ShortTermRate: decimal.NewFromFloat(0.37),
		LongTermRate:  decimal.NewFromFloat(0.20),
		HasStateTax:   true,
		Description:   "Federal tax rates (highest bracket)",
	},
	types.RegionUSCalifornia: {
		ID:            types.RegionUSCalifornia,
		Name:          "California, USA",
		Currency:      "USD",
		ThresholdDays: 365,
		// Federal plus 13.3% state tax.
		ShortTermRate: decimal.NewFromFloat(0.503),
		LongTermRate:  decimal.NewFromFloat(0.333),
		HasStateTax:   true,
		Description:   "Federal + California state tax (highest brackets)",
	},
	types.RegionUSNewYork: {
		ID:            types.RegionUSNewYork,
		Name:          "New York, USA",
		Currency:      "USD",
		ThresholdDays: 365,
		// Federal plus 10.9% state tax.
		ShortTermRate: decimal.NewFromFloat(0.479),
		LongTermRate:  decimal.NewFromFloat(0.309),
		HasStateTax:   true,
		Description:   "Federal + New York state tax (highest brackets)",
	},
	types.RegionUSTexas: {
		ID:            types.RegionUSTexas,
		Name:          "Texas, USA",
		Currency:      "USD",
		ThresholdDays: 365,
		ShortTermRate: decimal.NewFromFloat(0.37),
		LongTermRate:  decimal.NewFromFloat(0.20),
		Description:   "Federal tax only (no state income tax)",
	},
	types.RegionUSFlorida: {
		ID:            types.RegionUSFlorida,
		Name:          "Florida, USA",
		Currency:      "USD",
		ThresholdDays: 365,
		ShortTermRate: decimal.NewFromFloat(0.37),
		LongTermRate:  decimal.NewFromFloat(0.20),
		Description:   "Federal tax only (no state income tax)",
	},
	types.RegionUK: {
		ID:       types.RegionUK,
		Name:     "United Kingdom",
		Currency: "GBP",
		// No short/long distinction; a single CGT rate applies.
		ThresholdDays:   0,
		ShortTermRate:   decimal.NewFromFloat(0.20),
		LongTermRate:    decimal.NewFromFloat(0.20),
		AnnualExemption: decimal.NewFromInt(6000),
		Description:     "20% CGT on gains above the annual exemption",
	},
	types.RegionIndia: {
		ID:            types.RegionIndia,
		Name:          "India",
		Currency:      "INR",
		ThresholdDays: 365,
		ShortTermRate: decimal.NewFromFloat(0.30),
		LongTermRate:  decimal.NewFromFloat(0.20),
		Description:   "30% on short-term, 20% on long-term gains",
	},
	types.RegionGermany: {
		ID:            types.RegionGermany,
		Name:          "Germany",
		Currency:      "EUR",
		ThresholdDays: 365,
		ShortTermRate: decimal.NewFromFloat(0.45),
		// Holdings past one year are tax-free.
		LongTermRate: decimal.Zero,
		Description:  "Tax-free if held over one year, otherwise up to 45%",
	},
	types.RegionAustralia: {
		ID:            types.RegionAustralia,
		Name:          "Australia",
		Currency:      "AUD",
		ThresholdDays: 365,
		ShortTermRate: decimal.NewFromFloat(0.45),
		// 50% CGT discount on the highest marginal rate.
		LongTermRate: decimal.NewFromFloat(0.225),
		Description:  "50% discount on gains if held over one year",
	},
	types.RegionCanada: {
		ID:       types.RegionCanada,
		Name:     "Canada",
		Currency: "CAD",
		// No short/long distinction; 50% of gains are taxable income.
		ThresholdDays:   0,
		ShortTermRate:   decimal.NewFromFloat(0.2675),
		LongTermRate:    decimal.NewFromFloat(0.2675),
		HasStateTax:     true,
		WashSaleApplies: true,
		Description:     "50% of gains included in income (highest bracket)",
	},
}

// GetRegion returns the configuration for a region ID
func GetRegion(id types.RegionID) (Region, error) {
	region, ok := registry[id]
	if !ok {
		return Region{}, errors.NewInvalidParameterError("region", "unsupported region: "+string(id))
	}
	return region, nil
}

// Regions returns all supported regions sorted by ID
func Regions() []Region {
	regions := make([]Region, 0, len(registry))
	for _, region := range registry {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].ID < regions[j].ID
	})
	return regions
}

// Rate returns the rate applicable to a classification
func (r Region) Rate(c types.Classification) decimal.Decimal {
	if c == types.ClassificationLongTerm {
		return r.LongTermRate
	}
	return r.ShortTermRate
}
