package ledger

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/types"
)

// op is one randomized ledger operation
type op struct {
	Acquire  bool
	MintIdx  int
	Quantity int64
	Cost     int64
	DayDelta int
}

var opGen = gen.Struct(reflect.TypeOf(op{}), map[string]gopter.Gen{
	"Acquire":  gen.Bool(),
	"MintIdx":  gen.IntRange(0, 2),
	"Quantity": gen.Int64Range(1, 1_000_000),
	"Cost":     gen.Int64Range(0, 10_000),
	"DayDelta": gen.IntRange(0, 5),
})

// TestConservationProperty checks that for every token, after any operation
// sequence, sum(remaining) = acquired - disposed, never negative, with
// synthetic shortfall lots counted as acquisitions.
func TestConservationProperty(t *testing.T) {
	mints := []string{
		"AAA1111111111111111111111111111111111111111",
		"BBB1111111111111111111111111111111111111111",
		"CCC1111111111111111111111111111111111111111",
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("sum(remaining) equals acquired minus disposed", prop.ForAll(
		func(method bool, ops []op) bool {
			m := types.MethodFIFO
			if method {
				m = types.MethodLIFO
			}
			l, err := New(m, 365)
			if err != nil {
				return false
			}

			at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for _, o := range ops {
				at = at.AddDate(0, 0, o.DayDelta)
				mint := mints[o.MintIdx]
				qty := decimal.NewFromInt(o.Quantity)

				if o.Acquire {
					if err := l.RecordAcquisition(mint, at, qty, decimal.NewFromInt(o.Cost), false); err != nil {
						return false
					}
				} else {
					if _, err := l.RecordDisposal(mint, at, qty, decimal.NewFromInt(o.Cost), false, "sig"); err != nil {
						return false
					}
				}
			}

			for _, mint := range l.Mints() {
				remaining := l.RemainingQty(mint)
				if remaining.IsNegative() {
					return false
				}
				if !remaining.Equal(l.AcquiredQty(mint).Sub(l.DisposedQty(mint))) {
					return false
				}
			}
			return true
		},
		gen.Bool(),
		gen.SliceOf(opGen),
	))

	properties.TestingRun(t)
}
