package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// round2 rounds half away from zero to two decimal places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// percentOf returns part/whole × 100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// sqrt computes the square root with Newton's method, seeded from float64.
// Non-positive inputs return zero.
func sqrt(d decimal.Decimal) decimal.Decimal {
	if !d.IsPositive() {
		return decimal.Zero
	}
	two := decimal.NewFromInt(2)
	x := decimal.NewFromFloat(math.Sqrt(d.InexactFloat64()))
	if !x.IsPositive() {
		x = d
	}
	for i := 0; i < 20; i++ {
		next := x.Add(d.Div(x)).Div(two)
		if next.Equal(x) {
			break
		}
		x = next
	}
	return x
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return sum(values).Div(decimal.NewFromInt(int64(len(values))))
}
