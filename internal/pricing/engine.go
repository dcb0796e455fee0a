package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Line describes a proposal line item used for totals calculation.
type Line struct {
	Qty       float64
	UnitPrice float64
}

// Summary aggregates the computed totals of a proposal.
type Summary struct {
	TotalBeforeDiscount float64 `json:"totalBeforeDiscount"`
	DiscountPercent     float64 `json:"discountPercent"`
	GrandTotal          float64 `json:"grandTotal"`
	Currency            string  `json:"currency"`
}

// LineTotal returns qty × unit price rounded to two decimals.
func LineTotal(l Line) float64 {
	return toFloat(lineAmount(l).Round(2))
}

// TotalBeforeDiscount sums qty × unit price over all lines and rounds the result
// half-up to two decimals. An empty list totals zero.
func TotalBeforeDiscount(lines []Line) float64 {
	return toFloat(sumLines(lines).Round(2))
}

// TotalAfterDiscount applies discountPercent to total and rounds to two decimals.
// A nil discount is treated as zero; values outside 0..100 are clamped.
// A non-finite total is returned unchanged.
func TotalAfterDiscount(total float64, discountPercent *float64) float64 {
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return total
	}
	rate := clampPercent(discountPercent).Div(hundred)
	return toFloat(decimal.NewFromFloat(total).Mul(one.Sub(rate)).Round(2))
}

// RawTotal is the unrounded sum of qty × unit price as a float64. It is +Inf
// when the sum does not fit, which callers use to reject the input.
func RawTotal(lines []Line) float64 {
	return toFloat(sumLines(lines))
}

// ComputeGrandTotal composes TotalBeforeDiscount and TotalAfterDiscount.
func ComputeGrandTotal(lines []Line, discountPercent *float64) float64 {
	return TotalAfterDiscount(TotalBeforeDiscount(lines), discountPercent)
}

// Summarize returns the totals breakdown reported alongside rendered documents.
func Summarize(lines []Line, discountPercent *float64, currency string) Summary {
	before := TotalBeforeDiscount(lines)
	return Summary{
		TotalBeforeDiscount: before,
		DiscountPercent:     toFloat(clampPercent(discountPercent)),
		GrandTotal:          TotalAfterDiscount(before, discountPercent),
		Currency:            currency,
	}
}

func sumLines(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(lineAmount(l))
	}
	return sum
}

func lineAmount(l Line) decimal.Decimal {
	return decimal.NewFromFloat(l.Qty).Mul(decimal.NewFromFloat(l.UnitPrice))
}

func clampPercent(p *float64) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	d := decimal.NewFromFloat(*p)
	if d.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
