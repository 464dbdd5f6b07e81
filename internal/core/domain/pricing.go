// internal/core/domain/pricing.go
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// PricingLine is one priced input line: quantity, the resolved unit price
// (catalog price when the request omitted one) and the resolved discount.
type PricingLine struct {
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// PricedLine carries the computed amounts for one line.
type PricedLine struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// PricingResult aggregates line amounts into the sale totals.
type PricingResult struct {
	Lines         []PricedLine
	GrossTotal    decimal.Decimal
	DiscountTotal decimal.Decimal
	NetTotal      decimal.Decimal
}

// ComputePricing prices every line and sums the sale totals. Monetary values
// round to 2 places at the item level before summation; totals can therefore
// differ by a cent from a round-once-at-the-end computation. That is the
// intended policy.
func ComputePricing(lines []PricingLine) (*PricingResult, error) {
	result := &PricingResult{
		Lines:         make([]PricedLine, 0, len(lines)),
		GrossTotal:    decimal.Zero,
		DiscountTotal: decimal.Zero,
		NetTotal:      decimal.Zero,
	}

	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i)
		}
		if line.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("line %d: unit price cannot be negative", i)
		}
		if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(oneHundred) {
			return nil, fmt.Errorf("line %d: discount must be between 0 and 100", i)
		}

		subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		discount := subtotal.Mul(line.DiscountPercent).Div(oneHundred).Round(2)
		total := subtotal.Sub(discount)
		if total.IsNegative() {
			return nil, fmt.Errorf("line %d: total cannot be negative", i)
		}

		result.Lines = append(result.Lines, PricedLine{
			Subtotal:       subtotal,
			DiscountAmount: discount,
			Total:          total,
		})
		result.GrossTotal = result.GrossTotal.Add(subtotal)
		result.DiscountTotal = result.DiscountTotal.Add(discount)
	}

	result.NetTotal = result.GrossTotal.Sub(result.DiscountTotal)
	if result.NetTotal.IsNegative() {
		return nil, fmt.Errorf("net total cannot be negative")
	}

	return result, nil
}
