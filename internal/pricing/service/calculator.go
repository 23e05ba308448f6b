package service

import (
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/meditrade/pricing/internal/pricing/domain"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// calculate evaluates a single discount against a single line. orderSubtotal
// is the undiscounted subtotal of the whole order: the minimum-order
// threshold is an order-level gate, not a per-line one.
//
// All intermediate arithmetic is exact; rounding to two decimal places
// happens exactly once, on the final amounts.
func calculate(d *discountdomain.Discount, item domain.LineItem, orderSubtotal decimal.Decimal) domain.ApplicabilityResult {
	res := domain.ApplicabilityResult{
		Discount:                 d,
		CalculatedDiscountAmount: decimal.Zero,
		DiscountedUnitPrice:      item.UnitPrice,
		MinimumOrderMet:          true,
	}

	if d.MinimumOrderAmount != nil && orderSubtotal.LessThan(*d.MinimumOrderAmount) {
		res.MinimumOrderMet = false
		return res
	}

	lineSubtotal := item.Subtotal()

	var amount decimal.Decimal
	switch d.Type {
	case discountdomain.Percentage:
		amount = lineSubtotal.Mul(d.Value).Div(oneHundred)
	case discountdomain.FixedAmount:
		// A fixed discount never exceeds the line it applies to.
		amount = d.Value
		if amount.GreaterThan(lineSubtotal) {
			amount = lineSubtotal
		}
	default:
		return res
	}

	if d.MaximumDiscountAmount != nil && amount.GreaterThan(*d.MaximumDiscountAmount) {
		amount = *d.MaximumDiscountAmount
		res.MaximumDiscountApplied = true
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}

	discountedUnit := lineSubtotal.Sub(amount).Div(decimal.NewFromInt(item.Quantity))
	if discountedUnit.IsNegative() {
		discountedUnit = decimal.Zero
	}

	res.CalculatedDiscountAmount = amount.Round(2)
	res.DiscountedUnitPrice = discountedUnit.Round(2)
	res.IsApplicable = true
	return res
}
