package service

import (
	"testing"

	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/meditrade/pricing/internal/pricing/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func line(unitPrice string, qty int64) domain.LineItem {
	return domain.LineItem{
		VariantID: 1,
		Quantity:  qty,
		UnitPrice: dec(unitPrice),
	}
}

func TestCalculate_Percentage(t *testing.T) {
	d := &discountdomain.Discount{
		ID:    1,
		Type:  discountdomain.Percentage,
		Value: dec("15"),
	}
	item := line("100", 5)

	res := calculate(d, item, item.Subtotal())

	assert.True(t, res.IsApplicable)
	assert.True(t, res.MinimumOrderMet)
	assert.Equal(t, "75.00", res.CalculatedDiscountAmount.StringFixed(2))
	assert.Equal(t, "85.00", res.DiscountedUnitPrice.StringFixed(2))
}

func TestCalculate_FixedAmountCappedAtLine(t *testing.T) {
	d := &discountdomain.Discount{
		ID:    1,
		Type:  discountdomain.FixedAmount,
		Value: dec("50"),
	}
	item := line("20", 1)

	res := calculate(d, item, item.Subtotal())

	assert.True(t, res.IsApplicable)
	assert.Equal(t, "20.00", res.CalculatedDiscountAmount.StringFixed(2))
	assert.Equal(t, "0.00", res.DiscountedUnitPrice.StringFixed(2))
}

func TestCalculate_MinimumOrderNotMet(t *testing.T) {
	d := &discountdomain.Discount{
		ID:                 1,
		Type:               discountdomain.Percentage,
		Value:              dec("50"),
		MinimumOrderAmount: decPtr("100"),
	}
	item := line("80", 1)

	res := calculate(d, item, dec("80"))

	assert.False(t, res.IsApplicable)
	assert.False(t, res.MinimumOrderMet)
	assert.True(t, res.CalculatedDiscountAmount.IsZero())
	assert.Equal(t, "80", res.DiscountedUnitPrice.String())
}

func TestCalculate_MinimumOrderGateUsesOrderSubtotal(t *testing.T) {
	d := &discountdomain.Discount{
		ID:                 1,
		Type:               discountdomain.Percentage,
		Value:              dec("10"),
		MinimumOrderAmount: decPtr("100"),
	}
	item := line("30", 1)

	// The line alone is below the threshold but the whole order clears it.
	res := calculate(d, item, dec("150"))

	assert.True(t, res.IsApplicable)
	assert.Equal(t, "3.00", res.CalculatedDiscountAmount.StringFixed(2))
}

func TestCalculate_MaximumDiscountCap(t *testing.T) {
	d := &discountdomain.Discount{
		ID:                    1,
		Type:                  discountdomain.Percentage,
		Value:                 dec("50"),
		MaximumDiscountAmount: decPtr("40"),
	}
	item := line("100", 2)

	res := calculate(d, item, item.Subtotal())

	assert.True(t, res.IsApplicable)
	assert.True(t, res.MaximumDiscountApplied)
	assert.Equal(t, "40.00", res.CalculatedDiscountAmount.StringFixed(2))
	assert.Equal(t, "80.00", res.DiscountedUnitPrice.StringFixed(2))
}

func TestCalculate_CapNotReached(t *testing.T) {
	d := &discountdomain.Discount{
		ID:                    1,
		Type:                  discountdomain.Percentage,
		Value:                 dec("10"),
		MaximumDiscountAmount: decPtr("500"),
	}
	item := line("100", 2)

	res := calculate(d, item, item.Subtotal())

	assert.False(t, res.MaximumDiscountApplied)
	assert.Equal(t, "20.00", res.CalculatedDiscountAmount.StringFixed(2))
}

func TestCalculate_RoundsHalfUpOnce(t *testing.T) {
	d := &discountdomain.Discount{
		ID:    1,
		Type:  discountdomain.Percentage,
		Value: dec("15"),
	}
	// 33.33 * 15% = 4.9995 -> 5.00 after the single terminal rounding.
	item := line("33.33", 1)

	res := calculate(d, item, item.Subtotal())

	assert.Equal(t, "5.00", res.CalculatedDiscountAmount.StringFixed(2))
	assert.Equal(t, "28.33", res.DiscountedUnitPrice.StringFixed(2))
}

func TestCalculate_HalfCentRoundsUp(t *testing.T) {
	d := &discountdomain.Discount{
		ID:    1,
		Type:  discountdomain.Percentage,
		Value: dec("5"),
	}
	// 10.10 * 5% = 0.505 -> 0.51
	item := line("10.10", 1)

	res := calculate(d, item, item.Subtotal())

	assert.Equal(t, "0.51", res.CalculatedDiscountAmount.StringFixed(2))
}

func TestCalculate_DiscountedUnitPriceNeverNegative(t *testing.T) {
	d := &discountdomain.Discount{
		ID:    1,
		Type:  discountdomain.FixedAmount,
		Value: dec("1000"),
	}
	item := line("10", 3)

	res := calculate(d, item, item.Subtotal())

	assert.Equal(t, "30.00", res.CalculatedDiscountAmount.StringFixed(2))
	assert.Equal(t, "0.00", res.DiscountedUnitPrice.StringFixed(2))
}

func TestCalculate_UnknownTypeNotApplicable(t *testing.T) {
	d := &discountdomain.Discount{
		ID:    1,
		Type:  discountdomain.DiscountType("LOYALTY"),
		Value: dec("10"),
	}
	item := line("100", 1)

	res := calculate(d, item, item.Subtotal())

	assert.False(t, res.IsApplicable)
	assert.True(t, res.CalculatedDiscountAmount.IsZero())
}
