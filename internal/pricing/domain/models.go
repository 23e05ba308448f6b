package domain

import (
	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/shopspring/decimal"
)

// LineItem is the ephemeral, per-calculation pricing context for one order
// line. Scope ids are carried by value so the engine never walks an entity
// graph during calculation.
type LineItem struct {
	VariantID   snowflake.ID    `json:"variant_id"`
	ProductID   snowflake.ID    `json:"product_id"`
	CategoryIDs []snowflake.ID  `json:"category_ids,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal returns unit price times quantity, unrounded.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

type PriceOrderRequest struct {
	OrderID  string       `json:"order_id,omitempty"`
	DealerID snowflake.ID `json:"dealer_id"`
	Items    []LineItem   `json:"items"`

	// DiscountCode switches the engine to explicit mode: only the coded
	// campaign is considered, bypassing auto-selection.
	DiscountCode string `json:"discount_code,omitempty"`

	// Force-include/exclude lists, used by re-pricing and admin tooling.
	IncludeDiscountIDs []snowflake.ID `json:"include_discount_ids,omitempty"`
	ExcludeDiscountIDs []snowflake.ID `json:"exclude_discount_ids,omitempty"`
}

type LineItemRequest struct {
	DealerID     snowflake.ID `json:"dealer_id"`
	Item         LineItem     `json:"item"`
	DiscountCode string       `json:"discount_code,omitempty"`
}

// ApplicabilityResult is the per-discount verdict for one line.
type ApplicabilityResult struct {
	Discount                 *discountdomain.Discount `json:"-"`
	CalculatedDiscountAmount decimal.Decimal          `json:"calculated_discount_amount"`
	DiscountedUnitPrice      decimal.Decimal          `json:"discounted_unit_price"`
	MinimumOrderMet          bool                     `json:"minimum_order_met"`
	MaximumDiscountApplied   bool                     `json:"maximum_discount_applied"`
	IsApplicable             bool                     `json:"is_applicable"`
}

// AppliedDiscount is the display record of a discount that contributed to a
// line total.
type AppliedDiscount struct {
	DiscountID snowflake.ID                `json:"discount_id"`
	Name       string                      `json:"name"`
	Type       discountdomain.DiscountType `json:"type"`
	Value      decimal.Decimal             `json:"value"`
	Amount     decimal.Decimal             `json:"amount"`
	Stackable  bool                        `json:"stackable"`
}

type LineBreakdown struct {
	VariantID           snowflake.ID      `json:"variant_id"`
	Quantity            int64             `json:"quantity"`
	UnitPrice           decimal.Decimal   `json:"unit_price"`
	LineSubtotal        decimal.Decimal   `json:"line_subtotal"`
	DiscountAmount      decimal.Decimal   `json:"discount_amount"`
	LineTotal           decimal.Decimal   `json:"line_total"`
	DiscountedUnitPrice decimal.Decimal   `json:"discounted_unit_price"`
	BestDiscountID      *snowflake.ID     `json:"best_discount_id,omitempty"`
	Applied             []AppliedDiscount `json:"applied,omitempty"`
}

type OrderPricingResult struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Lines              []LineBreakdown `json:"lines"`
	AppliedDiscountIDs []snowflake.ID  `json:"applied_discount_ids,omitempty"`
	Warnings           []string        `json:"warnings,omitempty"`
}
