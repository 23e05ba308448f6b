package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidDealer        = errors.New("invalid_dealer")
	ErrNoLineItems          = errors.New("no_line_items")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrInvalidOrderID       = errors.New("invalid_order_id")
	ErrDiscountCodeNotFound = errors.New("discount_code_not_found")

	// ErrCommitRepriceExceeded means usage limits kept racing ahead of the
	// commit across every allowed re-price attempt.
	ErrCommitRepriceExceeded = errors.New("commit_reprice_exceeded")
)

// Service prices orders against the discount catalog.
//
// PriceOrder is a pure preview: it never consumes usage. CommitOrder prices
// and then atomically consumes one usage per applied discount; campaigns
// whose limit is exhausted between preview and commit are dropped and the
// order re-priced, never blocked.
type Service interface {
	PriceOrder(ctx context.Context, req PriceOrderRequest) (*OrderPricingResult, error)
	CalculateLineItem(ctx context.Context, req LineItemRequest) (*LineBreakdown, error)
	CommitOrder(ctx context.Context, req PriceOrderRequest) (*OrderPricingResult, error)
}
