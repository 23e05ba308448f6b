package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service resolves scope membership and per-dealer prices for the pricing
// engine.
type Service interface {
	ResolveLineContext(ctx context.Context, dealerID, variantID snowflake.ID) (*LineContext, error)
	FindDealer(ctx context.Context, dealerID snowflake.ID) (*Dealer, error)
}

var (
	ErrDealerNotFound   = errors.New("dealer_not_found")
	ErrDealerInactive   = errors.New("dealer_inactive")
	ErrVariantNotFound  = errors.New("variant_not_found")
	ErrVariantInactive  = errors.New("variant_inactive")
	ErrPriceNotFound    = errors.New("price_not_found")
	ErrInvalidReference = errors.New("invalid_reference")
)
