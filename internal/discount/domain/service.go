package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	IsActive    *bool           `json:"is_active"`

	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount"`

	UsageLimit            *int64 `json:"usage_limit"`
	UsageLimitPerCustomer *int64 `json:"usage_limit_per_customer"`

	DiscountCode *string `json:"discount_code"`
	AutoApply    *bool   `json:"auto_apply"`
	Priority     int32   `json:"priority"`
	Stackable    bool    `json:"stackable"`

	VariantIDs  []string `json:"variant_ids"`
	CategoryIDs []string `json:"category_ids"`
	DealerIDs   []string `json:"dealer_ids"`
}

type UpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Value       *decimal.Decimal `json:"value"`
	StartDate   *time.Time       `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	IsActive    *bool            `json:"is_active"`

	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount"`

	UsageLimit            *int64 `json:"usage_limit"`
	UsageLimitPerCustomer *int64 `json:"usage_limit_per_customer"`

	AutoApply *bool  `json:"auto_apply"`
	Priority  *int32 `json:"priority"`
	Stackable *bool  `json:"stackable"`
}

type Response struct {
	ID          snowflake.ID    `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	IsActive    bool            `json:"is_active"`

	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`

	UsageLimit            *int64 `json:"usage_limit,omitempty"`
	UsageCount            int64  `json:"usage_count"`
	UsageLimitPerCustomer *int64 `json:"usage_limit_per_customer,omitempty"`

	DiscountCode *string `json:"discount_code,omitempty"`
	AutoApply    bool    `json:"auto_apply"`
	Priority     int32   `json:"priority"`
	Stackable    bool    `json:"stackable"`

	Scope       ScopeKind      `json:"scope"`
	Validity    ValidityStatus `json:"validity"`
	VariantIDs  []snowflake.ID `json:"variant_ids,omitempty"`
	CategoryIDs []snowflake.ID `json:"category_ids,omitempty"`
	DealerIDs   []snowflake.ID `json:"dealer_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrNotFound               = errors.New("not_found")
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidType            = errors.New("invalid_type")
	ErrInvalidValue           = errors.New("invalid_value")
	ErrPercentageOutOfRange   = errors.New("percentage_out_of_range")
	ErrInvalidDateRange       = errors.New("invalid_date_range")
	ErrConflictingScope       = errors.New("conflicting_scope")
	ErrInvalidPriority        = errors.New("invalid_priority")
	ErrInvalidMinimumOrder    = errors.New("invalid_minimum_order_amount")
	ErrInvalidMaximumDiscount = errors.New("invalid_maximum_discount_amount")
	ErrInvalidUsageLimit      = errors.New("invalid_usage_limit")
	ErrDuplicateCode          = errors.New("duplicate_discount_code")
	ErrInvalidScopeID         = errors.New("invalid_scope_id")
)
