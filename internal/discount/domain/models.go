package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type DiscountType string

var (
	Percentage  DiscountType = "PERCENTAGE"
	FixedAmount DiscountType = "FIXED_AMOUNT"
)

type DiscountStatus string

var (
	StatusActive  DiscountStatus = "ACTIVE"
	StatusDeleted DiscountStatus = "DELETED"
)

// ValidityStatus is derived from the campaign state at a point in time. It is
// never stored.
type ValidityStatus string

var (
	ValidityExpired        ValidityStatus = "EXPIRED"
	ValidityNotYetStarted  ValidityStatus = "NOT_YET_STARTED"
	ValidityInactive       ValidityStatus = "INACTIVE"
	ValidityUsageExhausted ValidityStatus = "USAGE_EXHAUSTED"
	ValidityActive         ValidityStatus = "ACTIVE"
)

// ScopeKind classifies what a campaign targets. Exactly one kind holds per
// campaign; the dealer restriction is an orthogonal filter on top of it.
type ScopeKind string

var (
	ScopeGeneral  ScopeKind = "GENERAL"
	ScopeCategory ScopeKind = "CATEGORY"
	ScopeVariant  ScopeKind = "VARIANT"
)

// Discount is a named campaign applied to dealer order lines.
type Discount struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:text;not null"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	Type        DiscountType    `json:"type" gorm:"type:text;not null"`
	Value       decimal.Decimal `json:"value" gorm:"type:numeric(28,10);not null"`
	StartDate   time.Time       `json:"start_date" gorm:"not null;index"`
	EndDate     time.Time       `json:"end_date" gorm:"not null;index"`
	IsActive    bool            `json:"is_active" gorm:"not null;default:true"`

	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount,omitempty" gorm:"type:numeric(28,10)"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty" gorm:"type:numeric(28,10)"`

	UsageLimit            *int64 `json:"usage_limit,omitempty"`
	UsageCount            int64  `json:"usage_count" gorm:"not null;default:0"`
	UsageLimitPerCustomer *int64 `json:"usage_limit_per_customer,omitempty"`

	DiscountCode *string `json:"discount_code,omitempty" gorm:"type:text;uniqueIndex"`
	AutoApply    bool    `json:"auto_apply" gorm:"not null;default:true"`
	Priority     int32   `json:"priority" gorm:"not null;default:0"`
	Stackable    bool    `json:"stackable" gorm:"not null;default:false"`

	Status DiscountStatus `json:"status" gorm:"type:text;not null;index"`

	Variants   []DiscountVariant  `json:"variants,omitempty" gorm:"foreignKey:DiscountID"`
	Categories []DiscountCategory `json:"categories,omitempty" gorm:"foreignKey:DiscountID"`
	Dealers    []DiscountDealer   `json:"dealers,omitempty" gorm:"foreignKey:DiscountID"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Discount) TableName() string { return "discounts" }

// DiscountVariant pins a campaign to a sellable variant.
type DiscountVariant struct {
	DiscountID snowflake.ID `json:"discount_id" gorm:"primaryKey;autoIncrement:false"`
	VariantID  snowflake.ID `json:"variant_id" gorm:"primaryKey;autoIncrement:false"`
}

func (DiscountVariant) TableName() string { return "discount_variants" }

// DiscountCategory pins a campaign to a product category.
type DiscountCategory struct {
	DiscountID snowflake.ID `json:"discount_id" gorm:"primaryKey;autoIncrement:false"`
	CategoryID snowflake.ID `json:"category_id" gorm:"primaryKey;autoIncrement:false"`
}

func (DiscountCategory) TableName() string { return "discount_categories" }

// DiscountDealer restricts a campaign to a dealer account. No rows means the
// campaign is open to all dealers.
type DiscountDealer struct {
	DiscountID snowflake.ID `json:"discount_id" gorm:"primaryKey;autoIncrement:false"`
	DealerID   snowflake.ID `json:"dealer_id" gorm:"primaryKey;autoIncrement:false"`
}

func (DiscountDealer) TableName() string { return "discount_dealers" }

// Scope returns the single scope classification of the campaign.
func (d *Discount) Scope() ScopeKind {
	switch {
	case len(d.Variants) > 0:
		return ScopeVariant
	case len(d.Categories) > 0:
		return ScopeCategory
	default:
		return ScopeGeneral
	}
}

// Validity derives the campaign state at the given instant. Expiry wins over
// every other condition, matching how admins reason about a campaign.
func (d *Discount) Validity(now time.Time) ValidityStatus {
	switch {
	case now.After(d.EndDate):
		return ValidityExpired
	case now.Before(d.StartDate):
		return ValidityNotYetStarted
	case !d.IsActive:
		return ValidityInactive
	case !d.HasUsageLeft():
		return ValidityUsageExhausted
	default:
		return ValidityActive
	}
}

// WithinWindow reports whether now falls inside [StartDate, EndDate].
func (d *Discount) WithinWindow(now time.Time) bool {
	return !now.Before(d.StartDate) && !now.After(d.EndDate)
}

// HasUsageLeft reports whether the total redemption cap still permits use.
func (d *Discount) HasUsageLeft() bool {
	return d.UsageLimit == nil || d.UsageCount < *d.UsageLimit
}

// AppliesToVariant reports whether the scope covers the given variant.
func (d *Discount) AppliesToVariant(variantID snowflake.ID, categoryIDs []snowflake.ID) bool {
	switch d.Scope() {
	case ScopeGeneral:
		return true
	case ScopeVariant:
		for _, v := range d.Variants {
			if v.VariantID == variantID {
				return true
			}
		}
		return false
	default:
		for _, c := range d.Categories {
			for _, id := range categoryIDs {
				if c.CategoryID == id {
					return true
				}
			}
		}
		return false
	}
}

// AppliesToDealer reports whether the dealer restriction admits the dealer.
func (d *Discount) AppliesToDealer(dealerID snowflake.ID) bool {
	if len(d.Dealers) == 0 {
		return true
	}
	for _, row := range d.Dealers {
		if row.DealerID == dealerID {
			return true
		}
	}
	return false
}
