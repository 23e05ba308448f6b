package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Dealer is a B2B customer account.
type Dealer struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Code      string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Dealer) TableName() string { return "dealers" }

// Variant is a sellable SKU of a product.
type Variant struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ProductID  snowflake.ID      `json:"product_id" gorm:"not null;index"`
	SKU        string            `json:"sku" gorm:"type:text;not null;uniqueIndex"`
	Name       string            `json:"name" gorm:"type:text;not null"`
	Active     bool              `json:"active" gorm:"not null;default:true"`
	Categories []VariantCategory `json:"categories,omitempty" gorm:"foreignKey:VariantID"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Variant) TableName() string { return "variants" }

type VariantCategory struct {
	VariantID  snowflake.ID `json:"variant_id" gorm:"primaryKey;autoIncrement:false"`
	CategoryID snowflake.ID `json:"category_id" gorm:"primaryKey;autoIncrement:false"`
}

func (VariantCategory) TableName() string { return "variant_categories" }

// DealerPrice is one price-list row. DealerID nil marks the base list price;
// a dealer-specific row overrides it.
type DealerPrice struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	DealerID  *snowflake.ID   `json:"dealer_id,omitempty" gorm:"index:ux_dealer_price,unique"`
	VariantID snowflake.ID    `json:"variant_id" gorm:"not null;index:ux_dealer_price,unique"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(28,10);not null"`
	Currency  string          `json:"currency" gorm:"type:text;not null;default:'USD'"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DealerPrice) TableName() string { return "dealer_prices" }

// LineContext is the hydrated pricing input for one variant and dealer.
type LineContext struct {
	VariantID   snowflake.ID
	ProductID   snowflake.ID
	CategoryIDs []snowflake.ID
	UnitPrice   decimal.Decimal
	Currency    string
}
