package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, discount *Discount) error
	Save(ctx context.Context, db *gorm.DB, discount *Discount) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Discount, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Discount, error)
	ListActive(ctx context.Context, db *gorm.DB, now time.Time) ([]Discount, error)
	List(ctx context.Context, db *gorm.DB) ([]Discount, error)
	ListEndingWithin(ctx context.Context, db *gorm.DB, from, to time.Time) ([]Discount, error)
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	// TryIncrementUsage performs a compare-and-increment of usage_count
	// against usage_limit. It returns false when the limit is already
	// reached, leaving the row untouched.
	TryIncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
