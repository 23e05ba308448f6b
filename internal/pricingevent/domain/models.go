// Package domain contains the outbox rows for pricing domain facts.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types emitted by the pricing engine. Delivery (mail, push, in-app)
// belongs to the notification subsystem; this core only records the fact.
const (
	EventDiscountCreated  = "discount.created"
	EventDiscountUpdated  = "discount.updated"
	EventDiscountDeleted  = "discount.deleted"
	EventDiscountApplied  = "discount.applied"
	EventDiscountExpiring = "discount.expiring"
	EventDiscountExpired  = "discount.expired"
)

// PricingEvent is an outbox row written in the same transaction as the state
// change it describes, and published after commit at-least-once.
type PricingEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	EventType   string            `gorm:"type:text;not null;index"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	DedupeKey   *string           `gorm:"type:text;uniqueIndex"`
	Published   bool              `gorm:"not null;default:false;index"`
	PublishedAt *time.Time        `gorm:""`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PricingEvent) TableName() string { return "pricing_events" }

// Recorder appends outbox rows inside the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, db *gorm.DB, eventType string, payload map[string]any, dedupeKey *string) error
}

// Repository is the outbox read/ack side used by the publisher.
type Repository interface {
	ListUnpublished(ctx context.Context, db *gorm.DB, limit int) ([]PricingEvent, error)
	MarkPublished(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error
}

// Notifier is the external delivery port. Implementations must tolerate
// redelivery: publishing is at-least-once.
type Notifier interface {
	Notify(ctx context.Context, event PricingEvent) error
}
