package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/meditrade/pricing/internal/clock"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	pkgdb "github.com/meditrade/pricing/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) *Service {
	return &Service{
		log:   p.Log.Named("pricingevent.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

var (
	_ eventdomain.Recorder   = (*Service)(nil)
	_ eventdomain.Repository = (*Service)(nil)
)

func (s *Service) Record(ctx context.Context, db *gorm.DB, eventType string, payload map[string]any, dedupeKey *string) error {
	event := eventdomain.PricingEvent{
		ID:        s.genID.Generate(),
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
		DedupeKey: dedupeKey,
		CreatedAt: s.clock.Now(),
	}
	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		// A duplicate dedupe key means the fact was already recorded.
		if pkgdb.IsDuplicateKeyErr(err) {
			s.log.Debug("pricing event deduped",
				zap.String("event_type", eventType),
				zap.Stringp("dedupe_key", dedupeKey),
			)
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) ListUnpublished(ctx context.Context, db *gorm.DB, limit int) ([]eventdomain.PricingEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []eventdomain.PricingEvent
	err := db.WithContext(ctx).
		Where("published = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *Service) MarkPublished(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&eventdomain.PricingEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"published":    true,
			"published_at": at,
		}).Error
}

// DiscountPayload is the fact shape shared by every discount event: enough
// for the notification subsystem to render a message without a catalog read.
func DiscountPayload(d *discountdomain.Discount) map[string]any {
	return map[string]any{
		"discount_id":   d.ID.String(),
		"name":          d.Name,
		"type":          string(d.Type),
		"value":         d.Value.String(),
		"end_date":      d.EndDate.UTC().Format(time.RFC3339),
		"discount_code": stringOrEmpty(d.DiscountCode),
	}
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
