package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() discountdomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, discount *discountdomain.Discount) error {
	return db.WithContext(ctx).Create(discount).Error
}

func (r *repository) Save(ctx context.Context, db *gorm.DB, discount *discountdomain.Discount) error {
	return db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(discount).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*discountdomain.Discount, error) {
	var row discountdomain.Discount
	err := r.withScopes(db.WithContext(ctx)).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByCode(ctx context.Context, db *gorm.DB, code string) (*discountdomain.Discount, error) {
	var row discountdomain.Discount
	err := r.withScopes(db.WithContext(ctx)).
		Where("discount_code = ? AND status = ?", code, discountdomain.StatusActive).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListActive returns campaigns that can take part in pricing right now:
// not soft-deleted, activated, inside their window and with usage left.
func (r *repository) ListActive(ctx context.Context, db *gorm.DB, now time.Time) ([]discountdomain.Discount, error) {
	var rows []discountdomain.Discount
	err := r.withScopes(db.WithContext(ctx)).
		Where("status = ?", discountdomain.StatusActive).
		Where("is_active = ?", true).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("usage_limit IS NULL OR usage_count < usage_limit").
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, db *gorm.DB) ([]discountdomain.Discount, error) {
	var rows []discountdomain.Discount
	err := r.withScopes(db.WithContext(ctx)).
		Where("status = ?", discountdomain.StatusActive).
		Order("priority DESC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListEndingWithin(ctx context.Context, db *gorm.DB, from, to time.Time) ([]discountdomain.Discount, error) {
	var rows []discountdomain.Discount
	err := db.WithContext(ctx).
		Where("status = ?", discountdomain.StatusActive).
		Where("is_active = ?", true).
		Where("end_date > ? AND end_date <= ?", from, to).
		Find(&rows).Error
	return rows, err
}

func (r *repository) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	result := db.WithContext(ctx).
		Model(&discountdomain.Discount{}).
		Where("id = ? AND status = ?", id, discountdomain.StatusActive).
		Updates(map[string]any{
			"status":     discountdomain.StatusDeleted,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return discountdomain.ErrNotFound
	}
	return nil
}

// TryIncrementUsage serializes redemption against the usage limit in a single
// statement so concurrent orders cannot oversell a limited campaign.
func (r *repository) TryIncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE discounts
		 SET usage_count = usage_count + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?
		 AND (usage_limit IS NULL OR usage_count < usage_limit)`,
		id, discountdomain.StatusActive,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) withScopes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Variants").
		Preload("Categories").
		Preload("Dealers")
}
