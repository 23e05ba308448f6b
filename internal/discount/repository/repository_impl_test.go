package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var repoNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// One node for the whole package: per-seed nodes can mint the same ID twice
// inside a millisecond.
var repoNode = func() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&discountdomain.Discount{},
		&discountdomain.DiscountVariant{},
		&discountdomain.DiscountCategory{},
		&discountdomain.DiscountDealer{},
	))
	return db
}

func seed(t *testing.T, db *gorm.DB, mutate func(d *discountdomain.Discount)) *discountdomain.Discount {
	t.Helper()

	d := &discountdomain.Discount{
		ID:        repoNode.Generate(),
		Name:      "promo",
		Type:      discountdomain.Percentage,
		Value:     decimal.NewFromInt(10),
		StartDate: repoNow.Add(-time.Hour),
		EndDate:   repoNow.Add(time.Hour),
		IsActive:  true,
		AutoApply: true,
		Status:    discountdomain.StatusActive,
	}
	if mutate != nil {
		mutate(d)
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

func TestTryIncrementUsage_CountsUpToLimit(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	limit := int64(2)
	d := seed(t, db, func(d *discountdomain.Discount) { d.UsageLimit = &limit })

	for i := 0; i < 2; i++ {
		ok, err := repo.TryIncrementUsage(ctx, db, d.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := repo.TryIncrementUsage(ctx, db, d.ID)
	require.NoError(t, err)
	assert.False(t, ok, "third redemption must be refused")

	row, err := repo.FindByID(ctx, db, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), row.UsageCount)
}

func TestTryIncrementUsage_UnlimitedNeverRefuses(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	d := seed(t, db, nil)

	for i := 0; i < 5; i++ {
		ok, err := repo.TryIncrementUsage(ctx, db, d.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestListActive_Filters(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	live := seed(t, db, nil)
	seed(t, db, func(d *discountdomain.Discount) { d.Status = discountdomain.StatusDeleted })
	seed(t, db, func(d *discountdomain.Discount) { d.IsActive = false })
	seed(t, db, func(d *discountdomain.Discount) { d.EndDate = repoNow.Add(-time.Minute) })
	seed(t, db, func(d *discountdomain.Discount) {
		limit := int64(1)
		d.UsageLimit = &limit
		d.UsageCount = 1
	})

	rows, err := repo.ListActive(ctx, db, repoNow)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, live.ID, rows[0].ID)
}

func TestListActive_PreloadsScopes(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()

	seed(t, db, func(d *discountdomain.Discount) {
		d.Variants = []discountdomain.DiscountVariant{{DiscountID: d.ID, VariantID: 42}}
		d.Dealers = []discountdomain.DiscountDealer{{DiscountID: d.ID, DealerID: 7}}
	})

	rows, err := repo.ListActive(context.Background(), db, repoNow)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Variants, 1)
	assert.Equal(t, snowflake.ID(42), rows[0].Variants[0].VariantID)
	require.Len(t, rows[0].Dealers, 1)
}

func TestFindByCode_IgnoresDeleted(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	code := "GONE"
	seed(t, db, func(d *discountdomain.Discount) {
		d.DiscountCode = &code
		d.Status = discountdomain.StatusDeleted
	})

	row, err := repo.FindByCode(ctx, db, code)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestListEndingWithin(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	inside := seed(t, db, func(d *discountdomain.Discount) { d.EndDate = repoNow.Add(48 * time.Hour) })
	seed(t, db, func(d *discountdomain.Discount) { d.EndDate = repoNow.Add(200 * time.Hour) })

	rows, err := repo.ListEndingWithin(ctx, db, repoNow, repoNow.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, inside.ID, rows[0].ID)
}

func TestSoftDelete_MissingRow(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()

	err := repo.SoftDelete(context.Background(), db, 999, repoNow)
	assert.ErrorIs(t, err, discountdomain.ErrNotFound)
}
