package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/meditrade/pricing/internal/cache"
	"github.com/meditrade/pricing/internal/clock"
	"github.com/meditrade/pricing/internal/config"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	discountrepository "github.com/meditrade/pricing/internal/discount/repository"
	"github.com/meditrade/pricing/internal/pricing/domain"
	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	eventservice "github.com/meditrade/pricing/internal/pricingevent/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type pricingFixture struct {
	svc       domain.Service
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	snapshots cache.DiscountSnapshotCache
}

func newPricingFixture(t *testing.T) *pricingFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&discountdomain.Discount{},
		&discountdomain.DiscountVariant{},
		&discountdomain.DiscountCategory{},
		&discountdomain.DiscountDealer{},
		&eventdomain.PricingEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(testNow)
	events := eventservice.New(eventservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
	})

	snapshots := cache.NewDiscountSnapshotCache()
	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     fakeClock,
		Policies:  config.NewStaticPolicyHolder(config.DefaultPricingPolicy()),
		Discounts: discountrepository.Provide(),
		Snapshots: snapshots,
		Events:    events,
	})

	return &pricingFixture{svc: svc, db: db, node: node, clock: fakeClock, snapshots: snapshots}
}

func (f *pricingFixture) seedDiscount(t *testing.T, mutate func(d *discountdomain.Discount)) *discountdomain.Discount {
	t.Helper()
	d := &discountdomain.Discount{
		ID:        f.node.Generate(),
		Name:      "spring promo",
		Type:      discountdomain.Percentage,
		Value:     dec("10"),
		StartDate: testNow.Add(-24 * time.Hour),
		EndDate:   testNow.Add(24 * time.Hour),
		IsActive:  true,
		AutoApply: true,
		Status:    discountdomain.StatusActive,
	}
	if mutate != nil {
		mutate(d)
	}
	require.NoError(t, f.db.Create(d).Error)
	return d
}

func orderReq(items ...domain.LineItem) domain.PriceOrderRequest {
	return domain.PriceOrderRequest{
		DealerID: 500,
		Items:    items,
	}
}

func TestPriceOrder_SingleLinePercentage(t *testing.T) {
	f := newPricingFixture(t)
	f.seedDiscount(t, func(d *discountdomain.Discount) { d.Value = dec("15") })

	res, err := f.svc.PriceOrder(context.Background(), orderReq(line("100", 5)))
	require.NoError(t, err)

	assert.Equal(t, "500.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "75.00", res.DiscountAmount.StringFixed(2))
	assert.Equal(t, "425.00", res.TotalAmount.StringFixed(2))
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "85.00", res.Lines[0].DiscountedUnitPrice.StringFixed(2))
	require.Len(t, res.AppliedDiscountIDs, 1)
	assert.Empty(t, res.Warnings)
}

func TestPriceOrder_MultiLineAggregation(t *testing.T) {
	f := newPricingFixture(t)
	d := f.seedDiscount(t, func(d *discountdomain.Discount) {
		d.Variants = []discountdomain.DiscountVariant{{DiscountID: d.ID, VariantID: 1}}
	})

	itemA := domain.LineItem{VariantID: 1, Quantity: 2, UnitPrice: dec("50")}
	itemB := domain.LineItem{VariantID: 2, Quantity: 1, UnitPrice: dec("30")}

	res, err := f.svc.PriceOrder(context.Background(), orderReq(itemA, itemB))
	require.NoError(t, err)

	assert.Equal(t, "130.00", res.Subtotal.StringFixed(2))
	// Only the scoped line is discounted.
	assert.Equal(t, "10.00", res.DiscountAmount.StringFixed(2))
	assert.Equal(t, "120.00", res.TotalAmount.StringFixed(2))
	require.NotNil(t, res.Lines[0].BestDiscountID)
	assert.Equal(t, d.ID, *res.Lines[0].BestDiscountID)
	assert.Nil(t, res.Lines[1].BestDiscountID)
}

func TestPriceOrder_ExplicitCode(t *testing.T) {
	f := newPricingFixture(t)
	auto := f.seedDiscount(t, func(d *discountdomain.Discount) { d.Value = dec("20") })
	code := "WELCOME10"
	coded := f.seedDiscount(t, func(d *discountdomain.Discount) {
		d.AutoApply = false
		d.DiscountCode = &code
	})

	req := orderReq(line("100", 1))
	req.DiscountCode = code

	res, err := f.svc.PriceOrder(context.Background(), req)
	require.NoError(t, err)

	// The stronger auto campaign is bypassed entirely.
	require.Len(t, res.AppliedDiscountIDs, 1)
	assert.Equal(t, coded.ID, res.AppliedDiscountIDs[0])
	assert.NotEqual(t, auto.ID, res.AppliedDiscountIDs[0])
	assert.Equal(t, "10.00", res.DiscountAmount.StringFixed(2))
}

func TestPriceOrder_ExplicitCodeSkipsSnapshotRead(t *testing.T) {
	f := newPricingFixture(t)
	code := "WELCOME10"
	f.seedDiscount(t, func(d *discountdomain.Discount) {
		d.AutoApply = false
		d.DiscountCode = &code
	})

	req := orderReq(line("100", 1))
	req.DiscountCode = code

	res, err := f.svc.PriceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	// A cold snapshot stays cold: explicit mode never reads the catalog, so
	// a degraded catalog cannot taint a successful coded order.
	_, warmed := f.snapshots.Get()
	assert.False(t, warmed)
}

func TestPriceOrder_UnknownCode(t *testing.T) {
	f := newPricingFixture(t)

	req := orderReq(line("100", 1))
	req.DiscountCode = "NOPE"

	_, err := f.svc.PriceOrder(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrDiscountCodeNotFound)
}

func TestPriceOrder_Validation(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()

	_, err := f.svc.PriceOrder(ctx, domain.PriceOrderRequest{Items: []domain.LineItem{line("10", 1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidDealer)

	_, err = f.svc.PriceOrder(ctx, orderReq())
	assert.ErrorIs(t, err, domain.ErrNoLineItems)

	_, err = f.svc.PriceOrder(ctx, orderReq(line("10", 0)))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.PriceOrder(ctx, orderReq(domain.LineItem{VariantID: 1, Quantity: 1}))
	assert.ErrorIs(t, err, domain.ErrInvalidUnitPrice)
}

func TestPriceOrder_FailsOpenWhenCatalogUnavailable(t *testing.T) {
	f := newPricingFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&discountdomain.Discount{}))

	res, err := f.svc.PriceOrder(context.Background(), orderReq(line("100", 2)))
	require.NoError(t, err)

	assert.Equal(t, "200.00", res.TotalAmount.StringFixed(2))
	assert.True(t, res.DiscountAmount.IsZero())
	assert.Contains(t, res.Warnings, "discount_catalog_unavailable")
}

func TestCalculateLineItem(t *testing.T) {
	f := newPricingFixture(t)
	f.seedDiscount(t, nil)

	lineRes, err := f.svc.CalculateLineItem(context.Background(), domain.LineItemRequest{
		DealerID: 500,
		Item:     line("40", 2),
	})
	require.NoError(t, err)

	assert.Equal(t, "80.00", lineRes.LineSubtotal.StringFixed(2))
	assert.Equal(t, "8.00", lineRes.DiscountAmount.StringFixed(2))
	assert.Equal(t, "72.00", lineRes.LineTotal.StringFixed(2))
}

func TestCommitOrder_ConsumesUsageAndRecordsEvents(t *testing.T) {
	f := newPricingFixture(t)
	limit := int64(5)
	d := f.seedDiscount(t, func(d *discountdomain.Discount) { d.UsageLimit = &limit })

	req := orderReq(line("100", 1))
	req.OrderID = "ord-1"

	res, err := f.svc.CommitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "90.00", res.TotalAmount.StringFixed(2))

	var reloaded discountdomain.Discount
	require.NoError(t, f.db.First(&reloaded, "id = ?", d.ID).Error)
	assert.Equal(t, int64(1), reloaded.UsageCount)

	var events []eventdomain.PricingEvent
	require.NoError(t, f.db.Find(&events, "event_type = ?", eventdomain.EventDiscountApplied).Error)
	require.Len(t, events, 1)
}

func TestCommitOrder_RequiresOrderID(t *testing.T) {
	f := newPricingFixture(t)

	_, err := f.svc.CommitOrder(context.Background(), orderReq(line("10", 1)))
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)
}

func TestCommitOrder_DropsExhaustedAndReprices(t *testing.T) {
	f := newPricingFixture(t)
	limit := int64(1)
	d := f.seedDiscount(t, func(d *discountdomain.Discount) { d.UsageLimit = &limit })

	// Warm the snapshot while the campaign still has usage left.
	_, err := f.svc.PriceOrder(context.Background(), orderReq(line("100", 1)))
	require.NoError(t, err)

	// Another order consumes the last slot behind this preview's back.
	require.NoError(t, f.db.Model(&discountdomain.Discount{}).
		Where("id = ?", d.ID).
		Update("usage_count", limit).Error)

	req := orderReq(line("100", 1))
	req.OrderID = "ord-2"

	res, err := f.svc.CommitOrder(context.Background(), req)
	require.NoError(t, err)

	// The order commits undiscounted rather than failing.
	assert.Equal(t, "100.00", res.TotalAmount.StringFixed(2))
	assert.True(t, res.DiscountAmount.IsZero())
	assert.Empty(t, res.AppliedDiscountIDs)
	assert.Contains(t, res.Warnings, fmt.Sprintf("discount_usage_exhausted:%d", d.ID))

	var reloaded discountdomain.Discount
	require.NoError(t, f.db.First(&reloaded, "id = ?", d.ID).Error)
	assert.Equal(t, limit, reloaded.UsageCount)
}
