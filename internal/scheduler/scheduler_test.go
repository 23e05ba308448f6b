package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/meditrade/pricing/internal/cache"
	"github.com/meditrade/pricing/internal/clock"
	appconfig "github.com/meditrade/pricing/internal/config"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	discountrepository "github.com/meditrade/pricing/internal/discount/repository"
	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	eventservice "github.com/meditrade/pricing/internal/pricingevent/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var schedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type captureNotifier struct {
	mu     sync.Mutex
	events []eventdomain.PricingEvent
	fail   bool
}

func (n *captureNotifier) Notify(_ context.Context, event eventdomain.PricingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("delivery down")
	}
	n.events = append(n.events, event)
	return nil
}

type schedFixture struct {
	sched    *Scheduler
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	notifier *captureNotifier
}

func newSchedFixture(t *testing.T) *schedFixture {
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

	fakeClock := clock.NewFakeClock(schedNow)
	events := eventservice.New(eventservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
	})
	notifier := &captureNotifier{}

	sched, err := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     fakeClock,
		Policies:  appconfig.NewStaticPolicyHolder(appconfig.DefaultPricingPolicy()),
		Discounts: discountrepository.Provide(),
		Events:    events,
		Outbox:    events,
		Notifier:  notifier,
		Snapshots: cache.NewDiscountSnapshotCache(),
	})
	require.NoError(t, err)

	return &schedFixture{sched: sched, db: db, node: node, clock: fakeClock, notifier: notifier}
}

func (f *schedFixture) seedDiscount(t *testing.T, end time.Time) *discountdomain.Discount {
	t.Helper()
	d := &discountdomain.Discount{
		ID:        f.node.Generate(),
		Name:      "promo",
		Type:      discountdomain.Percentage,
		Value:     decimal.NewFromInt(10),
		StartDate: schedNow.Add(-30 * 24 * time.Hour),
		EndDate:   end,
		IsActive:  true,
		AutoApply: true,
		Status:    discountdomain.StatusActive,
	}
	require.NoError(t, f.db.Create(d).Error)
	return d
}

func (f *schedFixture) countEvents(t *testing.T, eventType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&eventdomain.PricingEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error)
	return count
}

func TestExpiringSoonSweep_EmitsOncePerCampaign(t *testing.T) {
	f := newSchedFixture(t)

	f.seedDiscount(t, schedNow.Add(48*time.Hour))
	f.seedDiscount(t, schedNow.Add(30*24*time.Hour))

	require.NoError(t, f.sched.ExpiringSoonSweepJob(context.Background()))
	assert.Equal(t, int64(1), f.countEvents(t, eventdomain.EventDiscountExpiring))

	// A second run inside the window stays quiet thanks to the dedupe key.
	require.NoError(t, f.sched.ExpiringSoonSweepJob(context.Background()))
	assert.Equal(t, int64(1), f.countEvents(t, eventdomain.EventDiscountExpiring))
}

func TestExpiredSweep_EmitsAfterWindowCloses(t *testing.T) {
	f := newSchedFixture(t)

	d := f.seedDiscount(t, schedNow.Add(time.Hour))

	require.NoError(t, f.sched.ExpiredSweepJob(context.Background()))
	assert.Equal(t, int64(0), f.countEvents(t, eventdomain.EventDiscountExpired))

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.sched.ExpiredSweepJob(context.Background()))
	assert.Equal(t, int64(1), f.countEvents(t, eventdomain.EventDiscountExpired))

	// Idempotent across repeated runs.
	require.NoError(t, f.sched.ExpiredSweepJob(context.Background()))
	assert.Equal(t, int64(1), f.countEvents(t, eventdomain.EventDiscountExpired))

	var row eventdomain.PricingEvent
	require.NoError(t, f.db.First(&row, "event_type = ?", eventdomain.EventDiscountExpired).Error)
	assert.Equal(t, d.ID.String(), fmt.Sprint(row.Payload["discount_id"]))
}

func TestPublishEvents_MarksDeliveredRows(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	f.seedDiscount(t, schedNow.Add(24*time.Hour))
	require.NoError(t, f.sched.ExpiringSoonSweepJob(ctx))

	require.NoError(t, f.sched.PublishEventsJob(ctx))
	require.Len(t, f.notifier.events, 1)

	var unpublished int64
	require.NoError(t, f.db.Model(&eventdomain.PricingEvent{}).
		Where("published = ?", false).
		Count(&unpublished).Error)
	assert.Equal(t, int64(0), unpublished)

	// Nothing left to deliver on the next run.
	require.NoError(t, f.sched.PublishEventsJob(ctx))
	assert.Len(t, f.notifier.events, 1)
}

func TestPublishEvents_KeepsRowsOnDeliveryFailure(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	f.seedDiscount(t, schedNow.Add(24*time.Hour))
	require.NoError(t, f.sched.ExpiringSoonSweepJob(ctx))

	f.notifier.fail = true
	require.NoError(t, f.sched.PublishEventsJob(ctx))

	var unpublished int64
	require.NoError(t, f.db.Model(&eventdomain.PricingEvent{}).
		Where("published = ?", false).
		Count(&unpublished).Error)
	assert.Equal(t, int64(1), unpublished)

	f.notifier.fail = false
	require.NoError(t, f.sched.PublishEventsJob(ctx))
	require.Len(t, f.notifier.events, 1)
}

func TestRunOnce_RunsAllSweeps(t *testing.T) {
	f := newSchedFixture(t)

	f.seedDiscount(t, schedNow.Add(24*time.Hour))

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(1), f.countEvents(t, eventdomain.EventDiscountExpiring))
	assert.Len(t, f.notifier.events, 1)
}
