package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/meditrade/pricing/internal/cache"
	"github.com/meditrade/pricing/internal/clock"
	appconfig "github.com/meditrade/pricing/internal/config"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/meditrade/pricing/internal/observability/metrics"
	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	eventservice "github.com/meditrade/pricing/internal/pricingevent/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler requires db, logger, clock and repositories")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Policies  *appconfig.PricingPolicyHolder
	Discounts discountdomain.Repository
	Events    eventdomain.Recorder
	Outbox    eventdomain.Repository
	Notifier  eventdomain.Notifier
	Snapshots cache.DiscountSnapshotCache
	Locker    *Locker          `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
	Config    Config           `optional:"true"`
}

// Scheduler runs the periodic catalog sweeps: warn about campaigns ending
// soon, retire the ones already past their window, and drain the event
// outbox.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	policies  *appconfig.PricingPolicyHolder
	discounts discountdomain.Repository
	events    eventdomain.Recorder
	outbox    eventdomain.Repository
	notifier  eventdomain.Notifier
	snapshots cache.DiscountSnapshotCache
	locker    *Locker
	metrics   *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Policies == nil ||
		p.Discounts == nil || p.Events == nil || p.Outbox == nil || p.Notifier == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		policies:  p.Policies,
		discounts: p.Discounts,
		events:    p.Events,
		outbox:    p.Outbox,
		notifier:  p.Notifier,
		snapshots: p.Snapshots,
		locker:    p.Locker,
		metrics:   p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	token, acquired, err := s.locker.TryLock(ctx, "scheduler:"+name, s.cfg.LockTTL)
	if err != nil {
		s.log.Warn("job lock unavailable", zap.String("job", name), zap.Error(err))
		return nil
	}
	if !acquired {
		return nil
	}
	defer func() {
		if releaseErr := s.locker.Release(context.WithoutCancel(ctx), "scheduler:"+name, token); releaseErr != nil {
			s.log.Warn("job lock release failed", zap.String("job", name), zap.Error(releaseErr))
		}
	}()

	err = fn(ctx)
	s.metrics.RecordSweepRun(ctx, name, err != nil)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "expiring_soon", s.ExpiringSoonSweepJob))
	err = errors.Join(err, s.runJob(parent, "expired", s.ExpiredSweepJob))
	err = errors.Join(err, s.runJob(parent, "publish_events", s.PublishEventsJob))
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpiringSoonSweepJob records one discount.expiring fact per campaign that
// ends inside the configured warning window. The outbox dedupe key keeps the
// sweep idempotent across runs and replicas.
func (s *Scheduler) ExpiringSoonSweepJob(ctx context.Context) error {
	now := s.clock.Now()
	window := s.policies.Get().ExpiringSoonWindow

	discounts, err := s.discounts.ListEndingWithin(ctx, s.db, now, now.Add(window))
	if err != nil {
		return err
	}

	for i := range discounts {
		d := &discounts[i]
		dedupe := fmt.Sprintf("expiring|%d|%d", d.ID, d.EndDate.Unix())
		payload := eventservice.DiscountPayload(d)
		payload["expires_in_hours"] = int(d.EndDate.Sub(now).Hours())
		if err := s.events.Record(ctx, s.db, eventdomain.EventDiscountExpiring, payload, &dedupe); err != nil {
			return err
		}
	}
	return nil
}

// ExpiredSweepJob records discount.expired for campaigns whose window closed
// recently and drops the catalog snapshot so pricing stops serving them.
func (s *Scheduler) ExpiredSweepJob(ctx context.Context) error {
	now := s.clock.Now()

	discounts, err := s.discounts.ListEndingWithin(ctx, s.db, now.Add(-s.cfg.ExpiredLookback), now)
	if err != nil {
		return err
	}
	if len(discounts) == 0 {
		return nil
	}

	for i := range discounts {
		d := &discounts[i]
		dedupe := fmt.Sprintf("expired|%d|%d", d.ID, d.EndDate.Unix())
		if err := s.events.Record(ctx, s.db, eventdomain.EventDiscountExpired, eventservice.DiscountPayload(d), &dedupe); err != nil {
			return err
		}
	}

	if s.snapshots != nil {
		s.snapshots.Invalidate()
	}
	return nil
}

// PublishEventsJob drains unpublished outbox rows to the notifier in id
// order. Rows are acked only after a successful notify, so delivery is
// at-least-once.
func (s *Scheduler) PublishEventsJob(ctx context.Context) error {
	events, err := s.outbox.ListUnpublished(ctx, s.db, s.cfg.PublishBatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := make([]snowflake.ID, 0, len(events))
	for _, event := range events {
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.log.Warn("event publish failed",
				zap.String("event_type", event.EventType),
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
			break
		}
		published = append(published, event.ID)
	}
	if len(published) == 0 {
		return nil
	}

	if err := s.outbox.MarkPublished(ctx, s.db, published, s.clock.Now()); err != nil {
		return err
	}
	s.metrics.RecordEventsPublished(ctx, len(published))
	return nil
}
