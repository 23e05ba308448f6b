package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/meditrade/pricing/internal/cache"
	"github.com/meditrade/pricing/internal/clock"
	"github.com/meditrade/pricing/internal/config"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/meditrade/pricing/internal/observability/metrics"
	"github.com/meditrade/pricing/internal/pricing/domain"
	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	warnCatalogUnavailable = "discount_catalog_unavailable"
	warnNegativeTotal      = "order_total_floored_at_zero"
)

// errUsageExhausted aborts the consume transaction so gorm rolls the batch
// back; it never leaves consumeUsage.
var errUsageExhausted = errors.New("usage_exhausted")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Policies  *config.PricingPolicyHolder
	Discounts discountdomain.Repository
	Snapshots cache.DiscountSnapshotCache
	Events    eventdomain.Recorder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	policies  *config.PricingPolicyHolder
	discounts discountdomain.Repository
	snapshots cache.DiscountSnapshotCache
	events    eventdomain.Recorder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pricing.service"),
		clock:     p.Clock,
		policies:  p.Policies,
		discounts: p.Discounts,
		snapshots: p.Snapshots,
		events:    p.Events,
		metrics:   p.Metrics,
	}
}

func (s *Service) PriceOrder(ctx context.Context, req domain.PriceOrderRequest) (*domain.OrderPricingResult, error) {
	result, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOrderPriced(ctx, "preview", len(result.Lines))
	return result, nil
}

func (s *Service) CalculateLineItem(ctx context.Context, req domain.LineItemRequest) (*domain.LineBreakdown, error) {
	result, err := s.price(ctx, domain.PriceOrderRequest{
		DealerID:     req.DealerID,
		Items:        []domain.LineItem{req.Item},
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		return nil, err
	}
	return &result.Lines[0], nil
}

// price runs the full pipeline without side effects: resolve the eligible
// catalog per line, calculate each candidate, pick the winning stack, and
// aggregate order totals.
func (s *Service) price(ctx context.Context, req domain.PriceOrderRequest) (*domain.OrderPricingResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	subtotal := decimal.Zero
	for _, item := range req.Items {
		subtotal = subtotal.Add(item.Subtotal())
	}

	var warnings []string
	var explicit *snowflake.ID
	var catalog []discountdomain.Discount

	if code := strings.TrimSpace(req.DiscountCode); code != "" {
		// Explicit mode bypasses auto-selection, so the snapshot read is
		// skipped entirely.
		coded, err := s.discounts.FindByCode(ctx, s.db, code)
		if err != nil {
			return nil, err
		}
		if coded == nil {
			return nil, domain.ErrDiscountCodeNotFound
		}
		explicit = &coded.ID
		catalog = []discountdomain.Discount{*coded}
	} else {
		var degraded bool
		catalog, degraded = s.activeDiscounts(ctx)
		if degraded {
			warnings = append(warnings, warnCatalogUnavailable)
		}
	}

	include := idSet(req.IncludeDiscountIDs)
	exclude := idSet(req.ExcludeDiscountIDs)

	result := &domain.OrderPricingResult{
		Subtotal: subtotal.Round(2),
		Lines:    make([]domain.LineBreakdown, 0, len(req.Items)),
		Warnings: warnings,
	}

	totalDiscount := decimal.Zero
	seen := map[snowflake.ID]struct{}{}

	for _, item := range req.Items {
		eligible := resolveLine(catalog, req.DealerID, item, now, explicit, include, exclude)

		results := make([]domain.ApplicabilityResult, 0, len(eligible))
		for _, d := range eligible {
			results = append(results, calculate(d, item, subtotal))
		}

		outcome := resolveStack(results)
		line := buildLine(item, outcome)
		result.Lines = append(result.Lines, line)
		totalDiscount = totalDiscount.Add(line.DiscountAmount)

		for _, applied := range line.Applied {
			s.metrics.RecordDiscountApplied(ctx, string(applied.Type), applied.Stackable)
			if _, ok := seen[applied.DiscountID]; !ok {
				seen[applied.DiscountID] = struct{}{}
				result.AppliedDiscountIDs = append(result.AppliedDiscountIDs, applied.DiscountID)
			}
		}
	}

	result.DiscountAmount = totalDiscount.Round(2)
	total := result.Subtotal.Sub(result.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
		result.Warnings = append(result.Warnings, warnNegativeTotal)
	}
	result.TotalAmount = total
	return result, nil
}

func buildLine(item domain.LineItem, outcome stackOutcome) domain.LineBreakdown {
	lineSubtotal := item.Subtotal().Round(2)
	line := domain.LineBreakdown{
		VariantID:           item.VariantID,
		Quantity:            item.Quantity,
		UnitPrice:           item.UnitPrice,
		LineSubtotal:        lineSubtotal,
		DiscountAmount:      outcome.total.Round(2),
		DiscountedUnitPrice: item.UnitPrice,
	}

	lineTotal := lineSubtotal.Sub(line.DiscountAmount)
	if lineTotal.IsNegative() {
		lineTotal = decimal.Zero
	}
	line.LineTotal = lineTotal
	line.DiscountedUnitPrice = lineTotal.Div(decimal.NewFromInt(item.Quantity)).Round(2)

	if outcome.best != nil {
		id := outcome.best.Discount.ID
		line.BestDiscountID = &id
	}
	for _, r := range outcome.applied {
		line.Applied = append(line.Applied, domain.AppliedDiscount{
			DiscountID: r.Discount.ID,
			Name:       r.Discount.Name,
			Type:       r.Discount.Type,
			Value:      r.Discount.Value,
			Amount:     r.CalculatedDiscountAmount,
			Stackable:  r.Discount.Stackable,
		})
	}
	return line
}

// CommitOrder prices the order and consumes one usage slot per applied
// discount inside a single transaction. A campaign exhausted between preview
// and commit is dropped with a warning and the order re-priced; the commit
// never fails on exhaustion alone.
func (s *Service) CommitOrder(ctx context.Context, req domain.PriceOrderRequest) (*domain.OrderPricingResult, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, domain.ErrInvalidOrderID
	}

	policy := s.policies.Get()
	excluded := append([]snowflake.ID(nil), req.ExcludeDiscountIDs...)
	var carried []string

	for attempt := 0; attempt <= policy.CommitMaxReprices; attempt++ {
		attemptReq := req
		attemptReq.ExcludeDiscountIDs = excluded

		result, err := s.price(ctx, attemptReq)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(carried, result.Warnings...)

		exhausted, err := s.consumeUsage(ctx, req.OrderID, result)
		if err != nil {
			return nil, err
		}
		if exhausted == 0 {
			s.metrics.RecordOrderPriced(ctx, "commit", len(result.Lines))
			return result, nil
		}

		// One or more campaigns ran out between preview and commit.
		// Drop them and price again.
		for _, id := range result.AppliedDiscountIDs {
			if s.isExhausted(ctx, id) {
				excluded = append(excluded, id)
				carried = append(carried, fmt.Sprintf("discount_usage_exhausted:%d", id))
				s.metrics.RecordUsageExhaustedAtCommit(ctx)
			}
		}
	}

	s.log.Error("order could not be committed within the reprice limit",
		zap.String("order_id", req.OrderID),
		zap.Int("max_reprices", policy.CommitMaxReprices),
	)
	return nil, domain.ErrCommitRepriceExceeded
}

// consumeUsage increments usage for every applied discount in one
// transaction. It returns the number of discounts whose limit was already
// exhausted; any positive count rolls the whole batch back.
func (s *Service) consumeUsage(ctx context.Context, orderID string, result *domain.OrderPricingResult) (int, error) {
	if len(result.AppliedDiscountIDs) == 0 {
		return 0, nil
	}

	exhausted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range result.AppliedDiscountIDs {
			ok, err := s.discounts.TryIncrementUsage(ctx, tx, id)
			if err != nil {
				return err
			}
			if !ok {
				exhausted++
			}
		}
		if exhausted > 0 {
			return errUsageExhausted
		}
		for _, id := range result.AppliedDiscountIDs {
			dedupe := fmt.Sprintf("%s|%d|applied", orderID, id)
			payload := map[string]any{
				"order_id":    orderID,
				"discount_id": id,
			}
			if err := s.events.Record(ctx, tx, eventdomain.EventDiscountApplied, payload, &dedupe); err != nil {
				return err
			}
		}
		return nil
	})
	if err == errUsageExhausted {
		// Usage consumption changed the catalog; the next attempt must
		// not serve the stale snapshot.
		s.snapshots.Invalidate()
		return exhausted, nil
	}
	return 0, err
}

// isExhausted re-reads one discount to decide whether it was the campaign
// that blocked the batch.
func (s *Service) isExhausted(ctx context.Context, id snowflake.ID) bool {
	d, err := s.discounts.FindByID(ctx, s.db, id)
	if err != nil || d == nil {
		return true
	}
	return !d.HasUsageLeft()
}

func validateRequest(req domain.PriceOrderRequest) error {
	if req.DealerID == 0 {
		return domain.ErrInvalidDealer
	}
	if len(req.Items) == 0 {
		return domain.ErrNoLineItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		if !item.UnitPrice.IsPositive() {
			return domain.ErrInvalidUnitPrice
		}
	}
	return nil
}
