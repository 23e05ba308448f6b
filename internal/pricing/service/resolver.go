package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/meditrade/pricing/internal/pricing/domain"
	"go.uber.org/zap"
)

// activeDiscounts loads the active catalog snapshot, serving from the TTL
// cache when warm. A catalog that cannot be read within the configured
// timeout fails open: the order prices with no discounts rather than
// blocking.
func (s *Service) activeDiscounts(ctx context.Context) (catalog []discountdomain.Discount, degraded bool) {
	if cached, ok := s.snapshots.Get(); ok {
		return cached, false
	}

	policy := s.policies.Get()
	readCtx, cancel := context.WithTimeout(ctx, policy.CatalogReadTimeout)
	defer cancel()

	discounts, err := s.discounts.ListActive(readCtx, s.db, s.clock.Now())
	if err != nil {
		s.log.Warn("discount catalog unavailable, pricing without discounts",
			zap.Error(err),
		)
		s.metrics.RecordCatalogFailOpen(ctx, "catalog_read_failed")
		return nil, true
	}

	s.snapshots.Set(discounts, policy.SnapshotTTL)
	return discounts, false
}

// resolveLine narrows the catalog snapshot down to the discounts eligible
// for one line: status and window, dealer scope, variant or category scope,
// and remaining usage. Results are ordered priority descending, id
// ascending.
func resolveLine(
	catalog []discountdomain.Discount,
	dealerID snowflake.ID,
	item domain.LineItem,
	now time.Time,
	explicit *snowflake.ID,
	include, exclude map[snowflake.ID]struct{},
) []*discountdomain.Discount {
	var eligible []*discountdomain.Discount
	for i := range catalog {
		d := &catalog[i]
		if _, skip := exclude[d.ID]; skip {
			continue
		}
		if explicit != nil {
			if d.ID != *explicit {
				continue
			}
		} else if len(include) > 0 {
			// A supplied include-list restricts resolution to its members,
			// auto-apply or not.
			if _, ok := include[d.ID]; !ok {
				continue
			}
		} else if !d.AutoApply {
			continue
		}
		// The snapshot may be a few seconds stale; re-check validity
		// against the current instant.
		if d.Validity(now) != discountdomain.ValidityActive {
			continue
		}
		if !d.AppliesToDealer(dealerID) {
			continue
		}
		if !d.AppliesToVariant(item.VariantID, item.CategoryIDs) {
			continue
		}
		eligible = append(eligible, d)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible
}

func idSet(ids []snowflake.ID) map[snowflake.ID]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
