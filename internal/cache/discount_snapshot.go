package cache

import (
	"time"

	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
)

const snapshotKey = "active_discounts"

// DiscountSnapshotCache keeps the most recent active-campaign snapshot so
// burst pricing traffic does not hammer the catalog store.
type DiscountSnapshotCache interface {
	Get() ([]discountdomain.Discount, bool)
	Set(discounts []discountdomain.Discount, ttl time.Duration)
	Invalidate()
}

type discountSnapshotCache struct {
	inner Cache[string, []discountdomain.Discount]
}

// NewDiscountSnapshotCache returns an in-memory snapshot cache.
func NewDiscountSnapshotCache() DiscountSnapshotCache {
	return &discountSnapshotCache{inner: NewTTLCache[string, []discountdomain.Discount]()}
}

func (c *discountSnapshotCache) Get() ([]discountdomain.Discount, bool) {
	return c.inner.Get(snapshotKey)
}

func (c *discountSnapshotCache) Set(discounts []discountdomain.Discount, ttl time.Duration) {
	c.inner.Set(snapshotKey, discounts, ttl)
}

func (c *discountSnapshotCache) Invalidate() {
	c.inner.Delete(snapshotKey)
}
