package cache

import (
	"testing"
	"time"

	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCache_GetSetDelete(t *testing.T) {
	c := NewTTLCache[string, int]()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 42, time.Minute)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTLCache_ExpiresLazily(t *testing.T) {
	c := NewTTLCache[string, string]()

	c.Set("a", "v", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCache_NonPositiveTTLIsNoop(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1, -time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestDiscountSnapshotCache(t *testing.T) {
	c := NewDiscountSnapshotCache()

	_, ok := c.Get()
	assert.False(t, ok)

	snapshot := []discountdomain.Discount{{Name: "spring promo"}}
	c.Set(snapshot, time.Minute)

	got, ok := c.Get()
	assert.True(t, ok)
	assert.Len(t, got, 1)
	assert.Equal(t, "spring promo", got[0].Name)

	c.Invalidate()
	_, ok = c.Get()
	assert.False(t, ok)
}
