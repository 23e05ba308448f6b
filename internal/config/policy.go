package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingPolicy controls operational knobs of the pricing engine that
// operators tune without a redeploy.
type PricingPolicy struct {
	// CatalogReadTimeout bounds the discount-catalog read on the pricing
	// path. On timeout the engine prices the order with no discounts.
	CatalogReadTimeout time.Duration `mapstructure:"catalogReadTimeout"`
	// SnapshotTTL is how long a resolved catalog snapshot may be served
	// from cache before re-reading the store.
	SnapshotTTL time.Duration `mapstructure:"snapshotTTL"`
	// CommitMaxReprices caps how many times an order is re-priced when
	// usage-limited discounts are exhausted between resolution and commit.
	CommitMaxReprices int `mapstructure:"commitMaxReprices"`
	// ExpiringSoonWindow is the look-ahead used by the expiry sweep when
	// emitting discount.expiring events.
	ExpiringSoonWindow time.Duration `mapstructure:"expiringSoonWindow"`
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		CatalogReadTimeout: 2 * time.Second,
		SnapshotTTL:        15 * time.Second,
		CommitMaxReprices:  3,
		ExpiringSoonWindow: 72 * time.Hour,
	}
}

// PricingPolicyHolder serves the current policy and hot-reloads it when the
// mounted config file changes.
type PricingPolicyHolder struct {
	current atomic.Value // holds PricingPolicy
}

func NewPricingPolicyHolder() (*PricingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pricing/config")
	v.AddConfigPath("/etc/pricing")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingPolicy()
	v.SetDefault("policy.catalogReadTimeout", defaults.CatalogReadTimeout)
	v.SetDefault("policy.snapshotTTL", defaults.SnapshotTTL)
	v.SetDefault("policy.commitMaxReprices", defaults.CommitMaxReprices)
	v.SetDefault("policy.expiringSoonWindow", defaults.ExpiringSoonWindow)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy PricingPolicy
	if err := v.UnmarshalKey("policy", &policy); err != nil {
		return nil, err
	}
	if err := validatePricingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &PricingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingPolicy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[pricing-policy] reload failed: %v", err)
			return
		}
		if err := validatePricingPolicy(updated); err != nil {
			log.Printf("[pricing-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PricingPolicyHolder) Get() PricingPolicy {
	return h.current.Load().(PricingPolicy)
}

// NewStaticPolicyHolder wraps a fixed policy, used by tests and tools.
func NewStaticPolicyHolder(policy PricingPolicy) *PricingPolicyHolder {
	holder := &PricingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validatePricingPolicy(policy PricingPolicy) error {
	if policy.CatalogReadTimeout <= 0 {
		return errors.New("policy.catalogReadTimeout must be positive")
	}
	if policy.SnapshotTTL < 0 {
		return errors.New("policy.snapshotTTL cannot be negative")
	}
	if policy.CommitMaxReprices <= 0 {
		return errors.New("policy.commitMaxReprices must be positive")
	}
	if policy.ExpiringSoonWindow <= 0 {
		return errors.New("policy.expiringSoonWindow must be positive")
	}
	return nil
}
