// Package cache provides the read-through TTL cache that shields the backing
// store. Each logical key has its own time-to-live and entries are only
// replaced by a successful fetch or removed by explicit invalidation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/viccon/sturdyc"
)

// Logical cache keys.
const (
	KeyItems      = "items"
	KeyCategories = "categories"
	KeyHistory    = "history"
)

// Default settings.
const (
	DefaultTTL                = 300 * time.Second
	DefaultHistoryTTL         = 60 * time.Second
	DefaultCapacity           = 64
	DefaultNumShards          = 4
	DefaultEvictionPercentage = 10
)

// ErrInvalidResultType is returned when a cached value does not have the requested type.
var ErrInvalidResultType = errors.New("cached value has unexpected type")

var (
	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoplist_cache_hits_total",
			Help: "Total number of cache reads served from memory",
		},
		[]string{"key"},
	)

	cacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoplist_cache_misses_total",
			Help: "Total number of cache reads that went to the backing store",
		},
		[]string{"key"},
	)
)

// Config controls capacity and per-key time-to-live.
type Config struct {
	Capacity           int
	NumShards          int
	EvictionPercentage int

	// DefaultTTL applies to every key without an entry in KeyTTLs.
	DefaultTTL time.Duration
	KeyTTLs    map[string]time.Duration

	// Clock overrides the wall clock. Nil uses real time.
	Clock sturdyc.Clock
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config: " + e.Field + " " + e.Message
}

// DefaultConfig returns the configuration used by the service.
func DefaultConfig() Config {
	return Config{
		Capacity:           DefaultCapacity,
		NumShards:          DefaultNumShards,
		EvictionPercentage: DefaultEvictionPercentage,
		DefaultTTL:         DefaultTTL,
		KeyTTLs: map[string]time.Duration{
			KeyHistory: DefaultHistoryTTL,
		},
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.DefaultTTL <= 0 {
		return &ConfigError{Field: "DefaultTTL", Message: "must be greater than 0"}
	}
	for key, ttl := range c.KeyTTLs {
		if ttl <= 0 {
			return &ConfigError{Field: "KeyTTLs[" + key + "]", Message: "must be greater than 0"}
		}
	}
	return nil
}

// Cache is a set of sturdyc clients, one per distinct TTL.
type Cache struct {
	defaultTTL time.Duration
	keyTTLs    map[string]time.Duration
	clients    map[time.Duration]*sturdyc.Client[any]
}

// New builds a cache from cfg.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []sturdyc.Option
	if cfg.Clock != nil {
		opts = append(opts, sturdyc.WithClock(cfg.Clock))
	}

	c := &Cache{
		defaultTTL: cfg.DefaultTTL,
		keyTTLs:    make(map[string]time.Duration, len(cfg.KeyTTLs)),
		clients:    make(map[time.Duration]*sturdyc.Client[any]),
	}

	ttls := []time.Duration{cfg.DefaultTTL}
	for key, ttl := range cfg.KeyTTLs {
		c.keyTTLs[key] = ttl
		ttls = append(ttls, ttl)
	}

	for _, ttl := range ttls {
		if _, ok := c.clients[ttl]; ok {
			continue
		}
		c.clients[ttl] = sturdyc.New[any](cfg.Capacity, cfg.NumShards, expiry(ttl), cfg.EvictionPercentage, opts...)
	}

	return c, nil
}

// expiry converts ttl into the lifetime handed to sturdyc. sturdyc keeps an
// entry until the clock is strictly after its expiry, so an entry whose age
// equals ttl must already be past it.
func expiry(ttl time.Duration) time.Duration {
	return max(ttl-time.Nanosecond, time.Nanosecond)
}

// TTL returns the time-to-live applied to key.
func (c *Cache) TTL(key string) time.Duration {
	if ttl, ok := c.keyTTLs[key]; ok {
		return ttl
	}
	return c.defaultTTL
}

func (c *Cache) client(key string) *sturdyc.Client[any] {
	return c.clients[c.TTL(key)]
}

// Fetch returns the value cached under key, calling producer when the entry
// is missing or older than the key's TTL. A producer error is returned and
// leaves the cache unchanged.
func Fetch[T any](ctx context.Context, c *Cache, key string, producer func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var fetched atomic.Bool

	value, err := c.client(key).GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		fetched.Store(true)
		return producer(ctx)
	})

	if fetched.Load() {
		cacheMissesTotal.WithLabelValues(key).Inc()
	} else {
		cacheHitsTotal.WithLabelValues(key).Inc()
	}

	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrInvalidResultType, key, value)
	}
	return typed, nil
}

// Invalidate removes the given keys.
func (c *Cache) Invalidate(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.client(key).Delete(key)
	}
}

// Clear removes every entry.
func (c *Cache) Clear(_ context.Context) {
	for _, client := range c.clients {
		for _, key := range client.ScanKeys() {
			client.Delete(key)
		}
	}
}

// Keys returns the keys currently held, sorted.
func (c *Cache) Keys() []string {
	var keys []string
	for _, client := range c.clients {
		keys = append(keys, client.ScanKeys()...)
	}
	sort.Strings(keys)
	return keys
}
