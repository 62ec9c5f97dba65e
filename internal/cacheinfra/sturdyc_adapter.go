package cacheinfra

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc lookup cache.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	NumShards int

	// TTL is the time-to-live for cached lookups.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures background refreshes of hot keys.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config sized for cross-service lookups. Lookups are
// short lived so a stale product price or cart is never served for long.
func DefaultConfig() Config {
	return Config{
		Capacity:           2048,
		NumShards:          16,
		TTL:                30 * time.Second,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional parts of Config to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return err
	}
	if c.EarlyRefresh == nil {
		return nil
	}

	er := c.EarlyRefresh
	return validation.ValidateStruct(er,
		validation.Field(&er.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&er.MaxAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&er.SyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&er.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

// SturdycService wraps a sturdyc client. Values are stored as any; typed
// access goes through cache.GetOrFetch.
type SturdycService struct {
	client *sturdyc.Client[entry]
}

// entry boxes cached values. sturdyc type-asserts every fetch result against
// its value type, and a nil interface fails that assertion, which would
// replace the fetch error with sturdyc.ErrInvalidType.
type entry struct {
	value any
}

// NewSturdycService validates cfg and initializes a sturdyc client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key, calling fetchFn on a miss.
// Concurrent misses for the same key share a single fetch. A failing fetch
// is returned to the caller unchanged and nothing is stored.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	e, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (entry, error) {
		v, err := fetchFn(ctx)
		return entry{value: v}, err
	})
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Delete removes a single entry.
func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix, e.g. all
// lookups against one route.
func (s *SturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size returns the number of cached entries.
func (s *SturdycService) Size() int {
	return s.client.Size()
}
