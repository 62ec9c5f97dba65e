package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.TTL != 30*time.Second {
		t.Errorf("expected TTL to be 30s, got %v", cfg.TTL)
	}
	if cfg.EarlyRefresh != nil {
		t.Error("expected early refresh to be disabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantField: "Capacity"},
		{name: "negative shards", mutate: func(c *Config) { c.NumShards = -2 }, wantField: "NumShards"},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantField: "TTL"},
		{name: "eviction too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantField: "EvictionPercentage"},
		{name: "negative interval", mutate: func(c *Config) { c.EvictionInterval = -time.Second }, wantField: "EvictionInterval"},
		{
			name: "negative early refresh",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{MinAsyncRefreshTime: -time.Second}
			},
			wantField: "MinAsyncRefreshTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no error but got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %s", tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := testConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options, got %d", got)
	}

	cfg.EvictionInterval = time.Second
	cfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      time.Millisecond,
	}
	if got := len(cfg.ToSturdycOptions()); got != 2 {
		t.Errorf("expected 2 options, got %d", got)
	}
}

func TestNewSturdycService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 0

	if _, err := NewSturdycService(cfg); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		calls := 0
		fetch := func(ctx context.Context) (any, error) {
			calls++
			return []byte(`{"id":"p-1"}`), nil
		}

		for i := 0; i < 3; i++ {
			result, err := service.GetOrFetch(ctx, "GET /products/:id::{id=p-1}", fetch)
			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if string(result.([]byte)) != `{"id":"p-1"}` {
				t.Errorf("unexpected result %s", result)
			}
		}
		if calls != 1 {
			t.Errorf("expected a single fetch, got %d", calls)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		calls := 0
		wantErr := errors.New("fetch failed")
		fetch := func(ctx context.Context) (any, error) {
			calls++
			return nil, wantErr
		}

		for i := 0; i < 2; i++ {
			if _, err := service.GetOrFetch(ctx, "error-key", fetch); !errors.Is(err, wantErr) {
				t.Errorf("expected %v, got %v", wantErr, err)
			}
		}
		if calls != 2 {
			t.Errorf("expected every failing lookup to fetch, got %d calls", calls)
		}
	})

	t.Run("nil values are cached", func(t *testing.T) {
		calls := 0
		fetch := func(ctx context.Context) (any, error) {
			calls++
			return nil, nil
		}

		for i := 0; i < 2; i++ {
			result, err := service.GetOrFetch(ctx, "nil-key", fetch)
			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if result != nil {
				t.Errorf("expected nil, got %v", result)
			}
		}
		if calls != 1 {
			t.Errorf("expected a single fetch, got %d", calls)
		}
	})
}

func TestSturdycService_Delete(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	service.GetOrFetch(ctx, "k", fetch)
	if err := service.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	result, _ := service.GetOrFetch(ctx, "k", fetch)

	if result != 2 {
		t.Errorf("expected refetch after delete, got %v", result)
	}
}

func TestSturdycService_DeleteByPrefix(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	value := func(v string) func(context.Context) (any, error) {
		return func(context.Context) (any, error) { return v, nil }
	}

	service.GetOrFetch(ctx, "GET /products/:id::{id=1}", value("p1"))
	service.GetOrFetch(ctx, "GET /products/:id::{id=2}", value("p2"))
	service.GetOrFetch(ctx, "GET /carts/:id::{id=1}", value("c1"))

	if err := service.DeleteByPrefix(ctx, "GET /products/"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if got := service.Size(); got != 1 {
		t.Errorf("expected 1 remaining entry, got %d", got)
	}
}
