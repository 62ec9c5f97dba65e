package cache

import (
	"context"
	"time"

	"github.com/kauppa/kauppa-sub001/internal/cacheinfra"
)

// Config sizes the lookup cache. It is the sturdyc adapter's configuration
// re-exported so callers outside the module can build one.
type Config = cacheinfra.Config

// EarlyRefreshConfig enables background refreshes of hot lookup keys.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// DefaultConfig returns the lookup cache defaults.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// LookupConfig returns the defaults with ttl applied. Shard count shrinks for
// short TTLs, where few keys are live at once.
func LookupConfig(ttl time.Duration) Config {
	cfg := cacheinfra.DefaultConfig()
	cfg.TTL = ttl
	if ttl < time.Second {
		cfg.NumShards = 4
	}
	return cfg
}

// NewCacheService constructs the sturdyc-backed lookup cache.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg)
	if err != nil {
		return nil, err
	}
	return lookupAdapter{svc}, nil
}

// lookupAdapter narrows the infrastructure fetch signature to FetchFn.
type lookupAdapter struct {
	*cacheinfra.SturdycService
}

func (a lookupAdapter) GetOrFetch(ctx context.Context, key string, fetchFn FetchFn[any]) (any, error) {
	return a.SturdycService.GetOrFetch(ctx, key, fetchFn)
}
