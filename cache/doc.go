// Package cache provides the in-process caches used by the entity services.
//
// # Bounded
//
// Bounded is a capacity-limited map that evicts the least recently written
// entry. It backs every repository's entity cache and secondary indices:
//
//	c, err := cache.NewBounded[string, entity.Account](1024)
//	c.Set(acc.ID, acc)
//	acc, ok := c.Get(id) // does not change eviction order
//
// Reads never reorder entries, so for a given sequence of writes the set of
// surviving keys is always the same. Bounded has no lock of its own.
//
// # Lookup cache
//
// CacheService is a TTL cache for idempotent reads made against other
// services. The default implementation is backed by sturdyc:
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	body, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]byte, error) {
//		return fetchFromRemote(ctx)
//	})
//
// Failed fetches are not cached. Keys come from a KeySerializer, which renders
// a route descriptor plus its path and query arguments deterministically.
package cache
