package cache

import "context"

// KeySerializer builds a lookup cache key from a call target and its arguments.
// Keys must be stable across calls with equal arguments.
type KeySerializer interface {
	SerializeKey(target string, args ...any) string
}

// FetchFn loads a value from the source of truth on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is a TTL lookup cache used for idempotent cross-service reads.
// Failed fetches are never cached.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn FetchFn[any]) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrFetch is the typed entry point to a CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key}
	}
	return typed, nil
}

// TypeMismatchError reports a cached value whose type differs from the caller's.
type TypeMismatchError struct {
	Key string
}

func (e *TypeMismatchError) Error() string {
	return "cached value for key " + e.Key + " has an unexpected type"
}
