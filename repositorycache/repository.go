package repositorycache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kauppa/kauppa-sub001/cache"
	"github.com/kauppa/kauppa-sub001/pkg/clock"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/pkg/metrics"
	"github.com/kauppa/kauppa-sub001/store"
)

// DefaultCapacity is used when Options.Capacity is zero.
const DefaultCapacity = 1024

// Options configure a Repository.
type Options struct {
	// Capacity bounds the entity cache and each secondary index.
	Capacity int
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Repository fronts a store with a bounded entity cache and bounded secondary
// indices. Reads are served from the cache when possible; writes go to the
// cache and the store together and are rolled back from the cache when the
// store rejects them.
//
// One mutex guards the cache and the indices. Writes hold it across the store
// call, so no reader observes a write the store has not accepted. Read misses
// release it during store I/O.
type Repository[K comparable, V any] struct {
	mu      sync.Mutex
	entries *cache.Bounded[K, V]
	indices map[string]*cache.Bounded[string, K]

	// generation advances on every write so a read miss can tell whether
	// its store result is still current.
	generation uint64

	store    store.Store[K, V]
	handlers store.ModelHandlers[K, V]
	entity   string
	capacity int
	clock    clock.Clock
	logger   *slog.Logger
}

// New builds a repository over st. handlers must provide NewID, GetID, SetID,
// GetTimestamps and SetTimestamps.
func New[K comparable, V any](st store.Store[K, V], handlers store.ModelHandlers[K, V], opts Options) (*Repository[K, V], error) {
	if st == nil {
		return nil, fmt.Errorf("repositorycache: store is required")
	}
	if handlers.NewID == nil || handlers.GetID == nil || handlers.SetID == nil {
		return nil, fmt.Errorf("repositorycache: identity handlers are required")
	}
	if handlers.GetTimestamps == nil || handlers.SetTimestamps == nil {
		return nil, fmt.Errorf("repositorycache: timestamp handlers are required")
	}

	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	entity := handlers.Entity
	if entity == "" {
		entity = entityName[V]()
		handlers.Entity = entity
	}

	entries, err := cache.NewBounded[K, V](opts.Capacity, cache.WithEvictionHook(func(K, V) {
		metrics.CacheEvictions.WithLabelValues(entity).Inc()
	}))
	if err != nil {
		return nil, err
	}

	return &Repository[K, V]{
		entries:  entries,
		indices:  make(map[string]*cache.Bounded[string, K]),
		store:    st,
		handlers: handlers,
		entity:   entity,
		capacity: opts.Capacity,
		clock:    opts.Clock,
		logger:   opts.Logger.With("entity", entity),
	}, nil
}

// Entity returns the entity name used in errors, logs and metrics.
func (r *Repository[K, V]) Entity() string { return r.entity }

// Create assigns a fresh id and equal creation and update timestamps, then
// persists the entity. A secondary key already owned by another entity is
// rejected as a conflict.
func (r *Repository[K, V]) Create(ctx context.Context, value V) (V, error) {
	var zero V

	v := r.handlers.Copy(value)
	id := r.handlers.NewID()
	r.handlers.SetID(&v, id)
	now := r.clock.Now()
	r.handlers.SetTimestamps(&v, now, now)
	keys := r.handlers.Keys(v)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkKeysLocked(id, keys); err != nil {
		return zero, err
	}

	r.generation++
	r.setLocked(id, v, keys)

	if err := r.store.Create(ctx, r.handlers.Copy(v)); err != nil {
		r.entries.Remove(id)
		r.unindexLocked(id, keys)
		r.logger.Warn("create rejected by store, cache rolled back", "id", id, "error", err)
		return zero, r.storeError(err)
	}

	return r.handlers.Copy(v), nil
}

// Get returns the entity for id, reading through to the store on a miss.
func (r *Repository[K, V]) Get(ctx context.Context, id K) (V, error) {
	r.mu.Lock()
	if v, ok := r.entries.Get(id); ok {
		r.mu.Unlock()
		r.lookup("hit")
		return r.handlers.Copy(v), nil
	}
	gen := r.generation
	r.mu.Unlock()
	r.lookup("miss")

	v, err := r.store.Get(ctx, id)
	if err != nil {
		var zero V
		return zero, r.storeError(err)
	}

	r.fill(gen, v)
	return r.handlers.Copy(v), nil
}

// GetBySecondaryKey resolves an entity through a named index such as "email".
func (r *Repository[K, V]) GetBySecondaryKey(ctx context.Context, index, value string) (V, error) {
	var zero V
	if !r.handlers.HasIndex(index) {
		return zero, errors.NotFoundBySecondaryKey(r.entity, index, value)
	}

	r.mu.Lock()
	if idx, ok := r.indices[index]; ok {
		if id, ok := idx.Get(value); ok {
			if v, ok := r.entries.Get(id); ok {
				r.mu.Unlock()
				r.lookup("hit")
				return r.handlers.Copy(v), nil
			}
		}
	}
	gen := r.generation
	r.mu.Unlock()
	r.lookup("miss")

	v, err := r.store.GetBySecondaryKey(ctx, index, value)
	if err != nil {
		return zero, r.storeError(err)
	}

	r.fill(gen, v)
	return r.handlers.Copy(v), nil
}

// Update applies mutate to a copy of the current entity and persists the
// result. The id and creation time cannot be changed by mutate, and the update
// time always moves forward. mutate runs with the repository locked and must
// not call back into it.
func (r *Repository[K, V]) Update(ctx context.Context, id K, mutate func(*V) error) (V, error) {
	var zero V

	r.mu.Lock()
	defer r.mu.Unlock()

	current, cached := r.entries.Get(id)
	if !cached {
		v, err := r.store.Get(ctx, id)
		if err != nil {
			return zero, r.storeError(err)
		}
		current = v
	}

	next := r.handlers.Copy(current)
	if mutate != nil {
		if err := mutate(&next); err != nil {
			return zero, err
		}
	}

	created, previous := r.handlers.GetTimestamps(current)
	updated := r.clock.Now()
	if !updated.After(previous) {
		updated = previous.Add(time.Nanosecond)
	}
	r.handlers.SetID(&next, id)
	r.handlers.SetTimestamps(&next, created, updated)

	oldKeys := r.handlers.Keys(current)
	newKeys := r.handlers.Keys(next)
	if err := r.checkKeysLocked(id, newKeys); err != nil {
		return zero, err
	}

	r.generation++
	r.unindexLocked(id, oldKeys)
	r.setLocked(id, next, newKeys)

	if err := r.store.Update(ctx, r.handlers.Copy(next)); err != nil {
		r.unindexLocked(id, newKeys)
		if cached {
			r.setLocked(id, current, oldKeys)
		} else {
			r.entries.Remove(id)
		}
		r.logger.Warn("update rejected by store, cache rolled back", "id", id, "error", err)
		return zero, r.storeError(err)
	}

	return r.handlers.Copy(next), nil
}

// Delete evicts id from the cache and indices, then deletes it from the store.
// A failed store delete leaves the entry evicted; the next read goes to the store.
func (r *Repository[K, V]) Delete(ctx context.Context, id K) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	if current, ok := r.entries.Get(id); ok {
		r.unindexLocked(id, r.handlers.Keys(current))
		r.entries.Remove(id)
	} else {
		r.unindexIDLocked(id)
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return r.storeError(err)
	}
	return nil
}

// Len returns the number of cached entities.
func (r *Repository[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Cached reports whether id is currently held in the cache.
func (r *Repository[K, V]) Cached(id K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Contains(id)
}

// fill caches a store result unless a write happened since gen was read.
func (r *Repository[K, V]) fill(gen uint64, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return
	}
	r.setLocked(r.handlers.GetID(v), v, r.handlers.Keys(v))
}

func (r *Repository[K, V]) setLocked(id K, v V, keys map[string]string) {
	r.entries.Set(id, v)
	for index, value := range keys {
		r.indexLocked(index).Set(value, id)
	}
}

func (r *Repository[K, V]) indexLocked(index string) *cache.Bounded[string, K] {
	idx, ok := r.indices[index]
	if !ok {
		// capacity was validated by New.
		idx, _ = cache.NewBounded[string, K](r.capacity)
		r.indices[index] = idx
	}
	return idx
}

func (r *Repository[K, V]) checkKeysLocked(id K, keys map[string]string) error {
	for index, value := range keys {
		idx, ok := r.indices[index]
		if !ok {
			continue
		}
		if owner, ok := idx.Get(value); ok && owner != id {
			return errors.Conflict(r.entity, index+" already in use").With(index, value)
		}
	}
	return nil
}

func (r *Repository[K, V]) unindexLocked(id K, keys map[string]string) {
	for index, value := range keys {
		idx, ok := r.indices[index]
		if !ok {
			continue
		}
		if owner, ok := idx.Get(value); ok && owner == id {
			idx.Remove(value)
		}
	}
}

// unindexIDLocked drops every index entry pointing at id when the entity's
// keys are unknown.
func (r *Repository[K, V]) unindexIDLocked(id K) {
	for _, idx := range r.indices {
		for _, value := range idx.Keys() {
			if owner, ok := idx.Get(value); ok && owner == id {
				idx.Remove(value)
			}
		}
	}
}

func (r *Repository[K, V]) lookup(result string) {
	metrics.CacheLookups.WithLabelValues(r.entity, result).Inc()
}

// storeError keeps classified errors intact and wraps everything else as a
// store failure.
func (r *Repository[K, V]) storeError(err error) error {
	var se *errors.Error
	if errors.As(err, &se) {
		return err
	}
	return errors.StoreUnavailable(r.entity, err)
}
