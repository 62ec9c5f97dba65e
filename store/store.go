// Package store declares the persistence contract behind every repository.
//
// A store is a key-addressable collection per entity type. Callers depend on
// the narrowest interface they need; Store composes all of them.
package store

import (
	"context"
	"time"
)

type Creator[V any] interface {
	Create(ctx context.Context, value V) error
}

type Reader[K comparable, V any] interface {
	Get(ctx context.Context, id K) (V, error)
}

type Updater[V any] interface {
	Update(ctx context.Context, value V) error
}

type Deleter[K comparable] interface {
	Delete(ctx context.Context, id K) error
}

// SecondaryReader resolves an entity through a named secondary index such as
// "email" or "code".
type SecondaryReader[V any] interface {
	GetBySecondaryKey(ctx context.Context, index, value string) (V, error)
}

// Store is the full contract a Repository is built on. Implementations report
// missing entities with pkg/errors NotFound kinds, duplicate keys with
// Conflict and infrastructure failures with StoreUnavailable.
type Store[K comparable, V any] interface {
	Creator[V]
	Reader[K, V]
	Updater[V]
	Deleter[K]
	SecondaryReader[V]
}

// ModelHandlers describe how a generic store or repository reads and writes the
// identity, timestamps and secondary keys of an entity type.
type ModelHandlers[K comparable, V any] struct {
	// Entity is the singular entity name used in errors and logs.
	Entity string

	NewID func() K
	GetID func(V) K
	SetID func(*V, K)

	GetTimestamps func(V) (created, updated time.Time)
	SetTimestamps func(v *V, created, updated time.Time)

	// SecondaryKeys returns index name to key value. Nil when the entity has
	// no secondary indices; empty values are not indexed.
	SecondaryKeys func(V) map[string]string

	// Clone deep-copies values holding slices or maps. Nil means plain
	// assignment is a full copy.
	Clone func(V) V
}

// Copy returns a copy of v that shares no mutable state with it.
func (h ModelHandlers[K, V]) Copy(v V) V {
	if h.Clone == nil {
		return v
	}
	return h.Clone(v)
}

// Keys returns the non-empty secondary keys of v.
func (h ModelHandlers[K, V]) Keys(v V) map[string]string {
	if h.SecondaryKeys == nil {
		return nil
	}
	keys := h.SecondaryKeys(v)
	for name, value := range keys {
		if value == "" {
			delete(keys, name)
		}
	}
	return keys
}

// HasIndex reports whether name is one of the entity's secondary indices.
// It inspects the handler with a zero value.
func (h ModelHandlers[K, V]) HasIndex(name string) bool {
	if h.SecondaryKeys == nil {
		return false
	}
	var zero V
	_, ok := h.SecondaryKeys(zero)[name]
	return ok
}
