// Package memory provides an in-memory Store used by tests and single-process
// deployments.
package memory

import (
	"context"
	"sync"

	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/store"
)

// Store is a concurrency-safe in-memory store.Store.
type Store[K comparable, V any] struct {
	mu       sync.RWMutex
	handlers store.ModelHandlers[K, V]
	items    map[K]V
	indices  map[string]map[string]K
}

var _ store.Store[string, struct{}] = (*Store[string, struct{}])(nil)

// New creates an empty store for the entity described by handlers.
func New[K comparable, V any](handlers store.ModelHandlers[K, V]) *Store[K, V] {
	return &Store[K, V]{
		handlers: handlers,
		items:    make(map[K]V),
		indices:  make(map[string]map[string]K),
	}
}

func (s *Store[K, V]) Create(_ context.Context, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.handlers.GetID(value)
	if _, exists := s.items[id]; exists {
		return errors.Conflict(s.handlers.Entity, "duplicate id").With("id", id)
	}
	keys := s.handlers.Keys(value)
	if err := s.checkKeysLocked(id, keys); err != nil {
		return err
	}

	s.items[id] = value
	s.indexLocked(id, keys)
	return nil
}

func (s *Store[K, V]) Get(_ context.Context, id K) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[id]
	if !ok {
		var zero V
		return zero, errors.NotFound(s.handlers.Entity, id)
	}
	return value, nil
}

func (s *Store[K, V]) GetBySecondaryKey(_ context.Context, index, value string) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero V
	id, ok := s.indices[index][value]
	if !ok {
		return zero, errors.NotFoundBySecondaryKey(s.handlers.Entity, index, value)
	}
	item, ok := s.items[id]
	if !ok {
		return zero, errors.NotFoundBySecondaryKey(s.handlers.Entity, index, value)
	}
	return item, nil
}

func (s *Store[K, V]) Update(_ context.Context, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.handlers.GetID(value)
	previous, ok := s.items[id]
	if !ok {
		return errors.NotFound(s.handlers.Entity, id)
	}
	keys := s.handlers.Keys(value)
	if err := s.checkKeysLocked(id, keys); err != nil {
		return err
	}

	s.unindexLocked(id, s.handlers.Keys(previous))
	s.items[id] = value
	s.indexLocked(id, keys)
	return nil
}

func (s *Store[K, V]) Delete(_ context.Context, id K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.items[id]
	if !ok {
		return errors.NotFound(s.handlers.Entity, id)
	}
	s.unindexLocked(id, s.handlers.Keys(previous))
	delete(s.items, id)
	return nil
}

// Len returns the number of stored entities.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[K, V]) checkKeysLocked(id K, keys map[string]string) error {
	for index, value := range keys {
		if owner, ok := s.indices[index][value]; ok && owner != id {
			return errors.Conflict(s.handlers.Entity, index+" already in use").With(index, value)
		}
	}
	return nil
}

func (s *Store[K, V]) indexLocked(id K, keys map[string]string) {
	for index, value := range keys {
		idx, ok := s.indices[index]
		if !ok {
			idx = make(map[string]K)
			s.indices[index] = idx
		}
		idx[value] = id
	}
}

func (s *Store[K, V]) unindexLocked(id K, keys map[string]string) {
	for index, value := range keys {
		if owner, ok := s.indices[index][value]; ok && owner == id {
			delete(s.indices[index], value)
		}
	}
}
