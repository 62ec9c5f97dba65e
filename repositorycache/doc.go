// Package repositorycache provides Repository, the cache-fronted access path
// every entity service uses to reach its store.
//
// # Overview
//
// A Repository combines three parts:
//
//   - a bounded entity cache keyed by primary id (cache.Bounded)
//   - one bounded secondary index per index name, mapping a key such as an
//     email address or coupon code to a primary id
//   - a store.Store holding the durable copy
//
// Reads check the cache first and fall back to the store, filling the cache
// and indices with what they find. Writes update the cache, the indices and
// the store together; when the store rejects a create or update the cache is
// restored to its previous state and the store's error is returned.
//
// # Basic Usage
//
//	handlers := entity.AccountHandlers(uuid.NewString)
//	repo, err := repositorycache.New(memory.New(handlers), handlers, repositorycache.Options{
//		Capacity: 1024,
//	})
//
//	acc, err := repo.Create(ctx, entity.Account{Name: "Ada", Email: "ada@example.com"})
//	acc, err = repo.GetBySecondaryKey(ctx, "email", "ada@example.com")
//	acc, err = repo.Update(ctx, acc.ID, func(a *entity.Account) error {
//		a.Name = "Ada Lovelace"
//		return nil
//	})
//
// # Identity and time
//
// Create always assigns a fresh id and sets the creation and update times to
// the same instant. Update cannot change the id or the creation time, and the
// update time it records is strictly later than the previous one even when the
// clock has not moved.
//
// # Concurrency
//
// Each Repository owns one mutex. Writes hold it for the whole operation,
// including the store call, so a cancelled or timed out store write leaves no
// partial state behind. Read misses release it while the store is queried and
// discard their result if a write landed in the meantime.
package repositorycache
