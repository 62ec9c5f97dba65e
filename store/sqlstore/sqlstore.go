// Package sqlstore implements store.Store on a SQL database through bun.
//
// Every entity type shares two tables: documents holds the encoded entity
// addressed by (kind, id), document_keys maps (kind, index, value) to an id.
// Writes touching both tables run in one transaction.
package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/kauppa/kauppa-sub001/codec"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/store"
)

type document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	Kind      string    `bun:"kind,pk"`
	ID        string    `bun:"id,pk"`
	Body      []byte    `bun:"body,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type documentKey struct {
	bun.BaseModel `bun:"table:document_keys,alias:k"`

	Kind      string `bun:"kind,pk"`
	IndexName string `bun:"index_name,pk"`
	KeyValue  string `bun:"key_value,pk"`
	ID        string `bun:"id,notnull"`
}

// Open connects to driver ("sqlite", "sqlite3" or "postgres") and returns a
// bun handle with the matching dialect.
func Open(driver, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case "sqlite", "sqlite3":
		if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			// Each connection would otherwise see its own empty database.
			sqldb.SetMaxOpenConns(1)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres":
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		sqldb.Close()
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// Migrate creates the shared tables when they do not exist.
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, model := range []any{(*document)(nil), (*documentKey)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Store persists one entity kind. Bodies are JSON encoded.
type Store[V any] struct {
	db       *bun.DB
	kind     string
	handlers store.ModelHandlers[string, V]
	codec    codec.Codec
}

var _ store.Store[string, struct{}] = (*Store[struct{}])(nil)

// New returns a store for the entity described by handlers. Migrate must have
// run against db.
func New[V any](db *bun.DB, handlers store.ModelHandlers[string, V]) *Store[V] {
	return &Store[V]{db: db, kind: handlers.Entity, handlers: handlers, codec: codec.JSON}
}

func (s *Store[V]) Create(ctx context.Context, value V) error {
	doc, err := s.encode(value)
	if err != nil {
		return err
	}
	id := doc.ID

	return s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*document)(nil)).
			Where("kind = ? AND id = ?", s.kind, id).
			Exists(ctx)
		if err != nil {
			return errors.StoreUnavailable(s.kind, err)
		}
		if exists {
			return errors.Conflict(s.kind, "duplicate id").With("id", id)
		}
		if err := s.checkKeys(ctx, tx, id, value); err != nil {
			return err
		}

		if _, err := tx.NewInsert().Model(doc).Exec(ctx); err != nil {
			return errors.StoreUnavailable(s.kind, err)
		}
		return s.insertKeys(ctx, tx, id, value)
	})
}

func (s *Store[V]) Get(ctx context.Context, id string) (V, error) {
	return s.get(ctx, s.db, id, func() error { return errors.NotFound(s.kind, id) })
}

func (s *Store[V]) GetBySecondaryKey(ctx context.Context, index, value string) (V, error) {
	notFound := func() error { return errors.NotFoundBySecondaryKey(s.kind, index, value) }

	key := new(documentKey)
	err := s.db.NewSelect().Model(key).
		Where("kind = ? AND index_name = ? AND key_value = ?", s.kind, index, value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		var zero V
		if stderrors.Is(err, sql.ErrNoRows) {
			return zero, notFound()
		}
		return zero, errors.StoreUnavailable(s.kind, err)
	}
	return s.get(ctx, s.db, key.ID, notFound)
}

func (s *Store[V]) Update(ctx context.Context, value V) error {
	doc, err := s.encode(value)
	if err != nil {
		return err
	}
	id := doc.ID

	return s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := s.checkKeys(ctx, tx, id, value); err != nil {
			return err
		}

		res, err := tx.NewUpdate().Model(doc).WherePK().Exec(ctx)
		if err != nil {
			return errors.StoreUnavailable(s.kind, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errors.NotFound(s.kind, id)
		}

		if err := s.deleteKeys(ctx, tx, id); err != nil {
			return err
		}
		return s.insertKeys(ctx, tx, id, value)
	})
}

func (s *Store[V]) Delete(ctx context.Context, id string) error {
	return s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*document)(nil)).
			Where("kind = ? AND id = ?", s.kind, id).
			Exec(ctx)
		if err != nil {
			return errors.StoreUnavailable(s.kind, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errors.NotFound(s.kind, id)
		}
		return s.deleteKeys(ctx, tx, id)
	})
}

func (s *Store[V]) runInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	err := s.db.RunInTx(ctx, nil, fn)
	if err == nil {
		return nil
	}
	var se *errors.Error
	if errors.As(err, &se) {
		return err
	}
	return errors.StoreUnavailable(s.kind, err)
}

func (s *Store[V]) get(ctx context.Context, db bun.IDB, id string, notFound func() error) (V, error) {
	var zero V

	doc := new(document)
	err := db.NewSelect().Model(doc).
		Where("kind = ? AND id = ?", s.kind, id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return zero, notFound()
		}
		return zero, errors.StoreUnavailable(s.kind, err)
	}

	var value V
	if err := s.codec.Unmarshal(doc.Body, &value); err != nil {
		return zero, errors.Wrap(errors.KindStoreUnavailable, s.kind, "corrupt document", err)
	}
	return value, nil
}

func (s *Store[V]) encode(value V) (*document, error) {
	body, err := s.codec.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, s.kind, "encode document", err)
	}
	doc := &document{Kind: s.kind, ID: s.handlers.GetID(value), Body: body}
	if s.handlers.GetTimestamps != nil {
		_, doc.UpdatedAt = s.handlers.GetTimestamps(value)
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	return doc, nil
}

func (s *Store[V]) checkKeys(ctx context.Context, tx bun.Tx, id string, value V) error {
	for index, key := range s.handlers.Keys(value) {
		owner := new(documentKey)
		err := tx.NewSelect().Model(owner).
			Where("kind = ? AND index_name = ? AND key_value = ?", s.kind, index, key).
			Limit(1).
			Scan(ctx)
		switch {
		case stderrors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			return errors.StoreUnavailable(s.kind, err)
		case owner.ID != id:
			return errors.Conflict(s.kind, index+" already in use").With(index, key)
		}
	}
	return nil
}

func (s *Store[V]) insertKeys(ctx context.Context, tx bun.Tx, id string, value V) error {
	for index, key := range s.handlers.Keys(value) {
		row := &documentKey{Kind: s.kind, IndexName: index, KeyValue: key, ID: id}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return errors.StoreUnavailable(s.kind, err)
		}
	}
	return nil
}

func (s *Store[V]) deleteKeys(ctx context.Context, tx bun.Tx, id string) error {
	_, err := tx.NewDelete().Model((*documentKey)(nil)).
		Where("kind = ? AND id = ?", s.kind, id).
		Exec(ctx)
	if err != nil {
		return errors.StoreUnavailable(s.kind, err)
	}
	return nil
}
