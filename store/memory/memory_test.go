package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/store"
)

type user struct {
	ID      string
	Email   string
	Created time.Time
	Updated time.Time
}

func userHandlers() store.ModelHandlers[string, user] {
	return store.ModelHandlers[string, user]{
		Entity: "user",
		GetID:  func(u user) string { return u.ID },
		SetID:  func(u *user, id string) { u.ID = id },
		SecondaryKeys: func(u user) map[string]string {
			return map[string]string{"email": u.Email}
		},
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New(userHandlers())

	if err := s.Create(ctx, user{ID: "1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, "1")
	if err != nil || got.Email != "a@example.com" {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	byEmail, err := s.GetBySecondaryKey(ctx, "email", "a@example.com")
	if err != nil || byEmail.ID != "1" {
		t.Fatalf("GetBySecondaryKey = %+v, %v", byEmail, err)
	}

	if err := s.Update(ctx, user{ID: "1", Email: "b@example.com"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := s.GetBySecondaryKey(ctx, "email", "a@example.com"); !errors.Is(err, errors.KindNotFoundBySecondaryKey) {
		t.Errorf("old email should be unindexed, got %v", err)
	}
	if _, err := s.GetBySecondaryKey(ctx, "email", "b@example.com"); err != nil {
		t.Errorf("new email should be indexed: %v", err)
	}

	if err := s.Delete(ctx, "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "1"); !errors.Is(err, errors.KindNotFound) {
		t.Errorf("Get after delete = %v, want not found", err)
	}
	if _, err := s.GetBySecondaryKey(ctx, "email", "b@example.com"); !errors.Is(err, errors.KindNotFoundBySecondaryKey) {
		t.Errorf("email should be unindexed after delete, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
}

func TestStoreConflicts(t *testing.T) {
	ctx := context.Background()
	s := New(userHandlers())

	s.Create(ctx, user{ID: "1", Email: "a@example.com"})
	s.Create(ctx, user{ID: "2", Email: "b@example.com"})

	tests := []struct {
		name string
		op   func() error
	}{
		{"duplicate id", func() error { return s.Create(ctx, user{ID: "1", Email: "c@example.com"}) }},
		{"duplicate email on create", func() error { return s.Create(ctx, user{ID: "3", Email: "a@example.com"}) }},
		{"duplicate email on update", func() error { return s.Update(ctx, user{ID: "2", Email: "a@example.com"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, errors.KindConflict) {
				t.Errorf("expected conflict, got %v", err)
			}
		})
	}
}

func TestStoreMissing(t *testing.T) {
	ctx := context.Background()
	s := New(userHandlers())

	if err := s.Update(ctx, user{ID: "x"}); !errors.Is(err, errors.KindNotFound) {
		t.Errorf("Update missing = %v", err)
	}
	if err := s.Delete(ctx, "x"); !errors.Is(err, errors.KindNotFound) {
		t.Errorf("Delete missing = %v", err)
	}
}

func TestStoreEmptySecondaryKeyNotIndexed(t *testing.T) {
	ctx := context.Background()
	s := New(userHandlers())

	s.Create(ctx, user{ID: "1"})
	if err := s.Create(ctx, user{ID: "2"}); err != nil {
		t.Fatalf("empty keys must not collide: %v", err)
	}
}
