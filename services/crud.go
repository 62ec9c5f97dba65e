package services

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kauppa/kauppa-sub001/dispatch"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/repositorycache"
)

// Repository is the part of repositorycache.Repository the services use.
type Repository[V any] interface {
	Entity() string
	Create(ctx context.Context, value V) (V, error)
	Get(ctx context.Context, id string) (V, error)
	GetBySecondaryKey(ctx context.Context, index, value string) (V, error)
	Update(ctx context.Context, id string, mutate func(*V) error) (V, error)
	Delete(ctx context.Context, id string) error
}

var _ Repository[struct{}] = (*repositorycache.Repository[string, struct{}])(nil)

// CRUD serves create, read, update and delete for one entity over its
// repository.
type CRUD[V any] struct {
	Routes CRUDRoutes
	Repo   Repository[V]

	// Prepare normalizes a decoded entity before it is validated.
	Prepare func(*V)

	// Verify checks a valid entity against other entities before it is
	// written, e.g. that a referenced product exists.
	Verify func(ctx context.Context, v *V) error
}

// Register binds all four routes.
func (c CRUD[V]) Register(r dispatch.Registrar) {
	r.AddRoute(c.Routes.Create, c.Create)
	r.AddRoute(c.Routes.Get, c.Get)
	r.AddRoute(c.Routes.Update, c.Update)
	r.AddRoute(c.Routes.Delete, c.Delete)
}

func (c CRUD[V]) Create(req dispatch.Request, res dispatch.ResponseSink) error {
	var in V
	if err := req.Decode(&in); err != nil {
		return err
	}
	if err := c.check(req.Context(), &in); err != nil {
		return err
	}

	created, err := c.Repo.Create(req.Context(), in)
	if err != nil {
		return err
	}
	return res.Write(http.StatusCreated, created)
}

func (c CRUD[V]) Get(req dispatch.Request, res dispatch.ResponseSink) error {
	v, err := c.Repo.Get(req.Context(), req.Param("id"))
	if err != nil {
		return err
	}
	return res.Write(http.StatusOK, v)
}

// Update replaces the entity with the request body. Identity and timestamps
// are kept by the repository.
func (c CRUD[V]) Update(req dispatch.Request, res dispatch.ResponseSink) error {
	var in V
	if err := req.Decode(&in); err != nil {
		return err
	}
	if err := c.check(req.Context(), &in); err != nil {
		return err
	}

	updated, err := c.Repo.Update(req.Context(), req.Param("id"), func(v *V) error {
		*v = in
		return nil
	})
	if err != nil {
		return err
	}
	return res.Write(http.StatusOK, updated)
}

func (c CRUD[V]) Delete(req dispatch.Request, _ dispatch.ResponseSink) error {
	return c.Repo.Delete(req.Context(), req.Param("id"))
}

func (c CRUD[V]) check(ctx context.Context, v *V) error {
	if c.Prepare != nil {
		c.Prepare(v)
	}
	if err := validate(c.Repo.Entity(), v); err != nil {
		return err
	}
	if c.Verify != nil {
		return c.Verify(ctx, v)
	}
	return nil
}

// Lookup serves a secondary-key read where the key arrives as the query
// parameter named like the index.
func Lookup[V any](repo Repository[V], index string, normalize func(string) string) dispatch.Handler {
	return func(req dispatch.Request, res dispatch.ResponseSink) error {
		value := req.Query(index)
		if value == "" {
			return errors.Newf(errors.KindDecodeFailed, repo.Entity(), "query parameter %q is required", index)
		}
		if normalize != nil {
			value = normalize(value)
		}

		v, err := repo.GetBySecondaryKey(req.Context(), index, value)
		if err != nil {
			return err
		}
		return res.Write(http.StatusOK, v)
	}
}

// validate runs the entity's own rules, if it has any. Field errors are
// reported in the payload details.
func validate(entity string, v any) error {
	vv, ok := v.(validation.Validatable)
	if !ok {
		return nil
	}
	err := vv.Validate()
	if err == nil {
		return nil
	}

	failed := errors.ValidationFailed(entity, err)
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fe := range fieldErrs {
			fields[name] = fe.Error()
		}
		return failed.With("fields", fields)
	}
	return failed
}
