package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/uptrace/bun"

	"github.com/kauppa/kauppa-sub001/cache"
	"github.com/kauppa/kauppa-sub001/client"
	"github.com/kauppa/kauppa-sub001/pkg/clock"
	"github.com/kauppa/kauppa-sub001/pkg/config"
	"github.com/kauppa/kauppa-sub001/repositorycache"
	"github.com/kauppa/kauppa-sub001/store"
	"github.com/kauppa/kauppa-sub001/store/memory"
	"github.com/kauppa/kauppa-sub001/store/sqlstore"
)

// Container holds the process-wide singletons every service is built from:
// the lookup cache, the outbound transport, the store backend, the clock and
// the logger.
type Container struct {
	cfg       config.Config
	logger    *slog.Logger
	clock     clock.Clock
	lookups   cache.CacheService
	transport client.Transport
	db        *bun.DB
}

// Option overrides a Container default.
type Option func(*Container)

// WithClock replaces the wall clock, e.g. with a clock.Fake in tests.
func WithClock(c clock.Clock) Option {
	return func(ct *Container) { ct.clock = c }
}

// WithTransport replaces the HTTP transport used for remote services.
func WithTransport(t client.Transport) Option {
	return func(ct *Container) { ct.transport = t }
}

// NewContainer opens the configured store backend and lookup cache. Close
// releases them.
func NewContainer(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		cfg:    cfg,
		logger: logger,
		clock:  clock.Real(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = client.NewHTTPTransport(client.DefaultUserAgent)
	}

	if cfg.LookupCacheTTL > 0 {
		lookups, err := cache.NewCacheService(cache.LookupConfig(cfg.LookupCacheTTL))
		if err != nil {
			return nil, fmt.Errorf("lookup cache: %w", err)
		}
		c.lookups = lookups
	}

	if cfg.StoreDriver != "" && cfg.StoreDriver != "memory" {
		db, err := sqlstore.Open(cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		if err := sqlstore.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		c.db = db
		logger.Info("document store ready", "driver", cfg.StoreDriver)
	}

	return c, nil
}

// Config returns the configuration the container was built with.
func (c *Container) Config() config.Config { return c.cfg }

func (c *Container) Logger() *slog.Logger { return c.logger }

func (c *Container) Clock() clock.Clock { return c.clock }

// LookupCache returns the shared client lookup cache, or nil when disabled.
func (c *Container) LookupCache() cache.CacheService { return c.lookups }

// Close releases the store backend.
func (c *Container) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// NewRepository builds a cached repository over the configured backend.
// Go methods cannot have type parameters, so this is a package function.
func NewRepository[V any](c *Container, handlers store.ModelHandlers[string, V]) (*repositorycache.Repository[string, V], error) {
	var st store.Store[string, V]
	if c.db != nil {
		st = sqlstore.New(c.db, handlers)
	} else {
		st = memory.New(handlers)
	}
	return repositorycache.New[string, V](st, handlers, repositorycache.Options{
		Capacity: c.cfg.CacheCapacity,
		Clock:    c.clock,
		Logger:   c.logger,
	})
}

// Client returns a client for service. When local, the in-process handler
// serving it, is given the call goes over loopback; otherwise the configured
// endpoint is used. Without either the service is unreachable.
func (c *Container) Client(service string, local http.Handler) (*client.ServiceClient, error) {
	opts := []client.Option{
		client.WithServiceName(service),
		client.WithTimeout(c.cfg.ClientTimeout),
		client.WithLogger(c.logger),
	}
	if c.lookups != nil {
		opts = append(opts, client.WithLookupCache(c.lookups))
	}

	if local != nil {
		return client.New("http://"+service+".local", client.LoopbackTransport{Handler: local}, opts...)
	}
	endpoint, err := c.cfg.Endpoint(service)
	if err != nil {
		return nil, err
	}
	return client.New(endpoint, c.transport, opts...)
}
