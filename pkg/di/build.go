package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kauppa/kauppa-sub001/dispatch"
	"github.com/kauppa/kauppa-sub001/entity"
	"github.com/kauppa/kauppa-sub001/gateway"
	"github.com/kauppa/kauppa-sub001/pkg/config"
	"github.com/kauppa/kauppa-sub001/route"
	"github.com/kauppa/kauppa-sub001/services"
)

// App is a fully wired process: the services it serves, bound to one
// Dispatcher, optionally behind a gateway Bridge. Building an App does not
// listen on any port.
type App struct {
	Container  *Container
	Dispatcher *dispatch.Dispatcher
	Bridge     *gateway.Bridge
	Services   []services.Service
}

// Handler is what the HTTP server should serve.
func (a *App) Handler() http.Handler {
	if a.Bridge != nil {
		return a.Bridge
	}
	return a.Dispatcher
}

// Routes lists every route the process serves.
func (a *App) Routes() []route.Descriptor {
	return a.Dispatcher.Routes()
}

// Close releases the container's resources.
func (a *App) Close() error {
	return a.Container.Close()
}

// Build wires the services selected by cfg. Collaborators served in the same
// process are called over loopback; the rest need an endpoint, and a missing
// one fails the build.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	container, err := NewContainer(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	logger = container.Logger()

	var transport dispatch.Transport = dispatch.NewMuxTransport()
	if cfg.Transport == "servemux" {
		transport = dispatch.NewServeMuxTransport()
	}
	d := dispatch.New(transport,
		dispatch.WithLogger(logger),
		dispatch.WithClock(container.Clock()),
		dispatch.WithRateLimit(cfg.RateLimit, cfg.RateLimitBurst),
		dispatch.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	app := &App{Container: container, Dispatcher: d}
	var registrar dispatch.Registrar = d
	if cfg.GatewayBridge {
		app.Bridge = gateway.New(d, gateway.WithServiceName(cfg.Service), gateway.WithLogger(logger))
		registrar = app.Bridge
	}

	served := make(map[string]bool)
	for _, name := range services.Names() {
		if cfg.RunsAll() || cfg.Service == name {
			served[name] = true
		}
	}

	w := &wiring{container: container, dispatcher: d, served: served}
	for _, name := range services.Names() {
		if !served[name] {
			continue
		}
		svc, err := w.service(name)
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("build %s service: %w", name, err)
		}
		svc.Register(registrar)
		app.Services = append(app.Services, svc)
		logger.Debug("service registered", "name", name)
	}

	names := make([]string, 0, len(app.Services))
	for _, svc := range app.Services {
		names = append(names, svc.Name())
	}
	dispatch.RegisterStandardRoutes(d, func() map[string]any {
		return map[string]any{
			"service":  cfg.Service,
			"version":  cfg.Version,
			"services": names,
			"store":    cfg.StoreDriver,
			"gateway":  cfg.GatewayBridge,
		}
	})
	dispatch.MountMetrics(d)
	if app.Bridge != nil {
		app.Bridge.RegisterIntrospection()
	}

	return app, nil
}

type wiring struct {
	container  *Container
	dispatcher *dispatch.Dispatcher
	served     map[string]bool
}

func (w *wiring) local(service string) http.Handler {
	if w.served[service] {
		return w.dispatcher
	}
	return nil
}

func (w *wiring) products() (*services.ProductsClient, error) {
	c, err := w.container.Client(services.ServiceProducts, w.local(services.ServiceProducts))
	if err != nil {
		return nil, err
	}
	return services.NewProductsClient(c), nil
}

func (w *wiring) service(name string) (services.Service, error) {
	c := w.container

	switch name {
	case services.ServiceAccounts:
		repo, err := NewRepository(c, entity.AccountHandlers(nil))
		if err != nil {
			return nil, err
		}
		return services.Accounts{Repo: repo}, nil

	case services.ServiceProducts:
		repo, err := NewRepository(c, entity.ProductHandlers(nil))
		if err != nil {
			return nil, err
		}
		return services.Products{Repo: repo}, nil

	case services.ServiceCarts:
		repo, err := NewRepository(c, entity.CartHandlers(nil))
		if err != nil {
			return nil, err
		}
		products, err := w.products()
		if err != nil {
			return nil, err
		}
		return services.Carts{Repo: repo, Products: products}, nil

	case services.ServiceCoupons:
		repo, err := NewRepository(c, entity.CouponHandlers(nil))
		if err != nil {
			return nil, err
		}
		return services.Coupons{Repo: repo}, nil

	case services.ServiceGiftCards:
		repo, err := NewRepository(c, entity.GiftCardHandlers(nil))
		if err != nil {
			return nil, err
		}
		return services.GiftCards{Repo: repo, Clock: c.Clock()}, nil

	case services.ServiceOrders:
		repo, err := NewRepository(c, entity.OrderHandlers(nil))
		if err != nil {
			return nil, err
		}
		cartsClient, err := c.Client(services.ServiceCarts, w.local(services.ServiceCarts))
		if err != nil {
			return nil, err
		}
		couponsClient, err := c.Client(services.ServiceCoupons, w.local(services.ServiceCoupons))
		if err != nil {
			return nil, err
		}
		return services.Orders{
			Repo:    repo,
			Carts:   services.NewCartsClient(cartsClient),
			Coupons: services.NewCouponsClient(couponsClient),
			Clock:   c.Clock(),
			Logger:  c.Logger(),
		}, nil

	case services.ServiceShipments:
		repo, err := NewRepository(c, entity.ShipmentHandlers(nil))
		if err != nil {
			return nil, err
		}
		return services.Shipments{Repo: repo, Clock: c.Clock()}, nil

	case services.ServiceTax:
		countries, err := NewRepository(c, entity.TaxCountryHandlers(nil))
		if err != nil {
			return nil, err
		}
		regions, err := NewRepository(c, entity.RegionHandlers(nil))
		if err != nil {
			return nil, err
		}
		return services.Tax{Countries: countries, Regions: regions}, nil

	case services.ServiceReviews:
		repo, err := NewRepository(c, entity.ReviewHandlers(nil))
		if err != nil {
			return nil, err
		}
		products, err := w.products()
		if err != nil {
			return nil, err
		}
		return services.Reviews{Repo: repo, Products: products}, nil
	}

	return nil, fmt.Errorf("unknown service %q", name)
}
