// Package gateway puts a service's Dispatcher behind an external aggregator.
// Handlers registered through a Bridge see canonical request and response
// objects; which handler runs for a descriptor is decided by the Dispatcher
// alone.
package gateway

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/kauppa/kauppa-sub001/dispatch"
	"github.com/kauppa/kauppa-sub001/route"
)

// RoutesRoute lists the bridged routes for the aggregator.
var RoutesRoute = route.Get("/_gateway/routes")

// Registration is one bridged route as advertised to the aggregator.
type Registration struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// Bridge wraps a Dispatcher and records every handler registered through it.
type Bridge struct {
	dispatcher *dispatch.Dispatcher
	registry   *xsync.MapOf[route.Descriptor, dispatch.Handler]
	service    string
	logger     *slog.Logger
}

var _ dispatch.Registrar = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithServiceName sets the service name reported in registrations.
func WithServiceName(name string) Option {
	return func(b *Bridge) { b.service = name }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New wraps d. The Bridge owns d from here on; routes should be added through
// the Bridge.
func New(d *dispatch.Dispatcher, opts ...Option) *Bridge {
	b := &Bridge{
		dispatcher: d,
		registry:   xsync.NewMapOf[route.Descriptor, dispatch.Handler](),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddRoute records h under desc and installs an adapter for it on the
// Dispatcher. A later registration for the same descriptor replaces both.
func (b *Bridge) AddRoute(desc route.Descriptor, h dispatch.Handler) {
	b.registry.Store(desc, h)
	b.dispatcher.AddRoute(desc, adapt(h))
	b.logger.Debug("gateway route added", "method", desc.Method, "route", desc.Pattern)
}

// adapt translates the dispatcher's request and sink into canonical form
// around h. Errors from h are returned unchanged so the Dispatcher maps them.
func adapt(h dispatch.Handler) dispatch.Handler {
	return func(req dispatch.Request, sink dispatch.ResponseSink) error {
		res := newResponse()
		herr := h(FromDispatch(req), res)
		if err := res.flush(sink); err != nil && herr == nil {
			return err
		}
		return herr
	}
}

// Handler returns the handler originally registered for desc.
func (b *Bridge) Handler(desc route.Descriptor) (dispatch.Handler, bool) {
	return b.registry.Load(desc)
}

// Registrations lists the bridged routes ordered by pattern then verb.
func (b *Bridge) Registrations() []Registration {
	out := make([]Registration, 0, b.registry.Size())
	b.registry.Range(func(desc route.Descriptor, _ dispatch.Handler) bool {
		out = append(out, Registration{
			Service: b.service,
			Method:  string(desc.Method),
			Pattern: desc.Pattern,
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Dispatcher returns the wrapped Dispatcher.
func (b *Bridge) Dispatcher() *dispatch.Dispatcher { return b.dispatcher }

// RegisterIntrospection serves Registrations at RoutesRoute. The route is
// bound on the Dispatcher directly and is not itself advertised.
func (b *Bridge) RegisterIntrospection() {
	b.dispatcher.AddRoute(RoutesRoute, func(_ dispatch.Request, res dispatch.ResponseSink) error {
		return res.Write(http.StatusOK, b.Registrations())
	})
}

// ServeHTTP serves through the wrapped Dispatcher.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.dispatcher.ServeHTTP(w, r)
}
