// Package dispatch binds route descriptors to handlers on a concrete HTTP
// transport and turns handler results and errors into responses.
package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/kauppa/kauppa-sub001/pkg/clock"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/route"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Dispatcher owns the route table of one service. Each descriptor maps to
// exactly one handler; adding a route for an existing descriptor replaces its
// handler.
type Dispatcher struct {
	transport Transport
	logger    *slog.Logger
	clock     clock.Clock
	limiter   *rate.Limiter
	rateLimit rate.Limit
	burst     int
	maxBody   int64

	mu       sync.RWMutex
	handlers map[route.Descriptor]Handler
	raw      map[route.Descriptor]http.Handler
	bound    map[route.Descriptor]bool

	handler http.Handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithRateLimit admits at most rps requests per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Dispatcher) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		d.rateLimit = rate.Limit(rps)
		d.burst = burst
		d.limiter = rate.NewLimiter(d.rateLimit, burst)
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBody = n
		}
	}
}

// New creates a Dispatcher serving through transport.
func New(transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport: transport,
		logger:    slog.Default(),
		clock:     clock.Real(),
		maxBody:   DefaultMaxBodyBytes,
		handlers:  make(map[route.Descriptor]Handler),
		raw:       make(map[route.Descriptor]http.Handler),
		bound:     make(map[route.Descriptor]bool),
	}
	for _, opt := range opts {
		opt(d)
	}

	transport.SetFallbacks(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d.writeErrorHTTP(w, r, errors.Newf(errors.KindNotFound, "", "no route for %s %s", r.Method, r.URL.Path))
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d.writeErrorHTTP(w, r, errors.Newf(errors.KindMethodNotAllowed, "", "%s not allowed on %s", r.Method, r.URL.Path))
		}),
	)
	d.handler = d.chain(transport)
	return d
}

// AddRoute binds h to desc, replacing any handler already bound to it,
// including one mounted with Mount.
func (d *Dispatcher) AddRoute(desc route.Descriptor, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bindLocked(desc)
	delete(d.raw, desc)
	d.handlers[desc] = h
	d.logger.Debug("route added", "method", desc.Method, "route", desc.Pattern)
}

// Mount binds a raw http.Handler, bypassing handler dispatch. It is meant for
// endpoints like /metrics that produce their own responses. Like AddRoute it
// replaces whatever desc was bound to.
func (d *Dispatcher) Mount(desc route.Descriptor, h http.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bindLocked(desc)
	delete(d.handlers, desc)
	d.raw[desc] = h
	d.logger.Debug("route mounted", "method", desc.Method, "route", desc.Pattern)
}

// bindLocked registers desc with the transport once. The registered entry
// resolves the current binding on every request.
func (d *Dispatcher) bindLocked(desc route.Descriptor) {
	if d.bound[desc] {
		return
	}
	d.bound[desc] = true
	d.transport.Register(desc, d.entry(desc))
}

// Lookup returns the handler currently bound to desc.
func (d *Dispatcher) Lookup(desc route.Descriptor) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[desc]
	return h, ok
}

// Routes lists the bound descriptors ordered by pattern then verb.
func (d *Dispatcher) Routes() []route.Descriptor {
	d.mu.RLock()
	out := make([]route.Descriptor, 0, len(d.handlers))
	for desc := range d.handlers {
		out = append(out, desc)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ServeHTTP runs the middleware chain and the transport.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.handler.ServeHTTP(w, r)
}

// Dispatch runs the handler bound to the request's descriptor against
// already-translated request and response objects. Unbound descriptors are
// reported as not found.
func (d *Dispatcher) Dispatch(req Request, res ResponseSink) {
	desc := req.Route()
	h, ok := d.Lookup(desc)
	if !ok {
		d.writeError(req, res, errors.Newf(errors.KindNotFound, "", "no route for %s", desc))
		return
	}

	d.logger.Debug("dispatching",
		"method", desc.Method,
		"route", desc.Pattern,
		"requestID", req.RequestID(),
	)

	if err := h(req, res); err != nil {
		d.writeError(req, res, err)
	}
}

func (d *Dispatcher) entry(desc route.Descriptor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		markRoute(r.Context(), desc)

		d.mu.RLock()
		raw := d.raw[desc]
		d.mu.RUnlock()
		if raw != nil {
			raw.ServeHTTP(w, r)
			return
		}

		req := &httpRequest{
			r:         r,
			route:     desc,
			params:    d.transport.PathParams(r, desc),
			requestID: RequestIDFromContext(r.Context()),
			maxBody:   d.maxBody,
		}
		res := newHTTPResponse(w, r)

		d.Dispatch(req, res)
		switch {
		case res.written:
		case res.encodeErr != nil:
			d.writeError(req, res, res.encodeErr)
		default:
			res.Write(http.StatusNoContent, nil)
		}
	})
}

// writeError maps err to its status and payload. Handlers that already wrote a
// response only get the error logged.
func (d *Dispatcher) writeError(req Request, res ResponseSink, err error) {
	kind := errors.KindOf(err)
	status := errors.StatusFor(kind)
	desc := req.Route()

	if status >= http.StatusInternalServerError {
		d.logger.Error("request failed",
			"method", desc.Method, "route", desc.Pattern,
			"status", status, "requestID", req.RequestID(), "error", err)
	} else {
		d.logger.Debug("request rejected",
			"method", desc.Method, "route", desc.Pattern,
			"status", status, "requestID", req.RequestID(), "error", err)
	}

	if hr, ok := res.(*httpResponse); ok && hr.written {
		return
	}
	payload := errors.ToPayload(err, req.RequestID(), d.clock.Now())
	if werr := res.Write(status, payload); werr != nil {
		d.logger.Debug("error response not written", "error", werr)
	}
}

func (d *Dispatcher) writeErrorHTTP(w http.ResponseWriter, r *http.Request, err error) {
	kind := errors.KindOf(err)
	payload := errors.ToPayload(err, RequestIDFromContext(r.Context()), d.clock.Now())
	newHTTPResponse(w, r).Write(errors.StatusFor(kind), payload)
}

type matchedRouteKey struct{}

type matchedRoute struct {
	desc  route.Descriptor
	found bool
}

func withRouteSlot(ctx context.Context) (context.Context, *matchedRoute) {
	slot := &matchedRoute{}
	return context.WithValue(ctx, matchedRouteKey{}, slot), slot
}

// markRoute records the matched descriptor for middleware running outside
// the transport.
func markRoute(ctx context.Context, desc route.Descriptor) {
	if slot, ok := ctx.Value(matchedRouteKey{}).(*matchedRoute); ok {
		slot.desc = desc
		slot.found = true
	}
}
