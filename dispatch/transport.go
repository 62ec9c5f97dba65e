package dispatch

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/kauppa/kauppa-sub001/route"
)

// Transport is the concrete HTTP router a Dispatcher binds routes to. The
// Dispatcher registers each descriptor at most once, so implementations never
// see duplicate registrations.
type Transport interface {
	http.Handler

	// Register binds h to the descriptor's verb and pattern.
	Register(d route.Descriptor, h http.Handler)

	// PathParams extracts the descriptor's parameter values from a matched request.
	PathParams(r *http.Request, d route.Descriptor) map[string]string

	// SetFallbacks installs the handlers for unmatched paths and for known
	// paths requested with an unregistered verb.
	SetFallbacks(notFound, methodNotAllowed http.Handler)
}

// MuxTransport binds routes on a gorilla/mux router.
type MuxTransport struct {
	router *mux.Router
}

// NewMuxTransport returns a Transport backed by gorilla/mux.
func NewMuxTransport() *MuxTransport {
	return &MuxTransport{router: mux.NewRouter()}
}

func (t *MuxTransport) Register(d route.Descriptor, h http.Handler) {
	t.router.Handle(d.Template(), h).Methods(string(d.Method))
}

func (t *MuxTransport) PathParams(r *http.Request, _ route.Descriptor) map[string]string {
	return mux.Vars(r)
}

func (t *MuxTransport) SetFallbacks(notFound, methodNotAllowed http.Handler) {
	t.router.NotFoundHandler = notFound
	t.router.MethodNotAllowedHandler = methodNotAllowed
}

func (t *MuxTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.router.ServeHTTP(w, r)
}

// ServeMuxTransport binds routes on a net/http ServeMux using method-qualified
// patterns.
type ServeMuxTransport struct {
	mux *http.ServeMux

	mu       sync.Mutex
	paths    map[string]bool
	fallback http.Handler
	notAllow http.Handler
}

// NewServeMuxTransport returns a Transport backed by the standard library mux.
func NewServeMuxTransport() *ServeMuxTransport {
	t := &ServeMuxTransport{
		mux:      http.NewServeMux(),
		paths:    make(map[string]bool),
		fallback: http.NotFoundHandler(),
		notAllow: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}),
	}
	t.mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.fallbackHandler().ServeHTTP(w, r)
	}))
	return t
}

func (t *ServeMuxTransport) Register(d route.Descriptor, h http.Handler) {
	tmpl := d.Template()
	t.mux.Handle(string(d.Method)+" "+tmpl, h)

	t.mu.Lock()
	defer t.mu.Unlock()
	if tmpl != "/" && !t.paths[tmpl] {
		t.paths[tmpl] = true
		// A verb-less pattern catches the same path with any other verb.
		t.mux.Handle(tmpl, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.methodNotAllowedHandler().ServeHTTP(w, r)
		}))
	}
}

func (t *ServeMuxTransport) PathParams(r *http.Request, d route.Descriptor) map[string]string {
	names := d.Params()
	params := make(map[string]string, len(names))
	for _, name := range names {
		params[name] = r.PathValue(name)
	}
	return params
}

func (t *ServeMuxTransport) SetFallbacks(notFound, methodNotAllowed http.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = notFound
	t.notAllow = methodNotAllowed
}

func (t *ServeMuxTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mux.ServeHTTP(w, r)
}

func (t *ServeMuxTransport) fallbackHandler() http.Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fallback
}

func (t *ServeMuxTransport) methodNotAllowedHandler() http.Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notAllow
}
