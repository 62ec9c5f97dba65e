package dispatch

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kauppa/kauppa-sub001/route"
)

var (
	HealthRoute  = route.Get("/health")
	InfoRoute    = route.Get("/info")
	MetricsRoute = route.Get("/metrics")
)

// RegisterStandardRoutes adds health and info endpoints. info is called per
// request and may be nil.
func RegisterStandardRoutes(r Registrar, info func() map[string]any) {
	r.AddRoute(HealthRoute, func(_ Request, res ResponseSink) error {
		return res.Write(http.StatusOK, map[string]string{"status": "ok"})
	})
	r.AddRoute(InfoRoute, func(_ Request, res ResponseSink) error {
		body := map[string]any{}
		if info != nil {
			body = info()
		}
		return res.Write(http.StatusOK, body)
	})
}

// MountMetrics exposes the default Prometheus registry.
func MountMetrics(d *Dispatcher) {
	d.Mount(MetricsRoute, promhttp.Handler())
}
