package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/pkg/metrics"
)

// HeaderRequestID carries the request id between services.
const HeaderRequestID = "X-Request-Id"

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by the request id middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID stores id for RequestIDFromContext. Clients use it to
// propagate the caller's id downstream.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// chain wraps next with the standard middleware stack, outermost first:
// metrics, request id, panic recovery, rate limiting, logging.
func (d *Dispatcher) chain(next http.Handler) http.Handler {
	return d.metricsMiddleware(
		d.requestIDMiddleware(
			d.panicRecoveryMiddleware(
				d.rateLimitMiddleware(
					d.loggingMiddleware(next),
				),
			),
		),
	)
}

func (d *Dispatcher) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		ctx, slot := withRouteSlot(r.Context())
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r.WithContext(ctx))

		// Unmatched paths share one label to keep cardinality bounded.
		label := "unmatched"
		if slot.found {
			label = slot.desc.Pattern
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, label, strconv.Itoa(rec.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())
	})
}

func (d *Dispatcher) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), requestID)))
	})
}

func (d *Dispatcher) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				metrics.PanicRecoveries.Inc()
				d.logger.Error("panic recovered",
					"error", fmt.Sprintf("%v", rec),
					"requestID", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"method", r.Method,
				)
				d.writeErrorHTTP(w, r, errors.New(errors.KindInternal, "", "internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (d *Dispatcher) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		if !d.limiter.Allow() {
			metrics.RateLimitRejects.Inc()
			w.Header().Set("Retry-After", "1")
			d.writeErrorHTTP(w, r, errors.New(errors.KindRateLimited, "", "rate limit exceeded").
				With("limit", float64(d.rateLimit)).
				With("burst", d.burst))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(d.rateLimit)))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(d.limiter.Tokens())))
		next.ServeHTTP(w, r)
	})
}

func (d *Dispatcher) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		d.logger.Debug("request completed",
			"requestID", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
