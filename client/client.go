// Package client calls other services through their route descriptors and
// maps remote failures back onto the shared error kinds.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kauppa/kauppa-sub001/cache"
	"github.com/kauppa/kauppa-sub001/codec"
	"github.com/kauppa/kauppa-sub001/dispatch"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/pkg/metrics"
	"github.com/kauppa/kauppa-sub001/route"
)

// DefaultTimeout bounds a call when no timeout option is given.
const DefaultTimeout = 5 * time.Second

// Call carries the per-invocation inputs of a descriptor.
type Call struct {
	Path  map[string]string
	Query url.Values
	Body  any
}

// ServiceClient invokes routes of one remote service. It holds no per-call
// state and is safe for concurrent use.
type ServiceClient struct {
	base       *url.URL
	transport  Transport
	service    string
	timeout    time.Duration
	codec      codec.Codec
	userAgent  string
	logger     *slog.Logger
	lookups    cache.CacheService
	serializer cache.KeySerializer
}

// Option configures a ServiceClient.
type Option func(*ServiceClient)

func WithTimeout(d time.Duration) Option {
	return func(c *ServiceClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCodec sets the body encoding used for requests. Responses are decoded
// according to their Content-Type.
func WithCodec(cd codec.Codec) Option {
	return func(c *ServiceClient) {
		if cd != nil {
			c.codec = cd
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *ServiceClient) { c.userAgent = ua }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *ServiceClient) { c.logger = logger }
}

// WithServiceName labels errors, logs and metrics. It defaults to the base
// URL host.
func WithServiceName(name string) Option {
	return func(c *ServiceClient) { c.service = name }
}

// WithLookupCache enables Lookup caching through svc.
func WithLookupCache(svc cache.CacheService) Option {
	return func(c *ServiceClient) { c.lookups = svc }
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, transport Transport, opts ...Option) (*ServiceClient, error) {
	if transport == nil {
		return nil, fmt.Errorf("client: transport is required")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", baseURL)
	}

	c := &ServiceClient{
		base:       base,
		transport:  transport,
		service:    base.Host,
		timeout:    DefaultTimeout,
		codec:      codec.JSON,
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
		serializer: cache.NewDefaultKeySerializer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("service", c.service)
	return c, nil
}

// Service returns the name the client reports itself under.
func (c *ServiceClient) Service() string { return c.service }

// BaseURL returns the root the client resolves routes against.
func (c *ServiceClient) BaseURL() string { return c.base.String() }

// Invoke calls desc and decodes a 2xx body into a T.
func Invoke[T any](ctx context.Context, c *ServiceClient, desc route.Descriptor, call Call) (T, error) {
	var out T
	if err := c.Do(ctx, desc, call, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Lookup is Invoke for idempotent reads. With a lookup cache configured,
// successful GET responses are reused until they expire. Other verbs are not
// cached.
func Lookup[T any](ctx context.Context, c *ServiceClient, desc route.Descriptor, call Call) (T, error) {
	var zero T
	if c.lookups == nil || desc.Method != route.MethodGet {
		return Invoke[T](ctx, c, desc, call)
	}

	path, err := desc.Expand(call.Path)
	if err != nil {
		return zero, err
	}

	key := c.LookupKey(desc, call)
	resp, err := cache.GetOrFetch(ctx, c.lookups, key, func(ctx context.Context) (*Response, error) {
		return c.send(ctx, desc, path, call.Query, nil)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := c.decode(desc, resp, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// LookupKey returns the lookup cache key for a call. Keys start with the
// service name and descriptor, so Invalidate can drop them by prefix.
func (c *ServiceClient) LookupKey(desc route.Descriptor, call Call) string {
	return c.serializer.SerializeKey(c.lookupPrefix(desc), call.Path, call.Query)
}

// Invalidate drops every cached lookup of desc.
func (c *ServiceClient) Invalidate(ctx context.Context, desc route.Descriptor) error {
	if c.lookups == nil {
		return nil
	}
	return c.lookups.DeleteByPrefix(ctx, c.lookupPrefix(desc))
}

func (c *ServiceClient) lookupPrefix(desc route.Descriptor) string {
	return c.service + cache.KeySeparator + desc.String()
}

// Do calls desc and decodes a 2xx body into out. out may be nil when the
// response body is not needed.
func (c *ServiceClient) Do(ctx context.Context, desc route.Descriptor, call Call, out any) error {
	path, err := desc.Expand(call.Path)
	if err != nil {
		return err
	}

	var body []byte
	if call.Body != nil {
		body, err = c.codec.Marshal(call.Body)
		if err != nil {
			return errors.Wrap(errors.KindInternal, "", "encode request body", err)
		}
	}

	resp, err := c.send(ctx, desc, path, call.Query, body)
	if err != nil {
		return err
	}
	return c.decode(desc, resp, out)
}

// send performs one round trip and returns only 2xx responses.
func (c *ServiceClient) send(ctx context.Context, desc route.Descriptor, path string, query url.Values, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &Request{
		Method: string(desc.Method),
		URL:    c.resolve(path, query),
		Headers: map[string]string{
			"Accept":     c.codec.ContentType(),
			"User-Agent": c.userAgent,
		},
		Body: body,
	}
	if len(body) > 0 {
		req.Headers["Content-Type"] = c.codec.ContentType()
	}
	if id := dispatch.RequestIDFromContext(ctx); id != "" {
		req.Headers[dispatch.HeaderRequestID] = id
	}

	start := time.Now()
	resp, err := c.transport.Send(ctx, req)
	metrics.ClientCallDuration.WithLabelValues(c.service, desc.Pattern).Observe(time.Since(start).Seconds())

	if err != nil {
		c.observe(desc, "unavailable")
		c.logger.Warn("service call failed",
			"method", desc.Method, "route", desc.Pattern, "error", err)
		return nil, errors.TransportUnavailable(c.service, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.observe(desc, "error")
		remote := c.remoteError(resp)
		c.logger.Debug("service call rejected",
			"method", desc.Method, "route", desc.Pattern,
			"status", resp.StatusCode, "code", remote.Kind)
		return nil, remote
	}

	c.observe(desc, "ok")
	return resp, nil
}

// resolve joins the already escaped path onto the base URL.
func (c *ServiceClient) resolve(path string, query url.Values) string {
	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func (c *ServiceClient) decode(desc route.Descriptor, resp *Response, out any) error {
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	cd := c.responseCodec(resp)
	if err := cd.Unmarshal(resp.Body, out); err != nil {
		return errors.DecodeFailed("", fmt.Errorf("%s response: %w", desc, err))
	}
	return nil
}

// remoteError rebuilds the error a service reported. A body that is not an
// error payload falls back to the status code.
func (c *ServiceClient) remoteError(resp *Response) *errors.Error {
	if len(resp.Body) == 0 {
		return errors.FromPayload(resp.StatusCode, nil)
	}
	var p errors.Payload
	if err := c.responseCodec(resp).Unmarshal(resp.Body, &p); err != nil {
		return errors.FromPayload(resp.StatusCode, nil)
	}
	return errors.FromPayload(resp.StatusCode, &p)
}

func (c *ServiceClient) responseCodec(resp *Response) codec.Codec {
	if resp.Headers != nil {
		if cd, ok := codec.ForContentType(resp.Headers.Get("Content-Type")); ok {
			return cd
		}
	}
	return c.codec
}

func (c *ServiceClient) observe(desc route.Descriptor, outcome string) {
	metrics.ClientCalls.WithLabelValues(c.service, desc.Pattern, outcome).Inc()
}
