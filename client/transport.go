package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Request is one outbound call. A new Request is built for every invocation.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the raw result of a call. It is not modified after Send returns.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Transport carries a Request to a remote service. Implementations must honour
// ctx cancellation and return an error when the service cannot be reached;
// non-2xx answers are not errors at this level.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

const (
	DefaultUserAgent             = "kauppa-client/1.0"
	DefaultConnectTimeout        = 5 * time.Second
	DefaultKeepAlive             = 30 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultMaxIdleConnsPerHost   = 10
)

// HTTPTransport sends requests over HTTP with a tuned connection pool.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a transport identifying itself as userAgent. The
// per-call deadline comes from the context, not from the http.Client.
func NewHTTPTransport(userAgent string) *HTTPTransport {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		ForceAttemptHTTP2:     true,
	}

	return &HTTPTransport{client: &http.Client{
		Transport: &userAgentRoundTripper{Wrapped: base, UserAgent: userAgent},
	}}
}

// NewHTTPTransportWithClient wraps an existing client, e.g. one from httptest.
func NewHTTPTransportWithClient(c *http.Client) *HTTPTransport {
	return &HTTPTransport{client: c}
}

func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// CloseIdleConnections releases pooled connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// userAgentRoundTripper sets the User-Agent header on every request.
type userAgentRoundTripper struct {
	Wrapped   http.RoundTripper
	UserAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.UserAgent)
	return rt.Wrapped.RoundTrip(clone)
}

// LoopbackTransport serves calls with an in-process http.Handler, typically a
// Dispatcher of a co-located service.
type LoopbackTransport struct {
	Handler http.Handler
}

func (t LoopbackTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	rec := &bufferedResponse{header: make(http.Header)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.Handler.ServeHTTP(rec, httpReq)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{StatusCode: status, Headers: rec.header, Body: rec.body.Bytes()}, nil
}

type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}
