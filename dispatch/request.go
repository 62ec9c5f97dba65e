package dispatch

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/kauppa/kauppa-sub001/codec"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/route"
)

// Request is what a Handler sees of an incoming call.
type Request interface {
	Context() context.Context
	Route() route.Descriptor
	Param(name string) string
	Params() map[string]string
	Query(name string) string
	QueryValues() url.Values
	Header(name string) string
	Headers() http.Header
	RequestID() string

	// Body returns the raw request body. It can be called more than once.
	Body() ([]byte, error)

	// Decode unmarshals the body using the codec named by Content-Type.
	// Failures are reported as DecodeFailed.
	Decode(v any) error
}

// ResponseSink receives a Handler's result. Write may be called once.
type ResponseSink interface {
	SetHeader(key, value string)
	Write(status int, payload any) error
}

// Handler is the business logic bound to a route descriptor.
type Handler func(req Request, res ResponseSink) error

// Registrar accepts route bindings. Dispatcher and gateway.Bridge both
// implement it, so services register the same way behind either.
type Registrar interface {
	AddRoute(d route.Descriptor, h Handler)
}

type httpRequest struct {
	r         *http.Request
	route     route.Descriptor
	params    map[string]string
	requestID string
	maxBody   int64

	body    []byte
	bodyErr error
	read    bool
}

func (q *httpRequest) Context() context.Context  { return q.r.Context() }
func (q *httpRequest) Route() route.Descriptor   { return q.route }
func (q *httpRequest) Param(name string) string  { return q.params[name] }
func (q *httpRequest) Query(name string) string  { return q.r.URL.Query().Get(name) }
func (q *httpRequest) QueryValues() url.Values   { return q.r.URL.Query() }
func (q *httpRequest) Header(name string) string { return q.r.Header.Get(name) }
func (q *httpRequest) Headers() http.Header      { return q.r.Header }
func (q *httpRequest) RequestID() string         { return q.requestID }

func (q *httpRequest) Params() map[string]string {
	out := make(map[string]string, len(q.params))
	for k, v := range q.params {
		out[k] = v
	}
	return out
}

func (q *httpRequest) Body() ([]byte, error) {
	if q.read {
		return q.body, q.bodyErr
	}
	q.read = true
	if q.r.Body == nil {
		return nil, nil
	}

	limited := io.LimitReader(q.r.Body, q.maxBody+1)
	q.body, q.bodyErr = io.ReadAll(limited)
	if q.bodyErr == nil && int64(len(q.body)) > q.maxBody {
		q.body = nil
		q.bodyErr = errors.Newf(errors.KindDecodeFailed, "", "request body exceeds %d bytes", q.maxBody)
	}
	return q.body, q.bodyErr
}

func (q *httpRequest) Decode(v any) error {
	body, err := q.Body()
	if err != nil {
		return errors.DecodeFailed("", err)
	}
	return DecodeBody(q.Header("Content-Type"), body, v)
}

// DecodeBody unmarshals body with the codec for contentType.
func DecodeBody(contentType string, body []byte, v any) error {
	if len(body) == 0 {
		return errors.New(errors.KindDecodeFailed, "", "request body is empty")
	}
	c, ok := codec.ForContentType(contentType)
	if !ok {
		return errors.Newf(errors.KindDecodeFailed, "", "unsupported content type %q", contentType)
	}
	if err := c.Unmarshal(body, v); err != nil {
		return errors.DecodeFailed("", err)
	}
	return nil
}
