package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/kauppa/kauppa-sub001/dispatch"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
	"github.com/kauppa/kauppa-sub001/route"
)

// HeaderPrefix marks headers set by the aggregator in front of the service.
const HeaderPrefix = "X-Gateway-"

// Metadata is what the aggregator tells a service about a forwarded call.
type Metadata struct {
	// Aggregator names the gateway that forwarded the call (X-Gateway-Name).
	Aggregator string `json:"aggregator,omitempty"`
	// Origin is the client address seen by the gateway (X-Gateway-Origin).
	Origin string `json:"origin,omitempty"`
	// Extra holds every other X-Gateway-* header, keyed without the prefix.
	Extra map[string]string `json:"extra,omitempty"`
}

// Request is the canonical request a bridged handler receives. Headers are
// flattened to their first value and the body is read once up front.
type Request struct {
	ctx        context.Context
	Descriptor route.Descriptor
	PathParams map[string]string
	QueryArgs  url.Values
	HeaderMap  map[string]string
	Payload    []byte
	ID         string
	Gateway    Metadata

	bodyErr error
}

var _ dispatch.Request = (*Request)(nil)

// FromDispatch translates a dispatcher request into canonical form.
func FromDispatch(req dispatch.Request) *Request {
	headers := make(map[string]string, len(req.Headers()))
	meta := Metadata{}
	for name, values := range req.Headers() {
		if len(values) == 0 {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		headers[canonical] = values[0]

		if !strings.HasPrefix(canonical, HeaderPrefix) {
			continue
		}
		switch key := strings.TrimPrefix(canonical, HeaderPrefix); key {
		case "Name":
			meta.Aggregator = values[0]
		case "Origin":
			meta.Origin = values[0]
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]string)
			}
			meta.Extra[key] = values[0]
		}
	}

	body, err := req.Body()
	return &Request{
		ctx:        req.Context(),
		Descriptor: req.Route(),
		PathParams: req.Params(),
		QueryArgs:  req.QueryValues(),
		HeaderMap:  headers,
		Payload:    body,
		ID:         req.RequestID(),
		Gateway:    meta,
		bodyErr:    err,
	}
}

func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r *Request) Route() route.Descriptor  { return r.Descriptor }
func (r *Request) Param(name string) string { return r.PathParams[name] }
func (r *Request) Query(name string) string { return r.QueryArgs.Get(name) }
func (r *Request) RequestID() string        { return r.ID }

func (r *Request) Params() map[string]string {
	out := make(map[string]string, len(r.PathParams))
	for k, v := range r.PathParams {
		out[k] = v
	}
	return out
}

func (r *Request) QueryValues() url.Values {
	out := make(url.Values, len(r.QueryArgs))
	for k, v := range r.QueryArgs {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (r *Request) Header(name string) string {
	return r.HeaderMap[http.CanonicalHeaderKey(name)]
}

func (r *Request) Headers() http.Header {
	out := make(http.Header, len(r.HeaderMap))
	for k, v := range r.HeaderMap {
		out.Set(k, v)
	}
	return out
}

func (r *Request) Body() ([]byte, error) { return r.Payload, r.bodyErr }

func (r *Request) Decode(v any) error {
	if r.bodyErr != nil {
		return errors.DecodeFailed("", r.bodyErr)
	}
	return dispatch.DecodeBody(r.Header("Content-Type"), r.Payload, v)
}

// Response records what a bridged handler produced until it is flushed to
// the dispatcher's sink.
type Response struct {
	Status    int
	HeaderMap map[string]string
	Payload   any

	written bool
}

var _ dispatch.ResponseSink = (*Response)(nil)

func newResponse() *Response {
	return &Response{HeaderMap: make(map[string]string)}
}

func (r *Response) SetHeader(key, value string) {
	r.HeaderMap[http.CanonicalHeaderKey(key)] = value
}

func (r *Response) Write(status int, payload any) error {
	if r.written {
		return errors.New(errors.KindInternal, "", "response already written")
	}
	r.written = true
	r.Status = status
	r.Payload = payload
	return nil
}

// Written reports whether the handler produced a response.
func (r *Response) Written() bool { return r.written }

// flush copies headers, status and payload to sink without altering them.
func (r *Response) flush(sink dispatch.ResponseSink) error {
	for k, v := range r.HeaderMap {
		sink.SetHeader(k, v)
	}
	if !r.written {
		return nil
	}
	return sink.Write(r.Status, r.Payload)
}
