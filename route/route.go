// Package route describes service endpoints as plain values so the same
// description can register a handler on a Dispatcher and target a call from a
// ServiceClient.
package route

import (
	"net/url"
	"strings"

	"github.com/kauppa/kauppa-sub001/pkg/errors"
)

// Method is an HTTP verb.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
)

// Valid reports whether m is one of the supported verbs.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodOptions:
		return true
	}
	return false
}

// Descriptor names an endpoint: a path pattern with ":name" (or "{name}")
// parameter segments and a verb. Descriptors are comparable and safe to use
// as map keys.
type Descriptor struct {
	Pattern string
	Method  Method
}

func New(method Method, pattern string) Descriptor {
	return Descriptor{Pattern: pattern, Method: method}
}

func Get(pattern string) Descriptor     { return New(MethodGet, pattern) }
func Post(pattern string) Descriptor    { return New(MethodPost, pattern) }
func Put(pattern string) Descriptor     { return New(MethodPut, pattern) }
func Patch(pattern string) Descriptor   { return New(MethodPatch, pattern) }
func Delete(pattern string) Descriptor  { return New(MethodDelete, pattern) }
func Options(pattern string) Descriptor { return New(MethodOptions, pattern) }

func (d Descriptor) String() string {
	return string(d.Method) + " " + d.Pattern
}

// Params returns the parameter names in the order they appear in the pattern.
func (d Descriptor) Params() []string {
	var names []string
	for _, seg := range strings.Split(d.Pattern, "/") {
		if name, ok := paramName(seg); ok {
			names = append(names, name)
		}
	}
	return names
}

// Template renders the pattern with "{name}" parameters, the form understood
// by gorilla/mux and net/http.ServeMux.
func (d Descriptor) Template() string {
	segs := strings.Split(d.Pattern, "/")
	for i, seg := range segs {
		if name, ok := paramName(seg); ok {
			segs[i] = "{" + name + "}"
		}
	}
	return strings.Join(segs, "/")
}

// Expand substitutes path-escaped parameter values into the pattern. Every
// parameter must have a non-empty value.
func (d Descriptor) Expand(params map[string]string) (string, error) {
	segs := strings.Split(d.Pattern, "/")
	for i, seg := range segs {
		name, ok := paramName(seg)
		if !ok {
			continue
		}
		value := params[name]
		if value == "" {
			return "", errors.MissingRouteParameter(d.Pattern, name)
		}
		segs[i] = url.PathEscape(value)
	}
	return strings.Join(segs, "/"), nil
}

func paramName(seg string) (string, bool) {
	switch {
	case len(seg) > 1 && seg[0] == ':':
		return seg[1:], true
	case len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}':
		return seg[1 : len(seg)-1], true
	}
	return "", false
}
