// Package errors defines the closed error taxonomy shared by every entity
// service, its HTTP status table and the wire payload used to carry an error
// between a Dispatcher and a ServiceClient.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service error. The set is closed: every failure crossing a
// service boundary is reported as one of these.
type Kind string

const (
	// KindNotFound reports that no entity exists for a primary key.
	KindNotFound Kind = "NOT_FOUND"

	// KindNotFoundBySecondaryKey reports that no entity exists for a secondary key such as an email.
	KindNotFoundBySecondaryKey Kind = "NOT_FOUND_BY_SECONDARY_KEY"

	// KindDecodeFailed reports a payload that could not be decoded into the expected shape.
	KindDecodeFailed Kind = "INVALID_REQUEST"

	// KindMissingRouteParameter reports a route pattern parameter without a value.
	KindMissingRouteParameter Kind = "MISSING_ROUTE_PARAMETER"

	// KindValidationFailed reports an entity that failed its shape checks.
	KindValidationFailed Kind = "VALIDATION_FAILED"

	// KindConflict reports a duplicate primary or secondary key.
	KindConflict Kind = "CONFLICT"

	KindMethodNotAllowed Kind = "METHOD_NOT_ALLOWED"
	KindRateLimited      Kind = "RATE_LIMIT_EXCEEDED"
	KindInternal         Kind = "INTERNAL"

	// KindTransportUnavailable reports that a remote service could not be reached
	// or did not answer within the call timeout.
	KindTransportUnavailable Kind = "TRANSPORT_UNAVAILABLE"

	// KindStoreUnavailable reports a failure of the backing store.
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
)

var kindStatus = map[Kind]int{
	KindNotFound:               http.StatusNotFound,
	KindNotFoundBySecondaryKey: http.StatusNotFound,
	KindDecodeFailed:           http.StatusBadRequest,
	KindMissingRouteParameter:  http.StatusBadRequest,
	KindValidationFailed:       http.StatusUnprocessableEntity,
	KindConflict:               http.StatusConflict,
	KindMethodNotAllowed:       http.StatusMethodNotAllowed,
	KindRateLimited:            http.StatusTooManyRequests,
	KindInternal:               http.StatusInternalServerError,
	KindTransportUnavailable:   http.StatusBadGateway,
	KindStoreUnavailable:       http.StatusServiceUnavailable,
}

// statusKind is the reverse table used when a response carries no payload code.
var statusKind = map[int]Kind{
	http.StatusNotFound:            KindNotFound,
	http.StatusBadRequest:          KindDecodeFailed,
	http.StatusUnprocessableEntity: KindValidationFailed,
	http.StatusConflict:            KindConflict,
	http.StatusMethodNotAllowed:    KindMethodNotAllowed,
	http.StatusTooManyRequests:     KindRateLimited,
	http.StatusInternalServerError: KindInternal,
	http.StatusBadGateway:          KindTransportUnavailable,
	http.StatusGatewayTimeout:      KindTransportUnavailable,
	http.StatusServiceUnavailable:  KindStoreUnavailable,
}

// Valid reports whether k belongs to the taxonomy.
func (k Kind) Valid() bool {
	_, ok := kindStatus[k]
	return ok
}

// StatusFor returns the HTTP status for a kind. Unknown kinds map to 500.
func StatusFor(k Kind) int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// KindForStatus maps a non-2xx status back to a kind. Statuses outside the
// table fall back by class: 4xx to DecodeFailed, everything else to Internal.
func KindForStatus(status int) Kind {
	if k, ok := statusKind[status]; ok {
		return k
	}
	if status >= 400 && status < 500 {
		return KindDecodeFailed
	}
	return KindInternal
}

// Retryable reports whether a caller may reasonably retry after an error of this kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindTransportUnavailable, KindStoreUnavailable, KindRateLimited:
		return true
	default:
		return false
	}
}

// Error is the structured error every service operation returns.
type Error struct {
	Kind    Kind
	Entity  string
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Entity != "" {
		msg += " [" + e.Entity + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status of the error's kind.
func (e *Error) Status() int {
	return StatusFor(e.Kind)
}

// With returns a copy of e carrying an extra context entry.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// New creates an error of the given kind.
func New(kind Kind, entity, message string) *Error {
	return &Error{Kind: kind, Entity: entity, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(kind Kind, entity, format string, args ...any) *Error {
	return New(kind, entity, fmt.Sprintf(format, args...))
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, entity, message string, cause error) *Error {
	return &Error{Kind: kind, Entity: entity, Message: message, Cause: cause}
}

func NotFound(entity string, id any) *Error {
	return Newf(KindNotFound, entity, "no %s for id %v", entity, id).With("id", fmt.Sprint(id))
}

func NotFoundBySecondaryKey(entity, index, value string) *Error {
	return Newf(KindNotFoundBySecondaryKey, entity, "no %s for %s %q", entity, index, value).
		With(index, value)
}

func Conflict(entity, message string) *Error {
	return New(KindConflict, entity, message)
}

func StoreUnavailable(entity string, cause error) *Error {
	return Wrap(KindStoreUnavailable, entity, "store operation failed", cause)
}

func TransportUnavailable(target string, cause error) *Error {
	return Wrap(KindTransportUnavailable, "", "cannot reach "+target, cause)
}

func DecodeFailed(entity string, cause error) *Error {
	return Wrap(KindDecodeFailed, entity, "malformed payload", cause)
}

func MissingRouteParameter(pattern, param string) *Error {
	return Newf(KindMissingRouteParameter, "", "route %s requires parameter %q", pattern, param).
		With("parameter", param)
}

func ValidationFailed(entity string, cause error) *Error {
	return Wrap(KindValidationFailed, entity, "validation failed", cause)
}

// KindOf extracts the kind of err. Errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is errors.As for callers that import this package under its own name.
func As(err error, target any) bool {
	return errors.As(err, target)
}
