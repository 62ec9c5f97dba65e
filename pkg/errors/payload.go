package errors

import (
	"errors"
	"time"
)

// Payload is the wire body of every non-2xx response.
type Payload struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Entity    string         `json:"entity,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// ToPayload renders err for the wire. Errors outside the taxonomy are reported
// as Internal without leaking their message.
func ToPayload(err error, requestID string, now time.Time) Payload {
	p := Payload{RequestID: requestID, Timestamp: now.UTC()}

	var se *Error
	if !errors.As(err, &se) {
		p.Code = string(KindInternal)
		p.Message = "internal error"
		return p
	}

	p.Code = string(se.Kind)
	p.Entity = se.Entity
	p.Message = se.Message
	if p.Message == "" && se.Cause != nil {
		p.Message = se.Cause.Error()
	}
	if len(se.Context) > 0 {
		p.Details = se.Context
	}
	p.Retryable = se.Kind.Retryable()
	return p
}

// FromPayload rebuilds an Error received with the given status. The payload
// code wins when it names a known kind; otherwise the status table decides.
func FromPayload(status int, p *Payload) *Error {
	kind := KindForStatus(status)
	e := &Error{Kind: kind}
	if p == nil {
		e.Message = "remote call failed"
		return e
	}
	if k := Kind(p.Code); k.Valid() {
		e.Kind = k
	}
	e.Entity = p.Entity
	e.Message = p.Message
	if len(p.Details) > 0 {
		e.Context = p.Details
	}
	return e
}
