package dispatch

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/kauppa/kauppa-sub001/codec"
	"github.com/kauppa/kauppa-sub001/pkg/errors"
)

// httpResponse encodes a handler result onto an http.ResponseWriter using the
// codec negotiated from the request's Accept header. The body is encoded in
// full before any header is written.
type httpResponse struct {
	w       http.ResponseWriter
	r       *http.Request
	codec   codec.Codec
	written bool
	// encodeErr is set when a payload could not be encoded; nothing was
	// written, so the dispatcher can still send a structured error.
	encodeErr error
}

func newHTTPResponse(w http.ResponseWriter, r *http.Request) *httpResponse {
	return &httpResponse{w: w, r: r, codec: codec.Negotiate(r.Header.Get("Accept"))}
}

func (s *httpResponse) SetHeader(key, value string) {
	s.w.Header().Set(key, value)
}

func (s *httpResponse) Write(status int, payload any) error {
	if s.written {
		return fmt.Errorf("response already written")
	}

	if payload == nil {
		s.written = true
		s.w.WriteHeader(status)
		return nil
	}

	body, err := s.codec.Marshal(payload)
	if err != nil {
		s.encodeErr = errors.Wrap(errors.KindInternal, "", "encode response", err)
		return s.encodeErr
	}
	s.written = true

	h := s.w.Header()
	h.Set("Content-Type", s.codec.ContentType())

	if s.r.Method == http.MethodGet && status == http.StatusOK {
		etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
		h.Set("ETag", etag)
		if match := s.r.Header.Get("If-None-Match"); match != "" && match == etag {
			s.w.WriteHeader(http.StatusNotModified)
			return nil
		}
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	s.w.WriteHeader(status)
	_, err = s.w.Write(body)
	return err
}

// statusRecorder captures the status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader only forwards the first call.
func (rw *statusRecorder) WriteHeader(status int) {
	if rw.written {
		return
	}
	rw.status = status
	rw.written = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Status() int {
	return rw.status
}

// Flush lets streaming handlers such as promhttp flush through the recorder.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
