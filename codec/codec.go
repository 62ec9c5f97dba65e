// Package codec provides the wire encodings shared by dispatchers and clients.
// JSON is the default; MessagePack and CBOR are negotiated through Accept and
// Content-Type headers. All codecs honour `json` struct tags.
package codec

import (
	"bytes"
	"encoding/json"
	"mime"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/msgpack"
	ContentTypeCBOR    = "application/cbor"
)

// Codec encodes and decodes payloads of one media type.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
	CBOR    Codec = newCBORCodec()
)

var registry = map[string]Codec{
	ContentTypeJSON:           JSON,
	ContentTypeMsgPack:        MsgPack,
	"application/x-msgpack":   MsgPack,
	"application/vnd.msgpack": MsgPack,
	ContentTypeCBOR:           CBOR,
}

// ForContentType returns the codec for a Content-Type header value. An empty
// header selects JSON.
func ForContentType(contentType string) (Codec, bool) {
	if strings.TrimSpace(contentType) == "" {
		return JSON, true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	c, ok := registry[mediaType]
	return c, ok
}

// Negotiate picks the response codec for an Accept header. The first
// supported media type wins; anything else falls back to JSON.
func Negotiate(accept string) Codec {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if c, ok := registry[mediaType]; ok {
			return c
		}
	}
	return JSON
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return ContentTypeJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return ContentTypeMsgPack }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	enc, err := encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) ContentType() string { return ContentTypeCBOR }

func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
