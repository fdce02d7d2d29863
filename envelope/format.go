package envelope

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Format serializes the envelope record to the bytes stored at a key.
// Implementations must round-trip losslessly: Unmarshal(Marshal(v)) == v.
type Format interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
	// ContentType is sent to the store alongside the value.
	ContentType() string
}

// JSON is the default Format. It is the text record other catbox-riak
// clients read and write, so keep it unless every reader is this package.
type JSON struct{}

var _ Format = JSON{}

func (JSON) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
func (JSON) ContentType() string             { return "text/plain" }

// Msgpack stores envelopes using vmihailenco/msgpack/v5.
// The zero value is ready to use.
type Msgpack struct{}

var _ Format = Msgpack{}

func (Msgpack) Marshal(v any) ([]byte, error)   { return msgpack.Marshal(v) }
func (Msgpack) Unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }
func (Msgpack) ContentType() string             { return "application/msgpack" }

// CBOR stores envelopes using fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
//
// Use deterministic=true for canonical encoding (RFC 8949 Core Deterministic)
// when byte-for-byte stable values matter, e.g. for store-side deduplication.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Format = CBOR{}

// NewCBOR constructs a CBOR format.
//   - deterministic: CoreDetEncOptions (RFC 8949).
//   - otherwise: PreferredUnsortedEncOptions.
//
// Time values are encoded as RFC3339Nano.
func NewCBOR(deterministic bool) (CBOR, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	// untyped items decode like JSON and msgpack: string-keyed maps
	dm, err := (cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}).DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
func MustCBOR(deterministic bool) CBOR {
	f, err := NewCBOR(deterministic)
	if err != nil {
		panic(err)
	}
	return f
}

func (f CBOR) Marshal(v any) ([]byte, error)   { return f.enc.Marshal(v) }
func (f CBOR) Unmarshal(b []byte, v any) error { return f.dec.Unmarshal(b, v) }
func (CBOR) ContentType() string               { return "application/cbor" }

// Limit wraps another Format to enforce a maximum payload size at decode
// time. Marshal is forwarded unchanged. MaxDecode <= 0 disables the check.
//
// Typical use: a partition shared with writers you do not control.
type Limit struct {
	Inner     Format
	MaxDecode int
}

var _ Format = Limit{}

func (f Limit) Marshal(v any) ([]byte, error) { return f.Inner.Marshal(v) }
func (f Limit) Unmarshal(b []byte, v any) error {
	if f.MaxDecode > 0 && len(b) > f.MaxDecode {
		return fmt.Errorf("payload too large: %d > %d", len(b), f.MaxDecode)
	}
	return f.Inner.Unmarshal(b, v)
}
func (f Limit) ContentType() string { return f.Inner.ContentType() }
