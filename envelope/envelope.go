// Package envelope wraps cached values with their aging metadata.
//
// Wire record (JSON by default):
//
//	{"item": <value>, "stored": <ms since epoch>, "ttl": <ms>}
//
// The store's secondary index carries stored+ttl next to the record so
// expired entries can be found without decoding values.
package envelope

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

var (
	// ErrSerialization wraps a serializer failure on Encode.
	ErrSerialization = errors.New("riakcache: cannot serialize envelope")
	// ErrBadContent means the stored bytes do not parse.
	ErrBadContent = errors.New("riakcache: bad envelope content")
	// ErrBadStructure means the bytes parse but item or stored is missing.
	ErrBadStructure = errors.New("riakcache: incorrect envelope structure")
)

// Envelope is a cached value plus the time it was stored and its TTL.
type Envelope[V any] struct {
	Item   V
	Stored time.Time
	TTL    time.Duration
}

// ExpiresAt is Stored+TTL.
func (e Envelope[V]) ExpiresAt() time.Time { return e.Stored.Add(e.TTL) }

// Expired reports whether the envelope is past its TTL at now.
// Reads do not filter on it; removal is left to the sweep.
func (e Envelope[V]) Expired(now time.Time) bool { return !now.Before(e.ExpiresAt()) }

// Encoded is the result of Codec.Encode.
type Encoded struct {
	Bytes       []byte
	ContentType string
	StoredAt    int64 // ms since epoch
	ExpiresAt   int64 // StoredAt + ttl in ms; the ttl_int index value
}

// record is the wire shape. Item is a pointer so a missing or null item is
// detected whatever V is.
type record[V any] struct {
	Item   *V    `json:"item" msgpack:"item" cbor:"item"`
	Stored int64 `json:"stored" msgpack:"stored" cbor:"stored"`
	TTL    int64 `json:"ttl" msgpack:"ttl" cbor:"ttl"`
}

// Codec converts between values of V and envelope bytes.
// Safe for concurrent use.
type Codec[V any] struct {
	format Format
	// Now is the clock used for Stored. nil means time.Now.
	Now func() time.Time
}

// NewCodec returns a codec using f, or JSON when f is nil.
func NewCodec[V any](f Format) *Codec[V] {
	if f == nil {
		f = JSON{}
	}
	return &Codec[V]{format: f}
}

func (c *Codec[V]) ContentType() string { return c.format.ContentType() }

// Encode wraps v with the current time and ttl. Serializer failures are
// returned wrapped in ErrSerialization with the original error kept.
func (c *Codec[V]) Encode(v V, ttl time.Duration) (Encoded, error) {
	stored := c.now().UnixMilli()
	rec := record[V]{Item: &v, Stored: stored, TTL: ttl.Milliseconds()}
	b, err := c.format.Marshal(rec)
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return Encoded{
		Bytes:       b,
		ContentType: c.format.ContentType(),
		StoredAt:    stored,
		ExpiresAt:   stored + rec.TTL,
	}, nil
}

// Decode parses b. Unparsable bytes yield ErrBadContent; parsable bytes
// with a missing or empty item (null, "", 0, false) or a missing or zero
// stored yield ErrBadStructure.
func (c *Codec[V]) Decode(b []byte) (Envelope[V], error) {
	var rec record[V]
	if err := c.format.Unmarshal(b, &rec); err != nil {
		// valid syntax with the wrong shape (e.g. a bare number, or an item
		// of another type) is a structure problem, not a content problem
		var probe any
		if c.format.Unmarshal(b, &probe) == nil {
			return Envelope[V]{}, fmt.Errorf("%w: %w", ErrBadStructure, err)
		}
		return Envelope[V]{}, fmt.Errorf("%w: %w", ErrBadContent, err)
	}
	if rec.Item == nil || falsy(reflect.ValueOf(rec.Item).Elem()) || rec.Stored == 0 {
		return Envelope[V]{}, ErrBadStructure
	}
	return Envelope[V]{
		Item:   *rec.Item,
		Stored: time.UnixMilli(rec.Stored),
		TTL:    time.Duration(rec.TTL) * time.Millisecond,
	}, nil
}

// falsy reports whether v is an empty scalar: "", 0, NaN, false or nil.
// Maps, slices and structs count as present even when empty.
func falsy(v reflect.Value) bool {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return true
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return f == 0 || math.IsNaN(f)
	}
	return false
}

func (c *Codec[V]) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
