package envelope

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

type profile struct {
	ID   string   `json:"id" msgpack:"id" cbor:"id"`
	Tags []string `json:"tags" msgpack:"tags" cbor:"tags"`
}

type node struct {
	Name string `json:"name"`
	Next *node  `json:"next"`
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestRoundTripFormats(t *testing.T) {
	formats := map[string]Format{
		"json":    JSON{},
		"msgpack": Msgpack{},
		"cbor":    MustCBOR(false),
		"cbor-d":  MustCBOR(true),
		"limit":   Limit{Inner: JSON{}, MaxDecode: 1 << 10},
	}
	v := profile{ID: "u1", Tags: []string{"a", "b"}}
	for name, f := range formats {
		t.Run(name, func(t *testing.T) {
			c := NewCodec[profile](f)
			c.Now = fixedClock(1_700_000_000_000)

			enc, err := c.Encode(v, 500*time.Millisecond)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if enc.StoredAt != 1_700_000_000_000 || enc.ExpiresAt != 1_700_000_000_500 {
				t.Fatalf("stored=%d expires=%d", enc.StoredAt, enc.ExpiresAt)
			}
			if enc.ContentType != f.ContentType() {
				t.Fatalf("content type %q want %q", enc.ContentType, f.ContentType())
			}
			env, err := c.Decode(enc.Bytes)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(env.Item, v) {
				t.Fatalf("item mismatch: got %+v want %+v", env.Item, v)
			}
			if env.TTL != 500*time.Millisecond || env.Stored.UnixMilli() != enc.StoredAt {
				t.Fatalf("metadata mismatch: %+v", env)
			}
		})
	}
}

func TestJSONWireShape(t *testing.T) {
	c := NewCodec[string](nil)
	c.Now = fixedClock(42)
	enc, err := c.Encode("123", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(enc.Bytes, &m); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if m["item"] != "123" || m["stored"] != float64(42) || m["ttl"] != float64(500) {
		t.Fatalf("unexpected record %s", enc.Bytes)
	}
	if enc.ContentType != "text/plain" {
		t.Fatalf("content type %q", enc.ContentType)
	}
}

func TestDecodeForeignRecord(t *testing.T) {
	// written by another client; field order and extra fields must not matter
	raw := []byte(`{"ttl":1000,"extra":true,"stored":1500000000000,"item":{"a":1}}`)
	env, err := NewCodec[map[string]int](nil).Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Item["a"] != 1 || env.TTL != time.Second {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if got := env.ExpiresAt().UnixMilli(); got != 1500000001000 {
		t.Fatalf("ExpiresAt=%d", got)
	}
}

func TestDecodeBadContent(t *testing.T) {
	c := NewCodec[string](nil)
	for _, in := range []string{"", "not-json", `{"item":`, "{'item':1}"} {
		_, err := c.Decode([]byte(in))
		if !errors.Is(err, ErrBadContent) {
			t.Fatalf("Decode(%q) err=%v want ErrBadContent", in, err)
		}
		if errors.Is(err, ErrBadStructure) {
			t.Fatalf("Decode(%q) must not also be ErrBadStructure", in)
		}
	}
}

func TestDecodeBadStructure(t *testing.T) {
	c := NewCodec[string](nil)
	for _, in := range []string{
		`{}`,
		`null`,
		`123`,
		`{"item":"x"}`,
		`{"stored":1}`,
		`{"item":null,"stored":1}`,
		`{"item":"x","stored":0}`,
		`{"item":5,"stored":1}`,
	} {
		_, err := c.Decode([]byte(in))
		if !errors.Is(err, ErrBadStructure) {
			t.Fatalf("Decode(%s) err=%v want ErrBadStructure", in, err)
		}
		if errors.Is(err, ErrBadContent) {
			t.Fatalf("Decode(%s) must not also be ErrBadContent", in)
		}
	}
}

func TestDecodeEmptyItemIsBadStructure(t *testing.T) {
	for _, in := range []string{
		`{"item":"","stored":1,"ttl":0}`,
		`{"item":0,"stored":1}`,
		`{"item":0.0,"stored":1}`,
		`{"item":false,"stored":1}`,
	} {
		_, err := NewCodec[any](nil).Decode([]byte(in))
		if !errors.Is(err, ErrBadStructure) {
			t.Fatalf("Decode(%s) err=%v want ErrBadStructure", in, err)
		}
	}

	if _, err := NewCodec[string](nil).Decode([]byte(`{"item":"","stored":1}`)); !errors.Is(err, ErrBadStructure) {
		t.Fatalf("typed empty string: err=%v", err)
	}
	if _, err := NewCodec[int](Msgpack{}).Decode(mustMsgpack(t, map[string]any{"item": 0, "stored": 1})); !errors.Is(err, ErrBadStructure) {
		t.Fatalf("msgpack zero int: err=%v", err)
	}
}

func TestDecodeKeepsEmptyContainers(t *testing.T) {
	// empty objects and arrays are present values
	for _, in := range []string{
		`{"item":{},"stored":1}`,
		`{"item":[],"stored":1}`,
		`{"item":"0","stored":1}`,
		`{"item":true,"stored":1}`,
	} {
		env, err := NewCodec[any](nil).Decode([]byte(in))
		if err != nil {
			t.Fatalf("Decode(%s): %v", in, err)
		}
		if env.Item == nil {
			t.Fatalf("Decode(%s): nil item", in)
		}
	}
	env, err := NewCodec[profile](nil).Decode([]byte(`{"item":{},"stored":1}`))
	if err != nil || env.Item.ID != "" {
		t.Fatalf("empty struct: env=%+v err=%v", env, err)
	}
}

func mustMsgpack(t *testing.T, v any) []byte {
	t.Helper()
	b, err := Msgpack{}.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestEncodeSerializationError(t *testing.T) {
	n := &node{Name: "a"}
	n.Next = n

	c := NewCodec[any](nil)
	for name, v := range map[string]any{
		"cycle":   n,
		"channel": make(chan int),
		"func":    func() {},
	} {
		_, err := c.Encode(v, time.Second)
		if !errors.Is(err, ErrSerialization) {
			t.Fatalf("%s: err=%v want ErrSerialization", name, err)
		}
		var jerr *json.UnsupportedTypeError
		var verr *json.UnsupportedValueError
		if !errors.As(err, &jerr) && !errors.As(err, &verr) {
			t.Fatalf("%s: serializer error not preserved: %v", name, err)
		}
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := NewCodec[string](Limit{Inner: JSON{}, MaxDecode: 16})
	enc, err := c.Encode(strings.Repeat("x", 64), time.Second)
	if err != nil {
		t.Fatalf("Encode should not be limited: %v", err)
	}
	if _, err := c.Decode(enc.Bytes); !errors.Is(err, ErrBadContent) {
		t.Fatalf("err=%v want ErrBadContent", err)
	}
}

func TestExpired(t *testing.T) {
	env := Envelope[int]{Item: 1, Stored: time.UnixMilli(1000), TTL: 10 * time.Millisecond}
	if env.Expired(time.UnixMilli(1009)) {
		t.Fatalf("should not be expired before stored+ttl")
	}
	if !env.Expired(time.UnixMilli(1010)) {
		t.Fatalf("should be expired at stored+ttl")
	}
}
