package compress

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"item":"abc","stored":1,"ttl":2}`), 50)
	for _, name := range []string{"none", "s2", "zstd"} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%s): %v", name, err)
		}
		if c.Name() != name {
			t.Fatalf("Name()=%q want %q", c.Name(), name)
		}
		enc, err := c.Encode(data)
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		if name != "none" && len(enc) >= len(data) {
			t.Fatalf("%s did not compress: %d >= %d", name, len(enc), len(data))
		}
		dec, err := c.Decode(enc)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if !bytes.Equal(dec, data) {
			t.Fatalf("%s round trip mismatch", name)
		}
	}
}

func TestZstdLevels(t *testing.T) {
	data := []byte("hello hello hello hello")
	for _, lvl := range []int{0, 1, 2, 3, 4, 9} {
		c := Zstd(lvl)
		enc, _ := c.Encode(data)
		dec, err := c.Decode(enc)
		if err != nil || !bytes.Equal(dec, data) {
			t.Fatalf("level %d: err=%v", lvl, err)
		}
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("lz77"); err == nil {
		t.Fatalf("expected error")
	}
}
