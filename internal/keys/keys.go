package keys

import (
	"errors"
	"strings"
)

// Sep joins the encoded segment and id. It never appears in an encoded field.
const Sep = ":"

var ErrMalformed = errors.New("riakcache: malformed storage key")

const upperhex = "0123456789ABCDEF"

// Storage returns the storage key for (segment, id):
//
//	escape(segment) + ":" + escape(id)
//
// The format is persisted; changing it orphans every stored entry.
func Storage(segment, id string) string {
	var b strings.Builder
	b.Grow(len(segment) + len(id) + 1)
	escapeTo(&b, segment)
	b.WriteString(Sep)
	escapeTo(&b, id)
	return b.String()
}

// Split reverses Storage.
func Split(storageKey string) (segment, id string, err error) {
	enc, encID, ok := strings.Cut(storageKey, Sep)
	if !ok {
		return "", "", ErrMalformed
	}
	if segment, err = Unescape(enc); err != nil {
		return "", "", err
	}
	if id, err = Unescape(encID); err != nil {
		return "", "", err
	}
	return segment, id, nil
}

// Escape percent-encodes s exactly like ECMAScript encodeURIComponent over
// the UTF-8 bytes of s. url.QueryEscape and url.PathEscape differ on
// ' ', '!', '\'', '(', ')', '*', ':' and friends, so they cannot be used
// without breaking keys written by other clients.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escapeTo(&b, s)
	return b.String()
}

func escapeTo(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
}

// Unescape decodes a field produced by Escape.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			out = append(out, s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", ErrMalformed
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", ErrMalformed
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return string(out), nil
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
