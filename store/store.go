// Package store defines the key-value store client the connector runs on.
//
// The connector needs exactly five things from a store: point get, point put
// with integer secondary-index entries, point delete, a range query over one
// integer index, and close. Riak offers them natively (store/riak); the other
// adapters emulate the index with a sorted structure.
//
// Implementations must be safe for concurrent use and must return Get values
// byte-for-byte as they were Put.
package store

import (
	"context"
	"errors"
)

// ErrIndexRange is returned by stores that cannot represent an index value
// (e.g. beyond the 2^53 exact-integer range of a float score).
var ErrIndexRange = errors.New("store: index value out of range")

// IntIndex is one integer secondary-index entry attached to an object.
type IntIndex struct {
	Name  string
	Value int64
}

// Object is the content stored at a key.
type Object struct {
	Value       []byte
	ContentType string
	Indexes     []IntIndex
}

// Client is a connected store handle.
type Client interface {
	// Get returns (obj, true, nil) on hit and (Object{}, false, nil) when the
	// key holds no content. Transport/server failures return an error.
	Get(ctx context.Context, bucket, key string) (Object, bool, error)

	// Put replaces the content and index entries at key.
	Put(ctx context.Context, bucket, key string, obj Object) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// QueryIndex streams the keys whose index value lies in [min, max],
	// in batches. The batch channel is closed when the query ends; the error
	// channel then yields at most one error and is closed too.
	QueryIndex(ctx context.Context, bucket, index string, min, max int64) (<-chan []string, <-chan error)

	// Close releases the connection. Safe to call more than once.
	Close(ctx context.Context) error
}

// Dialer creates a Client connected to host:port.
type Dialer func(ctx context.Context, host string, port int) (Client, error)

// Drain consumes a QueryIndex result into a flat slice. Meant for tooling
// and tests; the sweep consumes batches as they arrive.
func Drain(batches <-chan []string, errs <-chan error) ([]string, error) {
	var out []string
	for b := range batches {
		out = append(out, b...)
	}
	if err, ok := <-errs; ok && err != nil {
		return out, err
	}
	return out, nil
}
