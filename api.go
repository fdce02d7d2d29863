package riakcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/riakcache/envelope"
	"github.com/unkn0wn-root/riakcache/store"
)

// SweepDisabled turns the background TTL sweep off.
const SweepDisabled time.Duration = -1

// TTLIndex is the integer secondary index holding stored+ttl in ms.
const TTLIndex = "ttl_int"

// Key identifies a cached value. Segment must not be empty and neither part
// may contain a null byte.
type Key struct {
	Segment string
	ID      string
}

// Cache is the caller-facing API of a Connector.
// V is the caller's value type; serialization is handled by envelope.Format.
type Cache[V any] interface {
	Start(ctx context.Context) error
	Stop()
	IsReady() bool

	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, key Key) (*envelope.Envelope[V], error)
	Set(ctx context.Context, key Key, value V, ttl time.Duration) error
	Drop(ctx context.Context, key Key) error

	ValidateSegmentName(name string) error
}

// Options configure a Connector.
// Only Partition and SweepInterval are required; others have defaults.
type Options struct {
	// Required
	Partition     string        // store bucket all keys live in
	SweepInterval time.Duration // > 0, or SweepDisabled

	Host             string          // "" => 127.0.0.1
	Port             int             // 0 => 8087
	Format           envelope.Format // nil => envelope.JSON
	Dialer           store.Dialer    // nil => riak.Dial
	Logger           Logger          // nil => NopLogger
	Hooks            Hooks           // nil => NopHooks
	SweepConcurrency int             // parallel deletes per sweep; 0 => 16
}

// New validates opts and returns a stopped Connector. No I/O happens
// until Start.
func New[V any](opts Options) (*Connector[V], error) {
	return newConnector[V](opts)
}
