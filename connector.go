package riakcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/riakcache/envelope"
	"github.com/unkn0wn-root/riakcache/internal/keys"
	"github.com/unkn0wn-root/riakcache/store"
	"github.com/unkn0wn-root/riakcache/store/riak"
)

// Connector is the Cache implementation. The zero value is not usable;
// construct with New.
type Connector[V any] struct {
	host       string
	port       int
	partition  string
	sweepEvery time.Duration
	sweepConc  int
	dial       store.Dialer
	codec      *envelope.Codec[V]
	log        Logger
	hooks      Hooks
	now        func() time.Time

	// mu guards client and sweeper; both change only in Start and Stop.
	mu      sync.RWMutex
	client  store.Client
	sweeper *sweeper
}

var _ Cache[string] = (*Connector[string])(nil)

func newConnector[V any](opts Options) (*Connector[V], error) {
	if opts.Partition == "" {
		return nil, fmt.Errorf("riakcache: partition is required")
	}
	switch {
	case opts.SweepInterval == 0:
		return nil, fmt.Errorf("riakcache: sweep interval is required (use SweepDisabled to turn it off)")
	case opts.SweepInterval < 0 && opts.SweepInterval != SweepDisabled:
		return nil, fmt.Errorf("riakcache: sweep interval must be positive or SweepDisabled, got %v", opts.SweepInterval)
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("riakcache: invalid port %d", opts.Port)
	}
	if opts.SweepConcurrency < 0 {
		return nil, fmt.Errorf("riakcache: sweep concurrency must not be negative")
	}

	c := &Connector[V]{
		partition:  opts.Partition,
		sweepEvery: opts.SweepInterval,
		dial:       opts.Dialer,
		codec:      envelope.NewCodec[V](opts.Format),
		now:        time.Now,
	}

	// defaults
	c.host = coalesce(opts.Host, defaultHost)
	c.port = coalesce(opts.Port, defaultPort)
	c.sweepConc = coalesce(opts.SweepConcurrency, defaultSweepConcurrency)
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if c.dial == nil {
		c.dial = riak.Dial
	}
	c.codec.Now = func() time.Time { return c.now() }

	return c, nil
}

// Start connects to the store and, unless disabled, arms the sweep ticker.
// Calling Start on a started Connector is a no-op.
func (c *Connector[V]) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}

	cl, err := c.dial(ctx, c.host, c.port)
	if err != nil {
		return err
	}
	c.client = cl
	if c.sweepEvery > 0 {
		c.sweeper = c.startSweeper(cl)
	}
	c.log.Info("connector started", Fields{
		"host":      c.host,
		"port":      c.port,
		"partition": c.partition,
		"sweep":     c.sweepEvery.String(),
	})
	return nil
}

// Stop disarms the sweep ticker, waits for a running sweep to finish and
// closes the connection. Safe to call when already stopped.
func (c *Connector[V]) Stop() {
	c.mu.Lock()
	cl, sw := c.client, c.sweeper
	c.client, c.sweeper = nil, nil
	c.mu.Unlock()

	if sw != nil {
		sw.stop()
	}
	if cl == nil {
		return
	}
	if err := cl.Close(context.Background()); err != nil {
		c.log.Warn("close failed", Fields{"partition": c.partition, "err": err})
		return
	}
	c.log.Info("connector stopped", Fields{"partition": c.partition})
}

// IsReady reports whether the Connector is started.
func (c *Connector[V]) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

// Get returns the envelope stored under key, or (nil, nil) when there is
// none. Store and decode errors are returned as is.
func (c *Connector[V]) Get(ctx context.Context, key Key) (*envelope.Envelope[V], error) {
	cl, err := c.active()
	if err != nil {
		return nil, err
	}

	sk := storageKey(key)
	obj, ok, err := cl.Get(ctx, c.partition, sk)
	if err != nil || !ok {
		return nil, err
	}
	env, err := c.codec.Decode(obj.Value)
	if err != nil {
		reason := corruptReason(err)
		c.log.Warn("corrupt envelope", Fields{"key": sk, "reason": reason, "err": err})
		c.hooks.CorruptEnvelope(sk, reason)
		return nil, err
	}
	return &env, nil
}

// Set stores value under key for ttl. A value that cannot be serialized
// fails with ErrSerialization before the store is contacted.
func (c *Connector[V]) Set(ctx context.Context, key Key, value V, ttl time.Duration) error {
	cl, err := c.active()
	if err != nil {
		return err
	}

	enc, err := c.codec.Encode(value, ttl)
	if err != nil {
		return err
	}
	return cl.Put(ctx, c.partition, storageKey(key), store.Object{
		Value:       enc.Bytes,
		ContentType: enc.ContentType,
		Indexes:     []store.IntIndex{{Name: TTLIndex, Value: enc.ExpiresAt}},
	})
}

// Drop deletes key. Dropping a missing key succeeds.
func (c *Connector[V]) Drop(ctx context.Context, key Key) error {
	cl, err := c.active()
	if err != nil {
		return err
	}
	return cl.Delete(ctx, c.partition, storageKey(key))
}

// ValidateSegmentName rejects an empty name or one with a null byte.
// It does not need a started Connector.
func (c *Connector[V]) ValidateSegmentName(name string) error { return ValidateSegmentName(name) }

// active returns the current client. The lock is not held across store
// calls, so Stop never waits on a hung request; a call racing Stop fails
// with whatever the closed client returns.
func (c *Connector[V]) active() (store.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrNotStarted
	}
	return c.client, nil
}

func storageKey(k Key) string { return keys.Storage(k.Segment, k.ID) }
