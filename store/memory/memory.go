// Package memory is an in-process store.Client for tests and local runs.
// Nothing survives the process.
package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/riakcache/store"
)

const defaultBatchSize = 100

var ErrClosed = errors.New("memory store: closed")

// Store keeps objects per bucket. QueryIndex answers from a snapshot taken
// when the query starts, in batches of BatchSize.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]store.Object
	closed  atomic.Bool

	// BatchSize caps keys per QueryIndex batch; <= 0 means 100.
	BatchSize int
}

var _ store.Client = (*Store)(nil)

func New() *Store {
	return &Store{buckets: make(map[string]map[string]store.Object)}
}

// Dialer returns a store.Dialer handing out s regardless of host and port.
// Close on the returned client does not close s, so a connector can be
// stopped and started again over the same data.
func Dialer(s *Store) store.Dialer {
	return func(context.Context, string, int) (store.Client, error) {
		return &session{Store: s}, nil
	}
}

func (s *Store) Get(_ context.Context, bucket, key string) (store.Object, bool, error) {
	if s.closed.Load() {
		return store.Object{}, false, ErrClosed
	}
	s.mu.RLock()
	obj, ok := s.buckets[bucket][key]
	s.mu.RUnlock()
	if !ok {
		return store.Object{}, false, nil
	}
	return clone(obj), true, nil
}

func (s *Store) Put(_ context.Context, bucket, key string, obj store.Object) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string]store.Object)
		s.buckets[bucket] = b
	}
	b[key] = clone(obj)
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, bucket, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	delete(s.buckets[bucket], key)
	s.mu.Unlock()
	return nil
}

func (s *Store) QueryIndex(ctx context.Context, bucket, index string, lo, hi int64) (<-chan []string, <-chan error) {
	out := make(chan []string)
	errCh := make(chan error, 1)
	if s.closed.Load() {
		errCh <- ErrClosed
		close(out)
		close(errCh)
		return out, errCh
	}

	type hit struct {
		key string
		v   int64
	}
	var hits []hit
	s.mu.RLock()
	for k, obj := range s.buckets[bucket] {
		for _, ix := range obj.Indexes {
			if ix.Name == index && ix.Value >= lo && ix.Value <= hi {
				hits = append(hits, hit{key: k, v: ix.Value})
				break
			}
		}
	}
	s.mu.RUnlock()
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].v != hits[j].v {
			return hits[i].v < hits[j].v
		}
		return hits[i].key < hits[j].key
	})

	size := s.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	go func() {
		defer close(errCh)
		defer close(out)
		for start := 0; start < len(hits); start += size {
			end := min(start+size, len(hits))
			batch := make([]string, 0, end-start)
			for _, h := range hits[start:end] {
				batch = append(batch, h.key)
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()
	return out, errCh
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *Store) Close(context.Context) error {
	s.closed.Store(true)
	return nil
}

// Len returns the number of keys in bucket.
func (s *Store) Len(bucket string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[bucket])
}

// session is a Client view whose Close leaves the shared Store open.
type session struct{ *Store }

func (session) Close(context.Context) error { return nil }

func clone(o store.Object) store.Object {
	o.Value = bytes.Clone(o.Value)
	if o.Indexes != nil {
		o.Indexes = append([]store.IntIndex(nil), o.Indexes...)
	}
	return o
}
