// Package riak implements store.Client on Riak KV over protocol buffers,
// using basho/riak-go-client. This is the connector's default store.
package riak

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	riak "github.com/basho/riak-go-client"

	"github.com/unkn0wn-root/riakcache/store"
)

// Store wraps a riak.Client.
type Store struct {
	client   *riak.Client
	stopOnce sync.Once
	stopErr  error
}

var _ store.Client = (*Store)(nil)

var errUnexpectedResponse = errors.New("riak: unexpected command response")

// Dial connects to a single Riak node at host:port.
// It is the default store.Dialer.
func Dial(ctx context.Context, host string, port int) (store.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := riak.NewClient(&riak.NewClientOptions{
		RemoteAddresses: []string{net.JoinHostPort(host, strconv.Itoa(port))},
	})
	if err != nil {
		return nil, fmt.Errorf("riak connect %s:%d: %w", host, port, err)
	}
	return &Store{client: c}, nil
}

var _ store.Dialer = Dial

func (s *Store) Get(ctx context.Context, bucket, key string) (store.Object, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Object{}, false, err
	}
	cmd, err := riak.NewFetchValueCommandBuilder().
		WithBucket(bucket).
		WithKey(key).
		Build()
	if err != nil {
		return store.Object{}, false, fmt.Errorf("riak get: %w", err)
	}
	if err := s.client.Execute(cmd); err != nil {
		return store.Object{}, false, fmt.Errorf("riak get: %w", err)
	}
	fc, ok := cmd.(*riak.FetchValueCommand)
	if !ok || fc.Response == nil {
		return store.Object{}, false, fmt.Errorf("riak get: %w", errUnexpectedResponse)
	}
	if fc.Response.IsNotFound || len(fc.Response.Values) == 0 {
		return store.Object{}, false, nil
	}
	return fromRiak(fc.Response.Values[0]), true, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, obj store.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd, err := riak.NewStoreValueCommandBuilder().
		WithBucket(bucket).
		WithKey(key).
		WithContent(toRiak(obj)).
		Build()
	if err != nil {
		return fmt.Errorf("riak put: %w", err)
	}
	if err := s.client.Execute(cmd); err != nil {
		return fmt.Errorf("riak put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd, err := riak.NewDeleteValueCommandBuilder().
		WithBucket(bucket).
		WithKey(key).
		Build()
	if err != nil {
		return fmt.Errorf("riak delete: %w", err)
	}
	if err := s.client.Execute(cmd); err != nil {
		return fmt.Errorf("riak delete: %w", err)
	}
	return nil
}

// QueryIndex runs a streaming 2i range query. Each streamed chunk from the
// server becomes one batch.
func (s *Store) QueryIndex(ctx context.Context, bucket, index string, lo, hi int64) (<-chan []string, <-chan error) {
	out := make(chan []string)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(out)

		cb := func(results []*riak.SecondaryIndexQueryResult) error {
			if len(results) == 0 {
				return nil
			}
			batch := make([]string, 0, len(results))
			for _, r := range results {
				batch = append(batch, string(r.ObjectKey))
			}
			select {
			case out <- batch:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		cmd, err := riak.NewSecondaryIndexQueryCommandBuilder().
			WithBucket(bucket).
			WithIndexName(index).
			WithIntRange(lo, hi).
			WithStreaming(true).
			WithCallback(cb).
			Build()
		if err != nil {
			errCh <- fmt.Errorf("riak index query: %w", err)
			return
		}
		if err := s.client.Execute(cmd); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				errCh <- ctxErr
				return
			}
			errCh <- fmt.Errorf("riak index query: %w", err)
		}
	}()
	return out, errCh
}

// Close stops the underlying client. Later calls return the first result.
func (s *Store) Close(context.Context) error {
	s.stopOnce.Do(func() { s.stopErr = s.client.Stop() })
	return s.stopErr
}

func toRiak(obj store.Object) *riak.Object {
	ro := &riak.Object{
		ContentType: obj.ContentType,
		Value:       obj.Value,
	}
	for _, ix := range obj.Indexes {
		ro.AddToIndex(ix.Name, strconv.FormatInt(ix.Value, 10))
	}
	return ro
}

// fromRiak converts a fetched sibling. Only *_int index entries that parse
// as integers are carried over.
func fromRiak(ro *riak.Object) store.Object {
	obj := store.Object{Value: ro.Value, ContentType: ro.ContentType}
	for name, vals := range ro.Indexes {
		if !strings.HasSuffix(name, "_int") {
			continue
		}
		for _, v := range vals {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				continue
			}
			obj.Indexes = append(obj.Indexes, store.IntIndex{Name: name, Value: n})
		}
	}
	return obj
}
