// Package valkey implements store.Client on Valkey (or Redis) with valkey-go.
// The key layout matches store/redis, so the two adapters can share data.
package valkey

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/valkey-io/valkey-go"

	"github.com/unkn0wn-root/riakcache/compress"
	"github.com/unkn0wn-root/riakcache/store"
)

const (
	defaultPrefix    = "riakcache"
	defaultBatchSize = 500
	maxExactScore    = 1 << 53
)

// Store implements store.Client using Valkey.
type Store struct {
	client     valkey.Client
	prefix     string
	compressor compress.Compressor
	batch      int
	closeOnce  sync.Once
}

var _ store.Client = (*Store)(nil)

// Options configures New.
type Options struct {
	Password   string
	SelectDB   int
	Prefix     string // "" => "riakcache"
	Compressor compress.Compressor
	BatchSize  int // keys per QueryIndex batch; 0 => 500
}

// New connects to addr ("host:port") and pings it.
func New(ctx context.Context, addr string, o Options) (*Store, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		Password:     o.Password,
		SelectDB:     o.SelectDB,
		DisableCache: true, // reads must always reach the server
	})
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping failed: %w", err)
	}
	return wrap(client, o), nil
}

func wrap(client valkey.Client, o Options) *Store {
	s := &Store{client: client, prefix: o.Prefix, compressor: o.Compressor, batch: o.BatchSize}
	if s.prefix == "" {
		s.prefix = defaultPrefix
	}
	if s.compressor == nil {
		s.compressor = compress.None()
	}
	if s.batch <= 0 {
		s.batch = defaultBatchSize
	}
	return s
}

// Dialer returns a store.Dialer for New.
func Dialer(o Options) store.Dialer {
	return func(ctx context.Context, host string, port int) (store.Client, error) {
		return New(ctx, net.JoinHostPort(host, strconv.Itoa(port)), o)
	}
}

func (s *Store) objKey(bucket, key string) string { return s.prefix + ":" + bucket + ":obj:" + key }
func (s *Store) idxKey(bucket, name string) string { return s.prefix + ":" + bucket + ":idx:" + name }
func (s *Store) namesKey(bucket string) string     { return s.prefix + ":" + bucket + ":idxnames" }

func (s *Store) Get(ctx context.Context, bucket, key string) (store.Object, bool, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.objKey(bucket, key)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return store.Object{}, false, nil
		}
		return store.Object{}, false, fmt.Errorf("valkey get: %w", err)
	}
	v, err := s.compressor.Decode(data)
	if err != nil {
		return store.Object{}, false, fmt.Errorf("decompress: %w", err)
	}
	return store.Object{Value: v}, true, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, obj store.Object) error {
	for _, ix := range obj.Indexes {
		if ix.Value > maxExactScore || ix.Value < -maxExactScore {
			return fmt.Errorf("valkey put %s=%d: %w", ix.Name, ix.Value, store.ErrIndexRange)
		}
	}
	data, err := s.compressor.Encode(obj.Value)
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	cmds := make([]valkey.Completed, 0, 1+2*len(obj.Indexes))
	cmds = append(cmds, s.client.B().Set().Key(s.objKey(bucket, key)).Value(valkey.BinaryString(data)).Build())
	for _, ix := range obj.Indexes {
		cmds = append(cmds,
			s.client.B().Zadd().Key(s.idxKey(bucket, ix.Name)).ScoreMember().ScoreMember(float64(ix.Value), key).Build(),
			s.client.B().Sadd().Key(s.namesKey(bucket)).Member(ix.Name).Build(),
		)
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey put: %w", err)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	names, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.namesKey(bucket)).Build()).AsStrSlice()
	if err != nil && !valkey.IsValkeyNil(err) {
		return fmt.Errorf("valkey delete: %w", err)
	}
	cmds := make([]valkey.Completed, 0, 1+len(names))
	cmds = append(cmds, s.client.B().Del().Key(s.objKey(bucket, key)).Build())
	for _, n := range names {
		cmds = append(cmds, s.client.B().Zrem().Key(s.idxKey(bucket, n)).Member(key).Build())
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey delete: %w", err)
		}
	}
	return nil
}

// QueryIndex fetches the range once and streams it in batches; see
// store/redis for why it does not page with LIMIT.
func (s *Store) QueryIndex(ctx context.Context, bucket, index string, lo, hi int64) (<-chan []string, <-chan error) {
	out := make(chan []string)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(out)

		cmd := s.client.B().Zrangebyscore().Key(s.idxKey(bucket, index)).
			Min(strconv.FormatInt(lo, 10)).Max(strconv.FormatInt(hi, 10)).Build()
		members, err := s.client.Do(ctx, cmd).AsStrSlice()
		if err != nil && !valkey.IsValkeyNil(err) {
			errCh <- fmt.Errorf("valkey index query: %w", err)
			return
		}
		for start := 0; start < len(members); start += s.batch {
			end := min(start+s.batch, len(members))
			select {
			case out <- members[start:end]:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()
	return out, errCh
}

// Close releases Valkey client resources.
func (s *Store) Close(context.Context) error {
	s.closeOnce.Do(s.client.Close)
	return nil
}
