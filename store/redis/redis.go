// Package redis implements store.Client on Redis.
//
// Layout per bucket (prefix defaults to "riakcache"):
//
//	<prefix>:<bucket>:obj:<key>    string  - object value
//	<prefix>:<bucket>:idx:<name>   zset    - member=key, score=index value
//	<prefix>:<bucket>:idxnames     set     - index names in use
//
// Scores are float64, so index values must stay within ±2^53.
// Content types are not persisted.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/riakcache/compress"
	"github.com/unkn0wn-root/riakcache/store"
)

const (
	defaultPrefix    = "riakcache"
	defaultBatchSize = 500
	maxExactScore    = 1 << 53
)

var ErrNilClient = errors.New("redis store: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	prefix      string
	comp        compress.Compressor
	batch       int
}

var _ store.Client = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool   // set true only if this store exclusively owns the client
	Prefix      string // "" => "riakcache"
	Compressor  compress.Compressor
	BatchSize   int // keys per QueryIndex batch; 0 => 500
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	r := &Redis{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		prefix:      cfg.Prefix,
		comp:        cfg.Compressor,
		batch:       cfg.BatchSize,
	}
	if r.prefix == "" {
		r.prefix = defaultPrefix
	}
	if r.comp == nil {
		r.comp = compress.None()
	}
	if r.batch <= 0 {
		r.batch = defaultBatchSize
	}
	return r, nil
}

// DialOptions carries the connection settings host and port do not cover.
type DialOptions struct {
	Password   string
	DB         int
	Prefix     string
	Compressor compress.Compressor
}

// Dialer returns a store.Dialer that opens a dedicated client and pings it.
func Dialer(o DialOptions) store.Dialer {
	return func(ctx context.Context, host string, port int) (store.Client, error) {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
			Password: o.Password,
			DB:       o.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return New(Config{Client: rdb, CloseClient: true, Prefix: o.Prefix, Compressor: o.Compressor})
	}
}

func (p *Redis) objKey(bucket, key string) string { return p.prefix + ":" + bucket + ":obj:" + key }
func (p *Redis) idxKey(bucket, name string) string { return p.prefix + ":" + bucket + ":idx:" + name }
func (p *Redis) namesKey(bucket string) string     { return p.prefix + ":" + bucket + ":idxnames" }

func (p *Redis) Get(ctx context.Context, bucket, key string) (store.Object, bool, error) {
	b, err := p.rdb.Get(ctx, p.objKey(bucket, key)).Bytes()
	if err == goredis.Nil {
		return store.Object{}, false, nil // miss
	}
	if err != nil {
		return store.Object{}, false, fmt.Errorf("redis get: %w", err)
	}
	v, err := p.comp.Decode(b)
	if err != nil {
		return store.Object{}, false, fmt.Errorf("redis get: decompress: %w", err)
	}
	return store.Object{Value: v}, true, nil
}

func (p *Redis) Put(ctx context.Context, bucket, key string, obj store.Object) error {
	for _, ix := range obj.Indexes {
		if ix.Value > maxExactScore || ix.Value < -maxExactScore {
			return fmt.Errorf("redis put %s=%d: %w", ix.Name, ix.Value, store.ErrIndexRange)
		}
	}
	data, err := p.comp.Encode(obj.Value)
	if err != nil {
		return fmt.Errorf("redis put: compress: %w", err)
	}
	_, err = p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.objKey(bucket, key), data, 0)
		for _, ix := range obj.Indexes {
			pipe.ZAdd(ctx, p.idxKey(bucket, ix.Name), goredis.Z{Score: float64(ix.Value), Member: key})
			pipe.SAdd(ctx, p.namesKey(bucket), ix.Name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

func (p *Redis) Delete(ctx context.Context, bucket, key string) error {
	names, err := p.rdb.SMembers(ctx, p.namesKey(bucket)).Result()
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	_, err = p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, p.objKey(bucket, key))
		for _, n := range names {
			pipe.ZRem(ctx, p.idxKey(bucket, n), key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// QueryIndex reads the whole range in one ZRANGEBYSCORE and hands it out in
// batches. Paging with LIMIT would skip members while the caller deletes.
func (p *Redis) QueryIndex(ctx context.Context, bucket, index string, lo, hi int64) (<-chan []string, <-chan error) {
	out := make(chan []string)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(out)

		members, err := p.rdb.ZRangeByScore(ctx, p.idxKey(bucket, index), &goredis.ZRangeBy{
			Min: strconv.FormatInt(lo, 10),
			Max: strconv.FormatInt(hi, 10),
		}).Result()
		if err != nil {
			errCh <- fmt.Errorf("redis index query: %w", err)
			return
		}
		for start := 0; start < len(members); start += p.batch {
			end := min(start+p.batch, len(members))
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

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
