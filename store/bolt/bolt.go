// Package bolt implements store.Client on an embedded bbolt file.
//
// Every store bucket is a top-level bolt bucket with nested buckets:
//
//	obj          key -> msgpack record {value, content type, indexes}
//	idx:<name>   be64(value ^ signbit) || key -> empty
//
// Index keys sort by value then key, so a range query is a cursor walk.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/riakcache/compress"
	"github.com/unkn0wn-root/riakcache/store"
)

const defaultBatchSize = 500

var objBucket = []byte("obj")

// Store provides a persistent store.Client backed by bbolt.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db    *bolt.DB
	comp  compress.Compressor
	batch int
}

var _ store.Client = (*Store)(nil)

type Options struct {
	Compressor compress.Compressor
	// BatchSize caps keys per QueryIndex batch; 0 => 500.
	BatchSize int
}

type record struct {
	Value       []byte           `msgpack:"v"`
	ContentType string           `msgpack:"ct,omitempty"`
	Indexes     []store.IntIndex `msgpack:"ix,omitempty"`
}

// Open initializes or opens a Store at path.
func Open(path string, o Options) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, comp: o.Compressor, batch: o.BatchSize}
	if s.comp == nil {
		s.comp = compress.None()
	}
	if s.batch <= 0 {
		s.batch = defaultBatchSize
	}
	return s, nil
}

// Dialer opens path on every dial; host and port are ignored.
func Dialer(path string, o Options) store.Dialer {
	return func(context.Context, string, int) (store.Client, error) {
		return Open(path, o)
	}
}

func idxBucket(name string) []byte { return []byte("idx:" + name) }

func idxKey(v int64, key string) []byte {
	b := make([]byte, 8+len(key))
	binary.BigEndian.PutUint64(b, uint64(v)^(1<<63))
	copy(b[8:], key)
	return b
}

func idxVal(k []byte) int64 { return int64(binary.BigEndian.Uint64(k[:8]) ^ (1 << 63)) }

func (s *Store) Get(_ context.Context, bucket, key string) (store.Object, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if ob := b.Bucket(objBucket); ob != nil {
			if v := ob.Get([]byte(key)); v != nil {
				raw = append([]byte(nil), v...)
			}
		}
		return nil
	})
	if err != nil {
		return store.Object{}, false, fmt.Errorf("bolt get: %w", err)
	}
	if raw == nil {
		return store.Object{}, false, nil
	}
	var rec record
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return store.Object{}, false, fmt.Errorf("bolt get: record: %w", err)
	}
	v, err := s.comp.Decode(rec.Value)
	if err != nil {
		return store.Object{}, false, fmt.Errorf("bolt get: decompress: %w", err)
	}
	return store.Object{Value: v, ContentType: rec.ContentType, Indexes: rec.Indexes}, true, nil
}

func (s *Store) Put(_ context.Context, bucket, key string, obj store.Object) error {
	data, err := s.comp.Encode(obj.Value)
	if err != nil {
		return fmt.Errorf("bolt put: compress: %w", err)
	}
	raw, err := msgpack.Marshal(record{Value: data, ContentType: obj.ContentType, Indexes: obj.Indexes})
	if err != nil {
		return fmt.Errorf("bolt put: record: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		ob, err := b.CreateBucketIfNotExists(objBucket)
		if err != nil {
			return err
		}
		if err := unindex(b, ob, key); err != nil {
			return err
		}
		if err := ob.Put([]byte(key), raw); err != nil {
			return err
		}
		for _, ix := range obj.Indexes {
			ib, err := b.CreateBucketIfNotExists(idxBucket(ix.Name))
			if err != nil {
				return err
			}
			if err := ib.Put(idxKey(ix.Value, key), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt put: %w", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, bucket, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		ob := b.Bucket(objBucket)
		if ob == nil {
			return nil
		}
		if err := unindex(b, ob, key); err != nil {
			return err
		}
		return ob.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bolt delete: %w", err)
	}
	return nil
}

// unindex removes the index entries of the record currently stored at key.
func unindex(b, ob *bolt.Bucket, key string) error {
	old := ob.Get([]byte(key))
	if old == nil {
		return nil
	}
	var rec record
	if err := msgpack.Unmarshal(old, &rec); err != nil {
		return err
	}
	for _, ix := range rec.Indexes {
		if ib := b.Bucket(idxBucket(ix.Name)); ib != nil {
			if err := ib.Delete(idxKey(ix.Value, key)); err != nil {
				return err
			}
		}
	}
	return nil
}

// QueryIndex walks the index in short read transactions, one per batch,
// resuming after the last key seen. Deletes between batches are safe.
func (s *Store) QueryIndex(ctx context.Context, bucket, index string, lo, hi int64) (<-chan []string, <-chan error) {
	out := make(chan []string)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(out)

		seek := idxKey(lo, "")
		var last []byte
		for {
			var batch []string
			err := s.db.View(func(tx *bolt.Tx) error {
				b := tx.Bucket([]byte(bucket))
				if b == nil {
					return nil
				}
				ib := b.Bucket(idxBucket(index))
				if ib == nil {
					return nil
				}
				c := ib.Cursor()
				for k, _ := c.Seek(seek); k != nil; k, _ = c.Next() {
					if last != nil && bytes.Equal(k, last) {
						continue
					}
					if idxVal(k) > hi {
						break
					}
					batch = append(batch, string(k[8:]))
					last = append(last[:0], k...)
					if len(batch) == s.batch {
						break
					}
				}
				return nil
			})
			if err != nil {
				errCh <- fmt.Errorf("bolt index query: %w", err)
				return
			}
			if len(batch) == 0 {
				return
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
			if len(batch) < s.batch {
				return
			}
			seek = append([]byte(nil), last...)
		}
	}()
	return out, errCh
}

// Close closes the underlying database.
func (s *Store) Close(context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
