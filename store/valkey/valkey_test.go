package valkey

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/riakcache/compress"
	"github.com/unkn0wn-root/riakcache/store"
)

func newTestStore(t *testing.T, o Options) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(context.Background(), mr.Addr(), o)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mr
}

func TestRoundTripAndSharedLayout(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, Options{Compressor: compress.Zstd(1)})

	_, ok, err := s.Get(ctx, "test", "k")
	require.NoError(t, err)
	require.False(t, ok)

	obj := store.Object{
		Value:   []byte(`{"item":"123","stored":1,"ttl":500}`),
		Indexes: []store.IntIndex{{Name: "ttl_int", Value: 501}},
	}
	require.NoError(t, s.Put(ctx, "test", "k", obj))

	got, ok, err := s.Get(ctx, "test", "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, obj.Value, got.Value)

	// same keys store/redis uses
	require.True(t, mr.Exists("riakcache:test:obj:k"))
	score, err := mr.ZScore("riakcache:test:idx:ttl_int", "k")
	require.NoError(t, err)
	require.Equal(t, float64(501), score)

	require.NoError(t, s.Delete(ctx, "test", "k"))
	require.False(t, mr.Exists("riakcache:test:obj:k"))
	require.NoError(t, s.Delete(ctx, "test", "k"))
}

func TestQueryIndexBatches(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{BatchSize: 2})
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.Put(ctx, "test", fmt.Sprintf("k%d", i), store.Object{
			Value:   []byte("v"),
			Indexes: []store.IntIndex{{Name: "ttl_int", Value: i}},
		}))
	}
	keys, err := store.Drain(s.QueryIndex(ctx, "test", "ttl_int", 2, 4))
	require.NoError(t, err)
	require.Equal(t, []string{"k2", "k3", "k4"}, keys)

	keys, err = store.Drain(s.QueryIndex(ctx, "test", "missing_int", 1, 10))
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestPutRejectsInexactIndex(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	err := s.Put(context.Background(), "test", "k", store.Object{
		Indexes: []store.IntIndex{{Name: "ttl_int", Value: -(1 << 60)}},
	})
	require.ErrorIs(t, err, store.ErrIndexRange)
}
