// Package riakcache is a cache backend connector for a key-value store with
// an integer secondary index. Riak KV over protocol buffers is the default
// store; anything implementing store.Client can be plugged in through
// Options.Dialer.
//
// Components:
//   - Envelope codec (package envelope): wraps each value with the time it
//     was stored and its TTL.
//   - Connector: Start/Stop lifecycle and Get/Set/Drop by (segment, id).
//   - TTL sweep: a background ticker that range-queries the ttl_int index
//     for entries whose expiry has passed and deletes them.
//
// Keys:
//
//	<escape(segment)>:<escape(id)>  - stored in Options.Partition
//
// escape is byte-for-byte encodeURIComponent, so existing data written by
// other connectors with the same layout stays readable.
//
// Reads do not filter on expiry. An entry past its TTL is returned until a
// sweep removes it; check Envelope.Expired if that matters to the caller.
//
// Usage:
//
//	c, err := riakcache.New[User](riakcache.Options{
//	    Partition:     "users",
//	    SweepInterval: time.Minute,
//	})
//	if err != nil { ... }
//	if err := c.Start(ctx); err != nil { ... }
//	defer c.Stop()
//
//	_ = c.Set(ctx, riakcache.Key{Segment: "user", ID: "42"}, u, 10*time.Minute)
//	env, err := c.Get(ctx, riakcache.Key{Segment: "user", ID: "42"})
//	// env == nil && err == nil => miss
package riakcache
