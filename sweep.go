package riakcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/riakcache/store"
)

// SweepStats summarizes one sweep iteration.
type SweepStats struct {
	Expired int // keys returned by the index query
	Deleted int
	Failed  int
	Took    time.Duration
}

// sweeper owns the ticker goroutine of one started Connector.
type sweeper struct {
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func (c *Connector[V]) startSweeper(cl store.Client) *sweeper {
	s := &sweeper{
		ticker: time.NewTicker(c.sweepEvery),
		stopCh: make(chan struct{}),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				select {
				case <-s.stopCh:
					return
				default:
				}
				// not tied to stopCh: an iteration that has begun runs to the end
				if _, err := c.sweep(context.Background(), cl); err != nil {
					c.log.Warn("sweep aborted", Fields{"partition": c.partition, "err": err})
					c.hooks.SweepAborted(c.partition, err)
				}
			case <-s.stopCh:
				return
			}
		}
	}()
	return s
}

// stop disarms the ticker and waits for the loop to exit.
func (s *sweeper) stop() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Sweep runs one sweep iteration now, independent of the ticker. Unlike
// the background iteration, Stop does not wait for it.
// It returns the index stream error, if any; per-key delete failures are
// only counted.
func (c *Connector[V]) Sweep(ctx context.Context) (SweepStats, error) {
	cl, err := c.active()
	if err != nil {
		return SweepStats{}, err
	}
	return c.sweep(ctx, cl)
}

// sweep deletes every key whose ttl_int lies in [1, now]. Batches are
// consumed as they arrive; deletes fan out up to sweepConc at a time.
func (c *Connector[V]) sweep(ctx context.Context, cl store.Client) (SweepStats, error) {
	start := time.Now()
	batches, errs := cl.QueryIndex(ctx, c.partition, TTLIndex, 1, c.now().UnixMilli())

	var (
		g       errgroup.Group
		deleted atomic.Int64
		failed  atomic.Int64
		expired int
	)
	g.SetLimit(c.sweepConc)
	for batch := range batches {
		for _, k := range batch {
			k := k
			expired++
			g.Go(func() error {
				if err := cl.Delete(ctx, c.partition, k); err != nil {
					failed.Add(1)
					c.log.Debug("sweep delete failed", Fields{"key": k, "err": err})
					c.hooks.SweepDeleteFailed(k, err)
					return nil
				}
				deleted.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	stats := SweepStats{
		Expired: expired,
		Deleted: int(deleted.Load()),
		Failed:  int(failed.Load()),
		Took:    time.Since(start),
	}
	if err := <-errs; err != nil {
		return stats, err
	}
	c.log.Debug("sweep completed", Fields{
		"partition": c.partition,
		"expired":   stats.Expired,
		"deleted":   stats.Deleted,
		"failed":    stats.Failed,
		"took":      stats.Took.String(),
	})
	c.hooks.SweepCompleted(c.partition, stats.Expired, stats.Failed, stats.Took)
	return stats, nil
}
