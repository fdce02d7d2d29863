// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DeleteFailedEvery: 100, // sample logs: ~every 100th failed delete
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	c, _ := riakcache.New[User](riakcache.Options{
//	    Partition:     "users",
//	    SweepInterval: time.Minute,
//	    Hooks:         hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/riakcache"
)

// Hooks forwards events to inner on a bounded worker queue.
// Events that do not fit in the queue are dropped and counted.
type Hooks struct {
	inner   riakcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ riakcache.Hooks = (*Hooks)(nil)

func New(inner riakcache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = riakcache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) SweepAborted(p string, err error)     { h.try(func() { h.inner.SweepAborted(p, err) }) }
func (h *Hooks) SweepDeleteFailed(k string, err error) { h.try(func() { h.inner.SweepDeleteFailed(k, err) }) }
func (h *Hooks) CorruptEnvelope(k, r string)           { h.try(func() { h.inner.CorruptEnvelope(k, r) }) }
func (h *Hooks) SweepCompleted(p string, expired, failed int, took time.Duration) {
	h.try(func() { h.inner.SweepCompleted(p, expired, failed, took) })
}
