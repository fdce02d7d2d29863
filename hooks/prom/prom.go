// Package prom implements riakcache.Hooks as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/riakcache"
)

// Hooks holds the Prometheus metrics
type Hooks struct {
	sweepsTotal     *prometheus.CounterVec   // partition, result
	expiredTotal    *prometheus.CounterVec   // partition
	deleteFailTotal prometheus.Counter       //
	corruptTotal    *prometheus.CounterVec   // reason
	sweepDuration   *prometheus.HistogramVec // partition
}

var _ riakcache.Hooks = (*Hooks)(nil)

// New creates the metrics under namespace ("" => "riakcache") and
// registers them with reg. A nil reg skips registration.
func New(namespace string, reg prometheus.Registerer) (*Hooks, error) {
	if namespace == "" {
		namespace = "riakcache"
	}
	h := &Hooks{
		sweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "TTL sweep iterations by result (completed, aborted).",
		}, []string{"partition", "result"}),
		expiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_expired_keys_total",
			Help:      "Expired keys returned by the ttl_int index query.",
		}, []string{"partition"}),
		deleteFailTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_delete_failures_total",
			Help:      "Deletes of expired keys that failed.",
		}),
		corruptTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_envelopes_total",
			Help:      "Stored values that did not decode as envelopes.",
		}, []string{"reason"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of completed TTL sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"partition"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{
			h.sweepsTotal, h.expiredTotal, h.deleteFailTotal, h.corruptTotal, h.sweepDuration,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *Hooks) SweepCompleted(partition string, expired, _ int, took time.Duration) {
	h.sweepsTotal.WithLabelValues(partition, "completed").Inc()
	h.expiredTotal.WithLabelValues(partition).Add(float64(expired))
	h.sweepDuration.WithLabelValues(partition).Observe(took.Seconds())
}

func (h *Hooks) SweepAborted(partition string, _ error) {
	h.sweepsTotal.WithLabelValues(partition, "aborted").Inc()
}

// SweepDeleteFailed is unlabeled: keys are unbounded.
func (h *Hooks) SweepDeleteFailed(string, error) { h.deleteFailTotal.Inc() }

func (h *Hooks) CorruptEnvelope(_ string, reason string) {
	h.corruptTotal.WithLabelValues(reason).Inc()
}
