// Package sloghooks implements riakcache.Hooks on log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/riakcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DeleteFailedEvery uint64
	CorruptEvery      uint64
	// Log every completed sweep at debug. Off by default.
	LogCompleted bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	deleteFailedCtr atomic.Uint64
	corruptCtr      atomic.Uint64
}

var _ riakcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SweepCompleted(partition string, expired, failed int, took time.Duration) {
	if h.l == nil || !h.opts.LogCompleted {
		return
	}
	h.l.Debug("riakcache.sweep_completed",
		"partition", partition,
		"expired", expired,
		"failed", failed,
		"took", took)
}

func (h *Hooks) SweepAborted(partition string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("riakcache.sweep_aborted",
		"partition", partition,
		"err", err)
}

func (h *Hooks) SweepDeleteFailed(storageKey string, err error) {
	if h.l == nil || !sample(h.opts.DeleteFailedEvery, &h.deleteFailedCtr) {
		return
	}
	h.l.Info("riakcache.sweep_delete_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) CorruptEnvelope(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.CorruptEvery, &h.corruptCtr) {
		return
	}
	h.l.Warn("riakcache.corrupt_envelope",
		"key", h.redact(storageKey),
		"reason", reason)
}
