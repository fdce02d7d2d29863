package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsKeys(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.CorruptEnvelope("user:secret", "bad_content")

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("key leaked: %q", out)
	}
	if !strings.Contains(out, "riakcache.corrupt_envelope") || !strings.Contains(out, "reason=bad_content") {
		t.Fatalf("out = %q", out)
	}

	buf.Reset()
	h = New(l, Options{Redact: func(s string) string { return "R(" + s + ")" }})
	h.SweepDeleteFailed("k", errors.New("timeout"))
	if !strings.Contains(buf.String(), "key=R(k)") {
		t.Fatalf("custom redactor not used: %q", buf.String())
	}
}

func TestSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{DeleteFailedEvery: 5})
	for i := 0; i < 20; i++ {
		h.SweepDeleteFailed("k", errors.New("x"))
	}
	if n := strings.Count(buf.String(), "sweep_delete_failed"); n != 4 {
		t.Fatalf("logged %d times, want 4", n)
	}
}

func TestCompletedIsOptIn(t *testing.T) {
	buf, l := newBuf()
	New(l, Options{}).SweepCompleted("p", 1, 0, time.Millisecond)
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
	New(l, Options{LogCompleted: true}).SweepCompleted("p", 1, 0, time.Millisecond)
	if !strings.Contains(buf.String(), "riakcache.sweep_completed") {
		t.Fatalf("out = %q", buf.String())
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{LogCompleted: true})
	h.SweepAborted("p", errors.New("x"))
	h.SweepCompleted("p", 0, 0, 0)
	h.SweepDeleteFailed("k", nil)
	h.CorruptEnvelope("k", "r")
}
