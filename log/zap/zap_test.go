package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/riakcache"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := ZapLogger{L: zap.New(core)}

	l.Info("connector started", riakcache.Fields{"port": 8087})
	l.Warn("close failed", riakcache.Fields{"err": errors.New("eof")})

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if got := entries[0].ContextMap()["port"]; got != int64(8087) {
		t.Fatalf("port = %v (%T)", got, got)
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["err"] != "eof" {
		t.Fatalf("warn entry = %+v", entries[1].ContextMap())
	}
}
