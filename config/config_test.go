package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setenv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{
		"RIAKCACHE_HOST", "RIAKCACHE_PORT", "RIAKCACHE_PARTITION", "RIAKCACHE_SWEEP_INTERVAL",
		"RIAKCACHE_SWEEP_CONCURRENCY", "RIAKCACHE_BACKEND", "RIAKCACHE_BOLT_PATH", "RIAKCACHE_COMPRESSION",
		"RIAKCACHE_FORMAT", "RIAKCACHE_STORE_DB", "RIAKCACHE_STORE_PASSWORD", "RIAKCACHE_STORE_PREFIX",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		// t.Setenv restores the old value on cleanup; unset so .env can fill it
		t.Setenv(k, kv[k])
		if _, ok := kv[k]; !ok {
			os.Unsetenv(k)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	setenv(t, map[string]string{
		"RIAKCACHE_PARTITION":      "test",
		"RIAKCACHE_SWEEP_INTERVAL": "30s",
	})
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Host != "127.0.0.1" || cfg.Cache.Port != 8087 {
		t.Fatalf("address = %s:%d", cfg.Cache.Host, cfg.Cache.Port)
	}
	if cfg.Cache.SweepInterval != 30*time.Second {
		t.Fatalf("sweep = %v", cfg.Cache.SweepInterval)
	}
	if cfg.Store.Backend != "riak" || cfg.Cache.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadSweepOff(t *testing.T) {
	setenv(t, map[string]string{
		"RIAKCACHE_PARTITION":      "test",
		"RIAKCACHE_SWEEP_INTERVAL": "off",
	})
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.SweepInterval >= 0 {
		t.Fatalf("sweep = %v, want disabled", cfg.Cache.SweepInterval)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"RIAKCACHE_SWEEP_INTERVAL": "1m"}, "RIAKCACHE_PARTITION"},
		{map[string]string{"RIAKCACHE_PARTITION": "p"}, "RIAKCACHE_SWEEP_INTERVAL is required"},
		{map[string]string{"RIAKCACHE_PARTITION": "p", "RIAKCACHE_SWEEP_INTERVAL": "0s"}, "must be positive"},
		{map[string]string{"RIAKCACHE_PARTITION": "p", "RIAKCACHE_SWEEP_INTERVAL": "soon"}, "RIAKCACHE_SWEEP_INTERVAL"},
		{map[string]string{"RIAKCACHE_PARTITION": "p", "RIAKCACHE_SWEEP_INTERVAL": "1m", "RIAKCACHE_PORT": "x"}, "RIAKCACHE_PORT"},
		{map[string]string{"RIAKCACHE_PARTITION": "p", "RIAKCACHE_SWEEP_INTERVAL": "1m", "RIAKCACHE_BACKEND": "mongo"}, "RIAKCACHE_BACKEND"},
		{map[string]string{"RIAKCACHE_PARTITION": "p", "RIAKCACHE_SWEEP_INTERVAL": "1m", "RIAKCACHE_FORMAT": "xml"}, "RIAKCACHE_FORMAT"},
	}
	for _, tc := range cases {
		setenv(t, tc.env)
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("env %v: err = %v, want %q", tc.env, err, tc.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	setenv(t, map[string]string{"RIAKCACHE_HOST": "riak.internal"})
	path := filepath.Join(t.TempDir(), ".env")
	body := "RIAKCACHE_PARTITION=sessions\nRIAKCACHE_SWEEP_INTERVAL=5m\nRIAKCACHE_HOST=ignored\nRIAKCACHE_BACKEND=bolt\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Partition != "sessions" || cfg.Store.Backend != "bolt" {
		t.Fatalf("cfg = %+v", cfg.Cache)
	}
	// environment wins over .env
	if cfg.Cache.Host != "riak.internal" {
		t.Fatalf("host = %q", cfg.Cache.Host)
	}
}
