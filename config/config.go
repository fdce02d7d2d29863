// Package config loads connector settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Cache CacheConfig
	Store StoreConfig
	Log   LogConfig
}

type CacheConfig struct {
	Host             string
	Port             int
	Partition        string
	SweepInterval    time.Duration // negative => disabled
	SweepConcurrency int
	Format           string // json, msgpack or cbor
}

type StoreConfig struct {
	Backend     string // riak, redis, valkey or bolt
	BoltPath    string
	Password    string // redis/valkey
	DB          int    // redis/valkey
	Prefix      string // redis/valkey key prefix
	Compression string // none, s2 or zstd; redis/valkey/bolt only
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// Load reads .env files (if present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(envFiles...)

	port, err := getIntEnv("RIAKCACHE_PORT", 8087)
	if err != nil {
		return nil, err
	}
	sweep, err := getSweepEnv("RIAKCACHE_SWEEP_INTERVAL")
	if err != nil {
		return nil, err
	}
	conc, err := getIntEnv("RIAKCACHE_SWEEP_CONCURRENCY", 0)
	if err != nil {
		return nil, err
	}
	db, err := getIntEnv("RIAKCACHE_STORE_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Cache: CacheConfig{
			Host:             getEnv("RIAKCACHE_HOST", "127.0.0.1"),
			Port:             port,
			Partition:        getEnv("RIAKCACHE_PARTITION", ""),
			SweepInterval:    sweep,
			SweepConcurrency: conc,
			Format:           strings.ToLower(getEnv("RIAKCACHE_FORMAT", "json")),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("RIAKCACHE_BACKEND", "riak")),
			BoltPath:    getEnv("RIAKCACHE_BOLT_PATH", "riakcache.bbolt"),
			Password:    getEnv("RIAKCACHE_STORE_PASSWORD", ""),
			DB:          db,
			Prefix:      getEnv("RIAKCACHE_STORE_PREFIX", ""),
			Compression: strings.ToLower(getEnv("RIAKCACHE_COMPRESSION", "none")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	if c.Cache.Partition == "" {
		return fmt.Errorf("config: RIAKCACHE_PARTITION is required")
	}
	switch c.Store.Backend {
	case "riak", "redis", "valkey", "bolt":
	default:
		return fmt.Errorf("config: unknown RIAKCACHE_BACKEND %q", c.Store.Backend)
	}
	switch c.Cache.Format {
	case "json", "msgpack", "cbor":
	default:
		return fmt.Errorf("config: unknown RIAKCACHE_FORMAT %q", c.Cache.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

// getSweepEnv parses a Go duration, or "off"/"false" to disable the sweep.
// The variable is required.
func getSweepEnv(key string) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	switch strings.ToLower(value) {
	case "":
		return 0, fmt.Errorf("config: %s is required (a duration, or off)", key)
	case "off", "false", "disabled":
		return -1, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %v", key, d)
	}
	return d, nil
}
