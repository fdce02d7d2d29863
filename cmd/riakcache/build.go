package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/riakcache"
	"github.com/unkn0wn-root/riakcache/compress"
	"github.com/unkn0wn-root/riakcache/config"
	"github.com/unkn0wn-root/riakcache/envelope"
	rclog "github.com/unkn0wn-root/riakcache/log/logrus"
	"github.com/unkn0wn-root/riakcache/store"
	"github.com/unkn0wn-root/riakcache/store/bolt"
	"github.com/unkn0wn-root/riakcache/store/redis"
	"github.com/unkn0wn-root/riakcache/store/riak"
	"github.com/unkn0wn-root/riakcache/store/valkey"
)

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

func formatFor(name string) (envelope.Format, error) {
	switch name {
	case "", "json":
		return envelope.JSON{}, nil
	case "msgpack":
		return envelope.Msgpack{}, nil
	case "cbor":
		f, err := envelope.NewCBOR(true)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

func dialerFor(cfg config.StoreConfig) (store.Dialer, error) {
	comp, err := compress.ByName(cfg.Compression)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "", "riak":
		if comp.Name() != "none" {
			return nil, fmt.Errorf("compression is not supported by the riak backend")
		}
		return riak.Dial, nil
	case "redis":
		return redis.Dialer(redis.DialOptions{
			Password:   cfg.Password,
			DB:         cfg.DB,
			Prefix:     cfg.Prefix,
			Compressor: comp,
		}), nil
	case "valkey":
		return valkey.Dialer(valkey.Options{
			Password:   cfg.Password,
			SelectDB:   cfg.DB,
			Prefix:     cfg.Prefix,
			Compressor: comp,
		}), nil
	case "bolt":
		return bolt.Dialer(cfg.BoltPath, bolt.Options{Compressor: comp}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newConnector(cfg *config.Config, logger *logrus.Logger) (*riakcache.Connector[any], error) {
	format, err := formatFor(cfg.Cache.Format)
	if err != nil {
		return nil, err
	}
	dial, err := dialerFor(cfg.Store)
	if err != nil {
		return nil, err
	}
	sweep := cfg.Cache.SweepInterval
	if sweep < 0 {
		sweep = riakcache.SweepDisabled
	}
	return riakcache.New[any](riakcache.Options{
		Host:             cfg.Cache.Host,
		Port:             cfg.Cache.Port,
		Partition:        cfg.Cache.Partition,
		SweepInterval:    sweep,
		SweepConcurrency: cfg.Cache.SweepConcurrency,
		Format:           format,
		Dialer:           dial,
		Logger:           rclog.New(logger),
	})
}
