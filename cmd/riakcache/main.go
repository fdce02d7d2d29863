// Command riakcache inspects and maintains a cache partition.
//
//	riakcache [-env .env] get   <segment> <id>
//	riakcache [-env .env] set   [-ttl 10m] <segment> <id> <json>
//	riakcache [-env .env] drop  <segment> <id>
//	riakcache [-env .env] sweep
//
// Connection settings come from RIAKCACHE_* variables (see package config).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/riakcache"
	"github.com/unkn0wn-root/riakcache/config"
)

var errUsage = errors.New("usage: riakcache [-env file] get|set|drop|sweep ...")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, nil); err != nil {
		fmt.Fprintln(os.Stderr, "riakcache:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run executes one subcommand. A nil logger is built from the loaded config.
func run(ctx context.Context, args []string, out io.Writer, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("riakcache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envFile := fs.String("env", "", "optional .env file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = newLogger(cfg.Log)
	}
	// one-shot commands never need the background sweeper
	cfg.Cache.SweepInterval = -1

	c, err := newConnector(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Store.Backend, err)
	}
	defer c.Stop()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "get":
		return cmdGet(ctx, c, cmdArgs, out)
	case "set":
		return cmdSet(ctx, c, cmdArgs)
	case "drop":
		return cmdDrop(ctx, c, cmdArgs)
	case "sweep":
		return cmdSweep(ctx, c, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func keyArgs(args []string) (riakcache.Key, error) {
	if len(args) != 2 {
		return riakcache.Key{}, fmt.Errorf("%w: expected <segment> <id>", errUsage)
	}
	if err := riakcache.ValidateSegmentName(args[0]); err != nil {
		return riakcache.Key{}, err
	}
	return riakcache.Key{Segment: args[0], ID: args[1]}, nil
}

func cmdGet(ctx context.Context, c *riakcache.Connector[any], args []string, out io.Writer) error {
	key, err := keyArgs(args)
	if err != nil {
		return err
	}
	env, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if env == nil {
		fmt.Fprintln(out, "miss")
		return nil
	}
	return json.NewEncoder(out).Encode(map[string]any{
		"item":       env.Item,
		"stored":     env.Stored.UTC().Format(time.RFC3339Nano),
		"ttl":        env.TTL.String(),
		"expires_at": env.ExpiresAt().UTC().Format(time.RFC3339Nano),
		"expired":    env.Expired(time.Now()),
	})
}

func cmdSet(ctx context.Context, c *riakcache.Connector[any], args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	ttl := fs.Duration("ttl", 10*time.Minute, "time to live")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) != 3 {
		return fmt.Errorf("%w: expected <segment> <id> <json>", errUsage)
	}
	key, err := keyArgs(rest[:2])
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal([]byte(rest[2]), &v); err != nil {
		return fmt.Errorf("value is not JSON: %w", err)
	}
	return c.Set(ctx, key, v, *ttl)
}

func cmdDrop(ctx context.Context, c *riakcache.Connector[any], args []string) error {
	key, err := keyArgs(args)
	if err != nil {
		return err
	}
	return c.Drop(ctx, key)
}

func cmdSweep(ctx context.Context, c *riakcache.Connector[any], out io.Writer) error {
	stats, err := c.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "expired=%d deleted=%d failed=%d took=%s\n",
		stats.Expired, stats.Deleted, stats.Failed, stats.Took.Round(time.Millisecond))
	return nil
}
