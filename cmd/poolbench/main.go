// Command poolbench drives an element pool with a bursty churn workload and
// prints a JSON report.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/holmberd/go-objpool"
	"github.com/holmberd/go-objpool/internal/telemetry"
	"github.com/holmberd/go-objpool/internal/workload"
)

const (
	poolName = "elements"

	// Returned instances remembered by the tracker.
	trackedReturns = 1 << 12
)

type elementPool interface {
	objpool.Pooler[*objpool.Element]
	telemetry.StatsSource
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolbench: %v\n", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger, os.Stdout); err != nil {
		logger.Error("poolbench failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger, out io.Writer) error {
	telCfg := telemetry.DefaultConfig()
	if opts.otlpEndpoint != "" {
		telCfg.Enabled = true
		telCfg.OTLPEndpoint = opts.otlpEndpoint
	}
	provider, err := telemetry.NewProvider(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	pool, err := newElementPool(opts, logger)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	reg, err := telemetry.ObservePool(provider.Meter("poolbench"), poolName, pool)
	if err != nil {
		return fmt.Errorf("observe pool: %w", err)
	}
	defer reg.Unregister()

	tracker := objpool.NewLimitedTrackingPool[*objpool.Element](pool, max(trackedReturns, opts.pool.MaxIdle()), logger)
	report, err := workload.Run(ctx, tracker, opts.workload, logger)
	if err != nil {
		return err
	}

	s := pool.Stats()
	logger.Info("pool stats",
		"pool", poolName,
		"gets", s.Gets,
		"creates", s.Creates,
		"reused", s.Reused(),
		"rejected", s.Rejected,
		"dropped", s.Dropped,
		"buffer_hits", s.BufferHits,
		"idle", s.Idle,
		"buffered", s.Buffered,
	)
	if err := report.WriteJSON(out); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := tracker.Err(); err != nil {
		return fmt.Errorf("ownership violations: %w", err)
	}
	return nil
}

func newElementPool(opts options, logger *slog.Logger) (elementPool, error) {
	policy := objpool.ElementPolicy{MaxRetained: opts.maxRetained}
	if opts.pool.Shards > 1 {
		p, err := objpool.NewSharded[*objpool.Element](policy, logger, opts.pool)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	p, err := objpool.NewBuffered[*objpool.Element](policy, logger, opts.pool)
	if err != nil {
		return nil, err
	}
	return p, nil
}
