// Package workload drives pools with a bursty acquire/release pattern:
// every worker acquires instances onto a local stack and returns the whole
// stack once it grows beyond a threshold, the way per-request scratch
// buffers are used by a serving loop.
package workload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/holmberd/go-objpool"
)

type workerStats struct {
	gets        uint64
	returns     uint64
	drains      uint64
	outstanding uint64
}

// Run drives pool with cfg.Workers concurrent workers and reports the totals.
// If ctx is canceled, every worker returns the instances it holds and the
// context error is returned along with the partial report.
func Run[T any](ctx context.Context, pool objpool.Pooler[T], cfg Config, logger *slog.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.OpsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OpsPerSecond), 1)
	}

	report := Report{
		RunID:   uuid.NewString(),
		Workers: cfg.Workers,
	}
	logger = logger.With("run_id", report.RunID)
	logger.Debug("workload started",
		"workers", cfg.Workers,
		"iterations", cfg.Iterations,
		"threshold", cfg.Threshold,
	)

	stats := make([]workerStats, cfg.Workers)
	start := time.Now()
	group, ctx := errgroup.WithContext(ctx)
	for i := range cfg.Workers {
		group.Go(func() error {
			if err := runWorker(ctx, pool, cfg, limiter, &stats[i]); err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}
	err := group.Wait()
	report.Elapsed = time.Since(start)

	for _, s := range stats {
		report.Gets += s.gets
		report.Returns += s.returns
		report.Drains += s.drains
		report.Outstanding += s.outstanding
	}
	if err != nil {
		logger.Warn("workload interrupted", "error", err, "gets", report.Gets)
		return report, err
	}
	logger.Info("workload finished",
		"gets", report.Gets,
		"returns", report.Returns,
		"drains", report.Drains,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func runWorker[T any](ctx context.Context, pool objpool.Pooler[T], cfg Config, limiter *rate.Limiter, s *workerStats) error {
	stack := make([]T, 0, cfg.Threshold+1)
	drain := func() {
		if len(stack) == 0 {
			return
		}
		var zero T
		for len(stack) > 0 {
			n := len(stack) - 1
			pool.Return(stack[n])
			stack[n] = zero
			stack = stack[:n]
			s.returns++
		}
		s.drains++
	}

	for range cfg.Iterations {
		var err error
		if limiter != nil {
			err = limiter.Wait(ctx)
		} else {
			err = ctx.Err()
		}
		if err != nil {
			drain()
			return err
		}

		stack = append(stack, pool.Get())
		s.gets++
		if len(stack) > cfg.Threshold {
			drain()
		}
	}
	if cfg.DrainOnExit {
		drain()
	}
	s.outstanding = uint64(len(stack))
	return nil
}
