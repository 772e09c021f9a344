package workload

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holmberd/go-objpool"
	"github.com/holmberd/go-objpool/internal/testutils"
)

func newTrackedPool(t *testing.T, cfg objpool.Config) (*objpool.TrackingPool[*testutils.MockItem], *objpool.BufferedPool[*testutils.MockItem], *testutils.MockPolicy) {
	t.Helper()
	policy := &testutils.MockPolicy{}
	pool, err := objpool.NewBuffered[*testutils.MockItem](policy, nil, cfg)
	require.NoError(t, err)
	return objpool.NewTrackingPool[*testutils.MockItem](pool, nil), pool, policy
}

func TestRun(t *testing.T) {
	t.Run("Default churn workload", func(t *testing.T) {
		tracker, pool, policy := newTrackedPool(t, objpool.DefaultConfig())

		report, err := Run(context.Background(), tracker, DefaultConfig(), nil)
		require.NoError(t, err)
		require.NoError(t, tracker.Err())

		// 200 gets drained whenever the stack exceeds 30: six drains of 31.
		assert.Equal(t, uint64(200), report.Gets)
		assert.Equal(t, uint64(186), report.Returns)
		assert.Equal(t, uint64(6), report.Drains)
		assert.Equal(t, uint64(14), report.Outstanding)
		assert.NotEmpty(t, report.RunID)

		assert.LessOrEqual(t, pool.Idle(), objpool.DefaultConfig().MaxIdle())
		assert.LessOrEqual(t, policy.CreateCalls(), int64(200))
		assert.Equal(t, 14, tracker.Rented())
	})

	t.Run("Concurrent workers drain on exit", func(t *testing.T) {
		tracker, pool, _ := newTrackedPool(t, objpool.DefaultConfig())
		cfg := DefaultConfig()
		cfg.Workers = 8
		cfg.Iterations = 1000
		cfg.DrainOnExit = true

		report, err := Run(context.Background(), tracker, cfg, nil)
		require.NoError(t, err)
		require.NoError(t, tracker.Err())

		assert.Equal(t, uint64(8000), report.Gets)
		assert.Equal(t, report.Gets, report.Returns)
		assert.Zero(t, report.Outstanding)
		assert.Zero(t, tracker.Rented())
		assert.LessOrEqual(t, pool.Idle(), objpool.DefaultConfig().MaxIdle())
	})

	t.Run("Canceled context returns held instances", func(t *testing.T) {
		tracker, _, _ := newTrackedPool(t, objpool.DefaultConfig())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := Run(ctx, tracker, DefaultConfig(), nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, report.Gets)
		assert.Zero(t, tracker.Rented())
	})

	t.Run("Paced workload", func(t *testing.T) {
		tracker, _, _ := newTrackedPool(t, objpool.DefaultConfig())
		cfg := DefaultConfig()
		cfg.Iterations = 20
		cfg.Threshold = 5
		cfg.OpsPerSecond = 1e6

		report, err := Run(context.Background(), tracker, cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), report.Gets)
		assert.Equal(t, uint64(3), report.Drains)
	})

	t.Run("Invalid config", func(t *testing.T) {
		tracker, _, _ := newTrackedPool(t, objpool.DefaultConfig())
		cfg := DefaultConfig()
		cfg.Workers = 0
		_, err := Run(context.Background(), tracker, cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workers must be positive")
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing fields keep defaults", func(t *testing.T) {
		path := filepath.Join(dir, "workload.yaml")
		require.NoError(t, os.WriteFile(path, []byte("iterations: 50\nworkers: 4\nops_per_second: 100\n"), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Iterations)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, 100.0, cfg.OpsPerSecond)
		assert.Equal(t, DefaultConfig().Threshold, cfg.Threshold)
	})

	t.Run("Invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("threshold: -1\n"), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold must not be negative")
	})

	t.Run("ReadConfig leaves validation to the caller", func(t *testing.T) {
		path := filepath.Join(dir, "unvalidated.yaml")
		require.NoError(t, os.WriteFile(path, []byte("threshold: -1\n"), 0o600))

		cfg, err := ReadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, -1, cfg.Threshold)
		assert.Error(t, cfg.Validate())
	})

	t.Run("Malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "malformed.yaml")
		require.NoError(t, os.WriteFile(path, []byte("iterations: [\n"), 0o600))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "unmarshal workload config")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestReportWriteJSON(t *testing.T) {
	r := Report{RunID: "run-1", Workers: 1, Gets: 10, Returns: 10, Elapsed: 1e9}
	assert.Equal(t, 20.0, r.OpsPerSecond())

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"run_id": "run-1"`)
	assert.Contains(t, buf.String(), `"ops_per_second": 20`)
}
