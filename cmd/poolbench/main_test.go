package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holmberd/go-objpool"
	"github.com/holmberd/go-objpool/internal/workload"
)

func TestParseFlags(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		opts, err := parseFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, objpool.DefaultConfig(), opts.pool)
		assert.Equal(t, workload.DefaultConfig(), opts.workload)
	})

	t.Run("Flags override the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "workload.yaml")
		require.NoError(t, os.WriteFile(path, []byte("iterations: 500\nthreshold: 10\nworkers: 2\n"), 0o600))

		opts, err := parseFlags([]string{"--config", path, "--workers", "4", "--shards", "2"})
		require.NoError(t, err)
		assert.Equal(t, 500, opts.workload.Iterations)
		assert.Equal(t, 10, opts.workload.Threshold)
		assert.Equal(t, 4, opts.workload.Workers)
		assert.Equal(t, 2, opts.pool.Shards)
	})

	t.Run("Flags fix invalid values in the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "workload.yaml")
		require.NoError(t, os.WriteFile(path, []byte("threshold: -1\nworkers: 0\n"), 0o600))

		_, err := parseFlags([]string{"--config", path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold must not be negative")

		opts, err := parseFlags([]string{"--config", path, "--threshold", "5", "--workers", "2"})
		require.NoError(t, err)
		assert.Equal(t, 5, opts.workload.Threshold)
		assert.Equal(t, 2, opts.workload.Workers)
	})

	t.Run("Invalid pool config", func(t *testing.T) {
		_, err := parseFlags([]string{"--shards", "3"})
		assert.ErrorIs(t, err, objpool.ErrInvalidShards)
	})
}

func TestRun(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, shards := range []string{"1", "4"} {
		t.Run("shards="+shards, func(t *testing.T) {
			opts, err := parseFlags([]string{"--shards", shards, "--workers", "4", "--drain"})
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, run(context.Background(), opts, logger, &out))
			assert.Contains(t, out.String(), `"gets": 800`)
			assert.Contains(t, out.String(), `"outstanding": 0`)
		})
	}
}
