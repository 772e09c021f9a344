package main

import (
	"github.com/spf13/pflag"

	"github.com/holmberd/go-objpool"
	"github.com/holmberd/go-objpool/internal/workload"
)

type options struct {
	configPath   string
	pool         objpool.Config
	workload     workload.Config
	maxRetained  int
	otlpEndpoint string
	verbose      bool
}

// parseFlags parses args. Workload settings are read from --config first;
// flags given on the command line override the file. The merged settings
// are validated once.
func parseFlags(args []string) (options, error) {
	fs := pflag.NewFlagSet("poolbench", pflag.ContinueOnError)
	fs.SortFlags = false

	opts := options{
		pool:     objpool.DefaultConfig(),
		workload: workload.DefaultConfig(),
	}
	wl := workload.DefaultConfig()

	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML workload file")
	fs.IntVar(&opts.pool.Capacity, "capacity", opts.pool.Capacity, "Maximum idle instances held by the bounded pool")
	fs.IntVar(&opts.pool.BufferWidth, "buffer-width", opts.pool.BufferWidth, "Slots in each object buffer")
	fs.IntVar(&opts.pool.Shards, "shards", opts.pool.Shards, "Number of object buffers, a power of two")
	fs.IntVarP(&wl.Iterations, "iterations", "n", wl.Iterations, "Gets performed by each worker")
	fs.IntVarP(&wl.Threshold, "threshold", "t", wl.Threshold, "Held instances that trigger a drain")
	fs.IntVarP(&wl.Workers, "workers", "w", wl.Workers, "Concurrent workers")
	fs.Float64Var(&wl.OpsPerSecond, "rate", wl.OpsPerSecond, "Gets per second across all workers, 0 for unlimited")
	fs.BoolVar(&wl.DrainOnExit, "drain", wl.DrainOnExit, "Return held instances when a worker finishes")
	fs.IntVar(&opts.maxRetained, "max-retained", 0, "Discard elements that grew beyond this many bytes, 0 to keep all")
	fs.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP endpoint for pool metrics")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.configPath != "" {
		loaded, err := workload.ReadConfig(opts.configPath)
		if err != nil {
			return opts, err
		}
		opts.workload = loaded
	}
	if opts.configPath == "" || fs.Changed("iterations") {
		opts.workload.Iterations = wl.Iterations
	}
	if opts.configPath == "" || fs.Changed("threshold") {
		opts.workload.Threshold = wl.Threshold
	}
	if opts.configPath == "" || fs.Changed("workers") {
		opts.workload.Workers = wl.Workers
	}
	if opts.configPath == "" || fs.Changed("rate") {
		opts.workload.OpsPerSecond = wl.OpsPerSecond
	}
	if opts.configPath == "" || fs.Changed("drain") {
		opts.workload.DrainOnExit = wl.DrainOnExit
	}

	if err := opts.pool.Validate(); err != nil {
		return opts, err
	}
	return opts, opts.workload.Validate()
}
