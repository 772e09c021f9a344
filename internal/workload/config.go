package workload

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Iterations int `yaml:"iterations"` // Gets performed by each worker.

	// Threshold is the accumulator size that triggers a drain: once a
	// worker holds more than Threshold instances it returns all of them.
	Threshold int `yaml:"threshold"`

	Workers      int     `yaml:"workers"`        // Concurrent workers sharing the pool.
	OpsPerSecond float64 `yaml:"ops_per_second"` // Get rate limit per run. A value <= 0 disables pacing.
	DrainOnExit  bool    `yaml:"drain_on_exit"`  // Return held instances when a worker finishes.
}

func DefaultConfig() Config {
	return Config{
		Iterations: 200,
		Threshold:  30,
		Workers:    1,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Iterations < 0 {
		errs = append(errs, fmt.Errorf("invalid config: iterations must not be negative, got %d", c.Iterations))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Errorf("invalid config: threshold must not be negative, got %d", c.Threshold))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("invalid config: workers must be positive, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

// LoadConfig reads and validates a YAML workload file. Fields missing from
// the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ReadConfig is like LoadConfig but leaves validation to the caller, so that
// values can be overridden first.
func ReadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read workload config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal workload config: %w", err)
	}
	return cfg, nil
}
