package objpool

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
)

type Config struct {
	Capacity int // Maximum number of idle instances held by the bounded pool.

	// BufferWidth is the number of slots in each object buffer placed in
	// front of the bounded pool. A wider buffer absorbs larger bursts
	// without touching the shared store, at the cost of more idle
	// instances: up to Capacity + Shards*BufferWidth in total.
	BufferWidth int

	Shards int // Number of object buffers. Must be a power of two.
}

func DefaultConfig() Config {
	return Config{
		Capacity:    8,
		BufferWidth: 4,
		Shards:      1,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("invalid config: %w, got %d", ErrInvalidCapacity, c.Capacity))
	}
	if c.BufferWidth <= 0 {
		errs = append(errs, fmt.Errorf("invalid config: %w, got %d", ErrInvalidBufferWidth, c.BufferWidth))
	}
	if c.Shards <= 0 || bits.OnesCount(uint(c.Shards)) != 1 {
		errs = append(errs, fmt.Errorf("invalid config: %w, got %d", ErrInvalidShards, c.Shards))
	}
	return errors.Join(errs...)
}

// MaxIdle returns the upper bound on idle instances held by a pool built
// from c.
func (c Config) MaxIdle() int {
	return c.Capacity + c.Shards*c.BufferWidth
}

// NewBuffered creates a bounded pool and a single buffered layer in front of it.
// config.Shards is ignored.
func NewBuffered[T any](policy Policy[T], logger *slog.Logger, config Config) (*BufferedPool[T], error) {
	config.Shards = 1
	if err := config.Validate(); err != nil {
		return nil, err
	}
	backing, err := NewBoundedPool(config.Capacity, policy, logger)
	if err != nil {
		return nil, err
	}
	return NewBufferedPool(backing, config.BufferWidth)
}

// NewSharded creates a bounded pool and config.Shards buffered layers in front of it.
func NewSharded[T any](policy Policy[T], logger *slog.Logger, config Config) (*ShardedPool[T], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	backing, err := NewBoundedPool(config.Capacity, policy, logger)
	if err != nil {
		return nil, err
	}
	return NewShardedPool(backing, config.Shards, config.BufferWidth)
}
