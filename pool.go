// Package objpool implements bounded, concurrency-safe object pools.
//
// A BoundedPool keeps at most a fixed number of idle instances. Get never
// blocks: when the pool is empty a new instance is created through the
// pool's Policy. Return never blocks either: instances that do not fit are
// dropped and left to the garbage collector (or to the policy's Discard).
//
// A BufferedPool puts a small fixed-width buffer with its own lock in front
// of a BoundedPool so that most Get/Return calls never touch the shared
// store.
package objpool

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrInvalidCapacity    = errors.New("capacity must be positive")
	ErrNilPolicy          = errors.New("policy cannot be nil or incomplete")
	ErrNilBackingPool     = errors.New("backing pool cannot be nil")
	ErrInvalidBufferWidth = errors.New("buffer width must be positive")
	ErrInvalidShards      = errors.New("shard count must be a positive power of two")
)

// Pooler is the contract shared by every pool in this package.
type Pooler[T any] interface {
	Get() T
	Return(obj T)
}

// Stats represents pool stats.
type Stats struct {
	Gets      uint64 // Total Get calls.
	Creates   uint64 // Instances created by Get because no idle instance was available.
	Prewarmed uint64 // Instances created by Allocate.
	Returns   uint64 // Total Return calls.
	Rejected  uint64 // Instances discarded because Reset returned false.
	Dropped   uint64 // Instances discarded because the store was full.
	Idle      int    // Idle instances held by the bounded store.

	BufferHits   uint64 // Gets served from an object buffer.
	BufferSpills uint64 // Returns that overflowed an object buffer into the store.
	Buffered     int    // Idle instances held by object buffers.
}

// Reset resets stats for re-use.
func (s *Stats) Reset() {
	*s = Stats{}
}

// Reused returns the number of Gets that did not create a new instance.
func (s Stats) Reused() uint64 {
	if s.Creates > s.Gets {
		return 0
	}
	return s.Gets - s.Creates
}

// BoundedPool is a fixed-capacity pool of reusable instances.
// It is safe for concurrent use by multiple goroutines.
type BoundedPool[T any] struct {
	mu        sync.Mutex
	items     []T // LIFO store of idle instances, len(items) <= capacity.
	capacity  int
	policy    Policy[T]
	discarder Discarder[T] // Nil unless policy implements Discarder.
	logger    *slog.Logger

	gets      atomic.Uint64
	creates   atomic.Uint64
	prewarmed atomic.Uint64
	returns   atomic.Uint64
	rejected  atomic.Uint64
	dropped   atomic.Uint64
}

// NewBoundedPool creates a new, empty pool holding at most capacity idle
// instances. A nil logger defaults to slog.Default().
//
// ErrNilPolicy is returned for a nil policy and for policies of this package
// that cannot create instances, such as a PolicyFuncs without CreateFunc.
func NewBoundedPool[T any](capacity int, policy Policy[T], logger *slog.Logger) (*BoundedPool[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if policy == nil {
		return nil, ErrNilPolicy
	}
	if v, ok := policy.(validator); ok && !v.valid() {
		return nil, ErrNilPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &BoundedPool[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
		policy:   policy,
		logger:   logger,
	}
	if d, ok := policy.(Discarder[T]); ok {
		p.discarder = d
	}
	return p, nil
}

// Get removes an idle instance from the pool and returns it.
// If the pool is empty a new instance is created by the policy.
func (p *BoundedPool[T]) Get() T {
	p.gets.Add(1)
	if obj, ok := p.pop(); ok {
		return obj
	}
	p.creates.Add(1)
	return p.policy.Create()
}

// Return resets obj and stores it for reuse. The instance is discarded if
// the policy rejects it or if the pool is already at capacity.
//
// Returning the same instance twice without an intervening Get is not
// detected and may lead to the instance being handed out twice.
func (p *BoundedPool[T]) Return(obj T) {
	if !p.reset(obj) {
		return
	}
	p.put(obj)
}

// Allocate ensures that at least n instances are idle in the pool, bounded
// by its capacity. This is useful for pre-warming a pool.
func (p *BoundedPool[T]) Allocate(n int) {
	n = min(n, p.capacity)
	if n <= 0 {
		return
	}
	p.mu.Lock()
	missing := n - len(p.items)
	p.mu.Unlock()

	// Create outside of the lock; concurrent Returns may fill the store
	// first, in which case put drops the surplus.
	for range missing {
		p.prewarmed.Add(1)
		p.put(p.policy.Create())
	}
	if missing > 0 {
		p.logger.Debug("pool pre-warmed", "created", missing, "capacity", p.capacity)
	}
}

// Idle returns the number of idle instances held by the pool.
func (p *BoundedPool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Cap returns the maximum number of idle instances the pool can hold.
func (p *BoundedPool[T]) Cap() int {
	return p.capacity
}

// Stats returns a snapshot of the pool stats.
func (p *BoundedPool[T]) Stats() Stats {
	var s Stats
	p.UpdateStats(&s)
	return s
}

// UpdateStats adds the pool stats to s.
func (p *BoundedPool[T]) UpdateStats(s *Stats) {
	s.Gets += p.gets.Load()
	s.Creates += p.creates.Load()
	s.Prewarmed += p.prewarmed.Load()
	s.Returns += p.returns.Load()
	s.Rejected += p.rejected.Load()
	s.Dropped += p.dropped.Load()
	s.Idle += p.Idle()
}

func (p *BoundedPool[T]) pop() (obj T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.items) - 1
	if n < 0 {
		return obj, false
	}
	obj = p.items[n]
	var zero T
	p.items[n] = zero // Don't keep a reference to a rented instance.
	p.items = p.items[:n]
	return obj, true
}

// reset runs the policy's Reset on obj and reports whether obj may be reused.
// Rejected instances are discarded.
func (p *BoundedPool[T]) reset(obj T) bool {
	p.returns.Add(1)
	if p.policy.Reset(obj) {
		return true
	}
	p.rejected.Add(1)
	p.discard(obj)
	return false
}

// put stores an already reset instance, or drops it if the pool is full.
func (p *BoundedPool[T]) put(obj T) {
	p.mu.Lock()
	if len(p.items) < p.capacity {
		p.items = append(p.items, obj)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.dropped.Add(1)
	p.discard(obj)
}

// discard hands a dropped instance to the policy's Discard, if any.
// It must not be called while holding the mutex.
func (p *BoundedPool[T]) discard(obj T) {
	if p.discarder != nil {
		p.discarder.Discard(obj)
	}
}
