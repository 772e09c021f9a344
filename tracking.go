package objpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrDoubleReturn = errors.New("instance returned twice")
	ErrNotRented    = errors.New("instance was never rented")
	ErrDoubleRent   = errors.New("instance rented while already checked out")
)

// TrackingPool wraps a Pooler and records which instances are checked out
// and which have been returned. Returns of instances that are not checked
// out are rejected and never reach the wrapped pool, so the wrapped store
// cannot be corrupted by duplicate returns.
//
// The returned set also keeps instances the wrapped pool has since dropped,
// so without a limit it grows with every instance ever created. A pool built
// with NewLimitedTrackingPool forgets the oldest returns beyond its limit; a
// second return of a forgotten instance is still rejected, but as
// ErrNotRented.
//
// It is meant for tests and benchmarks; the bookkeeping costs a map
// operation per call.
type TrackingPool[T comparable] struct {
	mu         sync.Mutex
	pool       Pooler[T]
	logger     *slog.Logger
	rented     map[T]struct{}
	returned   map[T]uint64 // Instance to the sequence number of its last return.
	seq        uint64
	order      []returnEntry[T] // Ring of recent returns, nil when unlimited.
	head       int
	violations []error
}

type returnEntry[T comparable] struct {
	obj T
	seq uint64
}

// NewTrackingPool wraps pool and remembers every returned instance.
// A nil logger defaults to slog.Default().
func NewTrackingPool[T comparable](pool Pooler[T], logger *slog.Logger) *TrackingPool[T] {
	return NewLimitedTrackingPool(pool, 0, logger)
}

// NewLimitedTrackingPool is like NewTrackingPool but remembers at most limit
// returned instances. A limit <= 0 means no limit.
func NewLimitedTrackingPool[T comparable](pool Pooler[T], limit int, logger *slog.Logger) *TrackingPool[T] {
	if pool == nil {
		panic("objpool: tracked pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &TrackingPool[T]{
		pool:     pool,
		logger:   logger,
		rented:   make(map[T]struct{}),
		returned: make(map[T]uint64),
	}
	if limit > 0 {
		p.order = make([]returnEntry[T], 0, limit)
	}
	return p
}

// Get rents an instance from the wrapped pool.
func (p *TrackingPool[T]) Get() T {
	obj := p.pool.Get()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rented[obj]; ok {
		p.violate(fmt.Errorf("%w: %v", ErrDoubleRent, obj))
	}
	p.rented[obj] = struct{}{}
	delete(p.returned, obj)
	return obj
}

// Return returns obj to the wrapped pool. Violations are recorded and
// logged; the offending instance is not forwarded.
func (p *TrackingPool[T]) Return(obj T) {
	_ = p.ReturnChecked(obj)
}

// ReturnChecked is like Return but also reports a violation as an error
// wrapping ErrDoubleReturn or ErrNotRented.
func (p *TrackingPool[T]) ReturnChecked(obj T) error {
	p.mu.Lock()
	if _, ok := p.rented[obj]; !ok {
		var err error
		if _, ok := p.returned[obj]; ok {
			err = fmt.Errorf("%w: %v", ErrDoubleReturn, obj)
		} else {
			err = fmt.Errorf("%w: %v", ErrNotRented, obj)
		}
		p.violate(err)
		p.mu.Unlock()
		return err
	}
	delete(p.rented, obj)
	p.remember(obj)
	p.mu.Unlock()

	p.pool.Return(obj)
	return nil
}

// Rented returns the number of instances currently checked out.
func (p *TrackingPool[T]) Rented() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rented)
}

// Returned returns the number of distinct instances returned and not rented since.
func (p *TrackingPool[T]) Returned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.returned)
}

// Err returns all recorded violations joined, or nil.
func (p *TrackingPool[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.violations...)
}

// remember adds obj to the returned set, forgetting the oldest return if the
// ring is full. It assumes the caller holds the mutex.
func (p *TrackingPool[T]) remember(obj T) {
	p.seq++
	p.returned[obj] = p.seq
	if p.order == nil {
		return
	}
	e := returnEntry[T]{obj: obj, seq: p.seq}
	if len(p.order) < cap(p.order) {
		p.order = append(p.order, e)
		return
	}
	// Entries are stale once their instance was rented or returned again.
	if old := p.order[p.head]; p.returned[old.obj] == old.seq {
		delete(p.returned, old.obj)
	}
	p.order[p.head] = e
	p.head = (p.head + 1) % len(p.order)
}

// violate records err. It assumes the caller holds the mutex.
func (p *TrackingPool[T]) violate(err error) {
	p.violations = append(p.violations, err)
	p.logger.Warn("pool ownership violation", "error", err)
}
