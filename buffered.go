package objpool

import (
	"sync"
	"sync/atomic"
)

// ObjectBuffer is a fixed-width stack of instances.
// It is not safe for concurrent use.
type ObjectBuffer[T any] struct {
	slots []T
	n     int // Number of occupied slots; slots[:n] hold live instances.
}

// NewObjectBuffer creates an empty buffer with width slots.
func NewObjectBuffer[T any](width int) *ObjectBuffer[T] {
	return &ObjectBuffer[T]{slots: make([]T, width)}
}

// TryPush stores obj in a free slot. It returns false if the buffer is full.
func (b *ObjectBuffer[T]) TryPush(obj T) bool {
	if b.n == len(b.slots) {
		return false
	}
	b.slots[b.n] = obj
	b.n++
	return true
}

// TryPop removes and returns the most recently pushed instance.
// It returns false if the buffer is empty.
func (b *ObjectBuffer[T]) TryPop() (obj T, ok bool) {
	if b.n == 0 {
		return obj, false
	}
	b.n--
	obj = b.slots[b.n]
	var zero T
	b.slots[b.n] = zero
	return obj, true
}

// Len returns the number of occupied slots.
func (b *ObjectBuffer[T]) Len() int { return b.n }

// Cap returns the buffer width.
func (b *ObjectBuffer[T]) Cap() int { return len(b.slots) }

// BufferedPool serves Get and Return from a small object buffer guarded by
// a single lock, and only falls through to the backing BoundedPool when the
// buffer is empty (Get) or full (Return).
type BufferedPool[T any] struct {
	mu      sync.Mutex
	buf     *ObjectBuffer[T]
	backing *BoundedPool[T]

	hits   atomic.Uint64
	spills atomic.Uint64
}

// NewBufferedPool creates a buffered layer of the given width in front of backing.
func NewBufferedPool[T any](backing *BoundedPool[T], width int) (*BufferedPool[T], error) {
	if backing == nil {
		return nil, ErrNilBackingPool
	}
	if width <= 0 {
		return nil, ErrInvalidBufferWidth
	}
	return &BufferedPool[T]{
		buf:     NewObjectBuffer[T](width),
		backing: backing,
	}, nil
}

// Get returns a buffered instance, or one from the backing pool if the
// buffer is empty.
func (p *BufferedPool[T]) Get() T {
	p.mu.Lock()
	obj, ok := p.buf.TryPop()
	p.mu.Unlock()
	if ok {
		p.hits.Add(1)
		return obj
	}
	return p.backing.Get()
}

// Return resets obj with the backing pool's policy and keeps it in the
// buffer. If the buffer is full the instance is handed to the backing pool.
func (p *BufferedPool[T]) Return(obj T) {
	if !p.backing.reset(obj) {
		return
	}
	p.mu.Lock()
	ok := p.buf.TryPush(obj)
	p.mu.Unlock()
	if ok {
		return
	}
	p.spills.Add(1)
	p.backing.put(obj)
}

// Idle returns the number of idle instances in the buffer and the backing pool.
func (p *BufferedPool[T]) Idle() int {
	return p.buffered() + p.backing.Idle()
}

// Backing returns the pool behind the buffer.
func (p *BufferedPool[T]) Backing() *BoundedPool[T] {
	return p.backing
}

// Stats returns a snapshot of the buffer and backing pool stats.
func (p *BufferedPool[T]) Stats() Stats {
	var s Stats
	p.backing.UpdateStats(&s)
	p.updateBufferStats(&s)
	return s
}

// updateBufferStats adds the buffer's own stats to s. Gets served by the
// buffer never reach the backing pool, so they are added to s.Gets too.
func (p *BufferedPool[T]) updateBufferStats(s *Stats) {
	hits := p.hits.Load()
	s.Gets += hits
	s.BufferHits += hits
	s.BufferSpills += p.spills.Load()
	s.Buffered += p.buffered()
}

func (p *BufferedPool[T]) buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Len()
}
