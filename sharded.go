package objpool

import (
	"math/bits"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ShardedPool spreads Get and Return over several buffered layers that
// share one backing pool. Each shard has its own lock, so contention on any
// single buffer drops as the shard count grows.
type ShardedPool[T any] struct {
	shards  []*BufferedPool[T]
	mask    uint64
	next    atomic.Uint64
	backing *BoundedPool[T]
}

// NewShardedPool creates shards buffered layers of the given width in front
// of backing. shards must be a power of two.
func NewShardedPool[T any](backing *BoundedPool[T], shards, width int) (*ShardedPool[T], error) {
	if backing == nil {
		return nil, ErrNilBackingPool
	}
	if shards <= 0 || bits.OnesCount(uint(shards)) != 1 {
		return nil, ErrInvalidShards
	}
	p := &ShardedPool[T]{
		shards:  make([]*BufferedPool[T], shards),
		mask:    uint64(shards - 1),
		backing: backing,
	}
	for i := range p.shards {
		bp, err := NewBufferedPool(backing, width)
		if err != nil {
			return nil, err
		}
		p.shards[i] = bp
	}
	return p, nil
}

// shardIndex maps n to a shard. Faster modulo via bitwise AND; requires the
// shard count to be a power of two.
func (p *ShardedPool[T]) shardIndex(n uint64) uint64 {
	return n & p.mask
}

// Get returns an instance from the next shard in round-robin order.
func (p *ShardedPool[T]) Get() T {
	return p.shards[p.shardIndex(p.next.Add(1))].Get()
}

// Return returns obj to the next shard in round-robin order.
func (p *ShardedPool[T]) Return(obj T) {
	p.shards[p.shardIndex(p.next.Add(1))].Return(obj)
}

// GetKeyed returns an instance from the shard owning key. Callers that use
// a stable key (a connection or request id) keep hitting the same buffer.
func (p *ShardedPool[T]) GetKeyed(key []byte) T {
	return p.shards[p.shardIndex(xxhash.Sum64(key))].Get()
}

// ReturnKeyed returns obj to the shard owning key.
func (p *ShardedPool[T]) ReturnKeyed(key []byte, obj T) {
	p.shards[p.shardIndex(xxhash.Sum64(key))].Return(obj)
}

// Shards returns the number of shards.
func (p *ShardedPool[T]) Shards() int {
	return len(p.shards)
}

// Idle returns the number of idle instances across all shards and the backing pool.
func (p *ShardedPool[T]) Idle() int {
	n := p.backing.Idle()
	for _, s := range p.shards {
		n += s.buffered()
	}
	return n
}

// Stats returns a snapshot of the stats of all shards and the backing pool.
func (p *ShardedPool[T]) Stats() Stats {
	var s Stats
	p.backing.UpdateStats(&s)
	for _, shard := range p.shards {
		shard.updateBufferStats(&s)
	}
	return s
}
