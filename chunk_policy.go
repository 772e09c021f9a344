package objpool

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"

	"golang.org/x/sys/unix"
)

const (
	KiB = 1024
	MiB = KiB * KiB

	ChunkSize64K  = 64 * KiB
	ChunkSize512K = 512 * KiB
	ChunkSize2M   = 2 * MiB
)

var ErrUnsupportedChunkSize = errors.New("unsupported chunk size")

// chunkSizes represents supported chunk sizes ordered by smallest to largest.
var chunkSizes = [3]int{
	ChunkSize64K,
	ChunkSize512K,
	ChunkSize2M,
}

func init() {
	// Runtime assertion.
	if !sort.IntsAreSorted(chunkSizes[:]) {
		panic(errors.New("chunk sizes must be sorted in ascending order"))
	}
}

// ChunkSizes returns a slice of supported chunk sizes.
func ChunkSizes() []int {
	return slices.Clone(chunkSizes[:])
}

// Chunk is a fixed-size region of memory allocated outside the Go heap.
// Pooled chunks cut GC scan work for large, long-lived scratch space.
type Chunk struct {
	data []byte
	pos  int // Write head; data[:pos] holds written bytes.
}

// Write appends p to the chunk. If p does not fit, as much as fits is
// written and io.ErrShortWrite is returned.
func (c *Chunk) Write(p []byte) (int, error) {
	n := copy(c.data[c.pos:], p)
	c.pos += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Bytes returns the written bytes. The slice is only valid while the chunk
// is rented.
func (c *Chunk) Bytes() []byte { return c.data[:c.pos] }

// Len returns the number of written bytes.
func (c *Chunk) Len() int { return c.pos }

// Size returns the chunk size in bytes.
func (c *Chunk) Size() int { return len(c.data) }

// ChunkPolicy creates off-heap chunks of a single supported size.
// Chunks dropped by a pool are unmapped immediately.
type ChunkPolicy struct {
	size   int
	logger *slog.Logger
}

// NewChunkPolicy creates a policy for chunks of the given size.
// A nil logger defaults to slog.Default().
func NewChunkPolicy(size int, logger *slog.Logger) (*ChunkPolicy, error) {
	if !slices.Contains(chunkSizes[:], size) {
		return nil, fmt.Errorf("%w %d must be one of %v", ErrUnsupportedChunkSize, size, chunkSizes)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkPolicy{size: size, logger: logger}, nil
}

// Create allocates a new chunk.
// It panics if the memory cannot be mapped.
// valid reports whether p was built by NewChunkPolicy.
func (p *ChunkPolicy) valid() bool {
	return p != nil && slices.Contains(chunkSizes[:], p.size)
}

func (p *ChunkPolicy) Create() *Chunk {
	// Use unix.Mmap to allocate virtual memory that is not part the Go heap.
	// This effectively reduces how often the GOGC has to run.
	data, err := unix.Mmap(-1, 0, p.size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		panic(fmt.Errorf("cannot allocate %d bytes via mmap: %w", p.size, err))
	}
	return &Chunk{data: data[:p.size:p.size]}
}

// Reset zeroes the written part of c. Chunks of a foreign size are rejected.
func (p *ChunkPolicy) Reset(c *Chunk) bool {
	if c == nil || len(c.data) != p.size {
		return false
	}
	clear(c.data[:c.pos])
	c.pos = 0
	return true
}

// Discard releases the memory of a chunk back to the operating system.
func (p *ChunkPolicy) Discard(c *Chunk) {
	if c == nil || c.data == nil {
		return
	}
	if err := unix.Munmap(c.data); err != nil {
		p.logger.Error("failed to unmap chunk", "error", err)
	}
	c.data = nil
	c.pos = 0
}
