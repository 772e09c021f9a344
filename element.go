package objpool

// Element is a reusable scratch byte buffer, the typical per-request
// instance kept in a pool.
type Element struct {
	buf []byte
}

// Write appends p to the element. It never fails.
func (e *Element) Write(p []byte) (int, error) {
	e.buf = append(e.buf, p...)
	return len(p), nil
}

// WriteString appends s to the element. It never fails.
func (e *Element) WriteString(s string) (int, error) {
	e.buf = append(e.buf, s...)
	return len(s), nil
}

// Bytes returns the written bytes. The slice is only valid until the next
// Reset.
func (e *Element) Bytes() []byte { return e.buf }

// Len returns the number of written bytes.
func (e *Element) Len() int { return len(e.buf) }

// Reset empties the element but keeps its capacity.
func (e *Element) Reset() {
	e.buf = e.buf[:0]
}

// ElementPolicy creates empty elements and resets returned ones.
// Elements that grew beyond MaxRetained bytes of capacity are discarded so
// that a single large request does not pin memory in the pool.
// A MaxRetained <= 0 retains elements of any size.
type ElementPolicy struct {
	MaxRetained int
}

func (p ElementPolicy) Create() *Element {
	return &Element{}
}

func (p ElementPolicy) Reset(e *Element) bool {
	if e == nil {
		return false
	}
	if p.MaxRetained > 0 && cap(e.buf) > p.MaxRetained {
		return false
	}
	e.Reset()
	return true
}
