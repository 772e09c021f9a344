package objpool

// Policy defines how a pool creates new instances and sanitizes returned
// ones before they are reused.
//
// Implementations must be safe for concurrent use. Reset is called outside
// of any pool lock and must only touch the instance it is given.
type Policy[T any] interface {
	// Create returns a new instance in its default state.
	// A failure to create is fatal and should panic.
	Create() T

	// Reset clears any per-use state on obj. It returns false if obj must
	// be discarded instead of being pooled. Resetting an already reset
	// instance is a no-op.
	Reset(obj T) bool
}

// Discarder is an optional extension of Policy. If a pool's policy
// implements it, Discard is called for every instance the pool drops,
// either because Reset rejected it or because the pool was full.
type Discarder[T any] interface {
	Discard(obj T)
}

// validator is implemented by policies of this package that can be built
// in an unusable state, such as a zero PolicyFuncs or a nil *ChunkPolicy.
type validator interface {
	valid() bool
}

// Resetter is implemented by values that can clear their own state.
type Resetter interface {
	Reset()
}

// ResetPolicy is a Policy for values that know how to reset themselves.
// Every returned instance is reset and accepted back into the pool.
type ResetPolicy[T Resetter] struct {
	newFunc func() T
}

// NewResetPolicy returns a ResetPolicy that creates instances with newFunc.
func NewResetPolicy[T Resetter](newFunc func() T) ResetPolicy[T] {
	if newFunc == nil {
		panic("objpool: newFunc must be provided")
	}
	return ResetPolicy[T]{newFunc: newFunc}
}

func (p ResetPolicy[T]) valid() bool {
	return p.newFunc != nil
}

func (p ResetPolicy[T]) Create() T {
	return p.newFunc()
}

func (p ResetPolicy[T]) Reset(obj T) bool {
	obj.Reset()
	return true
}

// PolicyFuncs adapts a pair of functions to the Policy interface.
// CreateFunc is required. A nil ResetFunc accepts every instance unchanged.
type PolicyFuncs[T any] struct {
	CreateFunc func() T
	ResetFunc  func(obj T) bool
}

func (p PolicyFuncs[T]) valid() bool {
	return p.CreateFunc != nil
}

func (p PolicyFuncs[T]) Create() T {
	return p.CreateFunc()
}

func (p PolicyFuncs[T]) Reset(obj T) bool {
	if p.ResetFunc == nil {
		return true
	}
	return p.ResetFunc(obj)
}
