package testutils

import (
	"sync/atomic"
)

// MockItem is a pooled instance that records what happened to it.
type MockItem struct {
	ID     int64
	Dirty  bool // Set by users, cleared by Reset.
	Resets int  // Number of times the item was reset.
}

// MockPolicy creates MockItems and counts policy calls.
// Set Reject to make Reset discard every item.
type MockPolicy struct {
	Reject atomic.Bool

	nextID       atomic.Int64
	createCalls  atomic.Int64
	resetCalls   atomic.Int64
	discardCalls atomic.Int64
}

func (p *MockPolicy) Create() *MockItem {
	p.createCalls.Add(1)
	return &MockItem{ID: p.nextID.Add(1)}
}

func (p *MockPolicy) Reset(item *MockItem) bool {
	p.resetCalls.Add(1)
	item.Dirty = false
	item.Resets++
	return !p.Reject.Load()
}

func (p *MockPolicy) Discard(item *MockItem) {
	p.discardCalls.Add(1)
}

func (p *MockPolicy) CreateCalls() int64 {
	return p.createCalls.Load()
}

func (p *MockPolicy) ResetCalls() int64 {
	return p.resetCalls.Load()
}

func (p *MockPolicy) DiscardCalls() int64 {
	return p.discardCalls.Load()
}

func (p *MockPolicy) Clear() {
	p.Reject.Store(false)
	p.createCalls.Store(0)
	p.resetCalls.Store(0)
	p.discardCalls.Store(0)
}
