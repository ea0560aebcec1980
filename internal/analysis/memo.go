package analysis

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoTTL is how long one memoized analysis result stays warm.
const DefaultMemoTTL = 30 * time.Second

// AnalyzeFunc is the underlying analysis operation fronted by the memoizer.
type AnalyzeFunc func(ctx context.Context, projectRoot string) Result

// Memoizer is a single-slot, short-TTL cache in front of the analysis
// source, so commands issued in quick succession for the same project share
// one analysis pass. Exactly one project can be warm at a time; a request
// for a different project evicts the slot.
type Memoizer struct {
	fn  AnalyzeFunc
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	slot *memoSlot
}

type memoSlot struct {
	projectRoot string
	result      Result
	at          time.Time
}

// MemoOption configures a Memoizer.
type MemoOption func(*Memoizer)

// WithTTL overrides the slot TTL.
func WithTTL(ttl time.Duration) MemoOption {
	return func(m *Memoizer) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithMemoClock replaces the wall clock (tests).
func WithMemoClock(now func() time.Time) MemoOption {
	return func(m *Memoizer) { m.now = now }
}

// NewMemoizer creates a memoizer over fn.
func NewMemoizer(fn AnalyzeFunc, opts ...MemoOption) *Memoizer {
	m := &Memoizer{
		fn:  fn,
		ttl: DefaultMemoTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Analyze returns the memoized result when the slot holds a live entry for
// the same project root, otherwise calls through and replaces the slot.
func (m *Memoizer) Analyze(ctx context.Context, projectRoot string) Result {
	m.mu.Lock()
	if m.slot != nil && m.slot.projectRoot == projectRoot && m.now().Sub(m.slot.at) < m.ttl {
		result := m.slot.result
		m.mu.Unlock()
		return result
	}
	m.mu.Unlock()

	result := m.fn(ctx, projectRoot)

	m.mu.Lock()
	m.slot = &memoSlot{projectRoot: projectRoot, result: result, at: m.now()}
	m.mu.Unlock()
	return result
}

// Invalidate clears the slot unconditionally.
func (m *Memoizer) Invalidate() {
	m.mu.Lock()
	m.slot = nil
	m.mu.Unlock()
}
