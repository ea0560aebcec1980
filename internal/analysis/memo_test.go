package analysis

import (
	"context"
	"testing"
	"time"

	"akb/internal/snapshot"
)

func TestMemoizerSharesOnePass(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, projectRoot string) Result {
		calls++
		return Result{Snapshot: &snapshot.Snapshot{}}
	}
	m := NewMemoizer(fn)

	m.Analyze(context.Background(), "/srv/demo")
	m.Analyze(context.Background(), "/srv/demo")
	m.Analyze(context.Background(), "/srv/demo")

	if calls != 1 {
		t.Errorf("expected 1 underlying call within TTL, got %d", calls)
	}
}

func TestMemoizerDifferentProjectEvicts(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, projectRoot string) Result {
		calls++
		return Result{Snapshot: &snapshot.Snapshot{}}
	}
	m := NewMemoizer(fn)

	m.Analyze(context.Background(), "/srv/alpha")
	m.Analyze(context.Background(), "/srv/beta")
	if calls != 2 {
		t.Errorf("different project should re-invoke, got %d calls", calls)
	}

	// The first project is no longer warm: the slot holds beta only.
	m.Analyze(context.Background(), "/srv/alpha")
	if calls != 3 {
		t.Errorf("evicted project should re-invoke, got %d calls", calls)
	}
}

func TestMemoizerTTLExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	calls := 0
	fn := func(ctx context.Context, projectRoot string) Result {
		calls++
		return Result{Snapshot: &snapshot.Snapshot{}}
	}
	m := NewMemoizer(fn, WithMemoClock(clock))

	m.Analyze(context.Background(), "/srv/demo")
	now = now.Add(29 * time.Second)
	m.Analyze(context.Background(), "/srv/demo")
	if calls != 1 {
		t.Errorf("within TTL should be cached, got %d calls", calls)
	}

	now = now.Add(2 * time.Second)
	m.Analyze(context.Background(), "/srv/demo")
	if calls != 2 {
		t.Errorf("past TTL should re-invoke, got %d calls", calls)
	}
}

func TestMemoizerInvalidate(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, projectRoot string) Result {
		calls++
		return Result{Snapshot: &snapshot.Snapshot{}}
	}
	m := NewMemoizer(fn)

	m.Analyze(context.Background(), "/srv/demo")
	m.Invalidate()
	m.Analyze(context.Background(), "/srv/demo")

	if calls != 2 {
		t.Errorf("invalidate should force re-invocation, got %d calls", calls)
	}
}

func TestMemoizerCachesErrorResults(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, projectRoot string) Result {
		calls++
		return Result{Err: "no analysis available"}
	}
	m := NewMemoizer(fn)

	first := m.Analyze(context.Background(), "/srv/demo")
	second := m.Analyze(context.Background(), "/srv/demo")

	if calls != 1 {
		t.Errorf("error results share the slot too, got %d calls", calls)
	}
	if first.Err != second.Err {
		t.Error("memoized error result should be identical")
	}
}
