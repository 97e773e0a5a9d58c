// Package observable holds replay-latest values that any number of
// goroutines can watch. Subscribers always see the most recent value; slow
// readers skip intermediate ones.
package observable

import (
	"context"
	"sync"
)

// Subject stores the latest value of T and wakes subscribers on change.
type Subject[T any] struct {
	mu      sync.Mutex
	value   T
	set     bool
	version uint64
	changed chan struct{}
	equal   func(a, b T) bool
}

// New returns an empty subject. Subscribers block until the first Set.
func New[T any]() *Subject[T] {
	return &Subject[T]{changed: make(chan struct{})}
}

// NewWithValue returns a subject that already holds v.
func NewWithValue[T any](v T) *Subject[T] {
	s := New[T]()
	s.value = v
	s.set = true
	return s
}

// NewDistinct returns a subject that ignores Set calls equal to the current value.
func NewDistinct[T any](initial T, equal func(a, b T) bool) *Subject[T] {
	s := NewWithValue(initial)
	s.equal = equal
	return s
}

// Value returns the current value and whether one was ever set.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// Set publishes v. It reports whether subscribers were notified.
func (s *Subject[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set && s.equal != nil && s.equal(s.value, v) {
		return false
	}
	s.value = v
	s.set = true
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
	return true
}

// Update applies fn to the current value and publishes the result.
func (s *Subject[T]) Update(fn func(T) T) bool {
	s.mu.Lock()
	next := fn(s.value)
	s.mu.Unlock()
	return s.Set(next)
}

func (s *Subject[T]) snapshot() (T, bool, uint64, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set, s.version, s.changed
}

// Wait blocks until a value has been set or ctx is done.
func (s *Subject[T]) Wait(ctx context.Context) (T, error) {
	for {
		v, ok, _, ch := s.snapshot()
		if ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ch:
		}
	}
}

// WaitFor blocks until the current value satisfies pred.
func (s *Subject[T]) WaitFor(ctx context.Context, pred func(T) bool) (T, error) {
	for {
		v, ok, _, ch := s.snapshot()
		if ok && pred(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe replays the current value (if any) and then every later one
// until ctx is canceled. The returned channel is closed on cancel.
func (s *Subject[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T, 1)
	go func() {
		defer close(out)
		var sent uint64
		first := true
		for {
			v, ok, version, ch := s.snapshot()
			if ok && (first || version != sent) {
				select {
				case <-ctx.Done():
					return
				case out <- v:
				}
				sent = version
				first = false
			}
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out
}
