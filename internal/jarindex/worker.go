package jarindex

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once the index has been closed.
var ErrClosed = errors.New("jar index closed")

// worker owns one engine. Every engine call runs on the worker goroutine,
// so engines need no locking of their own.
type worker struct {
	reqs    chan func(Engine)
	done    chan struct{}
	stopped sync.Once
}

func startWorker(e Engine) *worker {
	w := &worker{
		reqs: make(chan func(Engine)),
		done: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-w.done:
				return
			case fn := <-w.reqs:
				fn(e)
			}
		}
	}()
	return w
}

// stop may be called by both Close and a failed run.
func (w *worker) stop() {
	w.stopped.Do(func() { close(w.done) })
}

type reply[T any] struct {
	val T
	err error
}

// call runs fn on the worker and waits for its answer. If ctx ends first the
// answer is discarded when it arrives.
func call[T any](ctx context.Context, w *worker, fn func(Engine) (T, error)) (T, error) {
	var zero T
	out := make(chan reply[T], 1)
	req := func(e Engine) {
		v, err := fn(e)
		out <- reply[T]{val: v, err: err}
	}
	select {
	case w.reqs <- req:
	case <-w.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-out:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
