// Package jarindex builds a usage and class-metadata index of a whole jar
// across a pool of workers and answers queries against it.
package jarindex

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mcsrc/internal/observable"
)

// Engine is the per-worker indexer. Each instance sees only the classes its
// worker ingested.
type Engine interface {
	Index(data []byte) error
	Usage(key string) []string
	UsageSize() int
	Bytecode(classes [][]byte) (string, error)
	ClassData() []string
}

// EngineFactory creates a fresh engine for a worker.
type EngineFactory func() Engine

// Source lists and reads class files. *archive.Archive satisfies it.
type Source interface {
	ClassFiles() []string
	Read(ctx context.Context, name string) ([]byte, error)
}

// Idle is the progress value while no indexing is running.
const Idle = -1

// DefaultWorkers sizes the pool from the available CPUs, falling back to 4.
func DefaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

type Options struct {
	Workers int
	// Progress receives integer percentages while indexing and Idle
	// otherwise. A private subject is used when nil.
	Progress *observable.Subject[int]
}

type run struct {
	done chan struct{}
	err  error
}

// Index coordinates one jar's workers. The first query triggers indexing;
// concurrent queries wait on the same run, and a failed run is forgotten so
// the next query starts over with fresh engines.
type Index struct {
	src     Source
	factory EngineFactory
	size    int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers []*worker
	current *run
	indexed bool
	closed  bool

	classDataMu sync.Mutex
	classData   []ClassData

	progress     *observable.Subject[int]
	progressMu   sync.Mutex
	lastReported int64
}

func New(src Source, factory EngineFactory, opts Options) *Index {
	size := opts.Workers
	if size <= 0 {
		size = DefaultWorkers()
	}
	progress := opts.Progress
	if progress == nil {
		progress = observable.NewWithValue(Idle)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Index{
		src:      src,
		factory:  factory,
		size:     size,
		ctx:      ctx,
		cancel:   cancel,
		progress: progress,
	}
}

// Progress reports indexing progress as a percentage, or Idle.
func (x *Index) Progress() *observable.Subject[int] {
	return x.progress
}

// Workers returns the pool size.
func (x *Index) Workers() int {
	return x.size
}

// Close stops every worker. Pending and later queries fail with ErrClosed.
func (x *Index) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return
	}
	x.closed = true
	x.cancel()
	for _, w := range x.workers {
		w.stop()
	}
	x.workers = nil
}

// Ensure blocks until the jar is indexed.
func (x *Index) Ensure(ctx context.Context) error {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return ErrClosed
	}
	if x.indexed {
		x.mu.Unlock()
		return nil
	}
	r := x.current
	if r == nil {
		r = &run{done: make(chan struct{})}
		x.current = r
		if len(x.workers) == 0 {
			x.workers = make([]*worker, x.size)
			for i := range x.workers {
				x.workers[i] = startWorker(x.factory())
			}
		}
		go x.perform(r, x.workers)
	}
	x.mu.Unlock()

	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (x *Index) perform(r *run, workers []*worker) {
	err := x.indexAll(x.ctx, workers)

	x.mu.Lock()
	if x.closed {
		err = ErrClosed
	}
	if err != nil {
		x.current = nil
		// Engines hold whatever they ingested before the failure; retry
		// with new ones.
		for _, w := range workers {
			w.stop()
		}
		x.workers = nil
	} else {
		x.indexed = true
	}
	r.err = err
	close(r.done)
	x.mu.Unlock()
}

type queue struct {
	mu    sync.Mutex
	items []string
}

func (q *queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last, true
}

func (x *Index) indexAll(ctx context.Context, workers []*worker) error {
	started := time.Now()
	files := x.src.ClassFiles()
	total := int64(len(files))
	q := &queue{items: files}

	x.progressMu.Lock()
	x.lastReported = 0
	x.progressMu.Unlock()
	x.progress.Set(0)
	defer x.progress.Set(Idle)

	threshold := total / 100
	if threshold < 1 {
		threshold = 1
	}
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			for {
				name, ok := q.pop()
				if !ok {
					return nil
				}
				data, err := x.src.Read(gctx, name)
				if err != nil {
					return fmt.Errorf("read %s: %w", name, err)
				}
				_, err = call(gctx, w, func(e Engine) (struct{}, error) {
					return struct{}{}, e.Index(data)
				})
				if err != nil {
					return fmt.Errorf("index %s: %w", name, err)
				}
				x.reportProgress(completed.Add(1), total, threshold)
			}
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("jarindex: indexing failed after %s: %v", time.Since(started).Round(time.Millisecond), err)
		return err
	}

	sizes, err := gather(ctx, workers, func(e Engine) (int, error) { return e.UsageSize(), nil })
	if err != nil {
		return err
	}
	keys := 0
	for _, n := range sizes {
		keys += n
	}
	log.Printf("jarindex: indexed %d classes with %d workers in %s (%d usage keys)",
		total, len(workers), time.Since(started).Round(time.Millisecond), keys)
	return nil
}

func (x *Index) reportProgress(done, total, threshold int64) {
	x.progressMu.Lock()
	defer x.progressMu.Unlock()
	if done-x.lastReported < threshold && done != total {
		return
	}
	x.lastReported = done
	x.progress.Set(int(math.Round(float64(done) / float64(total) * 100)))
}

// gather runs fn on every worker concurrently and returns the answers in
// worker order.
func gather[T any](ctx context.Context, workers []*worker, fn func(Engine) (T, error)) ([]T, error) {
	out := make([]T, len(workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range workers {
		g.Go(func() error {
			v, err := call(gctx, w, fn)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (x *Index) indexedWorkers(ctx context.Context) ([]*worker, error) {
	if err := x.Ensure(ctx); err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil, ErrClosed
	}
	return x.workers, nil
}

// Usage returns every usage site recorded for key across all workers.
func (x *Index) Usage(ctx context.Context, key string) ([]string, error) {
	workers, err := x.indexedWorkers(ctx)
	if err != nil {
		return nil, err
	}
	parts, err := gather(ctx, workers, func(e Engine) ([]string, error) { return e.Usage(key), nil })
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// ClassData returns the metadata of every class. The merged list is kept
// after the first successful retrieval.
func (x *Index) ClassData(ctx context.Context) ([]ClassData, error) {
	x.classDataMu.Lock()
	defer x.classDataMu.Unlock()
	if x.classData != nil {
		return x.classData, nil
	}
	workers, err := x.indexedWorkers(ctx)
	if err != nil {
		return nil, err
	}
	parts, err := gather(ctx, workers, func(e Engine) ([]string, error) { return e.ClassData(), nil })
	if err != nil {
		return nil, err
	}
	out := []ClassData{}
	for _, p := range parts {
		for _, record := range p {
			out = append(out, ParseClassData(record))
		}
	}
	x.classData = out
	return out, nil
}

// Bytecode renders a listing on the first worker. It does not require the
// jar to be indexed.
func (x *Index) Bytecode(ctx context.Context, classes [][]byte) (string, error) {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return "", ErrClosed
	}
	if len(x.workers) == 0 {
		x.workers = make([]*worker, x.size)
		for i := range x.workers {
			x.workers[i] = startWorker(x.factory())
		}
	}
	w := x.workers[0]
	x.mu.Unlock()
	return call(ctx, w, func(e Engine) (string, error) { return e.Bytecode(classes) })
}
