package minecraft

import (
	"context"
	"fmt"
	"log"
	"sync"

	"mcsrc/internal/archive"
	"mcsrc/internal/observable"
)

// Loader is the part of Client the coordinator needs.
type Loader interface {
	Versions(ctx context.Context) ([]VersionEntry, error)
	Download(ctx context.Context, v VersionEntry, progress *Progress) (archive.Jar, error)
}

// Coordinator turns a stream of version selections into a stream of opened
// jars. A newer selection cancels the download of an older one.
type Coordinator struct {
	loader Loader

	versions *observable.Subject[[]VersionEntry]
	selected *observable.Subject[string]
	jar      *observable.Subject[archive.Jar]
	progress *Progress
	failure  *observable.Subject[error]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewCoordinator creates a coordinator. A nil progress gets a private one.
func NewCoordinator(loader Loader, progress *Progress) *Coordinator {
	if progress == nil {
		progress = NewProgress()
	}
	return &Coordinator{
		loader:   loader,
		versions: observable.NewWithValue[[]VersionEntry](nil),
		selected: observable.NewDistinct("", func(a, b string) bool { return a == b }),
		jar:      observable.New[archive.Jar](),
		progress: progress,
		failure:  observable.New[error](),
	}
}

func (c *Coordinator) Versions() *observable.Subject[[]VersionEntry] { return c.versions }
func (c *Coordinator) Selected() *observable.Subject[string]         { return c.selected }

// Jar replays the most recently opened jar.
func (c *Coordinator) Jar() *observable.Subject[archive.Jar] { return c.jar }
func (c *Coordinator) Progress() *Progress                   { return c.progress }

// Failures carries the last download error.
func (c *Coordinator) Failures() *observable.Subject[error] { return c.failure }

// Initialize loads the version list and selects preferred, or the newest
// version when preferred is empty or unknown.
func (c *Coordinator) Initialize(ctx context.Context, preferred string) error {
	versions, err := c.loader.Versions(ctx)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no supported minecraft versions")
	}
	c.versions.Set(versions)
	id := versions[0].ID
	if _, ok := Find(versions, preferred); ok {
		id = preferred
	} else if preferred != "" {
		log.Printf("minecraft: unknown version %q, using %s", preferred, id)
	}
	c.Select(id)
	return nil
}

// Select asks for version id. Repeating the current id is a no-op.
func (c *Coordinator) Select(id string) { c.selected.Set(id) }

// Load resolves id and downloads its jar without touching the streams.
func (c *Coordinator) Load(ctx context.Context, id string) (archive.Jar, error) {
	versions, _ := c.versions.Value()
	v, ok := Find(versions, id)
	if !ok {
		return archive.Jar{}, fmt.Errorf("unknown minecraft version %q", id)
	}
	return c.loader.Download(ctx, v, c.progress)
}

// Run follows selections until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for id := range c.selected.Subscribe(ctx) {
		if id == "" {
			continue
		}
		runCtx, gen := c.begin(ctx)
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			jar, err := c.Load(runCtx, id)
			if !c.current(gen) {
				return
			}
			if err != nil {
				log.Printf("minecraft: load %s failed: %v", id, err)
				c.failure.Set(err)
				return
			}
			c.jar.Set(jar)
		}(id)
	}
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
}

func (c *Coordinator) begin(ctx context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return runCtx, c.gen
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}
