// Package session owns the long-lived viewer state: the decompile cache,
// per-jar indexes, the selected version and file, settings and docs.
// Components receive what they need from here instead of reaching for
// globals.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"mcsrc/internal/archive"
	"mcsrc/internal/classfile"
	"mcsrc/internal/decompiler"
	"mcsrc/internal/inheritance"
	"mcsrc/internal/jarindex"
	"mcsrc/internal/javadoc"
	"mcsrc/internal/minecraft"
	"mcsrc/internal/observable"
	"mcsrc/internal/settings"
	"mcsrc/internal/state"
	"mcsrc/internal/usage"
)

type Config struct {
	// Engine decompiles classes. Nil uses the declaration-only renderer.
	Engine decompiler.Engine
	// Indexer creates jar index engines. Nil uses the class-file indexer.
	Indexer      jarindex.EngineFactory
	IndexWorkers int

	Minecraft minecraft.Loader
	Settings  *settings.Settings
	Javadoc   *javadoc.Client
	Initial   state.State
}

// Session is one viewer. Create it with New, start it with Start and tear
// it down with Close.
type Session struct {
	cfg Config

	Service     *decompiler.Service
	Pipeline    *decompiler.Pipeline
	Versions    *minecraft.Coordinator
	DiffLeft    *minecraft.Coordinator
	Settings    *settings.Settings
	Selection   *state.Selection
	Docs        *javadoc.Store
	DocsClient  *javadoc.Client
	Hierarchy   *inheritance.Builder
	Navigator   *usage.Navigator
	Usages      *usage.Searcher
	Jumps       *observable.Subject[Jump]
	HideSizes   *observable.Subject[bool]
	IndexStatus *observable.Subject[int]
	Downloading *minecraft.Progress
	LeftLoading *minecraft.Progress

	mu      sync.Mutex
	indexes map[*archive.Archive]*jarindex.Index
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

func New(cfg Config) (*Session, error) {
	if cfg.Minecraft == nil {
		return nil, fmt.Errorf("minecraft loader is nil")
	}
	if cfg.Engine == nil {
		cfg.Engine = classfile.SkeletonDecompiler{}
	}
	if cfg.Indexer == nil {
		cfg.Indexer = func() jarindex.Engine { return classfile.NewIndexer() }
	}
	if cfg.IndexWorkers <= 0 {
		cfg.IndexWorkers = jarindex.DefaultWorkers()
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.New(nil)
	}
	if cfg.Initial.File == "" {
		cfg.Initial = state.Default()
	}
	if cfg.Initial.Version != 0 {
		// A permalink shows plain source.
		_ = cfg.Settings.ResetPermalinkAffecting()
	}

	s := &Session{
		cfg:         cfg,
		Settings:    cfg.Settings,
		Selection:   state.NewSelection(cfg.Initial),
		Docs:        javadoc.NewStore(),
		DocsClient:  cfg.Javadoc,
		Hierarchy:   inheritance.NewBuilder(),
		Navigator:   usage.NewNavigator(),
		Jumps:       observable.New[Jump](),
		HideSizes:   observable.NewDistinct(false, func(a, b bool) bool { return a == b }),
		IndexStatus: observable.NewDistinct(jarindex.Idle, func(a, b int) bool { return a == b }),
		Downloading: minecraft.NewProgress(),
		LeftLoading: minecraft.NewProgress(),
		indexes:     map[*archive.Archive]*jarindex.Index{},
	}
	svc, err := decompiler.NewService(cfg.Engine, indexBytecode{s})
	if err != nil {
		return nil, err
	}
	s.Service = svc
	s.Pipeline = decompiler.NewPipeline(svc, decompiler.SettleWindow)
	s.Versions = minecraft.NewCoordinator(cfg.Minecraft, s.Downloading)
	s.DiffLeft = minecraft.NewCoordinator(cfg.Minecraft, s.LeftLoading)
	s.Usages = usage.NewSearcher(currentIndex{s}, usage.SearchWindow)
	return s, nil
}

// Start launches the background loops. Downloads begin once the EULA has
// been accepted.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.goRun(func() { s.Versions.Run(ctx) })
	s.goRun(func() { s.DiffLeft.Run(ctx) })
	s.goRun(func() { s.Pipeline.Run(ctx) })
	s.goRun(func() { s.Usages.Run(ctx) })
	s.goRun(func() { s.followJar(ctx) })
	s.goRun(func() { s.followLeftJar(ctx) })
	s.goRun(func() { s.followSelection(ctx) })
	s.goRun(func() { s.followSettings(ctx) })
	s.goRun(func() { s.awaitEula(ctx) })
	s.goRun(func() { s.followResults(ctx) })
	s.goRun(func() { s.followJumps(ctx) })
}

func (s *Session) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Close stops the loops and releases every jar index.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for a, x := range s.indexes {
		x.Close()
		delete(s.indexes, a)
	}
}

func (s *Session) awaitEula(ctx context.Context) {
	if _, err := s.Settings.AgreedEula.Observable().WaitFor(ctx, func(v bool) bool { return v }); err != nil {
		return
	}
	if err := s.Versions.Initialize(ctx, s.Selection.Value().MinecraftVersion); err != nil {
		log.Printf("session: load versions failed: %v", err)
		s.Versions.Failures().Set(err)
		return
	}
	if versions, _ := s.Versions.Versions().Value(); len(versions) > 0 {
		s.DiffLeft.Versions().Set(versions)
	}
}

func (s *Session) followJar(ctx context.Context) {
	for jar := range s.Versions.Jar().Subscribe(ctx) {
		s.Selection.SetMinecraftVersion(jar.Version)
		s.Pipeline.SetJar(jar)
		s.retainIndexes()
	}
}

func (s *Session) followLeftJar(ctx context.Context) {
	for range s.DiffLeft.Jar().Subscribe(ctx) {
		s.retainIndexes()
	}
}

func (s *Session) followSelection(ctx context.Context) {
	for st := range s.Selection.Observable().Subscribe(ctx) {
		s.Pipeline.SetClass(st.File)
	}
}

func (s *Session) followSettings(ctx context.Context) {
	lambdas := s.Settings.DisplayLambdas.Observable().Subscribe(ctx)
	bytecode := s.Settings.Bytecode.Observable().Subscribe(ctx)
	for {
		select {
		case v, ok := <-lambdas:
			if !ok {
				return
			}
			s.Pipeline.SetDisplayLambdas(v)
		case v, ok := <-bytecode:
			if !ok {
				return
			}
			s.Pipeline.SetBytecode(v)
		}
	}
}

// followResults loads server docs for each displayed class when an editor
// login is present.
func (s *Session) followResults(ctx context.Context) {
	if s.DocsClient == nil {
		return
	}
	for res := range s.Pipeline.Results().Subscribe(ctx) {
		if res.Language != decompiler.Java || s.DocsClient.NeedsLogin() {
			continue
		}
		version := s.Selection.Value().MinecraftVersion
		if err := s.Docs.Refresh(ctx, s.DocsClient, version, res.ClassName); err != nil {
			log.Printf("session: refresh javadoc for %s failed: %v", res.ClassName, err)
		}
	}
}

// CurrentJar is the jar of the selected version.
func (s *Session) CurrentJar() (archive.Jar, bool) {
	jar, ok := s.Versions.Jar().Value()
	return jar, ok && jar.Archive != nil
}

// LeftJar is the older side of a diff.
func (s *Session) LeftJar() (archive.Jar, bool) {
	jar, ok := s.DiffLeft.Jar().Value()
	return jar, ok && jar.Archive != nil
}

// Index returns the jar index for jar, creating it on first use.
func (s *Session) Index(jar archive.Jar) (*jarindex.Index, error) {
	if jar.Archive == nil {
		return nil, fmt.Errorf("no jar loaded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, jarindex.ErrClosed
	}
	if x, ok := s.indexes[jar.Archive]; ok {
		return x, nil
	}
	x := jarindex.New(jar.Archive, s.cfg.Indexer, jarindex.Options{
		Workers:  s.cfg.IndexWorkers,
		Progress: s.IndexStatus,
	})
	s.indexes[jar.Archive] = x
	return x, nil
}

// retainIndexes closes indexes of jars that are no longer shown.
func (s *Session) retainIndexes() {
	keep := map[*archive.Archive]bool{}
	if jar, ok := s.CurrentJar(); ok {
		keep[jar.Archive] = true
	}
	if jar, ok := s.LeftJar(); ok {
		keep[jar.Archive] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for a, x := range s.indexes {
		if !keep[a] {
			x.Close()
			delete(s.indexes, a)
		}
	}
}

// IndexCount is the number of live jar indexes.
func (s *Session) IndexCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indexes)
}

// currentIndex answers usage lookups against the selected version.
type currentIndex struct{ s *Session }

func (c currentIndex) Usage(ctx context.Context, key string) ([]string, error) {
	jar, ok := c.s.CurrentJar()
	if !ok {
		return nil, fmt.Errorf("no jar loaded")
	}
	x, err := c.s.Index(jar)
	if err != nil {
		return nil, err
	}
	return x.Usage(ctx, key)
}

// indexBytecode renders listings on a worker of the current jar's index,
// or in-process when no jar is loaded yet.
type indexBytecode struct{ s *Session }

func (b indexBytecode) Bytecode(ctx context.Context, classes [][]byte) (string, error) {
	if jar, ok := b.s.CurrentJar(); ok {
		if x, err := b.s.Index(jar); err == nil {
			return x.Bytecode(ctx, classes)
		}
	}
	return classfile.RenderBytecode(classes)
}
