package decompiler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsrc/internal/archive"
	"mcsrc/internal/token"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   []string
	options []map[string]string
	block   map[string]chan struct{}
	started chan string
	err     error
}

func (f *fakeEngine) Decompile(ctx context.Context, className string, cfg Config) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, className)
	f.options = append(f.options, cfg.Options)
	ch := f.block[className]
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- className
	}
	if ch != nil {
		<-ch
	}
	if f.err != nil {
		return "", f.err
	}
	if data, err := cfg.Source(ctx, className); err != nil || data == nil {
		return "", fmt.Errorf("source missing for %s", className)
	}
	src := "import a.dep.Dep;\n\nclass " + token.SimpleName(className) + " {}\n"
	cfg.Tokens.Start(src)
	cfg.Tokens.VisitClass(len("import a.dep.Dep;\n\nclass "), len(token.SimpleName(className)), true, className)
	cfg.Tokens.End()
	return src, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEngine) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *fakeRenderer) Bytecode(_ context.Context, classes [][]byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, c := range classes {
		names = append(names, string(c))
	}
	r.calls = append(r.calls, names)
	return fmt.Sprintf("%d classes", len(classes)), nil
}

func testJar(t *testing.T, version string, classes ...string) archive.Jar {
	t.Helper()
	files := map[string][]byte{}
	for _, c := range classes {
		files[c] = []byte(c)
	}
	return archive.Jar{Version: version, Archive: archive.MustOpen(files)}
}

func newService(t *testing.T, engine Engine, renderer BytecodeRenderer) *Service {
	t.Helper()
	svc, err := NewService(engine, renderer)
	require.NoError(t, err)
	return svc
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "1.21:a/A.class", CacheKey("1.21", "a/A.class", false))
	assert.Equal(t, "1.21:a/A.class:lambdas", CacheKey("1.21", "a/A.class", true))
}

func TestDecompileCachesResult(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(t, engine, nil)
	jar := testJar(t, "v1", "a/A.class")

	first := svc.Decompile(context.Background(), jar, "a/A.class", false)
	second := svc.Decompile(context.Background(), jar, "a/A.class", false)

	assert.Equal(t, 1, engine.callCount())
	assert.Equal(t, first, second)
	assert.Equal(t, Java, first.Language)
	assert.Equal(t, "a/A.class", first.ClassName)
	assert.Equal(t, []string{"a/A"}, engine.callList())
}

func TestDecompileTokensIncludeImportsAndAreSorted(t *testing.T) {
	svc := newService(t, &fakeEngine{}, nil)
	res := svc.Decompile(context.Background(), testJar(t, "v1", "a/A.class"), "a/A.class", false)

	require.Len(t, res.Tokens, 2)
	require.True(t, token.Sorted(res.Tokens))
	assert.Equal(t, "a/dep/Dep", res.Tokens[0].ClassName)
	assert.False(t, res.Tokens[0].Declaration)
	assert.Equal(t, "a/A", res.Tokens[1].ClassName)
	assert.True(t, res.Tokens[1].Declaration)
}

func TestDecompileLambdasUsesSeparateKeyAndOption(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(t, engine, nil)
	jar := testJar(t, "v1", "a/A.class")

	svc.Decompile(context.Background(), jar, "a/A.class", false)
	svc.Decompile(context.Background(), jar, "a/A.class", true)

	require.Equal(t, 2, engine.callCount())
	assert.Empty(t, engine.options[0])
	assert.Equal(t, "1", engine.options[1][OptionMarkSynthetics])
	assert.True(t, svc.Cached("v1:a/A.class"))
	assert.True(t, svc.Cached("v1:a/A.class:lambdas"))
}

func TestDecompileEvictsLeastRecentlyUsed(t *testing.T) {
	var classes []string
	for i := 0; i <= CacheSize+1; i++ {
		classes = append(classes, fmt.Sprintf("c/C%d.class", i))
	}
	engine := &fakeEngine{}
	svc := newService(t, engine, nil)
	jar := testJar(t, "v", classes...)
	ctx := context.Background()

	for i := 0; i < CacheSize; i++ {
		svc.Decompile(ctx, jar, classes[i], false)
	}
	// Touch the oldest entry so C1 becomes the eviction candidate.
	svc.Decompile(ctx, jar, classes[0], false)
	require.Equal(t, CacheSize, engine.callCount())

	svc.Decompile(ctx, jar, classes[CacheSize], false)
	assert.True(t, svc.Cached(CacheKey("v", classes[0], false)))
	assert.False(t, svc.Cached(CacheKey("v", classes[1], false)))
	assert.Len(t, svc.CachedKeys(), CacheSize)

	svc.Decompile(ctx, jar, classes[1], false)
	assert.Equal(t, CacheSize+2, engine.callCount())
}

func TestDecompileClassNotFound(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(t, engine, nil)
	res := svc.Decompile(context.Background(), testJar(t, "v", "a/A.class"), "a/Missing.class", false)
	assert.Equal(t, "// Class not found: a/Missing.class", res.Source)
	assert.Empty(t, res.Tokens)
	assert.Equal(t, 0, engine.callCount())
}

func TestDecompileEngineErrorBecomesComment(t *testing.T) {
	svc := newService(t, &fakeEngine{err: errors.New("boom")}, nil)
	res := svc.Decompile(context.Background(), testJar(t, "v", "a/A.class"), "a/A.class", false)
	assert.Equal(t, "// Error during decompilation: boom", res.Source)
	assert.Empty(t, res.Tokens)
	assert.Equal(t, Java, res.Language)
}

func TestDecompileCoalescesConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	engine := &fakeEngine{
		block:   map[string]chan struct{}{"a/A": release},
		started: make(chan string, 4),
	}
	svc := newService(t, engine, nil)
	jar := testJar(t, "v", "a/A.class")

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Decompile(context.Background(), jar, "a/A.class", false)
		}(i)
	}

	<-engine.started
	require.Eventually(t, func() bool { return svc.InFlight() == 2 }, time.Second, 5*time.Millisecond)
	busy, _ := svc.IsDecompiling().Value()
	assert.True(t, busy)

	close(release)
	wg.Wait()

	assert.Equal(t, 1, engine.callCount())
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 0, svc.InFlight())
	busy, _ = svc.IsDecompiling().Value()
	assert.False(t, busy)
}

func TestBytecodeCollectsNestedClassesAndSkipsCache(t *testing.T) {
	renderer := &fakeRenderer{}
	svc := newService(t, &fakeEngine{}, renderer)
	jar := testJar(t, "v", "a/A.class", "a/A$2.class", "a/A$1.class", "a/AB.class")

	res := svc.Bytecode(context.Background(), jar, "a/A.class")
	svc.Bytecode(context.Background(), jar, "a/A.class")

	assert.Equal(t, Bytecode, res.Language)
	assert.Equal(t, "3 classes", res.Source)
	require.Len(t, renderer.calls, 2)
	assert.Equal(t, []string{"a/A.class", "a/A$1.class", "a/A$2.class"}, renderer.calls[0])
	assert.Empty(t, svc.CachedKeys())
}

func TestBytecodeMissingClass(t *testing.T) {
	svc := newService(t, &fakeEngine{}, &fakeRenderer{})
	res := svc.Bytecode(context.Background(), testJar(t, "v", "a/A.class"), "a/B.class")
	assert.Equal(t, "// Class not found: a/B.class", res.Source)
	assert.Equal(t, Bytecode, res.Language)
}

func TestNewServiceRequiresEngine(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatal("NewService(nil) error = nil")
	}
}
