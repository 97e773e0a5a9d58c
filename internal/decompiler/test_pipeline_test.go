package decompiler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitResult(t *testing.T, p *Pipeline, className string) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := p.Results().WaitFor(ctx, func(r Result) bool { return r.ClassName == className })
	require.NoError(t, err)
	return res
}

func TestPipelineSettlesOnLatestSelection(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(t, engine, nil)
	p := NewPipeline(svc, 30*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.SetJar(testJar(t, "v", "a/A.class", "a/B.class"))
	p.SetClass("a/A.class")
	p.SetClass("a/B.class")

	res := waitResult(t, p, "a/B.class")
	assert.Equal(t, "a/B.class", res.ClassName)
	assert.Equal(t, []string{"a/B"}, engine.callList())

	// A late subscriber sees the latest value immediately.
	sub, subCancel := context.WithCancel(ctx)
	defer subCancel()
	select {
	case got := <-p.Results().Subscribe(sub):
		assert.Equal(t, "a/B.class", got.ClassName)
	case <-time.After(time.Second):
		t.Fatal("late subscriber got nothing")
	}
}

func TestPipelineWaitsForCompleteSelection(t *testing.T) {
	engine := &fakeEngine{}
	p := NewPipeline(newService(t, engine, nil), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.SetClass("a/A.class")
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, engine.callCount())

	p.SetJar(testJar(t, "v", "a/A.class"))
	waitResult(t, p, "a/A.class")
}

func TestPipelineDropsSupersededResultButCachesIt(t *testing.T) {
	releaseA := make(chan struct{})
	engine := &fakeEngine{
		block:   map[string]chan struct{}{"a/A": releaseA},
		started: make(chan string, 4),
	}
	svc := newService(t, engine, nil)
	p := NewPipeline(svc, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	jar := testJar(t, "v", "a/A.class", "a/B.class")
	p.Select(Selection{ClassName: "a/A.class", Jar: jar})
	require.Equal(t, "a/A", <-engine.started)

	p.Select(Selection{ClassName: "a/B.class", Jar: jar})
	require.Equal(t, "a/B", <-engine.started)
	waitResult(t, p, "a/B.class")

	close(releaseA)
	require.Eventually(t, func() bool { return svc.Cached(CacheKey("v", "a/A.class", false)) }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	latest, ok := p.Results().Value()
	require.True(t, ok)
	assert.Equal(t, "a/B.class", latest.ClassName)
}

func TestPipelineBytecodeMode(t *testing.T) {
	renderer := &fakeRenderer{}
	p := NewPipeline(newService(t, &fakeEngine{}, renderer), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Select(Selection{ClassName: "a/A.class", Jar: testJar(t, "v", "a/A.class"), Bytecode: true})
	res := waitResult(t, p, "a/A.class")
	assert.Equal(t, Bytecode, res.Language)
}
