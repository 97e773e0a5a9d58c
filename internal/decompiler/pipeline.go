package decompiler

import (
	"context"
	"log"
	"sync"
	"time"

	"mcsrc/internal/archive"
	"mcsrc/internal/observable"
)

// SettleWindow is how long a selection must stay unchanged before it is
// decompiled.
const SettleWindow = 250 * time.Millisecond

// Selection is what the viewer currently wants to see.
type Selection struct {
	ClassName      string
	Jar            archive.Jar
	DisplayLambdas bool
	Bytecode       bool
}

func (s Selection) complete() bool {
	return s.ClassName != "" && s.Jar.Archive != nil
}

func (s Selection) equal(o Selection) bool {
	return s.ClassName == o.ClassName &&
		s.Jar.Same(o.Jar) &&
		s.DisplayLambdas == o.DisplayLambdas &&
		s.Bytecode == o.Bytecode
}

// Pipeline combines the latest class, jar and display options into one
// selection stream and publishes the result of the most recent selection.
// Results of superseded selections still land in the service cache but are
// never published.
type Pipeline struct {
	svc    *Service
	window time.Duration

	mu      sync.Mutex
	current Selection
	last    Selection
	sent    bool

	inputs  chan Selection
	results *observable.Subject[Result]
}

// NewPipeline creates a pipeline. A zero window uses SettleWindow.
func NewPipeline(svc *Service, window time.Duration) *Pipeline {
	if window <= 0 {
		window = SettleWindow
	}
	return &Pipeline{
		svc:     svc,
		window:  window,
		inputs:  make(chan Selection, 16),
		results: observable.New[Result](),
	}
}

// Results replays the latest published result to any subscriber.
func (p *Pipeline) Results() *observable.Subject[Result] {
	return p.results
}

func (p *Pipeline) SetClass(className string) {
	p.update(func(s *Selection) { s.ClassName = className })
}

func (p *Pipeline) SetJar(jar archive.Jar) {
	p.update(func(s *Selection) { s.Jar = jar })
}

func (p *Pipeline) SetDisplayLambdas(v bool) {
	p.update(func(s *Selection) { s.DisplayLambdas = v })
}

func (p *Pipeline) SetBytecode(v bool) {
	p.update(func(s *Selection) { s.Bytecode = v })
}

// Select replaces the whole selection at once.
func (p *Pipeline) Select(sel Selection) {
	p.update(func(s *Selection) { *s = sel })
}

func (p *Pipeline) update(fn func(*Selection)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.current)
	sel := p.current
	if !sel.complete() || (p.sent && sel.equal(p.last)) {
		return
	}
	p.last = sel
	p.sent = true

	for {
		select {
		case p.inputs <- sel:
			return
		default:
		}
		// The settle stage only needs the newest value; make room for it.
		select {
		case <-p.inputs:
		default:
		}
	}
}

type outcome struct {
	gen    uint64
	result Result
}

// Run drives the pipeline until ctx is canceled.
func (p *Pipeline) Run(ctx context.Context) {
	settled := observable.Settle(ctx, p.inputs, p.window)
	done := make(chan outcome)
	var gen uint64
	for {
		select {
		case <-ctx.Done():
			return
		case sel, ok := <-settled:
			if !ok {
				return
			}
			gen++
			go func(sel Selection, g uint64) {
				res := p.svc.Resolve(ctx, sel)
				select {
				case done <- outcome{gen: g, result: res}:
				case <-ctx.Done():
				}
			}(sel, gen)
		case o := <-done:
			if o.gen != gen {
				log.Printf("decompile: dropping superseded result for %s", o.result.ClassName)
				continue
			}
			p.results.Set(o.result)
		}
	}
}
