package decompiler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"mcsrc/internal/archive"
	"mcsrc/internal/observable"
	"mcsrc/internal/token"
)

// CacheSize bounds the number of decompiled classes kept in memory.
const CacheSize = 75

// CacheKey identifies a result by jar version, class and display options.
func CacheKey(version, className string, displayLambdas bool) string {
	key := version + ":" + className
	if displayLambdas {
		key += ":lambdas"
	}
	return key
}

// Service decompiles classes from a jar through an Engine, caching results
// and collapsing concurrent requests for the same key into one engine call.
type Service struct {
	engine   Engine
	bytecode BytecodeRenderer
	cache    *lru.Cache[string, Result]
	flights  singleflight.Group
	counter  *observable.Counter
}

// NewService builds a service. bytecode may be nil when bytecode listings
// are not needed.
func NewService(engine Engine, bytecode BytecodeRenderer) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("decompiler engine is nil")
	}
	cache, err := lru.New[string, Result](CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create decompile cache: %w", err)
	}
	return &Service{
		engine:   engine,
		bytecode: bytecode,
		cache:    cache,
		counter:  observable.NewCounter(),
	}, nil
}

// IsDecompiling is true while any Decompile or Bytecode call is in flight.
func (s *Service) IsDecompiling() *observable.Subject[bool] {
	return s.counter.Busy()
}

// InFlight returns the number of running calls.
func (s *Service) InFlight() int {
	return s.counter.Count()
}

// Cached reports whether key is resident without touching recency.
func (s *Service) Cached(key string) bool {
	return s.cache.Contains(key)
}

// CachedKeys lists resident keys from least to most recently used.
func (s *Service) CachedKeys() []string {
	return s.cache.Keys()
}

// Decompile returns the Java source of className ("pkg/Name.class") in jar.
// Failures are reported inside the result so viewers always get something
// to display.
func (s *Service) Decompile(ctx context.Context, jar archive.Jar, className string, displayLambdas bool) Result {
	s.counter.Inc()
	defer s.counter.Dec()

	key := CacheKey(jar.Version, className, displayLambdas)
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	v, _, shared := s.flights.Do(key, func() (any, error) {
		if cached, ok := s.cache.Peek(key); ok {
			return cached, nil
		}
		// Joined callers must not lose their result when the first caller
		// goes away.
		res := s.decompileClass(context.WithoutCancel(ctx), jar, className, displayLambdas)
		s.cache.Add(key, res)
		return res, nil
	})
	if shared {
		log.Printf("decompile: joined in-flight request for %s", key)
	}
	return v.(Result)
}

func (s *Service) decompileClass(ctx context.Context, jar archive.Jar, className string, displayLambdas bool) Result {
	name := strings.TrimSuffix(className, ".class")
	if !jar.Archive.Has(className) {
		return Result{ClassName: className, Source: "// Class not found: " + className, Language: Java}
	}

	options := map[string]string{}
	if displayLambdas {
		options[OptionMarkSynthetics] = "1"
	}
	recorder := token.NewRecorder()
	cfg := Config{
		Source:    classSource(jar.Archive),
		Resources: jar.Archive.ClassNames(),
		Options:   options,
		Tokens:    recorder,
	}

	source, err := s.engine.Decompile(ctx, name, cfg)
	if err != nil {
		log.Printf("decompile: %s@%s failed: %v", className, jar.Version, err)
		return Result{ClassName: className, Source: "// Error during decompilation: " + err.Error(), Language: Java}
	}

	tokens := recorder.Tokens()
	if recorder.Content() != "" && recorder.Content() != source {
		// Spans refer to text the engine did not return.
		tokens = nil
	}
	tokens = append(tokens, token.ImportTokens(source)...)
	token.Sort(tokens)
	return Result{ClassName: className, Source: source, Tokens: tokens, Language: Java}
}

// classSource resolves internal names against the archive. Absent classes
// yield nil so engines can treat them as library types.
func classSource(a *archive.Archive) SourceFunc {
	return func(ctx context.Context, name string) ([]byte, error) {
		path := name + ".class"
		if !a.Has(path) {
			log.Printf("decompile: class %s not in jar", path)
			return nil, nil
		}
		return a.Read(ctx, path)
	}
}

// Bytecode renders the class and its nested classes. Listings are not cached.
func (s *Service) Bytecode(ctx context.Context, jar archive.Jar, className string) Result {
	s.counter.Inc()
	defer s.counter.Dec()

	if !jar.Archive.Has(className) {
		return Result{ClassName: className, Source: "// Class not found: " + className, Language: Bytecode}
	}
	if s.bytecode == nil {
		return Result{ClassName: className, Source: "// Error during bytecode retrieval: no bytecode renderer", Language: Bytecode}
	}

	base := strings.TrimSuffix(className, ".class")
	var nested []string
	for _, name := range jar.Archive.ClassFiles() {
		if strings.HasPrefix(name, base+"$") {
			nested = append(nested, name)
		}
	}
	sort.Strings(nested)

	names := append([]string{className}, nested...)
	blobs := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := jar.Archive.Read(ctx, name)
		if err != nil {
			return Result{ClassName: className, Source: "// Error during bytecode retrieval: " + err.Error(), Language: Bytecode}
		}
		blobs = append(blobs, data)
	}

	listing, err := s.bytecode.Bytecode(ctx, blobs)
	if err != nil {
		log.Printf("decompile: bytecode %s@%s failed: %v", className, jar.Version, err)
		return Result{ClassName: className, Source: "// Error during bytecode retrieval: " + err.Error(), Language: Bytecode}
	}
	return Result{ClassName: className, Source: listing, Language: Bytecode}
}

// Resolve serves a selection in whichever mode it asks for.
func (s *Service) Resolve(ctx context.Context, sel Selection) Result {
	if sel.Bytecode {
		return s.Bytecode(ctx, sel.Jar, sel.ClassName)
	}
	return s.Decompile(ctx, sel.Jar, sel.ClassName, sel.DisplayLambdas)
}
