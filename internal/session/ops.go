package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mcsrc/internal/archive"
	"mcsrc/internal/decompiler"
	"mcsrc/internal/diff"
	"mcsrc/internal/inheritance"
	"mcsrc/internal/javadoc"
	"mcsrc/internal/token"
	"mcsrc/internal/usage"
)

// Jump is where the caret should move after a usage navigation.
type Jump struct {
	ClassName string         `json:"className"`
	Token     token.Token    `json:"token"`
	Location  token.Location `json:"location"`
}

// followJumps resolves a pending usage jump once the result for its class
// is shown. Either side may arrive first.
func (s *Session) followJumps(ctx context.Context) {
	results := s.Pipeline.Results().Subscribe(ctx)
	pending := s.Navigator.Pending().Subscribe(ctx)
	var latest decompiler.Result
	for {
		select {
		case res, ok := <-results:
			if !ok {
				return
			}
			latest = res
		case nav, ok := <-pending:
			if !ok {
				return
			}
			if nav == nil {
				continue
			}
		}
		if latest.ClassName == "" {
			continue
		}
		t, ok := s.Navigator.NextJumpToken(latest.ClassName, latest.Tokens)
		if !ok {
			continue
		}
		s.Jumps.Set(Jump{ClassName: latest.ClassName, Token: t, Location: token.Locate(latest.Source, t)})
	}
}

// Open selects className ("pkg/Name.class") in the current version.
func (s *Session) Open(className string, line, lineEnd int) {
	version := s.Selection.Value().MinecraftVersion
	if jar, ok := s.CurrentJar(); ok {
		version = jar.Version
	}
	s.Selection.SetFile(version, className, line, lineEnd)
}

// GoToUsage opens the class containing site and arms the jump to query.
func (s *Session) GoToUsage(query usage.Key, site usage.Site) {
	s.Open(s.Navigator.GoTo(query, site), 0, 0)
}

// Decompile renders className of jar with the current display settings.
func (s *Session) Decompile(ctx context.Context, jar archive.Jar, className string) decompiler.Result {
	if jar.Archive == nil {
		return decompiler.Result{ClassName: className, Source: "// No jar loaded", Language: decompiler.Java}
	}
	return s.Service.Resolve(ctx, decompiler.Selection{
		ClassName:      className,
		Jar:            jar,
		DisplayLambdas: s.Settings.DisplayLambdas.Value(),
		Bytecode:       s.Settings.Bytecode.Value(),
	})
}

// Definition resolves the reference at offset in res to the class file to
// open and the token it names.
func (s *Session) Definition(jar archive.Jar, res decompiler.Result, offset int) (token.Token, string, bool) {
	var classes token.ClassSet
	if jar.Archive != nil {
		classes = jar.Archive
	}
	t, ok := token.Definition(res.Tokens, offset, classes)
	if !ok {
		return token.Token{}, "", false
	}
	return t, t.OuterClass() + ".class", true
}

// FindUsages looks key up in the index of jar.
func (s *Session) FindUsages(ctx context.Context, jar archive.Jar, key usage.Key) ([]usage.Site, error) {
	x, err := s.Index(jar)
	if err != nil {
		return nil, err
	}
	return usage.Search(ctx, x, key)
}

// ClassHierarchy lays out the inheritance tree around className.
func (s *Session) ClassHierarchy(ctx context.Context, jar archive.Jar, className string) (inheritance.View, error) {
	x, err := s.Index(jar)
	if err != nil {
		return inheritance.View{}, err
	}
	graph, err := s.Hierarchy.Get(ctx, x, jar.Archive)
	if err != nil {
		return inheritance.View{}, err
	}
	return inheritance.Tree(graph, strings.TrimSuffix(className, ".class")), nil
}

// Changes lists the classes that differ between left and right. Same-size
// classes are skipped when asked to or while HideSizes is on.
func (s *Session) Changes(left, right archive.Jar, skipUnchangedSize bool) ([]diff.Change, error) {
	if left.Archive == nil || right.Archive == nil {
		return nil, fmt.Errorf("both diff sides must be loaded")
	}
	if hide, _ := s.HideSizes.Value(); hide {
		skipUnchangedSize = true
	}
	changes := diff.Changes(diff.Entries(left.Archive), diff.Entries(right.Archive), skipUnchangedSize)
	return diff.SortedChanges(changes), nil
}

// DiffSource decompiles className on both sides and diffs the sources. A
// side that lacks the class contributes an empty file.
func (s *Session) DiffSource(ctx context.Context, left, right archive.Jar, className string) (string, error) {
	if left.Archive == nil || right.Archive == nil {
		return "", fmt.Errorf("both diff sides must be loaded")
	}
	if !strings.HasSuffix(className, ".class") {
		className += ".class"
	}
	side := func(jar archive.Jar) string {
		if !jar.Archive.Has(className) {
			return ""
		}
		return s.Service.Decompile(ctx, jar, className, false).Source
	}
	name := strings.TrimSuffix(className, ".class") + ".java"
	out, err := diff.UnifiedSource(left.Version+"/"+name, right.Version+"/"+name, side(left), side(right))
	if err != nil {
		log.Printf("session: diff %s failed: %v", className, err)
		return "", err
	}
	return out, nil
}

// Decorations returns the doc blocks to show in res.
func (s *Session) Decorations(res decompiler.Result) []javadoc.Decoration {
	if res.Language != decompiler.Java {
		return nil
	}
	return s.Docs.Decorations(res.Source, res.Tokens)
}
