// Package javadoc keeps user-authored documentation for classes and their
// members and syncs it with the javadoc editor backend.
package javadoc

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"mcsrc/internal/observable"
	"mcsrc/internal/token"
)

// ClassDocs holds the docs of one class. Member maps are keyed by
// name+descriptor.
type ClassDocs struct {
	Javadoc string            `json:"javadoc,omitempty"`
	Methods map[string]string `json:"methods"`
	Fields  map[string]string `json:"fields"`
}

func (c ClassDocs) clone() ClassDocs {
	return ClassDocs{Javadoc: c.Javadoc, Methods: maps.Clone(c.Methods), Fields: maps.Clone(c.Fields)}
}

func newClassDocs() ClassDocs {
	return ClassDocs{Methods: map[string]string{}, Fields: map[string]string{}}
}

// Store is the process-wide doc overlay. It survives version switches.
type Store struct {
	mu      sync.RWMutex
	classes map[string]ClassDocs
	rev     *observable.Subject[uint64]
}

func NewStore() *Store {
	return &Store{classes: map[string]ClassDocs{}, rev: observable.NewWithValue[uint64](0)}
}

// Changes emits a revision number after every mutation.
func (s *Store) Changes() *observable.Subject[uint64] { return s.rev }

func (s *Store) bump() {
	s.rev.Update(func(v uint64) uint64 { return v + 1 })
}

func memberKey(t token.Token) string { return t.Name + t.Descriptor }

// Set stores doc for the class, field or method t refers to. An empty doc
// removes it. Other token types are ignored.
func (s *Store) Set(t token.Token, doc string) {
	switch t.Type {
	case token.Class, token.Method, token.Field:
	default:
		return
	}
	s.mu.Lock()
	entry, ok := s.classes[t.ClassName]
	if !ok {
		entry = newClassDocs()
	}
	switch t.Type {
	case token.Class:
		entry.Javadoc = doc
	case token.Method:
		setOrDelete(entry.Methods, memberKey(t), doc)
	case token.Field:
		setOrDelete(entry.Fields, memberKey(t), doc)
	}
	s.classes[t.ClassName] = entry
	s.mu.Unlock()
	s.bump()
}

// Clear removes the doc attached to t.
func (s *Store) Clear(t token.Token) { s.Set(t, "") }

func setOrDelete(m map[string]string, key, doc string) {
	if doc == "" {
		delete(m, key)
		return
	}
	m[key] = doc
}

// Class returns a copy of the docs held for className.
func (s *Store) Class(className string) (ClassDocs, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[className]
	if !ok {
		return ClassDocs{}, false
	}
	return c.clone(), true
}

// ForToken looks up the doc of the symbol t names. Parameters and locals
// never carry docs.
func (s *Store) ForToken(t token.Token) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[t.ClassName]
	if !ok {
		return "", false
	}
	var doc string
	switch t.Type {
	case token.Class:
		doc = c.Javadoc
	case token.Method:
		doc = c.Methods[memberKey(t)]
	case token.Field:
		doc = c.Fields[memberKey(t)]
	}
	return doc, doc != ""
}

// Merge replaces the entries of the given classes with server data.
func (s *Store) Merge(entries map[string]Entry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	for name, e := range entries {
		c := newClassDocs()
		c.Javadoc = e.Value
		if e.Methods != nil {
			c.Methods = maps.Clone(e.Methods)
		}
		if e.Fields != nil {
			c.Fields = maps.Clone(e.Fields)
		}
		s.classes[name] = c
	}
	s.mu.Unlock()
	s.bump()
}

// Refresh loads the server docs for className of version into the store.
func (s *Store) Refresh(ctx context.Context, c *Client, version, className string) error {
	if c == nil {
		return fmt.Errorf("javadoc client is nil")
	}
	if version == "" {
		return fmt.Errorf("javadoc: no minecraft version selected")
	}
	resp, err := c.Get(ctx, version, strings.TrimSuffix(className, ".class"))
	if err != nil {
		return err
	}
	s.Merge(resp.Data)
	return nil
}

// Decoration is a doc block shown above a declaration.
type Decoration struct {
	// AfterLine is the 1-based line the block follows; 0 places it first.
	AfterLine int         `json:"afterLine"`
	Text      string      `json:"text"`
	Token     token.Token `json:"token"`
}

// Decorations renders every documented declaration of source.
func (s *Store) Decorations(source string, tokens []token.Token) []Decoration {
	var out []Decoration
	for _, t := range tokens {
		if !t.Declaration {
			continue
		}
		doc, ok := s.ForToken(t)
		if !ok {
			continue
		}
		loc := token.Locate(source, t)
		out = append(out, Decoration{AfterLine: loc.Line - 1, Text: Format(doc, t), Token: t})
	}
	return out
}

// Format prefixes each doc line with "/// ", indented by nesting depth.
func Format(doc string, t token.Token) string {
	depth := strings.Count(t.ClassName, "$")
	if t.Type == token.Method || t.Type == token.Field {
		depth++
	}
	indent := strings.Repeat(" ", depth*4) + "/// "
	lines := strings.Split(doc, "\n")
	for i, l := range lines {
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n")
}
