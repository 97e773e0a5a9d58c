// Package inheritance builds the class hierarchy of a jar from the class
// metadata gathered by the jar index.
package inheritance

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"mcsrc/internal/jarindex"
)

// ClassNode is one class in the graph. Adjacency is stored by name; the
// Index owns every node.
type ClassNode struct {
	Name        string
	AccessFlags int
	Parents     []string
	Children    []string
}

// Index is an arena of nodes keyed by internal class name.
type Index struct {
	nodes map[string]*ClassNode
}

func NewIndex() *Index {
	return &Index{nodes: make(map[string]*ClassNode)}
}

// AddClass returns the node for name, creating it if needed.
func (x *Index) AddClass(name string) *ClassNode {
	n, ok := x.nodes[name]
	if !ok {
		n = &ClassNode{Name: name}
		x.nodes[name] = n
	}
	return n
}

// Link records parent -> child. Repeated links are ignored.
func (x *Index) Link(parent, child string) {
	p := x.AddClass(parent)
	c := x.AddClass(child)
	if !slices.Contains(c.Parents, parent) {
		c.Parents = append(c.Parents, parent)
	}
	if !slices.Contains(p.Children, child) {
		p.Children = append(p.Children, child)
	}
}

// Node looks up a class.
func (x *Index) Node(name string) (*ClassNode, bool) {
	n, ok := x.nodes[name]
	return n, ok
}

// Len is the number of classes in the graph.
func (x *Index) Len() int { return len(x.nodes) }

// Root follows first parents up from name. Cycles stop at the first
// repeated class.
func (x *Index) Root(name string) string {
	seen := map[string]bool{}
	cur := name
	for {
		n, ok := x.nodes[cur]
		if !ok || len(n.Parents) == 0 || seen[cur] {
			return cur
		}
		seen[cur] = true
		cur = n.Parents[0]
	}
}

// Build creates the graph for classes present in classNames (internal names
// without ".class"). Links to classes outside the jar are dropped.
func Build(data []jarindex.ClassData, classNames []string) *Index {
	present := make(map[string]bool, len(classNames))
	for _, n := range classNames {
		present[n] = true
	}
	x := NewIndex()
	for _, d := range data {
		if !present[d.ClassName] {
			continue
		}
		node := x.AddClass(d.ClassName)
		node.AccessFlags = d.AccessFlags
		if d.SuperName != "" && present[d.SuperName] {
			x.Link(d.SuperName, d.ClassName)
		}
		for _, iface := range d.Interfaces {
			if present[iface] {
				x.Link(iface, d.ClassName)
			}
		}
	}
	return x
}

// ClassDataSource is what the builder needs from a jar index.
type ClassDataSource interface {
	ClassData(ctx context.Context) ([]jarindex.ClassData, error)
}

// ClassLister names the classes of a jar. *archive.Archive satisfies it.
type ClassLister interface {
	ClassNames() []string
}

// Builder keeps the graph of the most recent (index, archive) pair.
type Builder struct {
	mu      sync.Mutex
	src     ClassDataSource
	classes ClassLister
	index   *Index
}

func NewBuilder() *Builder { return &Builder{} }

// Get returns the graph for src and classes, building it on first use.
func (b *Builder) Get(ctx context.Context, src ClassDataSource, classes ClassLister) (*Index, error) {
	if src == nil || classes == nil {
		return nil, fmt.Errorf("inheritance source is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index != nil && b.src == src && b.classes == classes {
		return b.index, nil
	}
	data, err := src.ClassData(ctx)
	if err != nil {
		return nil, fmt.Errorf("class data: %w", err)
	}
	b.index = Build(data, classes.ClassNames())
	b.src = src
	b.classes = classes
	return b.index, nil
}
