// Package token models the cross-reference spans reported by a decompiler
// and the lookups the viewer performs on them.
package token

import (
	"sort"
	"strings"
)

type Type string

const (
	Class     Type = "class"
	Field     Type = "field"
	Method    Type = "method"
	Parameter Type = "parameter"
	Local     Type = "local"
)

// Token is a span of decompiled source annotated with what it refers to.
// Start and Length are byte offsets into the source text. ClassName is a
// slash-separated internal name ("net/minecraft/Foo$Bar"); for members it is
// the owning class.
type Token struct {
	Type        Type   `json:"type"`
	Start       int    `json:"start"`
	Length      int    `json:"length"`
	ClassName   string `json:"className"`
	Declaration bool   `json:"declaration"`
	Name        string `json:"name,omitempty"`
	Descriptor  string `json:"descriptor,omitempty"`
}

// End is the offset just past the token.
func (t Token) End() int { return t.Start + t.Length }

// Spans reports whether offset falls inside the token, both ends inclusive.
func (t Token) Spans(offset int) bool {
	return t.Start <= offset && offset <= t.Start+t.Length
}

// OuterClass strips any nested-class suffix from ClassName.
func (t Token) OuterClass() string {
	return OuterClass(t.ClassName)
}

// OuterClass returns the top-level class of an internal name.
func OuterClass(className string) string {
	if i := strings.IndexByte(className, '$'); i >= 0 {
		return className[:i]
	}
	return className
}

// SimpleName returns the last path segment of an internal name.
func SimpleName(className string) string {
	if i := strings.LastIndexByte(className, '/'); i >= 0 {
		return className[i+1:]
	}
	return className
}

// Sort orders tokens by Start, keeping the relative order of equal starts.
func Sort(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].Start < tokens[j].Start })
}

// Sorted reports whether tokens are in ascending Start order.
func Sorted(tokens []Token) bool {
	return sort.SliceIsSorted(tokens, func(i, j int) bool { return tokens[i].Start < tokens[j].Start })
}
