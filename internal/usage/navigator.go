package usage

import (
	"log"
	"strings"

	"mcsrc/internal/observable"
	"mcsrc/internal/token"
)

// Navigation is a pending jump: after ClassName (without ".class") is
// decompiled, the caret should land on the reference described by Query as
// it occurs within Site.
type Navigation struct {
	ClassName string
	Query     Key
	Site      Site
}

// Navigator holds at most one pending jump.
type Navigator struct {
	pending *observable.Subject[*Navigation]
}

func NewNavigator() *Navigator {
	return &Navigator{pending: observable.NewWithValue[*Navigation](nil)}
}

// Pending exposes the current navigation (nil when none).
func (n *Navigator) Pending() *observable.Subject[*Navigation] {
	return n.pending
}

// GoTo records a jump for site and returns the class file to open. Class-level
// sites only open the file.
func (n *Navigator) GoTo(query Key, site Site) string {
	className, _, _ := site.Parts()
	className = token.OuterClass(className)
	if site.Kind() == "c" {
		n.pending.Set(nil)
		return className + ".class"
	}
	n.pending.Set(&Navigation{ClassName: className, Query: query, Site: site})
	return className + ".class"
}

// Clear drops any pending jump.
func (n *Navigator) Clear() {
	n.pending.Set(nil)
}

// NextJumpToken resolves the pending jump against a freshly decompiled
// result for classFile ("pkg/Name.class"). The pending jump is consumed only
// when it applies to this class.
func (n *Navigator) NextJumpToken(classFile string, tokens []token.Token) (token.Token, bool) {
	nav, _ := n.pending.Value()
	if nav == nil || nav.ClassName+".class" != classFile {
		return token.Token{}, false
	}
	n.pending.Set(nil)
	return JumpToken(tokens, nav.Query, nav.Site)
}

// JumpToken finds the reference to query inside the member declared by site.
// It first locates the site's declaration, then scans forward for the first
// token matching the query. When no reference follows, the declaration
// itself is returned.
func JumpToken(tokens []token.Token, query Key, site Site) (token.Token, bool) {
	body := site.Body()
	if !strings.Contains(body, ":") {
		return token.Token{}, false
	}
	siteClass, siteName, siteDesc := site.Parts()
	want := token.Field
	if site.Kind() == "m" {
		want = token.Method
	}

	declIndex := -1
	for i, t := range tokens {
		if t.Type != want || !t.Declaration {
			continue
		}
		if t.ClassName == siteClass && t.Name == siteName && t.Descriptor == siteDesc {
			declIndex = i
			break
		}
	}
	if declIndex < 0 {
		log.Printf("usage: declaration for %s not found", site)
		return token.Token{}, false
	}
	decl := tokens[declIndex]
	if want == token.Field {
		return decl, true
	}

	qClass, qName, qDesc := query.Parts()
	qType := query.Type()
	for _, t := range tokens[declIndex+1:] {
		if t.Declaration {
			continue
		}
		switch {
		case qType == QueryClass:
			if t.Type == token.Class && t.ClassName == qClass {
				return t, true
			}
		case qName == "<init>":
			if t.Type == token.Class && t.ClassName == qClass {
				return t, true
			}
		case qType == QueryMethod:
			if t.Type == token.Method && t.Name == qName && t.Descriptor == qDesc {
				return t, true
			}
		case qType == QueryField:
			if t.Type == token.Field && t.Name == qName {
				return t, true
			}
		}
	}
	return decl, true
}
