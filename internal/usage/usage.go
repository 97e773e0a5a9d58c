// Package usage formats find-usages queries and results and sequences the
// jump from a usage site to the exact reference inside decompiled source.
package usage

import (
	"strings"

	"mcsrc/internal/token"
)

// Key identifies what is being searched: "pkg/Class" for a class,
// "pkg/Class:name:descriptor" for a member.
type Key string

// Site identifies where a usage occurs. It carries a one-letter kind prefix:
// "c:pkg/Class", "m:pkg/Class:name:descriptor" or "f:pkg/Class:name:descriptor".
type Site string

type QueryType string

const (
	QueryClass  QueryType = "class"
	QueryMethod QueryType = "method"
	QueryField  QueryType = "field"
)

func ClassKey(className string) Key { return Key(className) }

func MemberKey(className, name, descriptor string) Key {
	return Key(className + ":" + name + ":" + descriptor)
}

// KeyForToken builds the query for a clicked token. Parameters and locals
// have no index key.
func KeyForToken(t token.Token) (Key, bool) {
	switch t.Type {
	case token.Class:
		return ClassKey(t.ClassName), true
	case token.Method, token.Field:
		return MemberKey(t.ClassName, t.Name, t.Descriptor), true
	default:
		return "", false
	}
}

// Parts splits a member key into class, name and descriptor. A class key
// yields only the class.
func (k Key) Parts() (className, name, descriptor string) {
	parts := strings.SplitN(string(k), ":", 3)
	className = parts[0]
	if len(parts) > 1 {
		name = parts[1]
	}
	if len(parts) > 2 {
		descriptor = parts[2]
	}
	return className, name, descriptor
}

// Type classifies the key. A member whose descriptor starts a parameter list
// is a method.
func (k Key) Type() QueryType {
	if !strings.Contains(string(k), ":") {
		return QueryClass
	}
	if _, _, desc := k.Parts(); strings.Contains(desc, "(") {
		return QueryMethod
	}
	return QueryField
}

// Kind returns the one-letter prefix of the site ("c", "m" or "f").
func (s Site) Kind() string {
	if len(s) < 2 || s[1] != ':' {
		return ""
	}
	return string(s[:1])
}

// Body strips the kind prefix.
func (s Site) Body() string {
	if s.Kind() == "" {
		return string(s)
	}
	return string(s[2:])
}

// Parts splits the body like Key.Parts.
func (s Site) Parts() (className, name, descriptor string) {
	return Key(s.Body()).Parts()
}

// ClassFile is the archive path of the class a site lives in.
func (s Site) ClassFile() string {
	className, _, _ := s.Parts()
	return token.OuterClass(className) + ".class"
}

// FormatSite renders a usage site for a results list.
func FormatSite(s Site) string {
	body := s.Body()
	parts := strings.Split(body, ":")
	switch s.Kind() {
	case "m":
		if len(parts) >= 3 {
			return parts[1] + parts[2]
		}
	case "f":
		if len(parts) >= 2 {
			return parts[1]
		}
	}
	return body
}

// FormatQuery renders the search subject.
func FormatQuery(k Key) string {
	className, name, desc := k.Parts()
	simple := token.SimpleName(className)
	switch k.Type() {
	case QueryMethod:
		return simple + "." + name + desc
	case QueryField:
		return simple + "." + name
	default:
		return simple
	}
}
