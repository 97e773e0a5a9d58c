// Package classfile reads JVM class files and provides the in-process
// engines used when no external decompiler or indexer is configured.
package classfile

import (
	"bytes"
	"fmt"
	"strings"

	parser "github.com/wreulicke/classfile-parser"
)

// Access flag bits as they appear in the class file.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// Member is a field or method.
type Member struct {
	Name        string
	Descriptor  string
	AccessFlags int
	Exceptions  []string
	Code        []byte
}

// Class is the subset of a class file the engines work with.
type Class struct {
	Name         string
	Super        string
	Interfaces   []string
	AccessFlags  int
	MajorVersion int
	Fields       []Member
	Methods      []Member

	cp *parser.ConstantPool
}

// Parse decodes a class file.
func Parse(data []byte) (*Class, error) {
	cf, err := parser.New(bytes.NewReader(data)).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse class file: %w", err)
	}
	cp := cf.ConstantPool

	name, err := cf.ThisClassName()
	if err != nil {
		return nil, fmt.Errorf("this class: %w", err)
	}
	c := &Class{
		Name:         name,
		AccessFlags:  classFlags(cf.AccessFlags),
		MajorVersion: int(cf.MajorVersion),
		cp:           cp,
	}
	if cf.SuperClass != 0 {
		if sc, err := cf.SuperClassName(); err == nil {
			c.Super = sc
		}
	}
	for _, idx := range cf.Interfaces {
		if iName, err := cp.GetClassName(idx); err == nil {
			c.Interfaces = append(c.Interfaces, iName)
		}
	}
	for _, f := range cf.Fields {
		fname, _ := f.Name(cp)
		desc, _ := f.Descriptor(cp)
		c.Fields = append(c.Fields, Member{
			Name:        fname,
			Descriptor:  desc,
			AccessFlags: memberFlags(f.AccessFlags),
		})
	}
	for _, m := range cf.Methods {
		mname, _ := m.Name(cp)
		desc, _ := m.Descriptor(cp)
		member := Member{
			Name:        mname,
			Descriptor:  desc,
			AccessFlags: memberFlags(m.AccessFlags),
		}
		if exc := m.Exceptions(); exc != nil {
			for _, idx := range exc.ExceptionIndexes {
				if eName, err := cp.GetClassName(idx); err == nil {
					member.Exceptions = append(member.Exceptions, eName)
				}
			}
		}
		if code := m.Code(); code != nil {
			member.Code = code.Codes
		}
		c.Methods = append(c.Methods, member)
	}
	return c, nil
}

// Has reports whether flag is set in flags.
func Has(flags, flag int) bool { return flags&flag != 0 }

// SimpleName is the unqualified name with nesting shown as dots.
func (c *Class) SimpleName() string {
	return DisplayName(c.Name)
}

// Package returns the slash-separated package of the class.
func (c *Class) Package() string {
	if i := strings.LastIndexByte(c.Name, '/'); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// Record renders the class-data line "name|super|flags|i1,i2".
func (c *Class) Record() string {
	return fmt.Sprintf("%s|%s|%d|%s", c.Name, c.Super, c.AccessFlags, strings.Join(c.Interfaces, ","))
}

// DisplayName turns "a/b/Outer$Inner" into "Outer.Inner".
func DisplayName(internal string) string {
	if i := strings.LastIndexByte(internal, '/'); i >= 0 {
		internal = internal[i+1:]
	}
	return strings.ReplaceAll(internal, "$", ".")
}

// The parser exposes flags through Is only, so the raw bits are rebuilt
// here. Interfaces are the abstract types compiled without ACC_SUPER.
func classFlags(flags parser.AccessFlags) int {
	out := 0
	add := func(ok bool, bit int) {
		if ok {
			out |= bit
		}
	}
	add(flags.Is(parser.ACC_PUBLIC), AccPublic)
	add(flags.Is(parser.ACC_FINAL), AccFinal)
	add(flags.Is(parser.ACC_SUPER), AccSuper)
	add(flags.Is(parser.ACC_ABSTRACT), AccAbstract)
	add(flags.Is(parser.ACC_SYNTHETIC), AccSynthetic)
	add(flags.Is(parser.ACC_ANNOTATION), AccAnnotation|AccInterface)
	add(flags.Is(parser.ACC_ENUM), AccEnum)
	add(flags.Is(parser.ACC_ABSTRACT) && !flags.Is(parser.ACC_SUPER), AccInterface)
	return out
}

func memberFlags(flags parser.AccessFlags) int {
	out := 0
	add := func(ok bool, bit int) {
		if ok {
			out |= bit
		}
	}
	add(flags.Is(parser.ACC_PUBLIC), AccPublic)
	add(flags.Is(parser.ACC_PRIVATE), AccPrivate)
	add(flags.Is(parser.ACC_PROTECTED), AccProtected)
	add(flags.Is(parser.ACC_STATIC), AccStatic)
	add(flags.Is(parser.ACC_FINAL), AccFinal)
	add(flags.Is(parser.ACC_SYNCHRONIZED), AccSynchronized)
	add(flags.Is(parser.ACC_VOLATILE), AccVolatile)
	add(flags.Is(parser.ACC_TRANSIENT), AccTransient)
	add(flags.Is(parser.ACC_NATIVE), AccNative)
	add(flags.Is(parser.ACC_ABSTRACT), AccAbstract)
	add(flags.Is(parser.ACC_STRICT), AccStrict)
	add(flags.Is(parser.ACC_SYNTHETIC), AccSynthetic)
	add(flags.Is(parser.ACC_ENUM), AccEnum)
	return out
}
