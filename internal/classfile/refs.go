package classfile

import (
	"fmt"

	parser "github.com/wreulicke/classfile-parser"
)

type RefKind int

const (
	RefClass RefKind = iota
	RefField
	RefMethod
)

// Ref is a symbolic reference made by an instruction.
type Ref struct {
	Kind       RefKind
	Op         string
	Owner      string
	Name       string
	Descriptor string
}

// References decodes the code of m and resolves every constant pool
// reference to a class, field or method. Unresolvable entries are skipped.
func (c *Class) References(m Member) ([]Ref, error) {
	insns, err := Decode(m.Code)
	var out []Ref
	for _, in := range insns {
		ref, ok := c.resolve(in)
		if ok {
			out = append(out, ref)
		}
	}
	return out, err
}

func (c *Class) resolve(in Instruction) (Ref, bool) {
	switch in.Op {
	case opLdc, opLdcW, opNew, opAnewarray, opCheckcast, opInstanceof, opMultianewarray:
		cc, ok := c.constant(in.Index()).(*parser.ConstantClass)
		if !ok {
			return Ref{}, false
		}
		name := c.utf8(cc.NameIndex)
		if name = elementClass(name); name == "" {
			return Ref{}, false
		}
		return Ref{Kind: RefClass, Op: in.Name(), Owner: name}, true
	case 0xb2, 0xb3, 0xb4, 0xb5:
		fr, ok := c.constant(in.Index()).(*parser.ConstantFieldref)
		if !ok {
			return Ref{}, false
		}
		return c.member(RefField, in.Name(), fr.ClassIndex, fr.NameAndTypeIndex)
	case opInvokevirtual, 0xb7, 0xb8, opInvokeinterface:
		switch v := c.constant(in.Index()).(type) {
		case *parser.ConstantMethodref:
			return c.member(RefMethod, in.Name(), v.ClassIndex, v.NameAndTypeIndex)
		case *parser.ConstantInterfaceMethodref:
			return c.member(RefMethod, in.Name(), v.ClassIndex, v.NameAndTypeIndex)
		}
	}
	return Ref{}, false
}

func (c *Class) member(kind RefKind, op string, classIndex, natIndex uint16) (Ref, bool) {
	owner, err := c.cp.GetClassName(classIndex)
	if err != nil {
		return Ref{}, false
	}
	nat, ok := c.constant(natIndex).(*parser.ConstantNameAndType)
	if !ok {
		return Ref{}, false
	}
	owner = elementClass(owner)
	if owner == "" {
		// Methods invoked on primitive arrays (clone) have no class to index.
		return Ref{}, false
	}
	return Ref{
		Kind:       kind,
		Op:         op,
		Owner:      owner,
		Name:       c.utf8(nat.NameIndex),
		Descriptor: c.utf8(nat.DescriptorIndex),
	}, true
}

func (c *Class) constant(index uint16) any {
	if c.cp == nil || int(index) < 1 || int(index) > len(c.cp.Constants) {
		return nil
	}
	return c.cp.Constants[index-1]
}

func (c *Class) utf8(index uint16) string {
	if c.cp == nil {
		return ""
	}
	if u := c.cp.LookupUtf8(index); u != nil {
		return u.String()
	}
	return ""
}

// describe renders a constant for bytecode listings.
func (c *Class) describe(index uint16) string {
	switch v := c.constant(index).(type) {
	case *parser.ConstantClass:
		return c.utf8(v.NameIndex)
	case *parser.ConstantString:
		return fmt.Sprintf("%q", c.utf8(v.StringIndex))
	case *parser.ConstantInteger:
		return fmt.Sprintf("%d", int32(v.Bytes))
	case *parser.ConstantLong:
		return fmt.Sprintf("%dL", int64(v.HighBytes)<<32|int64(v.LowBytes))
	case *parser.ConstantFieldref:
		return c.describeMember(v.ClassIndex, v.NameAndTypeIndex, ":")
	case *parser.ConstantMethodref:
		return c.describeMember(v.ClassIndex, v.NameAndTypeIndex, "")
	case *parser.ConstantInterfaceMethodref:
		return c.describeMember(v.ClassIndex, v.NameAndTypeIndex, "")
	case *parser.ConstantInvokeDynamic:
		if nat, ok := c.constant(v.NameAndTypeIndex).(*parser.ConstantNameAndType); ok {
			return fmt.Sprintf("InvokeDynamic #%d:%s%s", v.BootstrapMethodAttrIndex, c.utf8(nat.NameIndex), c.utf8(nat.DescriptorIndex))
		}
	}
	return fmt.Sprintf("#%d", index)
}

func (c *Class) describeMember(classIndex, natIndex uint16, sep string) string {
	owner, err := c.cp.GetClassName(classIndex)
	if err != nil {
		owner = fmt.Sprintf("#%d", classIndex)
	}
	nat, ok := c.constant(natIndex).(*parser.ConstantNameAndType)
	if !ok {
		return owner + ".?"
	}
	return owner + "." + c.utf8(nat.NameIndex) + sep + c.utf8(nat.DescriptorIndex)
}
