// Package classgen assembles minimal class files for tests.
package classgen

import (
	"bytes"
	"encoding/binary"
)

// Insn emits the bytes of one instruction, adding constants as needed.
type Insn func(b *Builder) []byte

type member struct {
	flags uint16
	name  uint16
	desc  uint16
	code  []byte
}

// Builder accumulates a class definition.
type Builder struct {
	pool    bytes.Buffer
	count   uint16
	utf8s   map[string]uint16
	classes map[string]uint16
	refs    map[string]uint16

	flags      uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     []member
	methods    []member
}

// New starts a public class. An empty super means java/lang/Object.
func New(name, super string) *Builder {
	b := &Builder{
		utf8s:   make(map[string]uint16),
		classes: make(map[string]uint16),
		refs:    make(map[string]uint16),
		flags:   0x0021,
	}
	if super == "" {
		super = "java/lang/Object"
	}
	b.this = b.Class(name)
	b.super = b.Class(super)
	return b
}

// Flags overrides the class access flags.
func (b *Builder) Flags(flags uint16) *Builder {
	b.flags = flags
	return b
}

func (b *Builder) Implements(names ...string) *Builder {
	for _, n := range names {
		b.interfaces = append(b.interfaces, b.Class(n))
	}
	return b
}

func (b *Builder) Field(flags uint16, name, desc string) *Builder {
	b.fields = append(b.fields, member{flags: flags, name: b.Utf8(name), desc: b.Utf8(desc)})
	return b
}

// Method adds a method. Without instructions the method has no Code
// attribute, as for abstract methods.
func (b *Builder) Method(flags uint16, name, desc string, code ...Insn) *Builder {
	m := member{flags: flags, name: b.Utf8(name), desc: b.Utf8(desc)}
	for _, in := range code {
		m.code = append(m.code, in(b)...)
	}
	if len(code) > 0 {
		b.Utf8("Code")
	}
	b.methods = append(b.methods, m)
	return b
}

func (b *Builder) next() uint16 {
	b.count++
	return b.count
}

func (b *Builder) Utf8(s string) uint16 {
	if idx, ok := b.utf8s[s]; ok {
		return idx
	}
	b.pool.WriteByte(1)
	_ = binary.Write(&b.pool, binary.BigEndian, uint16(len(s)))
	b.pool.WriteString(s)
	idx := b.next()
	b.utf8s[s] = idx
	return idx
}

func (b *Builder) Class(name string) uint16 {
	if idx, ok := b.classes[name]; ok {
		return idx
	}
	nameIdx := b.Utf8(name)
	b.pool.WriteByte(7)
	_ = binary.Write(&b.pool, binary.BigEndian, nameIdx)
	idx := b.next()
	b.classes[name] = idx
	return idx
}

func (b *Builder) ref(tag byte, owner, name, desc string) uint16 {
	key := string(rune('0'+tag)) + owner + "." + name + ":" + desc
	if idx, ok := b.refs[key]; ok {
		return idx
	}
	classIdx := b.Class(owner)
	nameIdx := b.Utf8(name)
	descIdx := b.Utf8(desc)
	b.pool.WriteByte(12)
	_ = binary.Write(&b.pool, binary.BigEndian, nameIdx)
	_ = binary.Write(&b.pool, binary.BigEndian, descIdx)
	natIdx := b.next()
	b.pool.WriteByte(tag)
	_ = binary.Write(&b.pool, binary.BigEndian, classIdx)
	_ = binary.Write(&b.pool, binary.BigEndian, natIdx)
	idx := b.next()
	b.refs[key] = idx
	return idx
}

func u16(op byte, idx uint16) []byte {
	return []byte{op, byte(idx >> 8), byte(idx)}
}

// Simple emits an operand-free opcode such as aload_0 (0x2a) or return (0xb1).
func Simple(op byte) Insn {
	return func(*Builder) []byte { return []byte{op} }
}

// Invoke emits invokevirtual (0xb6), invokespecial (0xb7) or invokestatic (0xb8).
func Invoke(op byte, owner, name, desc string) Insn {
	return func(b *Builder) []byte { return u16(op, b.ref(10, owner, name, desc)) }
}

// InvokeInterface emits invokeinterface with its count operand.
func InvokeInterface(owner, name, desc string, count byte) Insn {
	return func(b *Builder) []byte {
		idx := b.ref(11, owner, name, desc)
		return []byte{0xb9, byte(idx >> 8), byte(idx), count, 0}
	}
}

// FieldAccess emits getstatic/putstatic/getfield/putfield (0xb2..0xb5).
func FieldAccess(op byte, owner, name, desc string) Insn {
	return func(b *Builder) []byte { return u16(op, b.ref(9, owner, name, desc)) }
}

// ClassOp emits new (0xbb), anewarray (0xbd), checkcast (0xc0) or instanceof (0xc1).
func ClassOp(op byte, name string) Insn {
	return func(b *Builder) []byte { return u16(op, b.Class(name)) }
}

const (
	AloadZero     = 0x2a
	Dup           = 0x59
	Pop           = 0x57
	Return        = 0xb1
	Getstatic     = 0xb2
	Putstatic     = 0xb3
	Getfield      = 0xb4
	Putfield      = 0xb5
	Invokevirtual = 0xb6
	Invokespecial = 0xb7
	Invokestatic  = 0xb8
	OpNew         = 0xbb
	Checkcast     = 0xc0
)

// Bytes serialises the class file (version 52).
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	w := func(v any) { _ = binary.Write(&out, binary.BigEndian, v) }
	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(52))
	w(b.count + 1)
	out.Write(b.pool.Bytes())
	w(b.flags)
	w(b.this)
	w(b.super)
	w(uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		w(i)
	}
	w(uint16(len(b.fields)))
	for _, f := range b.fields {
		w(f.flags)
		w(f.name)
		w(f.desc)
		w(uint16(0))
	}
	w(uint16(len(b.methods)))
	for _, m := range b.methods {
		w(m.flags)
		w(m.name)
		w(m.desc)
		if m.code == nil {
			w(uint16(0))
			continue
		}
		w(uint16(1))
		w(b.utf8s["Code"])
		w(uint32(2 + 2 + 4 + len(m.code) + 2 + 2))
		w(uint16(8))
		w(uint16(8))
		w(uint32(len(m.code)))
		out.Write(m.code)
		w(uint16(0))
		w(uint16(0))
	}
	w(uint16(0))
	return out.Bytes()
}
