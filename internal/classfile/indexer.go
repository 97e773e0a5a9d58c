package classfile

import (
	"context"
	"fmt"
	"strings"
)

// Indexer is a single-owner usage index over the classes fed to it. It is
// not safe for concurrent use; each jar index worker owns one.
type Indexer struct {
	usages  map[string][]string
	records []string
	seen    map[string]struct{}
}

func NewIndexer() *Indexer {
	return &Indexer{
		usages: make(map[string][]string),
		seen:   make(map[string]struct{}),
	}
}

// Index ingests one class file.
func (x *Indexer) Index(data []byte) error {
	c, err := Parse(data)
	if err != nil {
		return err
	}
	x.records = append(x.records, c.Record())

	classSite := "c:" + c.Name
	if c.Super != "" {
		x.add(c.Super, classSite)
	}
	for _, iface := range c.Interfaces {
		x.add(iface, classSite)
	}
	for _, f := range c.Fields {
		site := fmt.Sprintf("f:%s:%s:%s", c.Name, f.Name, f.Descriptor)
		for _, cls := range DescriptorClasses(f.Descriptor) {
			x.add(cls, site)
		}
	}
	for _, m := range c.Methods {
		site := fmt.Sprintf("m:%s:%s:%s", c.Name, m.Name, m.Descriptor)
		for _, cls := range DescriptorClasses(m.Descriptor) {
			x.add(cls, site)
		}
		for _, exc := range m.Exceptions {
			x.add(exc, site)
		}
		refs, err := c.References(m)
		if err != nil {
			return fmt.Errorf("%s.%s%s: %w", c.Name, m.Name, m.Descriptor, err)
		}
		for _, ref := range refs {
			x.add(ref.Owner, site)
			if ref.Kind != RefClass {
				x.add(ref.Owner+":"+ref.Name+":"+ref.Descriptor, site)
			}
		}
	}
	return nil
}

func (x *Indexer) add(key, site string) {
	k := key + "\x00" + site
	if _, ok := x.seen[k]; ok {
		return
	}
	x.seen[k] = struct{}{}
	x.usages[key] = append(x.usages[key], site)
}

// Usage returns the sites referencing key in indexing order.
func (x *Indexer) Usage(key string) []string {
	return append([]string(nil), x.usages[key]...)
}

// UsageSize is the number of distinct keys indexed.
func (x *Indexer) UsageSize() int {
	return len(x.usages)
}

// ClassData returns one "name|super|flags|interfaces" record per class.
func (x *Indexer) ClassData() []string {
	return append([]string(nil), x.records...)
}

// Bytecode renders a listing of the given classes in order.
func (x *Indexer) Bytecode(classes [][]byte) (string, error) {
	return RenderBytecode(classes)
}

// BytecodeRenderer adapts RenderBytecode to the decompile service.
type BytecodeRenderer struct{}

func (BytecodeRenderer) Bytecode(ctx context.Context, classes [][]byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return RenderBytecode(classes)
}

// RenderBytecode prints a javap-style listing.
func RenderBytecode(classes [][]byte) (string, error) {
	var sb strings.Builder
	for i, data := range classes {
		c, err := Parse(data)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		writeClassListing(&sb, c)
	}
	return sb.String(), nil
}

func writeClassListing(sb *strings.Builder, c *Class) {
	fmt.Fprintf(sb, "// class version %d\n", c.MajorVersion)
	fmt.Fprintf(sb, "// access flags 0x%x\n", c.AccessFlags)
	fmt.Fprintf(sb, "%s%s %s", modifiers(c.AccessFlags&^(AccSuper|AccInterface|AccAbstract|AccAnnotation|AccEnum), false), kindKeyword(c.AccessFlags), c.Name)
	if c.Super != "" {
		fmt.Fprintf(sb, " extends %s", c.Super)
	}
	if len(c.Interfaces) > 0 {
		fmt.Fprintf(sb, " implements %s", strings.Join(c.Interfaces, ", "))
	}
	sb.WriteString(" {\n")

	for _, f := range c.Fields {
		fmt.Fprintf(sb, "\n  // access flags 0x%x\n", f.AccessFlags)
		fmt.Fprintf(sb, "  %s%s %s\n", modifiers(f.AccessFlags, false), f.Descriptor, f.Name)
	}
	for _, m := range c.Methods {
		fmt.Fprintf(sb, "\n  // access flags 0x%x\n", m.AccessFlags)
		fmt.Fprintf(sb, "  %s%s%s\n", modifiers(m.AccessFlags, true), m.Name, m.Descriptor)
		for _, exc := range m.Exceptions {
			fmt.Fprintf(sb, "    throws %s\n", exc)
		}
		insns, err := Decode(m.Code)
		for _, in := range insns {
			writeInstruction(sb, c, in)
		}
		if err != nil {
			fmt.Fprintf(sb, "    // %v\n", err)
		}
	}
	sb.WriteString("}\n")
}

func writeInstruction(sb *strings.Builder, c *Class, in Instruction) {
	name := in.Name()
	switch {
	case in.Op == opLdc, in.Op == opLdcW, in.Op == opLdc2W,
		in.Op >= opGetstatic && in.Op <= opInvokedynamic,
		in.Op == opNew, in.Op == opAnewarray, in.Op == opCheckcast,
		in.Op == opInstanceof, in.Op == opMultianewarray:
		idx := in.Index()
		fmt.Fprintf(sb, "   %4d: %-16s #%d // %s\n", in.PC, name, idx, c.describe(idx))
	case in.Op >= 0x99 && in.Op <= 0xa8, in.Op == 0xc6, in.Op == 0xc7:
		fmt.Fprintf(sb, "   %4d: %-16s %d\n", in.PC, name, in.PC+int(int16(in.Index())))
	case in.Op == opBipush:
		fmt.Fprintf(sb, "   %4d: %-16s %d\n", in.PC, name, int8(in.Operands[0]))
	case in.Op == opSipush:
		fmt.Fprintf(sb, "   %4d: %-16s %d\n", in.PC, name, int16(in.Index()))
	case in.Op == opIinc:
		fmt.Fprintf(sb, "   %4d: %-16s %d, %d\n", in.PC, name, in.Operands[0], int8(in.Operands[1]))
	case len(in.Operands) == 1:
		fmt.Fprintf(sb, "   %4d: %-16s %d\n", in.PC, name, in.Operands[0])
	default:
		fmt.Fprintf(sb, "   %4d: %s\n", in.PC, name)
	}
}

func kindKeyword(flags int) string {
	switch {
	case Has(flags, AccAnnotation):
		return "@interface"
	case Has(flags, AccInterface):
		return "interface"
	case Has(flags, AccEnum):
		return "enum"
	case Has(flags, AccAbstract):
		return "abstract class"
	}
	return "class"
}

// modifiers renders the Java keywords for flags, with a trailing space.
func modifiers(flags int, method bool) string {
	var parts []string
	switch {
	case Has(flags, AccPublic):
		parts = append(parts, "public")
	case Has(flags, AccProtected):
		parts = append(parts, "protected")
	case Has(flags, AccPrivate):
		parts = append(parts, "private")
	}
	if Has(flags, AccAbstract) && method {
		parts = append(parts, "abstract")
	}
	if Has(flags, AccStatic) {
		parts = append(parts, "static")
	}
	if Has(flags, AccFinal) {
		parts = append(parts, "final")
	}
	if method {
		if Has(flags, AccSynchronized) {
			parts = append(parts, "synchronized")
		}
		if Has(flags, AccNative) {
			parts = append(parts, "native")
		}
	} else {
		if Has(flags, AccVolatile) {
			parts = append(parts, "volatile")
		}
		if Has(flags, AccTransient) {
			parts = append(parts, "transient")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}
