package classfile

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode"

	"mcsrc/internal/decompiler"
	"mcsrc/internal/token"
)

// SkeletonDecompiler renders declarations and an outline of the references
// each method body makes. It needs no external tooling and reports every
// span it writes through the token collector.
type SkeletonDecompiler struct{}

func (SkeletonDecompiler) Decompile(ctx context.Context, className string, cfg decompiler.Config) (string, error) {
	if cfg.Source == nil {
		return "", fmt.Errorf("class source is nil")
	}
	data, err := cfg.Source(ctx, className)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("class %s not found", className)
	}
	c, err := Parse(data)
	if err != nil {
		return "", err
	}

	body := &javaWriter{
		pkg:       c.Package(),
		imports:   make(map[string]bool),
		synthetic: cfg.Options[decompiler.OptionMarkSynthetics] == "1",
	}
	body.writeClass(ctx, c, 0, cfg)

	var head javaWriter
	if body.pkg != "" {
		head.text("package " + strings.ReplaceAll(body.pkg, "/", ".") + ";\n\n")
	}
	imports := make([]string, 0, len(body.imports))
	for imp := range body.imports {
		imports = append(imports, imp)
	}
	sort.Strings(imports)
	for _, imp := range imports {
		head.text("import " + strings.ReplaceAll(imp, "/", ".") + ";\n")
	}
	if len(imports) > 0 {
		head.text("\n")
	}

	source := head.b.String() + body.b.String()
	if cfg.Tokens != nil {
		shift := head.b.Len()
		cfg.Tokens.Start(source)
		for _, t := range body.tokens {
			t.Start += shift
			emit(cfg.Tokens, t)
		}
		cfg.Tokens.End()
	}
	return source, nil
}

// skeletonToken carries parameter data the flat token type does not.
type skeletonToken struct {
	token.Token
	methodName string
	methodDesc string
	index      int
}

func emit(c token.Collector, t skeletonToken) {
	switch t.Type {
	case token.Class:
		c.VisitClass(t.Start, t.Length, t.Declaration, t.ClassName)
	case token.Field:
		c.VisitField(t.Start, t.Length, t.Declaration, t.ClassName, t.Name, t.Descriptor)
	case token.Method:
		c.VisitMethod(t.Start, t.Length, t.Declaration, t.ClassName, t.Name, t.Descriptor)
	case token.Parameter:
		c.VisitParameter(t.Start, t.Length, t.Declaration, t.ClassName, t.methodName, t.methodDesc, t.index, t.Name)
	}
}

type javaWriter struct {
	b         strings.Builder
	tokens    []skeletonToken
	pkg       string
	imports   map[string]bool
	synthetic bool
}

func (w *javaWriter) text(s string) {
	w.b.WriteString(s)
}

func (w *javaWriter) span(s string, t skeletonToken) {
	t.Start = w.b.Len()
	t.Length = len(s)
	w.b.WriteString(s)
	w.tokens = append(w.tokens, t)
}

func (w *javaWriter) indent(depth int) {
	w.text(strings.Repeat("    ", depth))
}

// typeRef writes a type and, for object types, a class reference token.
func (w *javaWriter) typeRef(t Type) {
	if t.Class == "" {
		w.text(t.Java())
		return
	}
	w.classRef(t.Class)
	w.text(strings.Repeat("[]", t.Dims))
}

func (w *javaWriter) classRef(internal string) {
	outer := token.OuterClass(internal)
	pkg := ""
	if i := strings.LastIndexByte(outer, '/'); i >= 0 {
		pkg = outer[:i]
	}
	if pkg != w.pkg && pkg != "java/lang" && w.imports != nil {
		w.imports[outer] = true
	}
	w.span(DisplayName(internal), skeletonToken{Token: token.Token{Type: token.Class, ClassName: internal}})
}

func (w *javaWriter) writeClass(ctx context.Context, c *Class, depth int, cfg decompiler.Config) {
	w.indent(depth)
	mods := c.AccessFlags &^ (AccSuper | AccInterface | AccAnnotation | AccEnum)
	if Has(c.AccessFlags, AccInterface) {
		mods &^= AccAbstract
	}
	w.text(modifiers(mods&^AccAbstract, false))
	if Has(mods, AccAbstract) {
		w.text("abstract ")
	}
	switch {
	case Has(c.AccessFlags, AccAnnotation):
		w.text("@interface ")
	case Has(c.AccessFlags, AccInterface):
		w.text("interface ")
	case Has(c.AccessFlags, AccEnum):
		w.text("enum ")
	default:
		w.text("class ")
	}
	simple := c.Name
	if i := strings.LastIndexAny(simple, "/$"); i >= 0 {
		simple = simple[i+1:]
	}
	w.span(simple, skeletonToken{Token: token.Token{Type: token.Class, ClassName: c.Name, Declaration: true}})

	if c.Super != "" && c.Super != "java/lang/Object" && c.Super != "java/lang/Enum" && c.Super != "java/lang/Record" {
		w.text(" extends ")
		w.classRef(c.Super)
	}
	ifaces := c.Interfaces
	if Has(c.AccessFlags, AccAnnotation) {
		ifaces = nil
	}
	if len(ifaces) > 0 {
		if Has(c.AccessFlags, AccInterface) {
			w.text(" extends ")
		} else {
			w.text(" implements ")
		}
		for i, iface := range ifaces {
			if i > 0 {
				w.text(", ")
			}
			w.classRef(iface)
		}
	}
	w.text(" {\n")

	for _, f := range c.Fields {
		if Has(f.AccessFlags, AccSynthetic) {
			continue
		}
		w.indent(depth + 1)
		w.text(modifiers(f.AccessFlags&^AccEnum, false))
		w.typeRef(FieldType(f.Descriptor))
		w.text(" ")
		w.span(f.Name, skeletonToken{Token: token.Token{Type: token.Field, ClassName: c.Name, Declaration: true, Name: f.Name, Descriptor: f.Descriptor}})
		w.text(";\n")
	}

	for _, m := range c.Methods {
		if m.Name == "<clinit>" {
			continue
		}
		if Has(m.AccessFlags, AccSynthetic) && !(w.synthetic && strings.HasPrefix(m.Name, "lambda$")) {
			continue
		}
		w.text("\n")
		w.writeMethod(c, m, depth+1)
	}

	for _, nested := range nestedClasses(c.Name, cfg.Resources) {
		data, err := cfg.Source(ctx, nested)
		if err != nil || data == nil {
			log.Printf("skeleton: nested class %s unavailable: %v", nested, err)
			continue
		}
		inner, err := Parse(data)
		if err != nil {
			log.Printf("skeleton: parse %s: %v", nested, err)
			continue
		}
		w.text("\n")
		w.writeClass(ctx, inner, depth+1, cfg)
	}

	w.indent(depth)
	w.text("}\n")
}

func (w *javaWriter) writeMethod(c *Class, m Member, depth int) {
	params, ret := MethodType(m.Descriptor)
	w.indent(depth)
	flags := m.AccessFlags
	if Has(c.AccessFlags, AccInterface) {
		flags &^= AccAbstract | AccPublic
	}
	w.text(modifiers(flags&^AccVarargs, true))

	nameText := m.Name
	if m.Name == "<init>" {
		nameText = c.Name
		if i := strings.LastIndexAny(nameText, "/$"); i >= 0 {
			nameText = nameText[i+1:]
		}
	} else {
		w.typeRef(ret)
		w.text(" ")
	}
	w.span(nameText, skeletonToken{Token: token.Token{Type: token.Method, ClassName: c.Name, Declaration: true, Name: m.Name, Descriptor: m.Descriptor}})
	w.text("(")
	for i, p := range params {
		if i > 0 {
			w.text(", ")
		}
		w.typeRef(p)
		w.text(" ")
		argName := fmt.Sprintf("arg%d", i)
		w.span(argName, skeletonToken{
			Token:      token.Token{Type: token.Parameter, ClassName: c.Name, Declaration: true, Name: argName},
			methodName: m.Name,
			methodDesc: m.Descriptor,
			index:      i,
		})
	}
	w.text(")")
	if len(m.Exceptions) > 0 {
		w.text(" throws ")
		for i, exc := range m.Exceptions {
			if i > 0 {
				w.text(", ")
			}
			w.classRef(exc)
		}
	}
	if m.Code == nil {
		w.text(";\n")
		return
	}
	w.text(" {\n")
	refs, err := c.References(m)
	seen := make(map[Ref]bool)
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		w.writeRef(ref, depth+1)
	}
	if err != nil {
		w.indent(depth + 1)
		w.text("// " + err.Error() + "\n")
	}
	w.indent(depth)
	w.text("}\n")
}

// writeRef renders one reference as a pseudo statement.
func (w *javaWriter) writeRef(ref Ref, depth int) {
	switch {
	case ref.Kind == RefClass && ref.Op == "new":
		w.indent(depth)
		w.text("new ")
		w.classRef(ref.Owner)
		w.text("();\n")
	case ref.Kind == RefClass:
		w.indent(depth)
		w.classRef(ref.Owner)
		w.text(".class; // " + ref.Op + "\n")
	case ref.Kind == RefMethod && ref.Name == "<init>":
		// Covered by the matching "new" or super call.
	case ref.Kind == RefMethod:
		w.indent(depth)
		w.classRef(ref.Owner)
		w.text(".")
		w.span(ref.Name, skeletonToken{Token: token.Token{Type: token.Method, ClassName: ref.Owner, Name: ref.Name, Descriptor: ref.Descriptor}})
		w.text("(); // " + ref.Op + "\n")
	case ref.Kind == RefField:
		w.indent(depth)
		w.classRef(ref.Owner)
		w.text(".")
		w.span(ref.Name, skeletonToken{Token: token.Token{Type: token.Field, ClassName: ref.Owner, Name: ref.Name, Descriptor: ref.Descriptor}})
		w.text("; // " + ref.Op + "\n")
	}
}

// nestedClasses returns the direct member classes of className found in
// resources. Anonymous classes (numeric names) are left out.
func nestedClasses(className string, resources []string) []string {
	prefix := className + "$"
	var out []string
	for _, r := range resources {
		rest, ok := strings.CutPrefix(r, prefix)
		if !ok || rest == "" || strings.Contains(rest, "$") {
			continue
		}
		if unicode.IsDigit(rune(rest[0])) {
			continue
		}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
