package classfile

import "strings"

// Type is one JVM type from a descriptor.
type Type struct {
	// Class is the internal name for object types, empty for primitives.
	Class string
	// Primitive is the Java keyword for primitive types.
	Primitive string
	Dims      int
}

// Java renders the type as it would be written in source.
func (t Type) Java() string {
	base := t.Primitive
	if t.Class != "" {
		base = DisplayName(t.Class)
	}
	return base + strings.Repeat("[]", t.Dims)
}

var primitives = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

func parseType(desc string, pos int) (Type, int) {
	var t Type
	for pos < len(desc) && desc[pos] == '[' {
		t.Dims++
		pos++
	}
	if pos >= len(desc) {
		return t, pos
	}
	ch := desc[pos]
	if ch == 'L' {
		end := strings.IndexByte(desc[pos:], ';')
		if end < 0 {
			t.Class = desc[pos+1:]
			return t, len(desc)
		}
		t.Class = desc[pos+1 : pos+end]
		return t, pos + end + 1
	}
	t.Primitive = primitives[ch]
	if t.Primitive == "" {
		t.Primitive = string(ch)
	}
	return t, pos + 1
}

// FieldType parses a field descriptor.
func FieldType(desc string) Type {
	t, _ := parseType(desc, 0)
	return t
}

// MethodType parses a method descriptor into parameter and return types.
func MethodType(desc string) ([]Type, Type) {
	if !strings.HasPrefix(desc, "(") {
		return nil, Type{Primitive: "void"}
	}
	var params []Type
	pos := 1
	for pos < len(desc) && desc[pos] != ')' {
		var t Type
		t, pos = parseType(desc, pos)
		params = append(params, t)
	}
	ret, _ := parseType(desc, pos+1)
	return params, ret
}

// DescriptorClasses returns every object type mentioned by a field or method
// descriptor, in order, without duplicates.
func DescriptorClasses(desc string) []string {
	var types []Type
	if strings.HasPrefix(desc, "(") {
		params, ret := MethodType(desc)
		types = append(params, ret)
	} else {
		types = []Type{FieldType(desc)}
	}
	var out []string
	seen := make(map[string]bool)
	for _, t := range types {
		if t.Class == "" || seen[t.Class] {
			continue
		}
		seen[t.Class] = true
		out = append(out, t.Class)
	}
	return out
}

// elementClass unwraps array class constants like "[Lfoo/Bar;" to "foo/Bar".
// Primitive arrays yield "".
func elementClass(name string) string {
	if !strings.HasPrefix(name, "[") {
		return name
	}
	return FieldType(name).Class
}
