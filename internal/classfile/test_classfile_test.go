package classfile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsrc/internal/classfile/classgen"
	"mcsrc/internal/decompiler"
	"mcsrc/internal/token"
)

func targetClass() []byte {
	return classgen.New("a/Target", "").
		Field(0x0009, "count", "I").
		Method(0x0001, "<init>", "()V",
			classgen.Simple(classgen.AloadZero),
			classgen.Invoke(classgen.Invokespecial, "java/lang/Object", "<init>", "()V"),
			classgen.Simple(classgen.Return)).
		Method(0x0001, "tick", "()V", classgen.Simple(classgen.Return)).
		Bytes()
}

func userClass() []byte {
	return classgen.New("a/User", "a/Base").
		Implements("a/Api").
		Field(0x0000, "target", "La/Target;").
		Method(0x0001, "run", "()V",
			classgen.ClassOp(classgen.OpNew, "a/Target"),
			classgen.Simple(classgen.Dup),
			classgen.Invoke(classgen.Invokespecial, "a/Target", "<init>", "()V"),
			classgen.Invoke(classgen.Invokevirtual, "a/Target", "tick", "()V"),
			classgen.FieldAccess(classgen.Getstatic, "a/Target", "count", "I"),
			classgen.Simple(classgen.Pop),
			classgen.Simple(classgen.Return)).
		Bytes()
}

func innerClass() []byte {
	return classgen.New("a/User$Inner", "").
		Method(0x0001, "help", "(Lb/Helper;I)V", classgen.Simple(classgen.Return)).
		Bytes()
}

func TestParseReadsHeaderAndMembers(t *testing.T) {
	c, err := Parse(userClass())
	require.NoError(t, err)
	assert.Equal(t, "a/User", c.Name)
	assert.Equal(t, "a/Base", c.Super)
	assert.Equal(t, []string{"a/Api"}, c.Interfaces)
	assert.Equal(t, AccPublic|AccSuper, c.AccessFlags)
	require.Len(t, c.Fields, 1)
	assert.Equal(t, "target", c.Fields[0].Name)
	require.Len(t, c.Methods, 1)
	assert.Equal(t, "()V", c.Methods[0].Descriptor)
	assert.Equal(t, "a/User|a/Base|33|a/Api", c.Record())
}

func TestReferencesResolveConstantPool(t *testing.T) {
	c, err := Parse(userClass())
	require.NoError(t, err)
	refs, err := c.References(c.Methods[0])
	require.NoError(t, err)
	require.Len(t, refs, 4)
	assert.Equal(t, Ref{Kind: RefClass, Op: "new", Owner: "a/Target"}, refs[0])
	assert.Equal(t, Ref{Kind: RefMethod, Op: "invokespecial", Owner: "a/Target", Name: "<init>", Descriptor: "()V"}, refs[1])
	assert.Equal(t, Ref{Kind: RefMethod, Op: "invokevirtual", Owner: "a/Target", Name: "tick", Descriptor: "()V"}, refs[2])
	assert.Equal(t, Ref{Kind: RefField, Op: "getstatic", Owner: "a/Target", Name: "count", Descriptor: "I"}, refs[3])
}

func TestIndexerBuildsUsageAndClassData(t *testing.T) {
	x := NewIndexer()
	require.NoError(t, x.Index(targetClass()))
	require.NoError(t, x.Index(userClass()))

	assert.Equal(t, []string{"c:a/User"}, x.Usage("a/Base"))
	assert.Equal(t, []string{"c:a/User"}, x.Usage("a/Api"))
	assert.Equal(t, []string{"f:a/User:target:La/Target;", "m:a/User:run:()V"}, x.Usage("a/Target"))
	assert.Equal(t, []string{"m:a/User:run:()V"}, x.Usage("a/Target:tick:()V"))
	assert.Equal(t, []string{"m:a/User:run:()V"}, x.Usage("a/Target:<init>:()V"))
	assert.Equal(t, []string{"m:a/User:run:()V"}, x.Usage("a/Target:count:I"))
	assert.Empty(t, x.Usage("a/Nothing"))
	assert.Greater(t, x.UsageSize(), 0)

	assert.Equal(t, []string{"a/Target|java/lang/Object|33|", "a/User|a/Base|33|a/Api"}, x.ClassData())
}

func TestIndexerRejectsGarbage(t *testing.T) {
	if err := NewIndexer().Index([]byte("nope")); err == nil {
		t.Fatal("Index() error = nil, want parse error")
	}
}

func TestRenderBytecodeListsInstructions(t *testing.T) {
	out, err := RenderBytecode([][]byte{userClass(), innerClass()})
	require.NoError(t, err)
	assert.Contains(t, out, "public class a/User extends a/Base implements a/Api {")
	assert.Contains(t, out, "invokevirtual")
	assert.Contains(t, out, "// a/Target.tick()V")
	assert.Contains(t, out, "// a/Target.count:I")
	assert.Contains(t, out, "a/User$Inner")
}

func TestDecodeHandlesTableswitchPadding(t *testing.T) {
	code := []byte{
		0xaa, 0, 0, 0, // tableswitch + 3 pad bytes
		0, 0, 0, 20, // default
		0, 0, 0, 0, // low
		0, 0, 0, 1, // high
		0, 0, 0, 20,
		0, 0, 0, 20,
		0xb1,
	}
	insns, err := Decode(code)
	require.NoError(t, err)
	require.Len(t, insns, 2)
	assert.Equal(t, "tableswitch", insns[0].Name())
	assert.Equal(t, 24, insns[1].PC)
	assert.Equal(t, "return", insns[1].Name())
}

func TestDecodeReportsTruncation(t *testing.T) {
	_, err := Decode([]byte{0xb6, 0x00})
	assert.Error(t, err)
}

func TestDescriptorClasses(t *testing.T) {
	assert.Equal(t, []string{"a/B", "java/lang/String"}, DescriptorClasses("(I[La/B;Ljava/lang/String;La/B;)V"))
	assert.Equal(t, []string{"a/C"}, DescriptorClasses("[[La/C;"))
	assert.Empty(t, DescriptorClasses("J"))

	params, ret := MethodType("(I[Ljava/lang/String;)La/Outer$In;")
	require.Len(t, params, 2)
	assert.Equal(t, "int", params[0].Java())
	assert.Equal(t, "String[]", params[1].Java())
	assert.Equal(t, "Outer.In", ret.Java())
}

type memJar map[string][]byte

func (m memJar) source(_ context.Context, name string) ([]byte, error) {
	return m[name], nil
}

func (m memJar) resources() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSkeletonDecompilerReportsTokens(t *testing.T) {
	jar := memJar{
		"a/Target":     targetClass(),
		"a/User":       userClass(),
		"a/User$Inner": innerClass(),
	}
	rec := token.NewRecorder()
	src, err := SkeletonDecompiler{}.Decompile(context.Background(), "a/User", decompiler.Config{
		Source:    jar.source,
		Resources: jar.resources(),
		Tokens:    rec,
	})
	require.NoError(t, err)
	require.True(t, rec.Ended())
	assert.Equal(t, src, rec.Content())

	assert.True(t, strings.HasPrefix(src, "package a;\n\nimport b.Helper;\n"), src)
	assert.Contains(t, src, "public class User extends Base implements Api {")

	byText := func(tt token.Type, text string, decl bool) token.Token {
		for _, tok := range rec.Tokens() {
			if tok.Type == tt && tok.Declaration == decl && src[tok.Start:tok.End()] == text {
				return tok
			}
		}
		t.Fatalf("no %s token %q (declaration=%v) in\n%s", tt, text, decl, src)
		return token.Token{}
	}

	userDecl := byText(token.Class, "User", true)
	assert.Equal(t, "a/User", userDecl.ClassName)
	innerDecl := byText(token.Class, "Inner", true)
	assert.Equal(t, "a/User$Inner", innerDecl.ClassName)

	run := byText(token.Method, "run", true)
	assert.Equal(t, "()V", run.Descriptor)
	tick := byText(token.Method, "tick", false)
	assert.Equal(t, "a/Target", tick.ClassName)
	count := byText(token.Field, "count", false)
	assert.Equal(t, "I", count.Descriptor)
	field := byText(token.Field, "target", true)
	assert.Equal(t, "La/Target;", field.Descriptor)
	byText(token.Parameter, "arg0", true)
	helper := byText(token.Class, "Helper", false)
	assert.Equal(t, "b/Helper", helper.ClassName)
}

func TestSkeletonDecompilerMissingClass(t *testing.T) {
	_, err := SkeletonDecompiler{}.Decompile(context.Background(), "a/Missing", decompiler.Config{Source: memJar{}.source})
	assert.Error(t, err)
}

func TestNestedClassesSkipsAnonymousAndDeep(t *testing.T) {
	got := nestedClasses("a/User", []string{"a/User", "a/User$1", "a/User$Inner", "a/User$Inner$Deep", "a/UserX"})
	assert.Equal(t, []string{"a/User$Inner"}, got)
}

func TestProcessDecompilerArgs(t *testing.T) {
	p, err := NewProcessDecompiler(`java -jar "/opt/vine flower.jar" {in} {out}`)
	require.NoError(t, err)
	args := p.commandArgs(map[string]string{decompiler.OptionMarkSynthetics: "1"}, "/tmp/in", "/tmp/out")
	assert.Equal(t, []string{"-jar", "/opt/vine flower.jar", "--mark-corresponding-synthetics=1", "/tmp/in", "/tmp/out"}, args)

	p, err = NewProcessDecompiler("decomp")
	require.NoError(t, err)
	assert.Equal(t, []string{"/i", "/o"}, p.commandArgs(nil, "/i", "/o"))

	_, err = NewProcessDecompiler("   ")
	assert.Error(t, err)
}
