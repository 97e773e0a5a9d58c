package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classList map[string]bool

func (c classList) HasClass(name string) bool { return c[name] }

func TestLocateCountsLinesAndColumns(t *testing.T) {
	src := "package a;\n\nclass Foo {\n  int x;\n}\n"
	start := len("package a;\n\nclass ")
	loc := Locate(src, Token{Start: start, Length: 3})
	assert.Equal(t, Location{Line: 3, Column: 7, Length: 3}, loc)

	first := Locate(src, Token{Start: 0, Length: 7})
	assert.Equal(t, 1, first.Line)
	assert.Equal(t, 1, first.Column)
}

func TestOffsetAtRoundTripsLocate(t *testing.T) {
	src := "line one\nsecond line\n\nfourth\n"
	for _, offset := range []int{0, 3, 9, 15, 21, 22, 25} {
		loc := Locate(src, Token{Start: offset})
		if got := OffsetAt(src, loc.Line, loc.Column); got != offset {
			t.Fatalf("OffsetAt(Locate(%d)) = %d", offset, got)
		}
	}
}

func TestDefinitionSkipsDeclarationsAndLibraryClasses(t *testing.T) {
	tokens := []Token{
		{Type: Class, Start: 0, Length: 3, ClassName: "a/Foo", Declaration: true},
		{Type: Class, Start: 10, Length: 6, ClassName: "java/lang/String"},
		{Type: Class, Start: 20, Length: 3, ClassName: "a/Bar$Inner"},
		{Type: Method, Start: 30, Length: 4, ClassName: "a/Bar", Name: "tick", Descriptor: "()V"},
	}
	classes := classList{"a/Foo.class": true, "a/Bar.class": true}

	_, ok := Definition(tokens, 1, classes)
	assert.False(t, ok, "declaration must not navigate")

	_, ok = Definition(tokens, 12, classes)
	assert.False(t, ok, "library class must not navigate")

	got, ok := Definition(tokens, 23, classes)
	require.True(t, ok)
	assert.Equal(t, "a/Bar$Inner", got.ClassName)

	got, ok = Definition(tokens, 31, nil)
	require.True(t, ok)
	assert.Equal(t, Method, got.Type)

	_, ok = Definition(tokens, 26, classes)
	assert.False(t, ok)
}

func TestAtIncludesDeclarations(t *testing.T) {
	tokens := []Token{{Type: Field, Start: 5, Length: 2, Declaration: true, Name: "x"}}
	got, ok := At(tokens, 6)
	require.True(t, ok)
	assert.Equal(t, "x", got.Name)
}

func TestImportTokens(t *testing.T) {
	src := "package a;\n\nimport net.minecraft.world.Entity;\nimport static net.minecraft.Util.make;\nimport java.util.*;\n  import java.util.List ;\n"
	tokens := ImportTokens(src)
	require.Len(t, tokens, 2)

	first := tokens[0]
	assert.Equal(t, Class, first.Type)
	assert.Equal(t, "net/minecraft/world/Entity", first.ClassName)
	assert.False(t, first.Declaration)
	assert.Equal(t, "Entity", src[first.Start:first.End()])

	second := tokens[1]
	assert.Equal(t, "java/util/List", second.ClassName)
	assert.Equal(t, "List", src[second.Start:second.End()])
}

func TestSortIsStable(t *testing.T) {
	tokens := []Token{
		{Start: 5, Name: "b"},
		{Start: 1, Name: "a"},
		{Start: 5, Name: "c"},
	}
	Sort(tokens)
	require.True(t, Sorted(tokens))
	assert.Equal(t, []string{"a", "b", "c"}, []string{tokens[0].Name, tokens[1].Name, tokens[2].Name})
}

func TestRecorderCollectsVisits(t *testing.T) {
	r := NewRecorder()
	r.Start("class Foo {}")
	r.VisitClass(6, 3, true, "a/Foo")
	r.VisitMethod(0, 1, false, "a/Foo", "run", "()V")
	r.VisitParameter(0, 1, true, "a/Foo", "run", "(I)V", 0, "x")
	r.End()

	tokens := r.Tokens()
	require.Len(t, tokens, 3)
	assert.True(t, r.Ended())
	assert.Equal(t, "class Foo {}", r.Content())
	assert.Equal(t, Token{Type: Class, Start: 6, Length: 3, ClassName: "a/Foo", Declaration: true}, tokens[0])
	assert.Equal(t, "run(I)V", tokens[2].Descriptor)
}

func TestNameHelpers(t *testing.T) {
	assert.Equal(t, "a/b/C", OuterClass("a/b/C$D$E"))
	assert.Equal(t, "C$D", SimpleName("a/b/C$D"))
}
