package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsrc/internal/archive"
	"mcsrc/internal/classfile/classgen"
	"mcsrc/internal/decompiler"
	"mcsrc/internal/diff"
	"mcsrc/internal/gateway/api/viewerv1"
	"mcsrc/internal/gateway/api/viewerv1/viewerv1connect"
	"mcsrc/internal/minecraft"
	"mcsrc/internal/session"
	"mcsrc/internal/state"
	"mcsrc/internal/token"
)

type fakeLoader struct{}

func (fakeLoader) Versions(context.Context) ([]minecraft.VersionEntry, error) {
	return []minecraft.VersionEntry{{ID: "26.2"}, {ID: "26.1"}}, nil
}

func (fakeLoader) Download(_ context.Context, v minecraft.VersionEntry, _ *minecraft.Progress) (archive.Jar, error) {
	user := classgen.New("a/User", "a/Base").
		Field(0x0000, "target", "La/Target;").
		Method(0x0001, "run", "()V",
			classgen.ClassOp(classgen.OpNew, "a/Target"),
			classgen.Simple(classgen.Dup),
			classgen.Invoke(classgen.Invokevirtual, "a/Target", "tick", "()V"),
			classgen.Simple(classgen.Return))
	if v.ID == "26.2" {
		user = user.Field(0x0000, "more", "I")
	}
	files := map[string][]byte{
		"a/Base.class": classgen.New("a/Base", "").Bytes(),
		"a/Target.class": classgen.New("a/Target", "").
			Method(0x0001, "tick", "()V", classgen.Simple(classgen.Return)).
			Bytes(),
		"a/User.class":       user.Bytes(),
		"a/User$Inner.class": classgen.New("a/User$Inner", "").Bytes(),
	}
	return archive.Jar{Version: v.ID, Archive: archive.MustOpen(files)}, nil
}

type fixture struct {
	s      *session.Session
	client *viewerv1connect.ViewerServiceClient
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := session.New(session.Config{
		Minecraft:    fakeLoader{},
		IndexWorkers: 2,
		Initial:      state.State{MinecraftVersion: "26.1", File: "a/User.class"},
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	mux := http.NewServeMux()
	mux.Handle(NewViewerHandler(s).Routes())
	mux.HandleFunc("/ws/state", NewStateHandler(s).HandleStateWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{s: s, client: viewerv1connect.NewViewerServiceClient(srv.Client(), srv.URL), srv: srv}
}

// started accepts the EULA and waits until both coordinators know the
// version list and 26.1 is loaded.
func (f *fixture) started(t *testing.T, ctx context.Context) {
	t.Helper()
	f.s.Start(context.Background())
	require.NoError(t, f.s.Settings.AgreedEula.Set(true))
	_, err := f.s.Versions.Jar().WaitFor(ctx, func(j archive.Jar) bool { return j.Version == "26.1" })
	require.NoError(t, err)
	_, err = f.s.DiffLeft.Versions().WaitFor(ctx, func(v []minecraft.VersionEntry) bool { return len(v) > 0 })
	require.NoError(t, err)
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestViewerRejectsRequestsWithoutJar(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	_, err := f.client.Decompile(ctx, connect.NewRequest(&viewerv1.DecompileRequest{ClassName: "a/User"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = f.client.Decompile(ctx, connect.NewRequest(&viewerv1.DecompileRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = f.client.SelectVersion(ctx, connect.NewRequest(&viewerv1.SelectVersionRequest{Version: "26.2"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err), "no version list before the EULA")
}

func TestViewerQueriesLoadedJar(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	f.started(t, ctx)

	versions, err := f.client.ListVersions(ctx, connect.NewRequest(&viewerv1.ListVersionsRequest{}))
	require.NoError(t, err)
	assert.Len(t, versions.Msg.Versions, 2)
	assert.Equal(t, "26.1", versions.Msg.Selected)
	assert.Equal(t, "26.1", versions.Msg.Loaded)

	classes, err := f.client.ListClasses(ctx, connect.NewRequest(&viewerv1.ListClassesRequest{Prefix: "a/"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Base.class", "a/Target.class", "a/User.class"}, classes.Msg.Classes)

	f.s.Docs.Set(token.Token{Type: token.Class, ClassName: "a/User"}, "A user.")
	dec, err := f.client.Decompile(ctx, connect.NewRequest(&viewerv1.DecompileRequest{ClassName: "a.User"}))
	require.NoError(t, err)
	assert.Equal(t, "26.1", dec.Msg.Version)
	assert.Equal(t, "a/User.class", dec.Msg.Result.ClassName)
	assert.Equal(t, decompiler.Java, dec.Msg.Result.Language)
	require.Len(t, dec.Msg.Decorations, 1)
	assert.Equal(t, "/// A user.", dec.Msg.Decorations[0].Text)

	offset := strings.Index(dec.Msg.Result.Source, "Target")
	require.GreaterOrEqual(t, offset, 0)
	def, err := f.client.FindDefinition(ctx, connect.NewRequest(&viewerv1.FindDefinitionRequest{ClassName: "a/User.class", Offset: offset}))
	require.NoError(t, err)
	assert.True(t, def.Msg.Found)
	assert.Equal(t, "a/Target.class", def.Msg.ClassFile)

	uses, err := f.client.Usages(ctx, connect.NewRequest(&viewerv1.UsagesRequest{Key: "a/Target"}))
	require.NoError(t, err)
	var run *viewerv1.UsageSite
	for i := range uses.Msg.Sites {
		if uses.Msg.Sites[i].Site == "m:a/User:run:()V" {
			run = &uses.Msg.Sites[i]
		}
	}
	require.NotNil(t, run, "sites = %+v", uses.Msg.Sites)
	assert.Equal(t, "a/User.class", run.ClassFile)

	tree, err := f.client.Hierarchy(ctx, connect.NewRequest(&viewerv1.HierarchyRequest{ClassName: "a/User"}))
	require.NoError(t, err)
	require.NotNil(t, tree.Msg.Tree.Root)
	assert.Equal(t, "a/Base", tree.Msg.Tree.Root.Name)

	bc, err := f.client.Bytecode(ctx, connect.NewRequest(&viewerv1.BytecodeRequest{ClassName: "a/Target"}))
	require.NoError(t, err)
	assert.Equal(t, decompiler.Bytecode, bc.Msg.Result.Language)
	assert.Contains(t, bc.Msg.Result.Source, "tick")

	docs, err := f.client.Javadoc(ctx, connect.NewRequest(&viewerv1.JavadocRequest{ClassName: "a/User"}))
	require.NoError(t, err)
	assert.True(t, docs.Msg.Found)
	assert.Equal(t, "A user.", docs.Msg.Docs.Javadoc)
}

func TestFindDefinitionFollowsDisplaySettings(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	f.started(t, ctx)

	require.NoError(t, f.s.Settings.DisplayLambdas.Set(true))
	dec, err := f.client.Decompile(ctx, connect.NewRequest(&viewerv1.DecompileRequest{ClassName: "a/User"}))
	require.NoError(t, err)
	offset := strings.Index(dec.Msg.Result.Source, "Target")
	require.GreaterOrEqual(t, offset, 0)
	def, err := f.client.FindDefinition(ctx, connect.NewRequest(&viewerv1.FindDefinitionRequest{ClassName: "a/User", Offset: offset}))
	require.NoError(t, err)
	assert.True(t, def.Msg.Found)
	assert.Equal(t, "a/Target.class", def.Msg.ClassFile)

	require.NoError(t, f.s.Settings.Bytecode.Set(true))
	def, err = f.client.FindDefinition(ctx, connect.NewRequest(&viewerv1.FindDefinitionRequest{ClassName: "a/User", Offset: offset}))
	require.NoError(t, err)
	assert.False(t, def.Msg.Found, "bytecode listings have no definitions")
}

func TestViewerDiffsVersions(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	f.started(t, ctx)

	changes, err := f.client.Diff(ctx, connect.NewRequest(&viewerv1.DiffRequest{Left: "26.1", Right: "26.2"}))
	require.NoError(t, err)
	assert.Equal(t, []diff.Change{{ClassName: "a/User", State: diff.Modified}}, changes.Msg.Changes)

	src, err := f.client.DiffSource(ctx, connect.NewRequest(&viewerv1.DiffSourceRequest{Left: "26.1", Right: "26.2", ClassName: "a/User"}))
	require.NoError(t, err)
	assert.Contains(t, src.Msg.Diff, "more")

	_, err = f.client.Diff(ctx, connect.NewRequest(&viewerv1.DiffRequest{Left: "1.0", Right: "26.2"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestViewerSelectVersionSwitchesJar(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	f.started(t, ctx)

	out, err := f.client.SelectVersion(ctx, connect.NewRequest(&viewerv1.SelectVersionRequest{Version: "26.2"}))
	require.NoError(t, err)
	assert.Equal(t, viewerv1.SideRight, out.Msg.Side)
	_, err = f.s.Versions.Jar().WaitFor(ctx, func(j archive.Jar) bool { return j.Version == "26.2" })
	require.NoError(t, err)

	_, err = f.client.SelectVersion(ctx, connect.NewRequest(&viewerv1.SelectVersionRequest{Version: "26.1", Side: "middle"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestStateStreamPushesSelectionAndResult(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	f.started(t, ctx)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/state"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(stateWSInbound{Type: "select", File: "a/Target"}))

	var sawState, sawResult bool
	for !sawState || !sawResult {
		var out stateWSOutbound
		require.NoError(t, conn.ReadJSON(&out))
		switch out.Type {
		case "state":
			if out.State != nil && out.State.File == "a/Target.class" {
				sawState = true
				assert.Contains(t, out.Permalink, "a/Target")
			}
		case "result":
			if out.Result != nil && out.Result.ClassName == "a/Target.class" {
				sawResult = true
			}
		}
	}
}

func TestStateStreamSearchesUsages(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	f.started(t, ctx)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/state"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	yes := true
	require.NoError(t, conn.WriteJSON(stateWSInbound{Type: "usages", Query: "a/Target"}))
	require.NoError(t, conn.WriteJSON(stateWSInbound{Type: "hide_sizes", Value: &yes}))

	var sites []viewerv1.UsageSite
	var hidden bool
	for sites == nil || !hidden {
		var out stateWSOutbound
		require.NoError(t, conn.ReadJSON(&out))
		switch out.Type {
		case "usages":
			if out.Usages != nil && len(out.Usages.Sites) > 0 {
				sites = out.Usages.Sites
			}
		case "hide_sizes":
			if out.Enabled != nil && *out.Enabled {
				hidden = true
			}
		case "error":
			t.Fatalf("unexpected error message: %+v", out)
		}
	}
	var labels []string
	for _, site := range sites {
		labels = append(labels, site.Site)
	}
	assert.Contains(t, labels, "m:a/User:run:()V")
	on, _ := f.s.HideSizes.Value()
	assert.True(t, on)
}

func TestStateStreamRejectsUnknownMessages(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/state"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(stateWSInbound{Type: "teleport"}))
	require.NoError(t, conn.WriteJSON(stateWSInbound{Type: "setting", Key: "display_lambdas"}))
	require.NoError(t, conn.WriteJSON(stateWSInbound{Type: "select", File: "a/User", Version: "0.0"}))
	require.NoError(t, conn.WriteJSON(stateWSInbound{Type: "ping"}))

	var errors int
	for {
		var out stateWSOutbound
		require.NoError(t, conn.ReadJSON(&out))
		if out.Type == "error" && out.Code == "invalid_argument" {
			errors++
		}
		if out.Type == "pong" {
			break
		}
	}
	assert.Equal(t, 3, errors)
	assert.Equal(t, "a/User.class", f.s.Selection.Value().File, "rejected select leaves the file alone")
}

func TestClassFileNormalises(t *testing.T) {
	for in, want := range map[string]string{
		"a.b.C":       "a/b/C.class",
		"a/b/C":       "a/b/C.class",
		"a/b/C.class": "a/b/C.class",
		" a/b/C$D ":   "a/b/C$D.class",
	} {
		got, err := classFile(in)
		if err != nil {
			t.Fatalf("classFile(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("classFile(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := classFile(" "); err == nil {
		t.Fatalf("classFile(blank) error = nil, want error")
	}
}
