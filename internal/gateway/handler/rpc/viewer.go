package rpc

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"connectrpc.com/connect"

	"mcsrc/internal/archive"
	"mcsrc/internal/decompiler"
	"mcsrc/internal/gateway/api/viewerv1"
	"mcsrc/internal/gateway/api/viewerv1/viewerv1connect"
	"mcsrc/internal/minecraft"
	"mcsrc/internal/session"
	"mcsrc/internal/usage"
)

var _ viewerv1connect.ViewerServiceHandler = (*ViewerHandler)(nil)

// ViewerHandler serves the viewer RPCs over one session.
type ViewerHandler struct {
	s *session.Session
}

func NewViewerHandler(s *session.Session) *ViewerHandler {
	return &ViewerHandler{s: s}
}

// Routes returns the mount path and handler for the service.
func (h *ViewerHandler) Routes(opts ...connect.HandlerOption) (string, http.Handler) {
	return viewerv1connect.NewViewerServiceHandler(h, opts...)
}

func (h *ViewerHandler) ListVersions(ctx context.Context, req *connect.Request[viewerv1.ListVersionsRequest]) (*connect.Response[viewerv1.ListVersionsResponse], error) {
	versions, _ := h.s.Versions.Versions().Value()
	selected, _ := h.s.Versions.Selected().Value()
	out := &viewerv1.ListVersionsResponse{Versions: versions, Selected: selected}
	if jar, ok := h.s.CurrentJar(); ok {
		out.Loaded = jar.Version
	}
	return connect.NewResponse(out), nil
}

func (h *ViewerHandler) SelectVersion(ctx context.Context, req *connect.Request[viewerv1.SelectVersionRequest]) (*connect.Response[viewerv1.SelectVersionResponse], error) {
	id := strings.TrimSpace(req.Msg.Version)
	if id == "" {
		return nil, toViewerError(fmt.Errorf("version is required"))
	}
	side := req.Msg.Side
	if side == "" {
		side = viewerv1.SideRight
	}
	coordinator := h.s.Versions
	switch side {
	case viewerv1.SideRight:
	case viewerv1.SideLeft:
		coordinator = h.s.DiffLeft
	default:
		return nil, toViewerError(fmt.Errorf("side %q is invalid: %w", side, errInvalid))
	}
	versions, _ := coordinator.Versions().Value()
	if !containsVersion(versions, id) {
		return nil, toViewerError(fmt.Errorf("version %q: %w", id, errUnknownVersion))
	}
	coordinator.Select(id)
	return connect.NewResponse(&viewerv1.SelectVersionResponse{Selected: id, Side: side}), nil
}

func (h *ViewerHandler) ListClasses(ctx context.Context, req *connect.Request[viewerv1.ListClassesRequest]) (*connect.Response[viewerv1.ListClassesResponse], error) {
	jar, err := h.jar(ctx, req.Msg.Version, h.s.CurrentJar)
	if err != nil {
		return nil, toViewerError(err)
	}
	prefix := strings.TrimSpace(req.Msg.Prefix)
	var classes []string
	for _, name := range jar.Archive.ClassFiles() {
		if strings.Contains(name, "$") || !strings.HasPrefix(name, prefix) {
			continue
		}
		classes = append(classes, name)
	}
	sort.Strings(classes)
	return connect.NewResponse(&viewerv1.ListClassesResponse{Version: jar.Version, Classes: classes}), nil
}

func (h *ViewerHandler) Decompile(ctx context.Context, req *connect.Request[viewerv1.DecompileRequest]) (*connect.Response[viewerv1.DecompileResponse], error) {
	className, err := classFile(req.Msg.ClassName)
	if err != nil {
		return nil, toViewerError(err)
	}
	jar, err := h.jar(ctx, req.Msg.Version, h.s.CurrentJar)
	if err != nil {
		return nil, toViewerError(err)
	}
	res := h.s.Decompile(ctx, jar, className)
	return connect.NewResponse(&viewerv1.DecompileResponse{
		Version:     jar.Version,
		Result:      res,
		Decorations: h.s.Decorations(res),
	}), nil
}

func (h *ViewerHandler) Bytecode(ctx context.Context, req *connect.Request[viewerv1.BytecodeRequest]) (*connect.Response[viewerv1.BytecodeResponse], error) {
	className, err := classFile(req.Msg.ClassName)
	if err != nil {
		return nil, toViewerError(err)
	}
	jar, err := h.jar(ctx, req.Msg.Version, h.s.CurrentJar)
	if err != nil {
		return nil, toViewerError(err)
	}
	res := h.s.Service.Bytecode(ctx, jar, className)
	return connect.NewResponse(&viewerv1.BytecodeResponse{Version: jar.Version, Result: res}), nil
}

func (h *ViewerHandler) FindDefinition(ctx context.Context, req *connect.Request[viewerv1.FindDefinitionRequest]) (*connect.Response[viewerv1.FindDefinitionResponse], error) {
	className, err := classFile(req.Msg.ClassName)
	if err != nil {
		return nil, toViewerError(err)
	}
	jar, err := h.jar(ctx, req.Msg.Version, h.s.CurrentJar)
	if err != nil {
		return nil, toViewerError(err)
	}
	// Offsets refer to the source the Decompile RPC returned, so resolve
	// against the same display settings.
	res := h.s.Decompile(ctx, jar, className)
	if res.Language != decompiler.Java {
		return connect.NewResponse(&viewerv1.FindDefinitionResponse{}), nil
	}
	t, target, ok := h.s.Definition(jar, res, req.Msg.Offset)
	if !ok {
		return connect.NewResponse(&viewerv1.FindDefinitionResponse{}), nil
	}
	return connect.NewResponse(&viewerv1.FindDefinitionResponse{Found: true, ClassFile: target, Token: &t}), nil
}

func (h *ViewerHandler) Usages(ctx context.Context, req *connect.Request[viewerv1.UsagesRequest]) (*connect.Response[viewerv1.UsagesResponse], error) {
	key := usage.Key(strings.TrimSpace(req.Msg.Key))
	if key == "" {
		return nil, toViewerError(fmt.Errorf("key is required"))
	}
	jar, err := h.jar(ctx, req.Msg.Version, h.s.CurrentJar)
	if err != nil {
		return nil, toViewerError(err)
	}
	sites, err := h.s.FindUsages(ctx, jar, key)
	if err != nil {
		return nil, toViewerError(err)
	}
	return connect.NewResponse(usagesResponse(key, sites)), nil
}

func usagesResponse(key usage.Key, sites []usage.Site) *viewerv1.UsagesResponse {
	out := &viewerv1.UsagesResponse{Query: usage.FormatQuery(key), Sites: make([]viewerv1.UsageSite, 0, len(sites))}
	for _, site := range sites {
		out.Sites = append(out.Sites, viewerv1.UsageSite{
			Site:      string(site),
			ClassFile: site.ClassFile(),
			Label:     usage.FormatSite(site),
		})
	}
	return out
}

func (h *ViewerHandler) Hierarchy(ctx context.Context, req *connect.Request[viewerv1.HierarchyRequest]) (*connect.Response[viewerv1.HierarchyResponse], error) {
	className, err := classFile(req.Msg.ClassName)
	if err != nil {
		return nil, toViewerError(err)
	}
	jar, err := h.jar(ctx, req.Msg.Version, h.s.CurrentJar)
	if err != nil {
		return nil, toViewerError(err)
	}
	view, err := h.s.ClassHierarchy(ctx, jar, className)
	if err != nil {
		return nil, toViewerError(err)
	}
	return connect.NewResponse(&viewerv1.HierarchyResponse{Tree: view}), nil
}

func (h *ViewerHandler) Diff(ctx context.Context, req *connect.Request[viewerv1.DiffRequest]) (*connect.Response[viewerv1.DiffResponse], error) {
	left, right, err := h.diffSides(ctx, req.Msg.Left, req.Msg.Right)
	if err != nil {
		return nil, toViewerError(err)
	}
	changes, err := h.s.Changes(left, right, req.Msg.SkipUnchangedSize)
	if err != nil {
		return nil, toViewerError(err)
	}
	return connect.NewResponse(&viewerv1.DiffResponse{Left: left.Version, Right: right.Version, Changes: changes}), nil
}

func (h *ViewerHandler) DiffSource(ctx context.Context, req *connect.Request[viewerv1.DiffSourceRequest]) (*connect.Response[viewerv1.DiffSourceResponse], error) {
	className, err := classFile(req.Msg.ClassName)
	if err != nil {
		return nil, toViewerError(err)
	}
	left, right, err := h.diffSides(ctx, req.Msg.Left, req.Msg.Right)
	if err != nil {
		return nil, toViewerError(err)
	}
	out, err := h.s.DiffSource(ctx, left, right, className)
	if err != nil {
		return nil, toViewerError(err)
	}
	return connect.NewResponse(&viewerv1.DiffSourceResponse{Diff: out}), nil
}

func (h *ViewerHandler) Javadoc(ctx context.Context, req *connect.Request[viewerv1.JavadocRequest]) (*connect.Response[viewerv1.JavadocResponse], error) {
	className, err := classFile(req.Msg.ClassName)
	if err != nil {
		return nil, toViewerError(err)
	}
	name := strings.TrimSuffix(className, ".class")
	if c := h.s.DocsClient; c != nil && !c.NeedsLogin() {
		version := strings.TrimSpace(req.Msg.Version)
		if version == "" {
			version = h.s.Selection.Value().MinecraftVersion
		}
		if err := h.s.Docs.Refresh(ctx, c, version, className); err != nil {
			return nil, toViewerError(err)
		}
	}
	docs, ok := h.s.Docs.Class(name)
	return connect.NewResponse(&viewerv1.JavadocResponse{ClassName: name, Found: ok, Docs: docs}), nil
}

// jar resolves version to a loaded jar. Versions that are neither shown
// nor the diff base are downloaded without changing the selection.
func (h *ViewerHandler) jar(ctx context.Context, version string, fallback func() (archive.Jar, bool)) (archive.Jar, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		if jar, ok := fallback(); ok {
			return jar, nil
		}
		return archive.Jar{}, errNoJar
	}
	for _, loaded := range []func() (archive.Jar, bool){h.s.CurrentJar, h.s.LeftJar} {
		if jar, ok := loaded(); ok && jar.Version == version {
			return jar, nil
		}
	}
	versions, _ := h.s.DiffLeft.Versions().Value()
	if !containsVersion(versions, version) {
		return archive.Jar{}, fmt.Errorf("version %q: %w", version, errUnknownVersion)
	}
	return h.s.DiffLeft.Load(ctx, version)
}

func (h *ViewerHandler) diffSides(ctx context.Context, leftID, rightID string) (archive.Jar, archive.Jar, error) {
	left, err := h.jar(ctx, leftID, h.s.LeftJar)
	if err != nil {
		return archive.Jar{}, archive.Jar{}, fmt.Errorf("left: %w", err)
	}
	right, err := h.jar(ctx, rightID, h.s.CurrentJar)
	if err != nil {
		return archive.Jar{}, archive.Jar{}, fmt.Errorf("right: %w", err)
	}
	return left, right, nil
}

// classFile normalises "pkg.Name", "pkg/Name" and "pkg/Name.class" to the
// jar entry name.
func classFile(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("className is required")
	}
	name = strings.TrimSuffix(name, ".class")
	if !strings.Contains(name, "/") {
		name = strings.ReplaceAll(name, ".", "/")
	}
	return name + ".class", nil
}

func containsVersion(versions []minecraft.VersionEntry, id string) bool {
	_, ok := minecraft.Find(versions, id)
	return ok
}
