// Package viewerv1connect binds the viewer service to connect handlers and
// clients, following the layout of protoc-gen-connect-go output.
package viewerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"mcsrc/internal/gateway/api/viewerv1"
)

const ViewerServiceName = "mcsrc.v1.ViewerService"

const (
	ViewerServiceListVersionsProcedure   = "/mcsrc.v1.ViewerService/ListVersions"
	ViewerServiceSelectVersionProcedure  = "/mcsrc.v1.ViewerService/SelectVersion"
	ViewerServiceListClassesProcedure    = "/mcsrc.v1.ViewerService/ListClasses"
	ViewerServiceDecompileProcedure      = "/mcsrc.v1.ViewerService/Decompile"
	ViewerServiceBytecodeProcedure       = "/mcsrc.v1.ViewerService/Bytecode"
	ViewerServiceFindDefinitionProcedure = "/mcsrc.v1.ViewerService/FindDefinition"
	ViewerServiceUsagesProcedure         = "/mcsrc.v1.ViewerService/Usages"
	ViewerServiceHierarchyProcedure      = "/mcsrc.v1.ViewerService/Hierarchy"
	ViewerServiceDiffProcedure           = "/mcsrc.v1.ViewerService/Diff"
	ViewerServiceDiffSourceProcedure     = "/mcsrc.v1.ViewerService/DiffSource"
	ViewerServiceJavadocProcedure        = "/mcsrc.v1.ViewerService/Javadoc"
)

type ViewerServiceHandler interface {
	ListVersions(context.Context, *connect.Request[viewerv1.ListVersionsRequest]) (*connect.Response[viewerv1.ListVersionsResponse], error)
	SelectVersion(context.Context, *connect.Request[viewerv1.SelectVersionRequest]) (*connect.Response[viewerv1.SelectVersionResponse], error)
	ListClasses(context.Context, *connect.Request[viewerv1.ListClassesRequest]) (*connect.Response[viewerv1.ListClassesResponse], error)
	Decompile(context.Context, *connect.Request[viewerv1.DecompileRequest]) (*connect.Response[viewerv1.DecompileResponse], error)
	Bytecode(context.Context, *connect.Request[viewerv1.BytecodeRequest]) (*connect.Response[viewerv1.BytecodeResponse], error)
	FindDefinition(context.Context, *connect.Request[viewerv1.FindDefinitionRequest]) (*connect.Response[viewerv1.FindDefinitionResponse], error)
	Usages(context.Context, *connect.Request[viewerv1.UsagesRequest]) (*connect.Response[viewerv1.UsagesResponse], error)
	Hierarchy(context.Context, *connect.Request[viewerv1.HierarchyRequest]) (*connect.Response[viewerv1.HierarchyResponse], error)
	Diff(context.Context, *connect.Request[viewerv1.DiffRequest]) (*connect.Response[viewerv1.DiffResponse], error)
	DiffSource(context.Context, *connect.Request[viewerv1.DiffSourceRequest]) (*connect.Response[viewerv1.DiffSourceResponse], error)
	Javadoc(context.Context, *connect.Request[viewerv1.JavadocRequest]) (*connect.Response[viewerv1.JavadocResponse], error)
}

// NewViewerServiceHandler returns the mount path and handler for svc. The
// JSON codec is always installed.
func NewViewerServiceHandler(svc ViewerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(viewerv1.JSONCodec{})}, opts...)
	options := connect.WithHandlerOptions(opts...)
	routes := map[string]http.Handler{
		ViewerServiceListVersionsProcedure:   connect.NewUnaryHandler(ViewerServiceListVersionsProcedure, svc.ListVersions, options),
		ViewerServiceSelectVersionProcedure:  connect.NewUnaryHandler(ViewerServiceSelectVersionProcedure, svc.SelectVersion, options),
		ViewerServiceListClassesProcedure:    connect.NewUnaryHandler(ViewerServiceListClassesProcedure, svc.ListClasses, options),
		ViewerServiceDecompileProcedure:      connect.NewUnaryHandler(ViewerServiceDecompileProcedure, svc.Decompile, options),
		ViewerServiceBytecodeProcedure:       connect.NewUnaryHandler(ViewerServiceBytecodeProcedure, svc.Bytecode, options),
		ViewerServiceFindDefinitionProcedure: connect.NewUnaryHandler(ViewerServiceFindDefinitionProcedure, svc.FindDefinition, options),
		ViewerServiceUsagesProcedure:         connect.NewUnaryHandler(ViewerServiceUsagesProcedure, svc.Usages, options),
		ViewerServiceHierarchyProcedure:      connect.NewUnaryHandler(ViewerServiceHierarchyProcedure, svc.Hierarchy, options),
		ViewerServiceDiffProcedure:           connect.NewUnaryHandler(ViewerServiceDiffProcedure, svc.Diff, options),
		ViewerServiceDiffSourceProcedure:     connect.NewUnaryHandler(ViewerServiceDiffSourceProcedure, svc.DiffSource, options),
		ViewerServiceJavadocProcedure:        connect.NewUnaryHandler(ViewerServiceJavadocProcedure, svc.Javadoc, options),
	}
	return "/" + ViewerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// ViewerServiceClient calls a viewer service over HTTP.
type ViewerServiceClient struct {
	listVersions   *connect.Client[viewerv1.ListVersionsRequest, viewerv1.ListVersionsResponse]
	selectVersion  *connect.Client[viewerv1.SelectVersionRequest, viewerv1.SelectVersionResponse]
	listClasses    *connect.Client[viewerv1.ListClassesRequest, viewerv1.ListClassesResponse]
	decompile      *connect.Client[viewerv1.DecompileRequest, viewerv1.DecompileResponse]
	bytecode       *connect.Client[viewerv1.BytecodeRequest, viewerv1.BytecodeResponse]
	findDefinition *connect.Client[viewerv1.FindDefinitionRequest, viewerv1.FindDefinitionResponse]
	usages         *connect.Client[viewerv1.UsagesRequest, viewerv1.UsagesResponse]
	hierarchy      *connect.Client[viewerv1.HierarchyRequest, viewerv1.HierarchyResponse]
	diff           *connect.Client[viewerv1.DiffRequest, viewerv1.DiffResponse]
	diffSource     *connect.Client[viewerv1.DiffSourceRequest, viewerv1.DiffSourceResponse]
	javadoc        *connect.Client[viewerv1.JavadocRequest, viewerv1.JavadocResponse]
}

func NewViewerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ViewerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(viewerv1.JSONCodec{})}, opts...)
	options := connect.WithClientOptions(opts...)
	return &ViewerServiceClient{
		listVersions:   connect.NewClient[viewerv1.ListVersionsRequest, viewerv1.ListVersionsResponse](httpClient, baseURL+ViewerServiceListVersionsProcedure, options),
		selectVersion:  connect.NewClient[viewerv1.SelectVersionRequest, viewerv1.SelectVersionResponse](httpClient, baseURL+ViewerServiceSelectVersionProcedure, options),
		listClasses:    connect.NewClient[viewerv1.ListClassesRequest, viewerv1.ListClassesResponse](httpClient, baseURL+ViewerServiceListClassesProcedure, options),
		decompile:      connect.NewClient[viewerv1.DecompileRequest, viewerv1.DecompileResponse](httpClient, baseURL+ViewerServiceDecompileProcedure, options),
		bytecode:       connect.NewClient[viewerv1.BytecodeRequest, viewerv1.BytecodeResponse](httpClient, baseURL+ViewerServiceBytecodeProcedure, options),
		findDefinition: connect.NewClient[viewerv1.FindDefinitionRequest, viewerv1.FindDefinitionResponse](httpClient, baseURL+ViewerServiceFindDefinitionProcedure, options),
		usages:         connect.NewClient[viewerv1.UsagesRequest, viewerv1.UsagesResponse](httpClient, baseURL+ViewerServiceUsagesProcedure, options),
		hierarchy:      connect.NewClient[viewerv1.HierarchyRequest, viewerv1.HierarchyResponse](httpClient, baseURL+ViewerServiceHierarchyProcedure, options),
		diff:           connect.NewClient[viewerv1.DiffRequest, viewerv1.DiffResponse](httpClient, baseURL+ViewerServiceDiffProcedure, options),
		diffSource:     connect.NewClient[viewerv1.DiffSourceRequest, viewerv1.DiffSourceResponse](httpClient, baseURL+ViewerServiceDiffSourceProcedure, options),
		javadoc:        connect.NewClient[viewerv1.JavadocRequest, viewerv1.JavadocResponse](httpClient, baseURL+ViewerServiceJavadocProcedure, options),
	}
}

func (c *ViewerServiceClient) ListVersions(ctx context.Context, req *connect.Request[viewerv1.ListVersionsRequest]) (*connect.Response[viewerv1.ListVersionsResponse], error) {
	return c.listVersions.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) SelectVersion(ctx context.Context, req *connect.Request[viewerv1.SelectVersionRequest]) (*connect.Response[viewerv1.SelectVersionResponse], error) {
	return c.selectVersion.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) ListClasses(ctx context.Context, req *connect.Request[viewerv1.ListClassesRequest]) (*connect.Response[viewerv1.ListClassesResponse], error) {
	return c.listClasses.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) Decompile(ctx context.Context, req *connect.Request[viewerv1.DecompileRequest]) (*connect.Response[viewerv1.DecompileResponse], error) {
	return c.decompile.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) Bytecode(ctx context.Context, req *connect.Request[viewerv1.BytecodeRequest]) (*connect.Response[viewerv1.BytecodeResponse], error) {
	return c.bytecode.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) FindDefinition(ctx context.Context, req *connect.Request[viewerv1.FindDefinitionRequest]) (*connect.Response[viewerv1.FindDefinitionResponse], error) {
	return c.findDefinition.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) Usages(ctx context.Context, req *connect.Request[viewerv1.UsagesRequest]) (*connect.Response[viewerv1.UsagesResponse], error) {
	return c.usages.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) Hierarchy(ctx context.Context, req *connect.Request[viewerv1.HierarchyRequest]) (*connect.Response[viewerv1.HierarchyResponse], error) {
	return c.hierarchy.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) Diff(ctx context.Context, req *connect.Request[viewerv1.DiffRequest]) (*connect.Response[viewerv1.DiffResponse], error) {
	return c.diff.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) DiffSource(ctx context.Context, req *connect.Request[viewerv1.DiffSourceRequest]) (*connect.Response[viewerv1.DiffSourceResponse], error) {
	return c.diffSource.CallUnary(ctx, req)
}

func (c *ViewerServiceClient) Javadoc(ctx context.Context, req *connect.Request[viewerv1.JavadocRequest]) (*connect.Response[viewerv1.JavadocResponse], error) {
	return c.javadoc.CallUnary(ctx, req)
}
