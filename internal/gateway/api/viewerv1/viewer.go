// Package viewerv1 holds the request and response messages of the viewer
// RPC service. Messages travel as JSON.
package viewerv1

import (
	"mcsrc/internal/decompiler"
	"mcsrc/internal/diff"
	"mcsrc/internal/inheritance"
	"mcsrc/internal/javadoc"
	"mcsrc/internal/minecraft"
	"mcsrc/internal/token"
)

// Side names which coordinator a version selection drives.
type Side string

const (
	SideRight Side = "right"
	SideLeft  Side = "left"
)

type ListVersionsRequest struct{}

type ListVersionsResponse struct {
	Versions []minecraft.VersionEntry `json:"versions"`
	Selected string                   `json:"selected,omitempty"`
	Loaded   string                   `json:"loaded,omitempty"`
}

type SelectVersionRequest struct {
	Version string `json:"version"`
	// Side defaults to the right (current) side.
	Side Side `json:"side,omitempty"`
}

type SelectVersionResponse struct {
	Selected string `json:"selected"`
	Side     Side   `json:"side"`
}

// ListClassesRequest lists the outer classes of a version. An empty Version
// means the loaded one.
type ListClassesRequest struct {
	Version string `json:"version,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
}

type ListClassesResponse struct {
	Version string   `json:"version"`
	Classes []string `json:"classes"`
}

type DecompileRequest struct {
	Version   string `json:"version,omitempty"`
	ClassName string `json:"className"`
}

type DecompileResponse struct {
	Version     string               `json:"version"`
	Result      decompiler.Result    `json:"result"`
	Decorations []javadoc.Decoration `json:"decorations,omitempty"`
}

type BytecodeRequest struct {
	Version   string `json:"version,omitempty"`
	ClassName string `json:"className"`
}

type BytecodeResponse struct {
	Version string            `json:"version"`
	Result  decompiler.Result `json:"result"`
}

// FindDefinitionRequest asks what the token at Offset of the decompiled
// ClassName refers to.
type FindDefinitionRequest struct {
	Version   string `json:"version,omitempty"`
	ClassName string `json:"className"`
	Offset    int    `json:"offset"`
}

type FindDefinitionResponse struct {
	Found     bool         `json:"found"`
	ClassFile string       `json:"classFile,omitempty"`
	Token     *token.Token `json:"token,omitempty"`
}

type UsagesRequest struct {
	Version string `json:"version,omitempty"`
	Key     string `json:"key"`
}

type UsageSite struct {
	Site      string `json:"site"`
	ClassFile string `json:"classFile"`
	Label     string `json:"label"`
}

type UsagesResponse struct {
	Query string      `json:"query"`
	Sites []UsageSite `json:"sites"`
}

type HierarchyRequest struct {
	Version   string `json:"version,omitempty"`
	ClassName string `json:"className"`
}

type HierarchyResponse struct {
	Tree inheritance.View `json:"tree"`
}

// DiffRequest compares two versions. Empty sides fall back to the diff base
// (Left) and the loaded version (Right).
type DiffRequest struct {
	Left              string `json:"left,omitempty"`
	Right             string `json:"right,omitempty"`
	SkipUnchangedSize bool   `json:"skipUnchangedSize,omitempty"`
}

type DiffResponse struct {
	Left    string        `json:"left"`
	Right   string        `json:"right"`
	Changes []diff.Change `json:"changes"`
}

type DiffSourceRequest struct {
	Left      string `json:"left,omitempty"`
	Right     string `json:"right,omitempty"`
	ClassName string `json:"className"`
}

type DiffSourceResponse struct {
	Diff string `json:"diff"`
}

type JavadocRequest struct {
	Version   string `json:"version,omitempty"`
	ClassName string `json:"className"`
}

type JavadocResponse struct {
	ClassName string            `json:"className"`
	Found     bool              `json:"found"`
	Docs      javadoc.ClassDocs `json:"docs"`
}
