// Package decompiler turns class files into source text and token lists,
// caching results per jar version and delivering only the latest selection
// to viewers.
package decompiler

import (
	"context"

	"mcsrc/internal/token"
)

type Language string

const (
	Java     Language = "java"
	Bytecode Language = "bytecode"
)

// Result is an immutable decompilation outcome. Tokens are sorted by Start.
type Result struct {
	ClassName string        `json:"className"`
	Source    string        `json:"source"`
	Tokens    []token.Token `json:"tokens"`
	Language  Language      `json:"language"`
}

// SourceFunc returns the bytes of an internal class name (no ".class"), or
// nil when the class is not in the jar.
type SourceFunc func(ctx context.Context, name string) ([]byte, error)

// Config is handed to an Engine for one class.
type Config struct {
	Source    SourceFunc
	Resources []string
	Options   map[string]string
	Tokens    token.Collector
}

// Engine produces Java source for className ("pkg/Name").
type Engine interface {
	Decompile(ctx context.Context, className string, cfg Config) (string, error)
}

// BytecodeRenderer lists the bytecode of a class and its nested classes.
type BytecodeRenderer interface {
	Bytecode(ctx context.Context, classes [][]byte) (string, error)
}

// OptionMarkSynthetics asks the engine to show compiler-generated lambda
// bodies next to their use sites.
const OptionMarkSynthetics = "mark-corresponding-synthetics"
