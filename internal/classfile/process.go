package classfile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"

	"mcsrc/internal/decompiler"
)

// ProcessDecompiler runs an external command-line decompiler (for example
// "java -jar vineflower.jar") over a scratch directory holding the class and
// its nested classes. External tools do not report token spans, so results
// carry only the import tokens the service adds.
type ProcessDecompiler struct {
	args []string
}

// NewProcessDecompiler parses a shell-style command line. The placeholders
// {in} and {out} mark the input and output directories; without them both
// are appended.
func NewProcessDecompiler(commandLine string) (*ProcessDecompiler, error) {
	args, err := shellquote.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse decompiler command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("decompiler command is empty")
	}
	return &ProcessDecompiler{args: args}, nil
}

func (p *ProcessDecompiler) Decompile(ctx context.Context, className string, cfg decompiler.Config) (string, error) {
	if p == nil {
		return "", fmt.Errorf("decompiler is nil")
	}
	dir, err := os.MkdirTemp("", "mcsrc-decompile-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	names := []string{className}
	prefix := className + "$"
	for _, r := range cfg.Resources {
		if strings.HasPrefix(r, prefix) {
			names = append(names, r)
		}
	}
	for _, name := range names {
		data, err := cfg.Source(ctx, name)
		if err != nil {
			return "", err
		}
		if data == nil {
			if name == className {
				return "", fmt.Errorf("class %s not found", className)
			}
			continue
		}
		path := filepath.Join(in, filepath.FromSlash(name)+".class")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create class dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	cmd := exec.CommandContext(ctx, p.args[0], p.commandArgs(cfg.Options, in, out)...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", p.args[0], err, strings.TrimSpace(output.String()))
	}

	src, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(className)+".java"))
	if err != nil {
		return "", fmt.Errorf("read decompiled source: %w", err)
	}
	if cfg.Tokens != nil {
		cfg.Tokens.Start(string(src))
		cfg.Tokens.End()
	}
	return string(src), nil
}

func (p *ProcessDecompiler) commandArgs(options map[string]string, in, out string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var opts []string
	for _, k := range keys {
		opts = append(opts, "--"+k+"="+options[k])
	}

	args := make([]string, 0, len(p.args)+len(opts)+2)
	placed := false
	for _, a := range p.args[1:] {
		switch a {
		case "{in}":
			args = append(args, opts...)
			args = append(args, in)
			placed = true
		case "{out}":
			args = append(args, out)
		default:
			args = append(args, a)
		}
	}
	if !placed {
		args = append(args, opts...)
		args = append(args, in, out)
	}
	return args
}
