// Package rules runs user-defined model rules written in Risor against an
// analysis snapshot. Rules read the symbol index and relationship graph
// through host functions and report findings, which surface as
// rule-violation diagnostics alongside the built-in ones.
package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/diag"
)

// Runner loads and executes rule scripts against snapshots.
type Runner struct {
	rulesDir string
	fsys     fs.FS
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerFS loads rule scripts from an fs.FS instead of from disk.
func WithRunnerFS(fsys fs.FS) RunnerOption {
	return func(r *Runner) {
		r.fsys = fsys
	}
}

// NewRunner creates a Runner reading .risor scripts from rulesDir.
func NewRunner(rulesDir string, opts ...RunnerOption) *Runner {
	r := &Runner{rulesDir: rulesDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every rule script in the rules directory, in name order, and
// returns the findings they reported. A script failure aborts the run.
func (r *Runner) Run(ctx context.Context, snap *loom.Snapshot) ([]diag.Diagnostic, error) {
	scripts, err := r.listScripts()
	if err != nil {
		return nil, err
	}
	var findings []diag.Diagnostic
	for _, script := range scripts {
		src, err := r.loadScript(script)
		if err != nil {
			return nil, err
		}
		out, err := r.eval(ctx, src, script, snap)
		if err != nil {
			return nil, err
		}
		findings = append(findings, out...)
	}
	return findings, nil
}

// RunSource executes rule source code directly. Useful for testing without
// script files.
func (r *Runner) RunSource(ctx context.Context, source string, snap *loom.Snapshot) ([]diag.Diagnostic, error) {
	return r.eval(ctx, source, "<inline>", snap)
}

func (r *Runner) eval(ctx context.Context, source, label string, snap *loom.Snapshot) ([]diag.Diagnostic, error) {
	rep := &reporter{}
	var opts []risor.Option
	for name, val := range buildGlobals(snap, rep) {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return nil, fmt.Errorf("rules: script %s: %w", label, err)
	}
	return rep.findings, nil
}

func (r *Runner) listScripts() ([]string, error) {
	var names []string
	if r.fsys != nil {
		entries, err := fs.ReadDir(r.fsys, ".")
		if err != nil {
			return nil, fmt.Errorf("rules: read dir: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".risor") {
				names = append(names, e.Name())
			}
		}
	} else {
		entries, err := os.ReadDir(r.rulesDir)
		if err != nil {
			return nil, fmt.Errorf("rules: read dir %s: %w", r.rulesDir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".risor") {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Runner) loadScript(name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if r.fsys != nil {
		data, err = fs.ReadFile(r.fsys, name)
	} else {
		data, err = os.ReadFile(filepath.Join(r.rulesDir, name))
	}
	if err != nil {
		return "", fmt.Errorf("rules: load %s: %w", name, err)
	}
	return string(data), nil
}
