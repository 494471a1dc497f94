package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/sym"
)

// CLIDiagnostic is the JSON shape of one diagnostic.
type CLIDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// CLISymbol is the JSON shape of one symbol.
type CLISymbol struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Role       string `json:"role"`
	Visibility string `json:"visibility"`
	File       string `json:"file"`
	Line       int    `json:"line"`
}

// CLIReference is the JSON shape of one relationship reference.
type CLIReference struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
}

func outputDiagnostics(w io.Writer, snap *loom.Snapshot, diags []diag.Diagnostic) error {
	rows := make([]CLIDiagnostic, 0, len(diags))
	for _, d := range diags {
		path, _ := snap.PathOf(d.File)
		rows = append(rows, CLIDiagnostic{
			File:     path,
			Line:     d.Span.Start.Line,
			Col:      d.Span.Start.Col,
			Severity: d.Severity.String(),
			Kind:     string(d.Kind),
			Message:  d.Message,
		})
	}
	if flagFormat == "json" {
		return writeJSON(w, rows)
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", r.File, r.Line, r.Col, r.Severity, r.Message)
	}
	return nil
}

func outputSymbols(w io.Writer, snap *loom.Snapshot, symbols []*sym.Symbol) error {
	rows := make([]CLISymbol, 0, len(symbols))
	for _, s := range symbols {
		path, _ := snap.PathOf(s.File)
		rows = append(rows, CLISymbol{
			Name:       string(s.Name),
			Kind:       s.Kind.String(),
			Role:       s.Role,
			Visibility: s.Visibility.String(),
			File:       path,
			Line:       s.NameSpan.Start.Line,
		})
	}
	if flagFormat == "json" {
		return writeJSON(w, rows)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tROLE\tVISIBILITY\tFILE\tLINE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", r.Name, r.Kind, r.Role, r.Visibility, r.File, r.Line)
	}
	return tw.Flush()
}

func outputReferences(w io.Writer, snap *loom.Snapshot, edges []loom.Edge) error {
	rows := make([]CLIReference, 0, len(edges))
	for _, e := range edges {
		path, _ := snap.PathOf(e.File)
		rows = append(rows, CLIReference{
			Kind:   string(e.Kind),
			Source: string(e.Source),
			File:   path,
			Line:   e.Span.Start.Line,
			Col:    e.Span.Start.Col,
		})
	}
	if flagFormat == "json" {
		return writeJSON(w, rows)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSOURCE\tFILE\tLINE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Kind, r.Source, r.File, r.Line)
	}
	return tw.Flush()
}

func outputNames(w io.Writer, names []sym.QualifiedName) error {
	if flagFormat == "json" {
		return writeJSON(w, names)
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

// applySeverities rewrites diagnostic severities per the config overrides.
// Kinds mapped to "off" are dropped.
func applySeverities(diags []diag.Diagnostic, overrides map[string]string) []diag.Diagnostic {
	if len(overrides) == 0 {
		return diags
	}
	out := make([]diag.Diagnostic, 0, len(diags))
	for _, d := range diags {
		switch overrides[string(d.Kind)] {
		case "off":
			continue
		case "error":
			d.Severity = diag.SeverityError
		case "warning":
			d.Severity = diag.SeverityWarning
		case "info":
			d.Severity = diag.SeverityInfo
		}
		out = append(out, d)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
