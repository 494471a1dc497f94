// Package graph stores typed relationship edges between symbols, with reverse
// indices for O(1) reference and hierarchy queries. The graph is the single
// source of truth for specialization, typing, subsetting, and redefinition:
// symbols never embed resolved relationship data.
//
// Edges are recomputed per file: when a file's extracted relationships change,
// its old edges are removed and the new ones inserted. The graph is never
// rebuilt from scratch on an edit.
package graph

import (
	"fmt"

	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/resolve"
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/text"
)

// Edge is one typed relationship. Target holds the resolved qualified name
// when Valid; otherwise the reference as written. Invalid edges are retained
// for error reporting but excluded from hierarchy queries.
type Edge struct {
	Kind   sym.RelKind
	Source sym.QualifiedName
	Target sym.QualifiedName
	File   text.FileID
	Span   text.Span
	Valid  bool
}

// BuildFileEdges resolves and validates one file's relationship records
// against the current index and import bindings. Targets are resolved in the
// source symbol's scope, so imports visible there apply. An edge is valid
// only when both endpoints resolve and their roles are compatible with the
// relationship kind.
func BuildFileEdges(index *sym.Index, res *resolve.Result, recs []sym.RelationshipRecord) ([]Edge, []diag.Diagnostic) {
	var edges []Edge
	var diags []diag.Diagnostic

	for _, rec := range recs {
		edge := Edge{
			Kind:   rec.Kind,
			Source: rec.Source,
			Target: sym.QualifiedName(rec.Target),
			File:   rec.File,
			Span:   rec.Span,
		}

		source, ok := index.LookupQualified(rec.Source)
		if !ok {
			// Source vanished in a duplicate collision; keep the edge for
			// reporting but there is nothing to validate against.
			edges = append(edges, edge)
			continue
		}

		target, ok := res.ResolveName(rec.Source, rec.Target)
		if !ok {
			diags = append(diags, diag.Errorf(diag.UnresolvedReference, rec.File, rec.Span,
				"unresolved reference %q", rec.Target))
			edges = append(edges, edge)
			continue
		}
		edge.Target = target.Name

		if msg := checkRoles(rec.Kind, source, target); msg != "" {
			diags = append(diags, diag.Errorf(diag.InvalidRelationship, rec.File, rec.Span, "%s", msg))
			edges = append(edges, edge)
			continue
		}
		edge.Valid = true
		edges = append(edges, edge)
	}
	return edges, diags
}

// checkRoles verifies endpoint compatibility for a relationship kind.
// Specialization relates Definitions; typing relates a Usage to a Definition;
// subsetting and redefinition refine one Usage with another.
func checkRoles(kind sym.RelKind, source, target *sym.Symbol) string {
	switch kind {
	case sym.RelSpecialization:
		if source.Kind != sym.Definition || target.Kind != sym.Definition {
			return fmt.Sprintf("specialization requires definitions on both ends, found %s and %s",
				source.Kind, target.Kind)
		}
	case sym.RelTyping:
		if source.Kind != sym.Usage || target.Kind != sym.Definition {
			return fmt.Sprintf("typing requires a usage typed by a definition, found %s and %s",
				source.Kind, target.Kind)
		}
	case sym.RelSubsetting, sym.RelRedefinition:
		if source.Kind != sym.Usage || target.Kind != sym.Usage {
			return fmt.Sprintf("%s requires usages on both ends, found %s and %s",
				kind, source.Kind, target.Kind)
		}
	}
	return ""
}

// Graph holds all edges with forward and reverse indices.
type Graph struct {
	byFile  map[text.FileID][]Edge
	forward map[sym.RelKind]map[sym.QualifiedName][]Edge
	reverse map[sym.RelKind]map[sym.QualifiedName][]Edge
	revAll  map[sym.QualifiedName][]Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		byFile:  make(map[text.FileID][]Edge),
		forward: make(map[sym.RelKind]map[sym.QualifiedName][]Edge),
		reverse: make(map[sym.RelKind]map[sym.QualifiedName][]Edge),
		revAll:  make(map[sym.QualifiedName][]Edge),
	}
}

// Clone copies the graph's index structure. Edge values are shared; buckets
// are copied, so mutating the clone leaves the original intact. Outstanding
// snapshots keep reading the original.
func (g *Graph) Clone() *Graph {
	c := New()
	for file, edges := range g.byFile {
		c.byFile[file] = edges
	}
	for kind, buckets := range g.forward {
		m := make(map[sym.QualifiedName][]Edge, len(buckets))
		for k, v := range buckets {
			m[k] = v
		}
		c.forward[kind] = m
	}
	for kind, buckets := range g.reverse {
		m := make(map[sym.QualifiedName][]Edge, len(buckets))
		for k, v := range buckets {
			m[k] = v
		}
		c.reverse[kind] = m
	}
	for k, v := range g.revAll {
		c.revAll[k] = v
	}
	return c
}

// ReplaceFile swaps all edges originating from one file.
func (g *Graph) ReplaceFile(file text.FileID, edges []Edge) {
	g.RemoveFile(file)
	if len(edges) == 0 {
		return
	}
	g.byFile[file] = edges
	for _, e := range edges {
		fwd := g.forward[e.Kind]
		if fwd == nil {
			fwd = make(map[sym.QualifiedName][]Edge)
			g.forward[e.Kind] = fwd
		}
		fwd[e.Source] = appendCopy(fwd[e.Source], e)

		rev := g.reverse[e.Kind]
		if rev == nil {
			rev = make(map[sym.QualifiedName][]Edge)
			g.reverse[e.Kind] = rev
		}
		rev[e.Target] = appendCopy(rev[e.Target], e)
		g.revAll[e.Target] = appendCopy(g.revAll[e.Target], e)
	}
}

// RemoveFile drops every edge whose origin is the given file.
func (g *Graph) RemoveFile(file text.FileID) {
	old, ok := g.byFile[file]
	if !ok {
		return
	}
	delete(g.byFile, file)
	for _, e := range old {
		if fwd := g.forward[e.Kind]; fwd != nil {
			fwd[e.Source] = dropFile(fwd[e.Source], file)
			if len(fwd[e.Source]) == 0 {
				delete(fwd, e.Source)
			}
		}
		if rev := g.reverse[e.Kind]; rev != nil {
			rev[e.Target] = dropFile(rev[e.Target], file)
			if len(rev[e.Target]) == 0 {
				delete(rev, e.Target)
			}
		}
		g.revAll[e.Target] = dropFile(g.revAll[e.Target], file)
		if len(g.revAll[e.Target]) == 0 {
			delete(g.revAll, e.Target)
		}
	}
}

// appendCopy appends without aliasing a bucket that a snapshot's clone may
// still share.
func appendCopy(bucket []Edge, e Edge) []Edge {
	out := make([]Edge, 0, len(bucket)+1)
	out = append(out, bucket...)
	return append(out, e)
}

func dropFile(bucket []Edge, file text.FileID) []Edge {
	var out []Edge
	for _, e := range bucket {
		if e.File != file {
			out = append(out, e)
		}
	}
	return out
}

// Targets returns the valid targets of a source for one relationship kind.
func (g *Graph) Targets(source sym.QualifiedName, kind sym.RelKind) []sym.QualifiedName {
	var out []sym.QualifiedName
	for _, e := range g.forward[kind][source] {
		if e.Valid {
			out = append(out, e.Target)
		}
	}
	return out
}

// Sources returns the valid sources pointing at a target for one kind.
// Backed by the reverse index: one map lookup, no scan.
func (g *Graph) Sources(target sym.QualifiedName, kind sym.RelKind) []sym.QualifiedName {
	var out []sym.QualifiedName
	for _, e := range g.reverse[kind][target] {
		if e.Valid {
			out = append(out, e.Source)
		}
	}
	return out
}

// References returns every valid edge of any kind pointing at target,
// backing find-references.
func (g *Graph) References(target sym.QualifiedName) []Edge {
	var out []Edge
	for _, e := range g.revAll[target] {
		if e.Valid {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns all edges of a file, invalid ones included.
func (g *Graph) EdgesFrom(file text.FileID) []Edge {
	return g.byFile[file]
}

// Files returns the number of files contributing edges.
func (g *Graph) Files() int {
	return len(g.byFile)
}

// Len returns the total edge count.
func (g *Graph) Len() int {
	n := 0
	for _, edges := range g.byFile {
		n += len(edges)
	}
	return n
}
