package loom

import (
	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/graph"
	"github.com/jward/loom/internal/resolve"
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/text"
)

// Snapshot is an immutable view of the analysis at one generation. It is safe
// for concurrent use and stays internally consistent while the workspace moves
// on: lookups, diagnostics, and graph queries all answer from the same state.
// Closing the workspace invalidates outstanding snapshots; their queries then
// return empty results.
type Snapshot struct {
	ws         *Workspace
	generation uint64
	index      *sym.Index
	res        *resolve.Result
	graph      *graph.Graph
	diags      map[text.FileID][]diag.Diagnostic
	paths      map[text.FileID]string
	order      []text.FileID
}

func (s *Snapshot) valid() bool {
	return !s.ws.closed.Load()
}

// Generation returns the workspace generation this snapshot reflects.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// Files returns the FileIDs tracked at snapshot time, in registration order.
func (s *Snapshot) Files() []text.FileID {
	if !s.valid() {
		return nil
	}
	return append([]text.FileID(nil), s.order...)
}

// PathOf returns the path a FileID tracked at snapshot time.
func (s *Snapshot) PathOf(id text.FileID) (string, bool) {
	if !s.valid() {
		return "", false
	}
	p, ok := s.paths[id]
	return p, ok
}

// LookupQualified returns the canonical symbol for a fully qualified name.
func (s *Snapshot) LookupQualified(name sym.QualifiedName) (*sym.Symbol, bool) {
	if !s.valid() {
		return nil, false
	}
	return s.index.LookupQualified(name)
}

// Shadows returns the non-canonical duplicates recorded under a name.
func (s *Snapshot) Shadows(name sym.QualifiedName) []*sym.Symbol {
	if !s.valid() {
		return nil
	}
	return s.index.Shadows(name)
}

// ChildrenOf returns the direct children of a namespace symbol.
func (s *Snapshot) ChildrenOf(name sym.QualifiedName) []*sym.Symbol {
	if !s.valid() {
		return nil
	}
	return s.index.ChildrenOf(name)
}

// LookupSimple finds symbols by simple name visible from a scope: the
// enclosing scope chain first, then the whole workspace.
func (s *Snapshot) LookupSimple(scope sym.QualifiedName, name string) []*sym.Symbol {
	if !s.valid() {
		return nil
	}
	return s.index.LookupSimpleInScope(scope, name)
}

// Resolve resolves a name reference as written inside a scope, honoring the
// scope's import bindings. This is the same resolution relationship targets
// get.
func (s *Snapshot) Resolve(scope sym.QualifiedName, name string) (*sym.Symbol, bool) {
	if !s.valid() {
		return nil, false
	}
	return s.res.ResolveName(scope, name)
}

// SymbolsIn returns the symbols a file contributed, in declaration order.
func (s *Snapshot) SymbolsIn(file text.FileID) []*sym.Symbol {
	if !s.valid() {
		return nil
	}
	return s.index.SymbolsIn(file)
}

// Symbols returns every symbol in the workspace, canonical entries only.
func (s *Snapshot) Symbols() []*sym.Symbol {
	if !s.valid() {
		return nil
	}
	return s.index.All()
}

// Imports returns every import with its resolution outcome.
func (s *Snapshot) Imports() []resolve.ResolvedImport {
	if !s.valid() {
		return nil
	}
	return s.res.Imports()
}

// DiagnosticsFor returns one file's diagnostics, sorted by position.
func (s *Snapshot) DiagnosticsFor(file text.FileID) []diag.Diagnostic {
	if !s.valid() {
		return nil
	}
	return s.diags[file]
}

// AllDiagnostics returns every diagnostic in the workspace grouped by file,
// files in registration order.
func (s *Snapshot) AllDiagnostics() []diag.Diagnostic {
	if !s.valid() {
		return nil
	}
	var out []diag.Diagnostic
	for _, id := range s.Files() {
		out = append(out, s.diags[id]...)
	}
	// Faults with no attributable file land under id 0.
	out = append(out, s.diags[0]...)
	return out
}

// SpecializationsOf returns the definitions that specialize the given one,
// answered from the reverse index.
func (s *Snapshot) SpecializationsOf(name sym.QualifiedName) []sym.QualifiedName {
	return s.sources(name, sym.RelSpecialization)
}

// Specializes returns the definitions the given one specializes.
func (s *Snapshot) Specializes(name sym.QualifiedName) []sym.QualifiedName {
	return s.targets(name, sym.RelSpecialization)
}

// TypeOf returns the definition typing a usage, when resolved.
func (s *Snapshot) TypeOf(usage sym.QualifiedName) (sym.QualifiedName, bool) {
	ts := s.targets(usage, sym.RelTyping)
	if len(ts) == 0 {
		return "", false
	}
	return ts[0], true
}

// TypedBy returns the usages typed by a definition.
func (s *Snapshot) TypedBy(def sym.QualifiedName) []sym.QualifiedName {
	return s.sources(def, sym.RelTyping)
}

// TargetsOf returns the valid targets of a symbol for one relationship kind.
func (s *Snapshot) TargetsOf(name sym.QualifiedName, kind sym.RelKind) []sym.QualifiedName {
	return s.targets(name, kind)
}

// SourcesOf returns the valid sources pointing at a symbol for one kind.
func (s *Snapshot) SourcesOf(name sym.QualifiedName, kind sym.RelKind) []sym.QualifiedName {
	return s.sources(name, kind)
}

// ReferencesTo returns every valid relationship edge pointing at a symbol,
// across all kinds. Import references are reported by Imports, not here.
func (s *Snapshot) ReferencesTo(name sym.QualifiedName) []graph.Edge {
	if !s.valid() {
		return nil
	}
	return s.graph.References(name)
}

// EdgesFrom returns all relationship edges a file contributed, invalid ones
// included.
func (s *Snapshot) EdgesFrom(file text.FileID) []graph.Edge {
	if !s.valid() {
		return nil
	}
	return s.graph.EdgesFrom(file)
}

func (s *Snapshot) targets(name sym.QualifiedName, kind sym.RelKind) []sym.QualifiedName {
	if !s.valid() {
		return nil
	}
	return s.graph.Targets(name, kind)
}

func (s *Snapshot) sources(name sym.QualifiedName, kind sym.RelKind) []sym.QualifiedName {
	if !s.valid() {
		return nil
	}
	return s.graph.Sources(name, kind)
}
