package loom

import (
	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/graph"
	"github.com/jward/loom/internal/resolve"
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/text"
)

// Public type aliases for internal types used in the Workspace and Snapshot
// APIs. These are Go type aliases (=), identical to the internal types at
// compile time. External consumers use these names; no conversion is needed.

type FileID = text.FileID
type Pos = text.Pos
type Span = text.Span

type QualifiedName = sym.QualifiedName
type Symbol = sym.Symbol
type SymbolKind = sym.Kind
type Visibility = sym.Visibility
type RelKind = sym.RelKind
type ImportKind = sym.ImportKind
type Extraction = sym.Extraction
type Record = sym.Record
type ImportRecord = sym.ImportRecord
type RelationshipRecord = sym.RelationshipRecord

type Diagnostic = diag.Diagnostic
type DiagnosticKind = diag.Kind
type Severity = diag.Severity

type Edge = graph.Edge
type ResolvedImport = resolve.ResolvedImport

// Re-exported constants for the public API surface.
const (
	Definition = sym.Definition
	Usage      = sym.Usage

	Public    = sym.Public
	Private   = sym.Private
	Protected = sym.Protected

	RelSpecialization = sym.RelSpecialization
	RelTyping         = sym.RelTyping
	RelSubsetting     = sym.RelSubsetting
	RelRedefinition   = sym.RelRedefinition

	ImportNamespace = sym.ImportNamespace
	ImportMember    = sym.ImportMember
	ImportRecursive = sym.ImportRecursive
)

// Join builds a qualified name from segments.
func Join(segments ...string) QualifiedName {
	return sym.Join(segments...)
}
