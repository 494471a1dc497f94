package sym

import (
	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/text"
)

// Kind is the symbol variant: a Definition introduces a new type-like name,
// a Usage instantiates or references one.
type Kind int

const (
	Definition Kind = iota + 1
	Usage
)

func (k Kind) String() string {
	switch k {
	case Definition:
		return "definition"
	case Usage:
		return "usage"
	}
	return "unknown"
}

// Visibility of a symbol within its owning scope.
type Visibility int

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	default:
		return "public"
	}
}

// RolePackage is the semantic role shared by all namespace-introducing
// definitions. Other roles ("part def", "attribute", ...) are supplied by the
// language adapter and are opaque to the core.
const RolePackage = "package"

// Record is a single extracted symbol, produced by a language adapter with no
// cross-file knowledge. The qualified name is derived as Owner::Name.
type Record struct {
	Name       string        // simple name
	Owner      QualifiedName // owning scope; "" means the root scope
	Kind       Kind
	Role       string // language-agnostic classification tag
	Visibility Visibility
	Span       text.Span // full declaration span
	NameSpan   text.Span // span of the name token itself
}

// QualifiedName derives the record's full name from its owner chain.
func (r Record) QualifiedName() QualifiedName {
	return r.Owner.Child(r.Name)
}

// ImportKind distinguishes the three import forms, resolved in strict
// pass order: namespace, then member, then recursive.
type ImportKind int

const (
	ImportNamespace ImportKind = iota + 1 // Package::*
	ImportMember                          // Package::Member
	ImportRecursive                       // Package::**
)

func (k ImportKind) String() string {
	switch k {
	case ImportNamespace:
		return "namespace"
	case ImportMember:
		return "member"
	case ImportRecursive:
		return "recursive"
	}
	return "unknown"
}

// ImportRecord is an extracted import statement, not yet resolved.
type ImportRecord struct {
	File   text.FileID
	Owner  QualifiedName // importing scope
	Target QualifiedName // target path without any wildcard suffix
	Kind   ImportKind
	Alias  string // optional local alias for member imports
	Span   text.Span
}

// RelKind is a typed relationship between symbols.
type RelKind string

const (
	RelSpecialization RelKind = "specialization"
	RelTyping         RelKind = "typing"
	RelSubsetting     RelKind = "subsetting"
	RelRedefinition   RelKind = "redefinition"
)

// RelationshipRecord is an extracted relationship whose target may still be an
// unqualified name; the graph build step resolves it in the source's scope.
type RelationshipRecord struct {
	File   text.FileID
	Kind   RelKind
	Source QualifiedName // qualified name of the declaring symbol
	Target string        // target as written: simple or qualified
	Span   text.Span     // span of the target reference, for diagnostics
}

// Extraction is the complete per-file output of a language adapter.
// It is deterministic given the file content.
type Extraction struct {
	File          text.FileID
	Symbols       []Record
	Imports       []ImportRecord
	Relationships []RelationshipRecord
	Diagnostics   []diag.Diagnostic
}

// Equal reports value equality, used by the incremental layer for early cutoff.
func (e Extraction) Equal(other any) bool {
	o, ok := other.(Extraction)
	if !ok {
		return false
	}
	if e.File != o.File ||
		len(e.Symbols) != len(o.Symbols) ||
		len(e.Imports) != len(o.Imports) ||
		len(e.Relationships) != len(o.Relationships) ||
		len(e.Diagnostics) != len(o.Diagnostics) {
		return false
	}
	for i := range e.Symbols {
		if e.Symbols[i] != o.Symbols[i] {
			return false
		}
	}
	for i := range e.Imports {
		if e.Imports[i] != o.Imports[i] {
			return false
		}
	}
	for i := range e.Relationships {
		if e.Relationships[i] != o.Relationships[i] {
			return false
		}
	}
	for i := range e.Diagnostics {
		if e.Diagnostics[i] != o.Diagnostics[i] {
			return false
		}
	}
	return true
}
