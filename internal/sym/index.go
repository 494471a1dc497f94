package sym

import (
	"sort"

	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/text"
)

// Symbol is a merged entry in the global index. Symbols never embed resolved
// relationship targets or reference lists; those live in the relationship
// graph only.
type Symbol struct {
	Name       QualifiedName
	Simple     string
	Owner      QualifiedName
	Kind       Kind
	Role       string
	Visibility Visibility
	File       text.FileID
	Span       text.Span
	NameSpan   text.Span
	Shadowed   bool // true when this entry lost a collision and is excluded from normal lookup
}

// FileSymbols pairs a file with its extracted symbol records, in declaration order.
type FileSymbols struct {
	File    text.FileID
	Records []Record
}

// Index is the global mapping from qualified name to canonical Symbol.
// It is rebuilt as a whole by Merge; consumers never mutate it.
type Index struct {
	byName   map[QualifiedName]*Symbol
	shadows  map[QualifiedName][]*Symbol
	bySimple map[string][]*Symbol
	byFile   map[text.FileID][]*Symbol
	children map[QualifiedName][]*Symbol
	all      []*Symbol // stable merge order
}

// Merge builds an Index from per-file symbol records. Files must be supplied
// in registration order; records within a file are in declaration order. On a
// qualified-name collision the earliest entry stays canonical and the later
// one is recorded as shadowed; when both are Definitions a DuplicateDefinition
// diagnostic is emitted at the later declaration.
func Merge(files []FileSymbols) (*Index, []diag.Diagnostic) {
	idx := &Index{
		byName:   make(map[QualifiedName]*Symbol),
		shadows:  make(map[QualifiedName][]*Symbol),
		bySimple: make(map[string][]*Symbol),
		byFile:   make(map[text.FileID][]*Symbol),
		children: make(map[QualifiedName][]*Symbol),
	}
	var diags []diag.Diagnostic

	for _, fs := range files {
		for _, rec := range fs.Records {
			s := &Symbol{
				Name:       rec.QualifiedName(),
				Simple:     rec.Name,
				Owner:      rec.Owner,
				Kind:       rec.Kind,
				Role:       rec.Role,
				Visibility: rec.Visibility,
				File:       fs.File,
				Span:       rec.Span,
				NameSpan:   rec.NameSpan,
			}
			existing, ok := idx.byName[s.Name]
			if !ok {
				idx.byName[s.Name] = s
				idx.bySimple[s.Simple] = append(idx.bySimple[s.Simple], s)
				idx.children[s.Owner] = append(idx.children[s.Owner], s)
				idx.byFile[fs.File] = append(idx.byFile[fs.File], s)
				idx.all = append(idx.all, s)
				continue
			}

			// Packages are open namespaces: the same package declared in two
			// files is one namespace, not a duplicate. The earliest
			// declaration stays canonical.
			if existing.Role == RolePackage && s.Role == RolePackage {
				idx.byFile[fs.File] = append(idx.byFile[fs.File], s)
				idx.shadows[s.Name] = append(idx.shadows[s.Name], s)
				s.Shadowed = true
				continue
			}

			s.Shadowed = true
			idx.shadows[s.Name] = append(idx.shadows[s.Name], s)
			idx.byFile[fs.File] = append(idx.byFile[fs.File], s)
			if existing.Kind == Definition && s.Kind == Definition {
				diags = append(diags, diag.Errorf(diag.DuplicateDefinition, fs.File, s.NameSpan,
					"duplicate definition of %q", s.Name))
			}
		}
	}
	return idx, diags
}

// LookupQualified returns the canonical symbol for a qualified name.
func (idx *Index) LookupQualified(name QualifiedName) (*Symbol, bool) {
	s, ok := idx.byName[name]
	return s, ok
}

// Shadows returns collision losers for a qualified name, queryable but
// excluded from normal lookup.
func (idx *Index) Shadows(name QualifiedName) []*Symbol {
	return idx.shadows[name]
}

// ChildrenOf returns the direct children of a scope, in stable merge order.
func (idx *Index) ChildrenOf(scope QualifiedName) []*Symbol {
	return idx.children[scope]
}

// DescendantsOf returns every symbol whose qualified name lies strictly below
// the given scope, in stable merge order.
func (idx *Index) DescendantsOf(scope QualifiedName) []*Symbol {
	var out []*Symbol
	for _, s := range idx.all {
		if !s.Shadowed && s.Name.HasPrefix(scope) {
			out = append(out, s)
		}
	}
	return out
}

// LookupSimpleInScope resolves a simple name starting from a scope: the local
// scope first, then enclosing scopes outward, then all global symbols sharing
// the simple name as a best-effort fallback.
func (idx *Index) LookupSimpleInScope(scope QualifiedName, name string) []*Symbol {
	for {
		if s, ok := idx.byName[scope.Child(name)]; ok {
			return []*Symbol{s}
		}
		if scope == "" {
			break
		}
		scope = scope.Parent()
	}
	var out []*Symbol
	for _, s := range idx.bySimple[name] {
		if !s.Shadowed {
			out = append(out, s)
		}
	}
	return out
}

// SymbolsIn returns all symbols extracted from a file, shadowed entries included.
func (idx *Index) SymbolsIn(file text.FileID) []*Symbol {
	return idx.byFile[file]
}

// All returns every canonical symbol in stable merge order.
func (idx *Index) All() []*Symbol {
	out := make([]*Symbol, 0, len(idx.all))
	for _, s := range idx.all {
		if !s.Shadowed {
			out = append(out, s)
		}
	}
	return out
}

// Len reports the number of canonical entries.
func (idx *Index) Len() int {
	return len(idx.byName)
}

// Equal compares two indexes by canonical content, used for early cutoff:
// an edit that leaves the merged symbol set unchanged must not invalidate
// downstream queries.
func (idx *Index) Equal(other any) bool {
	o, ok := other.(*Index)
	if !ok || o == nil {
		return false
	}
	if len(idx.byName) != len(o.byName) {
		return false
	}
	for name, s := range idx.byName {
		os, ok := o.byName[name]
		if !ok || *s != *os {
			return false
		}
	}
	// Shadow sets matter too: a new shadowed duplicate changes diagnostics.
	if len(idx.shadows) != len(o.shadows) {
		return false
	}
	for name, list := range idx.shadows {
		olist := o.shadows[name]
		if len(list) != len(olist) {
			return false
		}
		for i := range list {
			if *list[i] != *olist[i] {
				return false
			}
		}
	}
	return true
}

// SortSymbols orders symbols by qualified name, for deterministic output.
func SortSymbols(symbols []*Symbol) {
	sort.Slice(symbols, func(i, j int) bool {
		return symbols[i].Name < symbols[j].Name
	})
}
