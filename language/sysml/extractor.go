// Package sysml adapts the modeling notation's structural tree into the
// language-agnostic symbol, import, and relationship records consumed by the
// analysis core. Extraction is a pure function of one file's content and has
// no cross-file knowledge.
package sysml

import (
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/syntax"
	"github.com/jward/loom/internal/text"
)

// Extensions are the file extensions this adapter claims.
var Extensions = []string{".sysml", ".kerml"}

// Extractor implements the loom extraction contract for SysML-style sources.
type Extractor struct{}

// New returns the SysML extractor. It is stateless and safe to share.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the file content and maps every declaration into extraction
// records. Parse errors become diagnostics; declarations that did parse are
// still extracted.
func (x *Extractor) Extract(file text.FileID, content []byte) sym.Extraction {
	tree, diags := syntax.Parse(file, string(content))
	out := sym.Extraction{File: file, Diagnostics: diags}
	walkItems(&out, "", tree.Items)
	return out
}

func walkItems(out *sym.Extraction, owner sym.QualifiedName, items []syntax.Item) {
	for _, item := range items {
		switch n := item.(type) {
		case *syntax.Package:
			qname := owner.Child(n.Name.Text)
			out.Symbols = append(out.Symbols, sym.Record{
				Name:       n.Name.Text,
				Owner:      owner,
				Kind:       sym.Definition,
				Role:       sym.RolePackage,
				Visibility: visibility(n.Visibility),
				Span:       n.At,
				NameSpan:   n.Name.At,
			})
			walkItems(out, qname, n.Items)

		case *syntax.Import:
			out.Imports = append(out.Imports, sym.ImportRecord{
				File:   out.File,
				Owner:  owner,
				Target: refName(n.Path),
				Kind:   importKind(n.Wildcard),
				Alias:  aliasText(n.Alias),
				Span:   n.At,
			})

		case *syntax.Definition:
			qname := owner.Child(n.Name.Text)
			out.Symbols = append(out.Symbols, sym.Record{
				Name:       n.Name.Text,
				Owner:      owner,
				Kind:       sym.Definition,
				Role:       n.Role + " def",
				Visibility: visibility(n.Visibility),
				Span:       n.At,
				NameSpan:   n.Name.At,
			})
			for _, ref := range n.Specializes {
				out.Relationships = append(out.Relationships, sym.RelationshipRecord{
					File:   out.File,
					Kind:   sym.RelSpecialization,
					Source: qname,
					Target: ref.Text(),
					Span:   ref.At,
				})
			}
			walkItems(out, qname, n.Items)

		case *syntax.UsageNode:
			qname := owner.Child(n.Name.Text)
			out.Symbols = append(out.Symbols, sym.Record{
				Name:       n.Name.Text,
				Owner:      owner,
				Kind:       sym.Usage,
				Role:       n.Role,
				Visibility: visibility(n.Visibility),
				Span:       n.At,
				NameSpan:   n.Name.At,
			})
			if n.Type != nil {
				out.Relationships = append(out.Relationships, sym.RelationshipRecord{
					File:   out.File,
					Kind:   sym.RelTyping,
					Source: qname,
					Target: n.Type.Text(),
					Span:   n.Type.At,
				})
			}
			for _, ref := range n.Subsets {
				out.Relationships = append(out.Relationships, sym.RelationshipRecord{
					File:   out.File,
					Kind:   sym.RelSubsetting,
					Source: qname,
					Target: ref.Text(),
					Span:   ref.At,
				})
			}
			for _, ref := range n.Redefines {
				out.Relationships = append(out.Relationships, sym.RelationshipRecord{
					File:   out.File,
					Kind:   sym.RelRedefinition,
					Source: qname,
					Target: ref.Text(),
					Span:   ref.At,
				})
			}
			walkItems(out, qname, n.Items)
		}
	}
}

func visibility(v syntax.Visibility) sym.Visibility {
	switch v {
	case syntax.VisPrivate:
		return sym.Private
	case syntax.VisProtected:
		return sym.Protected
	default:
		return sym.Public
	}
}

func importKind(w syntax.WildcardKind) sym.ImportKind {
	switch w {
	case syntax.WildcardNamespace:
		return sym.ImportNamespace
	case syntax.WildcardRecursive:
		return sym.ImportRecursive
	default:
		return sym.ImportMember
	}
}

func refName(r syntax.Ref) sym.QualifiedName {
	segments := make([]string, len(r.Parts))
	for i, p := range r.Parts {
		segments[i] = p.Text
	}
	return sym.Join(segments...)
}

func aliasText(id *syntax.Ident) string {
	if id == nil {
		return ""
	}
	return id.Text
}
