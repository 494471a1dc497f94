package lsp

import (
	"context"

	"go.lsp.dev/protocol"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/sym"
)

// The protocol package tracks LSP 3.16; the 3.17 type hierarchy wire shapes
// are declared here and the capability is announced through the experimental
// capability block.
const (
	methodPrepareTypeHierarchy    = "textDocument/prepareTypeHierarchy"
	methodTypeHierarchySupertypes = "typeHierarchy/supertypes"
	methodTypeHierarchySubtypes   = "typeHierarchy/subtypes"
)

type typeHierarchyItem struct {
	// Name carries the qualified name, so follow-up supertype and subtype
	// requests resolve without positional context.
	Name           string               `json:"name"`
	Kind           protocol.SymbolKind  `json:"kind"`
	Detail         string               `json:"detail,omitempty"`
	URI            protocol.DocumentURI `json:"uri"`
	Range          protocol.Range       `json:"range"`
	SelectionRange protocol.Range       `json:"selectionRange"`
}

type typeHierarchyPrepareParams struct {
	protocol.TextDocumentPositionParams
}

type typeHierarchyItemParams struct {
	Item typeHierarchyItem `json:"item"`
}

func (s *Server) prepareTypeHierarchy(ctx context.Context, params typeHierarchyPrepareParams) ([]typeHierarchyItem, error) {
	file, ok := s.fileAt(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	line, col := fromPosition(params.Position)

	name, ok := nameAt(snap, file, line, col)
	if !ok {
		return nil, nil
	}
	symbol, ok := snap.LookupQualified(name)
	if !ok {
		return nil, nil
	}
	item, ok := hierarchyItem(snap, symbol)
	if !ok {
		return nil, nil
	}
	return []typeHierarchyItem{item}, nil
}

// supertypes lists the definitions the item specializes.
func (s *Server) supertypes(ctx context.Context, params typeHierarchyItemParams) ([]typeHierarchyItem, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchyItems(snap, snap.Specializes(sym.QualifiedName(params.Item.Name))), nil
}

// subtypes lists the definitions that specialize the item.
func (s *Server) subtypes(ctx context.Context, params typeHierarchyItemParams) ([]typeHierarchyItem, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchyItems(snap, snap.SpecializationsOf(sym.QualifiedName(params.Item.Name))), nil
}

func hierarchyItem(snap *loom.Snapshot, symbol *sym.Symbol) (typeHierarchyItem, bool) {
	path, ok := snap.PathOf(symbol.File)
	if !ok {
		return typeHierarchyItem{}, false
	}
	return typeHierarchyItem{
		Name:           string(symbol.Name),
		Kind:           symbolKind(symbol),
		Detail:         symbol.Role,
		URI:            toDocumentURI(path),
		Range:          toRange(symbol.Span),
		SelectionRange: toRange(symbol.NameSpan),
	}, true
}

func hierarchyItems(snap *loom.Snapshot, names []sym.QualifiedName) []typeHierarchyItem {
	var items []typeHierarchyItem
	for _, name := range names {
		symbol, ok := snap.LookupQualified(name)
		if !ok {
			continue
		}
		if item, ok := hierarchyItem(snap, symbol); ok {
			items = append(items, item)
		}
	}
	return items
}
