package lsp

import (
	"context"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/text"
)

func (s *Server) fileAt(docURI protocol.DocumentURI) (text.FileID, bool) {
	return s.ws.FileByPath(docURI.Filename())
}

// symbolAt finds the symbol whose name token covers the position.
func symbolAt(snap *loom.Snapshot, file text.FileID, line, col int) (*sym.Symbol, bool) {
	for _, symbol := range snap.SymbolsIn(file) {
		if symbol.NameSpan.Contains(line, col) {
			return symbol, true
		}
	}
	return nil, false
}

// targetAt finds the qualified name referenced at the position: a
// relationship target or an import target.
func targetAt(snap *loom.Snapshot, file text.FileID, line, col int) (sym.QualifiedName, bool) {
	for _, e := range snap.EdgesFrom(file) {
		if e.Valid && e.Span.Contains(line, col) {
			return e.Target, true
		}
	}
	for _, imp := range snap.Imports() {
		if imp.Record.File == file && imp.Target != nil && imp.Record.Span.Contains(line, col) {
			return imp.Target.Name, true
		}
	}
	return "", false
}

// nameAt resolves whatever sits at the position to a qualified name: the
// declared symbol's own name, or the name a reference points at.
func nameAt(snap *loom.Snapshot, file text.FileID, line, col int) (sym.QualifiedName, bool) {
	if target, ok := targetAt(snap, file, line, col); ok {
		return target, true
	}
	if symbol, ok := symbolAt(snap, file, line, col); ok {
		return symbol.Name, true
	}
	return "", false
}

func (s *Server) symbolLocation(snap *loom.Snapshot, symbol *sym.Symbol) (protocol.Location, bool) {
	path, ok := snap.PathOf(symbol.File)
	if !ok {
		return protocol.Location{}, false
	}
	return protocol.Location{URI: toDocumentURI(path), Range: toRange(symbol.NameSpan)}, true
}

func (s *Server) hover(ctx context.Context, params protocol.HoverParams) (*protocol.Hover, error) {
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

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`\n\n", symbol.Role, symbol.Name)
	if supers := snap.Specializes(symbol.Name); len(supers) > 0 {
		fmt.Fprintf(&b, "specializes %s\n\n", joinNames(supers))
	}
	if t, ok := snap.TypeOf(symbol.Name); ok {
		fmt.Fprintf(&b, "typed by `%s`\n\n", t)
	}
	if refs := snap.ReferencesTo(symbol.Name); len(refs) > 0 {
		fmt.Fprintf(&b, "%d reference(s)\n", len(refs))
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: strings.TrimSpace(b.String())},
	}, nil
}

func (s *Server) definition(ctx context.Context, params protocol.DefinitionParams) ([]protocol.Location, error) {
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
	loc, ok := s.symbolLocation(snap, symbol)
	if !ok {
		return nil, nil
	}
	return []protocol.Location{loc}, nil
}

func (s *Server) references(ctx context.Context, params protocol.ReferenceParams) ([]protocol.Location, error) {
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

	var locs []protocol.Location
	if params.Context.IncludeDeclaration {
		if symbol, ok := snap.LookupQualified(name); ok {
			if loc, ok := s.symbolLocation(snap, symbol); ok {
				locs = append(locs, loc)
			}
		}
	}
	for _, e := range snap.ReferencesTo(name) {
		if path, ok := snap.PathOf(e.File); ok {
			locs = append(locs, protocol.Location{URI: toDocumentURI(path), Range: toRange(e.Span)})
		}
	}
	for _, imp := range snap.Imports() {
		if imp.Target == nil || imp.Target.Name != name {
			continue
		}
		if path, ok := snap.PathOf(imp.Record.File); ok {
			locs = append(locs, protocol.Location{URI: toDocumentURI(path), Range: toRange(imp.Record.Span)})
		}
	}
	return locs, nil
}

// rename edits the declaration's name token and the trailing segment of every
// resolved reference. Whole-statement import spans are left alone: an import
// keeps resolving through its package path.
func (s *Server) rename(ctx context.Context, params protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
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

	changes := make(map[protocol.DocumentURI][]protocol.TextEdit)
	add := func(id text.FileID, span text.Span) {
		path, ok := snap.PathOf(id)
		if !ok {
			return
		}
		u := toDocumentURI(path)
		changes[u] = append(changes[u], protocol.TextEdit{Range: toRange(span), NewText: params.NewName})
	}

	add(symbol.File, symbol.NameSpan)
	for _, e := range snap.ReferencesTo(name) {
		if span, ok := lastSegmentSpan(e.Span, symbol.Simple); ok {
			add(e.File, span)
		}
	}
	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// lastSegmentSpan narrows a reference span to its trailing simple-name
// segment. A reference written through an alias is shorter than the segment
// and is skipped: the alias binding survives the rename.
func lastSegmentSpan(span text.Span, simple string) (text.Span, bool) {
	start := text.Pos{Line: span.End.Line, Col: span.End.Col - len(simple)}
	if start.Col < 1 {
		return text.Span{}, false
	}
	if span.Start.Line == span.End.Line && start.Col < span.Start.Col {
		return text.Span{}, false
	}
	return text.Span{Start: start, End: span.End}, true
}

func (s *Server) documentSymbols(ctx context.Context, params protocol.DocumentSymbolParams) ([]protocol.SymbolInformation, error) {
	file, ok := s.fileAt(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	path, _ := snap.PathOf(file)

	symbols := snap.SymbolsIn(file)
	out := make([]protocol.SymbolInformation, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, protocol.SymbolInformation{
			Name:          string(symbol.Name),
			Kind:          symbolKind(symbol),
			ContainerName: string(symbol.Owner),
			Location: protocol.Location{
				URI:   toDocumentURI(path),
				Range: toRange(symbol.Span),
			},
		})
	}
	return out, nil
}

func symbolKind(symbol *sym.Symbol) protocol.SymbolKind {
	switch {
	case symbol.Role == sym.RolePackage:
		return protocol.SymbolKindPackage
	case symbol.Kind == sym.Definition:
		return protocol.SymbolKindClass
	default:
		return protocol.SymbolKindObject
	}
}

func joinNames(names []sym.QualifiedName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "`" + string(n) + "`"
	}
	return strings.Join(parts, ", ")
}
