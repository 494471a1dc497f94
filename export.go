package loom

import (
	"fmt"

	"github.com/jward/loom/internal/store"
	"github.com/jward/loom/internal/sym"
)

// Export writes the snapshot to a SQLite database for offline inspection.
// The export replaces any previous contents atomically.
func (s *Snapshot) Export(st *store.Store) error {
	if !s.valid() {
		return ErrClosed
	}
	if err := st.Migrate(); err != nil {
		return err
	}

	data := store.ExportData{Generation: int64(s.generation)}

	for _, id := range s.order {
		data.Files = append(data.Files, store.FileRow{ID: int64(id), Path: s.paths[id]})
	}

	appendSymbol := func(symbol *sym.Symbol) {
		data.Symbols = append(data.Symbols, store.SymbolRow{
			FileID:        int64(symbol.File),
			QualifiedName: string(symbol.Name),
			SimpleName:    symbol.Simple,
			Owner:         string(symbol.Owner),
			Kind:          symbol.Kind.String(),
			Role:          symbol.Role,
			Visibility:    symbol.Visibility.String(),
			Shadowed:      symbol.Shadowed,
			StartLine:     symbol.Span.Start.Line,
			StartCol:      symbol.Span.Start.Col,
			EndLine:       symbol.Span.End.Line,
			EndCol:        symbol.Span.End.Col,
		})
	}
	for _, symbol := range s.index.All() {
		appendSymbol(symbol)
		for _, shadow := range s.index.Shadows(symbol.Name) {
			appendSymbol(shadow)
		}
	}

	for _, id := range s.order {
		for _, e := range s.graph.EdgesFrom(id) {
			data.Relationships = append(data.Relationships, store.RelationshipRow{
				FileID:    int64(e.File),
				Kind:      string(e.Kind),
				Source:    string(e.Source),
				Target:    string(e.Target),
				Valid:     e.Valid,
				StartLine: e.Span.Start.Line,
				StartCol:  e.Span.Start.Col,
				EndLine:   e.Span.End.Line,
				EndCol:    e.Span.End.Col,
			})
		}
	}

	for _, imp := range s.res.Imports() {
		row := store.ImportRow{
			FileID: int64(imp.Record.File),
			Owner:  string(imp.Record.Owner),
			Target: string(imp.Record.Target),
			Kind:   imp.Record.Kind.String(),
			Alias:  imp.Record.Alias,
			Status: imp.Status.String(),
		}
		if imp.Target != nil {
			row.ResolvedName = string(imp.Target.Name)
		}
		data.Imports = append(data.Imports, row)
	}

	for _, d := range s.AllDiagnostics() {
		data.Diagnostics = append(data.Diagnostics, store.DiagnosticRow{
			FileID:    int64(d.File),
			Kind:      string(d.Kind),
			Severity:  d.Severity.String(),
			Message:   d.Message,
			StartLine: d.Span.Start.Line,
			StartCol:  d.Span.Start.Col,
			EndLine:   d.Span.End.Line,
			EndCol:    d.Span.End.Col,
		})
	}

	if err := st.Export(data); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	return nil
}

// ExportToFile exports the snapshot to a SQLite database at dbPath.
func (s *Snapshot) ExportToFile(dbPath string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return s.Export(st)
}
