package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Export replaces the database contents with one snapshot's rows, all within
// a single transaction. A reader never observes a half-written export.
func (s *Store) Export(data ExportData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"diagnostics", "imports", "relationships", "symbols", "files"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("export: clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO snapshot_meta (id, generation, exported_at) VALUES (1, ?, ?) "+
			"ON CONFLICT(id) DO UPDATE SET generation = excluded.generation, exported_at = excluded.exported_at",
		data.Generation, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("export: meta: %w", err)
	}

	for _, f := range data.Files {
		if _, err := tx.Exec("INSERT INTO files (id, path) VALUES (?, ?)", f.ID, f.Path); err != nil {
			return fmt.Errorf("export: file %q: %w", f.Path, err)
		}
	}
	for _, row := range data.Symbols {
		if _, err := tx.Exec(
			`INSERT INTO symbols (file_id, qualified_name, simple_name, owner, kind, role, visibility,
			 shadowed, start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.FileID, row.QualifiedName, row.SimpleName, row.Owner, row.Kind, row.Role, row.Visibility,
			row.Shadowed, row.StartLine, row.StartCol, row.EndLine, row.EndCol,
		); err != nil {
			return fmt.Errorf("export: symbol %q: %w", row.QualifiedName, err)
		}
	}
	for _, row := range data.Relationships {
		if _, err := tx.Exec(
			`INSERT INTO relationships (file_id, kind, source, target, valid,
			 start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.FileID, row.Kind, row.Source, row.Target, row.Valid,
			row.StartLine, row.StartCol, row.EndLine, row.EndCol,
		); err != nil {
			return fmt.Errorf("export: relationship %s -> %s: %w", row.Source, row.Target, err)
		}
	}
	for _, row := range data.Imports {
		if _, err := tx.Exec(
			`INSERT INTO imports (file_id, owner, target, kind, alias, status, resolved_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.FileID, row.Owner, row.Target, row.Kind, row.Alias, row.Status, row.ResolvedName,
		); err != nil {
			return fmt.Errorf("export: import %q: %w", row.Target, err)
		}
	}
	for _, row := range data.Diagnostics {
		if _, err := tx.Exec(
			`INSERT INTO diagnostics (file_id, kind, severity, message,
			 start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.FileID, row.Kind, row.Severity, row.Message,
			row.StartLine, row.StartCol, row.EndLine, row.EndCol,
		); err != nil {
			return fmt.Errorf("export: diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	return nil
}

// SymbolsByName returns exported symbols matching a simple name.
func (s *Store) SymbolsByName(name string) ([]SymbolRow, error) {
	rows, err := s.db.Query(
		`SELECT file_id, qualified_name, simple_name, owner, kind, role, visibility,
		 shadowed, start_line, start_col, end_line, end_col
		 FROM symbols WHERE simple_name = ? ORDER BY qualified_name`, name)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolsByFile returns exported symbols contributed by one file.
func (s *Store) SymbolsByFile(fileID int64) ([]SymbolRow, error) {
	rows, err := s.db.Query(
		`SELECT file_id, qualified_name, simple_name, owner, kind, role, visibility,
		 shadowed, start_line, start_col, end_line, end_col
		 FROM symbols WHERE file_id = ? ORDER BY id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("symbols by file: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// ReferencesTo returns exported relationship rows whose target is the given
// qualified name.
func (s *Store) ReferencesTo(target string) ([]RelationshipRow, error) {
	rows, err := s.db.Query(
		`SELECT file_id, kind, source, target, valid, start_line, start_col, end_line, end_col
		 FROM relationships WHERE target = ? AND valid ORDER BY file_id, start_line`, target)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	defer rows.Close()
	var out []RelationshipRow
	for rows.Next() {
		var r RelationshipRow
		if err := rows.Scan(&r.FileID, &r.Kind, &r.Source, &r.Target, &r.Valid,
			&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("references to: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DiagnosticCount returns the number of exported diagnostics.
func (s *Store) DiagnosticCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM diagnostics").Scan(&n); err != nil {
		return 0, fmt.Errorf("diagnostic count: %w", err)
	}
	return n, nil
}

// Generation returns the exported snapshot's generation, or -1 when no
// export has run.
func (s *Store) Generation() (int64, error) {
	var gen int64
	err := s.db.QueryRow("SELECT generation FROM snapshot_meta WHERE id = 1").Scan(&gen)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("generation: %w", err)
	}
	return gen, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSymbols(rows rowScanner) ([]SymbolRow, error) {
	var out []SymbolRow
	for rows.Next() {
		var r SymbolRow
		if err := rows.Scan(&r.FileID, &r.QualifiedName, &r.SimpleName, &r.Owner, &r.Kind,
			&r.Role, &r.Visibility, &r.Shadowed, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
