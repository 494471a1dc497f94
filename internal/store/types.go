package store

// Row types mirror the table schema one to one. The exporter maps snapshot
// state into these; the store never sees the analysis types themselves.

// FileRow is one tracked file.
type FileRow struct {
	ID   int64
	Path string
}

// SymbolRow is one symbol, canonical or shadowed.
type SymbolRow struct {
	FileID        int64
	QualifiedName string
	SimpleName    string
	Owner         string
	Kind          string
	Role          string
	Visibility    string
	Shadowed      bool
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
}

// RelationshipRow is one typed edge, valid or not.
type RelationshipRow struct {
	FileID    int64
	Kind      string
	Source    string
	Target    string
	Valid     bool
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// ImportRow is one import with its resolution outcome.
type ImportRow struct {
	FileID       int64
	Owner        string
	Target       string
	Kind         string
	Alias        string
	Status       string
	ResolvedName string
}

// DiagnosticRow is one diagnostic.
type DiagnosticRow struct {
	FileID    int64
	Kind      string
	Severity  string
	Message   string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// ExportData is one snapshot's worth of rows.
type ExportData struct {
	Generation    int64
	Files         []FileRow
	Symbols       []SymbolRow
	Relationships []RelationshipRow
	Imports       []ImportRow
	Diagnostics   []DiagnosticRow
}
