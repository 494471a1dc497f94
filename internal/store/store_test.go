package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate())
	return st
}

func sampleData() ExportData {
	return ExportData{
		Generation: 7,
		Files: []FileRow{
			{ID: 1, Path: "p.sysml"},
			{ID: 2, Path: "q.sysml"},
		},
		Symbols: []SymbolRow{
			{FileID: 1, QualifiedName: "P", SimpleName: "P", Kind: "definition", Role: "package", Visibility: "public", StartLine: 1, StartCol: 1},
			{FileID: 1, QualifiedName: "P::Car", SimpleName: "Car", Owner: "P", Kind: "definition", Role: "part def", Visibility: "public", StartLine: 2, StartCol: 3},
			{FileID: 2, QualifiedName: "Q::Car", SimpleName: "Car", Owner: "Q", Kind: "definition", Role: "part def", Visibility: "public", Shadowed: true, StartLine: 2, StartCol: 3},
		},
		Relationships: []RelationshipRow{
			{FileID: 2, Kind: "specialization", Source: "Q::Truck", Target: "P::Car", Valid: true, StartLine: 3, StartCol: 20},
			{FileID: 2, Kind: "typing", Source: "Q::broken", Target: "Ghost", Valid: false, StartLine: 4, StartCol: 18},
		},
		Imports: []ImportRow{
			{FileID: 2, Owner: "Q", Target: "P", Kind: "namespace", Status: "resolved", ResolvedName: "P"},
		},
		Diagnostics: []DiagnosticRow{
			{FileID: 2, Kind: "unresolved-reference", Severity: "error", Message: "unknown name Ghost", StartLine: 4, StartCol: 18},
		},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Migrate())
}

func TestExportAndQuery(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Export(sampleData()))

	gen, err := st.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(7), gen)

	byName, err := st.SymbolsByName("Car")
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "P::Car", byName[0].QualifiedName)
	assert.False(t, byName[0].Shadowed)
	assert.Equal(t, "Q::Car", byName[1].QualifiedName)
	assert.True(t, byName[1].Shadowed)

	byFile, err := st.SymbolsByFile(1)
	require.NoError(t, err)
	require.Len(t, byFile, 2)
	assert.Equal(t, "P", byFile[0].QualifiedName)

	refs, err := st.ReferencesTo("P::Car")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Q::Truck", refs[0].Source)

	// Invalid edges are excluded from reference queries.
	refs, err = st.ReferencesTo("Ghost")
	require.NoError(t, err)
	assert.Empty(t, refs)

	n, err := st.DiagnosticCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExport_ReplacesPriorRows(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Export(sampleData()))

	next := ExportData{
		Generation: 8,
		Files:      []FileRow{{ID: 1, Path: "p.sysml"}},
		Symbols: []SymbolRow{
			{FileID: 1, QualifiedName: "P", SimpleName: "P", Kind: "definition", Role: "package", Visibility: "public"},
		},
	}
	require.NoError(t, st.Export(next))

	gen, err := st.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(8), gen)

	stale, err := st.SymbolsByName("Car")
	require.NoError(t, err)
	assert.Empty(t, stale)

	n, err := st.DiagnosticCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGeneration_NoExport(t *testing.T) {
	st := newTestStore(t)

	gen, err := st.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), gen)
}
