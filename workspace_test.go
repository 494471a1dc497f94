package loom

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/text"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws := NewWorkspace()
	t.Cleanup(ws.Close)
	return ws
}

func mustAdd(t *testing.T, ws *Workspace, path, content string) text.FileID {
	t.Helper()
	id, err := ws.AddOrUpdateFile(path, []byte(content))
	require.NoError(t, err)
	return id
}

func mustSnapshot(t *testing.T, ws *Workspace) *Snapshot {
	t.Helper()
	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func TestWorkspace_BasicAnalysis(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "p.sysml", `package P {
		part def Vehicle;
		part def Car :> Vehicle;
		part engine : Car;
	}`)

	snap := mustSnapshot(t, ws)
	assert.Empty(t, snap.AllDiagnostics())

	car, ok := snap.LookupQualified("P::Car")
	require.True(t, ok)
	assert.Equal(t, Definition, car.Kind)

	assert.Equal(t, []QualifiedName{"P::Vehicle"}, snap.Specializes("P::Car"))
	assert.Equal(t, []QualifiedName{"P::Car"}, snap.SpecializationsOf("P::Vehicle"))

	typ, ok := snap.TypeOf("P::engine")
	require.True(t, ok)
	assert.Equal(t, QualifiedName("P::Car"), typ)
}

func TestWorkspace_CrossFileImports(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "p.sysml", `package P { thing def A; }`)
	qID := mustAdd(t, ws, "q.sysml", `package Q {
		import P::*;
		thing def B :> A;
	}`)

	snap := mustSnapshot(t, ws)
	require.Empty(t, snap.AllDiagnostics())
	assert.Equal(t, []QualifiedName{"P::A"}, snap.Specializes("Q::B"))

	refs := snap.ReferencesTo("P::A")
	require.Len(t, refs, 1)
	assert.Equal(t, qID, refs[0].File)
}

func TestWorkspace_RenameBreaksDependent(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "p.sysml", `package P { thing def A; }`)
	qID := mustAdd(t, ws, "q.sysml", `package Q {
		import P::*;
		thing def B :> A;
	}`)

	require.Empty(t, mustSnapshot(t, ws).AllDiagnostics())

	// Renaming A invalidates only Q's reference.
	mustAdd(t, ws, "p.sysml", `package P { thing def A2; }`)
	snap := mustSnapshot(t, ws)

	diags := snap.AllDiagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diag.UnresolvedReference, diags[0].Kind)
	assert.Equal(t, qID, diags[0].File)
	assert.Empty(t, snap.Specializes("Q::B"))

	// Renaming back heals the workspace.
	mustAdd(t, ws, "p.sysml", `package P { thing def A; }`)
	snap = mustSnapshot(t, ws)
	assert.Empty(t, snap.AllDiagnostics())
	assert.Equal(t, []QualifiedName{"P::A"}, snap.Specializes("Q::B"))
}

func TestWorkspace_SpecializationQueriesByDirection(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "p.sysml", `package P { part def A; }`)
	mustAdd(t, ws, "q.sysml", `package Q {
		import P::*;
		part def B :> A;
	}`)

	snap := mustSnapshot(t, ws)

	// SpecializationsOf answers "who specializes A", Specializes answers
	// "what does B specialize".
	assert.Equal(t, []QualifiedName{"Q::B"}, snap.SpecializationsOf("P::A"))
	assert.Empty(t, snap.Specializes("P::A"))
	assert.Equal(t, []QualifiedName{"P::A"}, snap.Specializes("Q::B"))
	assert.Empty(t, snap.SpecializationsOf("Q::B"))

	// A renamed supertype has no specializers until Q catches up.
	mustAdd(t, ws, "p.sysml", `package P { part def A2; }`)
	snap = mustSnapshot(t, ws)
	assert.Empty(t, snap.SpecializationsOf("P::A2"))
}

func TestWorkspace_IdenticalContentIsNoOp(t *testing.T) {
	ws := newTestWorkspace(t)
	src := `package P { part def A; }`
	id := mustAdd(t, ws, "p.sysml", src)
	gen := ws.Generation()

	same := mustAdd(t, ws, "p.sysml", src)
	assert.Equal(t, id, same)
	assert.Equal(t, gen, ws.Generation())
}

func TestWorkspace_NoOpEditNeverCancelsSnapshot(t *testing.T) {
	ws := newTestWorkspace(t)
	src := `package P { part def A; }`
	mustAdd(t, ws, "p.sysml", src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if _, err := ws.AddOrUpdateFile("p.sysml", []byte(src)); err != nil {
				t.Errorf("no-op edit: %v", err)
				return
			}
		}
	}()

	// Re-registering identical content must not supersede a computation, so
	// every snapshot here succeeds.
	for i := 0; i < 50; i++ {
		snap, err := ws.Snapshot(context.Background())
		require.NoError(t, err)
		_, ok := snap.LookupQualified("P::A")
		require.True(t, ok)
	}
	<-done
}

func TestWorkspace_DuplicateAcrossFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "a.sysml", `package P { part def Widget; }`)
	bID := mustAdd(t, ws, "b.sysml", `package P { part def Widget; }`)

	snap := mustSnapshot(t, ws)
	diags := snap.AllDiagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diag.DuplicateDefinition, diags[0].Kind)
	assert.Equal(t, bID, diags[0].File)

	// Earliest declaration stays canonical; the loser is a shadow.
	s, ok := snap.LookupQualified("P::Widget")
	require.True(t, ok)
	assert.NotEqual(t, bID, s.File)
	assert.Len(t, snap.Shadows("P::Widget"), 1)
}

func TestWorkspace_OpenPackageAcrossFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "a.sysml", `package P { part def A; }`)
	mustAdd(t, ws, "b.sysml", `package P { part def B; }`)

	snap := mustSnapshot(t, ws)
	assert.Empty(t, snap.AllDiagnostics())
	assert.Len(t, snap.ChildrenOf("P"), 2)
}

func TestWorkspace_RemoveFile(t *testing.T) {
	ws := newTestWorkspace(t)
	pID := mustAdd(t, ws, "p.sysml", `package P { thing def A; }`)
	mustAdd(t, ws, "q.sysml", `package Q {
		import P::*;
		thing def B :> A;
	}`)
	require.Empty(t, mustSnapshot(t, ws).AllDiagnostics())

	require.NoError(t, ws.RemoveFile(pID))
	snap := mustSnapshot(t, ws)

	_, ok := snap.LookupQualified("P::A")
	assert.False(t, ok)

	kinds := make(map[diag.Kind]int)
	for _, d := range snap.AllDiagnostics() {
		kinds[d.Kind]++
	}
	assert.Equal(t, 1, kinds[diag.UnresolvedImport])
	assert.Equal(t, 1, kinds[diag.UnresolvedReference])
}

func TestWorkspace_RemoveUnknownFile(t *testing.T) {
	ws := newTestWorkspace(t)
	err := ws.RemoveFile(42)
	require.ErrorIs(t, err, ErrUnknownFile)
}

func TestWorkspace_UnsupportedExtension(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.AddOrUpdateFile("readme.md", []byte("# nope"))
	require.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestWorkspace_Registry(t *testing.T) {
	ws := newTestWorkspace(t)
	a := mustAdd(t, ws, "a.sysml", `package A;`)
	b := mustAdd(t, ws, "b.sysml", `package B;`)

	id, ok := ws.FileByPath("a.sysml")
	require.True(t, ok)
	assert.Equal(t, a, id)

	path, ok := ws.PathOf(b)
	require.True(t, ok)
	assert.Equal(t, "b.sysml", path)

	assert.Equal(t, []text.FileID{a, b}, ws.Files())

	// IDs are stable across edits.
	again := mustAdd(t, ws, "a.sysml", `package A2;`)
	assert.Equal(t, a, again)
}

func TestWorkspace_Closed(t *testing.T) {
	ws := NewWorkspace()
	mustAdd(t, ws, "p.sysml", `package P;`)
	snap := mustSnapshot(t, ws)
	ws.Close()

	_, err := ws.AddOrUpdateFile("p.sysml", []byte("package X;"))
	require.ErrorIs(t, err, ErrClosed)
	_, err = ws.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrClosed)

	// Outstanding snapshots are invalidated, not left dangling.
	assert.Nil(t, snap.Files())
	_, ok := snap.LookupQualified("P")
	assert.False(t, ok)
}

func TestWorkspace_IncrementalMatchesFresh(t *testing.T) {
	files := map[string]string{
		"lib.sysml": `package Lib {
			part def Component;
			part def Sensor :> Component;
		}`,
		"app.sysml": `package App {
			import Lib::*;
			part def Controller :> Component;
			part main : Controller;
		}`,
	}

	// Incrementally: add, edit twice, end at the final content.
	incr := newTestWorkspace(t)
	mustAdd(t, incr, "lib.sysml", `package Lib { part def Component; }`)
	mustAdd(t, incr, "app.sysml", `package App { import Lib::*; part def Controller :> Missing; }`)
	mustSnapshot(t, incr)
	for path, content := range files {
		mustAdd(t, incr, path, content)
	}
	incrSnap := mustSnapshot(t, incr)

	// Fresh: the final content only.
	fresh := newTestWorkspace(t)
	for path, content := range files {
		mustAdd(t, fresh, path, content)
	}
	freshSnap := mustSnapshot(t, fresh)

	assert.Equal(t, freshSnap.AllDiagnostics(), incrSnap.AllDiagnostics())

	freshSyms := freshSnap.Symbols()
	incrSyms := incrSnap.Symbols()
	sym.SortSymbols(freshSyms)
	sym.SortSymbols(incrSyms)
	require.Equal(t, len(freshSyms), len(incrSyms))
	for i := range freshSyms {
		assert.Equal(t, freshSyms[i].Name, incrSyms[i].Name)
		assert.Equal(t, freshSyms[i].Kind, incrSyms[i].Kind)
	}

	for _, name := range []QualifiedName{"Lib::Component", "App::Controller"} {
		assert.ElementsMatch(t, freshSnap.SpecializationsOf(name), incrSnap.SpecializationsOf(name))
	}
}

func TestWorkspace_SnapshotStableWhileEditing(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "p.sysml", `package P { part def A; }`)
	old := mustSnapshot(t, ws)
	oldGen := old.Generation()

	mustAdd(t, ws, "p.sysml", `package P { part def B; }`)
	fresh := mustSnapshot(t, ws)

	// The earlier snapshot still answers from its own generation.
	_, ok := old.LookupQualified("P::A")
	assert.True(t, ok)
	assert.Equal(t, oldGen, old.Generation())

	_, ok = fresh.LookupQualified("P::A")
	assert.False(t, ok)
	_, ok = fresh.LookupQualified("P::B")
	assert.True(t, ok)
	assert.Greater(t, fresh.Generation(), oldGen)
}

func TestWorkspace_ConcurrentEditsAndSnapshots(t *testing.T) {
	ws := newTestWorkspace(t)
	mustAdd(t, ws, "p.sysml", `package P { part def A0; }`)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= 50; i++ {
			src := fmt.Sprintf(`package P { part def A%d; }`, i)
			if _, err := ws.AddOrUpdateFile("p.sysml", []byte(src)); err != nil {
				t.Errorf("edit: %v", err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			snap, err := ws.Snapshot(context.Background())
			if err == ErrStale {
				continue // superseded by an edit, expected
			}
			if err != nil {
				t.Errorf("snapshot: %v", err)
				return
			}
			if snap.Generation() == 0 {
				t.Error("snapshot before any edit")
				return
			}
		}
	}()

	wg.Wait()

	snap := mustSnapshot(t, ws)
	_, ok := snap.LookupQualified("P::A50")
	assert.True(t, ok)
}

// panicExtractor fails on demand to exercise fault containment.
type panicExtractor struct{}

func (panicExtractor) Extract(file text.FileID, content []byte) sym.Extraction {
	if string(content) == "panic" {
		panic("extractor blew up")
	}
	return sym.Extraction{
		File: file,
		Symbols: []sym.Record{
			{Name: "Stable", Kind: sym.Definition, Role: "part def"},
		},
	}
}

func TestWorkspace_FaultServesLastKnownGood(t *testing.T) {
	ws := NewWorkspace(WithExtractor(panicExtractor{}, ".frag"))
	t.Cleanup(ws.Close)

	id := mustAdd(t, ws, "m.frag", "ok")
	snap := mustSnapshot(t, ws)
	_, ok := snap.LookupQualified("Stable")
	require.True(t, ok)
	require.Empty(t, snap.AllDiagnostics())

	// The failing edit is contained: the previous extraction keeps serving
	// and the fault surfaces as a diagnostic on the file.
	mustAdd(t, ws, "m.frag", "panic")
	snap = mustSnapshot(t, ws)

	_, ok = snap.LookupQualified("Stable")
	assert.True(t, ok)

	var faults []diag.Diagnostic
	for _, d := range snap.DiagnosticsFor(id) {
		if d.Kind == diag.InternalQueryFault {
			faults = append(faults, d)
		}
	}
	require.Len(t, faults, 1)
	assert.Contains(t, faults[0].Message, "last known good")

	// A fixing edit clears the fault.
	mustAdd(t, ws, "m.frag", "fixed")
	snap = mustSnapshot(t, ws)
	assert.Empty(t, snap.AllDiagnostics())
}

func TestWorkspace_SyntaxErrorsAreFileDiagnostics(t *testing.T) {
	ws := newTestWorkspace(t)
	id := mustAdd(t, ws, "broken.sysml", `package P { part def ; }`)

	snap := mustSnapshot(t, ws)
	diags := snap.DiagnosticsFor(id)
	require.NotEmpty(t, diags)
	assert.Equal(t, diag.SyntaxError, diags[0].Kind)
}
