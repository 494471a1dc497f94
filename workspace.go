package loom

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/graph"
	"github.com/jward/loom/internal/incr"
	"github.com/jward/loom/internal/resolve"
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/text"
	"github.com/jward/loom/language/sysml"
)

var (
	// ErrStale is returned when a snapshot computation was superseded by a
	// mutation before it finished; the caller should retry against the new
	// generation.
	ErrStale = errors.New("loom: analysis superseded by a newer edit, retry")

	// ErrUnknownFile reports an operation against a FileID the workspace
	// does not track. This is an API misuse, not a diagnostic.
	ErrUnknownFile = errors.New("loom: unknown file id")

	// ErrUnsupportedFile reports a path whose extension no registered
	// extractor claims.
	ErrUnsupportedFile = errors.New("loom: no extractor for file")

	// ErrClosed reports use of a workspace or snapshot after Close.
	ErrClosed = errors.New("loom: workspace closed")
)

// Extractor is the adapter boundary: a pure mapping from one file's content
// to extraction records, deterministic and without cross-file knowledge.
// Concrete extraction logic is plugged in per file extension.
type Extractor interface {
	Extract(file text.FileID, content []byte) sym.Extraction
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithExtractor registers an extractor for the given file extensions
// (".sysml" style, matched case-insensitively), replacing any default claim
// on those extensions.
func WithExtractor(x Extractor, extensions ...string) Option {
	return func(w *Workspace) {
		for _, ext := range extensions {
			w.extractors[strings.ToLower(ext)] = x
		}
	}
}

// Workspace is the single mutable owner of the file registry and all query
// caches. All mutation goes through AddOrUpdateFile and RemoveFile; readers
// take immutable Snapshots. A Workspace must not be copied.
type Workspace struct {
	mu         sync.Mutex // the host's single mutation lock
	engine     *incr.Engine
	extractors map[string]Extractor

	// regMu guards the registry fields below. Mutators hold mu before regMu;
	// cheap readers take regMu alone so they never wait on an in-flight
	// snapshot computation.
	regMu  sync.Mutex
	files  map[text.FileID]*fileState
	byPath map[string]text.FileID
	order  []text.FileID
	nextID text.FileID

	generation uint64
	closed     atomic.Bool

	// inflight cancels a snapshot computation when a mutation arrives, so
	// editors are never blocked behind analysis of superseded content.
	flightMu sync.Mutex
	inflight context.CancelFunc

	// graph state carried across generations for per-file edge replacement.
	graph    *graph.Graph
	graphRev uint64
	removed  []text.FileID
}

type fileState struct {
	id   text.FileID
	path string
	hash [sha256.Size]byte
}

// NewWorkspace creates an empty workspace. The SysML adapter is registered
// for its extensions by default; WithExtractor overrides or extends that.
func NewWorkspace(opts ...Option) *Workspace {
	w := &Workspace{
		engine:     incr.NewEngine(),
		extractors: make(map[string]Extractor),
		files:      make(map[text.FileID]*fileState),
		byPath:     make(map[string]text.FileID),
		graph:      graph.New(),
	}
	std := sysml.New()
	for _, ext := range sysml.Extensions {
		w.extractors[ext] = std
	}
	for _, opt := range opts {
		opt(w)
	}
	w.registerQueries()
	return w
}

const (
	kindFile     = "file"     // input: file content
	kindFileSet  = "files"    // input: registration-ordered file ids
	kindExtract  = "extract"  // per file: adapter output
	kindIndex    = "index"    // workspace: merged symbol index
	kindResolve  = "resolve"  // workspace: import resolution
	kindEdges    = "edges"    // per file: resolved relationship edges
	kindFileDiag = "filediag" // per file: aggregated diagnostics
)

func fileKey(id text.FileID) incr.Key {
	return incr.Key{Kind: kindFile, Arg: strconv.FormatInt(int64(id), 10)}
}

type fileInput struct {
	Path    string
	Content string
}

type indexValue struct {
	Index *sym.Index
	Diags []diag.Diagnostic
}

func (v indexValue) Equal(other any) bool {
	o, ok := other.(indexValue)
	return ok && v.Index.Equal(o.Index) && diagsEqual(v.Diags, o.Diags)
}

type edgesValue struct {
	Edges []graph.Edge
	Diags []diag.Diagnostic
}

func (v edgesValue) Equal(other any) bool {
	o, ok := other.(edgesValue)
	if !ok || len(v.Edges) != len(o.Edges) || !diagsEqual(v.Diags, o.Diags) {
		return false
	}
	for i := range v.Edges {
		if v.Edges[i] != o.Edges[i] {
			return false
		}
	}
	return true
}

func diagsEqual(a, b []diag.Diagnostic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (w *Workspace) registerQueries() {
	w.engine.RegisterKind(kindExtract, func(ctx *incr.Ctx) (any, error) {
		id, _ := strconv.ParseInt(ctx.Key().Arg, 10, 64)
		raw, err := ctx.Get(fileKey(text.FileID(id)))
		if err != nil {
			return nil, err
		}
		in := raw.(fileInput)
		x := w.extractorFor(in.Path)
		if x == nil {
			return sym.Extraction{File: text.FileID(id)}, nil
		}
		return x.Extract(text.FileID(id), []byte(in.Content)), nil
	})

	w.engine.RegisterKind(kindIndex, func(ctx *incr.Ctx) (any, error) {
		ids, err := w.fileSet(ctx)
		if err != nil {
			return nil, err
		}
		// Stable order: file registration order, then declaration order
		// within each file. The merge is O(total symbols) by design; early
		// cutoff keeps unchanged merges from cascading.
		files := make([]sym.FileSymbols, 0, len(ids))
		for _, id := range ids {
			ex, err := w.extraction(ctx, id)
			if err != nil {
				return nil, err
			}
			files = append(files, sym.FileSymbols{File: id, Records: ex.Symbols})
		}
		idx, diags := sym.Merge(files)
		return indexValue{Index: idx, Diags: diags}, nil
	})

	w.engine.RegisterKind(kindResolve, func(ctx *incr.Ctx) (any, error) {
		ids, err := w.fileSet(ctx)
		if err != nil {
			return nil, err
		}
		var imports []sym.ImportRecord
		for _, id := range ids {
			ex, err := w.extraction(ctx, id)
			if err != nil {
				return nil, err
			}
			imports = append(imports, ex.Imports...)
		}
		raw, err := ctx.Get(incr.Key{Kind: kindIndex})
		if err != nil {
			return nil, err
		}
		return resolve.Resolve(raw.(indexValue).Index, imports), nil
	})

	w.engine.RegisterKind(kindEdges, func(ctx *incr.Ctx) (any, error) {
		id, _ := strconv.ParseInt(ctx.Key().Arg, 10, 64)
		ex, err := w.extraction(ctx, text.FileID(id))
		if err != nil {
			return nil, err
		}
		rawIdx, err := ctx.Get(incr.Key{Kind: kindIndex})
		if err != nil {
			return nil, err
		}
		rawRes, err := ctx.Get(incr.Key{Kind: kindResolve})
		if err != nil {
			return nil, err
		}
		edges, diags := graph.BuildFileEdges(rawIdx.(indexValue).Index, rawRes.(*resolve.Result), ex.Relationships)
		return edgesValue{Edges: edges, Diags: diags}, nil
	})

	w.engine.RegisterKind(kindFileDiag, func(ctx *incr.Ctx) (any, error) {
		id, _ := strconv.ParseInt(ctx.Key().Arg, 10, 64)
		file := text.FileID(id)

		ex, err := w.extraction(ctx, file)
		if err != nil {
			return nil, err
		}
		out := append([]diag.Diagnostic(nil), ex.Diagnostics...)

		rawIdx, err := ctx.Get(incr.Key{Kind: kindIndex})
		if err != nil {
			return nil, err
		}
		for _, d := range rawIdx.(indexValue).Diags {
			if d.File == file {
				out = append(out, d)
			}
		}
		rawRes, err := ctx.Get(incr.Key{Kind: kindResolve})
		if err != nil {
			return nil, err
		}
		for _, d := range rawRes.(*resolve.Result).Diagnostics() {
			if d.File == file {
				out = append(out, d)
			}
		}
		rawEdges, err := ctx.Get(incr.Key{Kind: kindEdges, Arg: ctx.Key().Arg})
		if err != nil {
			return nil, err
		}
		out = append(out, rawEdges.(edgesValue).Diags...)
		diag.Sort(out)
		return out, nil
	})
}

func (w *Workspace) fileSet(ctx *incr.Ctx) ([]text.FileID, error) {
	raw, err := ctx.Get(incr.Key{Kind: kindFileSet})
	if err != nil {
		return nil, err
	}
	return raw.([]text.FileID), nil
}

func (w *Workspace) extraction(ctx *incr.Ctx, id text.FileID) (sym.Extraction, error) {
	raw, err := ctx.Get(incr.Key{Kind: kindExtract, Arg: strconv.FormatInt(int64(id), 10)})
	if err != nil {
		return sym.Extraction{}, err
	}
	return raw.(sym.Extraction), nil
}

func (w *Workspace) extractorFor(path string) Extractor {
	return w.extractors[strings.ToLower(filepath.Ext(path))]
}

// AddOrUpdateFile registers a file or replaces its content. Content identical
// to the current version (by hash) is a no-op: no invalidation fires, no
// in-flight snapshot is disturbed, and the existing FileID is returned. A real
// change arriving while a snapshot computation is in flight cancels that
// computation.
func (w *Workspace) AddOrUpdateFile(path string, content []byte) (text.FileID, error) {
	if w.closed.Load() {
		return 0, ErrClosed
	}
	if w.extractorFor(path) == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	hash := sha256.Sum256(content)
	if id, ok := w.lookupUnchanged(path, hash); ok {
		return id, nil
	}
	w.interrupt()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.regMu.Lock()
	defer w.regMu.Unlock()

	if id, ok := w.byPath[path]; ok {
		st := w.files[id]
		if st.hash == hash {
			return id, nil // raced with an identical write
		}
		st.hash = hash
		w.engine.SetInput(fileKey(id), fileInput{Path: path, Content: string(content)})
		w.generation++
		return id, nil
	}

	w.nextID++
	id := w.nextID
	w.files[id] = &fileState{id: id, path: path, hash: hash}
	w.byPath[path] = id
	w.order = append(w.order, id)
	w.engine.SetInput(fileKey(id), fileInput{Path: path, Content: string(content)})
	w.engine.SetInput(incr.Key{Kind: kindFileSet}, append([]text.FileID(nil), w.order...))
	w.generation++
	return id, nil
}

// lookupUnchanged reports whether path is already tracked with exactly this
// content.
func (w *Workspace) lookupUnchanged(path string, hash [sha256.Size]byte) (text.FileID, bool) {
	w.regMu.Lock()
	defer w.regMu.Unlock()
	id, ok := w.byPath[path]
	if !ok {
		return 0, false
	}
	return id, w.files[id].hash == hash
}

// RemoveFile untracks a file, invalidating every query that consumed it.
func (w *Workspace) RemoveFile(id text.FileID) error {
	if w.closed.Load() {
		return ErrClosed
	}
	w.interrupt()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.regMu.Lock()
	defer w.regMu.Unlock()

	st, ok := w.files[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFile, id)
	}
	delete(w.files, id)
	delete(w.byPath, st.path)
	for i, fid := range w.order {
		if fid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.engine.RemoveInput(fileKey(id))
	w.engine.SetInput(incr.Key{Kind: kindFileSet}, append([]text.FileID(nil), w.order...))
	w.removed = append(w.removed, id)
	w.generation++
	return nil
}

// FileByPath returns the FileID tracking a path.
func (w *Workspace) FileByPath(path string) (text.FileID, bool) {
	w.regMu.Lock()
	defer w.regMu.Unlock()
	id, ok := w.byPath[path]
	return id, ok
}

// PathOf returns the path a FileID tracks.
func (w *Workspace) PathOf(id text.FileID) (string, bool) {
	w.regMu.Lock()
	defer w.regMu.Unlock()
	st, ok := w.files[id]
	if !ok {
		return "", false
	}
	return st.path, true
}

// Files returns the tracked FileIDs in registration order.
func (w *Workspace) Files() []text.FileID {
	w.regMu.Lock()
	defer w.regMu.Unlock()
	return append([]text.FileID(nil), w.order...)
}

// Generation returns the current mutation generation.
func (w *Workspace) Generation() uint64 {
	w.regMu.Lock()
	defer w.regMu.Unlock()
	return w.generation
}

// Close invalidates the workspace and every outstanding snapshot.
func (w *Workspace) Close() {
	w.closed.Store(true)
	w.interrupt()
}

// interrupt cancels the in-flight snapshot computation, if any.
func (w *Workspace) interrupt() {
	w.flightMu.Lock()
	if w.inflight != nil {
		w.inflight()
		w.inflight = nil
	}
	w.flightMu.Unlock()
}

func (w *Workspace) setInflight(cancel context.CancelFunc) {
	w.flightMu.Lock()
	w.inflight = cancel
	w.flightMu.Unlock()
}

func (w *Workspace) clearInflight() {
	w.flightMu.Lock()
	w.inflight = nil
	w.flightMu.Unlock()
}

// Snapshot recomputes whatever the last edits made stale and returns an
// immutable, independently readable view of the analysis at the current
// generation. Within one snapshot all derived state is mutually consistent.
// Taking further snapshots without intervening edits reuses every cached
// value. Returns ErrStale when a mutation lands mid-computation.
func (w *Workspace) Snapshot(ctx context.Context) (*Snapshot, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.setInflight(cancel)
	defer w.clearInflight()

	snap, err := w.compute(cctx)
	if err != nil {
		if cctx.Err() != nil && ctx.Err() == nil {
			return nil, ErrStale
		}
		return nil, err
	}
	return snap, nil
}

func (w *Workspace) compute(ctx context.Context) (*Snapshot, error) {
	w.engine.SetInputIfMissing(incr.Key{Kind: kindFileSet}, append([]text.FileID(nil), w.order...))

	rawIdx, err := w.engine.Get(ctx, incr.Key{Kind: kindIndex})
	if err != nil {
		return nil, err
	}
	rawRes, err := w.engine.Get(ctx, incr.Key{Kind: kindResolve})
	if err != nil {
		return nil, err
	}

	// Apply removed files and changed per-file edge sets to the carried
	// graph. Cloned once per generation so outstanding snapshots keep
	// reading the previous structure.
	g := w.graph
	cloned := false
	mutate := func() {
		if !cloned {
			g = g.Clone()
			cloned = true
		}
	}
	for _, id := range w.removed {
		mutate()
		g.RemoveFile(id)
	}
	w.removed = nil

	diags := make(map[text.FileID][]diag.Diagnostic, len(w.order))
	paths := make(map[text.FileID]string, len(w.order))
	for _, id := range w.order {
		arg := strconv.FormatInt(int64(id), 10)
		rawEdges, err := w.engine.Get(ctx, incr.Key{Kind: kindEdges, Arg: arg})
		if err != nil {
			return nil, err
		}
		if w.engine.LastChanged(incr.Key{Kind: kindEdges, Arg: arg}) > w.graphRev {
			mutate()
			g.ReplaceFile(id, rawEdges.(edgesValue).Edges)
		}
		rawDiags, err := w.engine.Get(ctx, incr.Key{Kind: kindFileDiag, Arg: arg})
		if err != nil {
			return nil, err
		}
		diags[id] = rawDiags.([]diag.Diagnostic)
		paths[id] = w.files[id].path
	}
	w.graph = g
	w.graphRev = w.engine.Revision()

	// Engine faults surface as InternalQueryFault diagnostics on the
	// originating file where one can be identified.
	for _, f := range w.engine.Faults() {
		d := diag.Errorf(diag.InternalQueryFault, 0, text.Span{},
			"internal fault in %s: %s (serving last known good result)", f.Key, f.Cause)
		if id, perr := strconv.ParseInt(f.Key.Arg, 10, 64); perr == nil {
			d.File = text.FileID(id)
		}
		diags[d.File] = append(diags[d.File], d)
	}

	return &Snapshot{
		ws:         w,
		generation: w.generation,
		index:      rawIdx.(indexValue).Index,
		res:        rawRes.(*resolve.Result),
		graph:      g,
		diags:      diags,
		paths:      paths,
		order:      append([]text.FileID(nil), w.order...),
	}, nil
}
