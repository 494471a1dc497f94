// Package loom provides incremental semantic analysis for textual system
// models: packages, definitions, usages, imports, and typed relationships.
// It keeps a workspace of model files analyzed and queryable while files
// change many times per second, recomputing only what each edit invalidates.
//
// # Pipeline
//
// Analysis runs in per-file and workspace phases, all demand-driven:
//
//  1. Extract: parse one file and map its declarations to symbol, import,
//     and relationship records. Extraction is a pure function of the file's
//     content with no cross-file knowledge.
//
//  2. Index: merge all files' symbol records into a global index keyed by
//     qualified name, detecting duplicate definitions.
//
//  3. Resolve: run the three import passes (namespace, member, recursive)
//     workspace-wide and build per-scope binding tables.
//
//  4. Edges: resolve each file's relationship records against the index and
//     bindings into validated graph edges with reverse indices.
//
// # Usage
//
// Create a Workspace, feed it files, take a Snapshot, and query:
//
//	ws := loom.NewWorkspace()
//	defer ws.Close()
//
//	id, err := ws.AddOrUpdateFile("model/vehicle.sysml", content)
//	if err != nil { ... }
//
//	snap, err := ws.Snapshot(ctx)
//	if err != nil { ... }
//
//	sym, ok := snap.LookupQualified("Vehicle::Engine")
//	diags := snap.DiagnosticsFor(id)
//	subs := snap.SpecializationsOf("Vehicle::Car")
//
// Snapshots are immutable and safe for concurrent use; the workspace keeps
// accepting edits while older snapshots are read. A Snapshot call raced by an
// edit returns [ErrStale]; retry to observe the new generation.
//
// # Incrementality
//
// Every derived value is a memoized query over the file inputs. Setting a
// file to byte-identical content is a no-op; setting changed content
// invalidates only the queries that transitively read it, and a recomputation
// that produces an equal value stops the invalidation from cascading further.
// A panic inside one query is contained: dependents keep the last good value
// and the fault surfaces as a diagnostic.
//
// # Languages
//
// The SysML-style notation adapter in language/sysml is registered by
// default for .sysml and .kerml files. Other notations plug in through the
// [Extractor] interface and [WithExtractor].
package loom
