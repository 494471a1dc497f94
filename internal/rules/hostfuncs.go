package rules

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/sym"
	"github.com/jward/loom/internal/text"
)

// reporter accumulates findings across one script run.
type reporter struct {
	findings []diag.Diagnostic
}

// buildGlobals exposes the snapshot's query surface to rule scripts. Scripts
// cannot hold Go struct pointers, so symbols and edges cross the boundary as
// Risor maps with primitive values.
func buildGlobals(snap *loom.Snapshot, rep *reporter) map[string]any {
	return map[string]any{
		"symbols":         makeSymbolsFn(snap),
		"symbol":          makeSymbolFn(snap),
		"children":        makeChildrenFn(snap),
		"specializations": makeSpecializationsFn(snap),
		"specializes":     makeSpecializesFn(snap),
		"type_of":         makeTypeOfFn(snap),
		"typed_by":        makeTypedByFn(snap),
		"references_to":   makeReferencesToFn(snap),
		"files":           makeFilesFn(snap),
		"report":          makeReportFn(rep),
	}
}

func symbolMap(s *sym.Symbol) *object.Map {
	return object.NewMap(map[string]object.Object{
		"name":       object.NewString(string(s.Name)),
		"simple":     object.NewString(s.Simple),
		"owner":      object.NewString(string(s.Owner)),
		"kind":       object.NewString(s.Kind.String()),
		"role":       object.NewString(s.Role),
		"visibility": object.NewString(s.Visibility.String()),
		"file":       object.NewInt(int64(s.File)),
		"line":       object.NewInt(int64(s.NameSpan.Start.Line)),
		"col":        object.NewInt(int64(s.NameSpan.Start.Col)),
	})
}

func symbolList(syms []*sym.Symbol) *object.List {
	results := make([]object.Object, 0, len(syms))
	for _, s := range syms {
		results = append(results, symbolMap(s))
	}
	return object.NewList(results)
}

func nameList(names []sym.QualifiedName) *object.List {
	results := make([]object.Object, 0, len(names))
	for _, n := range names {
		results = append(results, object.NewString(string(n)))
	}
	return object.NewList(results)
}

func makeSymbolsFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("symbols", 0, len(args))
		}
		return symbolList(snap.Symbols())
	})
}

func makeSymbolFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("symbol", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := stringArg("symbol", args)
		if errObj != nil {
			return errObj
		}
		s, ok := snap.LookupQualified(sym.QualifiedName(name))
		if !ok {
			return object.Nil
		}
		return symbolMap(s)
	})
}

func makeChildrenFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("children", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := stringArg("children", args)
		if errObj != nil {
			return errObj
		}
		return symbolList(snap.ChildrenOf(sym.QualifiedName(name)))
	})
}

func makeSpecializationsFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("specializations", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := stringArg("specializations", args)
		if errObj != nil {
			return errObj
		}
		return nameList(snap.SpecializationsOf(sym.QualifiedName(name)))
	})
}

func makeSpecializesFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("specializes", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := stringArg("specializes", args)
		if errObj != nil {
			return errObj
		}
		return nameList(snap.Specializes(sym.QualifiedName(name)))
	})
}

func makeTypeOfFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("type_of", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := stringArg("type_of", args)
		if errObj != nil {
			return errObj
		}
		t, ok := snap.TypeOf(sym.QualifiedName(name))
		if !ok {
			return object.Nil
		}
		return object.NewString(string(t))
	})
}

func makeTypedByFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("typed_by", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := stringArg("typed_by", args)
		if errObj != nil {
			return errObj
		}
		return nameList(snap.TypedBy(sym.QualifiedName(name)))
	})
}

func makeReferencesToFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("references_to", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := stringArg("references_to", args)
		if errObj != nil {
			return errObj
		}
		edges := snap.ReferencesTo(sym.QualifiedName(name))
		results := make([]object.Object, 0, len(edges))
		for _, e := range edges {
			results = append(results, object.NewMap(map[string]object.Object{
				"kind":   object.NewString(string(e.Kind)),
				"source": object.NewString(string(e.Source)),
				"target": object.NewString(string(e.Target)),
				"file":   object.NewInt(int64(e.File)),
				"line":   object.NewInt(int64(e.Span.Start.Line)),
				"col":    object.NewInt(int64(e.Span.Start.Col)),
			}))
		}
		return object.NewList(results)
	})
}

func makeFilesFn(snap *loom.Snapshot) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		ids := snap.Files()
		results := make([]object.Object, 0, len(ids))
		for _, id := range ids {
			path, _ := snap.PathOf(id)
			results = append(results, object.NewMap(map[string]object.Object{
				"id":   object.NewInt(int64(id)),
				"path": object.NewString(path),
			}))
		}
		return object.NewList(results)
	})
}

// makeReportFn creates the "report" host function.
//
// report({"message": ..., "file": ..., "line": ..., "col": ..., "severity": ...})
func makeReportFn(rep *reporter) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		msg := getString(m, "message")
		if msg == "" {
			return object.Errorf("report: message is required")
		}
		severity := diag.SeverityWarning
		switch getString(m, "severity") {
		case "error":
			severity = diag.SeverityError
		case "info":
			severity = diag.SeverityInfo
		}
		pos := text.Pos{Line: getInt(m, "line"), Col: getInt(m, "col")}
		rep.findings = append(rep.findings, diag.Diagnostic{
			Kind:     diag.RuleViolation,
			Severity: severity,
			File:     text.FileID(getInt64(m, "file")),
			Span:     text.Span{Start: pos, End: pos},
			Message:  msg,
		})
		return object.Nil
	})
}

func stringArg(fn string, args []object.Object) (string, object.Object) {
	if len(args) != 1 {
		return "", object.NewArgsError(fn, 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return "", object.Errorf("%s: name must be a string, got %s", fn, args[0].Type())
	}
	return s.Value(), nil
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getInt(m map[string]object.Object, key string) int {
	return int(getInt64(m, key))
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return i.Value()
	}
	if f, ok := v.(*object.Float); ok {
		return int64(f.Value())
	}
	return 0
}
