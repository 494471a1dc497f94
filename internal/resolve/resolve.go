// Package resolve implements the three-pass import resolver. Passes are
// strictly ordered over the whole workspace: namespace imports first
// (Pkg::*), then member imports (Pkg::Member), then recursive imports
// (Pkg::**). A later pass may read but never mutates an earlier pass's
// bindings within the same resolution cycle.
package resolve

import (
	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/sym"
)

// Status is the per-import resolution state.
type Status int

const (
	StatusUnresolved Status = iota
	StatusResolved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusError:
		return "error"
	}
	return "unresolved"
}

// Binding maps a simple name visible in a scope to the symbol an import
// brought in. Pass records which pass produced it: an explicit member import
// always shadows a same-named namespace-imported binding in the same scope.
type Binding struct {
	Name   string
	Target *sym.Symbol
	Pass   sym.ImportKind
}

// ResolvedImport pairs an import record with its outcome.
type ResolvedImport struct {
	Record sym.ImportRecord
	Status Status
	Target *sym.Symbol // the imported package or member, when resolved
}

// Result holds the per-scope binding tables for one resolution cycle.
type Result struct {
	index   *sym.Index
	scopes  map[sym.QualifiedName]map[string]Binding
	imports []ResolvedImport
	diags   []diag.Diagnostic
}

// Resolve runs all three passes over the workspace's import records against
// the merged symbol index. Import records must be in stable workspace order.
func Resolve(index *sym.Index, imports []sym.ImportRecord) *Result {
	r := &Result{
		index:  index,
		scopes: make(map[sym.QualifiedName]map[string]Binding),
	}
	r.imports = make([]ResolvedImport, len(imports))
	for i, rec := range imports {
		r.imports[i] = ResolvedImport{Record: rec}
	}

	// Recursive imports grouped by owning scope, needed by pass 3 to follow
	// re-exported recursive imports through target packages.
	recursiveByOwner := make(map[sym.QualifiedName][]sym.ImportRecord)
	for _, rec := range imports {
		if rec.Kind == sym.ImportRecursive {
			recursiveByOwner[rec.Owner] = append(recursiveByOwner[rec.Owner], rec)
		}
	}

	r.runPass(sym.ImportNamespace, r.resolveNamespace)
	r.runPass(sym.ImportMember, r.resolveMember)
	r.runPass(sym.ImportRecursive, func(imp *ResolvedImport) {
		r.resolveRecursive(imp, recursiveByOwner)
	})
	return r
}

func (r *Result) runPass(kind sym.ImportKind, resolve func(*ResolvedImport)) {
	for i := range r.imports {
		if r.imports[i].Record.Kind != kind {
			continue
		}
		resolve(&r.imports[i])
		if r.imports[i].Status == StatusUnresolved {
			r.imports[i].Status = StatusError
		}
		if r.imports[i].Status == StatusError {
			rec := r.imports[i].Record
			r.diags = append(r.diags, diag.Errorf(diag.UnresolvedImport, rec.File, rec.Span,
				"unresolved import %q", rec.Target))
		}
	}
}

// resolveNamespace handles Pkg::*: resolve the target package and bind its
// direct, non-private children into the importing scope. No pass-1 import
// depends on another pass-1 result, so order across scopes is irrelevant.
func (r *Result) resolveNamespace(imp *ResolvedImport) {
	pkg, ok := r.resolveTarget(imp.Record.Owner, imp.Record.Target, false)
	if !ok {
		imp.Status = StatusError
		return
	}
	imp.Target = pkg
	imp.Status = StatusResolved

	for _, child := range r.index.ChildrenOf(pkg.Name) {
		if child.Visibility == sym.Private || child.Shadowed {
			continue
		}
		r.bind(imp.Record.Owner, Binding{Name: child.Simple, Target: child, Pass: sym.ImportNamespace})
	}
	if imp.Record.Alias != "" {
		r.bind(imp.Record.Owner, Binding{Name: imp.Record.Alias, Target: pkg, Pass: sym.ImportNamespace})
	}
}

// resolveMember handles Pkg::Member: resolve a single symbol, possibly
// through a binding pass 1 introduced (e.g. a namespace alias).
func (r *Result) resolveMember(imp *ResolvedImport) {
	target, ok := r.resolveTarget(imp.Record.Owner, imp.Record.Target, true)
	if !ok {
		imp.Status = StatusError
		return
	}
	imp.Target = target
	imp.Status = StatusResolved

	name := imp.Record.Alias
	if name == "" {
		name = target.Simple
	}
	// Member wins: overwrite a namespace-sourced binding of the same name.
	r.bindOver(imp.Record.Owner, Binding{Name: name, Target: target, Pass: sym.ImportMember})
}

// resolveRecursive handles Pkg::**: bind every transitive descendant of the
// target package. Requires the target's namespace to be fully populated,
// which is why this pass runs strictly after passes 1 and 2 workspace-wide.
// Recursive imports re-exported by target packages are followed; a visited
// set breaks cycles across packages.
func (r *Result) resolveRecursive(imp *ResolvedImport, recursiveByOwner map[sym.QualifiedName][]sym.ImportRecord) {
	pkg, ok := r.resolveTarget(imp.Record.Owner, imp.Record.Target, true)
	if !ok {
		imp.Status = StatusError
		return
	}
	imp.Target = pkg
	imp.Status = StatusResolved

	visited := make(map[sym.QualifiedName]bool)
	r.expandRecursive(imp.Record.Owner, pkg, imp.Record, recursiveByOwner, visited)
}

func (r *Result) expandRecursive(
	into sym.QualifiedName,
	pkg *sym.Symbol,
	origin sym.ImportRecord,
	recursiveByOwner map[sym.QualifiedName][]sym.ImportRecord,
	visited map[sym.QualifiedName]bool,
) {
	if visited[pkg.Name] {
		r.diags = append(r.diags, diag.Errorf(diag.CircularImport, origin.File, origin.Span,
			"recursive import cycle through %q", pkg.Name))
		return
	}
	visited[pkg.Name] = true

	for _, child := range r.index.ChildrenOf(pkg.Name) {
		if child.Visibility == sym.Private || child.Shadowed {
			continue
		}
		// Pass 3 never mutates earlier passes' bindings.
		r.bind(into, Binding{Name: child.Simple, Target: child, Pass: sym.ImportRecursive})
		if child.Kind == sym.Definition {
			r.expandRecursive(into, child, origin, recursiveByOwner, visited)
		}
	}
	for _, rec := range recursiveByOwner[pkg.Name] {
		if rec == origin {
			continue // self-import is permitted, not a cycle
		}
		if nested, ok := r.resolveTarget(rec.Owner, rec.Target, true); ok {
			r.expandRecursive(into, nested, origin, recursiveByOwner, visited)
		}
	}
}

// bind installs a binding unless the name is already bound in the scope.
func (r *Result) bind(scope sym.QualifiedName, b Binding) {
	table := r.scopes[scope]
	if table == nil {
		table = make(map[string]Binding)
		r.scopes[scope] = table
	}
	if _, exists := table[b.Name]; exists {
		return
	}
	table[b.Name] = b
}

// bindOver installs a binding, replacing any binding from an earlier pass.
func (r *Result) bindOver(scope sym.QualifiedName, b Binding) {
	table := r.scopes[scope]
	if table == nil {
		table = make(map[string]Binding)
		r.scopes[scope] = table
	}
	if prev, exists := table[b.Name]; exists && prev.Pass == sym.ImportMember {
		return // first member import wins over later ones
	}
	table[b.Name] = b
}

// resolveTarget resolves an import path from the importing scope: absolute
// against the index first, then relative through the enclosing scope chain.
// When viaBindings is set (passes 2 and 3), the first segment may also
// resolve through a binding an earlier pass introduced.
func (r *Result) resolveTarget(scope sym.QualifiedName, target sym.QualifiedName, viaBindings bool) (*sym.Symbol, bool) {
	if s, ok := r.index.LookupQualified(target); ok {
		return s, true
	}
	for sc := scope; ; sc = sc.Parent() {
		if s, ok := r.index.LookupQualified(sym.Join(append(sc.Segments(), target.Segments()...)...)); ok {
			return s, true
		}
		if sc == "" {
			break
		}
	}
	if viaBindings {
		segs := target.Segments()
		if len(segs) > 0 {
			if b, ok := r.lookupBinding(scope, segs[0]); ok {
				return r.descend(b.Target, segs[1:])
			}
		}
	}
	return nil, false
}

func (r *Result) descend(s *sym.Symbol, rest []string) (*sym.Symbol, bool) {
	cur := s
	for _, seg := range rest {
		next, ok := r.index.LookupQualified(cur.Name.Child(seg))
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// lookupBinding searches the scope chain's binding tables for a simple name.
func (r *Result) lookupBinding(scope sym.QualifiedName, name string) (Binding, bool) {
	for sc := scope; ; sc = sc.Parent() {
		if table := r.scopes[sc]; table != nil {
			if b, ok := table[name]; ok {
				return b, true
			}
		}
		if sc == "" {
			break
		}
	}
	return Binding{}, false
}

// Imports returns every import with its resolution outcome, in workspace order.
func (r *Result) Imports() []ResolvedImport {
	return r.imports
}

// Diagnostics returns the resolution diagnostics of this cycle.
func (r *Result) Diagnostics() []diag.Diagnostic {
	return r.diags
}

// BindingsIn returns the binding table of one scope (not its chain).
func (r *Result) BindingsIn(scope sym.QualifiedName) map[string]Binding {
	return r.scopes[scope]
}

// ResolveName resolves a name reference written inside `scope`: qualified
// lookup first, then the enclosing scope chain (local children before import
// bindings), then a global simple-name fallback that only applies when it is
// unambiguous.
func (r *Result) ResolveName(scope sym.QualifiedName, target string) (*sym.Symbol, bool) {
	q := sym.QualifiedName(target)
	if s, ok := r.index.LookupQualified(q); ok {
		return s, true
	}
	segs := q.Segments()
	if len(segs) == 0 {
		return nil, false
	}
	head, rest := segs[0], segs[1:]

	for sc := scope; ; sc = sc.Parent() {
		if s, ok := r.index.LookupQualified(sc.Child(head)); ok {
			return r.descend(s, rest)
		}
		if table := r.scopes[sc]; table != nil {
			if b, ok := table[head]; ok {
				return r.descend(b.Target, rest)
			}
		}
		if sc == "" {
			break
		}
	}

	matches := r.index.LookupSimpleInScope(scope, head)
	if len(matches) == 1 {
		return r.descend(matches[0], rest)
	}
	return nil, false
}

// Equal compares two results by bindings, import outcomes, and diagnostics,
// for early cutoff in the incremental layer.
func (r *Result) Equal(other any) bool {
	o, ok := other.(*Result)
	if !ok || o == nil {
		return false
	}
	if len(r.scopes) != len(o.scopes) || len(r.imports) != len(o.imports) || len(r.diags) != len(o.diags) {
		return false
	}
	for scope, table := range r.scopes {
		otable := o.scopes[scope]
		if len(table) != len(otable) {
			return false
		}
		for name, b := range table {
			ob, ok := otable[name]
			if !ok || b.Pass != ob.Pass || b.Target.Name != ob.Target.Name {
				return false
			}
		}
	}
	for i := range r.imports {
		a, b := r.imports[i], o.imports[i]
		if a.Record != b.Record || a.Status != b.Status {
			return false
		}
		if (a.Target == nil) != (b.Target == nil) {
			return false
		}
		if a.Target != nil && a.Target.Name != b.Target.Name {
			return false
		}
	}
	for i := range r.diags {
		if r.diags[i] != o.diags[i] {
			return false
		}
	}
	return true
}
