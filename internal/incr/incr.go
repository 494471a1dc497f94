// Package incr is a generic memoizing, invalidating query engine. Every
// derived value is a query keyed by (kind, argument); the engine records which
// queries each computation read and reruns only queries whose transitive
// inputs changed. A recomputation whose output is value-equal to the cached
// output does not invalidate dependents (early cutoff).
//
// The engine is not safe for concurrent use; the owning host serializes all
// access behind its mutation lock. Readers that need lock-free access take an
// immutable snapshot of the host's materialized outputs instead of touching
// the engine.
package incr

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrNoInput is returned when a query reads an input that was never set or
// has been removed.
var ErrNoInput = errors.New("incr: input not set")

// Key identifies a query instance: a registered kind plus an argument.
type Key struct {
	Kind string
	Arg  string
}

func (k Key) String() string {
	if k.Arg == "" {
		return k.Kind
	}
	return k.Kind + "(" + k.Arg + ")"
}

// Fn computes a query value. It must be pure and total over the inputs it
// reads through ctx; reads outside ctx are invisible to invalidation.
type Fn func(ctx *Ctx) (any, error)

// Fault records a contained panic during recomputation of one query.
type Fault struct {
	Key   Key
	Cause string
}

// Ctx is passed to query functions; reads through it are recorded as
// dependencies of the executing query.
type Ctx struct {
	engine *Engine
	ctx    context.Context
	key    Key
	deps   []Key
	seen   map[Key]bool
}

// Context returns the cancellation context of the current computation.
func (c *Ctx) Context() context.Context {
	return c.ctx
}

// Key identifies the query being computed.
func (c *Ctx) Key() Key {
	return c.key
}

// Get reads another query's value, recording the dependency.
func (c *Ctx) Get(key Key) (any, error) {
	if !c.seen[key] {
		c.seen[key] = true
		c.deps = append(c.deps, key)
	}
	cell, err := c.engine.ensure(c.ctx, key)
	if err != nil {
		return nil, err
	}
	return cell.value, nil
}

type cell struct {
	key        Key
	input      bool
	value      any
	computed   bool // value holds a real result (at least one successful run)
	changedAt  uint64
	verifiedAt uint64
	deps       []Key
	fault      *Fault
}

// Engine owns the query cells and the revision counter.
type Engine struct {
	rev   uint64
	kinds map[string]Fn
	cells map[Key]*cell
}

// NewEngine returns an empty engine with no registered kinds.
func NewEngine() *Engine {
	return &Engine{
		kinds: make(map[string]Fn),
		cells: make(map[Key]*cell),
	}
}

// RegisterKind binds a compute function to a query kind. Must be called
// before any query of that kind is read.
func (e *Engine) RegisterKind(kind string, fn Fn) {
	e.kinds[kind] = fn
}

// Revision returns the current revision, bumped on every effective input change.
func (e *Engine) Revision() uint64 {
	return e.rev
}

// SetInput stores an input value. Setting a value equal to the current one is
// a no-op and fires no invalidation.
func (e *Engine) SetInput(key Key, value any) {
	c, ok := e.cells[key]
	if ok && c.input && equal(c.value, value) {
		return
	}
	e.rev++
	if !ok {
		c = &cell{key: key, input: true}
		e.cells[key] = c
	}
	c.input = true
	c.value = value
	c.computed = true
	c.changedAt = e.rev
	c.verifiedAt = e.rev
}

// SetInputIfMissing sets an input only when it has never been set, leaving an
// existing value (and the revision) untouched.
func (e *Engine) SetInputIfMissing(key Key, value any) {
	if c, ok := e.cells[key]; ok && c.input {
		return
	}
	e.SetInput(key, value)
}

// LastChanged returns the revision at which the query's value last changed,
// or zero if it has never been computed. The query must have been read in
// the current revision for the answer to be meaningful.
func (e *Engine) LastChanged(key Key) uint64 {
	if c, ok := e.cells[key]; ok {
		return c.changedAt
	}
	return 0
}

// RemoveInput deletes an input. Dependent queries observe the missing input
// as a change and recompute on next read.
func (e *Engine) RemoveInput(key Key) {
	if _, ok := e.cells[key]; !ok {
		return
	}
	e.rev++
	delete(e.cells, key)
}

// Get reads a query value, recomputing it and any stale transitive
// dependencies first. Recomputation honors ctx cancellation.
func (e *Engine) Get(ctx context.Context, key Key) (any, error) {
	c, err := e.ensure(ctx, key)
	if err != nil {
		return nil, err
	}
	return c.value, nil
}

// Faults returns the faults currently attached to degraded queries.
func (e *Engine) Faults() []Fault {
	var out []Fault
	for _, c := range e.cells {
		if c.fault != nil {
			out = append(out, *c.fault)
		}
	}
	return out
}

func (e *Engine) ensure(ctx context.Context, key Key) (*cell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, ok := e.cells[key]
	if ok && c.input {
		return c, nil
	}
	if !ok {
		if _, registered := e.kinds[key.Kind]; !registered {
			return nil, fmt.Errorf("%w: %s", ErrNoInput, key)
		}
		c = &cell{key: key}
		e.cells[key] = c
	}
	if c.verifiedAt == e.rev && c.computed {
		return c, nil
	}

	// Shallow verification: if every recorded dependency is itself clean and
	// unchanged since this cell was last verified, the cached value stands.
	if c.computed && e.depsUnchanged(ctx, c) {
		c.verifiedAt = e.rev
		return c, nil
	}

	return e.recompute(ctx, c)
}

func (e *Engine) depsUnchanged(ctx context.Context, c *cell) bool {
	for _, dep := range c.deps {
		dc, err := e.ensure(ctx, dep)
		if err != nil {
			return false
		}
		if dc.changedAt > c.verifiedAt {
			return false
		}
	}
	return true
}

func (e *Engine) recompute(ctx context.Context, c *cell) (rc *cell, rerr error) {
	fn := e.kinds[c.key.Kind]
	qctx := &Ctx{
		engine: e,
		ctx:    ctx,
		key:    c.key,
		seen:   make(map[Key]bool),
	}

	value, err := runContained(fn, qctx, c)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-computation: leave the cell stale for retry.
			return nil, ctx.Err()
		}
		if c.fault != nil && c.computed {
			// Degraded: keep serving the last known good value.
			c.deps = qctx.deps
			c.verifiedAt = e.rev
			return c, nil
		}
		return nil, err
	}

	c.fault = nil
	c.deps = qctx.deps
	if !c.computed || !equal(c.value, value) {
		c.value = value
		c.changedAt = e.rev
	}
	c.computed = true
	c.verifiedAt = e.rev
	return c, nil
}

// runContained executes fn, converting a panic into an error and recording a
// Fault on the cell so the host can surface an InternalQueryFault diagnostic.
// A fault is isolated to the one query; dependents keep reading its last
// known good value.
func runContained(fn Fn, qctx *Ctx, c *cell) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.fault = &Fault{Key: c.key, Cause: fmt.Sprint(r)}
			err = fmt.Errorf("incr: query %s panicked: %v", c.key, r)
		}
	}()
	return fn(qctx)
}

// Equaler lets values define their own equality for early cutoff.
type Equaler interface {
	Equal(other any) bool
}

func equal(a, b any) bool {
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}
