package incr

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetInputAndGet(t *testing.T) {
	e := NewEngine()
	key := Key{Kind: "in", Arg: "a"}
	e.SetInput(key, "hello")

	v, err := e.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestGet_UnsetInput(t *testing.T) {
	e := NewEngine()
	_, err := e.Get(context.Background(), Key{Kind: "in", Arg: "missing"})
	require.ErrorIs(t, err, ErrNoInput)
}

func TestSetInput_EqualValueIsNoOp(t *testing.T) {
	e := NewEngine()
	key := Key{Kind: "in", Arg: "a"}
	e.SetInput(key, "same")
	rev := e.Revision()
	e.SetInput(key, "same")
	assert.Equal(t, rev, e.Revision())

	e.SetInput(key, "different")
	assert.Greater(t, e.Revision(), rev)
}

func TestSetInputIfMissing(t *testing.T) {
	e := NewEngine()
	key := Key{Kind: "in", Arg: "a"}
	e.SetInputIfMissing(key, "first")
	e.SetInputIfMissing(key, "second")

	v, err := e.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestDerivedQuery_MemoizesAndInvalidates(t *testing.T) {
	e := NewEngine()
	in := Key{Kind: "in", Arg: "a"}
	e.SetInput(in, "abc")

	runs := 0
	e.RegisterKind("upper", func(ctx *Ctx) (any, error) {
		runs++
		v, err := ctx.Get(in)
		if err != nil {
			return nil, err
		}
		return strings.ToUpper(v.(string)), nil
	})

	ctx := context.Background()
	key := Key{Kind: "upper"}

	v, err := e.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "ABC", v)
	assert.Equal(t, 1, runs)

	// Cached: no recomputation without input changes.
	_, err = e.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	// Input change invalidates.
	e.SetInput(in, "xyz")
	v, err = e.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "XYZ", v)
	assert.Equal(t, 2, runs)
}

func TestEarlyCutoff(t *testing.T) {
	e := NewEngine()
	in := Key{Kind: "in", Arg: "a"}
	e.SetInput(in, "abc")

	e.RegisterKind("len", func(ctx *Ctx) (any, error) {
		v, err := ctx.Get(in)
		if err != nil {
			return nil, err
		}
		return len(v.(string)), nil
	})

	downstream := 0
	e.RegisterKind("doubled", func(ctx *Ctx) (any, error) {
		downstream++
		v, err := ctx.Get(Key{Kind: "len"})
		if err != nil {
			return nil, err
		}
		return v.(int) * 2, nil
	})

	ctx := context.Background()
	v, err := e.Get(ctx, Key{Kind: "doubled"})
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, 1, downstream)

	// Same length, different content: len recomputes to an equal value, so
	// the downstream query must not rerun.
	e.SetInput(in, "xyz")
	v, err = e.Get(ctx, Key{Kind: "doubled"})
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, 1, downstream)

	// Different length propagates.
	e.SetInput(in, "wxyz")
	v, err = e.Get(ctx, Key{Kind: "doubled"})
	require.NoError(t, err)
	assert.Equal(t, 8, v)
	assert.Equal(t, 2, downstream)
}

func TestFaultContainment(t *testing.T) {
	e := NewEngine()
	in := Key{Kind: "in", Arg: "a"}
	e.SetInput(in, 1)

	e.RegisterKind("fragile", func(ctx *Ctx) (any, error) {
		v, err := ctx.Get(in)
		if err != nil {
			return nil, err
		}
		if v.(int) == 13 {
			panic("unlucky")
		}
		return v.(int) * 10, nil
	})

	ctx := context.Background()
	key := Key{Kind: "fragile"}

	v, err := e.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Empty(t, e.Faults())

	// Panic is contained: the last known good value keeps being served and a
	// fault is recorded.
	e.SetInput(in, 13)
	v, err = e.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	faults := e.Faults()
	require.Len(t, faults, 1)
	assert.Equal(t, key, faults[0].Key)
	assert.Contains(t, faults[0].Cause, "unlucky")

	// A fixing edit clears the fault.
	e.SetInput(in, 2)
	v, err = e.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Empty(t, e.Faults())
}

func TestFault_FirstComputationFails(t *testing.T) {
	e := NewEngine()
	e.RegisterKind("boom", func(ctx *Ctx) (any, error) {
		panic("no good value yet")
	})

	// No last known good value exists, so the error propagates.
	_, err := e.Get(context.Background(), Key{Kind: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRemoveInput(t *testing.T) {
	e := NewEngine()
	in := Key{Kind: "in", Arg: "a"}
	e.SetInput(in, "x")
	e.RemoveInput(in)

	_, err := e.Get(context.Background(), in)
	require.ErrorIs(t, err, ErrNoInput)
}

func TestCancellation(t *testing.T) {
	e := NewEngine()
	in := Key{Kind: "in", Arg: "a"}
	e.SetInput(in, "x")

	ctx, cancel := context.WithCancel(context.Background())
	e.RegisterKind("slow", func(qctx *Ctx) (any, error) {
		cancel()
		return qctx.Get(in)
	})

	_, err := e.Get(ctx, Key{Kind: "slow"})
	require.ErrorIs(t, err, context.Canceled)

	// The stale cell recomputes cleanly on the next read.
	v, err := e.Get(context.Background(), Key{Kind: "slow"})
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestLastChanged(t *testing.T) {
	e := NewEngine()
	in := Key{Kind: "in", Arg: "a"}
	assert.Zero(t, e.LastChanged(in))

	e.SetInput(in, "x")
	first := e.LastChanged(in)
	assert.Equal(t, e.Revision(), first)

	e.SetInput(in, "x")
	assert.Equal(t, first, e.LastChanged(in))

	e.SetInput(in, "y")
	assert.Greater(t, e.LastChanged(in), first)
}
