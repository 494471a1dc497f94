package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/loom/internal/text"
)

func at(offset, line, col int) text.Span {
	return text.Span{Start: text.Pos{Offset: offset, Line: line, Col: col}}
}

func TestGroupByFile(t *testing.T) {
	diags := []Diagnostic{
		Errorf(SyntaxError, 2, at(10, 2, 1), "b"),
		Errorf(SyntaxError, 1, at(5, 1, 6), "a"),
		Warningf(UnresolvedImport, 2, at(3, 1, 4), "c"),
	}

	grouped := GroupByFile(diags)
	require.Len(t, grouped, 2)
	require.Len(t, grouped[1], 1)
	require.Len(t, grouped[2], 2)

	// Buckets are sorted by position.
	assert.Equal(t, "c", grouped[2][0].Message)
	assert.Equal(t, "b", grouped[2][1].Message)
}

func TestSort_Stable(t *testing.T) {
	diags := []Diagnostic{
		Errorf(UnresolvedReference, 1, at(7, 1, 8), "later"),
		Errorf(DuplicateDefinition, 1, at(7, 1, 8), "same offset, earlier kind"),
		Errorf(SyntaxError, 1, at(0, 1, 1), "first"),
	}
	Sort(diags)

	assert.Equal(t, "first", diags[0].Message)
	assert.Equal(t, DuplicateDefinition, diags[1].Kind)
	assert.Equal(t, UnresolvedReference, diags[2].Kind)
}

func TestConstructors(t *testing.T) {
	e := Errorf(SyntaxError, 1, at(0, 1, 1), "boom")
	assert.Equal(t, SeverityError, e.Severity)

	w := Warningf(RuleViolation, 1, at(0, 1, 1), "hmm")
	assert.Equal(t, SeverityWarning, w.Severity)
}
