package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/protocol"

	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/text"
)

func TestPositionConversion(t *testing.T) {
	p := toPosition(text.Pos{Line: 3, Col: 7})
	assert.Equal(t, protocol.Position{Line: 2, Character: 6}, p)

	line, col := fromPosition(p)
	assert.Equal(t, 3, line)
	assert.Equal(t, 7, col)

	// A zero-valued span never produces negative positions.
	assert.Equal(t, protocol.Position{}, toPosition(text.Pos{}))
}

func TestToProtocolDiagnostics(t *testing.T) {
	span := text.Span{
		Start: text.Pos{Line: 2, Col: 5},
		End:   text.Pos{Line: 2, Col: 10},
	}
	out := toProtocolDiagnostics([]diag.Diagnostic{
		diag.Errorf(diag.UnresolvedReference, 1, span, "unknown name %s", "Ghost"),
		diag.Warningf(diag.RuleViolation, 1, span, "style"),
	})

	assert.Len(t, out, 2)
	assert.Equal(t, protocol.DiagnosticSeverityError, out[0].Severity)
	assert.Equal(t, "unresolved-reference", out[0].Code)
	assert.Equal(t, "loom", out[0].Source)
	assert.Equal(t, "unknown name Ghost", out[0].Message)
	assert.Equal(t, uint32(1), out[0].Range.Start.Line)
	assert.Equal(t, uint32(4), out[0].Range.Start.Character)

	assert.Equal(t, protocol.DiagnosticSeverityWarning, out[1].Severity)
}
