package lsp

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/text"
)

// LSP positions are 0-based; loom positions are 1-based.

func toDocumentURI(path string) protocol.DocumentURI {
	return uri.File(path)
}

func toPosition(p text.Pos) protocol.Position {
	line, col := p.Line-1, p.Col-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: uint32(line), Character: uint32(col)}
}

func toRange(s text.Span) protocol.Range {
	return protocol.Range{Start: toPosition(s.Start), End: toPosition(s.End)}
}

func fromPosition(p protocol.Position) (line, col int) {
	return int(p.Line) + 1, int(p.Character) + 1
}

func toProtocolDiagnostics(diags []diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Range:    toRange(d.Span),
			Severity: toSeverity(d.Severity),
			Code:     string(d.Kind),
			Source:   "loom",
			Message:  d.Message,
		})
	}
	return out
}

func toSeverity(s diag.Severity) protocol.DiagnosticSeverity {
	switch s {
	case diag.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case diag.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}
