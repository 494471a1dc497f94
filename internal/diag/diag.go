// Package diag defines the diagnostic taxonomy produced by analysis and the
// collector that groups diagnostics by originating file.
package diag

import (
	"fmt"
	"sort"

	"github.com/jward/loom/internal/text"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// SyntaxError is produced by the parser for malformed input.
	SyntaxError Kind = "syntax-error"

	// DuplicateDefinition is produced by the symbol index when two
	// Definitions share a qualified name.
	DuplicateDefinition Kind = "duplicate-definition"

	// UnresolvedImport is produced by the import resolver when an import
	// target cannot be found after its pass completes.
	UnresolvedImport Kind = "unresolved-import"

	// CircularImport is produced by the recursive import pass when a
	// recursive import chain revisits a package.
	CircularImport Kind = "circular-import"

	// UnresolvedReference is produced when a relationship target does not
	// resolve to any known symbol.
	UnresolvedReference Kind = "unresolved-reference"

	// InvalidRelationship is produced when a relationship's endpoints
	// resolve but their roles are incompatible with the relationship kind.
	InvalidRelationship Kind = "invalid-relationship"

	// InternalQueryFault is an engine-level failure isolated to one query.
	// The query reports its last known good value until the fault clears.
	InternalQueryFault Kind = "internal-query-fault"

	// RuleViolation is reported by user-defined rule scripts.
	RuleViolation Kind = "rule-violation"
)

// Severity ranks diagnostics.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return "unknown"
}

// Diagnostic is a single finding attached to a file and span.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	File     text.FileID
	Span     text.Span
	Message  string
}

// Errorf builds an error-severity diagnostic.
func Errorf(kind Kind, file text.FileID, span text.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Severity: SeverityError, File: file, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Warningf builds a warning-severity diagnostic.
func Warningf(kind Kind, file text.FileID, span text.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Severity: SeverityWarning, File: file, Span: span, Message: fmt.Sprintf(format, args...)}
}

// GroupByFile buckets diagnostics by their originating file. Within each
// bucket, diagnostics are sorted by span start, then by message for stability.
func GroupByFile(diags []Diagnostic) map[text.FileID][]Diagnostic {
	grouped := make(map[text.FileID][]Diagnostic)
	for _, d := range diags {
		grouped[d.File] = append(grouped[d.File], d)
	}
	for _, bucket := range grouped {
		Sort(bucket)
	}
	return grouped
}

// Sort orders diagnostics by position, then kind, then message.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Span.Start.Offset != b.Span.Start.Offset {
			return a.Span.Start.Offset < b.Span.Start.Offset
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Message < b.Message
	})
}
