// Package text holds source file identity and position types shared by the
// syntax, symbol, and diagnostic layers.
package text

import "fmt"

// FileID is an opaque handle for a tracked source file. It is stable across
// edits of the same file; the zero value is never a valid ID.
type FileID int64

// Pos is a position in a source file. Offset is a byte offset from the start
// of the file; Line and Col are 1-based.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

// Span is a half-open [Start, End) range in a source file.
type Span struct {
	Start Pos
	End   Pos
}

// Contains reports whether the 1-based (line, col) position falls inside the span.
func (s Span) Contains(line, col int) bool {
	if line < s.Start.Line || line > s.End.Line {
		return false
	}
	if line == s.Start.Line && col < s.Start.Col {
		return false
	}
	if line == s.End.Line && col > s.End.Col {
		return false
	}
	return true
}

// IsZero reports whether the span is unset.
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Col, s.End.Line, s.End.Col)
}
