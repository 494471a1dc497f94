package syntax

import (
	"unicode"
	"unicode/utf8"

	"github.com/jward/loom/internal/text"
)

// tokenKind enumerates the lexical token classes of the modeling notation.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokLBrace     // {
	tokRBrace     // }
	tokSemi       // ;
	tokComma      // ,
	tokColon      // :
	tokColonColon // ::
	tokSpecial    // :>
	tokRedefines  // :>>
	tokStar       // *
	tokStarStar   // **
	tokError      // unrecognized input
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return "identifier"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokSemi:
		return "';'"
	case tokComma:
		return "','"
	case tokColon:
		return "':'"
	case tokColonColon:
		return "'::'"
	case tokSpecial:
		return "':>'"
	case tokRedefines:
		return "':>>'"
	case tokStar:
		return "'*'"
	case tokStarStar:
		return "'**'"
	}
	return "invalid token"
}

type token struct {
	kind tokenKind
	text string
	span text.Span
}

// lexer scans source bytes into tokens with byte and line/column spans.
// Line comments (//) and block comments (/* */) are skipped.
type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) pos() text.Pos {
	return text.Pos{Offset: l.off, Line: l.line, Col: l.col}
}

func (l *lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

func (l *lexer) skipTrivia() {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case c == '/' && l.off+1 < len(l.src) && l.src[l.off+1] == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.off+1 < len(l.src) && l.src[l.off+1] == '*':
			l.advance(2)
			for l.off+1 < len(l.src) && !(l.src[l.off] == '*' && l.src[l.off+1] == '/') {
				l.advance(1)
			}
			if l.off+1 < len(l.src) {
				l.advance(2)
			} else if l.off < len(l.src) {
				l.advance(1)
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *lexer) next() token {
	l.skipTrivia()
	start := l.pos()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, span: text.Span{Start: start, End: start}}
	}

	mk := func(kind tokenKind, n int) token {
		t := l.src[l.off : l.off+n]
		l.advance(n)
		return token{kind: kind, text: t, span: text.Span{Start: start, End: l.pos()}}
	}

	switch c := l.src[l.off]; c {
	case '{':
		return mk(tokLBrace, 1)
	case '}':
		return mk(tokRBrace, 1)
	case ';':
		return mk(tokSemi, 1)
	case ',':
		return mk(tokComma, 1)
	case '*':
		if l.off+1 < len(l.src) && l.src[l.off+1] == '*' {
			return mk(tokStarStar, 2)
		}
		return mk(tokStar, 1)
	case ':':
		if l.off+1 < len(l.src) {
			switch l.src[l.off+1] {
			case ':':
				return mk(tokColonColon, 2)
			case '>':
				if l.off+2 < len(l.src) && l.src[l.off+2] == '>' {
					return mk(tokRedefines, 3)
				}
				return mk(tokSpecial, 2)
			}
		}
		return mk(tokColon, 1)
	}

	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	if isIdentStart(r) {
		n := size
		for l.off+n < len(l.src) {
			r2, s2 := utf8.DecodeRuneInString(l.src[l.off+n:])
			if !isIdentPart(r2) {
				break
			}
			n += s2
		}
		return mk(tokIdent, n)
	}
	return mk(tokError, size)
}
