package syntax

import (
	"fmt"

	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/text"
)

// Parse scans and parses one source file. Parse errors are reported as
// diagnostics and never abort the rest of the file: the parser recovers at
// the next ';' or '}' and keeps going.
func Parse(file text.FileID, src string) (*File, []diag.Diagnostic) {
	p := &parser{lex: newLexer(src), file: file}
	p.tok = p.lex.next()
	items := p.parseItems(false)
	return &File{Items: items}, p.diags
}

type parser struct {
	lex   *lexer
	file  text.FileID
	tok   token
	last  token
	diags []diag.Diagnostic
}

func (p *parser) next() {
	p.last = p.tok
	p.tok = p.lex.next()
}

func (p *parser) errorf(span text.Span, format string, args ...any) {
	p.diags = append(p.diags, diag.Errorf(diag.SyntaxError, p.file, span, format, args...))
}

// expect consumes a token of the given kind or reports an error in place.
func (p *parser) expect(kind tokenKind) (token, bool) {
	if p.tok.kind != kind {
		p.errorf(p.tok.span, "expected %s, found %s", kind, p.describe(p.tok))
		return p.tok, false
	}
	t := p.tok
	p.next()
	return t, true
}

func (p *parser) describe(t token) string {
	if t.kind == tokIdent || t.kind == tokError {
		return fmt.Sprintf("%q", t.text)
	}
	return t.kind.String()
}

// sync skips tokens until a statement boundary, consuming a terminating ';'.
func (p *parser) sync() {
	for p.tok.kind != tokEOF && p.tok.kind != tokSemi && p.tok.kind != tokRBrace {
		p.next()
	}
	if p.tok.kind == tokSemi {
		p.next()
	}
}

func (p *parser) parseItems(inBody bool) []Item {
	var items []Item
	for {
		switch p.tok.kind {
		case tokEOF:
			if inBody {
				p.errorf(p.tok.span, "unexpected end of file, expected '}'")
			}
			return items
		case tokRBrace:
			if inBody {
				return items
			}
			p.errorf(p.tok.span, "unexpected '}'")
			p.next()
			continue
		}
		if item := p.parseItem(); item != nil {
			items = append(items, item)
		}
	}
}

func (p *parser) parseItem() Item {
	start := p.tok.span.Start
	vis := p.parseVisibility()

	if p.tok.kind != tokIdent {
		p.errorf(p.tok.span, "expected declaration, found %s", p.describe(p.tok))
		p.sync()
		return nil
	}

	switch p.tok.text {
	case "package":
		return p.parsePackage(start, vis)
	case "import":
		return p.parseImport(start, vis)
	}

	role := p.tok
	p.next()
	if p.tok.kind == tokIdent && p.tok.text == "def" {
		p.next()
		return p.parseDefinition(start, vis, role.text)
	}
	if p.tok.kind == tokIdent {
		name := p.tok
		p.next()
		return p.parseUsage(start, vis, role.text, name)
	}
	// Bare usage without a role keyword: "x : T;".
	return p.parseUsage(start, vis, "", role)
}

func (p *parser) parseVisibility() Visibility {
	if p.tok.kind != tokIdent {
		return VisPublic
	}
	switch p.tok.text {
	case "public":
		p.next()
		return VisPublic
	case "private":
		p.next()
		return VisPrivate
	case "protected":
		p.next()
		return VisProtected
	}
	return VisPublic
}

func (p *parser) parsePackage(start text.Pos, vis Visibility) Item {
	p.next() // "package"
	name, ok := p.expect(tokIdent)
	if !ok {
		p.sync()
		return nil
	}
	pkg := &Package{
		Visibility: vis,
		Name:       Ident{Text: name.text, At: name.span},
	}
	switch p.tok.kind {
	case tokLBrace:
		p.next()
		pkg.Items = p.parseItems(true)
		p.expect(tokRBrace)
	case tokSemi:
		p.next()
	default:
		p.errorf(p.tok.span, "expected '{' or ';' after package name, found %s", p.describe(p.tok))
		p.sync()
	}
	pkg.At = text.Span{Start: start, End: p.last.span.End}
	return pkg
}

func (p *parser) parseImport(start text.Pos, vis Visibility) Item {
	p.next() // "import"
	imp := &Import{Visibility: vis}

	first, ok := p.expect(tokIdent)
	if !ok {
		p.sync()
		return nil
	}
	imp.Path.Parts = append(imp.Path.Parts, Ident{Text: first.text, At: first.span})
	refStart := first.span.Start

	for p.tok.kind == tokColonColon {
		p.next()
		switch p.tok.kind {
		case tokIdent:
			imp.Path.Parts = append(imp.Path.Parts, Ident{Text: p.tok.text, At: p.tok.span})
			p.next()
		case tokStar:
			imp.Wildcard = WildcardNamespace
			p.next()
			// Pkg::*::** imports all transitive descendants.
			if p.tok.kind == tokColonColon {
				p.next()
				if _, ok := p.expect(tokStarStar); ok {
					imp.Wildcard = WildcardRecursive
				}
			}
		case tokStarStar:
			imp.Wildcard = WildcardRecursive
			p.next()
		default:
			p.errorf(p.tok.span, "expected name or wildcard after '::', found %s", p.describe(p.tok))
			p.sync()
			return nil
		}
		if imp.Wildcard != WildcardNone {
			break
		}
	}
	imp.Path.At = text.Span{Start: refStart, End: p.last.span.End}

	if p.tok.kind == tokIdent && p.tok.text == "as" {
		p.next()
		if alias, ok := p.expect(tokIdent); ok {
			imp.Alias = &Ident{Text: alias.text, At: alias.span}
		}
	}
	p.expect(tokSemi)
	imp.At = text.Span{Start: start, End: p.last.span.End}
	return imp
}

func (p *parser) parseDefinition(start text.Pos, vis Visibility, role string) Item {
	name, ok := p.expect(tokIdent)
	if !ok {
		p.sync()
		return nil
	}
	def := &Definition{
		Visibility: vis,
		Role:       role,
		Name:       Ident{Text: name.text, At: name.span},
	}
	if p.tok.kind == tokSpecial {
		p.next()
		def.Specializes = p.parseRefList()
	}
	def.Items = p.parseBodyOrSemi()
	def.At = text.Span{Start: start, End: p.last.span.End}
	return def
}

func (p *parser) parseUsage(start text.Pos, vis Visibility, role string, name token) Item {
	u := &UsageNode{
		Visibility: vis,
		Role:       role,
		Name:       Ident{Text: name.text, At: name.span},
	}
	for {
		switch p.tok.kind {
		case tokColon:
			p.next()
			if ref, ok := p.parseRef(); ok {
				u.Type = &ref
				continue
			}
			p.sync()
			return u
		case tokSpecial:
			p.next()
			u.Subsets = append(u.Subsets, p.parseRefList()...)
			continue
		case tokRedefines:
			p.next()
			u.Redefines = append(u.Redefines, p.parseRefList()...)
			continue
		}
		break
	}
	u.Items = p.parseBodyOrSemi()
	u.At = text.Span{Start: start, End: p.last.span.End}
	return u
}

func (p *parser) parseBodyOrSemi() []Item {
	switch p.tok.kind {
	case tokLBrace:
		p.next()
		items := p.parseItems(true)
		p.expect(tokRBrace)
		return items
	case tokSemi:
		p.next()
		return nil
	default:
		p.errorf(p.tok.span, "expected '{' or ';', found %s", p.describe(p.tok))
		p.sync()
		return nil
	}
}

func (p *parser) parseRefList() []Ref {
	var refs []Ref
	for {
		ref, ok := p.parseRef()
		if !ok {
			p.sync()
			return refs
		}
		refs = append(refs, ref)
		if p.tok.kind != tokComma {
			return refs
		}
		p.next()
	}
}

func (p *parser) parseRef() (Ref, bool) {
	first, ok := p.expect(tokIdent)
	if !ok {
		return Ref{}, false
	}
	ref := Ref{Parts: []Ident{{Text: first.text, At: first.span}}}
	for p.tok.kind == tokColonColon {
		p.next()
		part, ok := p.expect(tokIdent)
		if !ok {
			break
		}
		ref.Parts = append(ref.Parts, Ident{Text: part.text, At: part.span})
	}
	ref.At = text.Span{Start: first.span.Start, End: p.last.span.End}
	return ref, true
}
