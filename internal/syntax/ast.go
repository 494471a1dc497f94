// Package syntax parses the textual modeling notation into an immutable
// structural tree with stable spans. Nodes never store resolved identifiers;
// cross-references are plain name references resolved later against the
// global symbol index.
package syntax

import (
	"strings"

	"github.com/jward/loom/internal/text"
)

// File is the root of a parsed source file.
type File struct {
	Items []Item
}

// Item is any top-level or body-level declaration.
type Item interface {
	Span() text.Span
}

// Visibility keywords accepted before declarations.
type Visibility int

const (
	VisPublic Visibility = iota
	VisPrivate
	VisProtected
)

// Ident is a single name token.
type Ident struct {
	Text string
	At   text.Span
}

// Ref is a possibly-qualified name reference, as written in source.
type Ref struct {
	Parts []Ident
	At    text.Span
}

// Text joins the reference back into its source form.
func (r Ref) Text() string {
	parts := make([]string, len(r.Parts))
	for i, p := range r.Parts {
		parts[i] = p.Text
	}
	return strings.Join(parts, "::")
}

// Package declares a namespace; the same package may be contributed to by
// multiple files.
type Package struct {
	Visibility Visibility
	Name       Ident
	Items      []Item
	At         text.Span
}

func (p *Package) Span() text.Span { return p.At }

// WildcardKind marks the import form.
type WildcardKind int

const (
	WildcardNone      WildcardKind = iota // member import: Pkg::Member
	WildcardNamespace                     // namespace import: Pkg::*
	WildcardRecursive                     // recursive import: Pkg::** or Pkg::*::**
)

// Import is an import statement.
type Import struct {
	Visibility Visibility
	Path       Ref
	Wildcard   WildcardKind
	Alias      *Ident
	At         text.Span
}

func (i *Import) Span() text.Span { return i.At }

// Definition declares a new type-like name, e.g. "part def Wheel :> Component".
// Role is the kind keyword as written; the core treats it as an opaque tag.
type Definition struct {
	Visibility  Visibility
	Role        string
	Name        Ident
	Specializes []Ref
	Items       []Item
	At          text.Span
}

func (d *Definition) Span() text.Span { return d.At }

// UsageNode instantiates a definition, e.g. "part engine : Engine;".
// Typed by ":", subsets with ":>", redefines with ":>>".
type UsageNode struct {
	Visibility Visibility
	Role       string
	Name       Ident
	Type       *Ref
	Subsets    []Ref
	Redefines  []Ref
	Items      []Item
	At         text.Span
}

func (u *UsageNode) Span() text.Span { return u.At }
