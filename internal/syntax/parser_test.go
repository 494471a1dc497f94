package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/loom/internal/diag"
)

func parseOK(t *testing.T, src string) *File {
	t.Helper()
	tree, diags := Parse(1, src)
	require.Empty(t, diags)
	return tree
}

func TestParse_Package(t *testing.T) {
	tree := parseOK(t, `package Vehicles {
		part def Engine;
	}`)

	require.Len(t, tree.Items, 1)
	pkg, ok := tree.Items[0].(*Package)
	require.True(t, ok)
	assert.Equal(t, "Vehicles", pkg.Name.Text)
	require.Len(t, pkg.Items, 1)

	def, ok := pkg.Items[0].(*Definition)
	require.True(t, ok)
	assert.Equal(t, "part", def.Role)
	assert.Equal(t, "Engine", def.Name.Text)
}

func TestParse_EmptyPackageSemi(t *testing.T) {
	tree := parseOK(t, `package P;`)
	require.Len(t, tree.Items, 1)
	pkg := tree.Items[0].(*Package)
	assert.Equal(t, "P", pkg.Name.Text)
	assert.Empty(t, pkg.Items)
}

func TestParse_DefinitionSpecializes(t *testing.T) {
	tree := parseOK(t, `part def Car :> Vehicle, Wheeled::Thing;`)
	def := tree.Items[0].(*Definition)
	require.Len(t, def.Specializes, 2)
	assert.Equal(t, "Vehicle", def.Specializes[0].Text())
	assert.Equal(t, "Wheeled::Thing", def.Specializes[1].Text())
}

func TestParse_UsageForms(t *testing.T) {
	tree := parseOK(t, `package P {
		part engine : Engine;
		part spare :> wheels;
		part front :>> bumper;
		axle : Axle;
	}`)
	pkg := tree.Items[0].(*Package)
	require.Len(t, pkg.Items, 4)

	typed := pkg.Items[0].(*UsageNode)
	assert.Equal(t, "part", typed.Role)
	assert.Equal(t, "engine", typed.Name.Text)
	require.NotNil(t, typed.Type)
	assert.Equal(t, "Engine", typed.Type.Text())

	subset := pkg.Items[1].(*UsageNode)
	require.Len(t, subset.Subsets, 1)
	assert.Equal(t, "wheels", subset.Subsets[0].Text())

	redef := pkg.Items[2].(*UsageNode)
	require.Len(t, redef.Redefines, 1)
	assert.Equal(t, "bumper", redef.Redefines[0].Text())

	bare := pkg.Items[3].(*UsageNode)
	assert.Equal(t, "", bare.Role)
	assert.Equal(t, "axle", bare.Name.Text)
	require.NotNil(t, bare.Type)
	assert.Equal(t, "Axle", bare.Type.Text())
}

func TestParse_Imports(t *testing.T) {
	tree := parseOK(t, `package P {
		import Lib::Component;
		import Lib::*;
		import Lib::**;
		import Lib::*::**;
		import Lib::Component as C;
	}`)
	pkg := tree.Items[0].(*Package)
	require.Len(t, pkg.Items, 5)

	member := pkg.Items[0].(*Import)
	assert.Equal(t, WildcardNone, member.Wildcard)
	assert.Equal(t, "Lib::Component", member.Path.Text())

	namespace := pkg.Items[1].(*Import)
	assert.Equal(t, WildcardNamespace, namespace.Wildcard)
	assert.Equal(t, "Lib", namespace.Path.Text())

	recursive := pkg.Items[2].(*Import)
	assert.Equal(t, WildcardRecursive, recursive.Wildcard)

	starRecursive := pkg.Items[3].(*Import)
	assert.Equal(t, WildcardRecursive, starRecursive.Wildcard)

	aliased := pkg.Items[4].(*Import)
	require.NotNil(t, aliased.Alias)
	assert.Equal(t, "C", aliased.Alias.Text)
}

func TestParse_Visibility(t *testing.T) {
	tree := parseOK(t, `package P {
		private part def Hidden;
		protected part def Guarded;
		public part def Open;
	}`)
	pkg := tree.Items[0].(*Package)
	assert.Equal(t, VisPrivate, pkg.Items[0].(*Definition).Visibility)
	assert.Equal(t, VisProtected, pkg.Items[1].(*Definition).Visibility)
	assert.Equal(t, VisPublic, pkg.Items[2].(*Definition).Visibility)
}

func TestParse_NestedBodies(t *testing.T) {
	tree := parseOK(t, `package Outer {
		package Inner {
			part def A {
				part a : A;
			}
		}
	}`)
	outer := tree.Items[0].(*Package)
	inner := outer.Items[0].(*Package)
	def := inner.Items[0].(*Definition)
	usage := def.Items[0].(*UsageNode)
	assert.Equal(t, "a", usage.Name.Text)
}

func TestParse_ErrorRecovery(t *testing.T) {
	// The bad statement is reported and skipped; the good one still parses.
	tree, diags := Parse(1, `package P {
		part def ;
		part def Good;
	}`)
	require.NotEmpty(t, diags)
	assert.Equal(t, diag.SyntaxError, diags[0].Kind)

	pkg := tree.Items[0].(*Package)
	require.Len(t, pkg.Items, 1)
	assert.Equal(t, "Good", pkg.Items[0].(*Definition).Name.Text)
}

func TestParse_ErrorMessageKeepsVerbatimSource(t *testing.T) {
	// Offending source text lands in the message unformatted, even when it
	// looks like a printf verb.
	_, diags := Parse(1, `package P { part def %d; }`)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, `"%"`)
	assert.NotContains(t, diags[0].Message, "%!")
}

func TestParse_UnterminatedBody(t *testing.T) {
	_, diags := Parse(1, `package P { part def A;`)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "end of file")
}

func TestParse_Comments(t *testing.T) {
	tree := parseOK(t, `// header
	package P {
		/* block
		   comment */
		part def A; // trailing
	}`)
	pkg := tree.Items[0].(*Package)
	require.Len(t, pkg.Items, 1)
}

func TestParse_Spans(t *testing.T) {
	tree := parseOK(t, "package P {\n\tpart def A;\n}")
	pkg := tree.Items[0].(*Package)
	assert.Equal(t, 1, pkg.At.Start.Line)
	def := pkg.Items[0].(*Definition)
	assert.Equal(t, 2, def.Name.At.Start.Line)
}
