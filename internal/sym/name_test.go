package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, QualifiedName("A::B::C"), Join("A", "B", "C"))
	assert.Equal(t, QualifiedName("A"), Join("A"))
	assert.Equal(t, QualifiedName("A::B"), Join("", "A", "", "B"))
	assert.Equal(t, QualifiedName(""), Join())
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, QualifiedName("A::B::C").Segments())
	assert.Equal(t, []string{"A"}, QualifiedName("A").Segments())
	assert.Nil(t, QualifiedName("").Segments())
}

func TestSimpleAndParent(t *testing.T) {
	q := QualifiedName("Vehicles::Engine::cylinders")
	assert.Equal(t, "cylinders", q.Simple())
	assert.Equal(t, QualifiedName("Vehicles::Engine"), q.Parent())

	root := QualifiedName("Vehicles")
	assert.Equal(t, "Vehicles", root.Simple())
	assert.Equal(t, QualifiedName(""), root.Parent())
}

func TestChild(t *testing.T) {
	assert.Equal(t, QualifiedName("A::B"), QualifiedName("A").Child("B"))
	assert.Equal(t, QualifiedName("B"), QualifiedName("").Child("B"))
}

func TestIsQualified(t *testing.T) {
	assert.True(t, QualifiedName("A::B").IsQualified())
	assert.False(t, QualifiedName("A").IsQualified())
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, QualifiedName("A::B::C").HasPrefix("A"))
	assert.True(t, QualifiedName("A::B::C").HasPrefix("A::B"))
	assert.False(t, QualifiedName("A::B::C").HasPrefix("A::B::C"))
	assert.False(t, QualifiedName("AB::C").HasPrefix("A"))
	assert.True(t, QualifiedName("A").HasPrefix(""))
	assert.False(t, QualifiedName("").HasPrefix(""))
}
