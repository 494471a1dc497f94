package sym

import "strings"

// Separator is the scoping operator between qualified name segments.
const Separator = "::"

// QualifiedName is an ordered sequence of simple name segments joined by the
// scoping operator, e.g. "Vehicles::Engine::cylinders". The empty name denotes
// the root scope. Qualified names order lexicographically by segment sequence,
// which the string ordering of the separator preserves.
type QualifiedName string

// Join builds a qualified name from segments, skipping empty ones.
func Join(segments ...string) QualifiedName {
	parts := segments[:0:0]
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return QualifiedName(strings.Join(parts, Separator))
}

// Segments splits the name into its simple segments. The root name yields nil.
func (q QualifiedName) Segments() []string {
	if q == "" {
		return nil
	}
	return strings.Split(string(q), Separator)
}

// Simple returns the last segment of the name.
func (q QualifiedName) Simple() string {
	if i := strings.LastIndex(string(q), Separator); i >= 0 {
		return string(q[i+len(Separator):])
	}
	return string(q)
}

// Parent returns the name with its last segment removed; the parent of a
// single-segment name is the root.
func (q QualifiedName) Parent() QualifiedName {
	if i := strings.LastIndex(string(q), Separator); i >= 0 {
		return q[:i]
	}
	return ""
}

// Child appends a segment to the name.
func (q QualifiedName) Child(segment string) QualifiedName {
	if q == "" {
		return QualifiedName(segment)
	}
	return q + Separator + QualifiedName(segment)
}

// IsQualified reports whether the name has more than one segment.
func (q QualifiedName) IsQualified() bool {
	return strings.Contains(string(q), Separator)
}

// HasPrefix reports whether prefix is a proper ancestor scope of q.
func (q QualifiedName) HasPrefix(prefix QualifiedName) bool {
	if prefix == "" {
		return q != ""
	}
	return strings.HasPrefix(string(q), string(prefix)+Separator)
}
