package vdom

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a node within one tree snapshot as an ordered sequence
// of child positions. Paths are only valid for the diff pass that
// produced them; they are never retained across renders.
type Path []int

// RootPath addresses the tree root.
func RootPath() Path { return Path{} }

// Child returns the path extended by one child position.
func (p Path) Child(index int) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = index
	return child
}

// Parent returns the path with the last segment removed and whether a
// parent exists (false for the root).
func (p Path) Parent() (Path, bool) {
	if len(p) == 0 {
		return nil, false
	}
	parent := make(Path, len(p)-1)
	copy(parent, p[:len(p)-1])
	return parent, true
}

// Last returns the final segment of the path; the root has none.
func (p Path) Last() (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[len(p)-1], true
}

// Equal reports whether two paths address the same position.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	cp := make(Path, len(p))
	copy(cp, p)
	return cp
}

// String renders the path as dot-separated indices, "" for the root.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(seg))
	}
	return b.String()
}

// ParsePath parses the dot-separated form produced by String.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		seg, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("vdom: invalid path segment %q: %w", part, err)
		}
		if seg < 0 {
			return nil, fmt.Errorf("vdom: negative path segment %d", seg)
		}
		p[i] = seg
	}
	return p, nil
}
