// Package vdom defines the virtual node tree model shared by the
// reconciler, the template extractor and the prediction cache: a closed
// set of node kinds, position-based paths, patch operations and their
// JSON wire encoding.
package vdom

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NodeKind identifies the concrete type behind a Node value.
type NodeKind string

const (
	KindElement   NodeKind = "element"
	KindText      NodeKind = "text"
	KindNull      NodeKind = "null"
	KindComponent NodeKind = "component"
)

// Node is the closed union of tree node kinds. Only *Element, *Text,
// *Null and *Component implement it; consumers dispatch with exhaustive
// type switches. Trees are immutable once produced - nothing in this
// module mutates a Node after construction.
type Node interface {
	Kind() NodeKind
	node()
}

// Attr is a single element attribute. Attributes are kept as an ordered
// list rather than a map, the same way x/net/html models them, because
// attribute order is part of the wire format.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is a tagged tree node with ordered attributes and children.
// Key, when non-empty, gives the node a stable identity for keyed
// reconciliation among its siblings.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []Node
	Key      string
}

// Text is a leaf node carrying literal content.
type Text struct {
	Content string
}

// Null is a placeholder for absent conditional content. It renders to
// nothing but reserves its child-position slot.
type Null struct{}

// Component is an opaque placeholder for a child component instance.
// The reconciler compares components by configuration only and never
// descends into them.
type Component struct {
	Name         string
	CompKind     string
	InitialState map[string]any
}

func (*Element) Kind() NodeKind   { return KindElement }
func (*Text) Kind() NodeKind      { return KindText }
func (*Null) Kind() NodeKind      { return KindNull }
func (*Component) Kind() NodeKind { return KindComponent }

func (*Element) node()   {}
func (*Text) node()      {}
func (*Null) node()      {}
func (*Component) node() {}

// NewElement creates an element node.
func NewElement(tag string, attrs []Attr, children ...Node) *Element {
	return &Element{Tag: tag, Attrs: attrs, Children: children}
}

// NewKeyedElement creates an element node with a reconciliation key.
func NewKeyedElement(tag, key string, attrs []Attr, children ...Node) *Element {
	return &Element{Tag: tag, Attrs: attrs, Children: children, Key: key}
}

// NewText creates a text node.
func NewText(content string) *Text {
	return &Text{Content: content}
}

// Attr returns the value of the named attribute and whether it exists.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Key returns the reconciliation key of a node, or "" for unkeyed and
// non-element nodes.
func Key(n Node) string {
	if el, ok := n.(*Element); ok {
		return el.Key
	}
	return ""
}

// Clone returns a deep copy of the node.
func Clone(n Node) Node {
	switch t := n.(type) {
	case *Element:
		cp := &Element{Tag: t.Tag, Key: t.Key}
		if t.Attrs != nil {
			cp.Attrs = make([]Attr, len(t.Attrs))
			copy(cp.Attrs, t.Attrs)
		}
		if t.Children != nil {
			cp.Children = make([]Node, len(t.Children))
			for i, c := range t.Children {
				cp.Children[i] = Clone(c)
			}
		}
		return cp
	case *Text:
		return &Text{Content: t.Content}
	case *Null:
		return &Null{}
	case *Component:
		cp := &Component{Name: t.Name, CompKind: t.CompKind}
		if t.InitialState != nil {
			cp.InitialState = make(map[string]any, len(t.InitialState))
			for k, v := range t.InitialState {
				cp.InitialState[k] = v
			}
		}
		return cp
	default:
		panic(fmt.Sprintf("vdom: unknown node kind %T", n))
	}
}

// Equal reports deep equality of two trees, including Null placeholders
// and attribute order.
func Equal(a, b Node) bool {
	return equal(a, b, false)
}

// StructurallyEqual reports equality of the rendered structure of two
// trees. Null placeholders render to nothing, so child lists are
// compared with Null entries skipped.
func StructurallyEqual(a, b Node) bool {
	return equal(a, b, true)
}

func equal(a, b Node, skipNulls bool) bool {
	switch at := a.(type) {
	case *Text:
		bt, ok := b.(*Text)
		return ok && at.Content == bt.Content
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *Component:
		bc, ok := b.(*Component)
		if !ok || at.Name != bc.Name || at.CompKind != bc.CompKind {
			return false
		}
		return stateEqual(at.InitialState, bc.InitialState)
	case *Element:
		be, ok := b.(*Element)
		if !ok || at.Tag != be.Tag || at.Key != be.Key || len(at.Attrs) != len(be.Attrs) {
			return false
		}
		for i, attr := range at.Attrs {
			if be.Attrs[i] != attr {
				return false
			}
		}
		ac, bc := at.Children, be.Children
		if skipNulls {
			ac, bc = withoutNulls(ac), withoutNulls(bc)
		}
		if len(ac) != len(bc) {
			return false
		}
		for i := range ac {
			if !equal(ac[i], bc[i], skipNulls) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func withoutNulls(children []Node) []Node {
	out := make([]Node, 0, len(children))
	for _, c := range children {
		if _, isNull := c.(*Null); !isNull {
			out = append(out, c)
		}
	}
	return out
}

// stateEqual compares component initial state by canonical JSON; the
// values are opaque configuration, not live state.
func stateEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		aj, errA := json.Marshal(av)
		bj, errB := json.Marshal(bv)
		if errA != nil || errB != nil || string(aj) != string(bj) {
			return false
		}
	}
	return true
}

// Lookup walks a tree along a path and returns the node addressed by
// it. It fails when a segment is out of range or descends through a
// non-element node.
func Lookup(root Node, p Path) (Node, error) {
	n := root
	for depth, idx := range p {
		el, ok := n.(*Element)
		if !ok {
			return nil, fmt.Errorf("vdom: path %s descends through %s node at depth %d", p, n.Kind(), depth)
		}
		if idx < 0 || idx >= len(el.Children) {
			return nil, fmt.Errorf("vdom: path %s index %d out of range at depth %d (len %d)", p, idx, depth, len(el.Children))
		}
		n = el.Children[idx]
	}
	return n, nil
}

// EstimateSize approximates the in-memory footprint of a tree in bytes.
// The prediction cache uses it for budget accounting; it does not need
// to be exact.
func EstimateSize(n Node) int64 {
	const nodeOverhead = 48
	switch t := n.(type) {
	case *Text:
		return nodeOverhead + int64(len(t.Content))
	case *Null:
		return nodeOverhead
	case *Component:
		size := nodeOverhead + int64(len(t.Name)+len(t.CompKind))
		for k := range t.InitialState {
			size += int64(len(k)) + 16
		}
		return size
	case *Element:
		size := nodeOverhead + int64(len(t.Tag)+len(t.Key))
		for _, a := range t.Attrs {
			size += int64(len(a.Name) + len(a.Value))
		}
		for _, c := range t.Children {
			size += EstimateSize(c)
		}
		return size
	default:
		return nodeOverhead
	}
}

// StringifyValue renders a state value the way it appears inside text
// content: strings verbatim, numbers and bools in their canonical Go
// form, nil as "null", composites as compact JSON.
func StringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
