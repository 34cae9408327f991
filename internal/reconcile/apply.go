package reconcile

import (
	"fmt"

	"github.com/livefir/livetree/internal/vdom"
)

// Apply is the reference patch applier. It materializes the target
// tree, applies the patches strictly in order and returns the result.
// The production applier lives on the presentation side; this one
// backs round-trip verification and tests.
//
// Slot semantics mirror the reconciler's ordering contract: Remove
// leaves a Null placeholder so sibling indices stay stable, Insert
// fills a Null placeholder at its index when one is present, and Move
// evaluates ToIndex after the child has been detached.
func Apply(target vdom.Node, patches []vdom.Patch) (vdom.Node, error) {
	root := vdom.Clone(target)
	for i, p := range patches {
		var err error
		root, err = applyOne(root, p)
		if err != nil {
			return nil, fmt.Errorf("reconcile: apply patch %d (%s): %w", i, p.Op(), err)
		}
	}
	return root, nil
}

func applyOne(root vdom.Node, p vdom.Patch) (vdom.Node, error) {
	switch t := p.(type) {
	case vdom.Replace:
		if len(t.Path) == 0 {
			return vdom.Clone(t.Node), nil
		}
		return root, setChild(root, t.Path, vdom.Clone(t.Node))
	case vdom.Remove:
		if len(t.Path) == 0 {
			return &vdom.Null{}, nil
		}
		return root, setChild(root, t.Path, &vdom.Null{})
	case vdom.Create:
		if len(t.Path) == 0 {
			return vdom.Clone(t.Node), nil
		}
		parentPath, _ := t.Path.Parent()
		idx, _ := t.Path.Last()
		return root, insertChild(root, parentPath, vdom.Clone(t.Node), idx)
	case vdom.UpdateText:
		n, err := vdom.Lookup(root, t.Path)
		if err != nil {
			return nil, err
		}
		text, ok := n.(*vdom.Text)
		if !ok {
			return nil, fmt.Errorf("updateText targets %s node at %q", n.Kind(), t.Path)
		}
		text.Content = t.Content
		return root, nil
	case vdom.UpdateAttr:
		el, err := lookupElement(root, t.Path)
		if err != nil {
			return nil, err
		}
		for i := range el.Attrs {
			if el.Attrs[i].Name == t.Name {
				el.Attrs[i].Value = t.Value
				return root, nil
			}
		}
		el.Attrs = append(el.Attrs, vdom.Attr{Name: t.Name, Value: t.Value})
		return root, nil
	case vdom.RemoveAttr:
		el, err := lookupElement(root, t.Path)
		if err != nil {
			return nil, err
		}
		for i := range el.Attrs {
			if el.Attrs[i].Name == t.Name {
				el.Attrs = append(el.Attrs[:i], el.Attrs[i+1:]...)
				break
			}
		}
		return root, nil
	case vdom.Move:
		el, err := lookupElement(root, t.Path)
		if err != nil {
			return nil, err
		}
		if t.FromIndex < 0 || t.FromIndex >= len(el.Children) {
			return nil, fmt.Errorf("move fromIndex %d out of range (len %d)", t.FromIndex, len(el.Children))
		}
		child := el.Children[t.FromIndex]
		el.Children = append(el.Children[:t.FromIndex], el.Children[t.FromIndex+1:]...)
		if t.ToIndex < 0 || t.ToIndex > len(el.Children) {
			return nil, fmt.Errorf("move toIndex %d out of range (len %d)", t.ToIndex, len(el.Children))
		}
		el.Children = append(el.Children[:t.ToIndex], append([]vdom.Node{child}, el.Children[t.ToIndex:]...)...)
		return root, nil
	case vdom.Insert:
		return root, insertChild(root, t.Path, vdom.Clone(t.Node), t.AtIndex)
	default:
		return nil, fmt.Errorf("unknown patch type %T", p)
	}
}

// setChild replaces the node at a non-root path in place.
func setChild(root vdom.Node, path vdom.Path, replacement vdom.Node) error {
	parentPath, _ := path.Parent()
	idx, _ := path.Last()
	el, err := lookupElement(root, parentPath)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(el.Children) {
		return fmt.Errorf("index %d out of range at %q (len %d)", idx, parentPath, len(el.Children))
	}
	el.Children[idx] = replacement
	return nil
}

// insertChild places a node into the child list of the element at path.
// A Null placeholder at the index is filled in place; an index at or
// past the end appends (earlier reserved slots may not be
// materialized); anything else splices.
func insertChild(root vdom.Node, path vdom.Path, node vdom.Node, at int) error {
	el, err := lookupElement(root, path)
	if err != nil {
		return err
	}
	if at < 0 {
		return fmt.Errorf("insert index %d out of range at %q", at, path)
	}
	if at >= len(el.Children) {
		el.Children = append(el.Children, node)
		return nil
	}
	if _, isNull := el.Children[at].(*vdom.Null); isNull {
		el.Children[at] = node
		return nil
	}
	el.Children = append(el.Children[:at], append([]vdom.Node{node}, el.Children[at:]...)...)
	return nil
}

func lookupElement(root vdom.Node, path vdom.Path) (*vdom.Element, error) {
	n, err := vdom.Lookup(root, path)
	if err != nil {
		return nil, err
	}
	el, ok := n.(*vdom.Element)
	if !ok {
		return nil, fmt.Errorf("path %q addresses %s node, want element", path, n.Kind())
	}
	return el, nil
}
