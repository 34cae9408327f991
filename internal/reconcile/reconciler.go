// Package reconcile computes the minimal ordered patch list between two
// virtual tree snapshots. Diffing is pure and synchronous: no I/O, no
// retained state, paths recomputed from scratch on every pass.
package reconcile

import (
	"fmt"
	"strconv"

	"github.com/livefir/livetree/internal/vdom"
)

// Diff compares two tree snapshots and returns the patches that
// transform a live materialization of old into new when applied in
// order. Diff(T, T) returns an empty list. Malformed input (duplicate
// sibling keys, untagged elements) fails with a *StructuralError; no
// partial patch list is returned.
func Diff(old, new vdom.Node) ([]vdom.Patch, error) {
	if old == nil || new == nil {
		return nil, fmt.Errorf("reconcile: diff requires both trees, got old=%v new=%v", old, new)
	}
	if err := Validate(old); err != nil {
		return nil, fmt.Errorf("reconcile: old tree: %w", err)
	}
	if err := Validate(new); err != nil {
		return nil, fmt.Errorf("reconcile: new tree: %w", err)
	}
	d := &differ{}
	d.node(old, new, vdom.RootPath())
	return d.patches, nil
}

type differ struct {
	patches []vdom.Patch
}

func (d *differ) emit(p vdom.Patch) {
	d.patches = append(d.patches, p)
}

// node diffs one matched pair. Null placeholders never reach here from
// child reconciliation (Null slots pair anonymously there); they only
// appear at the tree root, where the slot has no parent and the
// transition degrades to a Replace.
func (d *differ) node(old, new vdom.Node, path vdom.Path) {
	if vdom.Equal(old, new) {
		return
	}
	if old.Kind() != new.Kind() {
		d.emit(vdom.Replace{Path: path, Node: new})
		return
	}
	switch newT := new.(type) {
	case *vdom.Text:
		d.emit(vdom.UpdateText{Path: path, Content: newT.Content})
	case *vdom.Null:
		// Equal already covered Null/Null.
	case *vdom.Component:
		// Components are opaque: any configuration difference swaps the
		// whole placeholder.
		d.emit(vdom.Replace{Path: path, Node: new})
	case *vdom.Element:
		oldEl := old.(*vdom.Element)
		if oldEl.Tag != newT.Tag {
			d.emit(vdom.Replace{Path: path, Node: new})
			return
		}
		d.attrs(oldEl, newT, path)
		d.children(oldEl, newT, path)
	}
}

func (d *differ) attrs(old, new *vdom.Element, path vdom.Path) {
	for _, attr := range new.Attrs {
		if oldVal, ok := old.Attr(attr.Name); !ok || oldVal != attr.Value {
			d.emit(vdom.UpdateAttr{Path: path, Name: attr.Name, Value: attr.Value})
		}
	}
	for _, attr := range old.Attrs {
		if _, ok := new.Attr(attr.Name); !ok {
			d.emit(vdom.RemoveAttr{Path: path, Name: attr.Name})
		}
	}
}

// childID assigns reconciliation identity: the key when present, a
// position marker for unkeyed content, and "" for Null placeholders,
// which pair anonymously by slot.
func childID(n vdom.Node, index int) string {
	if _, isNull := n.(*vdom.Null); isNull {
		return ""
	}
	if key := vdom.Key(n); key != "" {
		return key
	}
	return "#" + strconv.Itoa(index)
}

// children reconciles one sibling list. Emission order per list keeps
// every later path valid under in-order application:
//
//  1. removals by descending index (a removed slot keeps a Null
//     placeholder, so sibling indices do not shift),
//  2. a single left-to-right pass emitting Move and Insert against a
//     simulated child list that mirrors the applier exactly,
//  3. recursive descents at final (new) positions.
func (d *differ) children(oldEl, newEl *vdom.Element, path vdom.Path) {
	oldC, newC := oldEl.Children, newEl.Children

	oldIndex := make(map[string]int)
	sim := make([]string, len(oldC))
	for i, c := range oldC {
		id := childID(c, i)
		sim[i] = id
		if id != "" {
			oldIndex[id] = i
		}
	}
	newIndex := make(map[string]int)
	for i, c := range newC {
		if id := childID(c, i); id != "" {
			newIndex[id] = i
		}
	}

	// Removals: old content with no counterpart in the new list.
	for i := len(oldC) - 1; i >= 0; i-- {
		id := sim[i]
		if id == "" {
			continue
		}
		if _, survives := newIndex[id]; !survives {
			d.emit(vdom.Remove{Path: path.Child(i)})
			sim[i] = ""
		}
	}

	// Moves and inserts, left to right. Positions below i are final once
	// i has been processed.
	for i, c := range newC {
		id := childID(c, i)
		if id == "" {
			// A reserved slot in the new layout must also occupy a slot in
			// the simulated list, or every later index would be off by one.
			if i < len(sim) && sim[i] == "" {
				continue // pairs with an existing reserved slot
			}
			d.emit(vdom.Insert{Path: path, Node: &vdom.Null{}, AtIndex: i})
			if i >= len(sim) {
				sim = append(sim, "")
			} else {
				sim = append(sim[:i], append([]string{""}, sim[i:]...)...)
			}
			continue
		}
		if _, ok := oldIndex[id]; ok {
			j := indexOf(sim, id)
			if j != i {
				d.emit(vdom.Move{Path: path, FromIndex: j, ToIndex: i})
				sim = append(sim[:j], sim[j+1:]...)
				sim = append(sim[:i], append([]string{id}, sim[i:]...)...)
			}
		} else {
			d.emit(vdom.Insert{Path: path, Node: c, AtIndex: i})
			switch {
			case i < len(sim) && sim[i] == "":
				sim[i] = id // fills the reserved slot
			case i >= len(sim):
				sim = append(sim, id)
			default:
				sim = append(sim[:i], append([]string{id}, sim[i:]...)...)
			}
		}
	}

	// Descents at final positions; the child list already matches the
	// new tree up to reserved slots, so new-tree paths are valid.
	for i, c := range newC {
		id := childID(c, i)
		if id == "" {
			continue
		}
		if j, ok := oldIndex[id]; ok {
			d.node(oldC[j], c, path.Child(i))
		}
	}
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
