package vdom

import (
	"encoding/json"
	"fmt"
)

// Wire encoding: every node and patch serializes as a tagged record
// with a "type" discriminator, matching what the presentation-side
// applier consumes. Attribute order survives the round trip because
// attrs encode as an array, not an object.

type nodeWire struct {
	Type         NodeKind          `json:"type"`
	Tag          string            `json:"tag,omitempty"`
	Attrs        []Attr            `json:"attrs,omitempty"`
	Children     []json.RawMessage `json:"children,omitempty"`
	Key          string            `json:"key,omitempty"`
	Content      *string           `json:"content,omitempty"`
	Name         string            `json:"name,omitempty"`
	Kind         string            `json:"kind,omitempty"`
	InitialState map[string]any    `json:"initialState,omitempty"`
}

// EncodeNode serializes a tree to its tagged JSON form.
func EncodeNode(n Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("vdom: cannot encode nil node")
	}
	w := nodeWire{Type: n.Kind()}
	switch t := n.(type) {
	case *Element:
		w.Tag = t.Tag
		w.Attrs = t.Attrs
		w.Key = t.Key
		for _, c := range t.Children {
			raw, err := EncodeNode(c)
			if err != nil {
				return nil, err
			}
			w.Children = append(w.Children, raw)
		}
	case *Text:
		w.Content = &t.Content
	case *Null:
	case *Component:
		w.Name = t.Name
		w.Kind = t.CompKind
		w.InitialState = t.InitialState
	}
	return json.Marshal(w)
}

// DecodeNode parses the tagged JSON form back into a tree.
func DecodeNode(data []byte) (Node, error) {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("vdom: decode node: %w", err)
	}
	switch w.Type {
	case KindElement:
		if w.Tag == "" {
			return nil, fmt.Errorf("vdom: element node missing tag")
		}
		el := &Element{Tag: w.Tag, Attrs: w.Attrs, Key: w.Key}
		for _, raw := range w.Children {
			child, err := DecodeNode(raw)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		}
		return el, nil
	case KindText:
		if w.Content == nil {
			return nil, fmt.Errorf("vdom: text node missing content")
		}
		return &Text{Content: *w.Content}, nil
	case KindNull:
		return &Null{}, nil
	case KindComponent:
		return &Component{Name: w.Name, CompKind: w.Kind, InitialState: w.InitialState}, nil
	default:
		return nil, fmt.Errorf("vdom: unknown node type %q", w.Type)
	}
}

type patchWire struct {
	Type      PatchOp         `json:"type"`
	Path      Path            `json:"path"`
	Node      json.RawMessage `json:"node,omitempty"`
	Content   *string         `json:"content,omitempty"`
	Name      string          `json:"name,omitempty"`
	Value     *string         `json:"value,omitempty"`
	FromIndex *int            `json:"fromIndex,omitempty"`
	ToIndex   *int            `json:"toIndex,omitempty"`
	AtIndex   *int            `json:"atIndex,omitempty"`
}

func encodePatch(p Patch) (patchWire, error) {
	w := patchWire{Type: p.Op(), Path: p.PatchPath()}
	if w.Path == nil {
		w.Path = Path{}
	}
	var err error
	switch t := p.(type) {
	case Create:
		w.Node, err = EncodeNode(t.Node)
	case Remove:
	case Replace:
		w.Node, err = EncodeNode(t.Node)
	case UpdateText:
		w.Content = &t.Content
	case UpdateAttr:
		w.Name = t.Name
		w.Value = &t.Value
	case RemoveAttr:
		w.Name = t.Name
	case Move:
		w.FromIndex = &t.FromIndex
		w.ToIndex = &t.ToIndex
	case Insert:
		w.Node, err = EncodeNode(t.Node)
		w.AtIndex = &t.AtIndex
	default:
		err = fmt.Errorf("vdom: unknown patch type %T", p)
	}
	return w, err
}

// EncodePatches serializes an ordered patch list for the transport
// boundary. The order of the array is the order of application.
func EncodePatches(patches []Patch) ([]byte, error) {
	wires := make([]patchWire, 0, len(patches))
	for _, p := range patches {
		w, err := encodePatch(p)
		if err != nil {
			return nil, err
		}
		wires = append(wires, w)
	}
	return json.Marshal(wires)
}

// DecodePatches parses a wire-encoded patch list, preserving order.
func DecodePatches(data []byte) ([]Patch, error) {
	var wires []patchWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("vdom: decode patches: %w", err)
	}
	patches := make([]Patch, 0, len(wires))
	for _, w := range wires {
		p, err := decodePatch(w)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func decodePatch(w patchWire) (Patch, error) {
	path := w.Path
	if path == nil {
		path = Path{}
	}
	switch w.Type {
	case OpCreate, OpReplace, OpInsert:
		if w.Node == nil {
			return nil, fmt.Errorf("vdom: %s patch missing node", w.Type)
		}
		node, err := DecodeNode(w.Node)
		if err != nil {
			return nil, err
		}
		switch w.Type {
		case OpCreate:
			return Create{Path: path, Node: node}, nil
		case OpReplace:
			return Replace{Path: path, Node: node}, nil
		default:
			if w.AtIndex == nil {
				return nil, fmt.Errorf("vdom: insert patch missing atIndex")
			}
			return Insert{Path: path, Node: node, AtIndex: *w.AtIndex}, nil
		}
	case OpRemove:
		return Remove{Path: path}, nil
	case OpUpdateText:
		if w.Content == nil {
			return nil, fmt.Errorf("vdom: updateText patch missing content")
		}
		return UpdateText{Path: path, Content: *w.Content}, nil
	case OpUpdateAttr:
		if w.Value == nil {
			return nil, fmt.Errorf("vdom: updateAttr patch missing value")
		}
		return UpdateAttr{Path: path, Name: w.Name, Value: *w.Value}, nil
	case OpRemoveAttr:
		return RemoveAttr{Path: path, Name: w.Name}, nil
	case OpMove:
		if w.FromIndex == nil || w.ToIndex == nil {
			return nil, fmt.Errorf("vdom: move patch missing indices")
		}
		return Move{Path: path, FromIndex: *w.FromIndex, ToIndex: *w.ToIndex}, nil
	default:
		return nil, fmt.Errorf("vdom: unknown patch type %q", w.Type)
	}
}

// EncodeTemplates serializes template patches in the cache wire format.
func EncodeTemplates(templates []TemplatePatch) ([]byte, error) {
	return json.Marshal(templates)
}

// DecodeTemplates parses the cache wire format for template patches.
func DecodeTemplates(data []byte) ([]TemplatePatch, error) {
	var templates []TemplatePatch
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("vdom: decode templates: %w", err)
	}
	return templates, nil
}
