package vdom

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// PatchOp identifies the concrete operation behind a Patch value.
type PatchOp string

const (
	OpCreate     PatchOp = "create"
	OpRemove     PatchOp = "remove"
	OpReplace    PatchOp = "replace"
	OpUpdateText PatchOp = "updateText"
	OpUpdateAttr PatchOp = "updateAttr"
	OpRemoveAttr PatchOp = "removeAttr"
	OpMove       PatchOp = "move"
	OpInsert     PatchOp = "insert"
)

// Patch is the closed union of mutation instructions emitted by the
// reconciler. Patches are applied strictly in emitted order; the
// reconciler guarantees path validity only under that order.
//
// Path semantics: Create/Remove/Replace/UpdateText/UpdateAttr/
// RemoveAttr address the affected node itself; Move and Insert address
// the parent element whose child list changes.
type Patch interface {
	Op() PatchOp
	PatchPath() Path
}

// Create places a node at a previously empty path.
type Create struct {
	Path Path
	Node Node
}

// Remove clears the node at a path. The child slot stays reserved: the
// applier leaves a Null placeholder so sibling positions are unchanged
// for the remainder of the patch list.
type Remove struct {
	Path Path
}

// Replace swaps the node at a path for a new subtree.
type Replace struct {
	Path Path
	Node Node
}

// UpdateText rewrites the content of a text node.
type UpdateText struct {
	Path    Path
	Content string
}

// UpdateAttr sets or overwrites one attribute of an element.
type UpdateAttr struct {
	Path  Path
	Name  string
	Value string
}

// RemoveAttr deletes one attribute of an element.
type RemoveAttr struct {
	Path Path
	Name string
}

// Move relocates a child of the element at Path from FromIndex to
// ToIndex, both evaluated at the moment the patch is applied.
type Move struct {
	Path      Path
	FromIndex int
	ToIndex   int
}

// Insert places a node into the child list of the element at Path. When
// the slot at AtIndex holds a Null placeholder the node fills that
// reserved slot; otherwise later siblings shift right.
type Insert struct {
	Path    Path
	Node    Node
	AtIndex int
}

func (Create) Op() PatchOp     { return OpCreate }
func (Remove) Op() PatchOp     { return OpRemove }
func (Replace) Op() PatchOp    { return OpReplace }
func (UpdateText) Op() PatchOp { return OpUpdateText }
func (UpdateAttr) Op() PatchOp { return OpUpdateAttr }
func (RemoveAttr) Op() PatchOp { return OpRemoveAttr }
func (Move) Op() PatchOp       { return OpMove }
func (Insert) Op() PatchOp     { return OpInsert }

func (p Create) PatchPath() Path     { return p.Path }
func (p Remove) PatchPath() Path     { return p.Path }
func (p Replace) PatchPath() Path    { return p.Path }
func (p UpdateText) PatchPath() Path { return p.Path }
func (p UpdateAttr) PatchPath() Path { return p.Path }
func (p RemoveAttr) PatchPath() Path { return p.Path }
func (p Move) PatchPath() Path       { return p.Path }
func (p Insert) PatchPath() Path     { return p.Path }

// TemplateKind distinguishes what a template patch rewrites.
type TemplateKind string

const (
	TemplateText TemplateKind = "text"
	TemplateAttr TemplateKind = "attr"
)

var slotPattern = regexp.MustCompile(`\{(\d+)\}`)

// TemplatePatch is an UpdateText or UpdateAttr patch generalized over
// one or more state variables. Template holds numbered slots "{0}",
// "{1}", ...; Bindings[i] names the state key whose stringified value
// fills slot i. Substituting the bindings' triggering values must
// reproduce exactly the literal content the template was derived from.
type TemplatePatch struct {
	Path     Path         `json:"path"`
	Kind     TemplateKind `json:"kind"`
	AttrName string       `json:"attrName,omitempty"`
	Template string       `json:"template"`
	Bindings []string     `json:"bindings"`
}

// NewTemplatePatch builds a template patch and enforces the slot
// invariant: the set of distinct "{n}" slots must be exactly
// {0 .. len(bindings)-1}.
func NewTemplatePatch(path Path, kind TemplateKind, attrName, template string, bindings []string) (TemplatePatch, error) {
	seen := make(map[int]bool)
	for _, m := range slotPattern.FindAllStringSubmatch(template, -1) {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		seen[n] = true
	}
	if len(seen) != len(bindings) {
		return TemplatePatch{}, fmt.Errorf("vdom: template %q has %d distinct slots for %d bindings", template, len(seen), len(bindings))
	}
	for i := range bindings {
		if !seen[i] {
			return TemplatePatch{}, fmt.Errorf("vdom: template %q missing slot {%d}", template, i)
		}
	}
	return TemplatePatch{Path: path.Clone(), Kind: kind, AttrName: attrName, Template: template, Bindings: bindings}, nil
}

// Render substitutes one stringified value per binding and returns the
// concrete patch. Every binding must be present in values. Substitution
// is a single pass over the template, so substituted values are never
// rescanned for slots.
func (tp TemplatePatch) Render(values map[string]string) (Patch, error) {
	subs := make([]string, len(tp.Bindings))
	for i, key := range tp.Bindings {
		v, ok := values[key]
		if !ok {
			return nil, fmt.Errorf("vdom: no value for binding %q", key)
		}
		subs[i] = v
	}
	content := slotPattern.ReplaceAllStringFunc(tp.Template, func(slot string) string {
		n, err := strconv.Atoi(slot[1 : len(slot)-1])
		if err != nil || n < 0 || n >= len(subs) {
			return slot // unbound slot in a wire-decoded template
		}
		return subs[n]
	})
	switch tp.Kind {
	case TemplateText:
		return UpdateText{Path: tp.Path.Clone(), Content: content}, nil
	case TemplateAttr:
		return UpdateAttr{Path: tp.Path.Clone(), Name: tp.AttrName, Value: content}, nil
	default:
		return nil, fmt.Errorf("vdom: unknown template kind %q", tp.Kind)
	}
}

// ConditionalTemplate generalizes a structural Replace over a boolean
// or enum state variable: each observed value maps to the full subtree
// rendered for it. Values without a branch fall back to the
// authoritative render.
type ConditionalTemplate struct {
	Path     Path
	Binding  string
	Branches map[string]Node
}

// Render returns the Replace patch for the branch matching the
// stringified value, or false when no branch has been observed for it.
func (ct ConditionalTemplate) Render(value string) (Patch, bool) {
	branch, ok := ct.Branches[value]
	if !ok {
		return nil, false
	}
	return Replace{Path: ct.Path.Clone(), Node: Clone(branch)}, true
}

// StateChange records one state-variable transition that triggered a
// render pass.
type StateChange struct {
	ComponentID string `json:"componentId"`
	Key         string `json:"key"`
	OldValue    any    `json:"oldValue"`
	NewValue    any    `json:"newValue"`
}

// ExpandChanges flattens composite change values into additional leaf
// changes addressed by dot paths ("user.address.city") and bracketed
// array indices ("items[0].name"), so nested state can bind template
// slots. The original changes are kept; leaves whose stringified value
// did not change, or that exist on only one side, are dropped.
func ExpandChanges(changes []StateChange) []StateChange {
	out := make([]StateChange, 0, len(changes))
	for _, c := range changes {
		out = append(out, c)
		if isComposite(c.OldValue) && isComposite(c.NewValue) {
			out = expandValue(out, c.ComponentID, c.Key, c.OldValue, c.NewValue)
		}
	}
	return out
}

func expandValue(out []StateChange, componentID, path string, oldV, newV any) []StateChange {
	if oldObj, ok := oldV.(map[string]any); ok {
		if newObj, ok := newV.(map[string]any); ok {
			keys := make([]string, 0, len(oldObj))
			for k := range oldObj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if nv, ok := newObj[k]; ok {
					out = expandValue(out, componentID, path+"."+k, oldObj[k], nv)
				}
			}
			return out
		}
	}
	if oldArr, ok := oldV.([]any); ok {
		if newArr, ok := newV.([]any); ok {
			n := len(oldArr)
			if len(newArr) < n {
				n = len(newArr)
			}
			for i := 0; i < n; i++ {
				out = expandValue(out, componentID, path+"["+strconv.Itoa(i)+"]", oldArr[i], newArr[i])
			}
			return out
		}
	}
	if isComposite(oldV) || isComposite(newV) {
		return out // mismatched shapes never bind a slot
	}
	if StringifyValue(oldV) == StringifyValue(newV) {
		return out
	}
	return append(out, StateChange{ComponentID: componentID, Key: path, OldValue: oldV, NewValue: newV})
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
