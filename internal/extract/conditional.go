package extract

import (
	"strings"

	"github.com/livefir/livetree/internal/vdom"
)

// Conditionals derives subtree templates from structural Replace
// patches triggered by a lone boolean or enum-like string change: each
// observed value of the variable maps to the full subtree rendered for
// it. This is a best-effort extension of text templating; anything
// ambiguous falls back to the authoritative render.
func Conditionals(oldTree vdom.Node, patches []vdom.Patch, changes []vdom.StateChange) []vdom.ConditionalTemplate {
	// Attribution is only unambiguous when exactly one discrete
	// variable flipped.
	if len(changes) != 1 || !isDiscrete(changes[0]) {
		return nil
	}
	change := changes[0]
	oldVal := vdom.StringifyValue(change.OldValue)
	newVal := vdom.StringifyValue(change.NewValue)
	if oldVal == newVal {
		return nil
	}

	var templates []vdom.ConditionalTemplate
	for _, p := range patches {
		rep, ok := p.(vdom.Replace)
		if !ok {
			continue
		}
		oldNode, err := vdom.Lookup(oldTree, rep.Path)
		if err != nil {
			continue
		}
		if !isStructuralChange(oldNode, rep.Node) {
			continue
		}
		templates = append(templates, vdom.ConditionalTemplate{
			Path:    rep.Path.Clone(),
			Binding: change.Key,
			Branches: map[string]vdom.Node{
				oldVal: vdom.Clone(oldNode),
				newVal: vdom.Clone(rep.Node),
			},
		})
	}
	return templates
}

func isDiscrete(change vdom.StateChange) bool {
	switch change.OldValue.(type) {
	case bool:
		_, ok := change.NewValue.(bool)
		return ok
	case string:
		_, ok := change.NewValue.(string)
		return ok
	default:
		return false
	}
}

// isStructuralChange reports whether two nodes differ in shape rather
// than content: different kinds, different tags, or text with no
// substring overlap (conditional copy, not a value update).
func isStructuralChange(oldNode, newNode vdom.Node) bool {
	if oldNode.Kind() != newNode.Kind() {
		return true
	}
	switch o := oldNode.(type) {
	case *vdom.Text:
		n := newNode.(*vdom.Text)
		if o.Content == "" || n.Content == "" {
			return o.Content != n.Content
		}
		return !strings.Contains(o.Content, n.Content) && !strings.Contains(n.Content, o.Content)
	case *vdom.Element:
		n := newNode.(*vdom.Element)
		return o.Tag != n.Tag
	default:
		return false
	}
}
