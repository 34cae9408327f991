// Package extract generalizes concrete patches into state-parameterized
// templates. Extraction runs inline after a diff, is purely syntactic
// and errs on the side of not caching: a template is only ever emitted
// after substituting the triggering values reproduces the authoritative
// patch content exactly.
package extract

import (
	"sort"
	"strconv"
	"strings"

	"github.com/livefir/livetree/internal/vdom"
)

// binding is one candidate slot: a state key whose old value occurs at
// a unique position in the old literal content.
type binding struct {
	key    string
	pos    int
	length int
	newVal string
}

// Templates attempts to generalize every UpdateText and UpdateAttr
// patch in the list against the state changes that triggered the
// render. Composite change values are flattened first, so leaves of
// nested state ("user.address.city") bind slots like top-level keys.
// Structural patches are never templated. Patches that cannot be
// generalized unambiguously are skipped silently; prediction is
// optional, correctness is not.
func Templates(oldTree vdom.Node, patches []vdom.Patch, changes []vdom.StateChange) []vdom.TemplatePatch {
	if len(changes) == 0 {
		return nil
	}
	changes = vdom.ExpandChanges(changes)
	var templates []vdom.TemplatePatch
	for _, p := range patches {
		var tp vdom.TemplatePatch
		var ok bool
		switch t := p.(type) {
		case vdom.UpdateText:
			oldContent, found := oldTextContent(oldTree, t.Path)
			if !found {
				continue
			}
			tp, ok = generalize(t.Path, vdom.TemplateText, "", oldContent, t.Content, changes)
		case vdom.UpdateAttr:
			oldContent, found := oldAttrValue(oldTree, t.Path, t.Name)
			if !found {
				continue
			}
			tp, ok = generalize(t.Path, vdom.TemplateAttr, t.Name, oldContent, t.Value, changes)
		default:
			continue
		}
		if ok {
			templates = append(templates, tp)
		}
	}
	return templates
}

// generalize derives one template from old literal content. Every
// participating old value must occur exactly once, candidates must not
// overlap or collide, and the combined substitution of the new values
// must reproduce the new content byte for byte. Any violation discards
// the template.
func generalize(path vdom.Path, kind vdom.TemplateKind, attrName, oldContent, newContent string, changes []vdom.StateChange) (vdom.TemplatePatch, bool) {
	var bindings []binding
	seenValues := make(map[string]bool)
	for _, change := range changes {
		oldStr := vdom.StringifyValue(change.OldValue)
		if oldStr == "" {
			continue // matches everywhere, never unambiguous
		}
		count := strings.Count(oldContent, oldStr)
		if count == 0 {
			continue // this variable does not feed this patch
		}
		if count > 1 {
			// Ambiguous position for a participating variable: refuse
			// the whole patch rather than guess.
			return vdom.TemplatePatch{}, false
		}
		if seenValues[oldStr] {
			// Two state keys share the same literal old value; the
			// occurrence cannot be attributed to either.
			return vdom.TemplatePatch{}, false
		}
		seenValues[oldStr] = true
		bindings = append(bindings, binding{
			key:    change.Key,
			pos:    strings.Index(oldContent, oldStr),
			length: len(oldStr),
			newVal: vdom.StringifyValue(change.NewValue),
		})
	}
	if len(bindings) == 0 {
		return vdom.TemplatePatch{}, false
	}

	// Slots numbered left to right by first occurrence.
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].pos < bindings[j].pos })
	for i := 1; i < len(bindings); i++ {
		if bindings[i].pos < bindings[i-1].pos+bindings[i-1].length {
			return vdom.TemplatePatch{}, false // overlapping candidates
		}
	}

	template := oldContent
	keys := make([]string, len(bindings))
	values := make(map[string]string, len(bindings))
	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		template = template[:b.pos] + "{" + strconv.Itoa(i) + "}" + template[b.pos+b.length:]
		keys[i] = b.key
		values[b.key] = b.newVal
	}

	tp, err := vdom.NewTemplatePatch(path, kind, attrName, template, keys)
	if err != nil {
		return vdom.TemplatePatch{}, false
	}

	// Round-trip verification against the authoritative patch.
	rendered, err := tp.Render(values)
	if err != nil {
		return vdom.TemplatePatch{}, false
	}
	switch r := rendered.(type) {
	case vdom.UpdateText:
		if r.Content != newContent {
			return vdom.TemplatePatch{}, false
		}
	case vdom.UpdateAttr:
		if r.Value != newContent {
			return vdom.TemplatePatch{}, false
		}
	}
	return tp, true
}

func oldTextContent(oldTree vdom.Node, path vdom.Path) (string, bool) {
	n, err := vdom.Lookup(oldTree, path)
	if err != nil {
		return "", false
	}
	text, ok := n.(*vdom.Text)
	if !ok {
		return "", false
	}
	return text.Content, true
}

func oldAttrValue(oldTree vdom.Node, path vdom.Path, name string) (string, bool) {
	n, err := vdom.Lookup(oldTree, path)
	if err != nil {
		return "", false
	}
	el, ok := n.(*vdom.Element)
	if !ok {
		return "", false
	}
	return el.Attr(name)
}
