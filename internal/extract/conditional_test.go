package extract

import (
	"testing"

	"github.com/livefir/livetree/internal/vdom"
)

func TestConditionalsFromBooleanFlip(t *testing.T) {
	oldTree := vdom.NewElement("div", nil,
		vdom.NewElement("p", nil, vdom.NewText("banner")),
	)
	newBranch := &vdom.Null{}
	patches := []vdom.Patch{
		vdom.Replace{Path: vdom.Path{0}, Node: newBranch},
	}
	changes := []vdom.StateChange{
		{ComponentID: "c", Key: "visible", OldValue: true, NewValue: false},
	}

	conditionals := Conditionals(oldTree, patches, changes)
	if len(conditionals) != 1 {
		t.Fatalf("expected 1 conditional, got %d", len(conditionals))
	}
	ct := conditionals[0]
	if ct.Binding != "visible" {
		t.Errorf("binding = %q", ct.Binding)
	}
	if len(ct.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(ct.Branches))
	}
	if ct.Branches["true"].Kind() != vdom.KindElement {
		t.Errorf("true branch = %s", ct.Branches["true"].Kind())
	}
	if ct.Branches["false"].Kind() != vdom.KindNull {
		t.Errorf("false branch = %s", ct.Branches["false"].Kind())
	}

	// Flipping back is served from the recorded branch.
	p, ok := ct.Render("true")
	if !ok {
		t.Fatal("expected true branch to render")
	}
	if p.(vdom.Replace).Node.Kind() != vdom.KindElement {
		t.Error("true branch renders wrong subtree")
	}
}

func TestConditionalsFromEnumString(t *testing.T) {
	oldTree := vdom.NewElement("div", nil,
		vdom.NewElement("span", nil, vdom.NewText("loading")),
	)
	patches := []vdom.Patch{
		vdom.Replace{Path: vdom.Path{0}, Node: vdom.NewElement("table", nil)},
	}
	changes := []vdom.StateChange{
		{ComponentID: "c", Key: "view", OldValue: "spinner", NewValue: "results"},
	}

	conditionals := Conditionals(oldTree, patches, changes)
	if len(conditionals) != 1 {
		t.Fatalf("expected 1 conditional, got %d", len(conditionals))
	}
	ct := conditionals[0]
	if ct.Branches["spinner"] == nil || ct.Branches["results"] == nil {
		t.Errorf("branches = %v", ct.Branches)
	}
}

func TestConditionalsRequireLoneDiscreteChange(t *testing.T) {
	oldTree := vdom.NewElement("div", nil, vdom.NewElement("p", nil))
	patches := []vdom.Patch{
		vdom.Replace{Path: vdom.Path{0}, Node: &vdom.Null{}},
	}

	cases := []struct {
		name    string
		changes []vdom.StateChange
	}{
		{
			"two changes",
			[]vdom.StateChange{
				{Key: "a", OldValue: true, NewValue: false},
				{Key: "b", OldValue: 1, NewValue: 2},
			},
		},
		{
			"numeric change",
			[]vdom.StateChange{{Key: "count", OldValue: 1, NewValue: 2}},
		},
		{
			"no value transition",
			[]vdom.StateChange{{Key: "a", OldValue: true, NewValue: true}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Conditionals(oldTree, patches, tc.changes); len(got) != 0 {
				t.Errorf("expected no conditionals, got %v", got)
			}
		})
	}
}

func TestConditionalsSkipContentLikeReplace(t *testing.T) {
	// Same tag on both sides is a content tweak, not a branch swap.
	oldTree := vdom.NewElement("div", nil, vdom.NewElement("p", nil, vdom.NewText("a")))
	patches := []vdom.Patch{
		vdom.Replace{Path: vdom.Path{0}, Node: vdom.NewElement("p", nil, vdom.NewText("b"))},
	}
	changes := []vdom.StateChange{
		{Key: "visible", OldValue: true, NewValue: false},
	}
	if got := Conditionals(oldTree, patches, changes); len(got) != 0 {
		t.Errorf("expected no conditionals for same-shape replace, got %v", got)
	}
}
