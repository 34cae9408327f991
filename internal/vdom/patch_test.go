package vdom

import (
	"testing"
)

func TestNewTemplatePatchSlotInvariant(t *testing.T) {
	cases := []struct {
		name     string
		template string
		bindings []string
		wantErr  bool
	}{
		{"single slot", "Count: {0}", []string{"count"}, false},
		{"two slots", "{0} of {1}", []string{"count", "total"}, false},
		{"repeated slot", "{0} and again {0}", []string{"count"}, false},
		{"missing slot", "Count: {1}", []string{"count"}, true},
		{"too many slots", "{0} {1}", []string{"count"}, true},
		{"no slots", "static", []string{"count"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTemplatePatch(Path{0}, TemplateText, "", tc.template, tc.bindings)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestTemplatePatchRender(t *testing.T) {
	tp, err := NewTemplatePatch(Path{0, 1}, TemplateText, "", "{0} items, {1} selected", []string{"total", "selected"})
	if err != nil {
		t.Fatalf("NewTemplatePatch failed: %v", err)
	}
	p, err := tp.Render(map[string]string{"total": "10", "selected": "3"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	ut, ok := p.(UpdateText)
	if !ok {
		t.Fatalf("expected UpdateText, got %T", p)
	}
	if ut.Content != "10 items, 3 selected" {
		t.Errorf("content = %q", ut.Content)
	}
	if !ut.Path.Equal(Path{0, 1}) {
		t.Errorf("path = %q", ut.Path)
	}

	if _, err := tp.Render(map[string]string{"total": "10"}); err == nil {
		t.Error("expected error for missing binding value")
	}
}

func TestTemplatePatchRenderValueLooksLikeSlot(t *testing.T) {
	tp, err := NewTemplatePatch(Path{0}, TemplateText, "", "{0} {1}", []string{"a", "b"})
	if err != nil {
		t.Fatalf("NewTemplatePatch failed: %v", err)
	}

	// A value that happens to contain slot syntax must land verbatim,
	// not get re-substituted by a later binding.
	p, err := tp.Render(map[string]string{"a": "{1}", "b": "literal"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if ut := p.(UpdateText); ut.Content != "{1} literal" {
		t.Errorf("content = %q, want %q", ut.Content, "{1} literal")
	}

	p, err = tp.Render(map[string]string{"a": "{0}", "b": "{99}"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if ut := p.(UpdateText); ut.Content != "{0} {99}" {
		t.Errorf("content = %q, want %q", ut.Content, "{0} {99}")
	}
}

func TestTemplatePatchRenderAttr(t *testing.T) {
	tp, err := NewTemplatePatch(Path{2}, TemplateAttr, "class", "counter {0}", []string{"status"})
	if err != nil {
		t.Fatalf("NewTemplatePatch failed: %v", err)
	}
	p, err := tp.Render(map[string]string{"status": "positive"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	ua, ok := p.(UpdateAttr)
	if !ok {
		t.Fatalf("expected UpdateAttr, got %T", p)
	}
	if ua.Name != "class" || ua.Value != "counter positive" {
		t.Errorf("got %s=%q", ua.Name, ua.Value)
	}
}

func TestConditionalTemplateRender(t *testing.T) {
	ct := ConditionalTemplate{
		Path:    Path{1},
		Binding: "visible",
		Branches: map[string]Node{
			"true":  NewElement("p", nil, NewText("shown")),
			"false": &Null{},
		},
	}
	p, ok := ct.Render("true")
	if !ok {
		t.Fatal("expected branch match")
	}
	rep := p.(Replace)
	if rep.Node.Kind() != KindElement {
		t.Errorf("true branch = %s", rep.Node.Kind())
	}
	if _, ok := ct.Render("maybe"); ok {
		t.Error("unobserved value should not match")
	}
	// Rendered branch must be a copy, not the cached subtree.
	rep.Node.(*Element).Children[0].(*Text).Content = "mutated"
	if ct.Branches["true"].(*Element).Children[0].(*Text).Content != "shown" {
		t.Error("Render leaked the cached branch")
	}
}

func TestExpandChanges(t *testing.T) {
	base := StateChange{
		ComponentID: "profile",
		Key:         "user",
		OldValue: map[string]any{
			"name": "John",
			"address": map[string]any{
				"city": "NYC",
				"zip":  "10001",
			},
			"tags": []any{"admin", "active"},
		},
		NewValue: map[string]any{
			"name": "John",
			"address": map[string]any{
				"city": "Boston",
				"zip":  "10001",
			},
			"tags": []any{"admin", "retired"},
		},
	}

	expanded := ExpandChanges([]StateChange{base})

	if len(expanded) != 3 {
		t.Fatalf("expected original + 2 leaf changes, got %d: %+v", len(expanded), expanded)
	}
	if expanded[0].Key != "user" {
		t.Errorf("original change not retained first: %+v", expanded[0])
	}

	leaves := make(map[string]StateChange)
	for _, c := range expanded[1:] {
		leaves[c.Key] = c
	}
	city, ok := leaves["user.address.city"]
	if !ok {
		t.Fatalf("missing nested leaf, got %v", leaves)
	}
	if city.OldValue != "NYC" || city.NewValue != "Boston" {
		t.Errorf("city leaf = %v -> %v", city.OldValue, city.NewValue)
	}
	if tag, ok := leaves["user.tags[1]"]; !ok || tag.NewValue != "retired" {
		t.Errorf("array leaf = %+v", leaves)
	}
	// Unchanged leaves (name, zip, tags[0]) are dropped.
	for _, key := range []string{"user.name", "user.address.zip", "user.tags[0]"} {
		if _, ok := leaves[key]; ok {
			t.Errorf("unchanged leaf %q should not expand", key)
		}
	}
}

func TestExpandChangesScalarsAndMismatchedShapes(t *testing.T) {
	scalar := StateChange{ComponentID: "c", Key: "count", OldValue: 5, NewValue: 6}
	if got := ExpandChanges([]StateChange{scalar}); len(got) != 1 {
		t.Errorf("scalar change expanded: %+v", got)
	}

	// A leaf that changed shape (object to string) cannot bind a slot.
	reshaped := StateChange{
		ComponentID: "c",
		Key:         "user",
		OldValue:    map[string]any{"address": map[string]any{"city": "NYC"}},
		NewValue:    map[string]any{"address": "NYC"},
	}
	got := ExpandChanges([]StateChange{reshaped})
	if len(got) != 1 {
		t.Errorf("mismatched shapes should not expand: %+v", got)
	}
}
