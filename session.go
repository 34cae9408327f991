package livetree

import (
	"fmt"
	"sync"

	"github.com/livefir/livetree/internal/extract"
	"github.com/livefir/livetree/internal/metrics"
	"github.com/livefir/livetree/internal/predict"
	"github.com/livefir/livetree/internal/reconcile"
	"github.com/livefir/livetree/internal/vdom"
)

// Session is the unit of isolation: one per connected client. It owns
// the retained tree snapshot per component and the prediction cache
// built from that client's renders.
//
// Renders are serialized per session by an internal mutex; Predict
// only touches the cache and stays cheap. A session must not be used
// after Close.
type Session struct {
	ID     string
	engine *Engine
	cache  *predict.Cache

	mu     sync.Mutex
	trees  map[string]Node // componentID -> last reconciled tree
	closed bool
}

// ReconcileResult carries the outcome of one render reconciliation:
// the authoritative patches plus whatever the extractor managed to
// generalize and install for future prediction.
type ReconcileResult struct {
	Patches      []Patch
	Templates    []TemplatePatch
	Conditionals []ConditionalTemplate
}

// Diff computes the patches transforming old into new without touching
// session state. Most callers want Reconcile; Diff exists for hosts
// that manage their own snapshots.
func (s *Session) Diff(old, new Node) ([]Patch, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	patches, err := reconcile.Diff(old, new)
	if err != nil {
		s.engine.count(func(c *metrics.Collector) { c.IncrementDiffError() })
		return nil, err
	}
	s.engine.count(func(c *metrics.Collector) { c.IncrementDiffComputed(int64(len(patches))) })
	return patches, nil
}

// Reconcile diffs a component's previous tree against its new render,
// retains the new tree as the component's snapshot, and feeds the
// patches through the template extractor. Extracted templates are
// installed in the prediction cache under every state key that binds
// them, so any of those keys changing again can serve the prediction.
//
// A nil old falls back to the retained snapshot; a first render with
// neither diffs against a Null tree and yields a root Replace.
func (s *Session) Reconcile(componentID string, old, new Node, changes []StateChange) (*ReconcileResult, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if new == nil {
		return nil, fmt.Errorf("livetree: reconcile %q: nil new tree", componentID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old == nil {
		if snapshot, ok := s.trees[componentID]; ok {
			old = snapshot
		} else {
			old = &vdom.Null{}
		}
	}

	patches, err := reconcile.Diff(old, new)
	if err != nil {
		s.engine.count(func(c *metrics.Collector) { c.IncrementDiffError() })
		return nil, err
	}
	s.engine.count(func(c *metrics.Collector) { c.IncrementDiffComputed(int64(len(patches))) })

	result := &ReconcileResult{Patches: patches}

	// Prediction is optional: skip extraction entirely when the memory
	// budget is critical. The authoritative patches above are never
	// affected.
	if len(changes) > 0 && !s.engine.memory.IsAtCapacity() {
		result.Templates = extract.Templates(old, patches, changes)
		result.Conditionals = extract.Conditionals(old, patches, changes)
		s.countExtraction(patches, result)
		s.install(componentID, result, changes)
	}

	s.trees[componentID] = vdom.Clone(new)
	s.updateMemoryUsageLocked()
	return result, nil
}

// Predict renders cached patches for a change set before the
// authoritative render arrives. The second return is false when the
// cache has nothing usable.
func (s *Session) Predict(componentID string, changes []StateChange) ([]Patch, bool) {
	if s.check() != nil {
		return nil, false
	}
	patches, ok := s.cache.Match(componentID, changes)
	if ok {
		s.engine.count(func(c *metrics.Collector) { c.IncrementPredictionHit() })
	} else {
		s.engine.count(func(c *metrics.Collector) { c.IncrementPredictionMiss() })
	}
	return patches, ok
}

// Invalidate drops the component's predictions and retained snapshot,
// e.g. after a hot reload changed its render function.
func (s *Session) Invalidate(componentID string) {
	if s.check() != nil {
		return
	}
	s.cache.Invalidate(componentID)
	s.mu.Lock()
	delete(s.trees, componentID)
	s.updateMemoryUsageLocked()
	s.mu.Unlock()
}

// Tree returns the retained snapshot for a component, if any.
func (s *Session) Tree(componentID string) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[componentID]
	if !ok {
		return nil, false
	}
	return vdom.Clone(tree), true
}

// Close tears the session down and releases its memory budget.
func (s *Session) Close() {
	s.engine.CloseSession(s.ID)
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.trees = nil
	s.mu.Unlock()
	s.cache.Flush()
}

func (s *Session) check() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("livetree: session %s closed", s.ID)
	}
	return nil
}

// install stores templates under each of their binding keys and
// conditionals under their trigger key. A multi-variable template must
// be reachable from any of its variables changing; flattening the
// change set here keeps trigger keys aligned with the dot-path bindings
// the extractor produces for nested state.
func (s *Session) install(componentID string, result *ReconcileResult, changes []StateChange) {
	byKey := make(map[string][]vdom.TemplatePatch)
	for _, tp := range result.Templates {
		for _, key := range tp.Bindings {
			byKey[key] = append(byKey[key], tp)
		}
	}
	condByKey := make(map[string][]vdom.ConditionalTemplate)
	for _, ct := range result.Conditionals {
		condByKey[ct.Binding] = append(condByKey[ct.Binding], ct)
	}
	for _, change := range vdom.ExpandChanges(changes) {
		templates, conditionals := byKey[change.Key], condByKey[change.Key]
		if len(templates) == 0 && len(conditionals) == 0 {
			continue
		}
		s.cache.Install(componentID, change.Key, templates, conditionals)
		s.engine.count(func(c *metrics.Collector) { c.IncrementTemplateInstalled() })
	}
}

// countExtraction credits extracted templates and counts the content
// patches that resisted generalization as rejections.
func (s *Session) countExtraction(patches []Patch, result *ReconcileResult) {
	candidates := 0
	for _, p := range patches {
		switch p.(type) {
		case vdom.UpdateText, vdom.UpdateAttr:
			candidates++
		}
	}
	extracted := len(result.Templates)
	s.engine.count(func(c *metrics.Collector) {
		for i := 0; i < extracted; i++ {
			c.IncrementTemplateExtracted()
		}
		for i := 0; i < candidates-extracted; i++ {
			c.IncrementTemplateRejected()
		}
	})
}

// updateMemoryUsageLocked recomputes the session's footprint: retained
// snapshots plus the prediction cache. Caller holds s.mu.
func (s *Session) updateMemoryUsageLocked() {
	var size int64 = sessionBaselineBytes
	for _, tree := range s.trees {
		size += vdom.EstimateSize(tree)
	}
	cacheSize := s.cache.EstimateSize()

	// Over-budget growth flushes this session's predictions rather than
	// failing the render.
	if err := s.engine.memory.UpdateSessionUsage(s.ID, size+cacheSize); err != nil {
		s.cache.Flush()
		_ = s.engine.memory.UpdateSessionUsage(s.ID, size)
	}
}
