// Package predict holds the session-scoped template cache: generalized
// patches keyed by the state change that triggers them, so a future
// change to the same key renders concrete patches without waiting on
// the reconciler. Predictions are optimistic; the authoritative diff
// always follows and wins.
package predict

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/livefir/livetree/internal/vdom"
)

// Config bounds one cache. Entries expire TTL after their last install
// or match, and each component keeps at most MaxPerComponent trigger
// keys, evicting least-recently-matched first.
type Config struct {
	MaxPerComponent int
	TTL             time.Duration
}

// DefaultConfig returns the bounds used when the caller specifies none.
func DefaultConfig() Config {
	return Config{
		MaxPerComponent: 32,
		TTL:             30 * time.Second,
	}
}

// Entry is one installed prediction: the templates derived from a
// render that was triggered by TriggerKey changing.
type Entry struct {
	ComponentID  string
	TriggerKey   string
	Templates    []vdom.TemplatePatch
	Conditionals []vdom.ConditionalTemplate
	InstalledAt  time.Time
	LastMatched  time.Time
}

// EvictFunc observes entries dropped by TTL or capacity.
type EvictFunc func(componentID, triggerKey string)

// Cache is a prediction store owned by exactly one session. The inner
// LRUs synchronize themselves; the outer mutex only guards the
// component index, so match lookups on the interaction path stay cheap.
type Cache struct {
	mu         sync.RWMutex
	components map[string]*expirable.LRU[string, *Entry]
	cfg        Config
	onEvict    EvictFunc
}

// New creates an empty cache.
func New(cfg Config, onEvict EvictFunc) *Cache {
	if cfg.MaxPerComponent <= 0 {
		cfg.MaxPerComponent = DefaultConfig().MaxPerComponent
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Cache{
		components: make(map[string]*expirable.LRU[string, *Entry]),
		cfg:        cfg,
		onEvict:    onEvict,
	}
}

// Install stores templates under (componentID, triggerKey), overwriting
// any previous entry for that key. Conditional branches from the prior
// entry are carried over, so repeated flips of the same variable grow
// one branch map instead of flapping between two.
func (c *Cache) Install(componentID, triggerKey string, templates []vdom.TemplatePatch, conditionals []vdom.ConditionalTemplate) {
	if len(templates) == 0 && len(conditionals) == 0 {
		return
	}
	now := time.Now()
	entry := &Entry{
		ComponentID:  componentID,
		TriggerKey:   triggerKey,
		Templates:    templates,
		Conditionals: conditionals,
		InstalledAt:  now,
		LastMatched:  now,
	}

	c.mu.Lock()
	lru, ok := c.components[componentID]
	if !ok {
		lru = expirable.NewLRU[string, *Entry](c.cfg.MaxPerComponent, c.evicted, c.cfg.TTL)
		c.components[componentID] = lru
	}
	c.mu.Unlock()

	if prev, ok := lru.Get(triggerKey); ok {
		entry.Conditionals = mergeConditionals(prev.Conditionals, conditionals)
	}
	lru.Add(triggerKey, entry)
}

// Match renders predicted patches for a change set. Every changed key
// is looked up independently, with composite values flattened the same
// way the extractor flattens them; templates whose bindings are not all
// present in the change set are skipped (stale bindings age out via
// TTL). A hit refreshes the entry's TTL and recency.
func (c *Cache) Match(componentID string, changes []vdom.StateChange) ([]vdom.Patch, bool) {
	c.mu.RLock()
	lru, ok := c.components[componentID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	changes = vdom.ExpandChanges(changes)
	values := make(map[string]string, len(changes))
	for _, change := range changes {
		values[change.Key] = vdom.StringifyValue(change.NewValue)
	}

	var patches []vdom.Patch
	seen := make(map[string]bool)
	for _, change := range changes {
		entry, ok := lru.Get(change.Key)
		if !ok {
			continue
		}
		matched := false
		for _, tp := range entry.Templates {
			if !bindingsSatisfied(tp.Bindings, values) {
				continue
			}
			p, err := tp.Render(values)
			if err != nil {
				continue
			}
			if key := patchIdentity(p); !seen[key] {
				seen[key] = true
				patches = append(patches, p)
			}
			matched = true
		}
		for _, ct := range entry.Conditionals {
			p, ok := ct.Render(values[change.Key])
			if !ok {
				continue
			}
			if key := patchIdentity(p); !seen[key] {
				seen[key] = true
				patches = append(patches, p)
			}
			matched = true
		}
		if matched {
			// Replace rather than mutate: entries are shared with
			// concurrent matchers, so the installed value stays immutable.
			refreshed := *entry
			refreshed.LastMatched = time.Now()
			lru.Add(change.Key, &refreshed) // refresh TTL and recency
		}
	}
	return patches, len(patches) > 0
}

// Invalidate flushes every entry for one component, e.g. after a
// structural or hot-reload change.
func (c *Cache) Invalidate(componentID string) {
	c.mu.Lock()
	lru, ok := c.components[componentID]
	delete(c.components, componentID)
	c.mu.Unlock()
	if ok {
		lru.Purge()
	}
}

// Flush drops the entire cache.
func (c *Cache) Flush() {
	c.mu.Lock()
	components := c.components
	c.components = make(map[string]*expirable.LRU[string, *Entry])
	c.mu.Unlock()
	for _, lru := range components {
		lru.Purge()
	}
}

// Len returns the number of live entries across all components.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, lru := range c.components {
		total += lru.Len()
	}
	return total
}

// EstimateSize approximates the cache footprint in bytes for memory
// budgeting.
func (c *Cache) EstimateSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var size int64
	for _, lru := range c.components {
		for _, entry := range lru.Values() {
			for _, tp := range entry.Templates {
				size += int64(len(tp.Template) + len(tp.AttrName) + 8*len(tp.Path))
				for _, b := range tp.Bindings {
					size += int64(len(b))
				}
			}
			for _, ct := range entry.Conditionals {
				size += int64(len(ct.Binding) + 8*len(ct.Path))
				for _, branch := range ct.Branches {
					size += vdom.EstimateSize(branch)
				}
			}
		}
	}
	return size
}

func (c *Cache) evicted(triggerKey string, entry *Entry) {
	if c.onEvict != nil {
		c.onEvict(entry.ComponentID, triggerKey)
	}
}

func bindingsSatisfied(bindings []string, values map[string]string) bool {
	for _, b := range bindings {
		if _, ok := values[b]; !ok {
			return false
		}
	}
	return true
}

// patchIdentity keys a rendered patch for de-duplication: multi-binding
// templates are installed under each of their trigger keys and would
// otherwise render twice when several of those keys change together.
func patchIdentity(p vdom.Patch) string {
	switch t := p.(type) {
	case vdom.UpdateText:
		return "t|" + t.Path.String() + "|" + t.Content
	case vdom.UpdateAttr:
		return "a|" + t.Path.String() + "|" + t.Name + "|" + t.Value
	case vdom.Replace:
		return "r|" + t.Path.String()
	default:
		return string(t.Op()) + "|" + t.PatchPath().String()
	}
}

func mergeConditionals(prev, next []vdom.ConditionalTemplate) []vdom.ConditionalTemplate {
	if len(prev) == 0 {
		return next
	}
	merged := make([]vdom.ConditionalTemplate, len(next))
	copy(merged, next)
	for _, old := range prev {
		found := false
		for i := range merged {
			if merged[i].Binding == old.Binding && merged[i].Path.Equal(old.Path) {
				for value, branch := range old.Branches {
					if _, ok := merged[i].Branches[value]; !ok {
						merged[i].Branches[value] = branch
					}
				}
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, old)
		}
	}
	return merged
}
