package livetree

import (
	"fmt"
	"sync"
	"time"

	"github.com/livefir/livetree/internal/memory"
	"github.com/livefir/livetree/internal/metrics"
	"github.com/livefir/livetree/internal/predict"
	"github.com/livefir/livetree/internal/session"
)

// Engine owns the shared machinery behind all sessions: the session
// registry, the memory budget and the metrics collector. Sessions are
// created from an Engine and hold no global state; two engines in one
// process never share anything.
type Engine struct {
	config   *Config
	metrics  *metrics.Collector
	memory   *memory.Manager
	registry *session.Manager

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// Option configures an Engine instance
type Option func(*Engine) error

// NewEngine creates an engine with the given options and starts its
// cleanup janitor.
func NewEngine(options ...Option) (*Engine, error) {
	e := &Engine{
		config:      DefaultConfig(),
		sessions:    make(map[string]*Session),
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}
	e.config.fillDefaults()
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	e.metrics = metrics.NewCollector()
	e.memory = memory.NewManager(&memory.Config{
		MaxMemoryMB:          e.config.MaxMemoryMB,
		WarningThresholdPct:  75,
		CriticalThresholdPct: 90,
		CleanupInterval:      e.config.CleanupInterval,
	})
	e.registry = session.NewManager(e.config.SessionTTL)

	go e.janitor()
	return e, nil
}

// WithConfig replaces the whole configuration. Apply before individual
// field options.
func WithConfig(config *Config) Option {
	return func(e *Engine) error {
		if config == nil {
			return fmt.Errorf("livetree: nil config")
		}
		copied := *config
		e.config = &copied
		return nil
	}
}

// WithMaxTemplatesPerComponent caps each component's prediction cache
func WithMaxTemplatesPerComponent(max int) Option {
	return func(e *Engine) error {
		if max < 0 {
			return fmt.Errorf("livetree: negative template cap %d", max)
		}
		e.config.MaxTemplatesPerComponent = max
		return nil
	}
}

// WithTemplateTTL sets the prediction cache entry lifetime
func WithTemplateTTL(ttl time.Duration) Option {
	return func(e *Engine) error {
		e.config.TemplateTTL = ttl
		return nil
	}
}

// WithSessionTTL sets how long idle sessions survive
func WithSessionTTL(ttl time.Duration) Option {
	return func(e *Engine) error {
		e.config.SessionTTL = ttl
		return nil
	}
}

// WithMaxMemoryMB sets the maximum memory usage in MB
func WithMaxMemoryMB(memoryMB int) Option {
	return func(e *Engine) error {
		e.config.MaxMemoryMB = memoryMB
		return nil
	}
}

// WithMetricsEnabled configures metrics collection
func WithMetricsEnabled(enabled bool) Option {
	return func(e *Engine) error {
		e.config.MetricsEnabled = enabled
		return nil
	}
}

// NewSession registers a new client session. Every connected client
// gets its own session; trees, caches and predictions never cross
// session boundaries.
func (e *Engine) NewSession() (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("livetree: engine closed")
	}

	record, err := e.registry.Create()
	if err != nil {
		return nil, fmt.Errorf("livetree: create session: %w", err)
	}

	if err := e.memory.AllocateSession(record.ID, sessionBaselineBytes); err != nil {
		e.registry.Delete(record.ID)
		return nil, fmt.Errorf("livetree: %w", err)
	}

	s := &Session{
		ID:     record.ID,
		engine: e,
		trees:  make(map[string]Node),
		cache: predict.New(predict.Config{
			MaxPerComponent: e.config.MaxTemplatesPerComponent,
			TTL:             e.config.TemplateTTL,
		}, func(componentID, triggerKey string) {
			e.count(func(c *metrics.Collector) { c.IncrementCacheEviction() })
		}),
	}
	e.sessions[record.ID] = s
	e.count(func(c *metrics.Collector) { c.IncrementSessionCreated() })
	return s, nil
}

// Session returns a live session by ID, refreshing its TTL.
func (e *Engine) Session(id string) (*Session, bool) {
	if _, ok := e.registry.Get(id); !ok {
		// Registry expiry may race ahead of the janitor; drop our copy.
		e.removeSession(id)
		return nil, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[id]
	return s, ok
}

// CloseSession tears down one session and releases its memory.
func (e *Engine) CloseSession(id string) {
	e.registry.Delete(id)
	e.removeSession(id)
}

func (e *Engine) removeSession(id string) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()
	if !ok {
		return
	}
	s.markClosed()
	e.memory.DeallocateSession(id)
	e.count(func(c *metrics.Collector) { c.IncrementSessionClosed() })
}

// Metrics returns a snapshot of engine counters.
func (e *Engine) Metrics() metrics.EngineMetrics {
	return e.metrics.GetMetrics()
}

// MemoryStatus reports the current memory budget state.
func (e *Engine) MemoryStatus() memory.Status {
	return e.memory.GetMemoryStatus()
}

// Close stops the janitor and tears down every session. The engine is
// unusable afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	close(e.janitorStop)
	<-e.janitorDone

	for _, id := range ids {
		e.CloseSession(id)
	}
	return nil
}

// janitor prunes expired sessions and refreshes memory metrics on the
// configured interval.
func (e *Engine) janitor() {
	defer close(e.janitorDone)
	ticker := time.NewTicker(e.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.janitorStop:
			return
		case <-ticker.C:
			expired := e.registry.CleanupExpired()
			for _, id := range expired {
				e.removeSession(id)
			}
			e.count(func(c *metrics.Collector) {
				c.IncrementCleanupOperation(int64(len(expired)))
			})
			status := e.memory.GetMemoryStatus()
			e.count(func(c *metrics.Collector) {
				c.UpdateMemoryUsage(status.CurrentUsage, status.AverageSessionMemory)
			})
		}
	}
}

// count applies a metrics update when collection is enabled.
func (e *Engine) count(fn func(*metrics.Collector)) {
	if e.config.MetricsEnabled {
		fn(e.metrics)
	}
}

// sessionBaselineBytes is the bookkeeping cost charged to an empty
// session before any trees or templates are retained.
const sessionBaselineBytes = 4 * 1024
