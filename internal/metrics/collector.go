package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector provides simple built-in metrics collection with no external dependencies
type Collector struct {
	engineMetrics     *EngineMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// EngineMetrics tracks engine-level performance data
type EngineMetrics struct {
	// Session management
	SessionsCreated       int64 `json:"sessions_created"`
	SessionsClosed        int64 `json:"sessions_closed"`
	ActiveSessions        int64 `json:"active_sessions"`
	MaxConcurrentSessions int64 `json:"max_concurrent_sessions"`

	// Reconciliation
	DiffsComputed  int64 `json:"diffs_computed"`
	DiffErrors     int64 `json:"diff_errors"`
	PatchesEmitted int64 `json:"patches_emitted"`

	// Template extraction
	TemplatesExtracted int64 `json:"templates_extracted"`
	TemplatesRejected  int64 `json:"templates_rejected"`
	TemplatesInstalled int64 `json:"templates_installed"`

	// Prediction cache
	PredictionHits   int64 `json:"prediction_hits"`
	PredictionMisses int64 `json:"prediction_misses"`
	CacheEvictions   int64 `json:"cache_evictions"`

	// Memory and performance
	TotalMemoryUsage     int64 `json:"total_memory_usage"`
	AverageSessionMemory int64 `json:"average_session_memory"`

	// Cleanup operations
	CleanupOperations      int64 `json:"cleanup_operations"`
	ExpiredSessionsRemoved int64 `json:"expired_sessions_removed"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		engineMetrics: &EngineMetrics{
			StartTime: time.Now(),
		},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// IncrementSessionCreated records a new session creation
func (c *Collector) IncrementSessionCreated() {
	atomic.AddInt64(&c.engineMetrics.SessionsCreated, 1)
	currentActive := atomic.AddInt64(&c.engineMetrics.ActiveSessions, 1)

	// Update max concurrent if needed
	for {
		max := atomic.LoadInt64(&c.engineMetrics.MaxConcurrentSessions)
		if currentActive <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.engineMetrics.MaxConcurrentSessions, max, currentActive) {
			break
		}
	}
}

// IncrementSessionClosed records a session teardown
func (c *Collector) IncrementSessionClosed() {
	atomic.AddInt64(&c.engineMetrics.SessionsClosed, 1)
	atomic.AddInt64(&c.engineMetrics.ActiveSessions, -1)
}

// IncrementDiffComputed records a completed diff and the patches it
// produced
func (c *Collector) IncrementDiffComputed(patchCount int64) {
	atomic.AddInt64(&c.engineMetrics.DiffsComputed, 1)
	atomic.AddInt64(&c.engineMetrics.PatchesEmitted, patchCount)
}

// IncrementDiffError records a rejected diff (malformed input)
func (c *Collector) IncrementDiffError() {
	atomic.AddInt64(&c.engineMetrics.DiffErrors, 1)
}

// IncrementTemplateExtracted records a successfully generalized patch
func (c *Collector) IncrementTemplateExtracted() {
	atomic.AddInt64(&c.engineMetrics.TemplatesExtracted, 1)
}

// IncrementTemplateRejected records a patch that could not be
// generalized unambiguously
func (c *Collector) IncrementTemplateRejected() {
	atomic.AddInt64(&c.engineMetrics.TemplatesRejected, 1)
}

// IncrementTemplateInstalled records a template stored in a session
// cache
func (c *Collector) IncrementTemplateInstalled() {
	atomic.AddInt64(&c.engineMetrics.TemplatesInstalled, 1)
}

// IncrementPredictionHit records a cache match that produced patches
func (c *Collector) IncrementPredictionHit() {
	atomic.AddInt64(&c.engineMetrics.PredictionHits, 1)
}

// IncrementPredictionMiss records a lookup that found nothing
func (c *Collector) IncrementPredictionMiss() {
	atomic.AddInt64(&c.engineMetrics.PredictionMisses, 1)
}

// IncrementCacheEviction records an entry dropped by TTL or capacity
func (c *Collector) IncrementCacheEviction() {
	atomic.AddInt64(&c.engineMetrics.CacheEvictions, 1)
}

// UpdateMemoryUsage updates memory usage metrics
func (c *Collector) UpdateMemoryUsage(totalMemory, averageSessionMemory int64) {
	atomic.StoreInt64(&c.engineMetrics.TotalMemoryUsage, totalMemory)
	atomic.StoreInt64(&c.engineMetrics.AverageSessionMemory, averageSessionMemory)
}

// IncrementCleanupOperation records a cleanup operation
func (c *Collector) IncrementCleanupOperation(expiredSessionsRemoved int64) {
	atomic.AddInt64(&c.engineMetrics.CleanupOperations, 1)
	atomic.AddInt64(&c.engineMetrics.ExpiredSessionsRemoved, expiredSessionsRemoved)
}

// IncrementCustomCounter increments a custom named counter
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns current engine metrics
func (c *Collector) GetMetrics() EngineMetrics {
	return EngineMetrics{
		SessionsCreated:        atomic.LoadInt64(&c.engineMetrics.SessionsCreated),
		SessionsClosed:         atomic.LoadInt64(&c.engineMetrics.SessionsClosed),
		ActiveSessions:         atomic.LoadInt64(&c.engineMetrics.ActiveSessions),
		MaxConcurrentSessions:  atomic.LoadInt64(&c.engineMetrics.MaxConcurrentSessions),
		DiffsComputed:          atomic.LoadInt64(&c.engineMetrics.DiffsComputed),
		DiffErrors:             atomic.LoadInt64(&c.engineMetrics.DiffErrors),
		PatchesEmitted:         atomic.LoadInt64(&c.engineMetrics.PatchesEmitted),
		TemplatesExtracted:     atomic.LoadInt64(&c.engineMetrics.TemplatesExtracted),
		TemplatesRejected:      atomic.LoadInt64(&c.engineMetrics.TemplatesRejected),
		TemplatesInstalled:     atomic.LoadInt64(&c.engineMetrics.TemplatesInstalled),
		PredictionHits:         atomic.LoadInt64(&c.engineMetrics.PredictionHits),
		PredictionMisses:       atomic.LoadInt64(&c.engineMetrics.PredictionMisses),
		CacheEvictions:         atomic.LoadInt64(&c.engineMetrics.CacheEvictions),
		TotalMemoryUsage:       atomic.LoadInt64(&c.engineMetrics.TotalMemoryUsage),
		AverageSessionMemory:   atomic.LoadInt64(&c.engineMetrics.AverageSessionMemory),
		CleanupOperations:      atomic.LoadInt64(&c.engineMetrics.CleanupOperations),
		ExpiredSessionsRemoved: atomic.LoadInt64(&c.engineMetrics.ExpiredSessionsRemoved),
		StartTime:              c.engineMetrics.StartTime,
		Uptime:                 time.Since(c.startTime),
	}
}

// GetCustomCounters returns all custom counters
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64)
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// Reset resets all metrics to zero
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.engineMetrics.SessionsCreated, 0)
	atomic.StoreInt64(&c.engineMetrics.SessionsClosed, 0)
	atomic.StoreInt64(&c.engineMetrics.ActiveSessions, 0)
	atomic.StoreInt64(&c.engineMetrics.MaxConcurrentSessions, 0)
	atomic.StoreInt64(&c.engineMetrics.DiffsComputed, 0)
	atomic.StoreInt64(&c.engineMetrics.DiffErrors, 0)
	atomic.StoreInt64(&c.engineMetrics.PatchesEmitted, 0)
	atomic.StoreInt64(&c.engineMetrics.TemplatesExtracted, 0)
	atomic.StoreInt64(&c.engineMetrics.TemplatesRejected, 0)
	atomic.StoreInt64(&c.engineMetrics.TemplatesInstalled, 0)
	atomic.StoreInt64(&c.engineMetrics.PredictionHits, 0)
	atomic.StoreInt64(&c.engineMetrics.PredictionMisses, 0)
	atomic.StoreInt64(&c.engineMetrics.CacheEvictions, 0)
	atomic.StoreInt64(&c.engineMetrics.TotalMemoryUsage, 0)
	atomic.StoreInt64(&c.engineMetrics.AverageSessionMemory, 0)
	atomic.StoreInt64(&c.engineMetrics.CleanupOperations, 0)
	atomic.StoreInt64(&c.engineMetrics.ExpiredSessionsRemoved, 0)

	c.operationCounters = make(map[string]*int64)

	c.startTime = time.Now()
	c.engineMetrics.StartTime = time.Now()
}

// GetHitRate returns the prediction cache hit rate as a percentage
func (c *Collector) GetHitRate() float64 {
	hits := atomic.LoadInt64(&c.engineMetrics.PredictionHits)
	misses := atomic.LoadInt64(&c.engineMetrics.PredictionMisses)

	total := hits + misses
	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total) * 100.0
}

// GetExtractionRate returns the share of generalization attempts that
// produced a template
func (c *Collector) GetExtractionRate() float64 {
	extracted := atomic.LoadInt64(&c.engineMetrics.TemplatesExtracted)
	rejected := atomic.LoadInt64(&c.engineMetrics.TemplatesRejected)

	total := extracted + rejected
	if total == 0 {
		return 0.0
	}

	return float64(extracted) / float64(total) * 100.0
}

// GetMemoryEfficiency returns memory usage per active session
func (c *Collector) GetMemoryEfficiency() float64 {
	totalMemory := atomic.LoadInt64(&c.engineMetrics.TotalMemoryUsage)
	activeSessions := atomic.LoadInt64(&c.engineMetrics.ActiveSessions)

	if activeSessions == 0 {
		return 0.0
	}

	return float64(totalMemory) / float64(activeSessions)
}
