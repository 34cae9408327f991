package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Manager provides memory management and resource limits for session
// caches and retained tree snapshots
type Manager struct {
	maxMemoryBytes     int64
	currentUsage       int64
	sessionMemoryUsage map[string]int64 // sessionID -> memory usage
	memoryThresholds   *Thresholds
	mu                 sync.RWMutex
	config             *Config
}

// Config defines memory manager configuration
type Config struct {
	MaxMemoryMB          int           // Maximum memory in MB
	WarningThresholdPct  int           // Warning threshold percentage
	CriticalThresholdPct int           // Critical threshold percentage
	CleanupInterval      time.Duration // How often to check memory usage
}

// Thresholds defines memory usage thresholds
type Thresholds struct {
	WarningBytes  int64 // Warning threshold in bytes
	CriticalBytes int64 // Critical threshold in bytes
}

// DefaultConfig returns conservative default limits
func DefaultConfig() *Config {
	return &Config{
		MaxMemoryMB:          100,
		WarningThresholdPct:  75,
		CriticalThresholdPct: 90,
		CleanupInterval:      1 * time.Minute,
	}
}

// NewManager creates a new memory manager
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}

	maxBytes := int64(config.MaxMemoryMB * 1024 * 1024)

	return &Manager{
		maxMemoryBytes:     maxBytes,
		currentUsage:       0,
		sessionMemoryUsage: make(map[string]int64),
		config:             config,
		memoryThresholds: &Thresholds{
			WarningBytes:  (maxBytes * int64(config.WarningThresholdPct)) / 100,
			CriticalBytes: (maxBytes * int64(config.CriticalThresholdPct)) / 100,
		},
	}
}

// AllocateSession attempts to reserve memory for a new session
func (m *Manager) AllocateSession(sessionID string, estimatedSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newUsage := atomic.LoadInt64(&m.currentUsage) + estimatedSize
	if newUsage > m.maxMemoryBytes {
		return fmt.Errorf("memory allocation would exceed limit: %d + %d > %d",
			atomic.LoadInt64(&m.currentUsage), estimatedSize, m.maxMemoryBytes)
	}

	m.sessionMemoryUsage[sessionID] = estimatedSize
	atomic.AddInt64(&m.currentUsage, estimatedSize)

	return nil
}

// DeallocateSession releases memory for a session
func (m *Manager) DeallocateSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if usage, exists := m.sessionMemoryUsage[sessionID]; exists {
		atomic.AddInt64(&m.currentUsage, -usage)
		delete(m.sessionMemoryUsage, sessionID)
	}
}

// UpdateSessionUsage updates memory usage for an existing session.
// Session footprints grow as templates are installed and snapshots
// swapped, so callers refresh this after every reconcile.
func (m *Manager) UpdateSessionUsage(sessionID string, newSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldSize, exists := m.sessionMemoryUsage[sessionID]
	if !exists {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	deltaSize := newSize - oldSize
	newTotalUsage := atomic.LoadInt64(&m.currentUsage) + deltaSize

	if newTotalUsage > m.maxMemoryBytes {
		return fmt.Errorf("memory update would exceed limit: %d + %d > %d",
			atomic.LoadInt64(&m.currentUsage), deltaSize, m.maxMemoryBytes)
	}

	m.sessionMemoryUsage[sessionID] = newSize
	atomic.AddInt64(&m.currentUsage, deltaSize)

	return nil
}

// GetMemoryStatus returns current memory usage status
func (m *Manager) GetMemoryStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentUsage := atomic.LoadInt64(&m.currentUsage)

	status := Status{
		CurrentUsage:      currentUsage,
		MaxMemory:         m.maxMemoryBytes,
		UsagePercentage:   float64(currentUsage) / float64(m.maxMemoryBytes) * 100,
		ActiveSessions:    len(m.sessionMemoryUsage),
		WarningThreshold:  m.memoryThresholds.WarningBytes,
		CriticalThreshold: m.memoryThresholds.CriticalBytes,
	}

	if currentUsage >= m.memoryThresholds.CriticalBytes {
		status.Level = "CRITICAL"
	} else if currentUsage >= m.memoryThresholds.WarningBytes {
		status.Level = "WARNING"
	} else {
		status.Level = "OK"
	}

	if len(m.sessionMemoryUsage) > 0 {
		status.AverageSessionMemory = currentUsage / int64(len(m.sessionMemoryUsage))
	}

	return status
}

// Status contains memory usage information
type Status struct {
	CurrentUsage         int64   `json:"current_usage"`
	MaxMemory            int64   `json:"max_memory"`
	UsagePercentage      float64 `json:"usage_percentage"`
	Level                string  `json:"level"` // "OK", "WARNING", "CRITICAL"
	ActiveSessions       int     `json:"active_sessions"`
	AverageSessionMemory int64   `json:"average_session_memory"`
	WarningThreshold     int64   `json:"warning_threshold"`
	CriticalThreshold    int64   `json:"critical_threshold"`
}

// IsAtCapacity checks if memory is at or near capacity
func (m *Manager) IsAtCapacity() bool {
	currentUsage := atomic.LoadInt64(&m.currentUsage)
	return currentUsage >= m.memoryThresholds.CriticalBytes
}

// IsNearCapacity checks if memory usage is approaching capacity
func (m *Manager) IsNearCapacity() bool {
	currentUsage := atomic.LoadInt64(&m.currentUsage)
	return currentUsage >= m.memoryThresholds.WarningBytes
}

// GetAvailableMemory returns available memory in bytes
func (m *Manager) GetAvailableMemory() int64 {
	currentUsage := atomic.LoadInt64(&m.currentUsage)
	available := m.maxMemoryBytes - currentUsage
	if available < 0 {
		return 0
	}
	return available
}

// CanAllocate checks if a given size can be allocated
func (m *Manager) CanAllocate(size int64) bool {
	currentUsage := atomic.LoadInt64(&m.currentUsage)
	return currentUsage+size <= m.maxMemoryBytes
}

// GetSessionMemoryUsage returns memory usage for a specific session
func (m *Manager) GetSessionMemoryUsage(sessionID string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage, exists := m.sessionMemoryUsage[sessionID]
	return usage, exists
}

// GetTopMemorySessions returns sessions using the most memory, largest
// first. Cleanup under pressure starts here.
func (m *Manager) GetTopMemorySessions(limit int) []SessionMemoryInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]SessionMemoryInfo, 0, len(m.sessionMemoryUsage))
	for sessionID, usage := range m.sessionMemoryUsage {
		sessions = append(sessions, SessionMemoryInfo{
			SessionID: sessionID,
			Usage:     usage,
		})
	}

	for i := 0; i < len(sessions)-1; i++ {
		for j := 0; j < len(sessions)-i-1; j++ {
			if sessions[j].Usage < sessions[j+1].Usage {
				sessions[j], sessions[j+1] = sessions[j+1], sessions[j]
			}
		}
	}

	if limit > len(sessions) {
		limit = len(sessions)
	}
	return sessions[:limit]
}

// SessionMemoryInfo contains memory usage information for a session
type SessionMemoryInfo struct {
	SessionID string `json:"session_id"`
	Usage     int64  `json:"usage"`
}

// GetTotalSessions returns the number of sessions being tracked
func (m *Manager) GetTotalSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessionMemoryUsage)
}

// Reset clears all memory tracking
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.currentUsage, 0)
	m.sessionMemoryUsage = make(map[string]int64)
}
