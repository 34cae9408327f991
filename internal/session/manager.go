// Package session tracks live client session records: opaque IDs,
// access times and TTL-based expiry. The per-session state (trees,
// caches) lives with the engine; this registry only answers "does this
// ID name a live session".
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Record represents one client session
type Record struct {
	ID         string
	CreatedAt  time.Time
	LastAccess time.Time
}

// Manager handles session lifecycle
type Manager struct {
	sessions map[string]*Record
	mu       sync.RWMutex
	ttl      time.Duration
}

// NewManager creates a new session manager
func NewManager(ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 24 * time.Hour // Default 24 hours
	}

	return &Manager{
		sessions: make(map[string]*Record),
		ttl:      ttl,
	}
}

// Create registers a new session under a fresh ID
func (m *Manager) Create() (*Record, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	record := &Record{
		ID:         sessionID,
		CreatedAt:  time.Now(),
		LastAccess: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = record
	m.mu.Unlock()

	return record, nil
}

// Get retrieves a session by ID and refreshes its access time. An
// expired session is removed and reported as missing.
func (m *Manager) Get(sessionID string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.sessions[sessionID]
	if !exists {
		return nil, false
	}

	if time.Since(record.LastAccess) > m.ttl {
		delete(m.sessions, sessionID)
		return nil, false
	}

	record.LastAccess = time.Now()
	return record, true
}

// Delete removes a session
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Count returns the number of registered sessions, expired or not
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired removes expired sessions and returns their IDs so the
// caller can release the state held against them
func (m *Manager) CleanupExpired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	cutoff := time.Now().Add(-m.ttl)

	for sessionID, record := range m.sessions {
		if record.LastAccess.Before(cutoff) {
			delete(m.sessions, sessionID)
			removed = append(removed, sessionID)
		}
	}

	return removed
}

// generateSessionID creates a cryptographically secure session ID
func generateSessionID() (string, error) {
	bytes := make([]byte, 32) // 256-bit session ID
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
