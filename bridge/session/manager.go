// Package session tracks the MCP sessions created by initialize calls.
// State is in-memory only: sessions exist from initialize until an
// explicit DELETE /mcp or expiry cleanup, and carry no authority beyond
// existence.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Manager handles session lifecycle.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*service.Session
}

var _ service.SessionStore = (*Manager)(nil)

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
	}
}

// Create registers a new session with a fresh opaque id. Every call
// produces a distinct session, so initializing twice yields two
// independently tracked records.
func (m *Manager) Create(protocolVersion string, clientInfo map[string]any) *service.Session {
	now := time.Now()
	s := &service.Session{
		ID:              uuid.NewString(),
		ProtocolVersion: protocolVersion,
		ClientInfo:      clientInfo,
		CreatedAt:       now,
		LastAccessedAt:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s
}

// Get retrieves a session by id.
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// MarkInitialized records that the client completed the initialize
// handshake for this session.
func (m *Manager) MarkInitialized(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Initialized = true
	s.LastAccessedAt = time.Now()
	return nil
}

// List returns all active sessions.
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	return result
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired removes sessions that have not been touched within
// maxAge and reports how many were dropped.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		if s.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
