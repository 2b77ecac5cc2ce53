package server

import (
	"log/slog"
	"sync"
	"time"
)

// SessionManager tracks live sessions and sweeps idle ones.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl    time.Duration
	logger *slog.Logger

	done    chan struct{}
	stopped bool
}

// NewSessionManager creates a manager sweeping sessions idle longer than
// ttl. The sweep goroutine runs until Stop.
func NewSessionManager(ttl time.Duration, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default().With("component", "sessions")
	}
	m := &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Add registers a session.
func (m *SessionManager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// Remove drops a session from tracking. The session itself is not closed.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Get returns a session by ID.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of tracked sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session. Used during shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Stop halts the sweep loop and closes all sessions.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	close(m.done)
	m.CloseAll()
}

func (m *SessionManager) sweepLoop() {
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.done:
			return
		}
	}
}

// sweep closes and removes sessions idle longer than the TTL.
func (m *SessionManager) sweep(now time.Time) {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.logger.Info("sweeping idle session", "session", s.ID)
		s.Close()
	}
}
