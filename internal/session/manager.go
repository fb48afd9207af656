// ABOUTME: Keeps one editor session per browser session ID and closes idle ones.
// ABOUTME: A shared manager hands every caller the same session, as used with a watched file.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultIdle is how long an unused session is kept.
const DefaultIdle = 30 * time.Minute

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the clock used for idle tracking.
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithIdle sets how long a session may go unused before Sweep closes it.
func WithIdle(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idle = d
		}
	}
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lastSeen map[string]time.Time
	factory  func(id string) *Session
	shared   *Session
	clock    clock.Clock
	idle     time.Duration
}

// NewManager creates sessions on demand with factory.
func NewManager(factory func(id string) *Session, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: map[string]*Session{},
		lastSeen: map[string]time.Time{},
		factory:  factory,
		clock:    clock.New(),
		idle:     DefaultIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewSharedManager returns a manager that always hands out s. The shared
// session is never swept.
func NewSharedManager(s *Session) *Manager {
	return &Manager{
		sessions: map[string]*Session{s.ID: s},
		lastSeen: map[string]time.Time{},
		shared:   s,
		clock:    clock.New(),
		idle:     DefaultIdle,
	}
}

// Get returns the session for id, creating it if needed.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shared != nil {
		return m.shared
	}
	m.lastSeen[id] = m.clock.Now()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := m.factory(id)
	m.sessions[id] = s
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions unused for longer than the idle period. Sessions with
// a connected browser or an outstanding call are kept. It returns the number
// of sessions closed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	if m.shared != nil {
		m.mu.Unlock()
		return 0
	}
	now := m.clock.Now()
	var stale []*Session
	for id, s := range m.sessions {
		if now.Sub(m.lastSeen[id]) < m.idle || s.Busy() != "" || s.subscriberCount() > 0 {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
		delete(m.lastSeen, id)
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// Run sweeps idle sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
		delete(m.lastSeen, id)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
