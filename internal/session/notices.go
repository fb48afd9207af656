// ABOUTME: Transient notices shown to the user, dismissed automatically after a fixed delay.
// ABOUTME: Expiry is driven by the session clock so tests can advance time.

package session

import "time"

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is one transient message.
type Notice struct {
	ID      uint64
	Level   Level
	Text    string
	Expires time.Time
}

// Notices returns the notices that have not yet expired.
func (s *Session) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeNoticesLocked()
}

// Dismiss removes a notice before it expires.
func (s *Session) Dismiss(id uint64) {
	s.Do(func() { s.dismissLocked(id) })
}

func (s *Session) noticeLocked(level Level, text string) {
	if s.closed {
		return
	}
	s.nextNotice++
	id := s.nextNotice
	s.notices = append(s.notices, Notice{
		ID:      id,
		Level:   level,
		Text:    text,
		Expires: s.clock.Now().Add(s.ttl),
	})
	s.timers[id] = s.clock.AfterFunc(s.ttl, func() {
		s.Do(func() { s.dismissLocked(id) })
	})
}

func (s *Session) dismissLocked(id uint64) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, n := range s.notices {
		if n.ID == id {
			s.notices = append(s.notices[:i], s.notices[i+1:]...)
			return
		}
	}
}

func (s *Session) activeNoticesLocked() []Notice {
	now := s.clock.Now()
	out := make([]Notice, 0, len(s.notices))
	for _, n := range s.notices {
		if now.Before(n.Expires) {
			out = append(out, n)
		}
	}
	return out
}
