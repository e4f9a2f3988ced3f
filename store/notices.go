// ABOUTME: Transient user notices raised by store operations
// ABOUTME: Notices expire after a fixed delay and a newer notice supersedes an older one
package store

import "time"

type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notice is a banner message for the views.
type Notice struct {
	Level   Level
	Message string
	At      time.Time
}

func (s *Store) raise(level Level, message string) {
	s.mu.Lock()
	s.notice = &Notice{Level: level, Message: message, At: s.now()}
	s.mu.Unlock()
	s.notify()
}

// Notify raises a notice on behalf of a view, for edge validation failures and the like.
func (s *Store) Notify(level Level, message string) {
	s.raise(level, message)
}

// CurrentNotice returns the live notice, or nil once it has expired or been dismissed.
func (s *Store) CurrentNotice() *Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeNoticeLocked()
}

func (s *Store) activeNoticeLocked() *Notice {
	if s.notice == nil {
		return nil
	}
	if s.now().Sub(s.notice.At) >= s.noticeTTL {
		return nil
	}
	n := *s.notice
	return &n
}

// DismissNotice clears the current notice.
func (s *Store) DismissNotice() {
	s.mu.Lock()
	s.notice = nil
	s.mu.Unlock()
	s.notify()
}

// NoticeTTL is how long a notice stays visible.
func (s *Store) NoticeTTL() time.Duration {
	return s.noticeTTL
}
