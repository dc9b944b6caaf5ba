package audit

import (
	"context"
	"log"
	"sync"
	"time"
)

// SessionStore is the process-wide keyed store of in-flight and terminal
// audit sessions. Sessions are ephemeral: they represent in-flight work, not
// a record of truth, and may be lost on restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *log.Logger
}

// NewSessionStore builds a store retaining terminal sessions for ttl so a
// late poll can still observe the final snapshot.
func NewSessionStore(ttl time.Duration, logger *log.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[AUDIT] ", log.LstdFlags)
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
	}
}

// Put registers a new session.
func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = sess
}

// Snapshot returns a deep copy of the session's current state, or
// ErrSessionNotFound if the session is unknown or has been swept.
func (s *SessionStore) Snapshot(sessionID string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Update applies mutate to the session under the store lock and stamps
// UpdatedAt. Only the orchestrator goroutine that owns the session calls
// this; the lock exists so Snapshot never observes a half-applied write.
func (s *SessionStore) Update(sessionID string, mutate func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	mutate(sess)
	sess.UpdatedAt = time.Now()
}

// Len reports the number of retained sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper launches the background sweep removing terminal sessions
// older than the retention TTL. It returns after starting the goroutine,
// which stops when ctx ends. In-flight sessions are never swept.
func (s *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	}()
}

func (s *SessionStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if !sess.State.Terminal() || sess.CompletedAt == nil {
			continue
		}
		if now.Sub(*sess.CompletedAt) > s.ttl {
			delete(s.sessions, id)
			s.logger.Printf("swept expired session %s (%s)", id, sess.Domain)
		}
	}
}
