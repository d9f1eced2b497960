package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/datalens/pkg/engine"
)

// Session store errors.
var (
	// ErrSessionNotFound indicates an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions indicates the store is at capacity.
	ErrTooManySessions = errors.New("too many open sessions")
)

// session guards one engine. Engines are not safe for concurrent use, so
// every request on a session holds mu for its whole duration.
type session struct {
	mu     sync.Mutex
	engine *engine.Engine
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	lastUsed map[string]time.Time
	max      int
	now      func() time.Time
}

func newSessionStore(maxSessions int) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		lastUsed: make(map[string]time.Time),
		max:      maxSessions,
		now:      time.Now,
	}
}

func (s *sessionStore) add(eng *engine.Engine) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.max > 0 && len(s.sessions) >= s.max {
		return "", ErrTooManySessions
	}

	id := uuid.NewString()
	s.sessions[id] = &session{engine: eng}
	s.lastUsed[id] = s.now()

	return id, nil
}

func (s *sessionStore) get(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.lastUsed[id] = s.now()

	return sess, nil
}

func (s *sessionStore) remove(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	delete(s.lastUsed, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	sess.engine.Discard(ctx)
	sess.mu.Unlock()

	return nil
}

// sweep discards sessions idle since before cutoff. Sessions with a request
// in flight are skipped.
func (s *sessionStore) sweep(ctx context.Context, cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string

	for id, used := range s.lastUsed {
		if !used.Before(cutoff) {
			continue
		}

		sess := s.sessions[id]
		if !sess.mu.TryLock() {
			continue
		}

		sess.engine.Discard(ctx)
		sess.mu.Unlock()

		delete(s.sessions, id)
		delete(s.lastUsed, id)

		expired = append(expired, id)
	}

	return expired
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *sessionStore) full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.max > 0 && len(s.sessions) >= s.max
}

func (s *sessionStore) closeAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))

	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		// A concurrent DELETE may have removed it already.
		_ = s.remove(ctx, id)
	}
}
