package httpapi

import "time"

// SetClock replaces the session store clock.
func SetClock(s *Server, now func() time.Time) {
	s.sessions.mu.Lock()
	defer s.sessions.mu.Unlock()

	s.sessions.now = now
}
