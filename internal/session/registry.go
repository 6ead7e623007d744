package session

import "sync"

// Registry maps room codes to live sessions for this process. Sessions are
// created lazily on the first connection event naming a room and dropped when
// the last connection for the code closes.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for code if one exists.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	return s, ok
}

// GetOrCreate returns the session for code, creating it if needed.
func (r *Registry) GetOrCreate(code string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[code]; ok {
		return s
	}
	s := newSession(code)
	r.sessions[code] = s
	return s
}

// Delete tears a session down.
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[code]; ok {
		if s.TurnTimer != nil {
			s.TurnTimer.Stop()
		}
		delete(r.sessions, code)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
