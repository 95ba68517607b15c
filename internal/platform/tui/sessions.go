package tui

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RemoteSession describes one live SSH connection for diagnostics.
type RemoteSession struct {
	ID        uint64
	User      string
	Remote    string
	StartedAt time.Time
}

// SessionRegistry tracks active remote sessions.
// Thread-safe for concurrent access.
type SessionRegistry struct {
	mu      sync.RWMutex
	nextID  atomic.Uint64
	entries map[uint64]RemoteSession
}

// NewSessionRegistry creates a new session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		entries: make(map[uint64]RemoteSession),
	}
}

// Register adds a session and returns its id for later Unregister.
func (r *SessionRegistry) Register(user, remote string) uint64 {
	id := r.nextID.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = RemoteSession{
		ID:        id,
		User:      user,
		Remote:    remote,
		StartedAt: time.Now(),
	}
	return id
}

// Unregister removes a session from the registry.
func (r *SessionRegistry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Count returns the number of active sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns a snapshot of the active sessions.
func (r *SessionRegistry) List() []RemoteSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RemoteSession, 0, len(r.entries))
	for _, s := range r.entries {
		out = append(out, s)
	}
	return out
}

// Describe returns a short "user@remote" label for logging.
func (s RemoteSession) Describe() string {
	return fmt.Sprintf("%s@%s", s.User, s.Remote)
}
