package controller

import (
	"sync"
	"time"

	"ragrt/internal/types"
)

// sessionEntry pairs a SessionState with its own lock so a controller
// step can take the write lock for the whole step, making the
// increment/score/audit sequence atomic per session without blocking
// unrelated sessions.
type sessionEntry struct {
	mu    sync.RWMutex
	state types.SessionState
}

// sessionTable is the concurrent session-id -> state map named in
// spec.md §5.
type sessionTable struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func newSessionTable() *sessionTable {
	return &sessionTable{entries: make(map[string]*sessionEntry)}
}

// getOrCreate returns the session's entry, creating it silently if
// absent (per spec.md §4.D's failure semantics: "missing session is
// created silently").
func (t *sessionTable) getOrCreate(sessionID string) *sessionEntry {
	t.mu.RLock()
	entry, ok := t.entries[sessionID]
	t.mu.RUnlock()
	if ok {
		return entry
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[sessionID]; ok {
		return entry
	}
	entry = &sessionEntry{
		state: types.SessionState{
			SessionID: sessionID,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		},
	}
	t.entries[sessionID] = entry
	return entry
}
