package session

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

// Registry is the process-global concurrent map of live sessions. Lookup,
// insert, and remove each hold mu only briefly; all pipeline mutation
// happens under the per-session lock instead.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*State
	logger   *zap.Logger
}

// NewRegistry returns an empty session registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*State),
		logger:   logger,
	}
}

// Create allocates a new session under fresh wait-k bounds and registers it.
func (r *Registry) Create(bounds waitk.Bounds) *State {
	id := NewID()
	s := newState(id, bounds)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("session created", zap.String("session_id", id))
	return s
}

// Get returns the session for id, or ErrNotFound.
func (r *Registry) Get(id string) (*State, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close removes a session from the registry atomically and marks it closed.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	r.logger.Info("session closed", zap.String("session_id", id))
	return nil
}

// List returns every live session id, sorted for deterministic output.
func (r *Registry) List() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
