package dialogue

import (
	"context"
	"sync"
	"time"
)

// SessionStore maps session ids to dialogue state. Loading an unknown id
// yields NewState(), not an error.
type SessionStore interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, s State) error
	Delete(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
}

// MemorySessionStore keeps sessions in process. Sessions idle for longer
// than ttl are forgotten; a zero ttl keeps them forever.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]State
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]State),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) expired(s State) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

func (m *MemorySessionStore) Load(_ context.Context, id string) (State, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || m.expired(s) {
		return NewState(), nil
	}
	return s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, id string, s State) error {
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// IDs returns the live session ids and drops expired ones.
func (m *MemorySessionStore) IDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
