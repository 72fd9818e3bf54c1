package orchestrator

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a Store for an unknown session.
var ErrNotFound = errors.New("orchestrator: not found")

// Store persists the active playthrough of each session.
type Store interface {
	Save(ctx context.Context, sessionID string, p *Playthrough) error
	Load(ctx context.Context, sessionID string) (*Playthrough, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Playthrough
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Playthrough)}
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, p *Playthrough) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[sessionID] = p.clone()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Playthrough, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sessionID)
	return nil
}
