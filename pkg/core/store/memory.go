package store

import (
	"context"
	"sync"

	"financial_review/pkg/core/session"

	"github.com/rotisserie/eris"
)

type memoryEntry struct {
	s       *session.Session
	version int64
}

// MemoryStore is a process-local Repository.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*session.Session, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, 0, eris.Wrapf(ErrNotFound, "memory: get %s", id)
	}
	return e.s.Clone(), e.version, nil
}

func (m *MemoryStore) Put(_ context.Context, s *session.Session) (int64, error) {
	if s == nil || s.ID == "" {
		return 0, eris.New("memory: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	version := m.sessions[s.ID].version + 1
	m.sessions[s.ID] = memoryEntry{s: s.Clone(), version: version}
	return version, nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, s *session.Session, expected int64) (int64, error) {
	if s == nil || s.ID == "" {
		return 0, eris.New("memory: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[s.ID]
	if !ok {
		return 0, eris.Wrapf(ErrNotFound, "memory: swap %s", s.ID)
	}
	if e.version != expected {
		return 0, eris.Wrapf(ErrConflict, "memory: swap %s: have version %d, want %d", s.ID, e.version, expected)
	}
	m.sessions[s.ID] = memoryEntry{s: s.Clone(), version: expected + 1}
	return expected + 1, nil
}

// Len reports the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
