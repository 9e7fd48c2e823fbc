package character

import (
	"context"
	"sync"
)

// MemoryRepository serves characters from a map. Used for dev and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	chars map[string]Character
}

func NewMemoryRepository(chars ...Character) *MemoryRepository {
	m := &MemoryRepository{chars: make(map[string]Character, len(chars))}
	for _, c := range chars {
		m.chars[c.ID] = c
	}
	return m
}

func (m *MemoryRepository) Get(_ context.Context, id string) (Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chars[id]
	if !ok {
		return Character{}, ErrCharacterNotFound
	}
	return c, nil
}

// Put replaces a record. Fighters already in a room keep their old snapshot.
func (m *MemoryRepository) Put(c Character) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chars[c.ID] = c
}
