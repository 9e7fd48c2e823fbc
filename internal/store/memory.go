package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func (m *Memory) Create(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.Room.Code]; ok {
		return ErrCodeTaken
	}
	m.docs[doc.Room.Code] = doc
	return nil
}

func (m *Memory) Get(_ context.Context, code string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[code]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) Save(_ context.Context, doc Document, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[doc.Room.Code]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expected {
		return ErrVersionConflict
	}
	m.docs[doc.Room.Code] = doc
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, code)
	return nil
}

func (m *Memory) List(_ context.Context) ([]Document, error) {
	m.mu.RLock()
	out := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Document) int {
		return cmp.Or(a.Room.CreatedAt.Compare(b.Room.CreatedAt), cmp.Compare(a.Room.Code, b.Room.Code))
	})
	return out, nil
}
