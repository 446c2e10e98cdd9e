package store

import (
	"context"
	"sort"
	"sync"

	"voxeledit.ai/internal/persistence/snapshot"
)

type MemoryStore struct {
	mu     sync.RWMutex
	scenes map[string]snapshot.SceneV1
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scenes: map[string]snapshot.SceneV1{}}
}

func cloneScene(s snapshot.SceneV1) snapshot.SceneV1 {
	out := s
	out.Nodes = append([]snapshot.NodeV1(nil), s.Nodes...)
	return out
}

func (m *MemoryStore) Save(_ context.Context, name string, scene snapshot.SceneV1) error {
	if err := ValidName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[name] = cloneScene(scene)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, name string) (snapshot.SceneV1, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenes[name]
	if !ok {
		return snapshot.SceneV1{}, ErrNotFound
	}
	return cloneScene(s), nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenes[name]; !ok {
		return ErrNotFound
	}
	delete(m.scenes, name)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.scenes))
	for n := range m.scenes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.scenes[name]
	return ok, nil
}

func (m *MemoryStore) Close() error { return nil }
