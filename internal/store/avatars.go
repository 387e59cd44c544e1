package store

import (
	"context"
	"sync"

	"github.com/ayush/blog/internal/models"
)

// MemoryAvatars keeps avatar pictures in process memory for STORE=memory.
type MemoryAvatars struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryAvatars() *MemoryAvatars {
	return &MemoryAvatars{files: make(map[string][]byte)}
}

func (m *MemoryAvatars) PutAvatar(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryAvatars) GetAvatar(_ context.Context, name string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, "", models.ErrNotFound
	}
	return data, ContentType(name), nil
}

func (m *MemoryAvatars) RemoveAvatar(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}
