package tier

import (
	"context"
	"sync"

	"github.com/fitstride/mediacache/resource"
)

// Memory is the in-memory fast tier.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
	bytes int64
	rc    *resource.Controller
}

// NewMemory creates a fast tier. rc may be nil; if set, payload bytes are
// registered with the controller and a denied acquisition fails the Put
// with ErrMemoryLimit.
func NewMemory(rc *resource.Controller) *Memory {
	return &Memory{
		items: make(map[string][]byte),
		rc:    rc,
	}
}

// Get implements Tier.
func (m *Memory) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// Contains reports whether the tier holds a payload for id.
func (m *Memory) Contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[id]
	return ok
}

// Put implements Tier.
func (m *Memory) Put(_ context.Context, id string, data []byte) error {
	size := int64(len(data))

	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.items[id]
	delta := size
	if exists {
		delta -= int64(len(old))
	}

	if delta > 0 {
		if !m.rc.TryAcquireMemory(delta) {
			return ErrMemoryLimit
		}
	} else if delta < 0 {
		m.rc.ReleaseMemory(-delta)
	}

	m.items[id] = data
	m.bytes += delta
	return nil
}

// Delete implements Tier.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.items[id]; ok {
		delete(m.items, id)
		m.bytes -= int64(len(old))
		m.rc.ReleaseMemory(int64(len(old)))
	}
	return nil
}

// Clear implements Tier.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rc.ReleaseMemory(m.bytes)
	m.items = make(map[string][]byte)
	m.bytes = 0
	return nil
}

// Bytes returns the payload bytes currently held by the tier.
func (m *Memory) Bytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bytes
}
