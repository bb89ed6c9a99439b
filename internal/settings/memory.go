package settings

import (
	"maps"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a Store kept in memory.
type MemoryStore struct {
	mutex  sync.RWMutex
	values map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]any{}}
}

func (m *MemoryStore) Bool(key string) (bool, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	v, ok := m.values[key].(bool)
	return v, ok
}

func (m *MemoryStore) Float64(key string) (float64, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	v, ok := m.values[key].(float64)
	return v, ok
}

func (m *MemoryStore) SetBool(key string, value bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.values[key] = value
}

func (m *MemoryStore) SetFloat64(key string, value float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.values[key] = value
}

// Values returns a copy of the stored values.
func (m *MemoryStore) Values() map[string]any {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return maps.Clone(m.values)
}
