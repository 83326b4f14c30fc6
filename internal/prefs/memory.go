package prefs

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps preferences in process. Values are stored encoded, so callers
// never share mutable state with the store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(key, raw, dst)
}

func (m *Memory) Set(_ context.Context, values map[string]any) error {
	enc, err := encode(values)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range enc {
		m.values[k] = v
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
