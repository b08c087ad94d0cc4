package keystore

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and the stub backend.
// The error fields, when set, are returned by the matching operation to
// simulate persistence failures.
type Memory struct {
	SetErr    error
	GetErr    error
	DeleteErr error

	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if m.SetErr != nil {
		return &StorageError{Op: "set", Key: key, Err: m.SetErr}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if m.GetErr != nil {
		return "", false, &StorageError{Op: "get", Key: key, Err: m.GetErr}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if m.DeleteErr != nil {
		return &StorageError{Op: "delete", Key: key, Err: m.DeleteErr}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len reports how many keys are currently stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
