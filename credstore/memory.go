package credstore

import (
	"context"
	"sync"
)

// Memory is an in-process store for tests and ephemeral setups.
type Memory struct {
	mu   sync.Mutex
	cred string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, nil
}

func (m *Memory) Set(ctx context.Context, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = credential
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = ""
	return nil
}
