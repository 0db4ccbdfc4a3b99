package store

import (
	"context"
	"sync"
)

// Memory is an in-process CredentialStore. It backs tests and
// single-process applications that keep credentials off disk.
type Memory struct {
	mu    sync.RWMutex
	creds Credentials
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns the current credential triple.
func (m *Memory) Load(context.Context) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, nil
}

// Save replaces the credential triple.
func (m *Memory) Save(_ context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	return nil
}

// Clear wipes all three fields together.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}
