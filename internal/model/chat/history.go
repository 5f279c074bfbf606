package chat

import (
	"context"
	"sync"
)

// HistoryStore exposes conversation history persistence for the chat service.
// Load returns an empty slice for an unknown chat id; a fresh session is not
// an error. Save always writes the full, already-truncated list and is
// last-write-wins across concurrent writers.
type HistoryStore interface {
	Load(ctx context.Context, chatID string) ([]Exchange, error)
	Save(ctx context.Context, chatID string, history []Exchange) error
}

// MemoryStore implements HistoryStore with an in-memory map, suitable for
// tests and local development without Supabase credentials.
type MemoryStore struct {
	mu        sync.RWMutex
	histories map[string][]Exchange
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{histories: make(map[string][]Exchange)}
}

// Load returns a copy of the stored history for the chat id.
func (s *MemoryStore) Load(_ context.Context, chatID string) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[chatID]
	if !ok {
		return nil, nil
	}

	copied := make([]Exchange, len(history))
	copy(copied, history)
	return copied, nil
}

// Save replaces the stored history for the chat id.
func (s *MemoryStore) Save(_ context.Context, chatID string, history []Exchange) error {
	copied := make([]Exchange, len(history))
	copy(copied, history)

	s.mu.Lock()
	s.histories[chatID] = copied
	s.mu.Unlock()
	return nil
}
