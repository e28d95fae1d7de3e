package session

import (
	"context"
	"sync"
	"time"

	"usadba/models"
)

type memoryEntry struct {
	bctx      *models.BookingContext
	expiresAt time.Time
}

// memoryStore is the fallback session store for tests and local runs without
// Redis. TTL is honored on read.
type memoryStore struct {
	mu           sync.Mutex
	ttl          time.Duration
	historyLimit int
	contexts     map[string]memoryEntry
	histories    map[string][]models.ChatMessage
}

// NewMemoryStore builds an in-process session store.
func NewMemoryStore(ttl time.Duration, historyLimit int) Store {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &memoryStore{
		ttl:          ttl,
		historyLimit: historyLimit,
		contexts:     map[string]memoryEntry{},
		histories:    map[string][]models.ChatMessage{},
	}
}

func (s *memoryStore) GetContext(_ context.Context, sessionID string) (*models.BookingContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.contexts[sessionID]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && time.Now().After(entry.expiresAt) {
		delete(s.contexts, sessionID)
		delete(s.histories, sessionID)
		return nil, nil
	}
	clone := *entry.bctx
	return &clone, nil
}

func (s *memoryStore) SetContext(_ context.Context, sessionID string, bctx *models.BookingContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *bctx
	s.contexts[sessionID] = memoryEntry{bctx: &clone, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *memoryStore) ClearContext(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
	return nil
}

func (s *memoryStore) History(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.histories[sessionID]
	result := make([]models.ChatMessage, len(history))
	copy(result, history)
	return result, nil
}

func (s *memoryStore) AddMessage(_ context.Context, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.histories[sessionID], models.ChatMessage{Role: role, Content: content})
	if max := s.historyLimit * 2; len(history) > max {
		history = history[len(history)-max:]
	}
	s.histories[sessionID] = history
	return nil
}

func (s *memoryStore) ClearHistory(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, sessionID)
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }
