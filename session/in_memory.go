package session

import (
	"sync"

	"github.com/hupe1980/agentsurface/core"
)

// Store persists conversations across runs of the same session.
type Store interface {
	// GetOrCreate returns the session's conversation, seeding a new one with
	// the given system prompt on first use.
	GetOrCreate(sessionID, system string) (*core.Conversation, error)

	// Delete forgets a session's history.
	Delete(sessionID string) error
}

// InMemoryStore is a volatile Store implementation keeping conversations in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. The returned Conversation is shared with
// the caller; a session must not run concurrently with itself.
type InMemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*core.Conversation
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string]*core.Conversation)}
}

// GetOrCreate implements Store.
func (s *InMemoryStore) GetOrCreate(sessionID, system string) (*core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[sessionID]; ok {
		return conv, nil
	}
	conv := &core.Conversation{}
	if system != "" {
		conv.Append(core.Turn{Role: core.RoleSystem, Text: system})
	}
	s.conversations[sessionID] = conv
	return conv, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
	return nil
}

// Len reports the number of active sessions.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}
