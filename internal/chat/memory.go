package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// MemoryStore is an in-process Store for deployments without a database and
// for tests. History is lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]map[string]*memoryChat
}

type memoryChat struct {
	title string
	turns []models.ChatTurn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]map[string]*memoryChat)}
}

func (s *MemoryStore) AppendExchange(ctx context.Context, userID, chatID string, turns [3]models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chat(userID, chatID)
	c.turns = append(c.turns, turns[:]...)
	return nil
}

func (s *MemoryStore) History(ctx context.Context, userID, chatID string) ([]models.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[userID][chatID]
	if !ok {
		return nil, fmt.Errorf("chat %q: %w", chatID, ErrChatNotFound)
	}
	out := make([]models.ChatTurn, len(c.turns))
	copy(out, c.turns)
	return out, nil
}

func (s *MemoryStore) Recent(ctx context.Context, userID, chatID string, limit int) ([]models.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[userID][chatID]
	if !ok || limit <= 0 {
		return nil, nil
	}
	start := len(c.turns) - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.ChatTurn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out, nil
}

func (s *MemoryStore) SetTitle(ctx context.Context, userID, chatID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat(userID, chatID).title = title
	return nil
}

func (s *MemoryStore) Title(ctx context.Context, userID, chatID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[userID][chatID]
	if !ok {
		return "", nil
	}
	return c.title, nil
}

func (s *MemoryStore) ListChats(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.users[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) ClearChat(ctx context.Context, userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users[userID], chatID)
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) chat(userID, chatID string) *memoryChat {
	chats, ok := s.users[userID]
	if !ok {
		chats = make(map[string]*memoryChat)
		s.users[userID] = chats
	}
	c, ok := chats[chatID]
	if !ok {
		c = &memoryChat{}
		chats[chatID] = c
	}
	return c
}
