package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps conversations for the lifetime of the process.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*Conversation
	messages      map[uuid.UUID][]Message
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uuid.UUID]*Conversation),
		messages:      make(map[uuid.UUID][]Message),
		now:           time.Now,
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	conv := &Conversation{ID: uuid.New(), Title: DefaultTitle, CreatedAt: now, UpdatedAt: now}
	s.conversations[conv.ID] = conv
	c := *conv
	return &c, nil
}

// ListConversations returns the most recently updated first.
func (s *MemoryStore) ListConversations(_ context.Context) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convs := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		convs = append(convs, *c)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *MemoryStore) GetHistory(_ context.Context, conversationID uuid.UUID) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrConversationNotFound
	}
	return append([]Message(nil), s.messages[conversationID]...), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, conversationID uuid.UUID, role, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	msg := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      s.now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	conv.UpdatedAt = msg.CreatedAt
	return &msg, nil
}

func (s *MemoryStore) SetTitle(_ context.Context, conversationID uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	conv.Title = title
	return nil
}
