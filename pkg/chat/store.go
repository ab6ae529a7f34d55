package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const DefaultTitle = "New Conversation"

var ErrConversationNotFound = errors.New("conversation not found")

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionStore persists conversations and their messages.
type SessionStore interface {
	CreateConversation(ctx context.Context) (*Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	// GetHistory returns the messages oldest first.
	GetHistory(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (*Message, error)
	SetTitle(ctx context.Context, conversationID uuid.UUID, title string) error
}

// Turns converts stored messages into history turns.
func Turns(msgs []Message) []Turn {
	turns := make([]Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}
