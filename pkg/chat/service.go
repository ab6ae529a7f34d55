package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// maxTitleRunes bounds conversation titles derived from the first question.
const maxTitleRunes = 60

// Service answers messages inside stored conversations.
type Service struct {
	Responder *Responder
	Sessions  SessionStore
}

func NewService(responder *Responder, sessions SessionStore) *Service {
	return &Service{Responder: responder, Sessions: sessions}
}

// SendMessage answers content using the conversation's history, then stores
// both the question and the answer. Nothing is stored if answering fails.
func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, content string) (*Message, *Answer, error) {
	history, err := s.Sessions.GetHistory(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	answer, err := s.Responder.Answer(ctx, Turns(history), content)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.Sessions.AppendMessage(ctx, conversationID, RoleUser, content); err != nil {
		return nil, nil, fmt.Errorf("failed to save user message: %w", err)
	}
	reply, err := s.Sessions.AppendMessage(ctx, conversationID, RoleAssistant, answer.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	if len(history) == 0 {
		if err := s.Sessions.SetTitle(ctx, conversationID, Title(content)); err != nil {
			slog.Error("Failed to update conversation title", "conversation_id", conversationID, "error", err)
		}
	}
	return reply, answer, nil
}

// Title shortens the first question of a conversation into its title.
func Title(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = strings.TrimSpace(string(runes[:maxTitleRunes])) + "..."
	}
	if title == "" {
		return DefaultTitle
	}
	return title
}
