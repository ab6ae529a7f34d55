package chat

import (
	"context"
	"sync"
)

// Session keeps the history of one conversation in memory.
type Session struct {
	mu        sync.Mutex
	responder *Responder
	history   []Turn
}

func NewSession(responder *Responder) *Session {
	return &Session{responder: responder}
}

// Ask answers question and appends both turns to the history on success.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	answer, err := s.responder.Respond(ctx, s.history, question)
	if err != nil {
		return "", err
	}
	s.history = append(s.history,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: answer},
	)
	return answer, nil
}

// History returns a copy of the turns so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

// Reset forgets the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
