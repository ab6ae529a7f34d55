package embeddings

import (
	"context"
	"sync"
)

// scriptedEmbedder returns the queued errors first, then a fixed vector.
type scriptedEmbedder struct {
	mu    sync.Mutex
	errs  []error
	calls int
	dim   int
}

func (s *scriptedEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return make([]float32, s.dim), nil
}

func (s *scriptedEmbedder) Dimension() int { return s.dim }
