package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// keywordEmbedder puts a 1 in the slot of every keyword the text contains.
type keywordEmbedder struct {
	keywords []string
	err      error
}

func (k *keywordEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	vec := make([]float32, len(k.keywords)+1)
	vec[len(k.keywords)] = 0.01
	lower := strings.ToLower(text)
	for i, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func (k *keywordEmbedder) Dimension() int { return len(k.keywords) + 1 }

// fakeModel records the messages it was sent and replies with answer.
type fakeModel struct {
	mu       sync.Mutex
	answer   string
	errs     []error
	calls    int
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = messages
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(m llms.MessageContent) string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

var errUnavailable = errors.New("API returned unexpected status code: 503: overloaded")
