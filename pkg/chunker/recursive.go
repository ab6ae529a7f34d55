package chunker

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// RecursiveChunker wraps the langchaingo recursive character splitter, which
// prefers paragraph, then line, then word boundaries.
type RecursiveChunker struct {
	splitter textsplitter.TextSplitter
}

// NewRecursiveChunker creates a recursive character chunker
func NewRecursiveChunker(chunkSize, chunkOverlap int) *RecursiveChunker {
	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	return &RecursiveChunker{splitter: ts}
}

func (r *RecursiveChunker) Chunk(url, text string) ([]Chunk, error) {
	if skip(text) {
		return nil, nil
	}
	parts, err := r.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	return buildChunks(url, parts), nil
}
