// Package chunker splits crawled page text into bounded, addressable chunks.
package chunker

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mikeboe/sitechat/pkg/crawler"
)

const (
	StrategyWindow    = "window"
	StrategyRecursive = "recursive"
)

// Chunk is one embeddable slice of a page.
type Chunk struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Chunker splits the text of a single page. The same input always yields the same chunks.
type Chunker interface {
	Chunk(url, text string) ([]Chunk, error)
}

// ChunkID builds the "<url>#chunk-<index>" identifier.
func ChunkID(url string, index int) string {
	return fmt.Sprintf("%s#chunk-%d", url, index)
}

// New returns the chunker for a strategy name.
func New(strategy string, size, overlap int) (Chunker, error) {
	switch strategy {
	case "", StrategyWindow:
		return NewWindowChunker(size, overlap), nil
	case StrategyRecursive:
		return NewRecursiveChunker(size, overlap), nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", strategy)
	}
}

// skip reports whether a page has nothing worth chunking.
func skip(text string) bool {
	return strings.TrimSpace(text) == "" || crawler.IsFailure(text)
}

func buildChunks(url string, parts []string) []Chunk {
	chunks := make([]Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, Chunk{ID: ChunkID(url, len(chunks)), URL: url, Text: p})
	}
	return chunks
}

// ChunkResults chunks a whole crawl, page by page in URL order.
func ChunkResults(c Chunker, results crawler.Results) ([]Chunk, error) {
	urls := make([]string, 0, len(results))
	for u := range results {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var all []Chunk
	for _, u := range urls {
		chunks, err := c.Chunk(u, results[u])
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s: %w", u, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// WriteChunks stores chunks as a JSON array, replacing any existing file.
func WriteChunks(path string, chunks []Chunk) error {
	if chunks == nil {
		chunks = []Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write chunks to %s: %w", path, err)
	}
	return nil
}

// ReadChunks loads a chunk file written by WriteChunks.
func ReadChunks(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks from %s: %w", path, err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to parse chunks in %s: %w", path, err)
	}
	return chunks, nil
}
