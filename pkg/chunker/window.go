package chunker

import "unicode"

// WindowChunker cuts fixed-size rune windows. Each window after the first
// starts Overlap runes before the end of the previous one.
type WindowChunker struct {
	Size    int
	Overlap int
}

// NewWindowChunker clamps overlap below size/2 so windows always advance.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 1500
	}
	if overlap < 0 {
		overlap = 0
	}
	if max := (size - 1) / 2; overlap > max {
		overlap = max
	}
	return &WindowChunker{Size: size, Overlap: overlap}
}

func (w *WindowChunker) Chunk(url, text string) ([]Chunk, error) {
	if skip(text) {
		return nil, nil
	}
	return buildChunks(url, w.split([]rune(text))), nil
}

func (w *WindowChunker) split(runes []rune) []string {
	var parts []string
	n := len(runes)
	start := 0
	for start < n {
		end := start + w.Size
		if end >= n {
			end = n
		} else {
			end = backoff(runes, start, end, w.Size/4)
		}
		parts = append(parts, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - w.Overlap
	}
	return parts
}

// backoff moves end back to just after the last whitespace within the final
// quarter of the window, if there is one.
func backoff(runes []rune, start, end, slack int) int {
	limit := end - slack
	for j := end; j > limit && j > start+1; j-- {
		if unicode.IsSpace(runes[j-1]) {
			return j
		}
	}
	return end
}
