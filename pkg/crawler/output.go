package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// WriteResults stores results as indented JSON keyed by URL, replacing any existing file.
func WriteResults(path string, results Results) error {
	if results == nil {
		results = Results{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode crawl results: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write crawl results to %s: %w", path, err)
	}
	return nil
}

// ReadResults loads a file written by WriteResults.
func ReadResults(path string) (Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crawl results from %s: %w", path, err)
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse crawl results in %s: %w", path, err)
	}
	return results, nil
}
