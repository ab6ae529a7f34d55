// Package crawler renders pages of one site and walks its internal links.
package crawler

import (
	"context"
	"errors"
	"strings"
)

// FailurePrefix starts the value recorded for a page that could not be rendered.
const FailurePrefix = "Failed to scrape: "

var (
	ErrInvalidBaseURL  = errors.New("invalid base URL")
	ErrInvalidMaxPages = errors.New("maxPages must be positive")
)

// Page is a rendered page: its visible text and the in-scope links found on it.
type Page struct {
	URL   string
	Text  string
	Links []string
}

// Renderer turns a URL into a Page. A renderer is used by one crawl at a time.
type Renderer interface {
	Render(ctx context.Context, url string) (*Page, error)
	Close() error
}

// RendererFactory opens a renderer for a crawl limited to scope.
type RendererFactory func(ctx context.Context, scope Scope) (Renderer, error)

// Results maps every visited URL to its text or a failure marker.
type Results map[string]string

// FailureText is the marker stored for a page whose render failed.
func FailureText(err error) string {
	return FailurePrefix + err.Error()
}

// IsFailure reports whether text is a failure marker.
func IsFailure(text string) bool {
	return strings.HasPrefix(text, FailurePrefix)
}

// Failed returns the URLs whose render failed.
func (r Results) Failed() []string {
	var urls []string
	for u, text := range r {
		if IsFailure(text) {
			urls = append(urls, u)
		}
	}
	return urls
}
