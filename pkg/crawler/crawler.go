package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/mikeboe/sitechat/pkg/metrics"
)

// PageEvent reports one visited page.
type PageEvent struct {
	URL      string
	Err      error
	Links    int
	Visited  int
	MaxPages int
}

// Crawler walks one site, rendering one page at a time.
type Crawler struct {
	newRenderer RendererFactory
	logger      *slog.Logger
	onPage      func(PageEvent)
}

type Option func(*Crawler)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnPage registers a callback invoked after every visited page.
func WithOnPage(fn func(PageEvent)) Option {
	return func(c *Crawler) {
		c.onPage = fn
	}
}

func New(factory RendererFactory, opts ...Option) *Crawler {
	c := &Crawler{newRenderer: factory, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl visits at most maxPages in-scope pages reachable from baseURL.
// A page that fails to render is recorded with a failure marker and the
// crawl goes on. If ctx is cancelled the results gathered so far are
// returned together with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, baseURL string, maxPages int) (Results, error) {
	scope, start, err := NewScope(baseURL)
	if err != nil {
		return nil, err
	}
	if maxPages <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidMaxPages, maxPages)
	}

	renderer, err := c.newRenderer(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to open renderer: %w", err)
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			c.logger.Warn("Failed to close renderer", "error", err)
		}
	}()

	c.logger.Info("Starting crawl", "url", start, "max_pages", maxPages)

	frontier := newFrontier()
	frontier.push(start)
	visited := make(map[string]struct{})
	results := make(Results)

	for frontier.len() > 0 && len(visited) < maxPages {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		current := frontier.pop()
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		page, err := renderer.Render(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			results[current] = FailureText(err)
			metrics.Get().PagesCrawled.WithLabelValues("failed").Inc()
			c.logger.Warn("Failed to scrape page", "url", current, "error", err)
			c.notify(PageEvent{URL: current, Err: err, Visited: len(visited), MaxPages: maxPages})
			continue
		}

		results[current] = page.Text
		metrics.Get().PagesCrawled.WithLabelValues("ok").Inc()

		added := 0
		for _, link := range inScope(scope, page, current) {
			if _, seen := visited[link]; seen {
				continue
			}
			if frontier.push(link) {
				added++
			}
		}
		c.logger.Info("Scraped page", "url", current, "chars", len(page.Text), "new_links", added, "visited", len(visited))
		c.notify(PageEvent{URL: current, Links: added, Visited: len(visited), MaxPages: maxPages})
	}

	c.logger.Info("Crawl finished", "url", start, "pages", len(results), "failed", len(results.Failed()))
	return results, nil
}

func (c *Crawler) notify(ev PageEvent) {
	if c.onPage != nil {
		c.onPage(ev)
	}
}

// inScope re-resolves the renderer's links, so every frontier entry is
// absolute, fragment-free and inside the crawl scope.
func inScope(scope Scope, page *Page, requested string) []string {
	base := page.URL
	if base == "" {
		base = requested
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	links := make([]string, 0, len(page.Links))
	for _, l := range page.Links {
		if abs, ok := scope.Resolve(baseURL, l); ok {
			links = append(links, abs)
		}
	}
	return links
}

// frontier is a set of pending URLs with stack order.
type frontier struct {
	stack   []string
	pending map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{pending: make(map[string]struct{})}
}

// push adds u unless it is already pending.
func (f *frontier) push(u string) bool {
	if _, ok := f.pending[u]; ok {
		return false
	}
	f.pending[u] = struct{}{}
	f.stack = append(f.stack, u)
	return true
}

func (f *frontier) pop() string {
	u := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	delete(f.pending, u)
	return u
}

func (f *frontier) len() int {
	return len(f.stack)
}
