package crawler

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticOptions configures the plain HTTP renderer.
type StaticOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticRenderer fetches pages over HTTP without running scripts.
type StaticRenderer struct {
	opts  StaticOptions
	scope Scope
}

// NewStaticFactory returns a factory for StaticRenderer.
func NewStaticFactory(opts StaticOptions) RendererFactory {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return func(_ context.Context, scope Scope) (Renderer, error) {
		return &StaticRenderer{opts: opts, scope: scope}, nil
	}
}

func (r *StaticRenderer) Render(ctx context.Context, pageURL string) (*Page, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(r.opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(r.opts.Timeout)

	var (
		body     []byte
		finalURL = pageURL
		visitErr error
	)
	c.OnResponse(func(resp *colly.Response) {
		body = resp.Body
		finalURL = resp.Request.URL.String()
	})
	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil && resp.StatusCode != 0 {
			visitErr = fmt.Errorf("%s returned status %d: %w", pageURL, resp.StatusCode, err)
			return
		}
		visitErr = err
	})

	if err := c.Visit(pageURL); err != nil && visitErr == nil {
		visitErr = err
	}
	if visitErr != nil {
		return nil, visitErr
	}
	return extract(finalURL, bytes.NewReader(body), r.scope)
}

func (r *StaticRenderer) Close() error {
	return nil
}
