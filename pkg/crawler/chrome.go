package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// popupSelector matches the usual overlay close buttons.
const popupSelector = "button[class*='popup-close'], .close, .close-popup, .login-close"

// ChromeOptions configures the headless browser renderer.
type ChromeOptions struct {
	UserAgent string
	// Settle is how long client-side rendering gets after the body is ready.
	Settle time.Duration
	// PopupSettle is the wait after a popup was dismissed.
	PopupSettle time.Duration
	Timeout     time.Duration
	// ShowBrowser runs Chrome with a visible window.
	ShowBrowser bool
	Logger      *slog.Logger
}

// ChromeRenderer renders pages in one headless Chrome tab.
type ChromeRenderer struct {
	opts          ChromeOptions
	scope         Scope
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	logger        *slog.Logger
}

// NewChromeFactory returns a factory that starts a browser per crawl.
func NewChromeFactory(opts ChromeOptions) RendererFactory {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.PopupSettle <= 0 {
		opts.PopupSettle = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return func(ctx context.Context, scope Scope) (Renderer, error) {
		return NewChromeRenderer(ctx, scope, opts)
	}
}

// NewChromeRenderer launches the browser. Close must be called to stop it.
func NewChromeRenderer(ctx context.Context, scope Scope, opts ChromeOptions) (*ChromeRenderer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1280, 800),
	)
	if opts.ShowBrowser {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	// The browser outlives single requests, so it is not tied to ctx.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeRenderer{
		opts:          opts,
		scope:         scope,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		logger:        logger,
	}, nil
}

func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (*Page, error) {
	runCtx, cancel := context.WithTimeout(r.browserCtx, r.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.opts.Settle),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}

	r.dismissPopup(runCtx, pageURL)

	var location, html string
	err = chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read content of %s: %w", pageURL, err)
	}
	if location == "" {
		location = pageURL
	}
	return extract(location, strings.NewReader(html), r.scope)
}

// dismissPopup clicks the first overlay close button, if any. Failures are only logged.
func (r *ChromeRenderer) dismissPopup(ctx context.Context, pageURL string) {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(popupSelector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		r.logger.Debug("Popup lookup failed", "url", pageURL, "error", err)
		return
	}
	if len(nodes) == 0 {
		r.logger.Debug("No popup found", "url", pageURL)
		return
	}
	if err := chromedp.Run(ctx, chromedp.MouseClickNode(nodes[0]), chromedp.Sleep(r.opts.PopupSettle)); err != nil {
		r.logger.Debug("Could not close popup", "url", pageURL, "error", err)
		return
	}
	r.logger.Debug("Closed popup", "url", pageURL)
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() error {
	r.cancelBrowser()
	r.cancelAlloc()
	return nil
}
