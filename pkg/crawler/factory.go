package crawler

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	RendererChrome = "chrome"
	RendererStatic = "static"
)

// FactoryFor returns the renderer factory registered under name.
func FactoryFor(name string, settle time.Duration, logger *slog.Logger) (RendererFactory, error) {
	switch name {
	case "", RendererChrome:
		return NewChromeFactory(ChromeOptions{Settle: settle, Logger: logger}), nil
	case RendererStatic:
		return NewStaticFactory(StaticOptions{}), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", name)
	}
}
