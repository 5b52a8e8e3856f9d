package crawl

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrRenderUnavailable is returned by renderers that have no browser backend.
// Callers treat it as a capability check, not a failure: the HTTP-fetched
// content stays in use.
var ErrRenderUnavailable = errors.New("browser renderer unavailable")

// Renderer turns a URL into fully rendered HTML using a real browser.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
	Close(ctx context.Context) error
}

// NoopRenderer is the stand-in used when rendering is disabled or no browser
// could be started.
type NoopRenderer struct{}

// Render always reports the capability as unavailable.
func (NoopRenderer) Render(context.Context, string) (string, error) {
	return "", ErrRenderUnavailable
}

// Close is a no-op.
func (NoopRenderer) Close(context.Context) error { return nil }

// NewRenderer probes browser availability once at startup and returns either a
// chromedp-backed renderer or the noop fallback. Probe failure is expected on
// hosts without Chrome and is logged, not propagated.
func NewRenderer(cfg Settings, logger *zap.Logger) Renderer {
	if !cfg.RenderEnabled {
		return NoopRenderer{}
	}
	r, err := NewChromedpRenderer(cfg, logger)
	if err != nil {
		logger.Warn("browser renderer unavailable, continuing without it", zap.Error(err))
		return NoopRenderer{}
	}
	return r
}
