package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// slowRenderSelectors gates the post-load wait for document platforms whose
// editors hydrate well after DOMContentLoaded. The wait for these hosts is
// longer and anchored on the editor surface appearing.
var slowRenderSelectors = map[string]string{
	"docs.google.com": ".kix-appview-editor",
	"notion.so":       ".notion-page-content",
	"notion.site":     ".notion-page-content",
}

const slowRenderExtraWait = 3 * time.Second

// ChromedpRenderer renders pages with headless Chrome. One browser process is
// shared across renders; each render runs in its own isolated tab.
type ChromedpRenderer struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	timeout         time.Duration
	postLoadWait    time.Duration
	domainQPS       float64
	domainLimiters  sync.Map
	userAgent       string
}

// NewChromedpRenderer launches the shared browser and verifies it responds.
// An error here means no Chrome is reachable; callers fall back to NoopRenderer.
func NewChromedpRenderer(cfg Settings, logger *zap.Logger) (*ChromedpRenderer, error) {
	if cfg.RenderMaxBrowser <= 0 {
		return nil, ErrRenderUnavailable
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &ChromedpRenderer{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, cfg.RenderMaxBrowser),
		timeout:         cfg.RenderTimeout,
		postLoadWait:    cfg.PostLoadWait,
		domainQPS:       cfg.RenderDomainQPS,
		userAgent:       cfg.UserAgent,
	}, nil
}

// Close tears down the chromedp allocator and browser contexts.
func (r *ChromedpRenderer) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.browserCancel()
	r.allocatorCancel()
	select {
	case <-ctx.Done():
	default:
	}
	return nil
}

// Render navigates with JavaScript enabled and returns the DOM snapshot after
// the configured post-load wait.
func (r *ChromedpRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	if r == nil {
		return "", ErrRenderUnavailable
	}
	rendersTotal.Inc()

	release, err := r.acquireSlot(ctx)
	if err != nil {
		renderFailuresTotal.Inc()
		return "", err
	}
	defer release()

	if waitErr := r.waitDomainBudget(ctx, rawURL); waitErr != nil {
		renderFailuresTotal.Inc()
		return "", fmt.Errorf("render rate limit: %w", waitErr)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	html, err := r.runChromedp(taskCtx, rawURL)
	if err != nil {
		renderFailuresTotal.Inc()
		r.logger.Warn("browser render failed", zap.String("url", rawURL), zap.Error(err))
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (r *ChromedpRenderer) runChromedp(ctx context.Context, rawURL string) (string, error) {
	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(r.userAgent),
		emulation.SetDeviceMetricsOverride(1366, 768, 1.0, false),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		r.postLoadAction(rawURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", err
	}
	return html, nil
}

// postLoadAction waits out client-side hydration. Known slow document hosts
// get a selector wait with a longer grace period; everything else gets the
// flat configured delay. A missing selector is tolerated, the snapshot is
// taken with whatever rendered.
func (r *ChromedpRenderer) postLoadAction(rawURL string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return r.settleAfterLoad(ctx, rawURL,
			func(ctx context.Context, sel string) error {
				return chromedp.WaitVisible(sel, chromedp.ByQuery).Do(ctx)
			},
			func(ctx context.Context, d time.Duration) error {
				return chromedp.Sleep(d).Do(ctx)
			})
	})
}

// settleAfterLoad holds the timing policy behind postLoadAction. On a slow
// host the selector wait consumes the whole grace period, so the snapshot is
// taken right after it regardless of outcome. Parent cancellation still
// propagates.
func (r *ChromedpRenderer) settleAfterLoad(ctx context.Context, rawURL string,
	waitVisible func(context.Context, string) error,
	sleep func(context.Context, time.Duration) error) error {
	if sel := slowSelectorFor(rawURL); sel != "" {
		selCtx, cancel := context.WithTimeout(ctx, r.postLoadWait+slowRenderExtraWait)
		err := waitVisible(selCtx, sel)
		cancel()
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	if r.postLoadWait <= 0 {
		return nil
	}
	return sleep(ctx, r.postLoadWait)
}

func slowSelectorFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for h, sel := range slowRenderSelectors {
		if host == h || strings.HasSuffix(host, "."+h) {
			return sel
		}
	}
	return ""
}

func (r *ChromedpRenderer) acquireSlot(ctx context.Context) (func(), error) {
	if r.sem == nil {
		return func() {}, nil
	}
	select {
	case r.sem <- struct{}{}:
		return func() { <-r.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (r *ChromedpRenderer) waitDomainBudget(ctx context.Context, rawURL string) error {
	if r.domainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := r.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(r.domainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
