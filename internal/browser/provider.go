// Package browser owns the single shared chromedp session. The session is
// launched on first acquire, cached for every later caller, and torn down
// exactly once by the owning command.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/metacrawl/metacrawl/internal/crawler"
)

// Options configure the launched browser. Visibility is an explicit field,
// not an environment toggle.
type Options struct {
	Headless   bool
	Proxy      string
	UserAgent  string
	NavTimeout time.Duration
}

// session is the launched browser plus its teardown.
type session interface {
	crawler.PageOpener
	close()
}

type launchFunc func(opts Options, logger *zap.Logger) (session, error)

// Provider lazily creates and caches one browser session.
type Provider struct {
	opts   Options
	logger *zap.Logger
	launch launchFunc

	mu   sync.Mutex
	sess session
}

// NewProvider builds a Provider. Nothing is launched until Acquire.
func NewProvider(opts Options, logger *zap.Logger) *Provider {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		opts:   opts,
		logger: logger,
		launch: launchChromedp,
	}
}

// Acquire returns the shared session, launching it on first use. The
// creation lock guarantees concurrent first callers share one launch. A
// failed launch is not cached; the next caller retries.
func (p *Provider) Acquire(ctx context.Context) (crawler.PageOpener, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire browser: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil {
		return p.sess, nil
	}
	p.logger.Info("launching browser",
		zap.Bool("headless", p.opts.Headless),
		zap.String("proxy", p.opts.Proxy))
	sess, err := p.launch(p.opts, p.logger)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	p.sess = sess
	return p.sess, nil
}

// Release tears down the session. Idempotent: releasing twice or with no
// session launched is a no-op.
func (p *Provider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return
	}
	p.logger.Info("closing browser")
	p.sess.close()
	p.sess = nil
}

// chromedpSession holds the allocator and browser contexts. Pages are
// tabs derived from the browser context; closing one never affects the
// shared session.
type chromedpSession struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	navTimeout    time.Duration
	userAgent     string
}

func launchChromedp(opts Options, _ *zap.Logger) (session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// Warm up so launch failures surface here, not on first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &chromedpSession{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		navTimeout:    opts.NavTimeout,
		userAgent:     opts.UserAgent,
	}, nil
}

// NewPage opens a fresh tab scoped to the caller.
func (s *chromedpSession) NewPage(ctx context.Context) (crawler.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	return &page{
		tabCtx:     tabCtx,
		tabCancel:  tabCancel,
		navTimeout: s.navTimeout,
		userAgent:  s.userAgent,
	}, nil
}

func (s *chromedpSession) close() {
	s.browserCancel()
	s.allocCancel()
}

type page struct {
	tabCtx     context.Context
	tabCancel  context.CancelFunc
	navTimeout time.Duration
	userAgent  string
	closeOnce  sync.Once
}

// Goto navigates and waits for the document body, the chromedp equivalent
// of a wait-until-load policy.
func (p *page) Goto(ctx context.Context, url string) error {
	taskCtx, cancel := context.WithTimeout(p.tabCtx, p.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if p.userAgent != "" {
		tasks = append(chromedp.Tasks{emulation.SetUserAgentOverride(p.userAgent)}, tasks...)
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return fmt.Errorf("chromedp navigate: %w", err)
	}
	return nil
}

// Content snapshots the rendered DOM.
func (p *page) Content(ctx context.Context) (string, error) {
	taskCtx, cancel := context.WithTimeout(p.tabCtx, p.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp content: %w", err)
	}
	if html == "" {
		return "", errors.New("empty document")
	}
	return html, nil
}

// Close releases the tab. Safe to call more than once.
func (p *page) Close() {
	p.closeOnce.Do(p.tabCancel)
}

// forwardCancel propagates cancellation of the caller's context into a
// chromedp task context.
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
