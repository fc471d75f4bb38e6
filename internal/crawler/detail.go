package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DetailFetcher is the single-URL fallback machine. States in order,
// first match wins: site-specific strategy, forced browser rendering,
// plain HTTP fetch. Output obeys html XOR error.
type DetailFetcher struct {
	Client  TextGetter
	Browser BrowserSource
	// BaseURL resolves a site's configured base URL; empty selects the
	// crawler's default. Nil is allowed.
	BaseURL func(Site) string
	Logger  *zap.Logger
}

// Fetch retrieves rawURL. An empty site means no site is known (explicit
// or auto-detected); useBrowser then selects between generic rendering
// and plain HTTP.
func (f *DetailFetcher) Fetch(ctx context.Context, rawURL string, site Site, useBrowser bool) (string, error) {
	log := f.logger()

	if site != "" {
		factory, ok := Resolve(site)
		if !ok {
			return "", fmt.Errorf("no crawler registered for site %q", site)
		}
		deps := Deps{
			Client:  f.Client,
			BaseURL: f.baseURL(site),
			Logger:  log,
		}
		// Wiring the browser only when requested lets the strategy's
		// default policy (ModeDefault) decide whether to render.
		if useBrowser {
			deps.Browser = f.Browser
		}
		c := factory(deps)

		input := EmptyInput()
		input.AppointURL = rawURL
		tc := NewTaskContext(input)

		html, err := c.FetchDetail(ctx, tc, rawURL, ModeDefault)
		for _, line := range tc.Logs() {
			log.Debug(line, zap.String("site", string(site)))
		}
		return html, err
	}

	if useBrowser {
		return f.renderPage(ctx, rawURL)
	}
	return f.Client.GetText(ctx, rawURL)
}

// renderPage is the generic browser-rendered path: scoped page, navigate
// with wait-until-load, read the rendered content back.
func (f *DetailFetcher) renderPage(ctx context.Context, rawURL string) (string, error) {
	if f.Browser == nil {
		return "", errors.New("no browser session wired")
	}
	handle, err := f.Browser.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire browser: %w", err)
	}
	page, err := handle.NewPage(ctx)
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.Goto(ctx, rawURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	html, err := page.Content(ctx)
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	if html == "" {
		return "", errors.New("empty page content")
	}
	return html, nil
}

func (f *DetailFetcher) baseURL(site Site) string {
	if f.BaseURL == nil {
		return ""
	}
	return f.BaseURL(site)
}

func (f *DetailFetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
