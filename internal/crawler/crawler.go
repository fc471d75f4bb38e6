package crawler

import (
	"context"

	"go.uber.org/zap"
)

// BrowserMode controls whether a fetch goes through the browser.
type BrowserMode int

// Browser override values for FetchDetail. ModeDefault lets the crawler
// apply its own policy: use the browser when a session source is wired,
// fall back to plain HTTP when it is not or when rendering fails.
const (
	ModeDefault BrowserMode = iota
	ModeForce
	ModeNever
)

// TextGetter is the shared HTTP client surface the core consumes.
type TextGetter interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Page is one scoped browser tab. It never outlives the call that opened
// it; Close releases the tab without touching the shared session.
type Page interface {
	Goto(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	Close()
}

// PageOpener is a live browser session handle.
type PageOpener interface {
	NewPage(ctx context.Context) (Page, error)
}

// BrowserSource lazily provides the shared browser session.
type BrowserSource interface {
	Acquire(ctx context.Context) (PageOpener, error)
}

// Crawler is the per-site extraction strategy.
type Crawler interface {
	// Site returns the site this crawler serves.
	Site() Site
	// Run executes the full search-and-scrape pipeline for one input.
	// It never returns a fault: errors and panics are captured into the
	// result's DebugInfo.
	Run(ctx context.Context, input Input) Result
	// FetchDetail retrieves one detail page's HTML, honoring the browser
	// override. Exactly one of (html, err) is set.
	FetchDetail(ctx context.Context, tc *TaskContext, url string, mode BrowserMode) (string, error)
}

// Deps are the shared resources handed to each crawler instance. None of
// them are owned by the crawler; lifetime belongs to the invoking command.
type Deps struct {
	Client  TextGetter
	BaseURL string // empty means the site's default
	Browser BrowserSource
	Logger  *zap.Logger
	Clock   Clock
}

// Factory constructs a crawler bound to shared resources.
type Factory func(deps Deps) Crawler

var registry = map[Site]Factory{}

// Register adds a site strategy. Called from init; last write wins.
func Register(site Site, f Factory) {
	registry[site] = f
}

// Resolve looks up the factory for a site. Sites in the closed set without
// an implementation resolve to false.
func Resolve(site Site) (Factory, bool) {
	f, ok := registry[site]
	return f, ok
}
