package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// siteParser is the site-specific half of a crawler: URL generation and
// HTML parsing. The shared pipeline in base drives it.
type siteParser interface {
	site() Site
	defaultBaseURL() string
	// searchURLs generates candidate search page URLs from the input.
	searchURLs(tc *TaskContext, baseURL string) ([]string, error)
	// parseSearch extracts absolute detail-page URLs from a search page.
	parseSearch(tc *TaskContext, doc *goquery.Document, searchURL string) ([]string, error)
	// parseDetail extracts the metadata payload from a detail page.
	parseDetail(tc *TaskContext, doc *goquery.Document, detailURL string) (*Metadata, error)
}

// base implements the pipeline every site crawler shares: generate search
// URLs, find detail URLs, scrape the first detail page that parses, with
// the tri-state browser/HTTP fetch fallback underneath.
type base struct {
	deps   Deps
	parser siteParser
}

func newBase(deps Deps, p siteParser) *base {
	if deps.BaseURL == "" {
		deps.BaseURL = p.defaultBaseURL()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &base{deps: deps, parser: p}
}

func (b *base) Site() Site {
	return b.parser.site()
}

// Run executes the pipeline and captures every failure mode, panics
// included, into the result's DebugInfo.
func (b *base) Run(ctx context.Context, input Input) (res Result) {
	start := b.now()
	tc := NewTaskContext(input)
	tc.Debugf("input: number=%q appoint_url=%q mosaic=%q language=%s",
		input.Number, input.AppointURL, input.Mosaic, input.Language)

	defer func() {
		if r := recover(); r != nil {
			tc.Debugf("panic: %v", r)
			res = Result{Debug: DebugInfo{Error: fmt.Sprintf("panic: %v", r)}}
		}
		res.Debug.Logs = tc.Logs()
		res.Debug.ExecutionTime = b.now().Sub(start).Seconds()
	}()

	data, err := b.runPipeline(ctx, tc)
	if err != nil {
		tc.Debugf("pipeline failed: %v", err)
		return Result{Debug: DebugInfo{Error: err.Error()}}
	}
	return Result{Data: data}
}

func (b *base) runPipeline(ctx context.Context, tc *TaskContext) (*Metadata, error) {
	detailURLs, err := b.detailURLs(ctx, tc)
	if err != nil {
		return nil, err
	}

	for _, detailURL := range detailURLs {
		html, err := b.FetchDetail(ctx, tc, detailURL, ModeNever)
		if err != nil {
			tc.Debugf("detail fetch failed: url=%s err=%v", detailURL, err)
			continue
		}
		tc.Debugf("detail fetch ok: url=%s", detailURL)
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			tc.Debugf("detail parse failed: url=%s err=%v", detailURL, err)
			continue
		}
		data, err := b.parser.parseDetail(tc, doc, detailURL)
		if err != nil {
			tc.Debugf("detail extraction failed: url=%s err=%v", detailURL, err)
			continue
		}
		if data.ExternalID == "" {
			data.ExternalID = detailURL
		}
		data.Source = string(b.parser.site())
		return data, nil
	}
	return nil, errors.New("no detail page yielded data")
}

// detailURLs returns the appointed URL when given, otherwise runs the
// search flow: the first search page that fetches and parses wins.
func (b *base) detailURLs(ctx context.Context, tc *TaskContext) ([]string, error) {
	if tc.Input.AppointURL != "" {
		tc.Debugf("using appointed detail url: %s", tc.Input.AppointURL)
		return []string{tc.Input.AppointURL}, nil
	}

	searchURLs, err := b.parser.searchURLs(tc, b.deps.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("generate search urls: %w", err)
	}
	if len(searchURLs) == 0 {
		return nil, errors.New("no search url could be generated")
	}
	tc.Debugf("search urls: %v", searchURLs)

	for _, searchURL := range searchURLs {
		html, err := b.FetchDetail(ctx, tc, searchURL, ModeNever)
		if err != nil {
			tc.Debugf("search fetch failed: url=%s err=%v", searchURL, err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			tc.Debugf("search parse failed: url=%s err=%v", searchURL, err)
			continue
		}
		detailURLs, err := b.parser.parseSearch(tc, doc, searchURL)
		if err != nil || len(detailURLs) == 0 {
			tc.Debugf("no detail urls on search page: url=%s err=%v", searchURL, err)
			continue
		}
		tc.Debugf("detail urls: %v", detailURLs)
		return detailURLs, nil
	}
	return nil, errors.New("search yielded no detail urls")
}

// FetchDetail applies the browser override. Anything but ModeNever tries
// the browser first; ModeForce fails hard when rendering fails, ModeDefault
// falls back to a plain HTTP fetch.
func (b *base) FetchDetail(ctx context.Context, tc *TaskContext, url string, mode BrowserMode) (string, error) {
	if mode != ModeNever {
		html, err := b.browserFetch(ctx, url)
		if err == nil {
			return html, nil
		}
		if mode == ModeForce {
			return "", fmt.Errorf("forced browser fetch failed: %w", err)
		}
		tc.Debugf("browser fetch failed, falling back to http: %v", err)
	}
	return b.deps.Client.GetText(ctx, url)
}

func (b *base) browserFetch(ctx context.Context, url string) (string, error) {
	if b.deps.Browser == nil {
		return "", errors.New("no browser session wired")
	}
	handle, err := b.deps.Browser.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire browser: %w", err)
	}
	page, err := handle.NewPage(ctx)
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.Goto(ctx, url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
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

func (b *base) now() time.Time {
	if b.deps.Clock != nil {
		return b.deps.Clock.Now()
	}
	return time.Now()
}
