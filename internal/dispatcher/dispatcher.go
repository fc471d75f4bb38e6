// Package dispatcher runs one crawl task per requested site concurrently
// and joins them into an ordered result list.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metacrawl/metacrawl/internal/crawler"
)

// Dispatcher owns the shared resources a dispatch hands to each task.
type Dispatcher struct {
	client  crawler.TextGetter
	browser crawler.BrowserSource
	baseURL func(crawler.Site) string
	resolve func(crawler.Site) (crawler.Factory, bool)
	clk     crawler.Clock
	logger  *zap.Logger
}

// New creates a Dispatcher. baseURL may be nil when every site should use
// its default; resolve defaults to the package registry.
func New(
	client crawler.TextGetter,
	browser crawler.BrowserSource,
	baseURL func(crawler.Site) string,
	clk crawler.Clock,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		client:  client,
		browser: browser,
		baseURL: baseURL,
		resolve: crawler.Resolve,
		clk:     clk,
		logger:  logger,
	}
}

// Dispatch runs one task per site and blocks until all reach a terminal
// state. The returned slice has the same length and order as sites:
// results[i] always describes sites[i], whatever the completion order.
// A failing task only ever fills its own slot.
func (d *Dispatcher) Dispatch(ctx context.Context, sites []crawler.Site, input crawler.Input) []crawler.Result {
	results := make([]crawler.Result, len(sites))

	g := new(errgroup.Group)
	for i, site := range sites {
		i, site := i, site
		g.Go(func() error {
			results[i] = d.runTask(ctx, site, input)
			// Failures stay in their slot; returning them would make the
			// group treat one bad site as a batch error.
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) runTask(ctx context.Context, site crawler.Site, input crawler.Input) (res crawler.Result) {
	taskID := uuid.NewString()
	log := d.logger.With(
		zap.String("task_id", taskID),
		zap.String("site", string(site)),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", zap.Any("panic", r))
			res = crawler.Result{Debug: crawler.DebugInfo{
				Error: fmt.Sprintf("panic: %v", r),
			}}
		}
	}()

	factory, ok := d.resolve(site)
	if !ok {
		log.Warn("no crawler registered")
		return crawler.Result{Debug: crawler.DebugInfo{
			Error: fmt.Sprintf("no crawler registered for site %q", site),
		}}
	}

	c := factory(crawler.Deps{
		Client:  d.client,
		BaseURL: d.siteBaseURL(site),
		Browser: d.browser,
		Logger:  log,
		Clock:   d.clk,
	})

	log.Debug("task started")
	res = c.Run(ctx, input)
	log.Info("task finished",
		zap.Bool("success", res.Succeeded()),
		zap.Float64("seconds", res.Debug.ExecutionTime))
	return res
}

func (d *Dispatcher) siteBaseURL(site crawler.Site) string {
	if d.baseURL == nil {
		return ""
	}
	return d.baseURL(site)
}
