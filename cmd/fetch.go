package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metacrawl/metacrawl/internal/browser"
	"github.com/metacrawl/metacrawl/internal/config"
	"github.com/metacrawl/metacrawl/internal/crawler"
	"github.com/metacrawl/metacrawl/internal/report"
	"github.com/metacrawl/metacrawl/internal/webclient"
)

type fetchOptions struct {
	site       string
	useBrowser bool
	output     string
	number     string
	baseDir    string
	proxy      string
	timeout    int
	retry      int
}

func newFetchCmd(logger *zap.Logger) *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a single detail page and save the raw HTML",
		Long: `Fetches one URL through the best available strategy: the site's own
crawler when the site is known (explicitly or auto-detected from the
URL), otherwise a browser-rendered fetch when requested, otherwise a
plain HTTP GET.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.site, "site", "s", "", "site type; auto-detected from the URL when omitted")
	flags.BoolVarP(&opts.useBrowser, "use-browser", "b", false, "render the page in the browser")
	flags.StringVarP(&opts.output, "output", "o", "", "explicit output file path")
	flags.StringVarP(&opts.number, "number", "n", "", "number used to name the output file")
	flags.StringVarP(&opts.baseDir, "base-dir", "d", "tests/crawlers/data", "base output directory")
	flags.StringVarP(&opts.proxy, "proxy", "p", "", "proxy address, e.g. http://127.0.0.1:7890")
	flags.IntVarP(&opts.timeout, "timeout", "t", 5, "request timeout in seconds")
	flags.IntVarP(&opts.retry, "retry", "r", 1, "request attempts per URL")
	return cmd
}

func runFetch(cmd *cobra.Command, rawURL string, opts *fetchOptions, logger *zap.Logger) error {
	out := cmd.OutOrStdout()

	var site crawler.Site
	if opts.site != "" {
		parsed, err := crawler.ParseSite(opts.site)
		if err != nil {
			return err
		}
		site = parsed
	} else if detected, ok := crawler.DetectSite(rawURL); ok {
		site = detected
		fmt.Fprintf(out, "Auto-detected site: %s\n", site)
	}

	cfg, _, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	net := resolveNetwork(cmd, cfg, opts.proxy, opts.timeout, opts.retry)

	fmt.Fprintf(out, "Fetching: %s\n", rawURL)
	if net.proxy != "" {
		fmt.Fprintf(out, "Proxy: %s\n", net.proxy)
	}

	client, err := webclient.New(webclient.Options{
		Proxy:     net.proxy,
		Timeout:   net.timeout,
		Retry:     net.retry,
		UserAgent: cfg.UserAgent,
		HostQPS:   cfg.HostQPS,
		LogFunc:   func(msg string) { logger.Debug(msg, zap.String("component", "webclient")) },
	})
	if err != nil {
		return err
	}

	provider := browser.NewProvider(browser.Options{
		Headless:   cfg.Browser.Headless,
		Proxy:      net.proxy,
		UserAgent:  cfg.UserAgent,
		NavTimeout: time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
	}, logger)
	defer provider.Release()

	fetcher := &crawler.DetailFetcher{
		Client:  client,
		Browser: provider,
		BaseURL: cfg.SiteURL,
		Logger:  logger,
	}
	html, err := fetcher.Fetch(cmd.Context(), rawURL, site, opts.useBrowser)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	outPath := opts.output
	if outPath == "" {
		outPath = report.DerivePath(opts.baseDir, site, opts.number, rawURL)
	}
	n, err := report.WriteHTML(outPath, html)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved to: %s (%d bytes)\n", outPath, n)
	return nil
}
