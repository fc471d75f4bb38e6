// Package cmd defines and implements the CLI commands for the metacrawl
// executable.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metacrawl/metacrawl/internal/browser"
	"github.com/metacrawl/metacrawl/internal/clock/system"
	"github.com/metacrawl/metacrawl/internal/config"
	"github.com/metacrawl/metacrawl/internal/crawler"
	"github.com/metacrawl/metacrawl/internal/dispatcher"
	"github.com/metacrawl/metacrawl/internal/logging"
	"github.com/metacrawl/metacrawl/internal/report"
	"github.com/metacrawl/metacrawl/internal/webclient"
)

var cfgFile string

// rootOptions mirror the CrawlerInput plus output and network flags of the
// root command.
type rootOptions struct {
	sites         []string
	number        string
	appointURL    string
	filePath      string
	shortNumber   string
	mosaic        string
	appointNumber string
	language      string
	orgLanguage   string
	output        string
	proxy         string
	timeout       int
	retry         int
}

// Execute is the main entry point.
func Execute() {
	logger, err := logging.New(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd(logger).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "metacrawl",
		Short: "Fetch structured metadata from supported sites concurrently",
		Long: `metacrawl dispatches one crawl task per requested site, sharing a
single governed HTTP client and a lazily-launched browser session across
all tasks. Per-site failures are reported individually and never abort
the batch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, opts, logger)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml, then the user config dir)")

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.sites, "site", "s", nil, "site to crawl (repeatable)")
	flags.StringVarP(&opts.number, "number", "n", "", "media number to search for")
	flags.StringVarP(&opts.appointURL, "appoint-url", "u", "", "detail page URL to use instead of searching")
	flags.StringVarP(&opts.filePath, "file-path", "f", "", "local file path hint")
	flags.StringVar(&opts.shortNumber, "short-number", "", "short form of the number")
	flags.StringVarP(&opts.mosaic, "mosaic", "m", "", "mosaic hint")
	flags.StringVar(&opts.appointNumber, "appoint-number", "", "number override")
	flags.StringVarP(&opts.language, "language", "l", "", "result language")
	flags.StringVar(&opts.orgLanguage, "org-language", "", "original title language")
	flags.StringVarP(&opts.output, "output", "o", "", "result file path, {site} is substituted")
	flags.StringVarP(&opts.proxy, "proxy", "p", "", "proxy address, e.g. http://127.0.0.1:7890")
	flags.IntVarP(&opts.timeout, "timeout", "t", 5, "request timeout in seconds")
	flags.IntVarP(&opts.retry, "retry", "r", 1, "request attempts per URL")

	cmd.AddCommand(newFetchCmd(logger))
	cmd.AddCommand(newShowConfigCmd())
	return cmd
}

func runRoot(cmd *cobra.Command, opts *rootOptions, logger *zap.Logger) error {
	if len(opts.sites) == 0 {
		return fmt.Errorf("at least one --site is required (available: %s)", availableSites())
	}
	sites := make([]crawler.Site, 0, len(opts.sites))
	for _, s := range opts.sites {
		site, err := crawler.ParseSite(s)
		if err != nil {
			return err
		}
		sites = append(sites, site)
	}
	if opts.number == "" && opts.appointURL == "" {
		return errors.New("either --number or --appoint-url is required")
	}
	language, err := crawler.ParseLanguage(opts.language)
	if err != nil {
		return err
	}
	orgLanguage, err := crawler.ParseLanguage(opts.orgLanguage)
	if err != nil {
		return err
	}
	input := crawler.Input{
		Number:        opts.number,
		AppointURL:    opts.appointURL,
		FilePath:      opts.filePath,
		ShortNumber:   opts.shortNumber,
		Mosaic:        opts.mosaic,
		AppointNumber: opts.appointNumber,
		Language:      language,
		OrgLanguage:   orgLanguage,
	}

	cfg, _, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	net := resolveNetwork(cmd, cfg, opts.proxy, opts.timeout, opts.retry)

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

	d := dispatcher.New(client, provider, cfg.SiteURL, system.New(), logger)
	results := d.Dispatch(cmd.Context(), sites, input)

	printer := report.NewPrinter(cmd.OutOrStdout())
	for i, site := range sites {
		res := results[i]
		printer.PrintSiteResult(site, res)
		if res.Succeeded() && opts.output != "" {
			path, err := report.SaveJSON(opts.output, site, res.Data)
			if err != nil {
				return err
			}
			printer.Printf("Result saved to: %s\n", path)
		}
	}
	// Individual site failures are reported above; the batch itself
	// succeeded once every task reached a terminal state.
	return nil
}

// networkSettings are the effective proxy/timeout/retry after merging
// flags with configuration. Flags win only when explicitly set.
type networkSettings struct {
	proxy   string
	timeout time.Duration
	retry   int
}

func resolveNetwork(cmd *cobra.Command, cfg config.Config, proxy string, timeout, retry int) networkSettings {
	n := networkSettings{
		proxy:   cfg.EffectiveProxy(),
		timeout: time.Duration(cfg.Timeout) * time.Second,
		retry:   cfg.Retry,
	}
	flags := cmd.Flags()
	if flags.Changed("proxy") {
		n.proxy = proxy
	}
	if flags.Changed("timeout") {
		n.timeout = time.Duration(timeout) * time.Second
	}
	if flags.Changed("retry") {
		n.retry = retry
	}
	return n
}

func availableSites() string {
	all := crawler.AllSites()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
