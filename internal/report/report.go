// Package report renders per-site crawl outcomes and persists artifacts:
// pretty JSON for batch results, raw HTML for single-URL fetches.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/metacrawl/metacrawl/internal/crawler"
)

// Printer writes human-readable per-site blocks.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer on w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintSiteResult writes one labeled block for a site, in the same shape
// for success and failure: header, debug log, timing, then payload or the
// captured error verbatim.
func (p *Printer) PrintSiteResult(site crawler.Site, res crawler.Result) {
	fmt.Fprintf(p.w, "\n====== Result from site: %s ======\n", site)
	if len(res.Debug.Logs) > 0 {
		fmt.Fprintln(p.w, "Debug log:")
		for _, line := range res.Debug.Logs {
			fmt.Fprintf(p.w, "\t%s\n", line)
		}
	}
	fmt.Fprintf(p.w, "Took %.2f seconds\n", res.Debug.ExecutionTime)

	if !res.Succeeded() {
		fmt.Fprintf(p.w, "Failed: %s\n", res.Debug.Error)
		return
	}
	payload, err := json.MarshalIndent(res.Data, "", "  ")
	if err != nil {
		fmt.Fprintf(p.w, "Succeeded, but result could not be rendered: %v\n", err)
		return
	}
	fmt.Fprintf(p.w, "Succeeded:\n%s\n", payload)
}

// Printf writes a free-form status line.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// SaveJSON persists a success payload under the output template, with
// every "{site}" placeholder replaced. Parent directories are created.
// Returns the resolved path.
func SaveJSON(template string, site crawler.Site, data *crawler.Metadata) (string, error) {
	path := strings.ReplaceAll(template, "{site}", string(site))
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create output dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return "", fmt.Errorf("write result %s: %w", path, err)
	}
	return path, nil
}

// WriteHTML persists raw page HTML, creating parent directories, and
// returns the number of bytes written.
func WriteHTML(path, html string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fmt.Errorf("create output dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		return 0, fmt.Errorf("write html %s: %w", path, err)
	}
	return len(html), nil
}
