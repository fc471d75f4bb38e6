package report

import (
	"path/filepath"
	"strings"

	"github.com/metacrawl/metacrawl/internal/crawler"
)

// DerivePath builds the output path for a fetched detail page when the
// caller gave no explicit path: baseDir, then the site name when known,
// then a filename taken from the number or from the URL's final segment
// with filesystem-hostile query characters replaced.
func DerivePath(baseDir string, site crawler.Site, number, rawURL string) string {
	filename := "detail.html"
	switch {
	case number != "":
		filename = number + ".html"
	default:
		if segment := lastURLSegment(rawURL); segment != "" {
			replacer := strings.NewReplacer("=", "_", "?", "_", "&", "_")
			filename = replacer.Replace(segment) + ".html"
		}
	}
	if site != "" {
		return filepath.Join(baseDir, string(site), filename)
	}
	return filepath.Join(baseDir, filename)
}

func lastURLSegment(rawURL string) string {
	trimmed := strings.Trim(rawURL, "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}
