package crawler

import (
	"fmt"
	"strings"
)

// Site identifies one of the supported external sites. The set is closed;
// it serves as both the dispatch key and the display label.
type Site string

// Supported sites.
const (
	SiteJavbus  Site = "javbus"
	SiteJavdb   Site = "javdb"
	SiteAirav   Site = "airav"
	SiteAvsox   Site = "avsox"
	SiteDmm     Site = "dmm"
	SiteMgstage Site = "mgstage"
	SiteJav321  Site = "jav321"
	SiteFc2     Site = "fc2"
)

// AllSites lists every supported site in display order.
func AllSites() []Site {
	return []Site{
		SiteJavbus,
		SiteJavdb,
		SiteAirav,
		SiteAvsox,
		SiteDmm,
		SiteMgstage,
		SiteJav321,
		SiteFc2,
	}
}

// ParseSite validates a CLI string against the closed site set.
func ParseSite(s string) (Site, error) {
	for _, site := range AllSites() {
		if strings.EqualFold(s, string(site)) {
			return site, nil
		}
	}
	return "", fmt.Errorf("unknown site %q", s)
}

// siteKeywords maps URL substrings to sites. Order matters: the first
// keyword found in the URL wins, so more specific hosts come first.
var siteKeywords = []struct {
	keyword string
	site    Site
}{
	{"javbus", SiteJavbus},
	{"javdb", SiteJavdb},
	{"airav", SiteAirav},
	{"avsox", SiteAvsox},
	{"dmm.co.jp", SiteDmm},
	{"mgstage", SiteMgstage},
	{"jav321", SiteJav321},
	{"fc2", SiteFc2},
}

// DetectSite guesses the site for a URL by case-insensitive substring
// match against the keyword table. A miss is not an error; the second
// return value reports whether anything matched.
func DetectSite(rawURL string) (Site, bool) {
	lower := strings.ToLower(rawURL)
	for _, entry := range siteKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.site, true
		}
	}
	return "", false
}
