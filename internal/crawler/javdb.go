package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func init() {
	Register(SiteJavdb, func(deps Deps) Crawler {
		return newBase(deps, javdbParser{})
	})
}

type javdbParser struct{}

func (javdbParser) site() Site             { return SiteJavdb }
func (javdbParser) defaultBaseURL() string { return "https://javdb.com" }

func (javdbParser) searchURLs(tc *TaskContext, baseURL string) ([]string, error) {
	number := tc.Input.Number
	if number == "" {
		number = tc.Input.AppointNumber
	}
	if number == "" {
		return nil, errors.New("a number is required to search javdb")
	}
	return []string{
		fmt.Sprintf("%s/search?q=%s&f=all", baseURL, url.QueryEscape(number)),
	}, nil
}

func (javdbParser) parseSearch(tc *TaskContext, doc *goquery.Document, searchURL string) ([]string, error) {
	number := strings.ToUpper(tc.Input.Number)
	var urls []string
	doc.Find("div.movie-list div.item a.box").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		// Search results are fuzzy; keep entries whose video id matches
		// the requested number when one was supplied.
		id := strings.ToUpper(strings.TrimSpace(s.Find("div.video-title strong").First().Text()))
		if number != "" && id != "" && id != number {
			return
		}
		urls = append(urls, absoluteURL(searchURL, href))
	})
	return urls, nil
}

func (javdbParser) parseDetail(tc *TaskContext, doc *goquery.Document, detailURL string) (*Metadata, error) {
	titleSel := doc.Find("h2.title").First()
	title := strings.TrimSpace(titleSel.Find("strong.current-title").Text())
	if title == "" {
		title = strings.TrimSpace(titleSel.Text())
	}
	if title == "" {
		return nil, errors.New("no title on detail page")
	}

	data := &Metadata{
		Title:         title,
		OriginalTitle: strings.TrimSpace(titleSel.Find("span.origin-title").Text()),
		ExternalID:    detailURL,
	}
	if data.OriginalTitle == "" {
		data.OriginalTitle = title
	}

	doc.Find("nav.panel div.panel-block").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Find("strong").First().Text())
		value := s.Find("span.value").First()
		switch {
		case strings.HasPrefix(label, "ID"), strings.Contains(label, "番號"):
			data.Number = strings.TrimSpace(value.Text())
		case strings.Contains(label, "Released"), strings.Contains(label, "日期"):
			data.Release = strings.TrimSpace(value.Text())
		case strings.Contains(label, "Duration"), strings.Contains(label, "時長"):
			data.Runtime = strings.TrimSuffix(strings.TrimSpace(value.Text()), " 分鍾")
		case strings.Contains(label, "Director"), strings.Contains(label, "導演"):
			data.Director = strings.TrimSpace(value.Find("a").First().Text())
		case strings.Contains(label, "Maker"), strings.Contains(label, "片商"):
			data.Studio = strings.TrimSpace(value.Find("a").First().Text())
		case strings.Contains(label, "Publisher"), strings.Contains(label, "發行"):
			data.Publisher = strings.TrimSpace(value.Find("a").First().Text())
		case strings.Contains(label, "Series"), strings.Contains(label, "系列"):
			data.Series = strings.TrimSpace(value.Find("a").First().Text())
		case strings.Contains(label, "Actor"), strings.Contains(label, "演員"):
			value.Find("a").Each(func(_ int, a *goquery.Selection) {
				if name := strings.TrimSpace(a.Text()); name != "" {
					data.Actors = append(data.Actors, name)
				}
			})
		case strings.Contains(label, "Tags"), strings.Contains(label, "類別"):
			value.Find("a").Each(func(_ int, a *goquery.Selection) {
				if tag := strings.TrimSpace(a.Text()); tag != "" {
					data.Tags = append(data.Tags, tag)
				}
			})
		}
	})

	if cover, ok := doc.Find("div.column-video-cover img").First().Attr("src"); ok {
		data.Cover = absoluteURL(detailURL, cover)
	}
	if data.Number == "" {
		data.Number = tc.Input.Number
	}
	return data, nil
}

// absoluteURL resolves href against the page it appeared on; already
// absolute hrefs pass through untouched.
func absoluteURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
