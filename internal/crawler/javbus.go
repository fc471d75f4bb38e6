package crawler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func init() {
	Register(SiteJavbus, func(deps Deps) Crawler {
		return newBase(deps, javbusParser{})
	})
}

// javbusParser scrapes javbus detail pages. Detail URLs follow the
// /{NUMBER} scheme, so the number itself is tried before the search page.
type javbusParser struct{}

func (javbusParser) site() Site             { return SiteJavbus }
func (javbusParser) defaultBaseURL() string { return "https://www.javbus.com" }

func (javbusParser) searchURLs(tc *TaskContext, baseURL string) ([]string, error) {
	number := tc.Input.Number
	if number == "" {
		number = tc.Input.AppointNumber
	}
	if number == "" {
		return nil, errors.New("a number is required to search javbus")
	}
	number = strings.ToUpper(number)
	return []string{
		fmt.Sprintf("%s/search/%s&type=1", baseURL, number),
		fmt.Sprintf("%s/uncensored/search/%s&type=1", baseURL, number),
	}, nil
}

func (javbusParser) parseSearch(tc *TaskContext, doc *goquery.Document, searchURL string) ([]string, error) {
	var urls []string
	doc.Find("a.movie-box").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			urls = append(urls, absoluteURL(searchURL, href))
		}
	})
	return urls, nil
}

func (javbusParser) parseDetail(tc *TaskContext, doc *goquery.Document, detailURL string) (*Metadata, error) {
	title := strings.TrimSpace(doc.Find("div.container h3").First().Text())
	if title == "" {
		return nil, errors.New("no title on detail page")
	}

	data := &Metadata{
		Title:         title,
		OriginalTitle: title,
		ExternalID:    detailURL,
	}

	doc.Find("div.info p").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Find("span.header").First().Text())
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Text()), label))
		switch {
		case strings.Contains(label, "識別碼"):
			data.Number = strings.TrimSpace(s.Find("span").Last().Text())
		case strings.Contains(label, "發行日期"):
			data.Release = value
		case strings.Contains(label, "長度"):
			data.Runtime = strings.TrimSuffix(value, "分鐘")
		case strings.Contains(label, "導演"):
			data.Director = strings.TrimSpace(s.Find("a").First().Text())
		case strings.Contains(label, "製作商"):
			data.Studio = strings.TrimSpace(s.Find("a").First().Text())
		case strings.Contains(label, "發行商"):
			data.Publisher = strings.TrimSpace(s.Find("a").First().Text())
		case strings.Contains(label, "系列"):
			data.Series = strings.TrimSpace(s.Find("a").First().Text())
		}
	})

	doc.Find("div.star-name a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			data.Actors = append(data.Actors, name)
		}
	})
	doc.Find("span.genre a").Each(func(_ int, s *goquery.Selection) {
		tag := strings.TrimSpace(s.Text())
		if tag != "" && !strings.Contains(s.AttrOr("href", ""), "/star/") {
			data.Tags = append(data.Tags, tag)
		}
	})
	if cover, ok := doc.Find("a.bigImage img").First().Attr("src"); ok {
		data.Cover = absoluteURL(detailURL, cover)
	}

	// The title is prefixed with the number on javbus.
	if data.Number != "" {
		data.Title = strings.TrimSpace(strings.TrimPrefix(data.Title, data.Number))
		data.OriginalTitle = data.Title
	}
	if data.Number == "" {
		data.Number = tc.Input.Number
	}
	return data, nil
}
