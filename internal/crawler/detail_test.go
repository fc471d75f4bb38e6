package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetailFetcherUnknownStrategyFails(t *testing.T) {
	t.Parallel()

	f := &DetailFetcher{Client: &fakeClient{}}
	html, err := f.Fetch(context.Background(), "https://example.com/x", SiteMgstage, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no crawler registered")
	require.Empty(t, html)
}

func TestDetailFetcherKnownSiteDelegatesToStrategy(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://www.javbus.com/ABC-123": "<html>via strategy</html>",
	}}
	f := &DetailFetcher{Client: client}

	html, err := f.Fetch(context.Background(), "https://www.javbus.com/ABC-123", SiteJavbus, false)
	require.NoError(t, err)
	require.Equal(t, "<html>via strategy</html>", html)
	require.Equal(t, []string{"https://www.javbus.com/ABC-123"}, client.calls)
}

func TestDetailFetcherKnownSiteHonorsBrowserRequest(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://www.javbus.com/ABC-123": "plain",
	}}
	browser := &fakeBrowser{page: &fakePage{html: "<html>rendered</html>"}}
	f := &DetailFetcher{Client: client, Browser: browser}

	html, err := f.Fetch(context.Background(), "https://www.javbus.com/ABC-123", SiteJavbus, true)
	require.NoError(t, err)
	require.Equal(t, "<html>rendered</html>", html)
	require.Equal(t, 1, browser.acquires)
	require.Empty(t, client.calls)
}

func TestDetailFetcherGenericBrowserPath(t *testing.T) {
	t.Parallel()

	page := &fakePage{html: "<html>rendered</html>"}
	f := &DetailFetcher{
		Client:  &fakeClient{},
		Browser: &fakeBrowser{page: page},
	}

	html, err := f.Fetch(context.Background(), "https://unknown.example/page", "", true)
	require.NoError(t, err)
	require.Equal(t, "<html>rendered</html>", html)
	require.Equal(t, "https://unknown.example/page", page.visited)
	require.True(t, page.closed)
}

func TestDetailFetcherGenericBrowserNavigationErrorIsCaptured(t *testing.T) {
	t.Parallel()

	page := &fakePage{gotoErr: errors.New("net::ERR_TIMED_OUT")}
	f := &DetailFetcher{
		Client:  &fakeClient{},
		Browser: &fakeBrowser{page: page},
	}

	html, err := f.Fetch(context.Background(), "https://unknown.example/page", "", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "net::ERR_TIMED_OUT")
	require.Empty(t, html)
	require.True(t, page.closed)
}

func TestDetailFetcherPlainHTTPPath(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://unknown.example/page": "<html>plain</html>",
	}}
	f := &DetailFetcher{Client: client}

	html, err := f.Fetch(context.Background(), "https://unknown.example/page", "", false)
	require.NoError(t, err)
	require.Equal(t, "<html>plain</html>", html)
}

func TestDetailFetcherOutputIsExclusive(t *testing.T) {
	t.Parallel()

	ok := &DetailFetcher{Client: &fakeClient{pages: map[string]string{"u": "body"}}}
	html, err := ok.Fetch(context.Background(), "u", "", false)
	require.NoError(t, err)
	require.NotEmpty(t, html)

	bad := &DetailFetcher{Client: &fakeClient{err: errors.New("down")}}
	html, err = bad.Fetch(context.Background(), "u", "", false)
	require.Error(t, err)
	require.Empty(t, html)
}
