package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// fakeClient serves canned bodies per URL.
type fakeClient struct {
	pages map[string]string
	err   error
	calls []string
}

func (f *fakeClient) GetText(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return "", f.err
	}
	body, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return body, nil
}

type fakePage struct {
	html    string
	gotoErr error
	closed  bool
	visited string
}

func (p *fakePage) Goto(_ context.Context, url string) error {
	p.visited = url
	return p.gotoErr
}

func (p *fakePage) Content(context.Context) (string, error) {
	return p.html, nil
}

func (p *fakePage) Close() { p.closed = true }

type fakeBrowser struct {
	page       *fakePage
	acquireErr error
	acquires   int
}

func (b *fakeBrowser) Acquire(context.Context) (PageOpener, error) {
	b.acquires++
	if b.acquireErr != nil {
		return nil, b.acquireErr
	}
	return b, nil
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	return b.page, nil
}

type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// stubParser drives the base pipeline with fixed URLs and payloads.
type stubParser struct {
	searchErr error
	search    []string
	details   map[string][]string // search URL -> detail URLs
	payloads  map[string]*Metadata
	parseErr  error
}

func (stubParser) site() Site             { return SiteDmm }
func (stubParser) defaultBaseURL() string { return "https://stub.example" }

func (p stubParser) searchURLs(*TaskContext, string) ([]string, error) {
	return p.search, p.searchErr
}

func (p stubParser) parseSearch(_ *TaskContext, _ *goquery.Document, searchURL string) ([]string, error) {
	return p.details[searchURL], nil
}

func (p stubParser) parseDetail(_ *TaskContext, _ *goquery.Document, detailURL string) (*Metadata, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.payloads[detailURL], nil
}

func TestBaseRunSuccessViaSearch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://stub.example/search": "<html>search</html>",
		"https://stub.example/detail": "<html>detail</html>",
	}}
	clk := &fakeClock{now: time.Unix(100, 0), step: 250 * time.Millisecond}
	b := newBase(Deps{Client: client, Clock: clk}, stubParser{
		search:   []string{"https://stub.example/search"},
		details:  map[string][]string{"https://stub.example/search": {"https://stub.example/detail"}},
		payloads: map[string]*Metadata{"https://stub.example/detail": {Title: "x"}},
	})

	res := b.Run(context.Background(), Input{Number: "ABC-123"})

	require.True(t, res.Succeeded())
	require.Empty(t, res.Debug.Error)
	require.Equal(t, "x", res.Data.Title)
	require.Equal(t, string(SiteDmm), res.Data.Source)
	require.Equal(t, "https://stub.example/detail", res.Data.ExternalID)
	require.NotEmpty(t, res.Debug.Logs)
	// The fake clock advances one step per Now call: start and finish.
	require.InDelta(t, 0.25, res.Debug.ExecutionTime, 0.001)
}

func TestBaseRunAppointURLSkipsSearch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{
		"https://stub.example/appointed": "<html>detail</html>",
	}}
	b := newBase(Deps{Client: client}, stubParser{
		searchErr: errors.New("search must not run"),
		payloads:  map[string]*Metadata{"https://stub.example/appointed": {Title: "appointed"}},
	})

	res := b.Run(context.Background(), Input{AppointURL: "https://stub.example/appointed"})

	require.True(t, res.Succeeded())
	require.Equal(t, []string{"https://stub.example/appointed"}, client.calls)
}

func TestBaseRunFailureIsCapturedNotRaised(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("network down")}
	b := newBase(Deps{Client: client}, stubParser{
		search: []string{"https://stub.example/search"},
	})

	res := b.Run(context.Background(), Input{Number: "ABC-123"})

	require.False(t, res.Succeeded())
	require.Nil(t, res.Data)
	require.NotEmpty(t, res.Debug.Error)
	require.NotEmpty(t, res.Debug.Logs)
}

func TestBaseRunResultStatesAreExclusive(t *testing.T) {
	t.Parallel()

	// Success carries no error; failure carries no data.
	okClient := &fakeClient{pages: map[string]string{
		"https://stub.example/appointed": "<html></html>",
	}}
	ok := newBase(Deps{Client: okClient}, stubParser{
		payloads: map[string]*Metadata{"https://stub.example/appointed": {Title: "t"}},
	}).Run(context.Background(), Input{AppointURL: "https://stub.example/appointed"})
	require.True(t, ok.Succeeded())
	require.Empty(t, ok.Debug.Error)

	bad := newBase(Deps{Client: &fakeClient{err: errors.New("boom")}}, stubParser{
		search: []string{"https://stub.example/search"},
	}).Run(context.Background(), Input{Number: "N"})
	require.False(t, bad.Succeeded())
	require.NotEmpty(t, bad.Debug.Error)
}

func TestFetchDetailModeNeverUsesClientOnly(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{"u": "body"}}
	browser := &fakeBrowser{page: &fakePage{html: "<html>rendered</html>"}}
	b := newBase(Deps{Client: client, Browser: browser}, stubParser{})

	html, err := b.FetchDetail(context.Background(), NewTaskContext(EmptyInput()), "u", ModeNever)
	require.NoError(t, err)
	require.Equal(t, "body", html)
	require.Zero(t, browser.acquires)
}

func TestFetchDetailModeDefaultPrefersBrowserThenFallsBack(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{"u": "plain"}}
	page := &fakePage{html: "<html>rendered</html>"}
	b := newBase(Deps{Client: client, Browser: &fakeBrowser{page: page}}, stubParser{})

	html, err := b.FetchDetail(context.Background(), NewTaskContext(EmptyInput()), "u", ModeDefault)
	require.NoError(t, err)
	require.Equal(t, "<html>rendered</html>", html)
	require.True(t, page.closed)

	// Browser failure falls back to the plain client under ModeDefault.
	failing := newBase(Deps{
		Client:  client,
		Browser: &fakeBrowser{page: &fakePage{gotoErr: errors.New("nav failed")}},
	}, stubParser{})
	html, err = failing.FetchDetail(context.Background(), NewTaskContext(EmptyInput()), "u", ModeDefault)
	require.NoError(t, err)
	require.Equal(t, "plain", html)
}

func TestFetchDetailModeForceFailsHard(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: map[string]string{"u": "plain"}}
	b := newBase(Deps{
		Client:  client,
		Browser: &fakeBrowser{page: &fakePage{gotoErr: errors.New("nav failed")}},
	}, stubParser{})

	html, err := b.FetchDetail(context.Background(), NewTaskContext(EmptyInput()), "u", ModeForce)
	require.Error(t, err)
	require.Empty(t, html)
	require.Empty(t, client.calls)

	// No browser wired at all is also a hard failure under ModeForce.
	noBrowser := newBase(Deps{Client: client}, stubParser{})
	_, err = noBrowser.FetchDetail(context.Background(), NewTaskContext(EmptyInput()), "u", ModeForce)
	require.Error(t, err)
}
