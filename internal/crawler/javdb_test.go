package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const javdbDetailHTML = `
<html><body>
<h2 class="title">
  <strong class="current-title">テスト タイトル</strong>
  <span class="origin-title">元のタイトル</span>
</h2>
<div class="column-video-cover"><img src="/covers/abc.jpg"></div>
<nav class="panel">
  <div class="panel-block"><strong>ID:</strong> <span class="value">ABC-123</span></div>
  <div class="panel-block"><strong>Released Date:</strong> <span class="value">2023-04-01</span></div>
  <div class="panel-block"><strong>Duration:</strong> <span class="value">120</span></div>
  <div class="panel-block"><strong>Director:</strong> <span class="value"><a href="/d/1">監督A</a></span></div>
  <div class="panel-block"><strong>Maker:</strong> <span class="value"><a href="/m/1">スタジオB</a></span></div>
  <div class="panel-block"><strong>Series:</strong> <span class="value"><a href="/s/1">シリーズC</a></span></div>
  <div class="panel-block"><strong>Actor(s):</strong> <span class="value"><a href="/a/1">女優X</a><a href="/a/2">女優Y</a></span></div>
  <div class="panel-block"><strong>Tags:</strong> <span class="value"><a href="/t/1">タグ1</a></span></div>
</nav>
</body></html>`

func TestJavdbParseDetail(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(javdbDetailHTML))
	require.NoError(t, err)

	tc := NewTaskContext(Input{Number: "ABC-123"})
	data, err := javdbParser{}.parseDetail(tc, doc, "https://javdb.com/v/abc")
	require.NoError(t, err)

	require.Equal(t, "ABC-123", data.Number)
	require.Equal(t, "テスト タイトル", data.Title)
	require.Equal(t, "元のタイトル", data.OriginalTitle)
	require.Equal(t, "2023-04-01", data.Release)
	require.Equal(t, "120", data.Runtime)
	require.Equal(t, "監督A", data.Director)
	require.Equal(t, "スタジオB", data.Studio)
	require.Equal(t, "シリーズC", data.Series)
	require.Equal(t, []string{"女優X", "女優Y"}, data.Actors)
	require.Equal(t, []string{"タグ1"}, data.Tags)
	require.Equal(t, "https://javdb.com/covers/abc.jpg", data.Cover)
	require.Equal(t, "https://javdb.com/v/abc", data.ExternalID)
}

func TestJavdbParseDetailWithoutTitleFails(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)

	_, err = javdbParser{}.parseDetail(NewTaskContext(EmptyInput()), doc, "https://javdb.com/v/abc")
	require.Error(t, err)
}

func TestJavdbSearchURLs(t *testing.T) {
	t.Parallel()

	urls, err := javdbParser{}.searchURLs(NewTaskContext(Input{Number: "ABC-123"}), "https://javdb.com")
	require.NoError(t, err)
	require.Equal(t, []string{"https://javdb.com/search?q=ABC-123&f=all"}, urls)

	_, err = javdbParser{}.searchURLs(NewTaskContext(EmptyInput()), "https://javdb.com")
	require.Error(t, err)
}

func TestJavdbParseSearchFiltersByNumber(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="movie-list">
<div class="item"><a class="box" href="/v/right"><div class="video-title"><strong>ABC-123</strong></div></a></div>
<div class="item"><a class="box" href="/v/wrong"><div class="video-title"><strong>XYZ-999</strong></div></a></div>
</div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	tc := NewTaskContext(Input{Number: "abc-123"})
	urls, err := javdbParser{}.parseSearch(tc, doc, "https://javdb.com/search?q=abc-123&f=all")
	require.NoError(t, err)
	require.Equal(t, []string{"https://javdb.com/v/right"}, urls)
}
