package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsmap/internal/gazetteer"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>News</title>
<item>
  <title>Fire breaks out in Yishun flat</title>
  <link>https://example.sg/yishun-fire</link>
  <description>&lt;p&gt;Residents &amp;amp; firefighters&lt;/p&gt;&lt;p&gt;were   evacuated.&lt;/p&gt;</description>
  <pubDate>Mon, 02 Jun 2025 08:30:00 +0800</pubDate>
</item>
<item>
  <title>Tokyo stocks rally</title>
  <link>https://example.jp/stocks</link>
  <description>Markets up.</description>
</item>
<item>
  <title></title>
  <link>https://example.sg/untitled</link>
  <description>Somewhere in Bedok</description>
</item>
<item>
  <title>Weather update</title>
  <link>https://example.sg/weather</link>
  <description>&lt;a href="x"&gt;Tampines&lt;/a&gt; sees heavy rain</description>
</item>
</channel></rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom news</title>
  <entry>
    <title>Punggol waterfront opens</title>
    <link rel="alternate" href="https://example.sg/punggol"/>
    <summary>New promenade.</summary>
    <updated>2025-06-01T10:00:00Z</updated>
  </entry>
</feed>`

const sampleHTML = `<html><body>
<div class="story"><h2><a href="/a/1">Bedok market reopens</a></h2><p class="sum">After  renovation.</p></div>
<div class="story"><h2>No link here</h2></div>
<div class="story"><h2><a href="https://other.sg/b">Clementi mall</a></h2></div>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(sampleRSS)) })
	mux.HandleFunc("/atom", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(sampleAtom)) })
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != BrowserUserAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(sampleHTML))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrape_RSSFilterAndClean(t *testing.T) {
	srv := newServer(t)
	s := NewScraper(gazetteer.Default(), srv.Client())

	got := s.Scrape(context.Background(), []SourceConfig{{Name: "Test RSS", Type: "RSS", URL: srv.URL + "/rss"}})
	require.Len(t, got, 2)

	assert.Equal(t, "Fire breaks out in Yishun flat", got[0].Title)
	assert.Equal(t, "https://example.sg/yishun-fire", got[0].URL)
	assert.Equal(t, "Residents & firefighters were evacuated.", got[0].Summary)
	assert.Equal(t, "Test RSS", got[0].Source)
	require.NotNil(t, got[0].PublishedDate)
	assert.True(t, time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC).Equal(*got[0].PublishedDate))

	// 关键词只出现在原始摘要 HTML 中也保留
	assert.Equal(t, "Weather update", got[1].Title)
	assert.Equal(t, "Tampines sees heavy rain", got[1].Summary)
	assert.Nil(t, got[1].PublishedDate)
}

func TestScrape_Atom(t *testing.T) {
	srv := newServer(t)
	s := NewScraper(gazetteer.Default(), srv.Client())

	got := s.Scrape(context.Background(), []SourceConfig{{Name: "Atom", Type: TypeRSS, URL: srv.URL + "/atom"}})
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.sg/punggol", got[0].URL)
	require.NotNil(t, got[0].PublishedDate)
	assert.Equal(t, 2025, got[0].PublishedDate.Year())
}

func TestScrape_HTML(t *testing.T) {
	srv := newServer(t)
	s := NewScraper(gazetteer.Default(), srv.Client())

	got := s.Scrape(context.Background(), []SourceConfig{{
		Name: "Test HTML",
		URL:  srv.URL + "/list",
		Selectors: &Selectors{
			ArticleContainer: "div.story",
			Title:            "h2",
			Link:             "a",
			Summary:          "p.sum",
		},
	}})
	require.Len(t, got, 2)
	assert.Equal(t, "Bedok market reopens", got[0].Title)
	assert.Equal(t, srv.URL+"/a/1", got[0].URL)
	assert.Equal(t, "After renovation.", got[0].Summary)
	assert.Equal(t, "https://other.sg/b", got[1].URL)
	assert.Equal(t, "", got[1].Summary)
}

func TestScrape_InvalidSourcesSkipped(t *testing.T) {
	srv := newServer(t)
	s := NewScraper(gazetteer.Default(), srv.Client())

	got := s.Scrape(context.Background(), []SourceConfig{
		{Name: "", URL: srv.URL + "/rss", Type: TypeRSS},
		{Name: "No selectors", URL: srv.URL + "/list"},
		{Name: "Weird", URL: srv.URL + "/rss", Type: "json"},
		{Name: "Broken", URL: srv.URL + "/broken", Type: TypeRSS},
		{Name: "Good", URL: srv.URL + "/rss", Type: TypeRSS},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Good", got[0].Source)
}

func TestSourceConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, SourceConfig{URL: "http://x"}.Validate(), ErrInvalidSource)
	assert.ErrorIs(t, SourceConfig{Name: "x", URL: "http://x"}.Validate(), ErrMissingSelector)
	assert.ErrorIs(t, SourceConfig{Name: "x", URL: "http://x", Type: "csv"}.Validate(), ErrUnsupportedType)
	assert.NoError(t, SourceConfig{Name: "x", URL: "http://x", Type: "rss"}.Validate())
	assert.Equal(t, TypeHTML, SourceConfig{}.Kind())
}

func TestParseFeed_Unknown(t *testing.T) {
	_, err := parseFeed([]byte("<html></html>"))
	assert.Error(t, err)
	_, err = parseFeed(nil)
	assert.Error(t, err)
}
