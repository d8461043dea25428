// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/opera/pkg/types"
)

func fastScrapeConfig() types.ScrapeConfig {
	cfg := types.DefaultConfig().Scrape
	cfg.InterRequestDelay = time.Millisecond
	return cfg
}

const articleHTML = `<html>
<head>
  <title>Acme Corp Expands to Berlin</title>
  <meta name="description" content="Acme Corp opens a new office.">
  <meta name="author" content="Jane Reporter">
  <meta property="article:published_time" content="2026-03-01T09:00:00Z">
  <script>console.log("should be stripped");</script>
</head>
<body>
  <nav><li>Home</li><li>About</li></nav>
  <article>
    <h1>Acme Corp Expands to Berlin</h1>
    <p>Acme Corp announced today that it will open a new office in Berlin,
    bringing two hundred jobs to the city over the next fiscal year.</p>
    <p>The chief executive said the expansion reflects sustained growth in
    the European market and a long-planned investment strategy.</p>
  </article>
</body>
</html>`

func TestScrape_ExtractsMainContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer ts.Close()

	s := NewScraper(ts.Client(), fastScrapeConfig(), nil)
	r := s.Scrape(context.Background(), ts.URL)
	require.True(t, r.OK(), "err=%s", r.Err)

	assert.Equal(t, "Acme Corp Expands to Berlin", r.Title)
	assert.Equal(t, "Acme Corp opens a new office.", r.Description)
	assert.Equal(t, "Jane Reporter", r.Author)
	assert.Equal(t, "2026-03-01T09:00:00Z", r.DatePublished)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Contains(t, r.Content, "new office in Berlin")
	// Content comes from the article container, not the nav.
	assert.NotContains(t, r.Content, "Home")
	assert.NotContains(t, r.Content, "should be stripped")
	assert.Positive(t, r.WordCount)
}

func TestScrape_BlockedStatuses(t *testing.T) {
	for _, status := range []int{999, http.StatusForbidden} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		s := NewScraper(ts.Client(), fastScrapeConfig(), nil)
		r := s.Scrape(context.Background(), ts.URL)
		ts.Close()

		assert.False(t, r.OK())
		assert.True(t, r.Blocked, "status %d", status)
		assert.Equal(t, status, r.StatusCode)
	}
}

func TestScrape_OrdinaryErrorStatusNotBlocked(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	s := NewScraper(ts.Client(), fastScrapeConfig(), nil)
	r := s.Scrape(context.Background(), ts.URL)
	assert.False(t, r.OK())
	assert.False(t, r.Blocked)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
}

func TestScrape_TooShortContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>tiny</p></body></html>`)
	}))
	defer ts.Close()

	s := NewScraper(ts.Client(), fastScrapeConfig(), nil)
	r := s.Scrape(context.Background(), ts.URL)
	assert.False(t, r.OK())
	assert.Equal(t, "content too short", r.Err)
}

func TestScrape_CapsContentLength(t *testing.T) {
	long := strings.Repeat("All work and no play makes a dull page. ", 2000)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body><article><p>%s</p></article></body></html>`, long)
	}))
	defer ts.Close()

	cfg := fastScrapeConfig()
	s := NewScraper(ts.Client(), cfg, nil)
	r := s.Scrape(context.Background(), ts.URL)
	require.True(t, r.OK(), "err=%s", r.Err)
	assert.LessOrEqual(t, len(r.Content), cfg.MaxContentBytes)
}

func TestScrape_NetworkError(t *testing.T) {
	s := NewScraper(&http.Client{Timeout: 100 * time.Millisecond}, fastScrapeConfig(), nil)
	r := s.Scrape(context.Background(), "http://127.0.0.1:1/unreachable")
	assert.False(t, r.OK())
	assert.NotEmpty(t, r.Err)
	assert.Zero(t, r.StatusCode)
}

func TestIsScrapeable(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/article", true},
		{"http://example.com/page.html", true},
		{"https://example.com/report.pdf", false},
		{"https://example.com/archive.zip", false},
		{"https://example.com/video.mp4", false},
		{"mailto:someone@example.com", false},
		{"javascript:alert(1)", false},
		{"ftp://example.com/file", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsScrapeable(tt.url), "url %q", tt.url)
	}
}

func TestScrapeAll(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		fmt.Fprint(w, articleHTML)
	}))
	defer ts.Close()

	s := NewScraper(ts.Client(), fastScrapeConfig(), nil)
	results := s.ScrapeAll(context.Background(), []string{ts.URL + "/a", ts.URL + "/b"})
	require.Len(t, results, 2)
	assert.Equal(t, 2, hits)
	for _, r := range results {
		assert.True(t, r.OK())
	}
}
