// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape fetches web pages and extracts their readable content.
package scrape

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meshintel/opera/pkg/types"
)

// Result holds the outcome of scraping one URL. A failed scrape carries a
// classification in Err rather than a Go error: scrape failures are data,
// not faults, and must never abort a batch.
type Result struct {
	URL           string
	Title         string
	Description   string
	Content       string
	Author        string
	DatePublished string
	StatusCode    int
	WordCount     int

	// Err classifies a failed scrape: network error, blocked, no content.
	Err string

	// Blocked marks anti-bot rejections (HTTP 999 and 403).
	Blocked bool
}

// OK reports whether the scrape produced usable content.
func (r *Result) OK() bool {
	return r != nil && r.Err == "" && r.Content != ""
}

// mainSelectors are tried in order to locate the page's main content
// container before falling back to the whole body.
var mainSelectors = []string{
	"article",
	"[role=\"main\"]",
	"main",
	".content",
	".post-content",
	".entry-content",
	".article-body",
	"#content",
	"#main-content",
}

// skipExtensions lists file types that are never HTML.
var skipExtensions = regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|zip|rar|mp4|avi|mov|png|jpe?g|gif)$`)

// Scraper fetches pages and extracts text content.
type Scraper struct {
	client  *http.Client
	cfg     types.ScrapeConfig
	log     *zap.Logger
	limiter *rate.Limiter
}

// NewScraper returns a Scraper. A nil client gets a default with the
// configured timeout; a nil logger discards output.
func NewScraper(client *http.Client, cfg types.ScrapeConfig, log *zap.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	delay := cfg.InterRequestDelay
	if delay <= 0 {
		delay = types.DefaultConfig().Scrape.InterRequestDelay
	}
	return &Scraper{
		client:  client,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// IsScrapeable reports whether a URL is worth fetching: an HTTP scheme
// and not a known binary file type.
func IsScrapeable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return !skipExtensions.MatchString(u.Path)
}

// Scrape fetches one URL and extracts its content. It always returns a
// Result; failures are classified in Result.Err.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) *Result {
	if err := s.limiter.Wait(ctx); err != nil {
		return &Result{URL: rawURL, Err: err.Error()}
	}

	s.log.Info("scraping url", zap.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Result{URL: rawURL, Err: "invalid url: " + err.Error()}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("scrape request failed", zap.String("url", rawURL), zap.Error(err))
		return &Result{URL: rawURL, Err: err.Error()}
	}
	defer resp.Body.Close()

	// Some sites (LinkedIn among them) answer 999 to unauthenticated
	// crawlers; 403 is the conventional equivalent.
	if resp.StatusCode == 999 || resp.StatusCode == http.StatusForbidden {
		s.log.Warn("scrape blocked", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return &Result{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        "blocked by anti-bot protection",
			Blocked:    true,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.Warn("scrape got non-success status", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return &Result{URL: rawURL, StatusCode: resp.StatusCode, Err: "http status " + resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return &Result{URL: rawURL, StatusCode: resp.StatusCode, Err: "parse failed: " + err.Error()}
	}

	result := s.extract(doc)
	result.URL = rawURL
	result.StatusCode = resp.StatusCode

	minChars := s.cfg.MinContentChars
	if minChars <= 0 {
		minChars = types.DefaultConfig().Scrape.MinContentChars
	}
	if len(result.Content) < minChars {
		result.Err = "content too short"
		s.log.Warn("scrape produced too little text",
			zap.String("url", rawURL),
			zap.Int("chars", len(result.Content)))
		return result
	}

	s.log.Info("scrape completed",
		zap.String("url", rawURL),
		zap.String("title", truncate(result.Title, 50)),
		zap.Int("wordCount", result.WordCount))
	return result
}

// ScrapeAll scrapes URLs sequentially; pacing between requests comes from
// the shared limiter. A nil entry never appears in the output.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) []*Result {
	results := make([]*Result, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		results = append(results, s.Scrape(ctx, u))
	}
	return results
}

func (s *Scraper) extract(doc *goquery.Document) *Result {
	doc.Find("script, style, noscript, iframe, embed").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = "Untitled"
	}

	main := doc.Selection
	for _, selector := range mainSelectors {
		candidate := doc.Find(selector).First()
		if candidate.Length() > 0 && len(strings.TrimSpace(candidate.Text())) > 100 {
			main = candidate
			break
		}
	}
	if main == doc.Selection {
		if body := doc.Find("body").First(); body.Length() > 0 {
			main = body
		}
	}

	maxBytes := s.cfg.MaxContentBytes
	if maxBytes <= 0 {
		maxBytes = types.DefaultConfig().Scrape.MaxContentBytes
	}

	var blocks []string
	main.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	content := truncate(strings.Join(blocks, "\n\n"), maxBytes)
	if len(content) < 100 {
		// Pages without block structure still get their raw text.
		content = truncate(strings.TrimSpace(main.Text()), maxBytes)
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if description == "" {
		description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}
	if description == "" {
		description = truncate(content, 200)
	}

	author, _ := doc.Find(`meta[name="author"]`).Attr("content")
	if author == "" {
		author = strings.TrimSpace(doc.Find(".author").First().Text())
	}
	if author == "" {
		author = strings.TrimSpace(doc.Find(`[rel="author"]`).First().Text())
	}

	datePublished, _ := doc.Find(`meta[property="article:published_time"]`).Attr("content")
	if datePublished == "" {
		datePublished, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}

	return &Result{
		Title:         title,
		Description:   description,
		Content:       content,
		Author:        author,
		DatePublished: datePublished,
		WordCount:     len(strings.Fields(content)),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
