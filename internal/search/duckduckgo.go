// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meshintel/opera/internal/httputil"
	"github.com/meshintel/opera/pkg/types"
)

// duckDuckGoBase is the HTML (no-JS) search endpoint. Declared as a var
// so tests can substitute an httptest server.
var duckDuckGoBase = "https://html.duckduckgo.com/html/"

// challengeMarkers identify the anti-bot challenge page. When one is
// present the provider returns no results rather than an error, so the
// aggregator can fall back to keyed providers.
var challengeMarkers = []string{
	"anomaly-modal",
	"Please complete the following challenge",
	"bots use DuckDuckGo",
	"Select all squares containing",
}

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no API
// key and is always enabled.
type DuckDuckGo struct {
	client  *http.Client
	cfg     types.SearchConfig
	log     *zap.Logger
	limiter *rate.Limiter
}

// NewDuckDuckGo returns a DuckDuckGo provider with its own rate limiter.
func NewDuckDuckGo(client *http.Client, cfg types.SearchConfig, log *zap.Logger) *DuckDuckGo {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.DuckDuckGoMinInterval
	if interval <= 0 {
		interval = types.DefaultConfig().Search.DuckDuckGoMinInterval
	}
	return &DuckDuckGo{
		client:  client,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (d *DuckDuckGo) Name() string  { return "duckduckgo" }
func (d *DuckDuckGo) Priority() int { return 1 }
func (d *DuckDuckGo) Enabled() bool { return true }

// Search fetches and parses one results page. A challenge page yields an
// empty slice, not an error.
func (d *DuckDuckGo) Search(ctx context.Context, query string, opts Options) ([]types.SourceRecord, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = d.cfg.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	searchURL := duckDuckGoBase + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, d.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing duckduckgo response: %w", err)
	}

	if d.isChallengePage(doc) {
		d.log.Warn("duckduckgo challenge page detected", zap.String("query", query))
		return nil, nil
	}

	var records []types.SourceRecord
	doc.Find(".result, .web-result").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		link := block.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		resolved := unwrapRedirect(href)
		if resolved == "" || !strings.HasPrefix(resolved, "http") {
			return true
		}

		records = append(records, types.SourceRecord{
			URL:      resolved,
			Title:    strings.TrimSpace(link.Text()),
			Snippet:  strings.TrimSpace(block.Find(".result__snippet").First().Text()),
			Provider: d.Name(),
		})
		return len(records) < maxResults
	})

	d.log.Info("duckduckgo search completed",
		zap.String("query", query),
		zap.Int("resultCount", len(records)))
	return records, nil
}

func (d *DuckDuckGo) isChallengePage(doc *goquery.Document) bool {
	html, err := doc.Html()
	if err != nil {
		return false
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// unwrapRedirect resolves DuckDuckGo's result links, which point at a
// redirect endpoint carrying the destination in a uddg parameter. Internal
// links without the parameter are dropped.
func unwrapRedirect(href string) string {
	if strings.Contains(href, "uddg=") {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		if dest := u.Query().Get("uddg"); dest != "" {
			return dest
		}
		return ""
	}
	if strings.Contains(href, "duckduckgo.com") {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
