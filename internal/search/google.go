// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meshintel/opera/internal/httputil"
	"github.com/meshintel/opera/pkg/types"
)

// googleAPIBase is the Custom Search endpoint. Declared as a var so tests
// can substitute an httptest server.
var googleAPIBase = "https://www.googleapis.com/customsearch/v1"

// Google queries the Google Custom Search API. Enabled only when both an
// API key and a search engine ID (cx) are configured.
type Google struct {
	client  *http.Client
	cfg     types.SearchConfig
	log     *zap.Logger
	limiter *rate.Limiter
}

// NewGoogle returns a Google provider with its own rate limiter.
func NewGoogle(client *http.Client, cfg types.SearchConfig, log *zap.Logger) *Google {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.KeyedMinInterval
	if interval <= 0 {
		interval = types.DefaultConfig().Search.KeyedMinInterval
	}
	return &Google{
		client:  client,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (g *Google) Name() string  { return "google" }
func (g *Google) Priority() int { return 3 }
func (g *Google) Enabled() bool { return g.cfg.GoogleAPIKey != "" && g.cfg.GoogleCX != "" }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (g *Google) Search(ctx context.Context, query string, opts Options) ([]types.SourceRecord, error) {
	if !g.Enabled() {
		return nil, fmt.Errorf("google provider disabled: missing API key or cx")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = g.cfg.MaxResults
	}
	if maxResults <= 0 || maxResults > 10 {
		// The Custom Search API rejects num > 10.
		maxResults = 10
	}

	params := url.Values{}
	params.Set("key", g.cfg.GoogleAPIKey)
	params.Set("cx", g.cfg.GoogleCX)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, g.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("google API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API returned HTTP %d", resp.StatusCode)
	}

	var parsed googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing google response: %w", err)
	}

	var records []types.SourceRecord
	for _, item := range parsed.Items {
		records = append(records, types.SourceRecord{
			URL:      item.Link,
			Title:    item.Title,
			Snippet:  item.Snippet,
			Provider: g.Name(),
		})
	}

	g.log.Info("google search completed",
		zap.String("query", query),
		zap.Int("resultCount", len(records)))
	return records, nil
}
