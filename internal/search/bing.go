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

// bingAPIBase is the Bing Web Search endpoint. Declared as a var so tests
// can substitute an httptest server.
var bingAPIBase = "https://api.bing.microsoft.com/v7.0/search"

// Bing queries the Bing Web Search API. Enabled only when an API key is
// configured.
type Bing struct {
	client  *http.Client
	cfg     types.SearchConfig
	log     *zap.Logger
	limiter *rate.Limiter
}

// NewBing returns a Bing provider with its own rate limiter.
func NewBing(client *http.Client, cfg types.SearchConfig, log *zap.Logger) *Bing {
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
	return &Bing{
		client:  client,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (b *Bing) Name() string  { return "bing" }
func (b *Bing) Priority() int { return 2 }
func (b *Bing) Enabled() bool { return b.cfg.BingAPIKey != "" }

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

func (b *Bing) Search(ctx context.Context, query string, opts Options) ([]types.SourceRecord, error) {
	if !b.Enabled() {
		return nil, fmt.Errorf("bing provider disabled: no API key")
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = b.cfg.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))
	params.Set("offset", "0")
	params.Set("mkt", "en-US")
	params.Set("safeSearch", "Moderate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bingAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.cfg.BingAPIKey)
	req.Header.Set("User-Agent", b.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("bing API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing API returned HTTP %d", resp.StatusCode)
	}

	var parsed bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing bing response: %w", err)
	}

	var records []types.SourceRecord
	for _, page := range parsed.WebPages.Value {
		records = append(records, types.SourceRecord{
			URL:      page.URL,
			Title:    page.Name,
			Snippet:  page.Snippet,
			Provider: b.Name(),
		})
	}

	b.log.Info("bing search completed",
		zap.String("query", query),
		zap.Int("resultCount", len(records)))
	return records, nil
}
