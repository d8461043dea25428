// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "opera/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the search aggregator and its providers.
// Provider API keys toggle enablement: the Bing provider is enabled when
// BingAPIKey is set, the Google provider when both GoogleAPIKey and
// GoogleCX are set. The DuckDuckGo provider needs no key.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the per-provider result cap for one query (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	BingAPIKey   string `json:"bing_api_key,omitempty" yaml:"bing_api_key,omitempty" mapstructure:"bing_api_key"`
	GoogleAPIKey string `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty" mapstructure:"google_api_key"`
	GoogleCX     string `json:"google_cx,omitempty" yaml:"google_cx,omitempty" mapstructure:"google_cx"`

	// DuckDuckGoMinInterval is the minimum delay between consecutive
	// requests to the DuckDuckGo endpoint (default 1s). Bing and Google
	// use KeyedMinInterval (default 500ms).
	DuckDuckGoMinInterval time.Duration `json:"duckduckgo_min_interval" yaml:"duckduckgo_min_interval" mapstructure:"duckduckgo_min_interval"`
	KeyedMinInterval      time.Duration `json:"keyed_min_interval" yaml:"keyed_min_interval" mapstructure:"keyed_min_interval"`
}

// ScrapeConfig holds settings for the page scraper.
type ScrapeConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxContentBytes caps extracted body text to bound NLP cost (default 10240).
	MaxContentBytes int `json:"max_content_bytes" yaml:"max_content_bytes" mapstructure:"max_content_bytes"`

	// MinContentChars is the minimum extracted text length for a page to
	// count as scraped (default 100).
	MinContentChars int `json:"min_content_chars" yaml:"min_content_chars" mapstructure:"min_content_chars"`

	// InterRequestDelay is the pause between consecutive scrapes in a
	// batch (default 500ms).
	InterRequestDelay time.Duration `json:"inter_request_delay" yaml:"inter_request_delay" mapstructure:"inter_request_delay"`
}

// GeocodeConfig holds settings for the Nominatim geocoding client.
type GeocodeConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Nominatim endpoint; overridable for tests.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// CallDelay is the fixed pause between geocoding calls. The upstream
	// service is shared and burst-sensitive, so calls serialize regardless
	// of provider limiters (default 500ms).
	CallDelay time.Duration `json:"call_delay" yaml:"call_delay" mapstructure:"call_delay"`
}

// ResearchConfig holds settings for cycles and the review workflow.
type ResearchConfig struct {
	// EnableAutoScraping controls whether approving a finding with a
	// scrapeable source URL enqueues a background scrape job (default true).
	EnableAutoScraping bool `json:"enable_auto_scraping" yaml:"enable_auto_scraping" mapstructure:"enable_auto_scraping"`

	// AutoScrapeKinds lists the finding kinds whose approval triggers a
	// scrape (default entity, location, organization). An approved keyword
	// whose source is a web page always triggers one.
	AutoScrapeKinds []FindingKind `json:"auto_scrape_kinds" yaml:"auto_scrape_kinds" mapstructure:"auto_scrape_kinds"`

	// MaxQueriesPerCycle bounds the searches one cycle may run (default 50).
	MaxQueriesPerCycle int `json:"max_queries_per_cycle" yaml:"max_queries_per_cycle" mapstructure:"max_queries_per_cycle"`

	// MaxEntitiesPerPage caps how many findings of each kind a single
	// scraped page may contribute (default 10; keywords 20).
	MaxEntitiesPerPage int `json:"max_entities_per_page" yaml:"max_entities_per_page" mapstructure:"max_entities_per_page"`

	// MinConfidence is the 0-1 threshold below which new findings are not
	// queued for review (default 0.5).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" mapstructure:"min_confidence"`
}

// StoreDriver selects the persistence backend.
type StoreDriver string

const (
	StoreMemory StoreDriver = "memory"
	StoreSQLite StoreDriver = "sqlite"
)

// StoreConfig holds settings for the project store.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Path is the SQLite database file; ignored by the memory driver.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// Config groups all component configurations.
type Config struct {
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Scrape   ScrapeConfig   `json:"scrape" yaml:"scrape" mapstructure:"scrape"`
	Geocode  GeocodeConfig  `json:"geocode" yaml:"geocode" mapstructure:"geocode"`
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
}

// DefaultConfig returns the configuration the pipeline runs with when no
// file or environment overrides are present.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			HTTPConfig:            HTTPConfig{Timeout: 10 * time.Second, UserAgent: "opera/0.1"},
			MaxResults:            10,
			DuckDuckGoMinInterval: time.Second,
			KeyedMinInterval:      500 * time.Millisecond,
		},
		Scrape: ScrapeConfig{
			HTTPConfig:        HTTPConfig{Timeout: 10 * time.Second, UserAgent: "opera/0.1"},
			MaxContentBytes:   10 * 1024,
			MinContentChars:   100,
			InterRequestDelay: 500 * time.Millisecond,
		},
		Geocode: GeocodeConfig{
			HTTPConfig: HTTPConfig{Timeout: 10 * time.Second, UserAgent: "opera/0.1 (research tool)"},
			BaseURL:    "https://nominatim.openstreetmap.org",
			CallDelay:  500 * time.Millisecond,
		},
		Research: ResearchConfig{
			EnableAutoScraping: true,
			AutoScrapeKinds:    []FindingKind{FindingEntity, FindingLocation, FindingOrganization},
			MaxQueriesPerCycle: 50,
			MaxEntitiesPerPage: 10,
			MinConfidence:      0.5,
		},
		Store: StoreConfig{Driver: StoreMemory},
	}
}
