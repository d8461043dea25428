// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geocode resolves addresses and place names to coordinates
// through the Nominatim API. Geocoding is best-effort: failures and empty
// responses surface as no results, never as fatal errors to the pipeline.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/httputil"
	"github.com/meshintel/opera/pkg/types"
)

// Result is one geocoding candidate.
type Result struct {
	Coords  types.LatLng
	Address string
	City    string
	State   string
	Country string
}

// Geocoder resolves free-form addresses to coordinates. Implementations
// return an empty slice, not an error, when nothing matches.
type Geocoder interface {
	Geocode(ctx context.Context, address string) ([]Result, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// Nominatim queries the OpenStreetMap Nominatim service. Calls are
// serialized with a fixed delay between them: the upstream service is
// shared and sensitive to burst traffic, independent of any search
// provider rate limiting.
type Nominatim struct {
	client *http.Client
	cfg    types.GeocodeConfig
	log    *zap.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewNominatim returns a Nominatim client using cfg.
func NewNominatim(client *http.Client, cfg types.GeocodeConfig, log *zap.Logger) *Nominatim {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Nominatim{client: client, cfg: cfg, log: log}
}

// nominatimPlace is the subset of the Nominatim response the pipeline uses.
type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Geocode resolves address to candidate coordinates, best candidate first.
// Points of interest (tourism, amenity, named buildings) are preferred over
// roads and administrative boundaries; remaining candidates rank by
// Nominatim importance.
func (n *Nominatim) Geocode(ctx context.Context, address string) ([]Result, error) {
	if address == "" {
		return nil, nil
	}
	n.pace(ctx)

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=10&addressdetails=1",
		n.cfg.BaseURL, url.QueryEscape(address))

	places, err := n.fetch(ctx, endpoint)
	if err != nil {
		n.log.Warn("geocoding request failed", zap.String("address", address), zap.Error(err))
		return nil, nil
	}
	if len(places) == 0 {
		n.log.Debug("geocoding found no results", zap.String("address", address))
		return nil, nil
	}

	ordered := rankPlaces(places)
	results := make([]Result, 0, len(ordered))
	for _, p := range ordered {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lng, errLng := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		city := p.Address.City
		if city == "" {
			city = p.Address.Town
		}
		if city == "" {
			city = p.Address.Village
		}
		results = append(results, Result{
			Coords:  types.LatLng{Latitude: lat, Longitude: lng},
			Address: p.DisplayName,
			City:    city,
			State:   p.Address.State,
			Country: p.Address.Country,
		})
	}
	return results, nil
}

// ReverseGeocode resolves coordinates to a display address. Empty string
// means no result.
func (n *Nominatim) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	n.pace(ctx)

	endpoint := fmt.Sprintf("%s/reverse?lat=%f&lon=%f&format=json", n.cfg.BaseURL, lat, lng)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, n.client, req, 0)
	if err != nil {
		n.log.Warn("reverse geocoding failed", zap.Error(err))
		return "", nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var place nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		return "", nil
	}
	return place.DisplayName, nil
}

func (n *Nominatim) fetch(ctx context.Context, endpoint string) ([]nominatimPlace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, n.client, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned HTTP %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("parsing nominatim response: %w", err)
	}
	return places, nil
}

// pace blocks until at least CallDelay has passed since the previous call.
func (n *Nominatim) pace(ctx context.Context) {
	n.mu.Lock()
	wait := n.cfg.CallDelay - time.Since(n.lastCall)
	if wait < 0 {
		wait = 0
	}
	n.lastCall = time.Now().Add(wait)
	n.mu.Unlock()

	if wait == 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

// rankPlaces orders candidates: POIs first, then by importance with roads
// and boundaries excluded unless nothing else matched.
func rankPlaces(places []nominatimPlace) []nominatimPlace {
	var pois, general, rest []nominatimPlace
	for _, p := range places {
		switch {
		case p.Class == "tourism" || p.Class == "amenity" ||
			(p.Class == "building" && p.Type != "yes") || p.Type == "attraction":
			pois = append(pois, p)
		case p.Class == "highway" || p.Class == "boundary":
			rest = append(rest, p)
		default:
			general = append(general, p)
		}
	}
	sortByImportance(general)
	sortByImportance(rest)
	out := append(pois, general...)
	return append(out, rest...)
}

func sortByImportance(places []nominatimPlace) {
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Importance > places[j].Importance
	})
}
