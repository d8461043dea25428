// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/cycle"
	"github.com/meshintel/opera/internal/event"
	"github.com/meshintel/opera/internal/geocode"
	"github.com/meshintel/opera/internal/jobs"
	"github.com/meshintel/opera/internal/location"
	"github.com/meshintel/opera/internal/nlp"
	"github.com/meshintel/opera/internal/review"
	"github.com/meshintel/opera/internal/scrape"
	"github.com/meshintel/opera/internal/search"
	"github.com/meshintel/opera/internal/store"
	"github.com/meshintel/opera/pkg/types"
)

// app holds the wired pipeline shared by all commands.
type app struct {
	cfg     types.Config
	log     *zap.Logger
	store   store.Store
	geo     geocode.Geocoder
	jobs    *jobs.Queue
	reviews *review.Queue
	manager *cycle.Manager
}

// newApp builds the full pipeline from the effective configuration.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cmd)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	searchClient := &http.Client{Timeout: cfg.Search.Timeout}
	aggregator := search.NewAggregator(log,
		search.NewDuckDuckGo(searchClient, cfg.Search, log),
		search.NewBing(searchClient, cfg.Search, log),
		search.NewGoogle(searchClient, cfg.Search, log),
	)

	scraper := scrape.NewScraper(&http.Client{Timeout: cfg.Scrape.Timeout}, cfg.Scrape, log)
	geocoder := geocode.NewNominatim(&http.Client{Timeout: cfg.Geocode.Timeout}, cfg.Geocode, log)
	entities := nlp.NewExtractor(log)
	locations := location.NewExtractor(entities, geocoder, log)

	emitter := event.Logger{Log: log}
	queue := jobs.NewQueue(emitter, log)
	reviews := review.NewQueue(st, geocoder, queue, emitter, cfg.Research, log)
	queue.RegisterWorker(review.ScrapeJobType,
		review.NewScrapeWorker(scraper, entities, locations, st, reviews, cfg.Research, log))

	manager := cycle.NewManager(st, aggregator, scraper, entities, locations, reviews, emitter, cfg.Research, log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		geo:     geocoder,
		jobs:    queue,
		reviews: reviews,
		manager: manager,
	}, nil
}

// Close drains nothing: pending jobs are dropped, the store is closed.
func (a *app) Close() {
	a.jobs.Clear()
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", zap.Error(err))
	}
	_ = a.log.Sync()
}
