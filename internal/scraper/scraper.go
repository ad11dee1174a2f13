package scraper

import (
	"context"
	"fmt"
	"time"

	"ms-csevents/internal/config"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
)

type Options struct {
	CalendarURL  string
	SiteOrigin   string
	UserAgent    string
	Timeout      time.Duration
	TodayHeading string
	ListHeading  string
}

// OptionsFrom maps the scraper config section onto Options.
func OptionsFrom(cfg config.ScraperConfig) Options {
	return Options{
		CalendarURL:  cfg.CalendarURL,
		SiteOrigin:   cfg.SiteOrigin,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.Timeout,
		TodayHeading: cfg.TodayHeading,
		ListHeading:  cfg.ListHeading,
	}
}

// Batch is the output of one scrape: enriched events in index-page order and
// how many of them kept only their stub fields.
type Batch struct {
	Events   []models.ScrapedEvent
	Degraded int
}

// Scraper runs fetch, parse and enrich for the calendar.
type Scraper struct {
	calendarURL string
	fetcher     PageFetcher
	parser      *ListParser
	enricher    *Enricher
	logger      *logger.Logger
}

func New(opts Options, log *logger.Logger) (*Scraper, error) {
	return NewWithFetcher(opts, NewFetcher(opts.UserAgent, opts.Timeout), log)
}

// NewWithFetcher builds a Scraper over a caller-supplied fetcher.
func NewWithFetcher(opts Options, fetcher PageFetcher, log *logger.Logger) (*Scraper, error) {
	if opts.CalendarURL == "" {
		return nil, fmt.Errorf("calendar url is required")
	}
	if log == nil {
		log = logger.NewNop()
	}

	parser, err := NewListParser(opts.SiteOrigin, opts.TodayHeading, opts.ListHeading, log)
	if err != nil {
		return nil, err
	}
	enricher, err := NewEnricher(fetcher, opts.SiteOrigin, log)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		calendarURL: opts.CalendarURL,
		fetcher:     fetcher,
		parser:      parser,
		enricher:    enricher,
		logger:      log,
	}, nil
}

// Stubs fetches and parses the index page without visiting detail pages.
// A fetch failure is returned as a *FetchError.
func (s *Scraper) Stubs(ctx context.Context) ([]models.ScrapedEvent, error) {
	body, err := s.fetcher.Fetch(ctx, s.calendarURL)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(body)
}

// Scrape returns every stub enriched from its detail page. Detail pages are
// fetched one after another; a failed one degrades only its own stub.
func (s *Scraper) Scrape(ctx context.Context) (*Batch, error) {
	stubs, err := s.Stubs(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SCRAPER", fmt.Sprintf("Found %d event stubs on %s", len(stubs), s.calendarURL))

	batch := &Batch{Events: make([]models.ScrapedEvent, 0, len(stubs))}
	for _, stub := range stubs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scrape interrupted: %w", err)
		}
		event, degraded := s.enricher.Enrich(ctx, stub)
		if degraded {
			batch.Degraded++
		}
		batch.Events = append(batch.Events, event)
	}

	if c, ok := s.fetcher.(interface{ CloseIdle() }); ok {
		c.CloseIdle()
	}
	return batch, nil
}
