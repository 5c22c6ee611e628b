// Package booking collects hotel listings from Booking.com search results
// with a headless Chrome driven by chromedp.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"kayak-destinations/models"
	"kayak-destinations/services"
	"kayak-destinations/utils"
)

// ErrTooFewListings is returned when an attempt yields fewer listings than
// the configured minimum.
var ErrTooFewListings = errors.New("too few listings")

// CardFetcher reads property cards from a results page. *Session is the
// browser-backed implementation.
type CardFetcher interface {
	FetchCards(ctx context.Context, pageURL string, max int) ([]Card, error)
}

// Options tunes the retry policy of a Scraper.
type Options struct {
	BaseURL      string
	MinListings  int
	Retries      int
	RetryBackoff time.Duration
}

// Result is the outcome of one city's scrape.
type Result struct {
	Hotels   []*models.HotelListing
	Attempts int
}

// Scraper turns a city into a bounded list of normalized hotel listings
type Scraper struct {
	fetcher CardFetcher
	cleaner *services.DataCleaner
	opts    Options
	logger  *utils.Logger
}

// NewScraper creates a new Scraper
func NewScraper(fetcher CardFetcher, opts Options, logger *utils.Logger) *Scraper {
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	return &Scraper{
		fetcher: fetcher,
		cleaner: services.NewDataCleaner(logger),
		opts:    opts,
		logger:  logger,
	}
}

// SearchURL builds the results page URL of a city.
func (s *Scraper) SearchURL(city models.CityName) string {
	return s.opts.BaseURL + "?ss=" + url.QueryEscape(city.String())
}

// Scrape collects up to max listings for city. An attempt is accepted once it
// yields at least MinListings usable listings; otherwise it is retried. When
// every attempt falls short the returned error wraps ErrTooFewListings (or
// the last fetch error) and Result.Hotels is empty.
func (s *Scraper) Scrape(ctx context.Context, city models.CityName, max int) (*Result, error) {
	pageURL := s.SearchURL(city)
	tracker := utils.NewURLTracker()
	result := &Result{}

	err := utils.RetryWithBackoff(ctx, s.opts.Retries, s.opts.RetryBackoff, func(attempt int) error {
		result.Attempts = attempt
		s.logger.Info("Scraping Booking for %s (attempt %d/%d)", city, attempt, s.opts.Retries)

		cards, err := s.fetcher.FetchCards(ctx, pageURL, max)
		if err != nil {
			return err
		}

		tracker.Reset()
		raw := make([]*models.RawHotel, 0, len(cards))
		for _, c := range cards {
			if !tracker.Add(c.URL) {
				s.logger.Debug("Duplicate card %s", c.URL)
				continue
			}
			raw = append(raw, &models.RawHotel{
				City:     city,
				Name:     c.Title,
				RawScore: c.Score,
				RawPrice: c.Price,
				URL:      c.URL,
			})
		}

		hotels := s.cleaner.Clean(raw)
		s.logger.Info("%s: %d usable hotels out of %d cards", city, len(hotels), len(cards))
		if len(hotels) < s.opts.MinListings {
			return fmt.Errorf("%w: %d < %d", ErrTooFewListings, len(hotels), s.opts.MinListings)
		}
		result.Hotels = hotels
		return nil
	}, s.logger)

	if err != nil {
		result.Hotels = nil
		return result, fmt.Errorf("scrape %s: %w", city, err)
	}
	return result, nil
}
