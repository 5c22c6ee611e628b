package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"kayak-destinations/models"
	"kayak-destinations/utils"
)

var scoreRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// DataCleaner normalizes scraped hotel cards into HotelListing rows
type DataCleaner struct {
	logger *utils.Logger
}

// NewDataCleaner creates a new DataCleaner
func NewDataCleaner(logger *utils.Logger) *DataCleaner {
	return &DataCleaner{logger: logger}
}

// Clean converts raw cards into listings. Cards without a name or without a
// readable review score are dropped, matching what the listing page gives us
// reliably.
func (c *DataCleaner) Clean(raw []*models.RawHotel) []*models.HotelListing {
	cleaned := make([]*models.HotelListing, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			c.logger.Debug("Skipping card with empty name in %s", r.City)
			continue
		}
		score := ParseScore(r.RawScore)
		if score == nil {
			c.logger.Debug("Skipping '%s': unreadable score %q", name, r.RawScore)
			continue
		}

		listing := &models.HotelListing{
			City:      r.City,
			HotelName: name,
			Score:     score,
			PriceEUR:  ParsePrice(r.RawPrice),
		}
		if u := strings.TrimSpace(r.URL); u != "" {
			listing.URL = &u
		}
		cleaned = append(cleaned, listing)
	}
	return cleaned
}

// ParseScore extracts the first number of a review text ("Note : 8,5",
// "Avec une note de 9.1") and parses it with either decimal separator.
// Anything unreadable yields nil.
func ParseScore(raw string) *float64 {
	match := scoreRegex.FindString(raw)
	if match == "" {
		return nil
	}
	val, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &val
}

// ParsePrice keeps the digits of a price text ("€ 1 240" -> 1240). No digits
// yields nil.
func ParsePrice(raw string) *int {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	val, err := strconv.Atoi(b.String())
	if err != nil {
		return nil
	}
	return &val
}
