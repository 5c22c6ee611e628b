package models

// RawHotel is a hotel card as read from the search results page, before any
// normalization.
type RawHotel struct {
	City     CityName
	Name     string
	RawScore string // e.g. "Note : 8,5"
	RawPrice string // e.g. "€ 124"
	URL      string
}

// HotelListing is a normalized hotel row. Score and PriceEUR are nil when the
// raw value could not be parsed.
type HotelListing struct {
	City      CityName
	HotelName string
	Score     *float64
	PriceEUR  *int
	URL       *string
}
