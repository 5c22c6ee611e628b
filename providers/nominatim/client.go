// Package nominatim resolves city names to coordinates with the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"kayak-destinations/models"

	"github.com/goccy/go-json"
)

// ErrNoResult is returned when the search succeeds but matches nothing.
var ErrNoResult = errors.New("nominatim: no result")

// Client queries a Nominatim search endpoint.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient builds a client. httpClient carries the request timeout.
func NewClient(baseURL, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, userAgent: userAgent, http: httpClient}
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Search returns the first match for city.
func (c *Client) Search(ctx context.Context, city models.CityName) (lat, lon float64, err error) {
	q := url.Values{}
	q.Set("q", city.String())
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, 0, &RequestError{Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return 0, 0, &DecodeError{Err: err}
	}
	if len(places) == 0 {
		return 0, 0, ErrNoResult
	}

	lat, err = strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return 0, 0, &DecodeError{Err: fmt.Errorf("lat %q: %w", places[0].Lat, err)}
	}
	lon, err = strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return 0, 0, &DecodeError{Err: fmt.Errorf("lon %q: %w", places[0].Lon, err)}
	}
	return lat, lon, nil
}

// RequestError wraps a transport or HTTP status failure.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return "nominatim request: " + e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// DecodeError wraps a malformed response body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "nominatim decode: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify maps a Search error to a lookup failure reason.
func Classify(err error) models.LookupFailure {
	if err == nil {
		return models.LookupOK
	}
	if errors.Is(err, ErrNoResult) {
		return models.LookupNotFound
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return models.LookupDecodeFailed
	}
	return models.LookupRequestFailed
}
