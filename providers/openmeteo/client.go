// Package openmeteo fetches daily forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// Day is one daily forecast entry. Values are nil where the API returned null.
type Day struct {
	TempMax *float64
	Rain    *float64
}

// Client queries the Open-Meteo forecast endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client. httpClient carries the request timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type forecastResponse struct {
	Daily struct {
		Time             []string   `json:"time"`
		Temperature2mMax []*float64 `json:"temperature_2m_max"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Daily returns at most days entries of max temperature and precipitation
// for the given coordinates. A shorter upstream series yields fewer entries.
func (c *Client) Daily(ctx context.Context, lat, lon float64, days int) ([]Day, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("daily", "temperature_2m_max,precipitation_sum")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("open-meteo request: http status %d", resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("open-meteo decode: %w", err)
	}

	// zip semantics: the shorter of the two series bounds the result
	n := min(len(body.Daily.Temperature2mMax), len(body.Daily.PrecipitationSum))
	if days >= 0 && n > days {
		n = days
	}
	out := make([]Day, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Day{
			TempMax: body.Daily.Temperature2mMax[i],
			Rain:    body.Daily.PrecipitationSum[i],
		})
	}
	return out, nil
}
