package openmeteo

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endpoint = "http://open-meteo.test/v1/forecast"

func newMockedClient(responder httpmock.Responder) *Client {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", endpoint, responder)
	return NewClient(endpoint, &http.Client{Transport: transport})
}

const nineDays = `{"daily":{
	"time":["d1","d2","d3","d4","d5","d6","d7","d8","d9"],
	"temperature_2m_max":[10,11,12,13,14,15,16,17,18],
	"precipitation_sum":[0,1,2,3,4,5,6,7,8]}}`

func TestDailyTruncatesToHorizon(t *testing.T) {
	client := newMockedClient(httpmock.NewStringResponder(200, nineDays))

	days, err := client.Daily(context.Background(), 48.85, 2.35, 7)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, 10.0, *days[0].TempMax)
	assert.Equal(t, 16.0, *days[6].TempMax)
	assert.Equal(t, 6.0, *days[6].Rain)
}

func TestDailyShortSeriesIsNotPadded(t *testing.T) {
	body := `{"daily":{"temperature_2m_max":[20,21,22],"precipitation_sum":[0,0.4]}}`
	client := newMockedClient(httpmock.NewStringResponder(200, body))

	days, err := client.Daily(context.Background(), 1, 2, 7)
	require.NoError(t, err)
	assert.Len(t, days, 2)
}

func TestDailyKeepsNullValues(t *testing.T) {
	body := `{"daily":{"temperature_2m_max":[null,21],"precipitation_sum":[1.5,null]}}`
	client := newMockedClient(httpmock.NewStringResponder(200, body))

	days, err := client.Daily(context.Background(), 1, 2, 7)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Nil(t, days[0].TempMax)
	assert.Equal(t, 1.5, *days[0].Rain)
	assert.Nil(t, days[1].Rain)
}

func TestDailySendsCoordinates(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponderWithQuery("GET", endpoint, map[string]string{
		"latitude":  "43.2965",
		"longitude": "5.3698",
		"daily":     "temperature_2m_max,precipitation_sum",
		"timezone":  "auto",
	}, httpmock.NewStringResponder(200, nineDays))
	client := NewClient(endpoint, &http.Client{Transport: transport})

	_, err := client.Daily(context.Background(), 43.2965, 5.3698, 7)
	require.NoError(t, err)
}

func TestDailyErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		client := newMockedClient(httpmock.NewStringResponder(500, "down"))
		_, err := client.Daily(context.Background(), 1, 2, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
	t.Run("decode", func(t *testing.T) {
		client := newMockedClient(httpmock.NewStringResponder(200, "<html>"))
		_, err := client.Daily(context.Background(), 1, 2, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})
}
