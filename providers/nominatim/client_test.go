package nominatim

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"kayak-destinations/models"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endpoint = "http://nominatim.test/search"

func newMockedClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	return NewClient(endpoint, "KayakTest", &http.Client{Transport: transport}), transport
}

func TestSearchReturnsFirstMatch(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponderWithQuery("GET", endpoint,
		map[string]string{"q": "St Malo", "format": "json", "limit": "1"},
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "KayakTest", req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(200, `[{"lat":"48.649","lon":"-2.025"}]`), nil
		})

	lat, lon, err := client.Search(context.Background(), "St Malo")
	require.NoError(t, err)
	assert.InDelta(t, 48.649, lat, 1e-9)
	assert.InDelta(t, -2.025, lon, 1e-9)
}

func TestSearchFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		reason    models.LookupFailure
	}{
		{
			name:      "empty result",
			responder: httpmock.NewStringResponder(200, `[]`),
			reason:    models.LookupNotFound,
		},
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(503, `busy`),
			reason:    models.LookupRequestFailed,
		},
		{
			name:      "transport error",
			responder: httpmock.NewErrorResponder(errors.New("connection reset")),
			reason:    models.LookupRequestFailed,
		},
		{
			name:      "malformed body",
			responder: httpmock.NewStringResponder(200, `{"oops":`),
			reason:    models.LookupDecodeFailed,
		},
		{
			name:      "non numeric coordinate",
			responder: httpmock.NewStringResponder(200, `[{"lat":"north","lon":"2.3"}]`),
			reason:    models.LookupDecodeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newMockedClient(t)
			transport.RegisterNoResponder(tt.responder)

			_, _, err := client.Search(context.Background(), "Nowhere")
			require.Error(t, err)
			assert.Equal(t, tt.reason, Classify(err))
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, models.LookupOK, Classify(nil))
}
