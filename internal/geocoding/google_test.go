package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Salesforce Park, San Francisco, CA", r.URL.Query().Get("address"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"425 Mission St, San Francisco","geometry":{"location":{"lat":37.7897,"lng":-122.3962}}}]}`))
	}))
	defer server.Close()

	coords, err := NewGoogleGeocoder(server.URL, "secret").Geocode(context.Background(), "Salesforce Park, San Francisco, CA")

	require.NoError(t, err)
	assert.Equal(t, 37.7897, coords.Lat)
	assert.Equal(t, -122.3962, coords.Lng)
}

func TestGoogleGeocodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"zero results", http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`, "no results found"},
		{"denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"API key invalid"}`, "status REQUEST_DENIED"},
		{"http error", http.StatusForbidden, ``, "HTTP 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewGoogleGeocoder(server.URL, "k").Geocode(context.Background(), "x")
			geocodingErr, ok := err.(*ErrGeocodingFailed)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.reason, geocodingErr.Reason)
		})
	}
}
