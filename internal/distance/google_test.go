package distance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cluster-tour-router/internal/models"
)

func TestGoogleEstimateMinutes(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/distancematrix/json", r.URL.Path)
		assert.Equal(t, "Pier 39, San Francisco, CA", r.URL.Query().Get("origins"))
		assert.Equal(t, "Union Square, San Francisco, CA", r.URL.Query().Get("destinations"))
		assert.Equal(t, "driving", r.URL.Query().Get("mode"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","duration":{"text":"13 mins","value":780}}]}]}`))
	}))
	defer server.Close()

	p := NewGoogleProvider(server.URL, "test-key", newTestCache(t))
	origin := models.Location{Name: "Pier 39, San Francisco, CA"}
	dest := models.Location{Name: "Union Square, San Francisco, CA"}

	minutes, err := p.EstimateMinutes(context.Background(), origin, dest, "driving")
	require.NoError(t, err)
	assert.Equal(t, 13.0, minutes)

	minutes, err = p.EstimateMinutes(context.Background(), origin, dest, "driving")
	require.NoError(t, err)
	assert.Equal(t, 13.0, minutes)
	assert.Equal(t, 1, calls, "second lookup should be served from the cache")
}

func TestGoogleEstimateMinutes_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"request denied", `{"status":"REQUEST_DENIED","error_message":"bad key"}`, http.StatusOK},
		{"element not found", `{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`, http.StatusOK},
		{"empty rows", `{"status":"OK","rows":[]}`, http.StatusOK},
		{"http error", `oops`, http.StatusBadGateway},
		{"bad json", `{`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewGoogleProvider(server.URL, "k", nil)
			_, err := p.EstimateMinutes(context.Background(), models.Location{Name: "a"}, models.Location{Name: "b"}, "driving")
			var calcErr *ErrDistanceCalculationFailed
			require.True(t, errors.As(err, &calcErr), "got %v", err)
			assert.Equal(t, "a", calcErr.Origin)
		})
	}
}

func TestGoogleSteps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/json", r.URL.Path)
		w.Write([]byte(`{"status":"OK","routes":[{"legs":[{"steps":[
			{"html_instructions":"Head <b>north</b> on <b>Stockton St</b>","distance":{"text":"0.2 km","value":200},"duration":{"text":"1 min","value":60}},
			{"html_instructions":"Turn <b>right</b><div style=\"font-size:0.9em\">Destination will be on the left</div>","distance":{"text":"1.1 km","value":1100},"duration":{"text":"3 mins","value":180}}
		]}]}]}`))
	}))
	defer server.Close()

	p := NewGoogleProvider(server.URL, "k", nil)
	steps, err := p.Steps(context.Background(), models.Location{Name: "a"}, models.Location{Name: "b"}, "driving")
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, "Head north on Stockton St", steps[0].Instruction)
	assert.Equal(t, "Turn right Destination will be on the left", steps[1].Instruction)
	assert.Equal(t, "1.1 km", steps[1].Distance)
	assert.Equal(t, "3 mins", steps[1].Duration)
	assert.Equal(t, 3.0, steps[1].DurationMinutes)
}

func TestGoogleSteps_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","routes":[]}`))
	}))
	defer server.Close()

	p := NewGoogleProvider(server.URL, "k", nil)
	steps, err := p.Steps(context.Background(), models.Location{Name: "a"}, models.Location{Name: "b"}, "driving")
	assert.NoError(t, err)
	assert.Nil(t, steps)
}
