package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
	"cluster-tour-router/internal/tour"
)

// fakeOSRM answers table requests with 120 seconds between distinct points
// and has no routes, so every local segment falls back to the estimate.
func fakeOSRM(t *testing.T, tableCalls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/table/v1/driving/"):
			atomic.AddInt32(tableCalls, 1)
			n := len(strings.Split(strings.TrimPrefix(r.URL.Path, "/table/v1/driving/"), ";"))
			rows := make([]string, n)
			for i := range rows {
				cells := make([]string, n)
				for j := range cells {
					if i == j {
						cells[j] = "0"
					} else {
						cells[j] = "120"
					}
				}
				rows[i] = "[" + strings.Join(cells, ",") + "]"
			}
			fmt.Fprintf(w, `{"code":"Ok","durations":[%s]}`, strings.Join(rows, ","))
		case strings.HasPrefix(r.URL.Path, "/route/v1/driving/"):
			w.Write([]byte(`{"code":"NoRoute","message":"no route"}`))
		default:
			t.Errorf("unexpected OSRM request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func writeNetwork(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.json")
	net := &models.Network{
		Name:  "server-test",
		Start: 0,
		Locations: []models.Location{
			{Name: "Home", Cluster: "berlin", Coords: &models.Coordinates{Lat: 52.52, Lng: 13.405}},
			{Name: "BER", Cluster: "berlin", Hub: true, Coords: &models.Coordinates{Lat: 52.3667, Lng: 13.5033}},
			{Name: "SFO", Cluster: "sf", Hub: true, Coords: &models.Coordinates{Lat: 37.6213, Lng: -122.379}},
			{Name: "Pier 39", Cluster: "sf", Coords: &models.Coordinates{Lat: 37.8087, Lng: -122.4098}},
		},
	}
	require.NoError(t, database.SaveNetwork(path, net))
	return path
}

func testConfig(t *testing.T, osrmURL string) Config {
	return Config{
		Addr:        "127.0.0.1:0",
		Provider:    ProviderOSRM,
		OSRMBaseURL: osrmURL,
		NetworkFile: writeNetwork(t),
		CacheDB:     database.CacheDisabledPath,
		Policy:      tour.DefaultPolicy(),
	}
}

func TestServerSolvesTourEndToEnd(t *testing.T) {
	var tableCalls int32
	osrm := fakeOSRM(t, &tableCalls)
	defer osrm.Close()

	cfg := testConfig(t, osrm.URL)
	cfg.Policy.ReturnLinkingCost = 700

	srv, err := New(cfg)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tour", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.TourResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))

	assert.Equal(t, []string{"Home", "BER", "SFO", "Pier 39", "Home"}, result.RouteNames)
	assert.Equal(t, 660.0, result.LinkingTravelMinutes)
	assert.InDelta(t, 2+660+2+10000, result.ObjectiveMinutes, 1e-6)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tableCalls), "one table request per cluster")
	for _, seg := range result.Segments {
		if seg.Type == models.SegmentLocal {
			assert.True(t, seg.Estimated)
		}
	}
}

func TestServerSQLiteCache(t *testing.T) {
	var tableCalls int32
	osrm := fakeOSRM(t, &tableCalls)
	defer osrm.Close()

	cfg := testConfig(t, osrm.URL)
	cfg.CacheDB = filepath.Join(t.TempDir(), "cache.db")

	srv, err := New(cfg)
	require.NoError(t, err)
	defer srv.db.Close()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	var health map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "connected", health["database"])

	for i := 0; i < 2; i++ {
		w = httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tour/solve", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&tableCalls), "second solve must be served from the cache")
}

func TestServerJSONFileCache(t *testing.T) {
	var tableCalls int32
	osrm := fakeOSRM(t, &tableCalls)
	defer osrm.Close()

	cfg := testConfig(t, osrm.URL)
	cfg.CacheDB = filepath.Join(t.TempDir(), "travel_times.json")

	srv, err := New(cfg)
	require.NoError(t, err)
	assert.Nil(t, srv.db)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tour/solve", nil))
	require.Equal(t, http.StatusOK, w.Code)

	reopened, err := database.NewFileTravelTimeCache(cfg.CacheDB)
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.Len())
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Provider = "carrier-pigeon"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t, "")
	cfg.Provider = ProviderGoogle
	_, err = New(cfg)
	assert.ErrorContains(t, err, "GOOGLE_API_KEY")

	cfg = testConfig(t, "")
	cfg.Policy.TravelMode = ""
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t, "")
	cfg.NetworkFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRoutesRejectWrongMethod(t *testing.T) {
	srv, err := New(testConfig(t, ""))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tour/solve", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tour/runs/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, err := New(testConfig(t, ""))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tour/solve", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/tour/solve", nil)
	req.Header.Set("Origin", "https://example.com")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
