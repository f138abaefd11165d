package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cluster-tour-router/internal/models"
)

const DefaultGoogleBaseURL = "https://maps.googleapis.com/maps/api"

type googleGeocoder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NewGoogleGeocoder creates a Google Geocoding API client
func NewGoogleGeocoder(baseURL, apiKey string) Geocoder {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	return &googleGeocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *googleGeocoder) Geocode(ctx context.Context, name string) (models.Coordinates, error) {
	params := url.Values{}
	params.Set("address", name)
	params.Set("key", g.apiKey)
	queryURL := fmt.Sprintf("%s/geocode/json?%s", g.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: err.Error()}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Google geocoding request failed: name=%q err=%v", name, err)
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var body googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: err.Error()}
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: ReasonNoResults}
	default:
		log.Printf("[ERROR] Google geocoding error: name=%q status=%s message=%s", name, body.Status, body.ErrorMessage)
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: "status " + body.Status}
	}
	if len(body.Results) == 0 {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: ReasonNoResults}
	}

	loc := body.Results[0].Geometry.Location
	log.Printf("[GEOCODING] Google resolved: name=%q lat=%.5f lng=%.5f", name, loc.Lat, loc.Lng)
	return models.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}
