package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cluster-tour-router/internal/models"
)

const (
	DefaultNominatimBaseURL = "https://nominatim.openstreetmap.org"
	userAgent               = "ClusterTourRouter/1.0"
)

// ReasonNoResults marks a place the provider does not know. It is not retried.
const ReasonNoResults = "no results found"

// Geocoder turns a location name into coordinates
type Geocoder interface {
	Geocode(ctx context.Context, name string) (models.Coordinates, error)
}

// ErrGeocodingFailed is returned when a location name cannot be geocoded
type ErrGeocodingFailed struct {
	Name   string
	Reason string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("could not geocode %q: %s", e.Name, e.Reason)
}

type nominatimGeocoder struct {
	baseURL string
	client  *http.Client
	limiter *time.Ticker
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NewNominatimGeocoder creates a Nominatim geocoder limited to one request
// per second, as the public instance's usage policy requires
func NewNominatimGeocoder(baseURL string) Geocoder {
	return newNominatim(baseURL, time.Second)
}

func newNominatim(baseURL string, interval time.Duration) *nominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimBaseURL
	}
	return &nominatimGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: time.NewTicker(interval),
	}
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, name string) (models.Coordinates, error) {
	select {
	case <-g.limiter.C:
	case <-ctx.Done():
		return models.Coordinates{}, ctx.Err()
	}

	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("[GEOCODING] Nominatim unreachable: name=%q err=%v", name, err)
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[GEOCODING] Nominatim rejected lookup: name=%q status=%d", name, resp.StatusCode)
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: "malformed response: " + err.Error()}
	}

	coords, reason := firstPlace(places)
	if reason != "" {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: name, Reason: reason}
	}

	log.Printf("[GEOCODING] Nominatim resolved: name=%q lat=%.5f lng=%.5f", name, coords.Lat, coords.Lng)
	return coords, nil
}

// firstPlace parses the best match, or returns why there is none
func firstPlace(places []nominatimPlace) (models.Coordinates, string) {
	if len(places) == 0 {
		return models.Coordinates{}, ReasonNoResults
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, "invalid latitude"
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, "invalid longitude"
	}
	return models.Coordinates{Lat: lat, Lng: lng}, ""
}
