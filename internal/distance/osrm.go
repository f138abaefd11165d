package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
)

const DefaultOSRMBaseURL = "https://router.project-osrm.org"

// maxOSRMCoordinates is the maximum number of coordinates OSRM public API accepts
const maxOSRMCoordinates = 80

// OSRMProvider prices and describes pairs with an OSRM server. Locations
// must carry resolved coordinates; cache keys use location names.
type OSRMProvider struct {
	baseURL    string
	httpClient *http.Client
	cache      travelTimeCache
}

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Durations [][]*float64 `json:"durations"`
}

type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Legs []struct {
			Steps []osrmStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type osrmStep struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
	} `json:"maneuver"`
}

// NewOSRMProvider creates an OSRM provider. An empty baseURL uses the public demo server.
func NewOSRMProvider(baseURL string, cache database.TravelTimeCacheRepository) *OSRMProvider {
	if baseURL == "" {
		baseURL = DefaultOSRMBaseURL
	}
	return &OSRMProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
		cache:      travelTimeCache{repo: cache},
	}
}

// osrmProfile maps a travel mode onto an OSRM routing profile
func osrmProfile(mode string) string {
	switch mode {
	case "walking":
		return "foot"
	case "bicycling":
		return "bike"
	default:
		return "driving"
	}
}

func coordsParam(locations []models.Location) (string, error) {
	coords := make([]string, len(locations))
	for i, loc := range locations {
		if loc.Coords == nil {
			return "", fmt.Errorf("location %q has no coordinates", loc.Name)
		}
		coords[i] = fmt.Sprintf("%.6f,%.6f", loc.Coords.Lng, loc.Coords.Lat)
	}
	return strings.Join(coords, ";"), nil
}

// EstimateMinutes returns the OSRM travel time from origin to dest
func (p *OSRMProvider) EstimateMinutes(ctx context.Context, origin, dest models.Location, mode string) (float64, error) {
	if minutes, ok := p.cache.get(ctx, origin.Name, dest.Name, mode); ok {
		return minutes, nil
	}

	if origin.Coords != nil && dest.Coords != nil && origin.Coords.SamePoint(*dest.Coords) {
		return 0, nil
	}

	log.Printf("[OSRM] Cache miss: origin=%q dest=%q mode=%s", origin.Name, dest.Name, mode)
	table, err := p.fetchTable(ctx, []models.Location{origin, dest}, mode)
	if err != nil {
		return 0, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: err.Error()}
	}

	d := table[0][1]
	if d == nil {
		return 0, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: "no route"}
	}

	minutes := *d / 60
	p.cache.put(ctx, models.TravelTimeCacheEntry{Origin: origin.Name, Destination: dest.Name, Mode: mode, Minutes: minutes})
	log.Printf("[OSRM] Travel time calculated: origin=%q dest=%q minutes=%.1f", origin.Name, dest.Name, minutes)
	return minutes, nil
}

// Prewarm fills the cache with one table request per cluster, covering
// every same-cluster pair. Locations without coordinates are skipped.
func (p *OSRMProvider) Prewarm(ctx context.Context, locations []models.Location, mode string) error {
	byCluster := make(map[string][]models.Location)
	var order []string
	for _, loc := range locations {
		if loc.Coords == nil {
			continue
		}
		if _, ok := byCluster[loc.Cluster]; !ok {
			order = append(order, loc.Cluster)
		}
		byCluster[loc.Cluster] = append(byCluster[loc.Cluster], loc)
	}

	for _, cluster := range order {
		group := byCluster[cluster]
		if len(group) < 2 || p.allCached(ctx, group, mode) {
			continue
		}
		if len(group) > maxOSRMCoordinates {
			return &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("cluster %q has %d locations, limit is %d", cluster, len(group), maxOSRMCoordinates)}
		}

		table, err := p.fetchTable(ctx, group, mode)
		if err != nil {
			return &ErrDistanceCalculationFailed{Reason: err.Error()}
		}

		var entries []models.TravelTimeCacheEntry
		for i := range group {
			for j := range group {
				if i == j || table[i][j] == nil {
					continue
				}
				entries = append(entries, models.TravelTimeCacheEntry{
					Origin:      group[i].Name,
					Destination: group[j].Name,
					Mode:        mode,
					Minutes:     *table[i][j] / 60,
				})
			}
		}
		p.cache.put(ctx, entries...)
		log.Printf("[OSRM] Prewarmed cluster: cluster=%s points=%d entries=%d", cluster, len(group), len(entries))
	}
	return nil
}

func (p *OSRMProvider) allCached(ctx context.Context, group []models.Location, mode string) bool {
	for i := range group {
		for j := range group {
			if i == j {
				continue
			}
			if _, ok := p.cache.get(ctx, group[i].Name, group[j].Name, mode); !ok {
				return false
			}
		}
	}
	return true
}

func (p *OSRMProvider) fetchTable(ctx context.Context, locations []models.Location, mode string) ([][]*float64, error) {
	coords, err := coordsParam(locations)
	if err != nil {
		return nil, err
	}

	queryURL := fmt.Sprintf("%s/table/v1/%s/%s?annotations=duration", p.baseURL, osrmProfile(mode), coords)

	var resp osrmTableResponse
	if err := p.getJSON(ctx, queryURL, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" {
		log.Printf("[ERROR] OSRM returned error code: points=%d code=%s message=%s", len(locations), resp.Code, resp.Message)
		return nil, fmt.Errorf("OSRM error: %s", resp.Code)
	}
	if len(resp.Durations) != len(locations) {
		return nil, fmt.Errorf("OSRM returned %d rows for %d points", len(resp.Durations), len(locations))
	}
	for i, row := range resp.Durations {
		if len(row) != len(locations) {
			return nil, fmt.Errorf("OSRM row %d has %d columns for %d points", i, len(row), len(locations))
		}
	}

	log.Printf("[OSRM] Table response: points=%d code=%s", len(locations), resp.Code)
	return resp.Durations, nil
}

// Steps returns the turn-by-turn route from origin to dest
func (p *OSRMProvider) Steps(ctx context.Context, origin, dest models.Location, mode string) ([]models.Step, error) {
	coords, err := coordsParam([]models.Location{origin, dest})
	if err != nil {
		return nil, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: err.Error()}
	}

	queryURL := fmt.Sprintf("%s/route/v1/%s/%s?steps=true&overview=false", p.baseURL, osrmProfile(mode), coords)

	var resp osrmRouteResponse
	if err := p.getJSON(ctx, queryURL, &resp); err != nil {
		return nil, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: err.Error()}
	}
	if resp.Code == "NoRoute" {
		return nil, nil
	}
	if resp.Code != "Ok" {
		return nil, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: "OSRM error: " + resp.Code}
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, nil
	}

	var steps []models.Step
	for _, s := range resp.Routes[0].Legs[0].Steps {
		steps = append(steps, models.Step{
			Instruction:     osrmInstruction(s.Maneuver.Type, s.Maneuver.Modifier, s.Name),
			Distance:        formatDistance(s.Distance),
			Duration:        formatDuration(s.Duration),
			DurationMinutes: s.Duration / 60,
		})
	}

	log.Printf("[OSRM] Route steps: origin=%q dest=%q steps=%d", origin.Name, dest.Name, len(steps))
	return steps, nil
}

func (p *OSRMProvider) getJSON(ctx context.Context, queryURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] OSRM API request failed: err=%v", err)
		return err
	}
	defer resp.Body.Close()

	// OSRM reports NoRoute and InvalidQuery as 400 with a JSON body
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] OSRM API error: status=%d body=%s", resp.StatusCode, string(body))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Printf("[ERROR] Failed to decode OSRM response: err=%v", err)
		return err
	}
	return nil
}
