package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
)

const DefaultGoogleBaseURL = "https://maps.googleapis.com/maps/api"

// GoogleProvider prices and describes pairs with the Google Distance Matrix
// and Directions APIs. Locations are addressed by name.
type GoogleProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      travelTimeCache
}

type googleValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type googleMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string       `json:"status"`
			Duration *googleValue `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Steps []struct {
				HTMLInstructions string       `json:"html_instructions"`
				Distance         *googleValue `json:"distance"`
				Duration         *googleValue `json:"duration"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// NewGoogleProvider creates a Google Maps provider. An empty baseURL uses the public API.
func NewGoogleProvider(baseURL, apiKey string, cache database.TravelTimeCacheRepository) *GoogleProvider {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	return &GoogleProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
		cache:      travelTimeCache{repo: cache},
	}
}

// EstimateMinutes returns the Distance Matrix travel time from origin to dest
func (p *GoogleProvider) EstimateMinutes(ctx context.Context, origin, dest models.Location, mode string) (float64, error) {
	if minutes, ok := p.cache.get(ctx, origin.Name, dest.Name, mode); ok {
		return minutes, nil
	}

	params := url.Values{}
	params.Set("origins", origin.Name)
	params.Set("destinations", dest.Name)
	params.Set("mode", mode)

	var resp googleMatrixResponse
	if err := p.getJSON(ctx, "distancematrix", params, &resp); err != nil {
		return 0, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: err.Error()}
	}
	if resp.Status != "OK" {
		log.Printf("[ERROR] Distance Matrix API error: origin=%q dest=%q status=%s message=%s", origin.Name, dest.Name, resp.Status, resp.ErrorMessage)
		return 0, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: "status " + resp.Status}
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: "no results returned"}
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" || el.Duration == nil {
		return 0, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: "element status " + el.Status}
	}

	minutes := el.Duration.Value / 60
	p.cache.put(ctx, models.TravelTimeCacheEntry{Origin: origin.Name, Destination: dest.Name, Mode: mode, Minutes: minutes})
	log.Printf("[GOOGLE] Travel time calculated: origin=%q dest=%q minutes=%.1f", origin.Name, dest.Name, minutes)
	return minutes, nil
}

// Steps returns the Directions API steps from origin to dest with plain-text instructions
func (p *GoogleProvider) Steps(ctx context.Context, origin, dest models.Location, mode string) ([]models.Step, error) {
	params := url.Values{}
	params.Set("origin", origin.Name)
	params.Set("destination", dest.Name)
	params.Set("mode", mode)

	var resp googleDirectionsResponse
	if err := p.getJSON(ctx, "directions", params, &resp); err != nil {
		return nil, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: err.Error()}
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		log.Printf("[ERROR] Directions API error: origin=%q dest=%q status=%s message=%s", origin.Name, dest.Name, resp.Status, resp.ErrorMessage)
		return nil, &ErrDistanceCalculationFailed{Origin: origin.Name, Dest: dest.Name, Reason: "status " + resp.Status}
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, nil
	}

	var steps []models.Step
	for _, s := range resp.Routes[0].Legs[0].Steps {
		step := models.Step{Instruction: PlainText(s.HTMLInstructions)}
		if s.Distance != nil {
			step.Distance = s.Distance.Text
		}
		if s.Duration != nil {
			step.Duration = s.Duration.Text
			step.DurationMinutes = s.Duration.Value / 60
		}
		steps = append(steps, step)
	}

	log.Printf("[GOOGLE] Directions: origin=%q dest=%q steps=%d", origin.Name, dest.Name, len(steps))
	return steps, nil
}

func (p *GoogleProvider) getJSON(ctx context.Context, api string, params url.Values, out interface{}) error {
	params.Set("key", p.apiKey)
	queryURL := fmt.Sprintf("%s/%s/json?%s", p.baseURL, api, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Google %s request failed: err=%v", api, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] Google %s error: status=%d body=%s", api, resp.StatusCode, string(body))
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
