package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cluster-tour-router/internal/models"
)

// ErrMockProvider is returned by mocks configured to fail
var ErrMockProvider = errors.New("mock provider failure")

// TravelCall tracks a call to the travel time provider
type TravelCall struct {
	Origin string
	Dest   string
	Mode   string
}

// MockTravelTimeProvider is a mock implementation for testing.
// Pairs are keyed by location name; unknown pairs return Default.
type MockTravelTimeProvider struct {
	Default float64
	Minutes map[[2]string]float64
	// Failing makes every lookup that touches the named location fail.
	Failing map[string]bool
	Calls   []TravelCall

	mu sync.Mutex
}

func NewMockTravelTimeProvider(defaultMinutes float64) *MockTravelTimeProvider {
	return &MockTravelTimeProvider{
		Default: defaultMinutes,
		Minutes: make(map[[2]string]float64),
		Failing: make(map[string]bool),
	}
}

// SetMinutes sets the travel time for one ordered pair
func (m *MockTravelTimeProvider) SetMinutes(origin, dest string, minutes float64) {
	m.Minutes[[2]string{origin, dest}] = minutes
}

// EstimateMinutes returns the configured travel time for the pair
func (m *MockTravelTimeProvider) EstimateMinutes(ctx context.Context, origin, dest models.Location, mode string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, TravelCall{Origin: origin.Name, Dest: dest.Name, Mode: mode})

	if m.Failing[origin.Name] || m.Failing[dest.Name] {
		return 0, fmt.Errorf("%w: %s -> %s", ErrMockProvider, origin.Name, dest.Name)
	}
	if v, ok := m.Minutes[[2]string{origin.Name, dest.Name}]; ok {
		return v, nil
	}
	return m.Default, nil
}

// CallCount returns the number of recorded lookups
func (m *MockTravelTimeProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ResetCalls clears the recorded calls
func (m *MockTravelTimeProvider) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// MockDirections returns canned steps per ordered name pair.
// Pairs without steps return nil, nil.
type MockDirections struct {
	Routes map[[2]string][]models.Step
	Err    error
}

func NewMockDirections() *MockDirections {
	return &MockDirections{Routes: make(map[[2]string][]models.Step)}
}

// SetSteps sets the steps for one ordered pair
func (m *MockDirections) SetSteps(origin, dest string, steps ...models.Step) {
	m.Routes[[2]string{origin, dest}] = steps
}

func (m *MockDirections) Steps(ctx context.Context, origin, dest models.Location, mode string) ([]models.Step, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Routes[[2]string{origin.Name, dest.Name}], nil
}

// MockCoordinateResolver resolves names from a fixed table
type MockCoordinateResolver struct {
	Coords   map[string]models.Coordinates
	Resolved int
	Cleared  int
}

func NewMockCoordinateResolver(coords map[string]models.Coordinates) *MockCoordinateResolver {
	if coords == nil {
		coords = make(map[string]models.Coordinates)
	}
	return &MockCoordinateResolver{Coords: coords}
}

func (m *MockCoordinateResolver) Resolve(ctx context.Context, loc models.Location) (models.Coordinates, error) {
	m.Resolved++
	if loc.Coords != nil {
		return *loc.Coords, nil
	}
	c, ok := m.Coords[loc.Name]
	if !ok {
		return models.Coordinates{}, fmt.Errorf("%w: unknown location %q", ErrMockProvider, loc.Name)
	}
	return c, nil
}

func (m *MockCoordinateResolver) Clear() {
	m.Cleared++
}
