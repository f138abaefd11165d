package database

import (
	"context"

	"cluster-tour-router/internal/models"
)

// DataStore is the interface for provider-result persistence.
// Solver results are never stored.
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	TravelTimeCache() TravelTimeCacheRepository
	GeocodeCache() GeocodeCacheRepository
}

// TravelTimeKey identifies one ordered travel-time lookup
type TravelTimeKey struct {
	Origin      string
	Destination string
	Mode        string
}

// TravelTimeCacheRepository handles travel time cache persistence.
// Get returns nil, nil on a miss.
type TravelTimeCacheRepository interface {
	Get(ctx context.Context, key TravelTimeKey) (*models.TravelTimeCacheEntry, error)
	GetBatch(ctx context.Context, keys []TravelTimeKey) (map[TravelTimeKey]*models.TravelTimeCacheEntry, error)
	Set(ctx context.Context, entry *models.TravelTimeCacheEntry) error
	SetBatch(ctx context.Context, entries []models.TravelTimeCacheEntry) error
	Clear(ctx context.Context) error
}

// GeocodeCacheRepository handles geocoding cache persistence.
// Get returns nil, nil on a miss.
type GeocodeCacheRepository interface {
	Get(ctx context.Context, name string) (*models.GeocodeCacheEntry, error)
	Set(ctx context.Context, entry *models.GeocodeCacheEntry) error
	Clear(ctx context.Context) error
}

// NetworkRepository loads the node configuration solved by the planner
type NetworkRepository interface {
	Load(ctx context.Context) (*models.Network, error)
}

// KeyOf returns the lookup key of a cache entry
func KeyOf(e *models.TravelTimeCacheEntry) TravelTimeKey {
	return TravelTimeKey{Origin: e.Origin, Destination: e.Destination, Mode: e.Mode}
}
