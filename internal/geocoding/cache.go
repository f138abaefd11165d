package geocoding

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
)

// DefaultRetries is the number of geocoding attempts per location
const DefaultRetries = 3

// DefaultBackoff is the wait after the first failed attempt; it doubles
// after each further failure.
const DefaultBackoff = time.Second

// CoordinateCache resolves location coordinates and memoises them by name.
// The memo lives until Clear, which the planner calls at the start of every
// run. An optional persistent repository is consulted before the geocoder
// and survives Clear.
type CoordinateCache struct {
	geocoder   Geocoder
	persistent database.GeocodeCacheRepository
	retries    int
	backoff    time.Duration

	mu      sync.Mutex
	entries map[string]models.Coordinates
}

// NewCoordinateCache creates a coordinate cache. persistent may be nil.
func NewCoordinateCache(geocoder Geocoder, persistent database.GeocodeCacheRepository) *CoordinateCache {
	return &CoordinateCache{
		geocoder:   geocoder,
		persistent: persistent,
		retries:    DefaultRetries,
		backoff:    DefaultBackoff,
		entries:    make(map[string]models.Coordinates),
	}
}

// Resolve returns the coordinates of loc. Coordinates already present on the
// location are returned as they are.
func (c *CoordinateCache) Resolve(ctx context.Context, loc models.Location) (models.Coordinates, error) {
	if loc.Coords != nil {
		return *loc.Coords, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if coords, ok := c.entries[loc.Name]; ok {
		return coords, nil
	}

	if c.persistent != nil {
		entry, err := c.persistent.Get(ctx, loc.Name)
		if err != nil {
			log.Printf("[CACHE] Geocode lookup failed: name=%q err=%v", loc.Name, err)
		} else if entry != nil {
			c.entries[loc.Name] = entry.Coords
			return entry.Coords, nil
		}
	}

	if c.geocoder == nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Name: loc.Name, Reason: "no geocoder configured"}
	}

	coords, err := c.geocode(ctx, loc.Name)
	if err != nil {
		return models.Coordinates{}, err
	}

	c.entries[loc.Name] = coords
	if c.persistent != nil {
		if err := c.persistent.Set(ctx, &models.GeocodeCacheEntry{Name: loc.Name, Coords: coords}); err != nil {
			log.Printf("[CACHE] Geocode write failed: name=%q err=%v", loc.Name, err)
		}
	}
	return coords, nil
}

// geocode calls the geocoder up to c.retries times with exponential backoff.
// An unknown place is not retried.
func (c *CoordinateCache) geocode(ctx context.Context, name string) (models.Coordinates, error) {
	var lastErr error
	wait := c.backoff

	for attempt := 1; attempt <= c.retries; attempt++ {
		coords, err := c.geocoder.Geocode(ctx, name)
		if err == nil {
			return coords, nil
		}
		lastErr = err

		var failed *ErrGeocodingFailed
		if errors.As(err, &failed) && failed.Reason == ReasonNoResults {
			break
		}
		if attempt == c.retries {
			break
		}

		log.Printf("[GEOCODING] Retrying: name=%q attempt=%d/%d backoff=%v err=%v", name, attempt, c.retries, wait, err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return models.Coordinates{}, ctx.Err()
		}
		wait *= 2
	}

	log.Printf("[WARN] Geocoding gave up: name=%q err=%v", name, lastErr)
	return models.Coordinates{}, lastErr
}

// Clear drops the in-process memo
func (c *CoordinateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]models.Coordinates)
}

// Len returns the number of memoised locations
func (c *CoordinateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
