package distance

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
)

// ErrDistanceCalculationFailed is returned when a routing API cannot price a pair
type ErrDistanceCalculationFailed struct {
	Origin string
	Dest   string
	Reason string
}

func (e *ErrDistanceCalculationFailed) Error() string {
	if e.Origin == "" && e.Dest == "" {
		return fmt.Sprintf("distance calculation failed: %s", e.Reason)
	}
	return fmt.Sprintf("distance calculation failed (%s -> %s): %s", e.Origin, e.Dest, e.Reason)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// travelTimeCache wraps an optional cache repository. Cache errors are
// logged and treated as misses.
type travelTimeCache struct {
	repo database.TravelTimeCacheRepository
}

func (c travelTimeCache) get(ctx context.Context, origin, dest, mode string) (float64, bool) {
	if c.repo == nil {
		return 0, false
	}
	entry, err := c.repo.Get(ctx, database.TravelTimeKey{Origin: origin, Destination: dest, Mode: mode})
	if err != nil {
		log.Printf("[CACHE] Travel time lookup failed: origin=%q dest=%q err=%v", origin, dest, err)
		return 0, false
	}
	if entry == nil {
		return 0, false
	}
	return entry.Minutes, true
}

func (c travelTimeCache) put(ctx context.Context, entries ...models.TravelTimeCacheEntry) {
	if c.repo == nil || len(entries) == 0 {
		return
	}
	if err := c.repo.SetBatch(ctx, entries); err != nil {
		log.Printf("[CACHE] Travel time write failed: entries=%d err=%v", len(entries), err)
	}
}
