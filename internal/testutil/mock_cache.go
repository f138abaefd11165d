package testutil

import (
	"context"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
)

// MockTravelTimeCache is a mock implementation of TravelTimeCacheRepository
// for testing. When Err is set every call fails with it.
type MockTravelTimeCache struct {
	Err     error
	entries map[database.TravelTimeKey]*models.TravelTimeCacheEntry
}

func NewMockTravelTimeCache() *MockTravelTimeCache {
	return &MockTravelTimeCache{
		entries: make(map[database.TravelTimeKey]*models.TravelTimeCacheEntry),
	}
}

func (c *MockTravelTimeCache) Get(ctx context.Context, key database.TravelTimeKey) (*models.TravelTimeCacheEntry, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.entries[key], nil
}

func (c *MockTravelTimeCache) GetBatch(ctx context.Context, keys []database.TravelTimeKey) (map[database.TravelTimeKey]*models.TravelTimeCacheEntry, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	result := make(map[database.TravelTimeKey]*models.TravelTimeCacheEntry)
	for _, key := range keys {
		if entry, ok := c.entries[key]; ok {
			result[key] = entry
		}
	}
	return result, nil
}

func (c *MockTravelTimeCache) Set(ctx context.Context, entry *models.TravelTimeCacheEntry) error {
	if c.Err != nil {
		return c.Err
	}
	e := *entry
	c.entries[database.KeyOf(&e)] = &e
	return nil
}

func (c *MockTravelTimeCache) SetBatch(ctx context.Context, entries []models.TravelTimeCacheEntry) error {
	for i := range entries {
		if err := c.Set(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *MockTravelTimeCache) Clear(ctx context.Context) error {
	if c.Err != nil {
		return c.Err
	}
	c.entries = make(map[database.TravelTimeKey]*models.TravelTimeCacheEntry)
	return nil
}

// Count returns the number of entries in the cache
func (c *MockTravelTimeCache) Count() int {
	return len(c.entries)
}
