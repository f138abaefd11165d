package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"cluster-tour-router/internal/models"
)

// FileTravelTimeCacheData represents the structure of the cache file
type FileTravelTimeCacheData struct {
	Entries []models.TravelTimeCacheEntry `json:"entries"`
}

// FileTravelTimeCache is a JSON file implementation of TravelTimeCacheRepository.
// With an empty path it keeps entries in memory only.
type FileTravelTimeCache struct {
	filePath string
	data     *FileTravelTimeCacheData
	index    map[TravelTimeKey]int
	mu       sync.RWMutex
}

// NewFileTravelTimeCache opens or creates the cache file at filePath
func NewFileTravelTimeCache(filePath string) (*FileTravelTimeCache, error) {
	cache := &FileTravelTimeCache{
		filePath: filePath,
		data:     &FileTravelTimeCacheData{Entries: []models.TravelTimeCacheEntry{}},
		index:    make(map[TravelTimeKey]int),
	}

	if filePath == "" {
		log.Printf("[CACHE] Using in-memory travel time cache")
		return cache, nil
	}

	log.Printf("[CACHE] Using travel time cache file: %s", filePath)
	if err := cache.load(); err != nil {
		return nil, err
	}
	return cache, nil
}

func (c *FileTravelTimeCache) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	if err := json.Unmarshal(data, c.data); err != nil {
		return fmt.Errorf("failed to parse cache file: %w", err)
	}
	if c.data.Entries == nil {
		c.data.Entries = []models.TravelTimeCacheEntry{}
	}

	c.rebuildIndex()

	log.Printf("[CACHE] Loaded travel time cache: %d entries", len(c.data.Entries))
	return nil
}

func (c *FileTravelTimeCache) saveUnlocked() error {
	if c.filePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	tmpFile := c.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmpFile, c.filePath); err != nil {
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func (c *FileTravelTimeCache) Get(ctx context.Context, key TravelTimeKey) (*models.TravelTimeCacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if idx, ok := c.index[key]; ok {
		// copy so callers cannot mutate cache data without the lock
		entryCopy := c.data.Entries[idx]
		return &entryCopy, nil
	}
	return nil, nil
}

func (c *FileTravelTimeCache) GetBatch(ctx context.Context, keys []TravelTimeKey) (map[TravelTimeKey]*models.TravelTimeCacheEntry, error) {
	result := make(map[TravelTimeKey]*models.TravelTimeCacheEntry)
	for _, key := range keys {
		entry, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			result[key] = entry
		}
	}
	return result, nil
}

func (c *FileTravelTimeCache) Set(ctx context.Context, entry *models.TravelTimeCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.putUnlocked(*entry)
	return c.saveUnlocked()
}

func (c *FileTravelTimeCache) SetBatch(ctx context.Context, entries []models.TravelTimeCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		c.putUnlocked(entry)
	}
	return c.saveUnlocked()
}

func (c *FileTravelTimeCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Entries = []models.TravelTimeCacheEntry{}
	c.index = make(map[TravelTimeKey]int)
	return c.saveUnlocked()
}

// Len returns the number of cached entries
func (c *FileTravelTimeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data.Entries)
}

func (c *FileTravelTimeCache) putUnlocked(entry models.TravelTimeCacheEntry) {
	key := KeyOf(&entry)
	if idx, ok := c.index[key]; ok {
		c.data.Entries[idx] = entry
		return
	}
	c.data.Entries = append(c.data.Entries, entry)
	c.index[key] = len(c.data.Entries) - 1
}

// rebuildIndex must be called with the mutex held
func (c *FileTravelTimeCache) rebuildIndex() {
	c.index = make(map[TravelTimeKey]int)
	for i := range c.data.Entries {
		c.index[KeyOf(&c.data.Entries[i])] = i
	}
}
