package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"cluster-tour-router/internal/models"
)

type geocodeCacheRepository struct {
	store *Store
}

func (r *geocodeCacheRepository) Get(ctx context.Context, name string) (*models.GeocodeCacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entry models.GeocodeCacheEntry
	err := r.store.db.QueryRowContext(ctx,
		`SELECT name, lat, lng FROM geocode_cache WHERE name = ?`, name,
	).Scan(&entry.Name, &entry.Coords.Lat, &entry.Coords.Lng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geocode cache entry: %w", err)
	}

	return &entry, nil
}

func (r *geocodeCacheRepository) Set(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO geocode_cache (name, lat, lng) VALUES (?, ?, ?)`,
		entry.Name,
		models.RoundCoordinate(entry.Coords.Lat),
		models.RoundCoordinate(entry.Coords.Lng),
	)
	if err != nil {
		return fmt.Errorf("failed to set geocode cache entry: %w", err)
	}
	return nil
}

func (r *geocodeCacheRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM geocode_cache"); err != nil {
		return fmt.Errorf("failed to clear geocode cache: %w", err)
	}
	return nil
}
