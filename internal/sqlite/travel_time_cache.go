package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
)

type travelTimeCacheRepository struct {
	store *Store
}

const selectTravelTime = `SELECT origin, destination, mode, minutes
	FROM travel_time_cache
	WHERE origin = ? AND destination = ? AND mode = ?`

const upsertTravelTime = `INSERT OR REPLACE INTO travel_time_cache
	(origin, destination, mode, minutes)
	VALUES (?, ?, ?, ?)`

func (r *travelTimeCacheRepository) Get(ctx context.Context, key database.TravelTimeKey) (*models.TravelTimeCacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entry models.TravelTimeCacheEntry
	err := r.store.db.QueryRowContext(ctx, selectTravelTime, key.Origin, key.Destination, key.Mode).Scan(
		&entry.Origin, &entry.Destination, &entry.Mode, &entry.Minutes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get travel time cache entry: %w", err)
	}

	return &entry, nil
}

func (r *travelTimeCacheRepository) GetBatch(ctx context.Context, keys []database.TravelTimeKey) (map[database.TravelTimeKey]*models.TravelTimeCacheEntry, error) {
	result := make(map[database.TravelTimeKey]*models.TravelTimeCacheEntry)
	if len(keys) == 0 {
		return result, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stmt, err := r.store.db.PrepareContext(ctx, selectTravelTime)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare batch query: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		var entry models.TravelTimeCacheEntry
		err := stmt.QueryRowContext(ctx, key.Origin, key.Destination, key.Mode).Scan(
			&entry.Origin, &entry.Destination, &entry.Mode, &entry.Minutes,
		)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query batch entry: %w", err)
		}
		result[key] = &entry
	}

	return result, nil
}

func (r *travelTimeCacheRepository) Set(ctx context.Context, entry *models.TravelTimeCacheEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.ExecContext(ctx, upsertTravelTime, entry.Origin, entry.Destination, entry.Mode, entry.Minutes)
	if err != nil {
		return fmt.Errorf("failed to set travel time cache entry: %w", err)
	}
	return nil
}

func (r *travelTimeCacheRepository) SetBatch(ctx context.Context, entries []models.TravelTimeCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertTravelTime)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.Origin, entry.Destination, entry.Mode, entry.Minutes); err != nil {
			return fmt.Errorf("failed to insert batch entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *travelTimeCacheRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM travel_time_cache"); err != nil {
		return fmt.Errorf("failed to clear travel time cache: %w", err)
	}
	return nil
}
