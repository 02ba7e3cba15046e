package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchCacheRepository handles cached provider responses.
type SearchCacheRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves a cached response by provider and query.
// Expired rows are returned; callers decide staleness from FetchedAt.
func (r *SearchCacheRepository) Get(ctx context.Context, provider, query string) (*CachedSearch, error) {
	sql := `
		SELECT provider, query, payload, fetched_at, expires_at
		FROM search_cache
		WHERE provider = $1 AND query = $2
	`
	var entry CachedSearch
	err := r.pool.QueryRow(ctx, sql, provider, query).Scan(
		&entry.Provider,
		&entry.Query,
		&entry.Payload,
		&entry.FetchedAt,
		&entry.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying search cache: %w", err)
	}
	return &entry, nil
}

// Upsert inserts or replaces a cached response.
func (r *SearchCacheRepository) Upsert(ctx context.Context, entry *CachedSearch) error {
	sql := `
		INSERT INTO search_cache (provider, query, payload, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, query) DO UPDATE SET
			payload = EXCLUDED.payload,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, sql,
		entry.Provider,
		entry.Query,
		entry.Payload,
		entry.FetchedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting search cache: %w", err)
	}
	return nil
}

// DeleteExpired removes all rows whose expiry is before now.
func (r *SearchCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	sql := `DELETE FROM search_cache WHERE expires_at <= $1`
	result, err := r.pool.Exec(ctx, sql, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired search cache: %w", err)
	}
	return result.RowsAffected(), nil
}
