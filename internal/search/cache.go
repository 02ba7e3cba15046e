package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/justestif/moodtube/internal/db"
	"github.com/justestif/moodtube/internal/metrics"
	"github.com/justestif/moodtube/internal/recommend"
)

// DefaultCacheTTL is the duration after which cached responses are considered stale.
const DefaultCacheTTL = 6 * time.Hour

// CacheStore persists provider responses.
// *db.SearchCacheRepository implements it.
type CacheStore interface {
	Get(ctx context.Context, provider, query string) (*db.CachedSearch, error)
	Upsert(ctx context.Context, entry *db.CachedSearch) error
}

// CachedProvider implements Provider with database persistence.
// It checks the store first, then falls back to the underlying provider for
// misses and stale entries, persisting new results.
type CachedProvider struct {
	store  CacheStore
	next   Provider
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedProvider wraps next with a persistent cache.
func NewCachedProvider(store CacheStore, next Provider, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		store:  store,
		next:   next,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "search_cache").Logger(),
	}
}

// Name implements Provider.
func (c *CachedProvider) Name() string {
	return c.next.Name()
}

// Search returns a fresh cached response when available. On a miss or stale
// entry it queries the provider; if that fails and a stale entry exists, the
// stale entry is served.
func (c *CachedProvider) Search(ctx context.Context, query string) ([]recommend.RawItem, error) {
	provider := c.next.Name()

	entry, err := c.store.Get(ctx, provider, query)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		// Cache trouble never blocks a search.
		c.logger.Warn().Err(err).Str("query", query).Msg("reading search cache")
		entry = nil
	}

	var cached []recommend.RawItem
	if entry != nil {
		cached, err = decodePayload(entry.Payload)
		if err != nil {
			c.logger.Warn().Err(err).Str("query", query).Msg("decoding cached search")
			entry = nil
		}
	}

	// Lazy invalidation on read
	if entry != nil && c.now().Before(entry.FetchedAt.Add(c.ttl)) {
		metrics.CacheHits.WithLabelValues("database").Inc()
		return cached, nil
	}

	items, err := c.next.Search(ctx, query)
	if err != nil {
		if entry != nil {
			c.logger.Warn().Err(err).Str("query", query).Msg("provider failed, serving stale cache")
			return cached, nil
		}
		return nil, err
	}

	if err := c.persist(ctx, provider, query, items); err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("persisting search cache")
	}
	return items, nil
}

func (c *CachedProvider) persist(ctx context.Context, provider, query string, items []recommend.RawItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	now := c.now()
	return c.store.Upsert(ctx, &db.CachedSearch{
		Provider:  provider,
		Query:     query,
		Payload:   payload,
		FetchedAt: now,
		ExpiresAt: now.Add(c.ttl),
	})
}

func decodePayload(payload []byte) ([]recommend.RawItem, error) {
	items := []recommend.RawItem{}
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []recommend.RawItem{}
	}
	return items, nil
}
