// Package youtube searches YouTube Data API v3 for videos matching a query.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/justestif/moodtube/internal/metrics"
	"github.com/justestif/moodtube/internal/recommend"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 root.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// DefaultRegion matches the curated query table.
	DefaultRegion = "IN"

	// DefaultMaxResults is the page size requested from search.list.
	DefaultMaxResults = 20

	// ProviderName labels metrics and cache entries.
	ProviderName = "youtube"

	userAgent    = "moodtube/1.0"
	watchURL     = "https://www.youtube.com/watch?v="
	embedURL     = "https://www.youtube.com/embed/"
	maxBodyBytes = 4 << 20
)

// Google API error reasons.
const (
	reasonRateLimited     = "rateLimitExceeded"
	reasonUserRateLimited = "userRateLimitExceeded"
	reasonQuotaExceeded   = "quotaExceeded"
	reasonKeyInvalid      = "keyInvalid"
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when the API rate limit is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrQuotaExceeded is returned when the daily quota for the API key is used up.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrInvalidAPIKey is returned when the API key is rejected.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Config holds YouTube client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Region     string
	MaxResults int
	// CacheTTL keeps responses per query in memory. Zero disables caching.
	CacheTTL time.Duration
	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client is a YouTube search client with caching, pacing and retry on rate limit.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	region     string
	maxResults int

	limiter     *rate.Limiter
	cache       *cache.Cache
	cacheTTL    time.Duration
	retryDelays []time.Duration
}

// NewClient creates a new YouTube client from the provided configuration.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		region:      cfg.Region,
		maxResults:  cfg.MaxResults,
		cacheTTL:    cfg.CacheTTL,
		retryDelays: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}

	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.region == "" {
		c.region = DefaultRegion
	}
	if c.maxResults <= 0 || c.maxResults > 50 {
		c.maxResults = DefaultMaxResults
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return c
}

// Name identifies the provider.
func (c *Client) Name() string {
	return ProviderName
}

// Search returns the raw video results for a query.
// A response without items is zero results, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]recommend.RawItem, error) {
	cacheKey := c.region + ":" + query

	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			metrics.CacheHits.WithLabelValues("memory").Inc()
			return cloneItems(cached.([]recommend.RawItem)), nil
		}
	}

	params := url.Values{
		"part":       {"snippet"},
		"q":          {query},
		"type":       {"video"},
		"regionCode": {c.region},
		"maxResults": {strconv.Itoa(c.maxResults)},
		"key":        {c.apiKey},
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(ProviderName, metrics.OutcomeFailure).Inc()
		return nil, fmt.Errorf("searching videos: %w", err)
	}

	items, err := parseSearchResponse(body)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(ProviderName, metrics.OutcomeFailure).Inc()
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	metrics.ProviderRequests.WithLabelValues(ProviderName, metrics.OutcomeSuccess).Inc()

	if c.cache != nil {
		c.cache.Set(cacheKey, cloneItems(items), cache.DefaultExpiration)
	}

	return items, nil
}

// parseSearchResponse converts a search.list body to raw items.
// A missing or non-array items field yields no items; entries that fail to
// decode are skipped.
func parseSearchResponse(body []byte) ([]recommend.RawItem, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	items := []recommend.RawItem{}
	var entries []json.RawMessage
	if len(resp.Items) == 0 || json.Unmarshal(resp.Items, &entries) != nil {
		return items, nil
	}

	for _, entry := range entries {
		var it searchItem
		if err := json.Unmarshal(entry, &it); err != nil {
			continue
		}
		items = append(items, toRawItem(it))
	}
	return items, nil
}

// toRawItem maps a search result; results without a video id keep an empty
// ExternalID and are dropped during curation.
func toRawItem(it searchItem) recommend.RawItem {
	raw := recommend.RawItem{
		ExternalID:          it.ID.VideoID,
		Title:               html.UnescapeString(it.Snippet.Title),
		MediumThumbnailURL:  it.Snippet.Thumbnails.Medium.url(),
		DefaultThumbnailURL: it.Snippet.Thumbnails.Default.url(),
	}
	if raw.ExternalID != "" {
		raw.URL = watchURL + url.QueryEscape(raw.ExternalID)
		raw.EmbedURL = embedURL + url.PathEscape(raw.ExternalID) + "?autoplay=1"
	}
	return raw
}

func cloneItems(items []recommend.RawItem) []recommend.RawItem {
	return append([]recommend.RawItem{}, items...)
}

// doRequest performs an HTTP GET request with retry on rate limit.
// Retries up to 3 times with exponential backoff (1s, 2s, 4s).
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "/search?" + params.Encode()

	var lastErr error

	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelays[attempt-1]):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		body, err := c.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, ErrRateLimited) {
			lastErr = err
			continue
		}

		// Non-retryable error
		return nil, err
	}

	return nil, lastErr
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, classifyError(resp.StatusCode, body)
}

// classifyError maps a non-2xx response to a sentinel error where one applies.
func classifyError(status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	switch apiErr.reason() {
	case reasonRateLimited, reasonUserRateLimited:
		return ErrRateLimited
	case reasonQuotaExceeded:
		return ErrQuotaExceeded
	case reasonKeyInvalid:
		return ErrInvalidAPIKey
	}

	if status == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if apiErr.Error.Message != "" {
		return fmt.Errorf("API error %d: %s", status, apiErr.Error.Message)
	}
	return fmt.Errorf("unexpected status %d", status)
}
