// Package spotify provides a track search provider backed by the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// ProviderName labels metrics and cache entries.
	ProviderName = "spotify"

	// DefaultMarket matches the curated query table.
	DefaultMarket = "IN"

	// DefaultLimit is the page size requested from search.
	DefaultLimit = 20
)

// ErrMissingCredentials is returned when client id or secret is empty.
var ErrMissingCredentials = errors.New("spotify client id and secret are required")

// Config holds Spotify client-credentials configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string
	Limit        int
	Timeout      time.Duration
}

// searchAPI is the subset of the Spotify client used for search.
type searchAPI interface {
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
}

// Client wraps the Spotify API client for anonymous track search.
type Client struct {
	api    searchAPI
	market string
	limit  int
}

// New creates a Spotify client authenticated with the client-credentials flow.
// Tokens are fetched lazily and refreshed by the oauth2 transport.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	httpClient := creds.Client(ctx)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	return newWithAPI(spotify.New(httpClient), cfg), nil
}

func newWithAPI(api searchAPI, cfg Config) *Client {
	c := &Client{api: api, market: cfg.Market, limit: cfg.Limit}
	if c.market == "" {
		c.market = DefaultMarket
	}
	if c.limit <= 0 || c.limit > 50 {
		c.limit = DefaultLimit
	}
	return c
}

// Name identifies the provider.
func (c *Client) Name() string {
	return ProviderName
}

// searchTracks runs a track search and returns the raw result page.
func (c *Client) searchTracks(ctx context.Context, query string) ([]spotify.FullTrack, error) {
	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack,
		spotify.Limit(c.limit),
		spotify.Market(c.market),
	)
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	if result == nil || result.Tracks == nil {
		return nil, nil
	}
	return result.Tracks.Tracks, nil
}
